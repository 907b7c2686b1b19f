package model

// Balance is an account's holding of one asset.
type Balance struct {
	Account   string `json:"account"`
	Token     string `json:"token"`
	Symbol    string `json:"symbol"`
	Raw       string `json:"raw"`
	Formatted string `json:"formatted"`
}
