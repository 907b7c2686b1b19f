package model

// Position is a liquidity position held by an owner or LP conduit.
type Position struct {
	Owner    string `json:"owner"`
	Base     string `json:"base"`
	Quote    string `json:"quote"`
	PoolIdx  string `json:"pool_idx"`
	Shape    string `json:"shape"`
	BidTick  int32  `json:"bid_tick,omitempty"`
	AskTick  int32  `json:"ask_tick,omitempty"`
	Liq      string `json:"liq"`
	BaseQty  string `json:"base_qty"`
	QuoteQty string `json:"quote_qty"`
}
