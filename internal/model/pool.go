package model

// PoolPrice is a spot-price snapshot for one pool.
type PoolPrice struct {
	Base         string  `json:"base"`
	Quote        string  `json:"quote"`
	PoolIdx      string  `json:"pool_idx"`
	SqrtPriceX64 string  `json:"sqrt_price_x64"`
	SpotPrice    float64 `json:"spot_price"`
	DisplayPrice float64 `json:"display_price"`
	Tick         int32   `json:"tick"`
	Liquidity    string  `json:"liquidity"`
}
