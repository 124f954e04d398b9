package model

// Pool is the exported view of a liquidity pool.
type Pool struct {
	Asset0    AssetID `json:"asset_0"`
	Asset1    AssetID `json:"asset_1"`
	PoolToken AssetID `json:"pool_token"`
	Account   string  `json:"account"`
	Reserve0  string  `json:"reserve_0"`
	Reserve1  string  `json:"reserve_1"`
	Supply    string  `json:"supply"`
	Price     string  `json:"price"`
}

// PoolMeta identifies the pool an event belongs to.
type PoolMeta struct {
	Asset0    AssetID `json:"asset_0"`
	Asset1    AssetID `json:"asset_1"`
	PoolToken AssetID `json:"pool_token"`
}
