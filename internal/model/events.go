package model

// Event names as they appear in the event log.
const (
	EventLiquidityPoolCreated = "LiquidityPoolCreated"
	EventLiquidityAdded       = "LiquidityAdded"
	EventLiquidityRemoved     = "LiquidityRemoved"
	EventPriceChanged         = "PriceChanged"
	EventSwapped              = "Swapped"
)

// Event is a domain notification emitted by the engine.
type Event interface {
	EventName() string
}

// LiquidityPoolCreatedData is emitted once per pair on its first deposit.
type LiquidityPoolCreatedData struct {
	Asset0    AssetID `json:"asset_0"`
	Asset1    AssetID `json:"asset_1"`
	PoolToken AssetID `json:"pool_token"`
	Account   string  `json:"account"`
}

func (LiquidityPoolCreatedData) EventName() string { return EventLiquidityPoolCreated }

// LiquidityAddedData is the payload of a successful deposit.
type LiquidityAddedData struct {
	Provider string  `json:"provider"`
	Amount0  string  `json:"amount_0"`
	Asset0   AssetID `json:"asset_0"`
	Amount1  string  `json:"amount_1"`
	Asset1   AssetID `json:"asset_1"`
	Minted   string  `json:"minted"`
	Reserve0 string  `json:"reserve_0"`
	Reserve1 string  `json:"reserve_1"`
}

func (LiquidityAddedData) EventName() string { return EventLiquidityAdded }

// LiquidityRemovedData is the payload of a successful withdrawal.
type LiquidityRemovedData struct {
	Provider string  `json:"provider"`
	Amount0  string  `json:"amount_0"`
	Asset0   AssetID `json:"asset_0"`
	Amount1  string  `json:"amount_1"`
	Asset1   AssetID `json:"asset_1"`
	Burned   string  `json:"burned"`
	Reserve0 string  `json:"reserve_0"`
	Reserve1 string  `json:"reserve_1"`
}

func (LiquidityRemovedData) EventName() string { return EventLiquidityRemoved }

// PriceChangedData carries the refreshed oracle value for a pair.
type PriceChangedData struct {
	Asset0 AssetID `json:"asset_0"`
	Asset1 AssetID `json:"asset_1"`
	Price  string  `json:"price"`
}

func (PriceChangedData) EventName() string { return EventPriceChanged }

// SwappedData is the payload of a successful swap.
type SwappedData struct {
	Trader    string  `json:"trader"`
	AssetIn   AssetID `json:"asset_in"`
	AmountIn  string  `json:"amount_in"`
	AssetOut  AssetID `json:"asset_out"`
	AmountOut string  `json:"amount_out"`
	Fee       string  `json:"fee"`
	Reserve0  string  `json:"reserve_0"`
	Reserve1  string  `json:"reserve_1"`
}

func (SwappedData) EventName() string { return EventSwapped }
