package auctionpb

type SubmitOrderRequest struct {
	Trader string `json:"trader"`
	Market string `json:"market"`
	Side   string `json:"side"` // "buy" | "sell"
	Role   string `json:"role"` // "maker" | "taker"
	Tick   int32  `json:"tick"`
	Price  string `json:"price,omitempty"` // decimal; overrides Tick when set
	Qty    uint64 `json:"qty"`
	Nonce  uint64 `json:"nonce,omitempty"`
	Expiry int64  `json:"expiry,omitempty"` // unix nanos, 0 = none
}

type SubmitOrderResponse struct {
	OrderID string `json:"order_id"`
	Batch   uint64 `json:"batch"`
}

type CancelOrderRequest struct {
	Trader  string `json:"trader"`
	OrderID string `json:"order_id"`
}

type CancelOrderResponse struct{}

type FinalizeBatchRequest struct {
	Market   string `json:"market"`
	Batch    uint64 `json:"batch"`
	MaxSteps int    `json:"max_steps"`
}

type FinalizeBatchResponse struct {
	Phase string `json:"phase"`
	Done  bool   `json:"done"`
}

type GetClearingRequest struct {
	Market string `json:"market"`
	Batch  uint64 `json:"batch"`
}

type GetClearingResponse struct {
	Market      string `json:"market"`
	Batch       uint64 `json:"batch"`
	WindowStart int64  `json:"window_start"`
	WindowEnd   int64  `json:"window_end"`
	BidTick     int32  `json:"bid_tick"`
	BidVolume   uint64 `json:"bid_volume"`
	AskTick     int32  `json:"ask_tick"`
	AskVolume   uint64 `json:"ask_volume"`
	Done        bool   `json:"done"`
}

type OrderStatusRequest struct {
	OrderID string `json:"order_id"`
}

type OrderStatusResponse struct {
	Filled uint64 `json:"filled"`
	Done   bool   `json:"done"`
}

type ClaimFillRequest struct {
	Trader  string `json:"trader"`
	OrderID string `json:"order_id"`
}

type ClaimFillResponse struct {
	Amount uint64 `json:"amount"`
}

type TickLevelRequest struct {
	Market string `json:"market"`
	Batch  uint64 `json:"batch"`
	Tick   int32  `json:"tick"`
}

// TickLevelResponse reports the four per-curve aggregates at one tick.
// Fill fractions are scaled by 1e18; they settle once the batch
// finalizes.
type TickLevelResponse struct {
	RestingBuy     uint64 `json:"resting_buy"`
	RestingSell    uint64 `json:"resting_sell"`
	AggressiveBuy  uint64 `json:"aggressive_buy"`
	AggressiveSell uint64 `json:"aggressive_sell"`

	RestingBuyFill     uint64 `json:"resting_buy_fill"`
	RestingSellFill    uint64 `json:"resting_sell_fill"`
	AggressiveBuyFill  uint64 `json:"aggressive_buy_fill"`
	AggressiveSellFill uint64 `json:"aggressive_sell_fill"`
}
