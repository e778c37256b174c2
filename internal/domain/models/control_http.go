package models

// Requests for the control HTTP endpoints. Defined in domain for consistency and reuse.

type TradesRequest struct {
	Limit int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
	Asset string `query:"asset" json:"asset"`
}

type SignalsRequest struct {
	Limit int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
	Asset string `query:"asset" json:"asset"`
}

type CandlesRequest struct {
	Asset string `query:"asset" json:"asset" validate:"required"`
	TF    string `query:"tf" json:"tf" default:"15m" validate:"oneof=1m 5m 15m 1h"`
	N     int    `query:"n" json:"n" default:"100" validate:"gte=1,lte=500"`
}
