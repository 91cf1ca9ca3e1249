package models

// Requests for the engine HTTP endpoints. Defined in domain for consistency and reuse.

type LatestSignalsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	TF     string `query:"tf" json:"tf" default:"M15" validate:"oneof=M1 M5 M15 M30 H1 H4 D1"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type MemoryStatsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	TF     string `query:"tf" json:"tf" default:"M15" validate:"oneof=M1 M5 M15 M30 H1 H4 D1"`
}

type SuccessRateRequest struct {
	Symbol    string `query:"symbol" json:"symbol" validate:"required"`
	TF        string `query:"tf" json:"tf" default:"M15" validate:"oneof=M1 M5 M15 M30 H1 H4 D1"`
	Direction string `query:"direction" json:"direction" validate:"omitempty,oneof=bullish bearish"`
}

type SetOutcomeRequest struct {
	EventID string `json:"event_id" validate:"required"`
	Outcome string `json:"outcome" validate:"required,oneof=success failure"`
}
