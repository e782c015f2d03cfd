package models

// Requests for dashboard HTTP endpoints. Defined in domain for consistency and reuse.

type PerformanceRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,max=12,alphanum"`
	Days   int    `query:"days" json:"days" default:"365" validate:"gte=2,lte=3650"`
}

type PredictRequest struct {
	Symbol  string `query:"symbol" json:"symbol" validate:"required,max=12,alphanum"`
	Horizon string `query:"horizon" json:"horizon" default:"1d" validate:"oneof=1h 1d 1w 1m"`
}

type ForumRequest struct {
	Category string `query:"category" json:"category"`
	Query    string `query:"q" json:"q"`
	Sort     string `query:"sort" json:"sort" default:"newest" validate:"oneof=newest oldest popular"`
	Page     int    `query:"page" json:"page" default:"1" validate:"gte=1,lte=100000"`
	PageSize int    `query:"page_size" json:"page_size" default:"20" validate:"gte=1,lte=100"`
}
