package models

import "time"

// Quote is the latest price for a symbol.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Volume        float64   `json:"volume"`
	Timestamp     time.Time `json:"timestamp"`
}

// PricePoint is one sample of a price history, oldest first.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Close float64   `json:"close"`
}

// Prediction is the output of the external price-prediction model.
type Prediction struct {
	Symbol         string    `json:"symbol"`
	Horizon        string    `json:"horizon"`
	PredictedPrice float64   `json:"predicted_price"`
	Confidence     float64   `json:"confidence"`
	Model          string    `json:"model"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// ForumPost is a community post aggregated from the forum API.
type ForumPost struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Author    string    `json:"author"`
	Category  string    `json:"category"`
	Score     int       `json:"score"`
	Replies   int       `json:"replies"`
	CreatedAt time.Time `json:"created_at"`
}

// ForumPage is one page of a filtered, sorted post list.
type ForumPage struct {
	Posts    []ForumPost `json:"posts"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}
