package models

import "time"

// EODBar represents a single day's price data. Slices of bars are sorted
// descending (most recent first), matching the EODHD API order.
type EODBar struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adjusted_close"`
	Volume   int64     `json:"volume"`
}

// Fundamentals holds company profile and valuation data for a ticker.
type Fundamentals struct {
	Ticker            string  `json:"ticker"`
	Name              string  `json:"name"`
	Sector            string  `json:"sector"`
	Industry          string  `json:"industry"`
	MarketCap         float64 `json:"market_cap"`
	PE                float64 `json:"pe_ratio"`
	PB                float64 `json:"pb_ratio"`
	EPS               float64 `json:"eps"`
	DividendYield     float64 `json:"dividend_yield"`
	Beta              float64 `json:"beta"`
	ROA               float64 `json:"roa"`
	ROE               float64 `json:"roe"`
	ProfitMargin      float64 `json:"profit_margin"`
	EarningsGrowthYOY float64 `json:"earnings_growth_yoy"`
}

// NewsItem is a single news article with its sentiment classification.
type NewsItem struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	Sentiment   string    `json:"sentiment"` // positive, negative or neutral
}
