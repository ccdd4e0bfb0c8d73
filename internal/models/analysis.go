// Package models defines data structures for AlphaTalk
package models

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a requested record does not exist.
// Callers check with errors.Is.
var ErrNotFound = errors.New("not found")

// Category identifies one of the three analysis categories.
type Category string

const (
	CategoryQuant       Category = "quant"
	CategoryFundamental Category = "fundamental"
	CategoryNews        Category = "news"
)

// Categories lists the three analysis categories in canonical order.
var Categories = []Category{CategoryQuant, CategoryFundamental, CategoryNews}

// ParseCategory validates a category string from an API path or tool argument.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryQuant, CategoryFundamental, CategoryNews:
		return Category(s), true
	}
	return "", false
}

// SlotStatus is the state of a single analysis slot.
type SlotStatus string

const (
	SlotPending   SlotStatus = "pending"
	SlotSucceeded SlotStatus = "succeeded"
	SlotFailed    SlotStatus = "failed"
)

// AnalysisSlot holds the outcome of one analysis category (or the synthesis).
// A slot starts pending and settles to succeeded or failed exactly once.
type AnalysisSlot struct {
	Status  SlotStatus `json:"status"`
	Content string     `json:"content,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// PendingSlot returns a slot in the pending state.
func PendingSlot() AnalysisSlot {
	return AnalysisSlot{Status: SlotPending}
}

// SucceededSlot returns a terminal slot carrying the provider's report.
func SucceededSlot(content string) AnalysisSlot {
	return AnalysisSlot{Status: SlotSucceeded, Content: content}
}

// FailedSlot returns a terminal slot carrying the failure reason.
func FailedSlot(reason string) AnalysisSlot {
	return AnalysisSlot{Status: SlotFailed, Error: reason}
}

// Terminal reports whether the slot has settled.
func (s AnalysisSlot) Terminal() bool {
	return s.Status == SlotSucceeded || s.Status == SlotFailed
}

// AnalysisDocument is one completed analysis run for a ticker.
// Documents are append-only: a new run writes a new document keyed by
// (ticker, timestamp) rather than mutating an earlier one.
type AnalysisDocument struct {
	Ticker      string       `json:"ticker"`
	Timestamp   time.Time    `json:"timestamp"`
	Quant       AnalysisSlot `json:"quant_analysis"`
	Fundamental AnalysisSlot `json:"fundamental_analysis"`
	News        AnalysisSlot `json:"news_analysis"`
	Final       AnalysisSlot `json:"final_recommendation"`
}

// NewAnalysisDocument returns a document with all slots pending.
func NewAnalysisDocument(ticker string) *AnalysisDocument {
	return &AnalysisDocument{
		Ticker:      ticker,
		Quant:       PendingSlot(),
		Fundamental: PendingSlot(),
		News:        PendingSlot(),
		Final:       PendingSlot(),
	}
}

// Slot returns a pointer to the slot for the given category.
func (d *AnalysisDocument) Slot(c Category) *AnalysisSlot {
	switch c {
	case CategoryQuant:
		return &d.Quant
	case CategoryFundamental:
		return &d.Fundamental
	case CategoryNews:
		return &d.News
	}
	return nil
}

// Complete reports whether all three category slots are terminal and the
// final recommendation has settled. A complete document is immutable.
func (d *AnalysisDocument) Complete() bool {
	return d.Quant.Terminal() && d.Fundamental.Terminal() && d.News.Terminal() && d.Final.Terminal()
}

// Succeeded returns the categories whose slots settled successfully.
func (d *AnalysisDocument) Succeeded() []Category {
	var out []Category
	for _, c := range Categories {
		if d.Slot(c).Status == SlotSucceeded {
			out = append(out, c)
		}
	}
	return out
}

// CategoryProjection is the single-category view of a document. Staleness is
// always evaluated against the whole document, so the projection carries the
// document timestamp.
type CategoryProjection struct {
	Ticker    string       `json:"ticker"`
	Category  Category     `json:"category"`
	Timestamp time.Time    `json:"timestamp"`
	Analysis  AnalysisSlot `json:"analysis"`
}

// Project returns the projection of the document onto one category.
func (d *AnalysisDocument) Project(c Category) *CategoryProjection {
	return &CategoryProjection{
		Ticker:    d.Ticker,
		Category:  c,
		Timestamp: d.Timestamp,
		Analysis:  *d.Slot(c),
	}
}

// Stats holds aggregate counts for the admin stats endpoint.
type Stats struct {
	TotalDocuments int       `json:"total_documents"`
	TotalTickers   int       `json:"total_tickers"`
	TotalUsers     int       `json:"total_users"`
	GeneratedAt    time.Time `json:"generated_at"`
}
