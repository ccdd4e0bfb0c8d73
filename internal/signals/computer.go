// Package signals provides signal computation
package signals

import (
	"time"

	"github.com/bobmcallan/alphatalk/internal/models"
)

// Bollinger and crossover parameters used for quantitative analysis
const (
	BollingerPeriod = 30
	BollingerK      = 2.0
	CrossShort      = 5
	CrossLong       = 20
	RSIPeriod       = 14
)

// Indicators holds computed technical indicators for a ticker
type Indicators struct {
	Ticker           string    `json:"ticker"`
	CurrentPrice     float64   `json:"current_price"`
	Change           float64   `json:"change"`
	ChangePct        float64   `json:"change_pct"`
	MA5              float64   `json:"ma5"`
	MA20             float64   `json:"ma20"`
	RSI              float64   `json:"rsi"`
	RSISignal        string    `json:"rsi_signal"`
	BollingerSignal  Signal    `json:"bollinger_signal"`
	CrossoverSignal  Signal    `json:"crossover_signal"`
	High52Week       float64   `json:"high_52week"`
	Low52Week        float64   `json:"low_52week"`
	Bars             int       `json:"bars"`
	ComputeTimestamp time.Time `json:"compute_timestamp"`
}

// Computer computes all indicators for a ticker
type Computer struct{}

// NewComputer creates a new signal computer
func NewComputer() *Computer {
	return &Computer{}
}

// Compute calculates all indicators from daily bars (newest first)
func (c *Computer) Compute(ticker string, bars []models.EODBar) *Indicators {
	if len(bars) == 0 {
		return &Indicators{
			Ticker:           ticker,
			ComputeTimestamp: time.Now(),
		}
	}

	currentPrice := bars[0].Close

	var change float64
	if len(bars) > 1 {
		change = currentPrice - bars[1].Close
	}

	rsi := RSI(bars, RSIPeriod)

	return &Indicators{
		Ticker:           ticker,
		CurrentPrice:     currentPrice,
		Change:           change,
		ChangePct:        DailyChange(bars),
		MA5:              SMA(bars, CrossShort),
		MA20:             SMA(bars, CrossLong),
		RSI:              rsi,
		RSISignal:        ClassifyRSI(rsi),
		BollingerSignal:  BollingerSignal(bars, BollingerPeriod, BollingerK),
		CrossoverSignal:  CrossoverSignal(bars, CrossShort, CrossLong),
		High52Week:       High52Week(bars),
		Low52Week:        Low52Week(bars),
		Bars:             len(bars),
		ComputeTimestamp: time.Now(),
	}
}
