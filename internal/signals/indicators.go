// Package signals provides technical indicator calculations
package signals

import (
	"math"

	"github.com/bobmcallan/alphatalk/internal/models"
)

// Signal classifies a trading signal
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// SMA calculates Simple Moving Average for the given period
func SMA(bars []models.EODBar, period int) float64 {
	if len(bars) < period {
		return 0
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += bars[i].Close
	}
	return sum / float64(period)
}

// StdDev calculates the population standard deviation of closes over a period
func StdDev(bars []models.EODBar, period int) float64 {
	if len(bars) < period {
		return 0
	}

	mean := SMA(bars, period)
	variance := 0.0
	for i := 0; i < period; i++ {
		diff := bars[i].Close - mean
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(period))
}

// RSI calculates Relative Strength Index
func RSI(bars []models.EODBar, period int) float64 {
	if len(bars) < period+1 {
		return 50 // Neutral default
	}

	var gains, losses float64
	for i := 0; i < period; i++ {
		change := bars[i].Close - bars[i+1].Close
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// BollingerSignal generates a counter-trend signal against Bollinger bands:
// BUY when the close drops below the lower band, SELL when it rises above
// the upper band. k is the band width in standard deviations.
func BollingerSignal(bars []models.EODBar, period int, k float64) Signal {
	if len(bars) < period {
		return SignalHold
	}

	mid := SMA(bars, period)
	sd := StdDev(bars, period)
	if sd == 0 {
		return SignalHold
	}

	close := bars[0].Close
	upper := mid + k*sd
	lower := mid - k*sd

	if close < lower {
		return SignalBuy
	}
	if close > upper {
		return SignalSell
	}
	return SignalHold
}

// CrossoverSignal generates a trend-following signal from a moving-average
// crossover: BUY when the short SMA crosses above the long SMA, SELL when it
// crosses below.
func CrossoverSignal(bars []models.EODBar, shortPeriod, longPeriod int) Signal {
	if len(bars) < longPeriod+1 {
		return SignalHold
	}

	shortSMA := SMA(bars, shortPeriod)
	longSMA := SMA(bars, longPeriod)

	// Previous values (shift by 1)
	prevShortSMA := SMA(bars[1:], shortPeriod)
	prevLongSMA := SMA(bars[1:], longPeriod)

	if prevShortSMA <= prevLongSMA && shortSMA > longSMA {
		return SignalBuy
	}
	if prevShortSMA >= prevLongSMA && shortSMA < longSMA {
		return SignalSell
	}
	return SignalHold
}

// High52Week returns the highest high in the last 252 trading days
func High52Week(bars []models.EODBar) float64 {
	period := 252
	if len(bars) < period {
		period = len(bars)
	}

	high := 0.0
	for i := 0; i < period; i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
	}
	return high
}

// Low52Week returns the lowest low in the last 252 trading days
func Low52Week(bars []models.EODBar) float64 {
	period := 252
	if len(bars) < period {
		period = len(bars)
	}

	low := math.MaxFloat64
	for i := 0; i < period; i++ {
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	if low == math.MaxFloat64 {
		return 0
	}
	return low
}

// DailyChange returns the one-day price change as a percentage
func DailyChange(bars []models.EODBar) float64 {
	if len(bars) < 2 || bars[1].Close == 0 {
		return 0
	}
	return ((bars[0].Close - bars[1].Close) / bars[1].Close) * 100
}

// ClassifyRSI classifies RSI value
func ClassifyRSI(rsi float64) string {
	if rsi >= 70 {
		return "overbought"
	}
	if rsi <= 30 {
		return "oversold"
	}
	return "neutral"
}
