package analysis

import (
	"fmt"
	"regexp"
	"strings"
)

// tickerPattern accepts uppercase symbols with optional exchange suffixes
// such as BRK.B or BHP.AX.
var tickerPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,19}$`)

// NormalizeTicker trims and uppercases a raw ticker, validating the result.
// All services key storage and run coordination on the normalized form so
// "tsla" and "TSLA" always refer to the same analysis.
func NormalizeTicker(raw string) (string, error) {
	ticker := strings.ToUpper(strings.TrimSpace(raw))
	if ticker == "" {
		return "", fmt.Errorf("%w: empty ticker", ErrInvalidTicker)
	}
	if !tickerPattern.MatchString(ticker) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTicker, raw)
	}
	return ticker, nil
}
