package repository

import "fmt"

// Timeframe is a candle resolution.
type Timeframe string

const (
	TF1s Timeframe = "1s"
	TF1m Timeframe = "1m"
	TF5m Timeframe = "5m"
)

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TF1s, TF1m, TF5m:
		return true
	default:
		return false
	}
}

// Timeframes lists the resolutions feeding the short, mid and long encoders, in that order.
func Timeframes() [3]Timeframe { return [3]Timeframe{TF1s, TF1m, TF5m} }

// ParseTimeframe converts a raw string into a supported timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if !IsValidTimeframe(tf) {
		return "", fmt.Errorf("unsupported timeframe %q", s)
	}
	return tf, nil
}
