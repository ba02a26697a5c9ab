package repository

import (
	"context"

	"AstraMind/internal/domain/models"
)

// FeatureStore reads the OHLCV candles behind the encoder windows.
// Candles come back oldest first; fewer than n means the history is short.
type FeatureStore interface {
	GetLatestNCandles(ctx context.Context, symbol string, n int, tf Timeframe) ([]models.Candle, error)
}
