package features

import (
	"math"

	"AstraMind/internal/domain/models"
	"AstraMind/pkg/tensor"

	"github.com/markcheno/go-talib"
)

const (
	// Width is the number of features per time step.
	Width = 20
	// MinCandles covers the longest indicator warm-up (MACD 26+9).
	MinCandles = 40
)

// Names lists the feature columns in window order.
var Names = [Width]string{
	"log_return", "range", "body", "upper_wick", "lower_wick",
	"log_volume", "volume_change", "realized_vol", "rsi", "ema12_gap",
	"ema26_gap", "macd_hist", "atr", "bb_pct_b", "bb_width",
	"sma20_gap", "roc", "momentum", "stoch_k", "williams_r",
}

// BuildWindow turns ascending OHLCV candles into a [T][Width] window, T = len(candles).
// Indicator warm-up positions are zero.
func BuildWindow(candles []models.Candle) ([][]float64, error) {
	n := len(candles)
	if n < MinCandles {
		return nil, tensor.Shapef("features.BuildWindow", "need at least %d candles, got %d", MinCandles, n)
	}

	opens := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i, c := range candles {
		opens[i], highs[i], lows[i], closes[i], volumes[i] = c.Open, c.High, c.Low, c.Close, c.Volume
	}

	logRet := make([]float64, n)
	copy(logRet[1:], ComputeLogReturns(candles))

	realVol := talib.StdDev(logRet, 10, 1)
	rsi := talib.Rsi(closes, 14)
	ema12 := talib.Ema(closes, 12)
	ema26 := talib.Ema(closes, 26)
	_, _, macdHist := talib.Macd(closes, 12, 26, 9)
	atr := talib.Atr(highs, lows, closes, 14)
	upper, middle, lower := talib.BBands(closes, 20, 2, 2, talib.SMA)
	sma20 := talib.Sma(closes, 20)
	roc := talib.Roc(closes, 10)
	mom := talib.Mom(closes, 10)
	stochK, _ := talib.Stoch(highs, lows, closes, 14, 3, talib.SMA, 3, talib.SMA)
	willR := talib.WillR(highs, lows, closes, 14)

	out := make([][]float64, n)
	for t := 0; t < n; t++ {
		o, h, l, c, v := opens[t], highs[t], lows[t], closes[t], volumes[t]
		row := make([]float64, Width)
		row[0] = logRet[t]
		row[1] = ratio(h-l, c)
		row[2] = ratio(c-o, o)
		row[3] = ratio(h-math.Max(o, c), c)
		row[4] = ratio(math.Min(o, c)-l, c)
		row[5] = math.Log1p(math.Max(v, 0))
		if t > 0 {
			row[6] = math.Log1p(math.Max(v, 0)) - math.Log1p(math.Max(volumes[t-1], 0))
		}
		row[7] = realVol[t]
		if rsi[t] != 0 {
			row[8] = rsi[t]/100 - 0.5
		}
		row[9] = gap(c, ema12[t])
		row[10] = gap(c, ema26[t])
		row[11] = ratio(macdHist[t], c)
		row[12] = ratio(atr[t], c)
		if w := upper[t] - lower[t]; w > 0 {
			row[13] = (c-lower[t])/w - 0.5
			row[14] = ratio(w, middle[t])
		}
		row[15] = gap(c, sma20[t])
		row[16] = roc[t] / 100
		row[17] = ratio(mom[t], c)
		if stochK[t] != 0 {
			row[18] = stochK[t]/100 - 0.5
		}
		if willR[t] != 0 {
			row[19] = willR[t]/100 + 0.5
		}
		sanitize(row)
		out[t] = row
	}
	return out, nil
}

// ComputeLogReturns computes log returns r_t = ln(C_t / C_{t-1}).
// It returns a slice of length len(candles)-1, or nil if insufficient data.
func ComputeLogReturns(candles []models.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		cur := candles[i].Close
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// LatestLogReturn returns the most recent log return, or false with fewer than two candles.
func LatestLogReturn(candles []models.Candle) (float64, bool) {
	n := len(candles)
	if n < 2 {
		return 0, false
	}
	r := ComputeLogReturns(candles[n-2:])
	return r[0], true
}

// gap is x/ref - 1, or 0 while ref is still warming up.
func gap(x, ref float64) float64 {
	if ref == 0 {
		return 0
	}
	return x/ref - 1
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func sanitize(row []float64) {
	for i, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			row[i] = 0
		}
	}
}
