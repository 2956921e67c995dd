package features

import (
	"math"
	"time"

	"RegimeAPI/internal/domain/models"
)

// ComputeLogReturns computes log returns r_t = ln(C_t / C_{t-1}).
// It returns a slice of length len(bars)-1, or nil if insufficient data.
func ComputeLogReturns(bars []models.Bar) []float64 {
	if len(bars) < 2 {
		return nil
	}
	out := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		cur := bars[i].Close
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// ComputeRanges computes the intrabar range (H_t - L_t) / C_t for t >= 1, aligned with ComputeLogReturns.
func ComputeRanges(bars []models.Bar) []float64 {
	if len(bars) < 2 {
		return nil
	}
	out := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		b := bars[i]
		if b.Close <= 0 || b.High < b.Low {
			out = append(out, 0)
			continue
		}
		out = append(out, (b.High-b.Low)/b.Close)
	}
	return out
}

// Observations builds the model input matrix, one row per bar after the first.
func Observations(bars []models.Bar, set models.FeatureSet) [][]float64 {
	rets := ComputeLogReturns(bars)
	if rets == nil {
		return nil
	}
	var ranges []float64
	if set == models.FeaturesReturnsRange {
		ranges = ComputeRanges(bars)
	}
	obs := make([][]float64, len(rets))
	for t, r := range rets {
		row := make([]float64, 0, set.Dims())
		row = append(row, r)
		if ranges != nil {
			row = append(row, ranges[t])
		}
		obs[t] = row
	}
	return obs
}

// AnnualizedVolatility converts a per-bar return variance to annualized sigma.
func AnnualizedVolatility(variance, barsPerYear float64) float64 {
	if variance <= 0 || barsPerYear <= 0 {
		return 0
	}
	return math.Sqrt(variance * barsPerYear)
}

// RealizedVolatility computes annualized realized volatility over the trailing window
// using the provided number of bars per year. Returns the latest window sigma.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	sum := 0.0
	sum2 := 0.0
	for i := len(logReturns) - window; i < len(logReturns); i++ {
		r := logReturns[i]
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return AnnualizedVolatility(variance, barsPerYear)
}

// AlignFromTo rounds a time range to bar boundaries for intraday granularities.
// Daily and coarser ranges are truncated to midnight UTC.
func AlignFromTo(from, to time.Time, g models.Granularity) (time.Time, time.Time) {
	if g.Intraday() {
		d := g.Duration()
		return from.Truncate(d), to.Truncate(d)
	}
	day := func(t time.Time) time.Time {
		t = t.UTC()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return day(from), day(to)
}
