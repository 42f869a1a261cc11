package silence

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// adaptiveThreshold is pipeline stage 2. It computes the 20th-percentile
// noise floor and 80th-percentile signal level of the frame dBFS array
// (gonum.org/v1/gonum/stat.Quantile with LinInterp: linear interpolation
// between order statistics, placing the k-th of n sorted values at p = k/n,
// which differs from numpy.percentile's default) and blends them with the
// user threshold: if the dynamic range is too small to be informative the
// user threshold wins outright; otherwise the adaptive value is taken but
// never allowed below the user's own threshold.
func adaptiveThreshold(dbfs []float64, userThresholdDB float64) float64 {
	if len(dbfs) == 0 {
		return userThresholdDB
	}

	sorted := make([]float64, len(dbfs))
	copy(sorted, dbfs)
	sort.Float64s(sorted)

	noiseFloor := stat.Quantile(0.20, stat.LinInterp, sorted, nil)
	signalLevel := stat.Quantile(0.80, stat.LinInterp, sorted, nil)

	dynamicRange := signalLevel - noiseFloor
	if dynamicRange < 10 {
		return userThresholdDB
	}

	adaptive := noiseFloor + 0.25*dynamicRange

	return max(adaptive, userThresholdDB)
}
