package aggregator

import (
	"math"
	"math/big"
	"sort"

	"gonum.org/v1/gonum/stat"

	"oraclewatcher/internal/decimal"
)

// Summary is the recomputed statistics view over a ring buffer's populated
// window (spec §4.7).
type Summary struct {
	MinResult      decimal.Decimal
	MaxResult      decimal.Decimal
	Range          decimal.Decimal
	Mean           float64
	Stdev          float64
	Result         decimal.Decimal
	MinTimestampMs uint64
	MaxTimestampMs uint64
}

// lowerMedianIndex resolves the §9 open question on even-length medians: for
// an even populated count n, the result is the lower of the two middle
// values, i.e. the element at sorted index n/2 - 1.
func lowerMedianIndex(n int) int {
	if n%2 == 1 {
		return n / 2
	}
	return n/2 - 1
}

// computeSummary recomputes the Summary over every populated sample. Mean
// is delegated to gonum/stat, which expects float64 inputs; decimal values
// are converted through big.Float since aggregator statistics are an
// off-chain divergence filter (spec §4.7) and do not need the bit-exact
// precision the canonical hasher does. Standard deviation is population
// stdev (divide by n, not gonum's sample n-1), per spec §4.7 and the
// VarianceExceeded gate that scales it by 1e9.
func computeSummary(samples []sample) Summary {
	values := make([]float64, len(samples))
	sorted := make([]decimal.Decimal, len(samples))
	for i, s := range samples {
		values[i] = decimalToFloat(s.value)
		sorted[i] = s.value
	}

	sort.Slice(sorted, func(i, j int) bool {
		return decimalLess(sorted[i], sorted[j])
	})

	mean := stat.Mean(values, nil)
	stdev := populationStdev(values, mean)

	min := sorted[0]
	max := sorted[len(sorted)-1]
	rng := decimalSub(max, min)
	result := sorted[lowerMedianIndex(len(sorted))]

	minTs, maxTs := samples[0].timestampMs, samples[0].timestampMs
	for _, s := range samples {
		if s.timestampMs < minTs {
			minTs = s.timestampMs
		}
		if s.timestampMs > maxTs {
			maxTs = s.timestampMs
		}
	}

	return Summary{
		MinResult:      min,
		MaxResult:      max,
		Range:          rng,
		Mean:           mean,
		Stdev:          stdev,
		Result:         result,
		MinTimestampMs: minTs,
		MaxTimestampMs: maxTs,
	}
}

// populationStdev computes sqrt(Σ(x-mean)²/n), as opposed to gonum's
// stat.StdDev which divides by n-1 (sample stdev).
func populationStdev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sumSquares float64
	for _, v := range values {
		d := v - mean
		sumSquares += d * d
	}
	return math.Sqrt(sumSquares / float64(len(values)))
}

func decimalToFloat(d decimal.Decimal) float64 {
	f := new(big.Float).SetInt(d.SignedBigInt())
	v, _ := f.Float64()
	return v
}

func decimalLess(a, b decimal.Decimal) bool {
	return a.SignedBigInt().Cmp(b.SignedBigInt()) < 0
}

// decimalSub returns a-b, saturating at zero. Callers always pass the
// sorted window's max and min, so this never actually goes negative; the
// saturation only documents the invariant spec §4.7 calls out.
func decimalSub(a, b decimal.Decimal) decimal.Decimal {
	diff := new(big.Int).Sub(a.SignedBigInt(), b.SignedBigInt())
	if diff.Sign() < 0 {
		diff.SetInt64(0)
	}
	return decimal.MustNew(diff, false)
}
