package testutil

import (
	"math"
	"math/rand"
	"sync"

	"github.com/hupe1980/histostore/ndarray"
)

// FitRecord is the record layout of one toy fit.
type FitRecord struct {
	Mu     float64 `rec:"mu"`
	MuErr  float64 `rec:"mu_err"`
	NLL    float64 `rec:"nll"`
	Status int32   `rec:"status"`
	Shard  int32   `rec:"shard"`
	Index  int64   `rec:"index"`
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// UniformBins returns equally spaced edges over [lo, hi] for each axis,
// with cells[i] cells on axis i.
func UniformBins(cells []int, lo, hi float64) [][]float64 {
	bins := make([][]float64, len(cells))
	for i, n := range cells {
		edges := make([]float64, n+1)
		width := (hi - lo) / float64(n)
		for j := range edges {
			edges[j] = lo + float64(j)*width
		}
		edges[n] = hi
		bins[i] = edges
	}
	return bins
}

// Histogram returns a histogram shaped for bins whose cells hold Poisson
// counts with the given mean.
func (r *RNG) Histogram(bins [][]float64, mean float64) *ndarray.Array {
	shape := make([]int, len(bins))
	for i, edges := range bins {
		shape[i] = len(edges) - 1
	}
	h := ndarray.Zeros(shape...)

	r.mu.Lock()
	defer r.mu.Unlock()
	data := h.Data()
	for i := range data {
		data[i] = float64(r.poisson(mean))
	}
	return h
}

// poisson draws from a Poisson distribution, using Knuth's method for small
// means and a rounded normal approximation otherwise. r.mu must be held.
func (r *RNG) poisson(mean float64) int {
	if mean <= 0 {
		return 0
	}
	if mean > 30 {
		v := math.Round(mean + math.Sqrt(mean)*r.rand.NormFloat64())
		return max(int(v), 0)
	}
	limit := math.Exp(-mean)
	k, p := 0, 1.0
	for {
		p *= r.rand.Float64()
		if p <= limit {
			return k
		}
		k++
	}
}

// FitRecords returns n toy fits for shard. Index runs from 0 to n-1 and
// about one fit in fifty has a non-zero status.
func (r *RNG) FitRecords(shard, n int) []FitRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]FitRecord, n)
	for i := range out {
		mu := 1 + 0.2*r.rand.NormFloat64()
		var status int32
		if r.rand.Intn(50) == 0 {
			status = int32(1 + r.rand.Intn(3))
		}
		out[i] = FitRecord{
			Mu:     mu,
			MuErr:  0.2 * (1 + 0.05*r.rand.NormFloat64()),
			NLL:    -math.Log(r.rand.Float64() + 1e-12),
			Status: status,
			Shard:  int32(shard),
			Index:  int64(i),
		}
	}
	return out
}
