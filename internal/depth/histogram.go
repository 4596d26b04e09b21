package depth

import "gonum.org/v1/gonum/floats"

// MaxDepth is the default number of histogram bins, one per millimetre of range.
const MaxDepth = 10000

// intensityScale is the upper end of the display intensity range.
const intensityScale = 256

// Histogram maps raw depth values to display intensities using the cumulative
// distribution of depths in the most recent frame. Nearer depths map to
// brighter intensities.
//
// Bin 0 holds the invalid "no return" depth. It is never rescaled and is not
// an intensity; use Intensity to read bins.
type Histogram struct {
	bins   []float64
	points int
}

// NewHistogram creates a histogram with the given number of bins.
// Sizes less than 1 fall back to MaxDepth.
func NewHistogram(size int) *Histogram {
	if size < 1 {
		size = MaxDepth
	}
	return &Histogram{bins: make([]float64, size)}
}

// Size returns the number of bins.
func (h *Histogram) Size() int {
	return len(h.bins)
}

// Bins returns the underlying bins. The slice is overwritten by the next Calculate.
func (h *Histogram) Bins() []float64 {
	return h.bins
}

// Points returns the number of valid samples counted by the last Calculate.
func (h *Histogram) Points() int {
	return h.points
}

// Calculate rebuilds the histogram from a frame and returns the number of
// valid (nonzero, in-range) samples.
//
// Algorithm:
// 1. Zero all bins
// 2. Count every nonzero sample into its bin, skipping row padding
// 3. Convert counts into a cumulative sum
// 4. If any samples were counted, rescale bins 1..N-1 to 256*(1 - cum/points)
//
// With no valid samples the bins are left as cumulative counts, which are all zero.
// Samples at or beyond the bin count are treated as invalid.
func (h *Histogram) Calculate(f *Frame) int {
	for i := range h.bins {
		h.bins[i] = 0
	}
	h.points = 0

	size := len(h.bins)
	rowSamples := f.RowSamples()

	for y := 0; y < f.Height; y++ {
		row := f.Data[y*rowSamples : y*rowSamples+f.Width]
		for _, d := range row {
			if d == 0 || int(d) >= size {
				continue
			}
			h.bins[d]++
			h.points++
		}
	}

	floats.CumSum(h.bins, h.bins)

	if h.points > 0 {
		n := float64(h.points)
		for i := 1; i < size; i++ {
			h.bins[i] = intensityScale * (1.0 - h.bins[i]/n)
		}
	}

	return h.points
}

// Intensity returns the display intensity for a depth value. Invalid depths
// (0 or outside the histogram) are 0.
func (h *Histogram) Intensity(d uint16) float64 {
	if d == 0 || int(d) >= len(h.bins) {
		return 0
	}
	return h.bins[d]
}
