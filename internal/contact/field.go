package contact

import (
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/lemonad/outbreak-simulation/internal/geometry"
)

// TransmissionField assigns each point its per-contact transmission
// probability. With zero variation every point gets Base.
type TransmissionField struct {
	Base      float64 // Mean probability
	Variation float64 // Relative swing, 0.0 (uniform) to 1.0 (0 to 2×Base)

	noise opensimplex.Noise
}

// NewTransmissionField creates a field whose spatial variation is drawn from
// layered simplex noise seeded by seed.
func NewTransmissionField(base, variation float64, seed int64) *TransmissionField {
	f := &TransmissionField{Base: base, Variation: variation}
	if variation > 0 {
		f.noise = opensimplex.NewNormalized(seed)
	}
	return f
}

// At returns the transmission probability at p, clamped to [0, 1].
func (f *TransmissionField) At(p geometry.Point) float64 {
	rate := f.Base
	if f.noise != nil {
		// Normalized noise is in [0, 1]; recentre to [-1, 1].
		n := octaveNoise(f.noise, float64(p.X), float64(p.Y), 3, 0.08, 0.5)*2 - 1
		rate *= 1 + f.Variation*n
	}
	if rate < 0 {
		return 0
	}
	if rate > 1 {
		return 1
	}
	return rate
}

// octaveNoise layers frequencies of the same noise for smoother variation.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
