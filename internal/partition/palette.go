package partition

import "image/color"

// Leaves are tinted from two sequential colour ramps, alternating by
// traversal parity, so neighbouring regions are easy to tell apart.
var (
	coolPalette = ramp(256,
		0xf7fcf0, 0xe0f3db, 0xccebc5, 0xa8ddb5, 0x7bccc4,
		0x4eb3d3, 0x2b8cbe, 0x0868ac, 0x084081,
	)
	warmPalette = ramp(256,
		0xffffcc, 0xffeda0, 0xfed976, 0xfeb24c, 0xfd8d3c,
		0xfc4e2a, 0xe31a1c, 0xbd0026, 0x800026,
	)
)

// ramp linearly interpolates n colours through the given 0xRRGGBB stops.
func ramp(n int, stops ...uint32) []color.RGBA {
	out := make([]color.RGBA, n)
	segments := float64(len(stops) - 1)
	for i := range out {
		pos := float64(i) / float64(n-1) * segments
		lo := int(pos)
		if lo >= len(stops)-1 {
			lo = len(stops) - 2
		}
		frac := pos - float64(lo)
		a, b := stops[lo], stops[lo+1]
		out[i] = color.RGBA{
			R: lerp(uint8(a>>16), uint8(b>>16), frac),
			G: lerp(uint8(a>>8), uint8(b>>8), frac),
			B: lerp(uint8(a), uint8(b), frac),
			A: 0xff,
		}
	}
	return out
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
}
