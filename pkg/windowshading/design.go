package windowshading

import (
	"math/rand/v2"
)

// A design of n windows has 2n alleles: alleles[i] is the shading device of
// window i and alleles[n+i] its overhang.

// RandomDesign draws a design that satisfies the overhang constraint: an
// overhang is only placed on a window that carries a device.
func RandomDesign(r *rand.Rand, windows int) []bool {
	alleles := make([]bool, 2*windows)
	for i := 0; i < windows; i++ {
		alleles[i] = r.IntN(2) == 1
		if alleles[i] {
			alleles[windows+i] = r.IntN(2) == 1
		}
	}
	return alleles
}

// ShadedWindows counts the windows of a design that carry a shading device.
func ShadedWindows(alleles []bool) int {
	n := 0
	for _, device := range alleles[:len(alleles)/2] {
		if device {
			n++
		}
	}
	return n
}
