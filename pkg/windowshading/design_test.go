package windowshading

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomDesignIsFeasible(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for k := 0; k < 100; k++ {
		alleles := RandomDesign(r, 12)
		require.Len(t, alleles, 24)
		for i := 0; i < 12; i++ {
			if alleles[12+i] {
				assert.True(t, alleles[i], "overhang without device on window %d", i)
			}
		}
	}
}

func TestShadedWindows(t *testing.T) {
	assert.Equal(t, 2, ShadedWindows([]bool{true, false, true, false, true, false}))
	assert.Zero(t, ShadedWindows([]bool{false, false, true, true}))
	assert.Zero(t, ShadedWindows(nil))
}
