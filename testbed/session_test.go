package testbed

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/prism/engine/math"
)

func TestNewTriangleSessionStartsWithinOneTurn(t *testing.T) {
	for i := 0; i < 20; i++ {
		s := NewTriangleSession()
		assert.GreaterOrEqual(t, s.angle, float32(0))
		assert.Less(t, s.angle, math.TwoPi)
	}
}
