package math

import (
	m "math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const epsilon = 1e-6

func TestDegRadRoundTrip(t *testing.T) {
	assert.InDelta(t, Pi, DegToRad(180), epsilon)
	assert.InDelta(t, float64(90), float64(RadToDeg(HalfPi)), epsilon)
	assert.InDelta(t, float64(45), float64(RadToDeg(DegToRad(45))), epsilon)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 5, Clamp(7, 0, 5))
	assert.Equal(t, 0, Clamp(-3, 0, 5))
	assert.Equal(t, 3, Clamp(3, 0, 5))
	assert.Equal(t, float32(1.5), Clamp(float32(1.5), 1.0, 2.0))
}

func TestVec3Operations(t *testing.T) {
	a := Vec3{X: 1, Y: 0, Z: 0}
	b := Vec3{X: 0, Y: 1, Z: 0}

	assert.Equal(t, Vec3{X: 1, Y: 1, Z: 0}, a.Add(b))
	assert.Equal(t, Vec3{X: 1, Y: -1, Z: 0}, a.Sub(b))
	assert.InDelta(t, 0, float64(a.Dot(b)), epsilon)
	assert.Equal(t, Vec3{X: 0, Y: 0, Z: 1}, a.Cross(b))

	v := Vec3{X: 3, Y: 4, Z: 0}
	assert.InDelta(t, 5, float64(v.Length()), epsilon)
	assert.InDelta(t, 1, float64(v.Normalized().Length()), epsilon)

	zero := Vec3{}
	assert.Equal(t, zero, zero.Normalized())
}

func TestMat4IdentityIsMulNeutral(t *testing.T) {
	rot := NewMat4EulerZ(0.7)
	assert.Equal(t, rot, rot.Mul(NewMat4Identity()))
	assert.Equal(t, rot, NewMat4Identity().Mul(rot))
}

func TestMat4EulerZRotation(t *testing.T) {
	rot := NewMat4EulerZ(HalfPi)
	c := float32(m.Cos(float64(HalfPi)))
	s := float32(m.Sin(float64(HalfPi)))
	assert.InDelta(t, float64(c), float64(rot.Data[0]), epsilon)
	assert.InDelta(t, float64(s), float64(rot.Data[1]), epsilon)
	assert.InDelta(t, float64(-s), float64(rot.Data[4]), epsilon)
	assert.InDelta(t, float64(c), float64(rot.Data[5]), epsilon)
}

func TestMat4Bytes(t *testing.T) {
	id := NewMat4Identity()
	raw := id.Bytes()
	assert.Len(t, raw, 64)
	// 1.0 little-endian float32
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, raw[0:4])
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00}, raw[4:8])
}

func TestRandomRangeStaysWithinBounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		v := RandomRange(-2, 3)
		assert.GreaterOrEqual(t, v, float32(-2))
		assert.Less(t, v, float32(3))
	}
}
