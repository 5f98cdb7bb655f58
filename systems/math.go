// Package systems provides the spatial index, neighbor query strategies,
// steering behaviors, and update scheduling for the flocking simulation.
package systems

import "math"

// Vec3 is a float32 3D vector used throughout the hot paths.
// All steering math stays in float32 to match component storage.
type Vec3 struct {
	X, Y, Z float32
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float32 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Cross returns the cross product of v and o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

// LengthSq returns the squared length (avoid sqrt in hot paths).
func (v Vec3) LengthSq() float32 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Length returns the vector length.
func (v Vec3) Length() float32 {
	return sqrtf(v.LengthSq())
}

// IsZero reports whether all components are exactly zero.
func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// Normalized returns v scaled to unit length, or the zero vector if v is zero.
func (v Vec3) Normalized() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// WithLength returns v retargeted to the given length, or the zero vector
// if v is zero.
func (v Vec3) WithLength(l float32) Vec3 {
	return v.Normalized().Scale(l)
}

// ClampLength returns v truncated to at most maxLen.
func (v Vec3) ClampLength(maxLen float32) Vec3 {
	if maxLen <= 0 {
		return Vec3{}
	}
	lsq := v.LengthSq()
	if lsq <= maxLen*maxLen {
		return v
	}
	return v.Scale(maxLen / sqrtf(lsq))
}

// Reflect returns v reflected about the unit normal n.
func (v Vec3) Reflect(n Vec3) Vec3 {
	return v.Sub(n.Scale(2 * v.Dot(n)))
}

// sqrtf is float32 sqrt.
func sqrtf(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}

// floorf is float32 floor.
func floorf(x float32) float32 {
	return float32(math.Floor(float64(x)))
}

// ceilDiv returns ceil(a/b) for positive b.
func ceilDiv(a, b float32) int {
	return int(math.Ceil(float64(a) / float64(b)))
}

// clampFloat clamps a float32 value between min and max.
func clampFloat(v, minVal, maxVal float32) float32 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// clampInt clamps an int value between min and max.
func clampInt(v, minVal, maxVal int) int {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
