package math

import "math"

// Mat4 is a 4x4 matrix in column-major order.
// Layout: [m0 m4 m8  m12]
//
//	[m1 m5 m9  m13]
//	[m2 m6 m10 m14]
//	[m3 m7 m11 m15]
type Mat4 [16]float32

// Identity returns an identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translate returns a translation matrix.
func Translate(x, y, z float32) Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		x, y, z, 1,
	}
}

// Scale returns a scale matrix.
func Scale(x, y, z float32) Mat4 {
	return Mat4{
		x, 0, 0, 0,
		0, y, 0, 0,
		0, 0, z, 0,
		0, 0, 0, 1,
	}
}

// RotateAxis creates a rotation matrix around an arbitrary axis.
// axis should be normalized, angle is in radians.
func RotateAxis(axis [3]float32, angle float32) Mat4 {
	c := float32(math.Cos(float64(angle)))
	s := float32(math.Sin(float64(angle)))
	t := 1 - c

	x, y, z := axis[0], axis[1], axis[2]

	return Mat4{
		t*x*x + c, t*x*y + s*z, t*x*z - s*y, 0,
		t*x*y - s*z, t*y*y + c, t*y*z + s*x, 0,
		t*x*z + s*y, t*y*z - s*x, t*z*z + c, 0,
		0, 0, 0, 1,
	}
}

// FromMat3x3 creates a Mat4 from a column-major 3x3 matrix.
func FromMat3x3(m3 [9]float32) Mat4 {
	return Mat4{
		m3[0], m3[1], m3[2], 0,
		m3[3], m3[4], m3[5], 0,
		m3[6], m3[7], m3[8], 0,
		0, 0, 0, 1,
	}
}

// FromFloat64 narrows a column-major float64 matrix.
func FromFloat64(m [16]float64) Mat4 {
	var r Mat4
	for i, v := range m {
		r[i] = float32(v)
	}
	return r
}

// Compose builds T * R * S.
func Compose(t Vec3, r Quat, s Vec3) Mat4 {
	return Translate(t.X, t.Y, t.Z).Mul(r.ToMat4()).Mul(Scale(s.X, s.Y, s.Z))
}

// Mul multiplies this matrix by another (m * other).
func (m Mat4) Mul(other Mat4) Mat4 {
	var result Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			result[col*4+row] =
				m[0*4+row]*other[col*4+0] +
					m[1*4+row]*other[col*4+1] +
					m[2*4+row]*other[col*4+2] +
					m[3*4+row]*other[col*4+3]
		}
	}
	return result
}

// TransformPoint transforms a 3D point by this matrix (assumes w=1).
func (m Mat4) TransformPoint(p [3]float32) [3]float32 {
	x := m[0]*p[0] + m[4]*p[1] + m[8]*p[2] + m[12]
	y := m[1]*p[0] + m[5]*p[1] + m[9]*p[2] + m[13]
	z := m[2]*p[0] + m[6]*p[1] + m[10]*p[2] + m[14]
	w := m[3]*p[0] + m[7]*p[1] + m[11]*p[2] + m[15]
	if w != 0 && w != 1 {
		return [3]float32{x / w, y / w, z / w}
	}
	return [3]float32{x, y, z}
}

// Translation returns the translation column.
func (m Mat4) Translation() Vec3 {
	return Vec3{m[12], m[13], m[14]}
}

// ScaleFactors returns the length of each basis column.
func (m Mat4) ScaleFactors() Vec3 {
	return Vec3{
		Vec3{m[0], m[1], m[2]}.Length(),
		Vec3{m[4], m[5], m[6]}.Length(),
		Vec3{m[8], m[9], m[10]}.Length(),
	}
}

// Rotation returns the upper 3x3 with scale removed. A mirrored basis is
// flipped back to a proper rotation.
func (m Mat4) Rotation() Mat4 {
	s := m.ScaleFactors()
	r := Identity()
	cols := [3]float32{s.X, s.Y, s.Z}
	for c := 0; c < 3; c++ {
		if cols[c] == 0 {
			continue
		}
		for row := 0; row < 3; row++ {
			r[c*4+row] = m[c*4+row] / cols[c]
		}
	}
	if r.det3() < 0 {
		for i := 0; i < 3; i++ {
			r[i*4+0], r[i*4+1], r[i*4+2] = -r[i*4+0], -r[i*4+1], -r[i*4+2]
		}
	}
	return r
}

// EulerXYZ returns the XYZ Euler angles (radians) of the rotation part,
// matching the decomposition R = Rz * Ry * Rx.
func (m Mat4) EulerXYZ() Vec3 {
	r := m.Rotation()
	cy := math.Hypot(float64(r[0]), float64(r[1]))
	if cy > 16*1.1920929e-07 {
		return Vec3{
			X: float32(math.Atan2(float64(r[6]), float64(r[10]))),
			Y: float32(math.Atan2(float64(-r[2]), cy)),
			Z: float32(math.Atan2(float64(r[1]), float64(r[0]))),
		}
	}
	// Gimbal lock: Z folds into X.
	return Vec3{
		X: float32(math.Atan2(float64(-r[9]), float64(r[5]))),
		Y: float32(math.Atan2(float64(-r[2]), cy)),
		Z: 0,
	}
}

// Decompose splits the matrix into translation, Euler XYZ rotation (radians)
// and scale.
func (m Mat4) Decompose() (t Vec3, euler Vec3, s Vec3) {
	return m.Translation(), m.EulerXYZ(), m.ScaleFactors()
}

func (m Mat4) det3() float32 {
	return m[0]*(m[5]*m[10]-m[9]*m[6]) -
		m[4]*(m[1]*m[10]-m[9]*m[2]) +
		m[8]*(m[1]*m[6]-m[5]*m[2])
}
