package math

import (
	"math"
	"testing"
)

var (
	xAxis = [3]float32{1, 0, 0}
	yAxis = [3]float32{0, 1, 0}
	zAxis = [3]float32{0, 0, 1}
)

func TestIdentity(t *testing.T) {
	m := Identity()
	// Diagonal should be 1
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Error("Identity diagonal should be 1")
	}
	// Off-diagonal should be 0
	if m[1] != 0 || m[4] != 0 {
		t.Error("Identity off-diagonal should be 0")
	}
}

func TestMulIdentity(t *testing.T) {
	m := Translate(1, 2, 3)
	id := Identity()
	result := m.Mul(id)

	for i := 0; i < 16; i++ {
		if result[i] != m[i] {
			t.Errorf("M * I should equal M, element %d: got %f, want %f", i, result[i], m[i])
		}
	}
}

func TestTranslate(t *testing.T) {
	m := Translate(5, 10, 15)

	// Translation should be in column 4 (indices 12, 13, 14)
	if m[12] != 5 || m[13] != 10 || m[14] != 15 {
		t.Errorf("Translate: got (%f, %f, %f), want (5, 10, 15)", m[12], m[13], m[14])
	}
}

func TestScale(t *testing.T) {
	m := Scale(2, 3, 4)

	if m[0] != 2 || m[5] != 3 || m[10] != 4 {
		t.Errorf("Scale diagonal: got (%f, %f, %f), want (2, 3, 4)", m[0], m[5], m[10])
	}
}

func TestTransformPoint(t *testing.T) {
	// Translate by (10, 20, 30)
	m := Translate(10, 20, 30)
	p := [3]float32{1, 2, 3}
	result := m.TransformPoint(p)

	expected := [3]float32{11, 22, 33}
	if result != expected {
		t.Errorf("TransformPoint: got %v, want %v", result, expected)
	}
}

func TestTransformPointScale(t *testing.T) {
	m := Scale(2, 2, 2)
	p := [3]float32{1, 2, 3}
	result := m.TransformPoint(p)

	expected := [3]float32{2, 4, 6}
	if result != expected {
		t.Errorf("TransformPoint with scale: got %v, want %v", result, expected)
	}
}

func TestRotateAxisY90(t *testing.T) {
	m := RotateAxis(yAxis, float32(math.Pi / 2)) // 90 degrees
	p := [3]float32{1, 0, 0}           // Point on X axis
	result := m.TransformPoint(p)

	// After 90 degree Y rotation, (1,0,0) should become approximately (0,0,-1)
	if abs(result[0]) > 0.001 || abs(result[1]) > 0.001 || abs(result[2]+1) > 0.001 {
		t.Errorf("RotateAxis Y 90: got %v, want (0, 0, -1)", result)
	}
}

func TestFromMat3x3(t *testing.T) {
	m3 := [9]float32{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}
	m4 := FromMat3x3(m3)

	// Check that 3x3 portion is preserved
	if m4[0] != 1 || m4[1] != 2 || m4[2] != 3 {
		t.Error("FromMat3x3 column 0 incorrect")
	}
	if m4[4] != 4 || m4[5] != 5 || m4[6] != 6 {
		t.Error("FromMat3x3 column 1 incorrect")
	}
	// Element [15] should be 1
	if m4[15] != 1 {
		t.Errorf("FromMat3x3 [15] should be 1, got %f", m4[15])
	}
}

func TestComposeDecompose(t *testing.T) {
	rot := QuatFromAxisAngle(Vec3{X: 0, Y: 0, Z: 1}, float32(math.Pi/2))
	m := Compose(Vec3{X: 1, Y: 2, Z: 3}, rot, Vec3{X: 2, Y: 3, Z: 4})

	pos, euler, scale := m.Decompose()
	if pos != (Vec3{X: 1, Y: 2, Z: 3}) {
		t.Errorf("translation: got %+v", pos)
	}
	if abs(scale.X-2) > 1e-5 || abs(scale.Y-3) > 1e-5 || abs(scale.Z-4) > 1e-5 {
		t.Errorf("scale: got %+v, want (2, 3, 4)", scale)
	}
	deg := euler.Degrees()
	if abs(deg.X) > 1e-3 || abs(deg.Y) > 1e-3 || abs(deg.Z-90) > 1e-3 {
		t.Errorf("rotation: got %+v degrees, want (0, 0, 90)", deg)
	}
}

func TestEulerXYZOrder(t *testing.T) {
	x, y, z := float32(0.3), float32(-0.4), float32(1.1)
	m := RotateAxis(zAxis, z).Mul(RotateAxis(yAxis, y)).Mul(RotateAxis(xAxis, x))

	e := m.EulerXYZ()
	if abs(e.X-x) > 1e-5 || abs(e.Y-y) > 1e-5 || abs(e.Z-z) > 1e-5 {
		t.Errorf("EulerXYZ: got %+v, want (%f, %f, %f)", e, x, y, z)
	}
}

func TestEulerXYZGimbalLock(t *testing.T) {
	m := RotateAxis(yAxis, float32(math.Pi / 2)).Mul(RotateAxis(xAxis, 0.5))

	e := m.EulerXYZ()
	if abs(e.Y-float32(math.Pi/2)) > 1e-3 {
		t.Errorf("Y: got %f, want pi/2", e.Y)
	}
	if e.Z != 0 {
		t.Errorf("Z should fold into X at gimbal lock, got %f", e.Z)
	}
	if abs(e.X-0.5) > 1e-3 {
		t.Errorf("X: got %f, want 0.5", e.X)
	}
}

func TestRotationRemovesMirror(t *testing.T) {
	m := Scale(-1, 1, 1)
	if d := m.Rotation().det3(); d < 0 {
		t.Errorf("rotation determinant should be positive, got %f", d)
	}
}

func TestFromFloat64(t *testing.T) {
	var src [16]float64
	src[0], src[5], src[10], src[15], src[12] = 1, 1, 1, 1, 7.5
	m := FromFloat64(src)
	if m.Translation().X != 7.5 {
		t.Errorf("translation X: got %f, want 7.5", m.Translation().X)
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
