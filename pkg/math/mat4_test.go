package math

import (
	"math"
	"testing"
)

func TestIdentity(t *testing.T) {
	m := Identity()
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Error("Identity diagonal should be 1")
	}
	if m[1] != 0 || m[4] != 0 {
		t.Error("Identity off-diagonal should be 0")
	}
}

func TestMulIdentity(t *testing.T) {
	m := Translate(1, 2, 3)
	result := m.Mul(Identity())

	for i := 0; i < 16; i++ {
		if result[i] != m[i] {
			t.Errorf("M * I should equal M, element %d: got %f, want %f", i, result[i], m[i])
		}
	}
}

func TestTransformPoint(t *testing.T) {
	m := Translate(10, 20, 30)
	result := m.TransformPoint(Vec3{1, 2, 3})

	expected := Vec3{11, 22, 33}
	if result != expected {
		t.Errorf("TransformPoint: got %v, want %v", result, expected)
	}
}

func TestTransformDirectionIgnoresTranslation(t *testing.T) {
	m := Translate(10, 20, 30)
	result := m.TransformDirection(Vec3{1, 0, 0})

	if result != (Vec3{1, 0, 0}) {
		t.Errorf("TransformDirection should ignore translation, got %v", result)
	}
}

func TestRotateZ90(t *testing.T) {
	m := RotateZ(float32(math.Pi / 2))
	result := m.TransformPoint(Vec3{1, 0, 0})

	// After 90 degree Z rotation, (1,0,0) becomes (0,1,0).
	if abs(result.X) > 0.001 || abs(result.Y-1) > 0.001 || abs(result.Z) > 0.001 {
		t.Errorf("RotateZ 90: got %v, want (0, 1, 0)", result)
	}
}

func TestTranslationAndRotationSplit(t *testing.T) {
	m := Translate(5, 6, 7).Mul(RotateZ(float32(math.Pi / 2)))

	trans := m.Translation()
	if trans != (Vec3{5, 6, 7}) {
		t.Errorf("Translation: got %v, want (5, 6, 7)", trans)
	}

	rot := m.Rotation()
	if rot.Translation() != (Vec3{}) {
		t.Errorf("Rotation should have zero translation, got %v", rot.Translation())
	}
	p := rot.TransformPoint(Vec3{1, 0, 0})
	if abs(p.X) > 0.001 || abs(p.Y-1) > 0.001 {
		t.Errorf("Rotation lost the rotational part: got %v", p)
	}
}

func TestWithTranslation(t *testing.T) {
	m := Identity().WithTranslation(Vec3{1, 2, 3})
	if m.Translation() != (Vec3{1, 2, 3}) {
		t.Errorf("WithTranslation: got %v", m.Translation())
	}
}

func TestInverseRoundTrip(t *testing.T) {
	m := Translate(3, -2, 8).Mul(RotateZ(0.7)).Mul(RotateX(-0.3))
	inv := m.Inverse()
	result := m.Mul(inv)

	id := Identity()
	for i := 0; i < 16; i++ {
		if abs(result[i]-id[i]) > 1e-5 {
			t.Fatalf("M * M^-1 should be identity, element %d: got %f", i, result[i])
		}
	}
}

func TestInverseSingular(t *testing.T) {
	var m Mat4 // all zeros, singular
	inv := m.Inverse()
	if inv != Identity() {
		t.Error("Inverse of singular matrix should be identity")
	}
}

func TestPerspective(t *testing.T) {
	m := Perspective(float32(math.Pi/4), 1.0, 0.1, 100.0)

	if m[0] == 0 || m[5] == 0 {
		t.Error("Perspective should have non-zero elements")
	}
	if m[11] != -1 {
		t.Errorf("Perspective [11] should be -1, got %f", m[11])
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
