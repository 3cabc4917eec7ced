package version

import (
	"errors"
	"testing"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.2.3", "1.2.3", 0},
		{"1.10.0", "1.9.9", 1},
		{"v2.0", "2.0.0", 0},
		{"1.2", "1.2.0", 0},
		{"0.9", "1.0", -1},
		{"2.0.1", "2.0", 1},
		{"v1.4.2", "v1.4.10", -1},
		{"10.0", "9.9.9", 1},
		{"1", "1.0.0", 0},
		{"1.2.3.4", "1.2.3", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			got, err := Compare(tt.a, tt.b)
			if err != nil {
				t.Fatalf("Compare(%q, %q) failed: %v", tt.a, tt.b, err)
			}
			if got != tt.want {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCompareSymmetry(t *testing.T) {
	a, b := "1.4.2", "1.5"

	forward, err := Compare(a, b)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	backward, err := Compare(b, a)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}

	if forward != -backward {
		t.Errorf("Compare(%q,%q)=%d but Compare(%q,%q)=%d", a, b, forward, b, a, backward)
	}
}

func TestCompareInvalid(t *testing.T) {
	invalid := []string{
		"",
		"V2.0",
		"1.2.3-beta",
		"1.2.3+build7",
		"1.x.3",
		"one.two",
		"1..2",
		"1.2.",
		"v",
		"1.2rc1",
	}

	for _, s := range invalid {
		t.Run("invalid_"+s, func(t *testing.T) {
			if _, err := Compare(s, "1.0"); !errors.Is(err, ErrInvalid) {
				t.Errorf("Compare(%q, ...) error = %v, want ErrInvalid", s, err)
			}
			if _, err := Compare("1.0", s); !errors.Is(err, ErrInvalid) {
				t.Errorf("Compare(..., %q) error = %v, want ErrInvalid", s, err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	for _, s := range []string{"1", "1.2", "v1.2.3", "0.0.1", "10.20.30.40"} {
		if err := Validate(s); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", s, err)
		}
	}
	for _, s := range []string{"", "V1.0", "1.2.3-rc1", "nightly"} {
		if !errors.Is(Validate(s), ErrInvalid) {
			t.Errorf("Validate(%q) should wrap ErrInvalid", s)
		}
	}
}

func TestNewer(t *testing.T) {
	tests := []struct {
		remote, local string
		want          bool
	}{
		{"1.5.0", "1.4.9", true},
		{"1.4.9", "1.5.0", false},
		{"v2.0", "2.0.0", false},
		{"2.0.1", "v2.0", true},
	}

	for _, tt := range tests {
		got, err := Newer(tt.remote, tt.local)
		if err != nil {
			t.Fatalf("Newer(%q, %q) failed: %v", tt.remote, tt.local, err)
		}
		if got != tt.want {
			t.Errorf("Newer(%q, %q) = %v, want %v", tt.remote, tt.local, got, tt.want)
		}
	}

	if _, err := Newer("not-a-tag", "1.0"); !errors.Is(err, ErrInvalid) {
		t.Errorf("Newer with malformed remote = %v, want ErrInvalid", err)
	}
}
