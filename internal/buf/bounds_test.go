package buf

import (
	"math"
	"testing"
)

func TestAddOverflowSafe(t *testing.T) {
	if sum, ok := AddOverflowSafe(10, 5); !ok || sum != 15 {
		t.Fatalf("AddOverflowSafe(10,5)=%d,%v want 15,true", sum, ok)
	}
	if _, ok := AddOverflowSafe(math.MaxInt, 1); ok {
		t.Fatalf("expected overflow when adding to MaxInt")
	}
	if _, ok := AddOverflowSafe(math.MinInt, -1); ok {
		t.Fatalf("expected underflow when subtracting from MinInt")
	}
}

func TestCheckRange(t *testing.T) {
	tests := []struct {
		name    string
		bufLen  int
		off     int
		size    int
		wantEnd int
		wantErr bool
	}{
		{"fits", 64, 8, 16, 24, false},
		{"exact end", 64, 48, 16, 64, false},
		{"past end", 64, 60, 8, 0, true},
		{"negative offset", 64, -1, 4, 0, true},
		{"negative size", 64, 0, -4, 0, true},
		{"overflow", 64, math.MaxInt, 1, 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			end, err := CheckRange(tc.bufLen, tc.off, tc.size)
			if (err != nil) != tc.wantErr {
				t.Fatalf("CheckRange err=%v wantErr=%v", err, tc.wantErr)
			}
			if !tc.wantErr && end != tc.wantEnd {
				t.Fatalf("CheckRange end=%d want %d", end, tc.wantEnd)
			}
		})
	}
}

func TestSliceAndHas(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4}
	if got, ok := Slice(data, 1, 3); !ok || len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("Slice returned unexpected result: %v, %v", got, ok)
	}
	if _, ok := Slice(data, 4, 2); ok {
		t.Fatalf("Slice should fail when extending beyond len")
	}
	if Has(data, 2, 4) {
		t.Fatalf("Has should be false for out-of-bounds range")
	}
	if !Has(data, 2, 1) {
		t.Fatalf("Has should be true for valid range")
	}
	if _, ok := Slice(data, -1, 1); ok {
		t.Fatalf("Slice should reject negative offset")
	}
}

func TestCString(t *testing.T) {
	data := []byte("clocks\x00reg\x00tail")
	s, next, ok := CString(data, 0)
	if !ok || s != "clocks" || next != 7 {
		t.Fatalf("CString(0)=%q,%d,%v", s, next, ok)
	}
	s, next, ok = CString(data, next)
	if !ok || s != "reg" || next != 11 {
		t.Fatalf("CString(7)=%q,%d,%v", s, next, ok)
	}
	if _, _, ok := CString(data, next); ok {
		t.Fatalf("CString should fail on unterminated string")
	}
}
