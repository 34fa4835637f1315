package dedup

import (
	"math"
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello, World!", "helloworld"},
		{"金价 创新高！", "金价创新高"},
		{"ＡＢＣ１２３", "abc123"},
		{"snake_case-title", "snakecasetitle"},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := Normalize(tt.input); got != tt.expected {
			t.Errorf("Normalize(%q): expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func TestFingerprint(t *testing.T) {
	published := time.Date(2025, 3, 1, 23, 0, 0, 0, time.UTC)
	now := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)

	got := Fingerprint("Gold rises!", &published, now)
	want := "0b524090d993bcfe6854db339cc87553506f29f0c2ae3167120096dc65a92210"
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}

	if Fingerprint("gold   RISES", &published, now) != got {
		t.Error("Expected titles equal after normalization to share a fingerprint")
	}

	nextDay := published.Add(2 * time.Hour)
	if Fingerprint("Gold rises!", &nextDay, now) == got {
		t.Error("Expected different day to change the fingerprint")
	}

	// 2025-03-02 07:00 in UTC+8 is still 2025-03-01 in UTC
	shanghai := time.FixedZone("CST", 8*3600)
	local := time.Date(2025, 3, 2, 7, 0, 0, 0, shanghai)
	if Fingerprint("Gold rises!", &local, now) != got {
		t.Error("Expected fingerprint day to be taken in UTC")
	}

	fallback := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	if Fingerprint("Gold rises!", nil, fallback) != got {
		t.Error("Expected nil published date to use now")
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b     string
		expected float64
	}{
		{"abcd", "bcde", 0.75},
		{"金价创历史新高", "金价再创历史新高", 0.9333333333333333},
		{"goldpriceshitrecordhigh", "goldpricehitsrecordhigh", 0.9565217391304348},
		{"abc", "xyz", 0},
		{"特朗普宣布新关税", "美联储维持利率不变", 0},
		{"qabxcd", "abycdf", 0.6666666666666666},
		{"same", "same", 1},
		{"", "abc", 0},
		{"abc", "", 0},
		{"", "", 0},
	}

	for _, tt := range tests {
		got := Similarity(tt.a, tt.b)
		if math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("Similarity(%q, %q): expected %f, got %f", tt.a, tt.b, tt.expected, got)
		}
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"tide", "diet"},
		{"abcb", "bcab"},
		{"金价上涨", "上涨金价"},
	}

	for _, p := range pairs {
		ab := Similarity(p[0], p[1])
		ba := Similarity(p[1], p[0])
		if ab != ba {
			t.Errorf("Expected symmetric similarity for %q/%q, got %f and %f", p[0], p[1], ab, ba)
		}
		if ab < 0 || ab > 1 {
			t.Errorf("Expected similarity in [0,1], got %f", ab)
		}
	}

	if got := Similarity("tide", "diet"); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Expected 0.5 for tide/diet, got %f", got)
	}
}
