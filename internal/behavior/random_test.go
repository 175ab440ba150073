package behavior

import (
	"math/rand"
	"testing"
)

func TestWeightedChoice_Boundaries(t *testing.T) {
	weights := []float64{0.3, 0.3, 0.4}

	tests := []struct {
		roll float64
		want int
	}{
		{0.0, 0},
		{0.1, 0},
		{0.3, 0},
		{0.59, 1},
		{0.95, 2},
		{0.999, 2},
	}

	for _, tt := range tests {
		got := WeightedChoice(&scriptedRand{floats: []float64{tt.roll}}, weights)
		if got != tt.want {
			t.Errorf("roll %.3f: expected %d, got %d", tt.roll, tt.want, got)
		}
	}
}

func TestWeightedChoice_CumulativeBands(t *testing.T) {
	weights := []float64{0.5, 0.3, 0.2}

	tests := []struct {
		roll float64
		want int
	}{
		{0.1, 0},
		{0.6, 1},
		{0.95, 2},
	}

	for _, tt := range tests {
		got := WeightedChoice(&scriptedRand{floats: []float64{tt.roll}}, weights)
		if got != tt.want {
			t.Errorf("roll %.2f: expected %d, got %d", tt.roll, tt.want, got)
		}
	}
}

func TestWeightedChoice_Empty(t *testing.T) {
	if got := WeightedChoice(&scriptedRand{}, nil); got != -1 {
		t.Errorf("expected -1 for no weights, got %d", got)
	}
}

func TestWeightedChoice_RoundingFallsBackToLast(t *testing.T) {
	// A roll that stays positive after every subtraction picks the last entry.
	got := WeightedChoice(&scriptedRand{floats: []float64{1.0000001}}, []float64{0.5, 0.5})
	if got != 1 {
		t.Errorf("expected last index, got %d", got)
	}
}

func TestWeightedChoice_Distribution(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	weights := []float64{4, 1}

	counts := make([]int, len(weights))
	for i := 0; i < 5000; i++ {
		counts[WeightedChoice(r, weights)]++
	}

	ratio := float64(counts[0]) / 5000
	if ratio < 0.76 || ratio > 0.84 {
		t.Errorf("expected about 80%% for weight 4 of 5, got %.3f (%v)", ratio, counts)
	}
}

func TestRange_Roll(t *testing.T) {
	r := Range{Min: 20, Max: 35}

	if got := r.Roll(&scriptedRand{floats: []float64{0}}); got != 20 {
		t.Errorf("expected 20, got %f", got)
	}
	if got := r.Roll(&scriptedRand{floats: []float64{0.5}}); got != 27.5 {
		t.Errorf("expected 27.5, got %f", got)
	}
	if !r.Enabled() {
		t.Error("range should be enabled")
	}
	if (Range{}).Enabled() {
		t.Error("zero range should be disabled")
	}
}
