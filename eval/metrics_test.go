package eval

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestComputeMetrics(t *testing.T) {

	tests := []struct {
		name       string
		tp, fp, fn int
		want       Metrics
	}{
		{
			name: "reference counts",
			tp:   8, fp: 2, fn: 1,
			want: Metrics{Precision: 0.80, Recall: 8.0 / 9.0, F1: 12.8 / 15.2},
		},
		{
			name: "perfect detection",
			tp:   5, fp: 0, fn: 0,
			want: Metrics{Precision: 1, Recall: 1, F1: 1},
		},
		{
			name: "no true positives with defined denominators",
			tp:   0, fp: 4, fn: 3,
			want: Metrics{Precision: 0, Recall: 0, F1: 0},
		},
		{
			name: "all missed",
			tp:   2, fp: 8, fn: 18,
			want: Metrics{Precision: 0.2, Recall: 0.1, F1: 2 * 0.2 * 0.1 / 0.3},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {

			got, err := ComputeMetrics(tc.tp, tc.fp, tc.fn)

			if err != nil {
				t.Fatalf("ComputeMetrics(%d, %d, %d) failed: %v", tc.tp, tc.fp, tc.fn, err)
			}

			if !almostEqual(got.Precision, tc.want.Precision, 1e-9) {
				t.Errorf("Precision = %v; want %v", got.Precision, tc.want.Precision)
			}

			if !almostEqual(got.Recall, tc.want.Recall, 1e-9) {
				t.Errorf("Recall = %v; want %v", got.Recall, tc.want.Recall)
			}

			if !almostEqual(got.F1, tc.want.F1, 1e-9) {
				t.Errorf("F1 = %v; want %v", got.F1, tc.want.F1)
			}
		})
	}
}

func TestComputeMetricsReferenceValues(t *testing.T) {

	// TP=8 FP=2 FN=1 is the documented reference case
	m, err := ComputeMetrics(8, 2, 1)

	if err != nil {
		t.Fatalf("ComputeMetrics(8, 2, 1) failed: %v", err)
	}

	if !almostEqual(m.Precision, 0.80, 1e-9) {
		t.Errorf("precision = %v; want 0.80", m.Precision)
	}

	if !almostEqual(m.Recall, 0.888888888, 1e-6) {
		t.Errorf("recall = %v; want 0.888...", m.Recall)
	}

	if !almostEqual(m.F1, 0.842105263, 1e-6) {
		t.Errorf("f1 = %v; want 0.842...", m.F1)
	}
}

func TestComputeMetricsZeroDenominators(t *testing.T) {

	tests := []struct {
		name       string
		tp, fp, fn int
		term       string
	}{
		{"no predictions", 0, 0, 3, "precision"},
		{"no truth", 0, 5, 0, "recall"},
		{"empty everything", 0, 0, 0, "precision"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {

			_, err := ComputeMetrics(tc.tp, tc.fp, tc.fn)

			if err == nil {
				t.Fatalf("ComputeMetrics(%d, %d, %d) returned nil error; want zero denominator",
					tc.tp, tc.fp, tc.fn)
			}

			if !errors.Is(err, ErrZeroDenominator) {
				t.Errorf("error %v is not ErrZeroDenominator", err)
			}

			if !strings.Contains(err.Error(), tc.term) {
				t.Errorf("error %q does not name the %s term", err, tc.term)
			}
		})
	}
}
