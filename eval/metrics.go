// Package eval quantifies the agreement between detected dead tree
// polygons and ground truth points. A symmetric double spatial join
// produces six match counts, from which two precision/recall/F1 views are
// derived: one treating matched polygons as true positives and one
// treating matched points as true positives. Both views are reported, the
// directionality of "true positive" makes them distinct and neither is
// authoritative.
package eval

import (
	"errors"
	"fmt"
)

// ErrZeroDenominator is returned when a metric is undefined because its
// denominator is zero.
var ErrZeroDenominator = errors.New("zero denominator")

// Metrics is one precision, recall and F1 triple.
type Metrics struct {
	Precision float64
	Recall    float64
	F1        float64
}

// ComputeMetrics derives precision, recall and F1 from match counts.
//
//	precision = TP / (TP + FP)
//	recall    = TP / (TP + FN)
//	f1        = 2 * precision * recall / (precision + recall)
//
// A zero denominator returns a wrapped ErrZeroDenominator naming the
// undefined term. When precision and recall are both defined but zero,
// F1 is 0 rather than an error, matching the metric's limit.
func ComputeMetrics(tp, fp, fn int) (Metrics, error) {

	if tp+fp == 0 {
		return Metrics{}, fmt.Errorf("precision: %w", ErrZeroDenominator)
	}

	if tp+fn == 0 {
		return Metrics{}, fmt.Errorf("recall: %w", ErrZeroDenominator)
	}

	m := Metrics{
		Precision: float64(tp) / float64(tp+fp),
		Recall:    float64(tp) / float64(tp+fn),
	}

	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}

	return m, nil
}

// String returns the metrics formatted to three decimal places.
func (m Metrics) String() string {
	return fmt.Sprintf("precision %.3f, recall %.3f, F1 %.3f",
		m.Precision, m.Recall, m.F1)
}
