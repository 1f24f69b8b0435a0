package eval

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/forestquant/go-deadtrees/geom"
)

// Counts are the six scalars produced by the double spatial join between
// detected polygons and ground truth points.
type Counts struct {
	// TP is the number of detected polygons containing at least one
	// ground truth point.
	TP int
	// FN is the number of detected polygons containing no ground truth
	// point.
	FN int
	// AllPolygons is the detected polygon count.
	AllPolygons int
	// TP2 is the number of ground truth points inside at least one
	// detected polygon.
	TP2 int
	// FP is the number of ground truth points inside no detected
	// polygon.
	FP int
	// AllPoints is the ground truth point count.
	AllPoints int
}

// Report holds the evaluation counts for one comparison of detected
// polygons against ground truth points.
type Report struct {
	Counts Counts
}

// Evaluate runs the double spatial join and returns the match counts.
// Pass A joins ground truth points onto the detected polygons, pass B
// joins detected polygons onto the points. The computation is pure, the
// input sets are left untouched.
func Evaluate(polygons, points *geom.FeatureSet) *Report {

	polyJoin := SpatialJoin(polygons, points)
	tp, allPolygons := CountMatched(polyJoin)

	pointJoin := SpatialJoin(points, polygons)
	tp2, allPoints := CountMatched(pointJoin)

	return &Report{
		Counts: Counts{
			TP:          tp,
			FN:          allPolygons - tp,
			AllPolygons: allPolygons,
			TP2:         tp2,
			FP:          allPoints - tp2,
			AllPoints:   allPoints,
		},
	}
}

// PolygonView derives metrics treating matched polygons as the true
// positives.
func (r *Report) PolygonView() (Metrics, error) {
	return ComputeMetrics(r.Counts.TP, r.Counts.FP, r.Counts.FN)
}

// PointView derives metrics treating matched ground truth points as the
// true positives.
func (r *Report) PointView() (Metrics, error) {
	return ComputeMetrics(r.Counts.TP2, r.Counts.FP, r.Counts.FN)
}

// Write formats the counts and both metric views in human readable form.
// Undefined metrics are reported as such instead of failing the write.
func (r *Report) Write(w io.Writer) error {

	c := r.Counts

	if _, err := fmt.Fprintf(w,
		"Polygons with intersecting point: %d\n"+
			"Polygons without intersecting point: %d\n"+
			"All polygons: %d\n"+
			"Points with intersecting polygon: %d\n"+
			"Points without intersecting polygon: %d\n"+
			"All points: %d\n",
		c.TP, c.FN, c.AllPolygons, c.TP2, c.FP, c.AllPoints); err != nil {
		return err
	}

	if err := writeView(w, "Polygon view", r.PolygonView); err != nil {
		return err
	}

	return writeView(w, "Point view", r.PointView)
}

// writeView writes one named metric triple, or its undefined reason.
func writeView(w io.Writer, name string, view func() (Metrics, error)) error {

	m, err := view()

	if err != nil {
		if errors.Is(err, ErrZeroDenominator) {
			_, werr := fmt.Fprintf(w, "%s: undefined (%v)\n", name, err)
			return werr
		}
		return err
	}

	_, err = fmt.Fprintf(w, "%s: %s\n", name, m)
	return err
}

// String returns the formatted report.
func (r *Report) String() string {

	var b strings.Builder

	// string building cannot fail
	_ = r.Write(&b)

	return b.String()
}
