package deadtrees

import (
	"fmt"
	"strconv"
	"strings"
)

// DetectParams holds the tunable parameters of the detection pipeline
type DetectParams struct {
	// Classes is the number of classes for unsupervised classification
	Classes int
	// MinArea is the minimum polygon area in square map units kept
	// after raster to polygon conversion
	MinArea float64
	// BufferDistance is the polygon buffer distance as a linear unit
	// string, eg. "1 Meters"
	BufferDistance string
	// MinBufferArea is the minimum area in square map units a dissolved
	// buffer must have to be kept in the final output
	MinBufferArea float64
	// Band is the 1-based spectral band used for thresholding
	Band int
	// BandMin and BandMax bound the band values kept by the threshold
	// mask, inclusive
	BandMin int
	BandMax int
	// Rule selects the dead tree class from the classification
	// signature, nil selects the highest numbered class
	Rule ClassRule
	// KeepIntermediates leaves the intermediate datasets in the
	// workspace instead of deleting them after the run
	KeepIntermediates bool
}

// DefaultDetectParams returns the parameters used for dead tree
// detection in conifer stands
func DefaultDetectParams() DetectParams {
	return DetectParams{
		Classes:        10,
		MinArea:        1.0,
		BufferDistance: "1 Meters",
		MinBufferArea:  30.0,
		Band:           3,
		BandMin:        150,
		BandMax:        250,
	}
}

// Validate checks the parameters are usable
func (p DetectParams) Validate() error {

	if p.Classes < 2 || p.Classes > 15 {
		return fmt.Errorf("classes must be in range 2 to 15, got %d", p.Classes)
	}

	if p.MinArea < 0 {
		return fmt.Errorf("minimum area must not be negative, got %v", p.MinArea)
	}

	if p.MinBufferArea < 0 {
		return fmt.Errorf("minimum buffer area must not be negative, got %v",
			p.MinBufferArea)
	}

	if p.Band < 1 || p.Band > 15 {
		return fmt.Errorf("band must be in range 1 to 15, got %d", p.Band)
	}

	if p.BandMin > p.BandMax {
		return fmt.Errorf("band range is inverted, got [%d, %d]",
			p.BandMin, p.BandMax)
	}

	if _, err := ParseDistance(p.BufferDistance); err != nil {
		return fmt.Errorf("buffer distance: %w", err)
	}

	return nil
}

// distance unit factors to meters
var distanceUnits = map[string]float64{
	"meter":       1,
	"meters":      1,
	"centimeter":  0.01,
	"centimeters": 0.01,
	"kilometer":   1000,
	"kilometers":  1000,
	"foot":        0.3048,
	"feet":        0.3048,
}

// ParseDistance converts a linear unit string such as "1 Meters" or
// "50 Centimeters" into meters. A bare number is taken as meters.
func ParseDistance(s string) (float64, error) {

	fields := strings.Fields(s)

	if len(fields) == 0 || len(fields) > 2 {
		return 0, fmt.Errorf("invalid distance %q", s)
	}

	val, err := strconv.ParseFloat(fields[0], 64)

	if err != nil {
		return 0, fmt.Errorf("invalid distance %q", s)
	}

	if len(fields) == 1 {
		return val, nil
	}

	factor, ok := distanceUnits[strings.ToLower(fields[1])]

	if !ok {
		return 0, fmt.Errorf("unknown distance unit %q", fields[1])
	}

	return val * factor, nil
}
