package deadtrees

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Signature holds the class centers produced by unsupervised
// classification, one row per class and one column per band
type Signature struct {
	centers *mat.Dense
}

// NewSignature creates an empty signature for the given number of
// classes and bands
func NewSignature(classes, bands int) *Signature {
	return &Signature{
		centers: mat.NewDense(classes, bands, nil),
	}
}

// Classes returns the number of classes in the signature
func (s *Signature) Classes() int {
	r, _ := s.centers.Dims()
	return r
}

// Bands returns the number of bands in the signature
func (s *Signature) Bands() int {
	_, c := s.centers.Dims()
	return c
}

// SetCenter sets the center of 1-based class for 1-based band
func (s *Signature) SetCenter(class, band int, val float64) {
	s.centers.Set(class-1, band-1, val)
}

// Center returns the center of 1-based class for 1-based band
func (s *Signature) Center(class, band int) float64 {
	return s.centers.At(class-1, band-1)
}

// Mean returns the center vector of the 1-based class
func (s *Signature) Mean(class int) []float64 {
	row := make([]float64, s.Bands())
	mat.Row(row, class-1, s.centers)
	return row
}

// Brightness returns the per class mean over all bands, indexed by
// class number minus one
func (s *Signature) Brightness() []float64 {

	classes := s.Classes()
	bands := s.Bands()
	out := make([]float64, classes)

	for i := 0; i < classes; i++ {
		sum := 0.0

		for j := 0; j < bands; j++ {
			sum += s.centers.At(i, j)
		}

		out[i] = sum / float64(bands)
	}

	return out
}

// Save writes the signature to a text file, one class per line with
// space separated band centers
func (s *Signature) Save(file string) error {

	f, err := os.Create(file)

	if err != nil {
		return fmt.Errorf("create signature file: %w", err)
	}

	defer f.Close()

	w := bufio.NewWriter(f)

	fmt.Fprintf(w, "# classes=%d bands=%d\n", s.Classes(), s.Bands())

	for i := 1; i <= s.Classes(); i++ {
		for j := 1; j <= s.Bands(); j++ {
			if j > 1 {
				fmt.Fprint(w, " ")
			}

			fmt.Fprintf(w, "%g", s.Center(i, j))
		}

		fmt.Fprintln(w)
	}

	return w.Flush()
}

// LoadSignature reads a signature written by Save
func LoadSignature(file string) (*Signature, error) {

	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("open signature file: %w", err)
	}

	defer f.Close()

	var rows [][]float64
	bands := 0

	scanner := bufio.NewScanner(f)
	line := 0

	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())

		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)

		if bands == 0 {
			bands = len(fields)

		} else if len(fields) != bands {
			return nil, fmt.Errorf("signature file line %d: got %d centers, want %d",
				line, len(fields), bands)
		}

		row := make([]float64, len(fields))

		for i, field := range fields {
			val, err := strconv.ParseFloat(field, 64)

			if err != nil {
				return nil, fmt.Errorf("signature file line %d: %w", line, err)
			}

			row[i] = val
		}

		rows = append(rows, row)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read signature file: %w", err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("signature file %s has no classes", file)
	}

	sig := NewSignature(len(rows), bands)

	for i, row := range rows {
		for j, val := range row {
			sig.SetCenter(i+1, j+1, val)
		}
	}

	return sig, nil
}
