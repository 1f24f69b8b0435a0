package geom

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
)

// GeoJSON wire format. Geometry coordinates are decoded lazily since
// their shape depends on the geometry type.
type geoJSONCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

type geoJSONFeature struct {
	Type       string             `json:"type"`
	Geometry   geoJSONGeometry    `json:"geometry"`
	Properties map[string]float64 `json:"properties,omitempty"`
}

type geoJSONGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// WriteFile persists the feature set as a GeoJSON FeatureCollection.
func WriteFile(fs *FeatureSet, path string) error {

	col := geoJSONCollection{
		Type:     "FeatureCollection",
		Features: make([]geoJSONFeature, 0, fs.Count()),
	}

	for i := range fs.Features {

		f := &fs.Features[i]

		gf := geoJSONFeature{
			Type:       "Feature",
			Properties: f.Attrs,
		}

		var coords []byte
		var err error

		if f.Type == GeometryPoint {
			gf.Geometry.Type = "Point"
			coords, err = json.Marshal([]float64{f.Point.X, f.Point.Y})
		} else {
			gf.Geometry.Type = "Polygon"
			coords, err = json.Marshal(polygonCoords(f.Polygon))
		}

		if err != nil {
			return fmt.Errorf("error encoding feature %d: %w", i, err)
		}

		gf.Geometry.Coordinates = coords
		col.Features = append(col.Features, gf)
	}

	buf, err := json.Marshal(col)

	if err != nil {
		return fmt.Errorf("error encoding feature collection: %w", err)
	}

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}

	return nil
}

// ReadFile loads a GeoJSON FeatureCollection of points and polygons.
func ReadFile(path string) (*FeatureSet, error) {

	buf, err := os.ReadFile(path)

	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}

	var col geoJSONCollection

	if err := json.Unmarshal(buf, &col); err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", path, err)
	}

	fs := &FeatureSet{Features: make([]Feature, 0, len(col.Features))}

	for i, gf := range col.Features {

		f := Feature{Attrs: gf.Properties}

		switch gf.Geometry.Type {
		case "Point":
			var xy []float64

			if err := json.Unmarshal(gf.Geometry.Coordinates, &xy); err != nil || len(xy) < 2 {
				return nil, fmt.Errorf("feature %d in %s: invalid point coordinates", i, path)
			}

			f.Type = GeometryPoint
			f.Point = Point{X: xy[0], Y: xy[1]}

		case "Polygon":
			var rings [][][]float64

			if err := json.Unmarshal(gf.Geometry.Coordinates, &rings); err != nil {
				return nil, fmt.Errorf("feature %d in %s: invalid polygon coordinates", i, path)
			}

			f.Type = GeometryPolygon
			f.Polygon = polygonFromCoords(rings)

		default:
			return nil, fmt.Errorf("feature %d in %s: unsupported geometry type %q",
				i, path, gf.Geometry.Type)
		}

		fs.Append(f)
	}

	return fs, nil
}

// polygonCoords converts a polygon to GeoJSON ring arrays, repeating the
// first vertex as the closing vertex the format requires.
func polygonCoords(p Polygon) [][][]float64 {

	rings := make([][][]float64, 0, len(p))

	for _, ring := range p {

		coords := make([][]float64, 0, len(ring)+1)

		for _, pt := range ring {
			coords = append(coords, []float64{pt.X, pt.Y})
		}

		if len(ring) > 0 {
			coords = append(coords, []float64{ring[0].X, ring[0].Y})
		}

		rings = append(rings, coords)
	}

	return rings
}

// polygonFromCoords converts GeoJSON ring arrays to a polygon, dropping
// the repeated closing vertex.
func polygonFromCoords(rings [][][]float64) Polygon {

	p := make(Polygon, 0, len(rings))

	for _, coords := range rings {

		ring := make(Ring, 0, len(coords))

		for _, xy := range coords {
			if len(xy) < 2 {
				continue
			}
			ring = append(ring, Point{X: xy[0], Y: xy[1]})
		}

		if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
			ring = ring[:len(ring)-1]
		}

		p = append(p, ring)
	}

	return p
}

// LoadPoints reads ground truth points from a text file with one x,y pair
// per line. Blank lines and lines starting with # are skipped.
func LoadPoints(path string) (*FeatureSet, error) {

	// open the file
	f, err := os.Open(path)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	// create a scanner to read the file.
	scanner := bufio.NewScanner(f)

	fs := &FeatureSet{}
	lineNum := 0

	for scanner.Scan() {

		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")

		if len(parts) < 2 {
			return nil, fmt.Errorf("line %d: expected x,y got %q", lineNum, line)
		}

		x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)

		if err != nil {
			return nil, fmt.Errorf("line %d: invalid x value: %w", lineNum, err)
		}

		y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)

		if err != nil {
			return nil, fmt.Errorf("line %d: invalid y value: %w", lineNum, err)
		}

		fs.Append(NewPointFeature(Point{X: x, Y: y}))
	}

	// check for errors during scanning
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	return fs, nil
}

// WritePoints saves the point features of a set as a text file with one
// x,y pair per line, the format LoadPoints reads. Polygon features are
// skipped.
func WritePoints(fs *FeatureSet, path string) error {

	f, err := os.Create(path)

	if err != nil {
		return fmt.Errorf("error creating file: %w", err)
	}

	defer f.Close()

	w := bufio.NewWriter(f)

	for i := range fs.Features {
		if fs.Features[i].Type != GeometryPoint {
			continue
		}

		pt := fs.Features[i].Point
		fmt.Fprintf(w, "%g,%g\n", pt.X, pt.Y)
	}

	return w.Flush()
}

// RandomPoints returns n uniformly distributed points inside the
// rectangle. The same seed always produces the same points, so generated
// fixtures are reproducible.
func RandomPoints(r Rect, n int, seed int64) *FeatureSet {

	rng := rand.New(rand.NewSource(seed))
	fs := &FeatureSet{Features: make([]Feature, 0, n)}

	for i := 0; i < n; i++ {
		fs.Append(NewPointFeature(Point{
			X: r.MinX + rng.Float64()*r.Width(),
			Y: r.MinY + rng.Float64()*r.Height(),
		}))
	}

	return fs
}
