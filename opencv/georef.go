package opencv

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/forestquant/go-deadtrees/geom"
)

// Georef anchors a raster grid in map coordinates. OriginX and OriginY
// are the top left corner of the top left cell, rows run down from
// there by CellSize.
type Georef struct {
	// CellSize is the ground size of one square cell in map units
	CellSize float64
	// OriginX is the map x coordinate of the raster top left corner
	OriginX float64
	// OriginY is the map y coordinate of the raster top left corner
	OriginY float64
}

// defaultGeoref anchors an unreferenced raster so map coordinates equal
// cell coordinates with the y axis pointing up
func defaultGeoref(height int) Georef {
	return Georef{CellSize: 1, OriginX: 0, OriginY: float64(height)}
}

// PixelToWorld returns the map coordinates of the center of cell
// col, row
func (g Georef) PixelToWorld(col, row int) (x, y float64) {
	x = g.OriginX + (float64(col)+0.5)*g.CellSize
	y = g.OriginY - (float64(row)+0.5)*g.CellSize
	return x, y
}

// CellCorner returns the map coordinates of the top left corner of
// cell col, row
func (g Georef) CellCorner(col, row int) (x, y float64) {
	x = g.OriginX + float64(col)*g.CellSize
	y = g.OriginY - float64(row)*g.CellSize
	return x, y
}

// WorldToPixel returns the cell containing the map coordinate
func (g Georef) WorldToPixel(x, y float64) (col, row int) {
	col = int(math.Floor((x - g.OriginX) / g.CellSize))
	row = int(math.Floor((g.OriginY - y) / g.CellSize))
	return col, row
}

// Bounds returns the map extent of a raster with the given dimensions
func (g Georef) Bounds(width, height int) geom.Rect {
	return geom.Rect{
		MinX: g.OriginX,
		MinY: g.OriginY - float64(height)*g.CellSize,
		MaxX: g.OriginX + float64(width)*g.CellSize,
		MaxY: g.OriginY,
	}
}

// world file extensions by raster extension, the fallback is .wld
var worldExts = map[string]string{
	".tif":  ".tfw",
	".tiff": ".tfw",
	".png":  ".pgw",
	".jpg":  ".jgw",
	".jpeg": ".jgw",
}

// worldPath returns the world file sidecar path for a raster file
func worldPath(rasterPath string) string {

	ext := strings.ToLower(filepath.Ext(rasterPath))
	wext, ok := worldExts[ext]

	if !ok {
		wext = ".wld"
	}

	return strings.TrimSuffix(rasterPath, filepath.Ext(rasterPath)) + wext
}

// readWorldFile parses a six line ESRI world file. Rotated rasters are
// not supported.
func readWorldFile(path string) (Georef, error) {

	f, err := os.Open(path)

	if err != nil {
		return Georef{}, fmt.Errorf("error opening world file: %w", err)
	}

	defer f.Close()

	var vals []float64

	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			continue
		}

		v, err := strconv.ParseFloat(line, 64)

		if err != nil {
			return Georef{}, fmt.Errorf("world file %s: invalid value %q",
				path, line)
		}

		vals = append(vals, v)
	}

	if err := scanner.Err(); err != nil {
		return Georef{}, fmt.Errorf("error reading world file: %w", err)
	}

	if len(vals) < 6 {
		return Georef{}, fmt.Errorf("world file %s: got %d values, want 6",
			path, len(vals))
	}

	// A, D, B, E, C, F with C and F at the center of the top left cell
	a, d, b, e, c, f := vals[0], vals[1], vals[2], vals[3], vals[4], vals[5]

	if d != 0 || b != 0 {
		return Georef{}, fmt.Errorf("world file %s: rotated rasters are not supported",
			path)
	}

	if a <= 0 || e >= 0 {
		return Georef{}, fmt.Errorf("world file %s: invalid cell sizes %g, %g",
			path, a, e)
	}

	if math.Abs(a+e) > 1e-9*math.Abs(a) {
		return Georef{}, fmt.Errorf("world file %s: cells are not square", path)
	}

	return Georef{
		CellSize: a,
		OriginX:  c - a/2,
		OriginY:  f - e/2,
	}, nil
}

// writeWorldFile writes the ESRI world file sidecar for a raster
func writeWorldFile(path string, g Georef) error {

	f, err := os.Create(path)

	if err != nil {
		return fmt.Errorf("error creating world file: %w", err)
	}

	defer f.Close()

	w := bufio.NewWriter(f)

	cx := g.OriginX + g.CellSize/2
	cy := g.OriginY - g.CellSize/2

	fmt.Fprintf(w, "%g\n0\n0\n%g\n%g\n%g\n", g.CellSize, -g.CellSize, cx, cy)

	return w.Flush()
}
