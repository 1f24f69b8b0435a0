// Package opencv implements the deadtrees Engine on top of the OpenCV
// bindings, with rasters held as gocv mats and georeferencing carried
// in ESRI world file sidecars.
package opencv

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"

	"github.com/forestquant/go-deadtrees"
	"github.com/forestquant/go-deadtrees/geom"
)

// Engine implements deadtrees.Engine using OpenCV
type Engine struct {
	// version is the linked OpenCV library version
	version string
	closed  bool
}

// NewEngine returns an Engine backed by the OpenCV runtime
func NewEngine() (*Engine, error) {

	ver := gocv.OpenCVVersion()

	if ver == "" {
		return nil, fmt.Errorf("opencv runtime is not available")
	}

	return &Engine{version: ver}, nil
}

// Version returns the OpenCV library version in use
func (e *Engine) Version() string {
	return e.version
}

func (e *Engine) check() error {

	if e.closed {
		return deadtrees.ErrEngineClosed
	}

	return nil
}

// Close releases the engine, operations called afterwards fail
func (e *Engine) Close() error {
	e.closed = true
	return nil
}

// zero is the scalar used to blank newly allocated mats
var zero = gocv.NewScalar(0, 0, 0, 0)

// LoadRaster reads a raster image and its world file sidecar. A raster
// without a sidecar is anchored at the origin with cell size one.
func (e *Engine) LoadRaster(file string) (deadtrees.Raster, error) {

	if err := e.check(); err != nil {
		return nil, err
	}

	info, err := os.Stat(file)

	if err != nil {
		return nil, fmt.Errorf("raster file does not exist at %s, error: %w",
			file, err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("raster file %s is a directory", file)
	}

	mat := gocv.IMRead(file, gocv.IMReadUnchanged)

	if mat.Empty() {
		return nil, fmt.Errorf("failed to decode raster %s", file)
	}

	ref := defaultGeoref(mat.Rows())
	wp := worldPath(file)

	if _, err := os.Stat(wp); err == nil {
		ref, err = readWorldFile(wp)

		if err != nil {
			mat.Close()
			return nil, err
		}
	}

	return newRaster(mat, ref), nil
}

// SaveRaster writes a raster image and its world file sidecar. Region
// id rasters are written with 16 bit cells.
func (e *Engine) SaveRaster(r deadtrees.Raster, file string) error {

	if err := e.check(); err != nil {
		return err
	}

	or, err := toRaster(r)

	if err != nil {
		return err
	}

	out := or.mat
	conv := gocv.NewMat()
	defer conv.Close()

	// image encoders take 8 or 16 bit cells, not 32 bit region ids
	if or.mat.Type() == gocv.MatTypeCV32SC1 {
		or.mat.ConvertTo(&conv, gocv.MatTypeCV16UC1)
		out = conv
	}

	if ok := gocv.IMWrite(file, out); !ok {
		return fmt.Errorf("failed to write raster %s", file)
	}

	return writeWorldFile(worldPath(file), or.ref)
}

// isPointsFile reports whether a feature file holds bare x,y point rows
func isPointsFile(file string) bool {
	ext := strings.ToLower(filepath.Ext(file))
	return ext == ".csv" || ext == ".txt"
}

// LoadFeatures reads a feature file, GeoJSON for polygons and points or
// a csv of x,y rows for ground truth points
func (e *Engine) LoadFeatures(file string) (*geom.FeatureSet, error) {

	if err := e.check(); err != nil {
		return nil, err
	}

	if isPointsFile(file) {
		return geom.LoadPoints(file)
	}

	return geom.ReadFile(file)
}

// SaveFeatures writes a feature file in the format matching its
// extension
func (e *Engine) SaveFeatures(fs *geom.FeatureSet, file string) error {

	if err := e.check(); err != nil {
		return err
	}

	if isPointsFile(file) {
		return geom.WritePoints(fs, file)
	}

	return geom.WriteFile(fs, file)
}

// Exists reports whether a dataset file is present
func (e *Engine) Exists(file string) bool {

	if e.closed {
		return false
	}

	_, err := os.Stat(file)
	return err == nil
}

// Delete removes a dataset file and its world file sidecar
func (e *Engine) Delete(file string) error {

	if err := e.check(); err != nil {
		return err
	}

	if err := os.Remove(file); err != nil {
		return fmt.Errorf("error deleting %s: %w", file, err)
	}

	// sidecar may not exist
	os.Remove(worldPath(file))

	return nil
}

// ringPixels converts a ring from map coordinates to pixel coordinates
func ringPixels(ring geom.Ring, ref Georef) []image.Point {

	pts := make([]image.Point, 0, len(ring))

	for _, p := range ring {
		col, row := ref.WorldToPixel(p.X, p.Y)
		pts = append(pts, image.Pt(col, row))
	}

	return pts
}

// ExtractByFeatures clips a raster to the polygons of a mask feature
// set, cells outside become NoData
func (e *Engine) ExtractByFeatures(r deadtrees.Raster, mask *geom.FeatureSet) (deadtrees.Raster, error) {

	if err := e.check(); err != nil {
		return nil, err
	}

	or, err := toRaster(r)

	if err != nil {
		return nil, err
	}

	var outers, holes [][]image.Point

	for i := range mask.Features {
		f := &mask.Features[i]

		if f.Type != geom.GeometryPolygon {
			continue
		}

		for ri, ring := range f.Polygon {
			if ri == 0 {
				outers = append(outers, ringPixels(ring, or.ref))
			} else {
				holes = append(holes, ringPixels(ring, or.ref))
			}
		}
	}

	if len(outers) == 0 {
		return nil, fmt.Errorf("mask has no polygon features")
	}

	w, h := or.Size()

	bin := gocv.NewMatWithSizeFromScalar(zero, h, w, gocv.MatTypeCV8UC1)
	defer bin.Close()

	opv := gocv.NewPointsVectorFromPoints(outers)
	gocv.FillPoly(&bin, opv, color.RGBA{R: 255, G: 255, B: 255})
	opv.Close()

	if len(holes) > 0 {
		hpv := gocv.NewPointsVectorFromPoints(holes)
		gocv.FillPoly(&bin, hpv, color.RGBA{})
		hpv.Close()
	}

	out := gocv.NewMatWithSizeFromScalar(zero, h, w, or.mat.Type())
	or.mat.CopyToWithMask(&out, bin)

	return newRaster(out, or.ref), nil
}

// ExtractByRaster keeps the cells of r where mask has data, cells
// where the mask is NoData become NoData
func (e *Engine) ExtractByRaster(r, mask deadtrees.Raster) (deadtrees.Raster, error) {

	if err := e.check(); err != nil {
		return nil, err
	}

	or, err := toRaster(r)

	if err != nil {
		return nil, err
	}

	om, err := toRaster(mask)

	if err != nil {
		return nil, err
	}

	rw, rh := or.Size()
	mw, mh := om.Size()

	if rw != mw || rh != mh {
		return nil, fmt.Errorf("raster is %dx%d but mask is %dx%d",
			rw, rh, mw, mh)
	}

	if om.mat.Channels() != 1 {
		return nil, fmt.Errorf("mask raster must have a single band")
	}

	bin := om.mat
	conv := gocv.NewMat()
	defer conv.Close()

	if om.mat.Type() != gocv.MatTypeCV8UC1 {
		om.mat.ConvertTo(&conv, gocv.MatTypeCV8UC1)
		bin = conv
	}

	out := gocv.NewMatWithSizeFromScalar(zero, rh, rw, or.mat.Type())
	or.mat.CopyToWithMask(&out, bin)

	return newRaster(out, or.ref), nil
}

// bandChannel maps a 1-based spectral band to a mat channel index.
// Images decode in BGR(A) order while bands are numbered R, G, B, A.
func bandChannel(channels, band int) int {

	if channels == 1 {
		return 0
	}

	if band <= 3 {
		return 3 - band
	}

	return band - 1
}

// ExtractBand returns the given 1-based spectral band as a single band
// raster
func (e *Engine) ExtractBand(r deadtrees.Raster, band int) (deadtrees.Raster, error) {

	if err := e.check(); err != nil {
		return nil, err
	}

	or, err := toRaster(r)

	if err != nil {
		return nil, err
	}

	mat, err := extractBandMat(or, band)

	if err != nil {
		return nil, err
	}

	return newRaster(mat, or.ref), nil
}

// extractBandMat returns a freshly allocated single channel mat holding
// the requested band
func extractBandMat(or *Raster, band int) (gocv.Mat, error) {

	ch := or.mat.Channels()

	if band < 1 || band > ch {
		return gocv.Mat{}, fmt.Errorf("band %d outside raster with %d bands",
			band, ch)
	}

	if ch == 1 {
		return or.mat.Clone(), nil
	}

	chans := gocv.Split(or.mat)
	out := chans[bandChannel(ch, band)].Clone()

	for i := range chans {
		chans[i].Close()
	}

	return out, nil
}

// BandThreshold produces a binary raster with value one where the given
// band lies in [lo, hi] inclusive
func (e *Engine) BandThreshold(r deadtrees.Raster, band, lo, hi int) (deadtrees.Raster, error) {

	if err := e.check(); err != nil {
		return nil, err
	}

	if lo > hi {
		return nil, fmt.Errorf("threshold range is inverted, got [%d, %d]", lo, hi)
	}

	or, err := toRaster(r)

	if err != nil {
		return nil, err
	}

	src, err := extractBandMat(or, band)

	if err != nil {
		return nil, err
	}

	defer src.Close()

	in := gocv.NewMat()
	defer in.Close()

	gocv.InRangeWithScalar(src,
		gocv.NewScalar(float64(lo), 0, 0, 0),
		gocv.NewScalar(float64(hi), 0, 0, 0), &in)

	// in range cells are 255, normalize to class 1
	out := gocv.NewMat()
	gocv.Threshold(in, &out, 0, 1, gocv.ThresholdBinary)

	return newRaster(out, or.ref), nil
}

// Reclassify maps cell values through remap, values without an entry
// become NoData. The NoData value zero cannot be remapped.
func (e *Engine) Reclassify(r deadtrees.Raster, remap map[int]int) (deadtrees.Raster, error) {

	if err := e.check(); err != nil {
		return nil, err
	}

	or, err := toRaster(r)

	if err != nil {
		return nil, err
	}

	if or.mat.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("reclassify requires a single band 8 bit raster")
	}

	lut := gocv.NewMatWithSizeFromScalar(zero, 1, 256, gocv.MatTypeCV8UC1)
	defer lut.Close()

	for from, to := range remap {
		if from < 1 || from > 255 {
			return nil, fmt.Errorf("cannot remap value %d", from)
		}

		if to < 0 || to > 255 {
			return nil, fmt.Errorf("remap target %d out of range", to)
		}

		lut.SetUCharAt(0, from, uint8(to))
	}

	out := gocv.NewMat()
	gocv.LUT(or.mat, lut, &out)

	return newRaster(out, or.ref), nil
}

// MajorityFilter replaces each cell with the 3 by 3 neighborhood
// median to remove single cell speckle
func (e *Engine) MajorityFilter(r deadtrees.Raster) (deadtrees.Raster, error) {

	if err := e.check(); err != nil {
		return nil, err
	}

	or, err := toRaster(r)

	if err != nil {
		return nil, err
	}

	if or.mat.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("majority filter requires a single band 8 bit raster")
	}

	out := gocv.NewMat()
	gocv.MedianBlur(or.mat, &out, 3)

	return newRaster(out, or.ref), nil
}

// classMask returns a 0/255 mask of the cells holding class
func classMask(src gocv.Mat, class int) gocv.Mat {

	mask := gocv.NewMat()

	gocv.InRangeWithScalar(src,
		gocv.NewScalar(float64(class), 0, 0, 0),
		gocv.NewScalar(float64(class), 0, 0, 0), &mask)

	return mask
}

// Expand grows the given classes outward by cells, filling only NoData
// cells so existing classes are never overwritten
func (e *Engine) Expand(r deadtrees.Raster, cells int, classes []int) (deadtrees.Raster, error) {

	if err := e.check(); err != nil {
		return nil, err
	}

	or, err := toRaster(r)

	if err != nil {
		return nil, err
	}

	if or.mat.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("expand requires a single band 8 bit raster")
	}

	if cells < 0 {
		return nil, fmt.Errorf("cell count must not be negative, got %d", cells)
	}

	out := or.mat.Clone()

	if cells == 0 || len(classes) == 0 {
		return newRaster(out, or.ref), nil
	}

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
	defer kernel.Close()

	dst, err := out.DataPtrUint8()

	if err != nil {
		out.Close()
		return nil, fmt.Errorf("error accessing raster memory: %w", err)
	}

	for _, class := range classes {
		if class < 1 || class > 255 {
			out.Close()
			return nil, fmt.Errorf("cannot expand class %d", class)
		}

		mask := classMask(or.mat, class)

		for i := 0; i < cells; i++ {
			gocv.Dilate(mask, &mask, kernel)
		}

		grown, err := mask.DataPtrUint8()

		if err != nil {
			mask.Close()
			out.Close()
			return nil, fmt.Errorf("error accessing mask memory: %w", err)
		}

		for i := range dst {
			if grown[i] != 0 && dst[i] == 0 {
				dst[i] = uint8(class)
			}
		}

		mask.Close()
	}

	return newRaster(out, or.ref), nil
}

// Shrink contracts the given classes inward by cells, removed cells
// become NoData
func (e *Engine) Shrink(r deadtrees.Raster, cells int, classes []int) (deadtrees.Raster, error) {

	if err := e.check(); err != nil {
		return nil, err
	}

	or, err := toRaster(r)

	if err != nil {
		return nil, err
	}

	if or.mat.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("shrink requires a single band 8 bit raster")
	}

	if cells < 0 {
		return nil, fmt.Errorf("cell count must not be negative, got %d", cells)
	}

	out := or.mat.Clone()

	if cells == 0 || len(classes) == 0 {
		return newRaster(out, or.ref), nil
	}

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
	defer kernel.Close()

	dst, err := out.DataPtrUint8()

	if err != nil {
		out.Close()
		return nil, fmt.Errorf("error accessing raster memory: %w", err)
	}

	for _, class := range classes {
		if class < 1 || class > 255 {
			out.Close()
			return nil, fmt.Errorf("cannot shrink class %d", class)
		}

		mask := classMask(or.mat, class)

		for i := 0; i < cells; i++ {
			gocv.Erode(mask, &mask, kernel)
		}

		kept, err := mask.DataPtrUint8()

		if err != nil {
			mask.Close()
			out.Close()
			return nil, fmt.Errorf("error accessing mask memory: %w", err)
		}

		for i := range dst {
			if dst[i] == uint8(class) && kept[i] == 0 {
				dst[i] = 0
			}
		}

		mask.Close()
	}

	return newRaster(out, or.ref), nil
}

// RegionGroup assigns a unique id to each 8-connected region of data
// cells, ids start at one
func (e *Engine) RegionGroup(r deadtrees.Raster) (deadtrees.Raster, error) {

	if err := e.check(); err != nil {
		return nil, err
	}

	or, err := toRaster(r)

	if err != nil {
		return nil, err
	}

	if or.mat.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("region group requires a single band 8 bit raster")
	}

	labels := gocv.NewMat()
	gocv.ConnectedComponents(or.mat, &labels)

	return newRaster(labels, or.ref), nil
}
