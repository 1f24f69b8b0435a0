package opencv

import (
	"fmt"
	"sort"

	"gocv.io/x/gocv"

	"github.com/forestquant/go-deadtrees"
	"github.com/forestquant/go-deadtrees/geom"
)

// RasterToPolygons converts the regions of a grouped raster into
// polygon features. Cell edges are followed exactly, a region of n
// cells always yields polygons of total area n times the cell area.
// Each feature carries the region id as gridcode and its area as
// Shape_Area.
func (e *Engine) RasterToPolygons(r deadtrees.Raster) (*geom.FeatureSet, error) {

	if err := e.check(); err != nil {
		return nil, err
	}

	or, err := toRaster(r)

	if err != nil {
		return nil, err
	}

	is32 := or.mat.Type() == gocv.MatTypeCV32SC1

	if !is32 && or.mat.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("polygon conversion requires a single band raster")
	}

	w, h := or.Size()
	cs := or.ref.CellSize

	cellID := func(row, col int) int {
		if is32 {
			return int(or.mat.GetIntAt(row, col))
		}
		return int(or.mat.GetUCharAt(row, col))
	}

	// gather horizontal runs of each region as world space rectangles
	rects := make(map[int][]geom.Polygon)

	for row := 0; row < h; row++ {
		for col := 0; col < w; {
			id := cellID(row, col)

			if id == 0 {
				col++
				continue
			}

			start := col

			for col < w && cellID(row, col) == id {
				col++
			}

			x0, y0 := or.ref.CellCorner(start, row)
			x1 := x0 + float64(col-start)*cs
			y1 := y0 - cs

			rects[id] = append(rects[id], geom.Polygon{geom.Ring{
				{X: x0, Y: y1},
				{X: x1, Y: y1},
				{X: x1, Y: y0},
				{X: x0, Y: y0},
			}})
		}
	}

	ids := make([]int, 0, len(rects))

	for id := range rects {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	fs := geom.NewFeatureSet()

	for _, id := range ids {
		for _, p := range geom.Union(rects[id]) {
			f := geom.NewPolygonFeature(p)
			f.SetAttr(geom.FieldGridCode, float64(id))
			f.SetAttr(geom.FieldArea, p.Area())
			fs.Append(f)
		}
	}

	return fs, nil
}

// Buffer expands every polygon feature outward by a map unit distance
// with rounded corners, carrying the source attributes over and
// recomputing Shape_Area
func (e *Engine) Buffer(fs *geom.FeatureSet, distance float64) (*geom.FeatureSet, error) {

	if err := e.check(); err != nil {
		return nil, err
	}

	out := geom.NewFeatureSet()

	for i := range fs.Features {
		f := &fs.Features[i]

		if f.Type != geom.GeometryPolygon {
			return nil, fmt.Errorf("feature %d: cannot buffer point features", i)
		}

		for _, p := range geom.Buffer(f.Polygon, distance) {
			nf := geom.NewPolygonFeature(p)

			for k, v := range f.Attrs {
				nf.SetAttr(k, v)
			}

			nf.SetAttr(geom.FieldArea, p.Area())
			out.Append(nf)
		}
	}

	return out, nil
}

// Dissolve merges overlapping polygon features, each merged polygon
// becomes its own single part feature with a fresh Shape_Area
func (e *Engine) Dissolve(fs *geom.FeatureSet) (*geom.FeatureSet, error) {

	if err := e.check(); err != nil {
		return nil, err
	}

	var polys []geom.Polygon

	for i := range fs.Features {
		if fs.Features[i].Type == geom.GeometryPolygon {
			polys = append(polys, fs.Features[i].Polygon)
		}
	}

	out := geom.NewFeatureSet()

	for _, p := range geom.Union(polys) {
		f := geom.NewPolygonFeature(p)
		f.SetAttr(geom.FieldArea, p.Area())
		out.Append(f)
	}

	return out, nil
}
