package opencv

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/forestquant/go-deadtrees"
	"github.com/forestquant/go-deadtrees/geom"
)

// Raster is a deadtrees.Raster backed by a gocv.Mat
type Raster struct {
	mat gocv.Mat
	ref Georef
}

func newRaster(mat gocv.Mat, ref Georef) *Raster {
	return &Raster{mat: mat, ref: ref}
}

// NewRaster anchors a mat in map coordinates, the raster takes
// ownership of the mat and releases it on Close
func NewRaster(mat gocv.Mat, ref Georef) *Raster {
	return newRaster(mat, ref)
}

// Size returns the raster dimensions in cells
func (r *Raster) Size() (width, height int) {
	return r.mat.Cols(), r.mat.Rows()
}

// Bands returns the number of bands
func (r *Raster) Bands() int {
	return r.mat.Channels()
}

// CellSize returns the ground size of one cell in map units
func (r *Raster) CellSize() float64 {
	return r.ref.CellSize
}

// Bounds returns the raster extent in map coordinates
func (r *Raster) Bounds() geom.Rect {
	return r.ref.Bounds(r.mat.Cols(), r.mat.Rows())
}

// Close releases the underlying mat
func (r *Raster) Close() error {
	return r.mat.Close()
}

// Mat returns the underlying gocv mat
func (r *Raster) Mat() gocv.Mat {
	return r.mat
}

// Georef returns the raster georeferencing
func (r *Raster) Georef() Georef {
	return r.ref
}

// toRaster asserts a deadtrees.Raster was produced by this engine
func toRaster(r deadtrees.Raster) (*Raster, error) {

	or, ok := r.(*Raster)

	if !ok {
		return nil, fmt.Errorf("raster type %T was not created by this engine", r)
	}

	return or, nil
}
