package deadtrees

import (
	"errors"

	"github.com/forestquant/go-deadtrees/geom"
)

// ErrEngineClosed is returned by Engine operations called after Close
var ErrEngineClosed = errors.New("engine is closed")

// Raster is a georeferenced grid of cell values held by an Engine.
// Cell value zero is the NoData marker throughout the pipeline.
type Raster interface {
	// Size returns the raster dimensions in cells
	Size() (width, height int)
	// Bands returns the number of bands
	Bands() int
	// CellSize returns the ground size of one cell in map units
	CellSize() float64
	// Bounds returns the raster extent in map coordinates
	Bounds() geom.Rect
	// Close releases the raster resources
	Close() error
}

// Engine performs the raster and vector operations the detection
// pipeline is built from. Implementations are not required to be
// safe for concurrent use.
type Engine interface {

	// LoadRaster reads a raster dataset from file
	LoadRaster(file string) (Raster, error)

	// SaveRaster writes a raster dataset to file
	SaveRaster(r Raster, file string) error

	// LoadFeatures reads a vector dataset from file
	LoadFeatures(file string) (*geom.FeatureSet, error)

	// SaveFeatures writes a vector dataset to file
	SaveFeatures(fs *geom.FeatureSet, file string) error

	// Exists reports whether a dataset file is present
	Exists(file string) bool

	// Delete removes a dataset file and any sidecar files
	Delete(file string) error

	// ExtractByFeatures clips a raster to the polygons of a mask
	// feature set, cells outside become NoData
	ExtractByFeatures(r Raster, mask *geom.FeatureSet) (Raster, error)

	// ExtractByRaster keeps the cells of r where mask has data,
	// cells where mask is NoData become NoData
	ExtractByRaster(r, mask Raster) (Raster, error)

	// ExtractBand returns the given 1-based spectral band of a
	// multiband raster as a single band raster
	ExtractBand(r Raster, band int) (Raster, error)

	// ClusterClassify segments a raster into classes numbered 1..classes
	// by unsupervised clustering and returns the class signature
	ClusterClassify(r Raster, classes int) (Raster, *Signature, error)

	// Classify assigns each cell of r to the nearest class of a
	// previously computed signature
	Classify(r Raster, sig *Signature) (Raster, error)

	// Reclassify maps cell values through remap, values without an
	// entry become NoData
	Reclassify(r Raster, remap map[int]int) (Raster, error)

	// BandThreshold produces a binary raster with value one where the
	// given band of r lies in [lo, hi] inclusive
	BandThreshold(r Raster, band, lo, hi int) (Raster, error)

	// MajorityFilter replaces each cell with the majority value of
	// its neighborhood to remove speckle
	MajorityFilter(r Raster) (Raster, error)

	// Expand grows the given classes of r by cells, filling only
	// NoData cells
	Expand(r Raster, cells int, classes []int) (Raster, error)

	// Shrink contracts the given classes of r by cells, removed
	// cells become NoData
	Shrink(r Raster, cells int, classes []int) (Raster, error)

	// RegionGroup assigns a unique id to each connected region of
	// data cells
	RegionGroup(r Raster) (Raster, error)

	// RasterToPolygons converts the regions of a grouped raster into
	// polygon features without simplifying cell edges
	RasterToPolygons(r Raster) (*geom.FeatureSet, error)

	// Buffer expands polygon features outward by a map unit distance
	Buffer(fs *geom.FeatureSet, distance float64) (*geom.FeatureSet, error)

	// Dissolve merges overlapping polygon features into single part
	// polygons
	Dissolve(fs *geom.FeatureSet) (*geom.FeatureSet, error)

	// Close releases the engine resources
	Close() error
}
