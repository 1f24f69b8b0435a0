package deadtrees

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/forestquant/go-deadtrees/geom"
)

// pipelineStages is the number of stages in the detection pipeline
const pipelineStages = 10

// intermediate dataset names, prefixed with the task name inside the
// workspace
const (
	artAerial      = "aerial_image"
	artClassified  = "classified"
	artDeadTrees   = "dead_trees"
	artOneBand     = "extracted_raster_one_band"
	artBlueMask    = "blue_mask"
	artFiltered    = "filtered"
	artExpanded    = "expanded"
	artShrinked    = "shrinked"
	artRegionGroup = "region_group"
	artVector      = "dead_trees_vector"
	artSelected    = "dead_trees_selected"
	artBuffered    = "buffered_trees"
	artDissolved   = "dissolved_buffer"
	artProcessed   = "trees_buffer_processed"
)

// Task describes one detection run
type Task struct {
	// Raster is the input aerial image file
	Raster string
	// Mask is an optional polygon feature file the input is clipped
	// to before classification
	Mask string
	// Output is the file the final dead tree features are written to
	Output string
	// Name prefixes the intermediate dataset names, defaults to the
	// input raster base name
	Name string
}

// Result holds the outputs of a detection run
type Result struct {
	// Output is the file the dead tree features were written to
	Output string
	// Trees holds the final dead tree features
	Trees *geom.FeatureSet
	// Signature holds the classification class centers
	Signature *Signature
	// DeadClass is the class number selected as dead trees
	DeadClass int
}

// StageError reports which pipeline stage failed
type StageError struct {
	// Stage is the 1-based stage number
	Stage int
	// Name is the short stage name
	Name string
	// Err is the underlying error
	Err error
}

// Error returns the error message
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %d/%d (%s): %v", e.Stage, pipelineStages,
		e.Name, e.Err)
}

// Unwrap returns the underlying error
func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage int, name string, err error) error {
	return &StageError{Stage: stage, Name: name, Err: err}
}

// Detector runs the dead tree detection pipeline
type Detector struct {
	eng     Engine
	params  DetectParams
	workDir string
	// buffer distance converted to map units
	bufferDist float64
	rule       ClassRule
	log        logrus.FieldLogger
}

// NewDetector returns a Detector running on the given engine, writing
// intermediate datasets to workDir
func NewDetector(eng Engine, workDir string, params DetectParams) (*Detector, error) {

	if eng == nil {
		return nil, fmt.Errorf("no engine provided")
	}

	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	info, err := os.Stat(workDir)

	if err != nil {
		return nil, fmt.Errorf("workspace directory: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("workspace %s is not a directory", workDir)
	}

	// validated above
	dist, _ := ParseDistance(params.BufferDistance)

	rule := params.Rule

	if rule == nil {
		rule = FixedClass(params.Classes)
	}

	return &Detector{
		eng:        eng,
		params:     params,
		workDir:    workDir,
		bufferDist: dist,
		rule:       rule,
		log:        logrus.StandardLogger(),
	}, nil
}

// SetLogger sets the logger used to report pipeline progress
func (d *Detector) SetLogger(log logrus.FieldLogger) {
	d.log = log
}

// rasterList tracks open rasters so a run can close them all on exit
type rasterList struct {
	open []Raster
}

func (l *rasterList) keep(r Raster) Raster {
	l.open = append(l.open, r)
	return r
}

func (l *rasterList) closeAll() {
	for i := len(l.open) - 1; i >= 0; i-- {
		l.open[i].Close()
	}
}

func stageLabel(stage int) string {
	return fmt.Sprintf("%d/%d", stage, pipelineStages)
}

// Run executes the detection pipeline for a task. Intermediate
// datasets are removed before returning unless KeepIntermediates is
// set, the output feature file is always kept.
func (d *Detector) Run(task Task) (*Result, error) {

	if task.Raster == "" {
		return nil, fmt.Errorf("task has no input raster")
	}

	if task.Output == "" {
		return nil, fmt.Errorf("task has no output file")
	}

	if !d.eng.Exists(task.Raster) {
		return nil, fmt.Errorf("input raster %s does not exist", task.Raster)
	}

	if task.Mask != "" && !d.eng.Exists(task.Mask) {
		return nil, fmt.Errorf("mask features %s do not exist", task.Mask)
	}

	name := task.Name

	if name == "" {
		name = strings.TrimSuffix(filepath.Base(task.Raster),
			filepath.Ext(task.Raster))
	}

	ws, err := NewWorkspace(d.workDir, name)

	if err != nil {
		return nil, err
	}

	log := d.log.WithField("task", ws.Name())

	defer func() {
		if d.params.KeepIntermediates {
			return
		}

		n := ws.Cleanup(d.eng)
		log.WithField("deleted", n).Debug("removed intermediate datasets")
	}()

	rasters := &rasterList{}
	defer rasters.closeAll()

	// stage 1, load the aerial image and clip it to the mask
	log.WithField("stage", stageLabel(1)).Info("extracting aerial image")

	input, err := d.eng.LoadRaster(task.Raster)

	if err != nil {
		return nil, stageErr(1, "extract", err)
	}

	base := rasters.keep(input)

	if task.Mask != "" {
		mask, err := d.eng.LoadFeatures(task.Mask)

		if err != nil {
			return nil, stageErr(1, "extract", err)
		}

		clipped, err := d.eng.ExtractByFeatures(base, mask)

		if err != nil {
			return nil, stageErr(1, "extract", err)
		}

		base = rasters.keep(clipped)
	}

	if err := d.eng.SaveRaster(base, ws.RasterPath(artAerial)); err != nil {
		return nil, stageErr(1, "extract", err)
	}

	// stage 2, unsupervised classification
	log.WithField("stage", stageLabel(2)).
		WithField("classes", d.params.Classes).Info("classifying image")

	classified, sig, err := d.eng.ClusterClassify(base, d.params.Classes)

	if err != nil {
		return nil, stageErr(2, "classify", err)
	}

	rasters.keep(classified)

	if err := d.eng.SaveRaster(classified, ws.RasterPath(artClassified)); err != nil {
		return nil, stageErr(2, "classify", err)
	}

	if err := sig.Save(ws.SignaturePath()); err != nil {
		return nil, stageErr(2, "classify", err)
	}

	// stage 3, keep only the dead tree class
	deadClass, err := d.rule(sig)

	if err != nil {
		return nil, stageErr(3, "reclassify", err)
	}

	log.WithField("stage", stageLabel(3)).
		WithField("class", deadClass).Info("reclassifying dead tree class")

	dead, err := d.eng.Reclassify(classified, map[int]int{deadClass: 1})

	if err != nil {
		return nil, stageErr(3, "reclassify", err)
	}

	rasters.keep(dead)

	if err := d.eng.SaveRaster(dead, ws.RasterPath(artDeadTrees)); err != nil {
		return nil, stageErr(3, "reclassify", err)
	}

	// stage 4, mask by the spectral band range
	log.WithField("stage", stageLabel(4)).Info("masking by band range")

	oneBand, err := d.eng.ExtractBand(base, d.params.Band)

	if err != nil {
		return nil, stageErr(4, "band mask", err)
	}

	rasters.keep(oneBand)

	if err := d.eng.SaveRaster(oneBand, ws.RasterPath(artOneBand)); err != nil {
		return nil, stageErr(4, "band mask", err)
	}

	blueMask, err := d.eng.BandThreshold(oneBand, 1, d.params.BandMin,
		d.params.BandMax)

	if err != nil {
		return nil, stageErr(4, "band mask", err)
	}

	rasters.keep(blueMask)

	if err := d.eng.SaveRaster(blueMask, ws.RasterPath(artBlueMask)); err != nil {
		return nil, stageErr(4, "band mask", err)
	}

	masked, err := d.eng.ExtractByRaster(dead, blueMask)

	if err != nil {
		return nil, stageErr(4, "band mask", err)
	}

	rasters.keep(masked)

	// stage 5, majority filter removes speckle
	log.WithField("stage", stageLabel(5)).Info("filtering speckle")

	filtered, err := d.eng.MajorityFilter(masked)

	if err != nil {
		return nil, stageErr(5, "majority filter", err)
	}

	rasters.keep(filtered)

	if err := d.eng.SaveRaster(filtered, ws.RasterPath(artFiltered)); err != nil {
		return nil, stageErr(5, "majority filter", err)
	}

	// stage 6, expand then shrink closes small gaps between crowns
	log.WithField("stage", stageLabel(6)).Info("expanding and shrinking regions")

	expanded, err := d.eng.Expand(filtered, 1, []int{1})

	if err != nil {
		return nil, stageErr(6, "expand shrink", err)
	}

	rasters.keep(expanded)

	if err := d.eng.SaveRaster(expanded, ws.RasterPath(artExpanded)); err != nil {
		return nil, stageErr(6, "expand shrink", err)
	}

	shrinked, err := d.eng.Shrink(expanded, 1, []int{1})

	if err != nil {
		return nil, stageErr(6, "expand shrink", err)
	}

	rasters.keep(shrinked)

	if err := d.eng.SaveRaster(shrinked, ws.RasterPath(artShrinked)); err != nil {
		return nil, stageErr(6, "expand shrink", err)
	}

	// stage 7, group connected regions and convert to polygons
	log.WithField("stage", stageLabel(7)).Info("grouping regions into polygons")

	regions, err := d.eng.RegionGroup(shrinked)

	if err != nil {
		return nil, stageErr(7, "region group", err)
	}

	rasters.keep(regions)

	if err := d.eng.SaveRaster(regions, ws.RasterPath(artRegionGroup)); err != nil {
		return nil, stageErr(7, "region group", err)
	}

	polys, err := d.eng.RasterToPolygons(regions)

	if err != nil {
		return nil, stageErr(7, "region group", err)
	}

	if err := d.eng.SaveFeatures(polys, ws.VectorPath(artVector)); err != nil {
		return nil, stageErr(7, "region group", err)
	}

	// stage 8, drop polygons below the minimum crown area
	log.WithField("stage", stageLabel(8)).
		WithField("min_area", d.params.MinArea).Info("selecting by area")

	polys.CalculateArea()

	selected := polys.Select(func(f *geom.Feature) bool {
		return f.Attr(geom.FieldArea) > d.params.MinArea
	})

	if err := d.eng.SaveFeatures(selected, ws.VectorPath(artSelected)); err != nil {
		return nil, stageErr(8, "area select", err)
	}

	// stage 9, buffer, dissolve and drop small buffers
	log.WithField("stage", stageLabel(9)).
		WithField("distance", d.params.BufferDistance).Info("buffering polygons")

	buffered, err := d.eng.Buffer(selected, d.bufferDist)

	if err != nil {
		return nil, stageErr(9, "buffer", err)
	}

	if err := d.eng.SaveFeatures(buffered, ws.VectorPath(artBuffered)); err != nil {
		return nil, stageErr(9, "buffer", err)
	}

	dissolved, err := d.eng.Dissolve(buffered)

	if err != nil {
		return nil, stageErr(9, "buffer", err)
	}

	if err := d.eng.SaveFeatures(dissolved, ws.VectorPath(artDissolved)); err != nil {
		return nil, stageErr(9, "buffer", err)
	}

	dissolved.CalculateArea()

	processed := dissolved.Select(func(f *geom.Feature) bool {
		return f.Attr(geom.FieldArea) > d.params.MinBufferArea
	})

	if err := d.eng.SaveFeatures(processed, ws.VectorPath(artProcessed)); err != nil {
		return nil, stageErr(9, "buffer", err)
	}

	// stage 10, write the final features outside the workspace
	log.WithField("stage", stageLabel(10)).
		WithField("trees", processed.Count()).Info("saving dead tree features")

	if err := d.eng.SaveFeatures(processed, task.Output); err != nil {
		return nil, stageErr(10, "save output", err)
	}

	return &Result{
		Output:    task.Output,
		Trees:     processed,
		Signature: sig,
		DeadClass: deadClass,
	}, nil
}
