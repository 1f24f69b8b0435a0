package deadtrees

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/forestquant/go-deadtrees/geom"
)

// square returns a closed axis aligned square ring as a polygon
func square(x, y, size float64) geom.Polygon {
	return geom.Polygon{geom.Ring{
		{X: x, Y: y},
		{X: x + size, Y: y},
		{X: x + size, Y: y + size},
		{X: x, Y: y + size},
	}}
}

type fakeRaster struct {
	closed bool
}

func (r *fakeRaster) Size() (int, int) {
	return 8, 8
}

func (r *fakeRaster) Bands() int {
	return 3
}

func (r *fakeRaster) CellSize() float64 {
	return 1
}

func (r *fakeRaster) Bounds() geom.Rect {
	return geom.Rect{MaxX: 8, MaxY: 8}
}

func (r *fakeRaster) Close() error {
	r.closed = true
	return nil
}

// fakeEngine records the operations run against it and produces a
// small scripted feature flow so Detector runs can be asserted on
type fakeEngine struct {
	files   map[string]bool
	saved   []string
	deleted []string
	ops     []string
	rasters []*fakeRaster
	// recorded call arguments
	remap       map[int]int
	clusterK    int
	expandCells int
	expandClass []int
	bufferDist  float64
	// failOp makes the named operation return an error
	failOp string
}

func newFakeEngine(inputs ...string) *fakeEngine {

	e := &fakeEngine{files: make(map[string]bool)}

	for _, f := range inputs {
		e.files[f] = true
	}

	return e
}

func (e *fakeEngine) op(name string) error {

	e.ops = append(e.ops, name)

	if e.failOp == name {
		return fmt.Errorf("%s failed", name)
	}

	return nil
}

func (e *fakeEngine) newRaster() *fakeRaster {
	r := &fakeRaster{}
	e.rasters = append(e.rasters, r)
	return r
}

func (e *fakeEngine) LoadRaster(file string) (Raster, error) {

	if err := e.op("load_raster"); err != nil {
		return nil, err
	}

	return e.newRaster(), nil
}

func (e *fakeEngine) SaveRaster(r Raster, file string) error {

	if err := e.op("save_raster"); err != nil {
		return err
	}

	e.files[file] = true
	e.saved = append(e.saved, file)
	return nil
}

func (e *fakeEngine) LoadFeatures(file string) (*geom.FeatureSet, error) {

	if err := e.op("load_features"); err != nil {
		return nil, err
	}

	return geom.NewFeatureSet(geom.NewPolygonFeature(square(0, 0, 8))), nil
}

func (e *fakeEngine) SaveFeatures(fs *geom.FeatureSet, file string) error {

	if err := e.op("save_features"); err != nil {
		return err
	}

	e.files[file] = true
	e.saved = append(e.saved, file)
	return nil
}

func (e *fakeEngine) Exists(file string) bool {

	if e.files[file] {
		return true
	}

	_, err := os.Stat(file)
	return err == nil
}

func (e *fakeEngine) Delete(file string) error {
	delete(e.files, file)
	e.deleted = append(e.deleted, file)
	os.Remove(file)
	return nil
}

func (e *fakeEngine) ExtractByFeatures(r Raster, mask *geom.FeatureSet) (Raster, error) {

	if err := e.op("extract_features"); err != nil {
		return nil, err
	}

	return e.newRaster(), nil
}

func (e *fakeEngine) ExtractByRaster(r, mask Raster) (Raster, error) {

	if err := e.op("extract_raster"); err != nil {
		return nil, err
	}

	return e.newRaster(), nil
}

func (e *fakeEngine) ExtractBand(r Raster, band int) (Raster, error) {

	if err := e.op("extract_band"); err != nil {
		return nil, err
	}

	return e.newRaster(), nil
}

func (e *fakeEngine) ClusterClassify(r Raster, classes int) (Raster, *Signature, error) {

	if err := e.op("cluster"); err != nil {
		return nil, nil, err
	}

	e.clusterK = classes
	sig := NewSignature(classes, 3)

	// ascending brightness by class number
	for c := 1; c <= classes; c++ {
		for b := 1; b <= 3; b++ {
			sig.SetCenter(c, b, float64(c)*20)
		}
	}

	return e.newRaster(), sig, nil
}

func (e *fakeEngine) Classify(r Raster, sig *Signature) (Raster, error) {

	if err := e.op("classify"); err != nil {
		return nil, err
	}

	return e.newRaster(), nil
}

func (e *fakeEngine) Reclassify(r Raster, remap map[int]int) (Raster, error) {

	if err := e.op("reclassify"); err != nil {
		return nil, err
	}

	e.remap = remap
	return e.newRaster(), nil
}

func (e *fakeEngine) BandThreshold(r Raster, band, lo, hi int) (Raster, error) {

	if err := e.op("band_threshold"); err != nil {
		return nil, err
	}

	return e.newRaster(), nil
}

func (e *fakeEngine) MajorityFilter(r Raster) (Raster, error) {

	if err := e.op("majority_filter"); err != nil {
		return nil, err
	}

	return e.newRaster(), nil
}

func (e *fakeEngine) Expand(r Raster, cells int, classes []int) (Raster, error) {

	if err := e.op("expand"); err != nil {
		return nil, err
	}

	e.expandCells = cells
	e.expandClass = classes
	return e.newRaster(), nil
}

func (e *fakeEngine) Shrink(r Raster, cells int, classes []int) (Raster, error) {

	if err := e.op("shrink"); err != nil {
		return nil, err
	}

	return e.newRaster(), nil
}

func (e *fakeEngine) RegionGroup(r Raster) (Raster, error) {

	if err := e.op("region_group"); err != nil {
		return nil, err
	}

	return e.newRaster(), nil
}

func (e *fakeEngine) RasterToPolygons(r Raster) (*geom.FeatureSet, error) {

	if err := e.op("raster_to_polygons"); err != nil {
		return nil, err
	}

	// one crown above the area cutoff and one sliver below it
	big := geom.NewPolygonFeature(square(0, 0, 4))
	big.SetAttr(geom.FieldGridCode, 1)

	small := geom.NewPolygonFeature(square(6, 6, 0.5))
	small.SetAttr(geom.FieldGridCode, 2)

	return geom.NewFeatureSet(big, small), nil
}

func (e *fakeEngine) Buffer(fs *geom.FeatureSet, distance float64) (*geom.FeatureSet, error) {

	if err := e.op("buffer"); err != nil {
		return nil, err
	}

	e.bufferDist = distance
	out := geom.NewFeatureSet()

	for i := range fs.Features {
		b := fs.Features[i].Bounds()
		f := geom.NewPolygonFeature(square(b.MinX-distance, b.MinY-distance,
			b.Width()+2*distance))
		out.Append(f)
	}

	return out, nil
}

func (e *fakeEngine) Dissolve(fs *geom.FeatureSet) (*geom.FeatureSet, error) {

	if err := e.op("dissolve"); err != nil {
		return nil, err
	}

	return fs.Clone(), nil
}

func (e *fakeEngine) Close() error {
	return e.op("close")
}

func (e *fakeEngine) openRasters() int {

	n := 0

	for _, r := range e.rasters {
		if !r.closed {
			n++
		}
	}

	return n
}

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestDetector(t *testing.T, eng Engine, params DetectParams) (*Detector, string) {

	t.Helper()
	dir := t.TempDir()

	det, err := NewDetector(eng, dir, params)

	if err != nil {
		t.Fatalf("NewDetector failed: %v", err)
	}

	det.SetLogger(quietLogger())
	return det, dir
}

func wsRaster(dir, name, artifact string) string {
	return filepath.Join(dir, name+"_"+artifact+".tif")
}

func wsVector(dir, name, artifact string) string {
	return filepath.Join(dir, name+"_"+artifact+".geojson")
}

func TestDetectorRun(t *testing.T) {

	eng := newFakeEngine("plot1.tif", "boundary.geojson")
	det, dir := newTestDetector(t, eng, DefaultDetectParams())

	out := filepath.Join(dir, "plot1_trees.geojson")

	res, err := det.Run(Task{
		Raster: "plot1.tif",
		Mask:   "boundary.geojson",
		Output: out,
	})

	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Output != out {
		t.Errorf("got output %s, want %s", res.Output, out)
	}

	if res.Trees.Count() != 1 {
		t.Errorf("got %d trees, want 1", res.Trees.Count())
	}

	if res.DeadClass != 10 {
		t.Errorf("got dead class %d, want 10", res.DeadClass)
	}

	if res.Signature == nil || res.Signature.Classes() != 10 {
		t.Errorf("expected a 10 class signature")
	}

	if eng.clusterK != 10 {
		t.Errorf("got %d cluster classes, want 10", eng.clusterK)
	}

	if len(eng.remap) != 1 || eng.remap[10] != 1 {
		t.Errorf("got remap %v, want map[10:1]", eng.remap)
	}

	if eng.expandCells != 1 || len(eng.expandClass) != 1 || eng.expandClass[0] != 1 {
		t.Errorf("got expand %d %v, want 1 [1]", eng.expandCells, eng.expandClass)
	}

	// "1 Meters" converted to map units
	if eng.bufferDist != 1 {
		t.Errorf("got buffer distance %v, want 1", eng.bufferDist)
	}

	if !eng.files[out] {
		t.Errorf("output file was not saved")
	}

	if n := eng.openRasters(); n != 0 {
		t.Errorf("%d rasters left open", n)
	}
}

func TestDetectorRunOperationOrder(t *testing.T) {

	eng := newFakeEngine("plot1.tif", "boundary.geojson")
	det, dir := newTestDetector(t, eng, DefaultDetectParams())

	_, err := det.Run(Task{
		Raster: "plot1.tif",
		Mask:   "boundary.geojson",
		Output: filepath.Join(dir, "trees.geojson"),
	})

	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{
		"load_raster", "load_features", "extract_features",
		"cluster", "reclassify",
		"extract_band", "band_threshold", "extract_raster",
		"majority_filter", "expand", "shrink",
		"region_group", "raster_to_polygons",
		"buffer", "dissolve",
	}

	var got []string

	for _, op := range eng.ops {
		if op == "save_raster" || op == "save_features" || op == "delete" {
			continue
		}
		got = append(got, op)
	}

	if len(got) != len(want) {
		t.Fatalf("got %d operations %v, want %d", len(got), got, len(want))
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("operation %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestDetectorRunWithoutMask(t *testing.T) {

	eng := newFakeEngine("plot1.tif")
	det, dir := newTestDetector(t, eng, DefaultDetectParams())

	_, err := det.Run(Task{
		Raster: "plot1.tif",
		Output: filepath.Join(dir, "trees.geojson"),
	})

	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, op := range eng.ops {
		if op == "extract_features" || op == "load_features" {
			t.Errorf("mask extraction ran without a mask")
		}
	}

	// the unclipped input is still written as the first intermediate
	if len(eng.saved) == 0 || eng.saved[0] != wsRaster(dir, "plot1", artAerial) {
		t.Errorf("aerial image was not the first save: %v", eng.saved)
	}
}

func TestDetectorRunCleanup(t *testing.T) {

	eng := newFakeEngine("plot1.tif")
	det, dir := newTestDetector(t, eng, DefaultDetectParams())

	out := filepath.Join(dir, "trees.geojson")

	if _, err := det.Run(Task{Raster: "plot1.tif", Output: out}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	name := "plot1"

	intermediates := []string{
		wsRaster(dir, name, artAerial),
		wsRaster(dir, name, artClassified),
		wsRaster(dir, name, artDeadTrees),
		wsRaster(dir, name, artOneBand),
		wsRaster(dir, name, artBlueMask),
		wsRaster(dir, name, artFiltered),
		wsRaster(dir, name, artExpanded),
		wsRaster(dir, name, artShrinked),
		wsRaster(dir, name, artRegionGroup),
		wsVector(dir, name, artVector),
		wsVector(dir, name, artSelected),
		wsVector(dir, name, artBuffered),
		wsVector(dir, name, artDissolved),
		wsVector(dir, name, artProcessed),
	}

	for _, path := range intermediates {
		found := false

		for _, saved := range eng.saved {
			if saved == path {
				found = true
			}
		}

		if !found {
			t.Errorf("intermediate %s was never saved", filepath.Base(path))
		}

		if eng.Exists(path) {
			t.Errorf("intermediate %s was not cleaned up", filepath.Base(path))
		}
	}

	// the signature file is written and cleaned up alongside
	sig := filepath.Join(dir, name+"_signature.txt")

	if eng.Exists(sig) {
		t.Errorf("signature file was not cleaned up")
	}

	if !eng.files[out] {
		t.Errorf("output file was removed by cleanup")
	}
}

func TestDetectorKeepIntermediates(t *testing.T) {

	eng := newFakeEngine("plot1.tif")

	params := DefaultDetectParams()
	params.KeepIntermediates = true

	det, dir := newTestDetector(t, eng, params)

	if _, err := det.Run(Task{
		Raster: "plot1.tif",
		Output: filepath.Join(dir, "trees.geojson"),
	}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(eng.deleted) != 0 {
		t.Errorf("cleanup deleted %v with KeepIntermediates set", eng.deleted)
	}

	if !eng.Exists(wsRaster(dir, "plot1", artAerial)) {
		t.Errorf("intermediate datasets were not kept")
	}
}

func TestDetectorStageFailure(t *testing.T) {

	eng := newFakeEngine("plot1.tif")
	eng.failOp = "majority_filter"

	det, dir := newTestDetector(t, eng, DefaultDetectParams())

	out := filepath.Join(dir, "trees.geojson")
	_, err := det.Run(Task{Raster: "plot1.tif", Output: out})

	if err == nil {
		t.Fatalf("expected stage failure")
	}

	var stageErr *StageError

	if !errors.As(err, &stageErr) {
		t.Fatalf("got %T, want StageError", err)
	}

	if stageErr.Stage != 5 {
		t.Errorf("got stage %d, want 5", stageErr.Stage)
	}

	if !strings.Contains(err.Error(), "stage 5/10") {
		t.Errorf("got message %q, want stage 5/10 prefix", err.Error())
	}

	// intermediates written before the failure are still cleaned up
	if eng.Exists(wsRaster(dir, "plot1", artAerial)) {
		t.Errorf("cleanup did not run after stage failure")
	}

	if eng.files[out] {
		t.Errorf("output saved despite stage failure")
	}

	if n := eng.openRasters(); n != 0 {
		t.Errorf("%d rasters left open after failure", n)
	}
}

func TestDetectorClassRule(t *testing.T) {

	eng := newFakeEngine("plot1.tif")

	params := DefaultDetectParams()
	params.Rule = DarkestClass()

	det, dir := newTestDetector(t, eng, params)

	res, err := det.Run(Task{
		Raster: "plot1.tif",
		Output: filepath.Join(dir, "trees.geojson"),
	})

	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.DeadClass != 1 {
		t.Errorf("got dead class %d, want 1", res.DeadClass)
	}

	if len(eng.remap) != 1 || eng.remap[1] != 1 {
		t.Errorf("got remap %v, want map[1:1]", eng.remap)
	}
}

func TestDetectorTaskValidation(t *testing.T) {

	eng := newFakeEngine("plot1.tif")
	det, dir := newTestDetector(t, eng, DefaultDetectParams())

	tests := []struct {
		name string
		task Task
	}{
		{"no raster", Task{Output: "out.geojson"}},
		{"no output", Task{Raster: "plot1.tif"}},
		{"missing raster", Task{Raster: "absent.tif", Output: "out.geojson"}},
		{"missing mask", Task{Raster: "plot1.tif", Mask: "absent.geojson",
			Output: filepath.Join(dir, "out.geojson")}},
	}

	for _, tc := range tests {
		if _, err := det.Run(tc.task); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestNewDetectorValidation(t *testing.T) {

	eng := newFakeEngine()
	dir := t.TempDir()

	if _, err := NewDetector(nil, dir, DefaultDetectParams()); err == nil {
		t.Errorf("expected error for nil engine")
	}

	params := DefaultDetectParams()
	params.Classes = 1

	if _, err := NewDetector(eng, dir, params); err == nil {
		t.Errorf("expected error for single class")
	}

	if _, err := NewDetector(eng, filepath.Join(dir, "absent"),
		DefaultDetectParams()); err == nil {
		t.Errorf("expected error for missing workspace directory")
	}
}
