package opencv

import (
	"fmt"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/floats"

	"github.com/forestquant/go-deadtrees"
)

// kmeansAttempts is the number of times clustering is restarted with
// fresh initial centers, the best run wins
const kmeansAttempts = 3

// checkClusterInput validates a raster for classification and returns
// its dimensions and band count
func checkClusterInput(or *Raster) (w, h, ch int, err error) {

	w, h = or.Size()
	ch = or.mat.Channels()

	switch or.mat.Type() {
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC4:
	default:
		return 0, 0, 0, fmt.Errorf("classification requires an 8 bit raster with 1, 3 or 4 bands")
	}

	return w, h, ch, nil
}

// dataCell reports whether cell i holds data in any band
func dataCell(cells []byte, i, ch int) bool {

	off := i * ch

	for c := 0; c < ch; c++ {
		if cells[off+c] != 0 {
			return true
		}
	}

	return false
}

// channelBand maps a mat channel index to the 1-based spectral band it
// carries, the inverse of bandChannel
func channelBand(channels, c int) int {

	if channels == 1 {
		return 1
	}

	if c <= 2 {
		return 3 - c
	}

	return c + 1
}

// ClusterClassify segments a raster into classes by k-means clustering
// of its band values. NoData cells are excluded from clustering and
// stay NoData. Classes are numbered 1 upward by ascending mean
// brightness, so the brightest cluster always receives the highest
// class number.
func (e *Engine) ClusterClassify(r deadtrees.Raster, classes int) (deadtrees.Raster, *deadtrees.Signature, error) {

	if err := e.check(); err != nil {
		return nil, nil, err
	}

	if classes < 2 {
		return nil, nil, fmt.Errorf("need at least 2 classes, got %d", classes)
	}

	or, err := toRaster(r)

	if err != nil {
		return nil, nil, err
	}

	w, h, ch, err := checkClusterInput(or)

	if err != nil {
		return nil, nil, err
	}

	cells := or.mat.ToBytes()
	n := 0

	for i := 0; i < w*h; i++ {
		if dataCell(cells, i, ch) {
			n++
		}
	}

	if n < classes {
		return nil, nil, fmt.Errorf("raster has %d data cells, need at least %d",
			n, classes)
	}

	// one sample row per data cell
	samples := gocv.NewMatWithSize(n, ch, gocv.MatTypeCV32F)
	defer samples.Close()

	sdata, err := samples.DataPtrFloat32()

	if err != nil {
		return nil, nil, fmt.Errorf("error accessing sample memory: %w", err)
	}

	si := 0

	for i := 0; i < w*h; i++ {
		if !dataCell(cells, i, ch) {
			continue
		}

		for c := 0; c < ch; c++ {
			sdata[si*ch+c] = float32(cells[i*ch+c])
		}

		si++
	}

	labels := gocv.NewMat()
	defer labels.Close()

	centers := gocv.NewMat()
	defer centers.Close()

	criteria := gocv.NewTermCriteria(gocv.MaxIter+gocv.EPS, 100, 1.0)

	gocv.KMeans(samples, classes, &labels, criteria, kmeansAttempts,
		gocv.KMeansPPCenters, &centers)

	// renumber clusters so class numbers rise with brightness
	bright := make([]float64, classes)

	for k := 0; k < classes; k++ {
		sum := 0.0

		for c := 0; c < ch; c++ {
			sum += float64(centers.GetFloatAt(k, c))
		}

		bright[k] = sum / float64(ch)
	}

	order := make([]int, classes)
	sorted := append([]float64(nil), bright...)
	floats.Argsort(sorted, order)

	classOf := make([]int, classes)

	for rank, cluster := range order {
		classOf[cluster] = rank + 1
	}

	sig := deadtrees.NewSignature(classes, ch)

	for k := 0; k < classes; k++ {
		for c := 0; c < ch; c++ {
			sig.SetCenter(classOf[k], channelBand(ch, c),
				float64(centers.GetFloatAt(k, c)))
		}
	}

	out := gocv.NewMatWithSizeFromScalar(zero, h, w, gocv.MatTypeCV8UC1)
	si = 0

	for i := 0; i < w*h; i++ {
		if !dataCell(cells, i, ch) {
			continue
		}

		cluster := int(labels.GetIntAt(si, 0))
		out.SetUCharAt(i/w, i%w, uint8(classOf[cluster]))
		si++
	}

	return newRaster(out, or.ref), sig, nil
}

// Classify assigns each data cell to the nearest class center of a
// previously computed signature
func (e *Engine) Classify(r deadtrees.Raster, sig *deadtrees.Signature) (deadtrees.Raster, error) {

	if err := e.check(); err != nil {
		return nil, err
	}

	or, err := toRaster(r)

	if err != nil {
		return nil, err
	}

	w, h, ch, err := checkClusterInput(or)

	if err != nil {
		return nil, err
	}

	if sig.Bands() != ch {
		return nil, fmt.Errorf("signature has %d bands but raster has %d",
			sig.Bands(), ch)
	}

	classes := sig.Classes()

	// class centers in mat channel order
	centers := make([][]float64, classes)

	for k := 0; k < classes; k++ {
		vec := make([]float64, ch)

		for c := 0; c < ch; c++ {
			vec[c] = sig.Center(k+1, channelBand(ch, c))
		}

		centers[k] = vec
	}

	cells := or.mat.ToBytes()

	out := gocv.NewMatWithSizeFromScalar(zero, h, w, gocv.MatTypeCV8UC1)
	vec := make([]float64, ch)

	for i := 0; i < w*h; i++ {
		if !dataCell(cells, i, ch) {
			continue
		}

		for c := 0; c < ch; c++ {
			vec[c] = float64(cells[i*ch+c])
		}

		best := 0
		bestDist := floats.Distance(vec, centers[0], 2)

		for k := 1; k < classes; k++ {
			if d := floats.Distance(vec, centers[k], 2); d < bestDist {
				best = k
				bestDist = d
			}
		}

		out.SetUCharAt(i/w, i%w, uint8(best+1))
	}

	return newRaster(out, or.ref), nil
}
