/*
Example code showing how to validate detected dead tree polygons
against ground truth points and report precision, recall and F1 for
both metric views
*/
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"gocv.io/x/gocv"

	"github.com/forestquant/go-deadtrees/eval"
	"github.com/forestquant/go-deadtrees/geom"
	"github.com/forestquant/go-deadtrees/opencv"
	"github.com/forestquant/go-deadtrees/render"
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	detFile := flag.String("d", "./dead-trees-out.geojson", "Detected dead tree feature file")
	truthFile := flag.String("t", "../data/ground-truth.csv", "Ground truth point file, GeoJSON or x,y csv")
	clip := flag.Bool("clip", false, "Drop ground truth points outside the detected feature extent")
	imgFile := flag.String("i", "", "Aerial image to draw the overlay on")
	overlayFile := flag.String("o", "", "Overlay image output file, requires -i")
	ttfFont := flag.String("ttf", "", "Optional TTF font file for the overlay title")

	flag.Parse()

	eng, err := opencv.NewEngine()

	if err != nil {
		log.Fatal("Error initializing engine: ", err)
	}

	defer eng.Close()

	polygons, err := eng.LoadFeatures(*detFile)

	if err != nil {
		log.Fatal("Error loading detected features: ", err)
	}

	points, err := eng.LoadFeatures(*truthFile)

	if err != nil {
		log.Fatal("Error loading ground truth points: ", err)
	}

	// points surveyed outside the imaged stand would count as false
	// positives the detector never saw
	if *clip && polygons.Count() > 0 {
		points = points.Within(polygons.Bounds())
	}

	report := eval.Evaluate(polygons, points)

	if err := report.Write(os.Stdout); err != nil {
		log.Fatal("Error writing report: ", err)
	}

	if *overlayFile == "" {
		return
	}

	if *imgFile == "" {
		log.Fatal("The overlay needs the aerial image, give it with -i")
	}

	if err := drawOverlay(eng, *imgFile, *overlayFile, *ttfFont,
		polygons, points, report); err != nil {
		log.Fatal("Error drawing overlay: ", err)
	}

	log.Println("Overlay written to", *overlayFile)
}

// drawOverlay paints the detected polygons and the matched and missed
// ground truth points over the aerial image
func drawOverlay(eng *opencv.Engine, imgFile, outFile, ttfFont string,
	polygons, points *geom.FeatureSet, report *eval.Report) error {

	r, err := eng.LoadRaster(imgFile)

	if err != nil {
		return err
	}

	defer r.Close()

	or, ok := r.(*opencv.Raster)

	if !ok {
		return fmt.Errorf("raster %s is not an opencv raster", imgFile)
	}

	ref := or.Georef()

	project := func(x, y float64) (int, int) {
		return ref.WorldToPixel(x, y)
	}

	img := or.Mat()

	// tint each detected region its own color so neighboring crowns
	// stay tellable apart, then outline them all
	palette := render.RegionPalette(polygons.Count())

	for i := range polygons.Features {
		one := geom.NewFeatureSet(polygons.Features[i])
		render.FillPolygons(&img, one, project, palette[i], 0.35)
	}

	render.Polygons(&img, polygons, project, render.Tree, 2)

	// the join count tells matched and missed truth points apart
	joined := eval.SpatialJoin(points, polygons)

	matched := joined.Select(func(f *geom.Feature) bool {
		return f.Attr(geom.FieldJoinCount) != 0
	})

	missed := joined.Select(func(f *geom.Feature) bool {
		return f.Attr(geom.FieldJoinCount) == 0
	})

	render.Points(&img, matched, project, render.Matched, 4)
	render.Points(&img, missed, project, render.Missed, 4)

	font := render.DefaultFont()

	render.Labels(&img, polygons, project, func(f *geom.Feature) string {
		return fmt.Sprintf("%.0f m2", f.Attr(geom.FieldArea))
	}, font)

	// a TTF face renders the summary line nicer than the Hershey fonts
	if ttfFont != "" {
		face, err := render.LoadFace(ttfFont, 22)

		if err != nil {
			return err
		}

		title := fmt.Sprintf("%d detections, %d truth points", polygons.Count(),
			points.Count())

		if m, err := report.PointView(); err == nil {
			title = fmt.Sprintf("%s, %s", title, m)
		}

		if err := render.TTFText(&img, face, title, 10, 30, render.Yellow); err != nil {
			return err
		}
	}

	if ok := gocv.IMWrite(outFile, img); !ok {
		return fmt.Errorf("failed to write overlay %s", outFile)
	}

	return nil
}
