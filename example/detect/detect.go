/*
Example code showing how to detect probable dead trees in a single
aerial image and save them as polygon features
*/
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/sirupsen/logrus"

	deadtrees "github.com/forestquant/go-deadtrees"
	"github.com/forestquant/go-deadtrees/geom"
	"github.com/forestquant/go-deadtrees/opencv"
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	imgFile := flag.String("i", "../data/plot.tif", "Aerial image to detect dead trees on")
	maskFile := flag.String("f", "", "Optional forest mask polygon file the image is clipped to")
	workDir := flag.String("w", ".", "Workspace directory for intermediate datasets")
	outFile := flag.String("o", "./dead-trees-out.geojson", "Output feature file for the detected dead trees")
	sigFile := flag.String("sig", "", "Optional file to save the classification signature to")
	classes := flag.Int("c", 10, "Number of classes for unsupervised classification")
	minArea := flag.Float64("a", 1.0, "Minimum crown polygon area in square meters")
	bufDist := flag.String("b", "1 Meters", "Buffer distance as a linear unit string")
	minBufArea := flag.Float64("ba", 30.0, "Minimum dissolved buffer area in square meters")
	band := flag.Int("band", 3, "Spectral band used for thresholding, 1 based")
	bandMin := flag.Int("bmin", 150, "Lower band threshold value, inclusive")
	bandMax := flag.Int("bmax", 250, "Upper band threshold value, inclusive")
	rule := flag.String("rule", "fixed", "Dead tree class selection rule [fixed|brightest|darkest]")
	keep := flag.Bool("k", false, "Keep intermediate datasets for inspection")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	params := deadtrees.DefaultDetectParams()
	params.Classes = *classes
	params.MinArea = *minArea
	params.BufferDistance = *bufDist
	params.MinBufferArea = *minBufArea
	params.Band = *band
	params.BandMin = *bandMin
	params.BandMax = *bandMax
	params.KeepIntermediates = *keep

	switch *rule {
	case "fixed":
		// the highest class number, the detector default
	case "brightest":
		params.Rule = deadtrees.BrightestClass()
	case "darkest":
		params.Rule = deadtrees.DarkestClass()
	default:
		log.Fatalf("Unknown class rule %q, use fixed, brightest or darkest", *rule)
	}

	// create the OpenCV backed geospatial engine
	eng, err := opencv.NewEngine()

	if err != nil {
		log.Fatal("Error initializing engine: ", err)
	}

	defer eng.Close()

	log.Println("OpenCV version:", eng.Version())

	det, err := deadtrees.NewDetector(eng, *workDir, params)

	if err != nil {
		log.Fatal("Error creating detector: ", err)
	}

	res, err := det.Run(deadtrees.Task{
		Raster: *imgFile,
		Mask:   *maskFile,
		Output: *outFile,
	})

	if err != nil {
		log.Fatal("Detection failed: ", err)
	}

	fmt.Printf("Detected %d dead tree regions using class %d of %d\n",
		res.Trees.Count(), res.DeadClass, params.Classes)

	for i := range res.Trees.Features {
		f := &res.Trees.Features[i]
		c := f.Polygon.Centroid()
		fmt.Printf("  region %d @ (%.1f %.1f) area %.1f m2\n",
			i+1, c.X, c.Y, f.Attr(geom.FieldArea))
	}

	// the signature can classify further images of the same flight with
	// the Classify capability
	if *sigFile != "" {
		if err := res.Signature.Save(*sigFile); err != nil {
			log.Fatal("Error saving signature: ", err)
		}

		log.Println("Signature saved to", *sigFile)
	}

	log.Println("Features written to", res.Output)
}
