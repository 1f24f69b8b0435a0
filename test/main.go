/*
Generates a synthetic aerial plot with dead tree crowns and a matching
ground truth point file, so the example commands can be tried without
real survey data
*/
package main

import (
	"flag"
	"image"
	"image/color"
	"log"

	"gocv.io/x/gocv"

	"github.com/forestquant/go-deadtrees/geom"
	"github.com/forestquant/go-deadtrees/opencv"
)

func main() {

	log.SetFlags(0)

	outImg := flag.String("o", "plot.tif", "Output raster file")
	outPts := flag.String("t", "ground-truth.csv", "Output ground truth point file")
	crowns := flag.Int("n", 12, "Number of dead tree crowns to place")
	seed := flag.Int64("seed", 42, "Random seed for crown placement")

	flag.Parse()

	const (
		cols = 400
		rows = 400
		// 0.25 m cells, a 100 by 100 meter plot
		cell = 0.25
	)

	ref := opencv.Georef{CellSize: cell, OriginX: 351200, OriginY: 5713800}

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0),
		rows, cols, gocv.MatTypeCV8UC3)

	// live canopy backdrop, greens darkening toward the bottom so the
	// clustering has more than two values to separate
	for row := 0; row < rows; row++ {
		g := uint8(100 - 40*row/rows)
		clr := color.RGBA{R: g / 2, G: g, B: 30}

		gocv.Line(&img, image.Pt(0, row), image.Pt(cols-1, row), clr, 1)
	}

	// keep crowns away from the plot edge so their buffers stay inside
	bounds := ref.Bounds(cols, rows)

	inner := geom.Rect{
		MinX: bounds.MinX + 8, MinY: bounds.MinY + 8,
		MaxX: bounds.MaxX - 8, MaxY: bounds.MaxY - 8,
	}

	truth := geom.RandomPoints(inner, *crowns, *seed)

	for i := range truth.Features {
		pt := truth.Features[i].Point
		col, row := ref.WorldToPixel(pt.X, pt.Y)

		// dead crowns image bright with a strong blue component,
		// radii run 1.5 to 2.5 meters
		radius := 6 + i%5
		shade := uint8(190 + (i%4)*15)

		gocv.Circle(&img, image.Pt(col, row), radius,
			color.RGBA{R: shade, G: shade, B: 200}, -1)
	}

	eng, err := opencv.NewEngine()

	if err != nil {
		log.Fatal("Error initializing engine: ", err)
	}

	defer eng.Close()

	raster := opencv.NewRaster(img, ref)
	defer raster.Close()

	if err := eng.SaveRaster(raster, *outImg); err != nil {
		log.Fatal("Error saving raster: ", err)
	}

	if err := geom.WritePoints(truth, *outPts); err != nil {
		log.Fatal("Error saving ground truth points: ", err)
	}

	log.Printf("Wrote %s and %s with %d crowns\n", *outImg, *outPts, *crowns)
}
