package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/forestquant/go-deadtrees/geom"
)

// Project converts map coordinates to pixel coordinates on the image
// being drawn, engines provide one for their rasters
type Project func(x, y float64) (col, row int)

// ringPoints converts a ring through the projection
func ringPoints(ring geom.Ring, project Project) []image.Point {

	pts := make([]image.Point, 0, len(ring))

	for _, p := range ring {
		col, row := project(p.X, p.Y)
		pts = append(pts, image.Pt(col, row))
	}

	return pts
}

// featureRings collects the rings of every polygon feature as pixel
// point lists
func featureRings(fs *geom.FeatureSet, project Project) [][]image.Point {

	var rings [][]image.Point

	for i := range fs.Features {
		f := &fs.Features[i]

		if f.Type != geom.GeometryPolygon {
			continue
		}

		for _, ring := range f.Polygon {
			rings = append(rings, ringPoints(ring, project))
		}
	}

	return rings
}

// Polygons draws the outline of every polygon feature
func Polygons(img *gocv.Mat, fs *geom.FeatureSet, project Project,
	clr color.RGBA, thickness int) {

	rings := featureRings(fs, project)

	if len(rings) == 0 {
		return
	}

	pts := gocv.NewPointsVectorFromPoints(rings)
	defer pts.Close()

	gocv.Polylines(img, pts, true, clr, thickness)
}

// FillPolygons blends filled polygon features over the image with the
// given opacity between 0 and 1
func FillPolygons(img *gocv.Mat, fs *geom.FeatureSet, project Project,
	clr color.RGBA, opacity float64) {

	rings := featureRings(fs, project)

	if len(rings) == 0 {
		return
	}

	overlay := img.Clone()
	defer overlay.Close()

	pts := gocv.NewPointsVectorFromPoints(rings)
	defer pts.Close()

	gocv.FillPoly(&overlay, pts, clr)

	gocv.AddWeighted(*img, 1.0-opacity, overlay, opacity, 0, img)
}

// Points draws a filled circle marker on every point feature
func Points(img *gocv.Mat, fs *geom.FeatureSet, project Project,
	clr color.RGBA, radius int) {

	for i := range fs.Features {
		f := &fs.Features[i]

		if f.Type != geom.GeometryPoint {
			continue
		}

		col, row := project(f.Point.X, f.Point.Y)
		gocv.Circle(img, image.Pt(col, row), radius, clr, -1)
	}
}

// Labels writes a text label on a dark box at the centroid of every
// polygon feature, the text callback supplies the label per feature
func Labels(img *gocv.Mat, fs *geom.FeatureSet, project Project,
	text func(*geom.Feature) string, font Font) {

	for i := range fs.Features {
		f := &fs.Features[i]

		if f.Type != geom.GeometryPolygon {
			continue
		}

		label := text(f)

		if label == "" {
			continue
		}

		c := f.Polygon.Centroid()
		col, row := project(c.X, c.Y)

		textSize := gocv.GetTextSize(label, font.Face, font.Scale, font.Thickness)

		pos := image.Pt(col-textSize.X/2, row+textSize.Y/2)

		// box the text gets written on
		bRect := image.Rect(pos.X-font.LeftPad,
			row-textSize.Y/2-font.TopPad,
			pos.X+textSize.X+font.RightPad,
			row+textSize.Y/2+font.BottomPad)

		gocv.Rectangle(img, bRect, Black, -1)

		gocv.PutTextWithParams(img, label, pos,
			font.Face, font.Scale, font.Color, font.Thickness,
			font.LineType, false)
	}
}
