package opencv

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestWorldFileRoundTrip(t *testing.T) {

	path := filepath.Join(t.TempDir(), "plot.tfw")

	want := Georef{CellSize: 0.5, OriginX: 351200, OriginY: 5713800}

	if err := writeWorldFile(path, want); err != nil {
		t.Fatalf("writeWorldFile failed: %v", err)
	}

	got, err := readWorldFile(path)

	if err != nil {
		t.Fatalf("readWorldFile failed: %v", err)
	}

	if !almostEqual(got.CellSize, want.CellSize, 1e-9) ||
		!almostEqual(got.OriginX, want.OriginX, 1e-9) ||
		!almostEqual(got.OriginY, want.OriginY, 1e-9) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestReadWorldFileRejectsRotation(t *testing.T) {

	path := filepath.Join(t.TempDir(), "plot.tfw")

	if err := os.WriteFile(path, []byte("1\n0.2\n0\n-1\n100\n200\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := readWorldFile(path); err == nil {
		t.Errorf("expected error for rotated world file")
	}
}

func TestReadWorldFileRejectsBadCells(t *testing.T) {

	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"positive y size", "1\n0\n0\n1\n100\n200\n"},
		{"not square", "1\n0\n0\n-2\n100\n200\n"},
		{"too few values", "1\n0\n0\n-1\n"},
		{"not numeric", "one\n0\n0\n-1\n100\n200\n"},
	}

	for _, tc := range tests {
		path := filepath.Join(dir, tc.name+".tfw")

		if err := os.WriteFile(path, []byte(tc.content), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}

		if _, err := readWorldFile(path); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestWorldPath(t *testing.T) {

	tests := []struct {
		in   string
		want string
	}{
		{"plot.tif", "plot.tfw"},
		{"plot.TIF", "plot.tfw"},
		{"plot.tiff", "plot.tfw"},
		{"plot.png", "plot.pgw"},
		{"plot.jpg", "plot.jgw"},
		{"plot.jpeg", "plot.jgw"},
		{"plot.bmp", "plot.wld"},
	}

	for _, tc := range tests {
		if got := worldPath(tc.in); got != tc.want {
			t.Errorf("worldPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestGeorefTransforms(t *testing.T) {

	g := Georef{CellSize: 2, OriginX: 10, OriginY: 20}

	x, y := g.PixelToWorld(0, 0)

	if x != 11 || y != 19 {
		t.Errorf("PixelToWorld(0,0) = %v,%v, want 11,19", x, y)
	}

	x, y = g.CellCorner(1, 2)

	if x != 12 || y != 16 {
		t.Errorf("CellCorner(1,2) = %v,%v, want 12,16", x, y)
	}

	col, row := g.WorldToPixel(11, 19)

	if col != 0 || row != 0 {
		t.Errorf("WorldToPixel(11,19) = %d,%d, want 0,0", col, row)
	}

	col, row = g.WorldToPixel(13.9, 16.1)

	if col != 1 || row != 1 {
		t.Errorf("WorldToPixel(13.9,16.1) = %d,%d, want 1,1", col, row)
	}

	b := g.Bounds(4, 3)

	if b.MinX != 10 || b.MinY != 14 || b.MaxX != 18 || b.MaxY != 20 {
		t.Errorf("got bounds %+v", b)
	}
}

func TestDefaultGeoref(t *testing.T) {

	g := defaultGeoref(4)
	b := g.Bounds(4, 4)

	if b.MinX != 0 || b.MinY != 0 || b.MaxX != 4 || b.MaxY != 4 {
		t.Errorf("got bounds %+v, want unit cells anchored at the origin", b)
	}
}
