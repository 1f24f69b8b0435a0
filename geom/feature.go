package geom

// GeometryType discriminates the geometry carried by a Feature.
type GeometryType int

const (
	GeometryPoint GeometryType = iota
	GeometryPolygon
)

// Attribute field names shared by the detection pipeline and the
// evaluation engine.
const (
	FieldArea      = "Shape_Area"
	FieldJoinCount = "Join_Count"
	FieldGridCode  = "gridcode"
)

// Feature is a single vector feature, either a point or a polygon, with a
// numeric attribute table.
type Feature struct {
	Type    GeometryType
	Point   Point
	Polygon Polygon
	Attrs   map[string]float64
}

// NewPointFeature returns a point feature with an empty attribute table.
func NewPointFeature(pt Point) Feature {
	return Feature{Type: GeometryPoint, Point: pt}
}

// NewPolygonFeature returns a polygon feature with an empty attribute
// table.
func NewPolygonFeature(p Polygon) Feature {
	return Feature{Type: GeometryPolygon, Polygon: p}
}

// Attr returns the named attribute value, or 0 when the attribute is not
// set.
func (f *Feature) Attr(name string) float64 {

	if f.Attrs == nil {
		return 0
	}

	return f.Attrs[name]
}

// SetAttr sets the named attribute, allocating the attribute table on
// first use.
func (f *Feature) SetAttr(name string, value float64) {

	if f.Attrs == nil {
		f.Attrs = make(map[string]float64)
	}

	f.Attrs[name] = value
}

// Bounds returns the bounding rectangle of the feature geometry.
func (f *Feature) Bounds() Rect {

	if f.Type == GeometryPoint {
		return Rect{MinX: f.Point.X, MinY: f.Point.Y, MaxX: f.Point.X, MaxY: f.Point.Y}
	}

	return f.Polygon.Bounds()
}

// Clone returns a deep copy of the feature, geometry and attributes
// included.
func (f *Feature) Clone() Feature {

	out := Feature{
		Type:    f.Type,
		Point:   f.Point,
		Polygon: f.Polygon.Clone(),
	}

	if f.Attrs != nil {
		out.Attrs = make(map[string]float64, len(f.Attrs))

		for k, v := range f.Attrs {
			out.Attrs[k] = v
		}
	}

	return out
}

// FeatureSet is an ordered collection of features.
type FeatureSet struct {
	Features []Feature
}

// NewFeatureSet returns a feature set holding the given features.
func NewFeatureSet(features ...Feature) *FeatureSet {
	return &FeatureSet{Features: features}
}

// Count returns the number of features in the set.
func (fs *FeatureSet) Count() int {
	return len(fs.Features)
}

// Append adds a feature to the end of the set.
func (fs *FeatureSet) Append(f Feature) {
	fs.Features = append(fs.Features, f)
}

// Clone returns a deep copy of the feature set.
func (fs *FeatureSet) Clone() *FeatureSet {

	out := &FeatureSet{Features: make([]Feature, 0, len(fs.Features))}

	for i := range fs.Features {
		out.Features = append(out.Features, fs.Features[i].Clone())
	}

	return out
}

// Select returns a new set holding deep copies of the features for which
// keep returns true, preserving order.
func (fs *FeatureSet) Select(keep func(*Feature) bool) *FeatureSet {

	out := &FeatureSet{}

	for i := range fs.Features {
		if keep(&fs.Features[i]) {
			out.Append(fs.Features[i].Clone())
		}
	}

	return out
}

// Within returns the features whose geometry lies completely inside the
// rectangle.
func (fs *FeatureSet) Within(r Rect) *FeatureSet {

	return fs.Select(func(f *Feature) bool {
		if f.Type == GeometryPoint {
			return r.Contains(f.Point)
		}
		return r.ContainsRect(f.Bounds())
	})
}

// Bounds returns the bounding rectangle covering every feature in the
// set.
func (fs *FeatureSet) Bounds() Rect {

	b := emptyRect()

	for i := range fs.Features {
		fb := fs.Features[i].Bounds()
		b = b.extend(Point{X: fb.MinX, Y: fb.MinY})
		b = b.extend(Point{X: fb.MaxX, Y: fb.MaxY})
	}

	if len(fs.Features) == 0 {
		return Rect{}
	}

	return b
}

// CalculateArea recomputes the Shape_Area attribute of every polygon
// feature from its geometry.
func (fs *FeatureSet) CalculateArea() {

	for i := range fs.Features {
		if fs.Features[i].Type == GeometryPolygon {
			fs.Features[i].SetAttr(FieldArea, fs.Features[i].Polygon.Area())
		}
	}
}
