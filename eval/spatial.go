package eval

import (
	"github.com/forestquant/go-deadtrees/geom"
)

// SpatialJoin returns one feature per target feature carrying a
// Join_Count attribute with the number of candidate features that
// spatially intersect it, 0 when none do. Output cardinality and order
// match the target set exactly: a target intersecting K candidates still
// yields a single row with Join_Count = K. The input sets are not
// modified.
func SpatialJoin(target, candidates *geom.FeatureSet) *geom.FeatureSet {

	joined := &geom.FeatureSet{Features: make([]geom.Feature, 0, target.Count())}

	for i := range target.Features {

		count := 0

		for j := range candidates.Features {
			if geom.Intersects(&target.Features[i], &candidates.Features[j]) {
				count++
			}
		}

		f := target.Features[i].Clone()
		f.SetAttr(geom.FieldJoinCount, float64(count))
		joined.Append(f)
	}

	return joined
}

// CountMatched counts the join rows whose Join_Count is not zero.
// matched is never greater than total.
func CountMatched(joined *geom.FeatureSet) (matched, total int) {

	for i := range joined.Features {
		if joined.Features[i].Attr(geom.FieldJoinCount) != 0 {
			matched++
		}
	}

	return matched, joined.Count()
}
