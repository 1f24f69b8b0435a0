package deadtrees

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ClassRule selects the class representing dead trees from a
// classification signature, returning its 1-based class number
type ClassRule func(sig *Signature) (int, error)

// FixedClass returns a rule selecting class n regardless of the
// signature content
func FixedClass(n int) ClassRule {
	return func(sig *Signature) (int, error) {

		if n < 1 || n > sig.Classes() {
			return 0, fmt.Errorf("class %d outside signature range 1 to %d",
				n, sig.Classes())
		}

		return n, nil
	}
}

// BrightestClass selects the class with the highest mean brightness
// across all bands. Dead conifer crowns image brighter than live
// canopy in leaf-off aerial photography.
func BrightestClass() ClassRule {
	return func(sig *Signature) (int, error) {
		return floats.MaxIdx(sig.Brightness()) + 1, nil
	}
}

// DarkestClass selects the class with the lowest mean brightness
// across all bands
func DarkestClass() ClassRule {
	return func(sig *Signature) (int, error) {
		return floats.MinIdx(sig.Brightness()) + 1, nil
	}
}
