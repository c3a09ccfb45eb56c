package brandsim

import (
	"fmt"
	"image"

	"github.com/corona10/goimagehash"
)

// StructuralSimilarity averages pHash and dHash similarity of a and b.
// Each hash contributes 1 - hamming/bits, so identical images score 1.
func StructuralSimilarity(a, b image.Image) (float64, error) {
	ph, err := hashSimilarity(goimagehash.PerceptionHash, a, b)
	if err != nil {
		return 0, fmt.Errorf("phash: %w", err)
	}
	dh, err := hashSimilarity(goimagehash.DifferenceHash, a, b)
	if err != nil {
		return 0, fmt.Errorf("dhash: %w", err)
	}
	return (ph + dh) / 2, nil
}

func hashSimilarity(hash func(image.Image) (*goimagehash.ImageHash, error), a, b image.Image) (float64, error) {
	ha, err := hash(a)
	if err != nil {
		return 0, err
	}
	hb, err := hash(b)
	if err != nil {
		return 0, err
	}
	dist, err := ha.Distance(hb)
	if err != nil {
		return 0, err
	}
	bits := ha.Bits()
	if bits <= 0 {
		return 0, fmt.Errorf("hash has no bits")
	}
	return 1 - float64(dist)/float64(bits), nil
}
