// Package face decides whether a live capture matches a stored reference
// image by comparing face descriptors.
package face

import (
	"errors"
	"fmt"
	"math"
)

// MatchThreshold is the exclusive upper bound on Euclidean distance for a
// match. It is fixed; callers cannot tune it per request.
const MatchThreshold = 0.45

// ErrDescriptorLength is returned when two descriptors differ in length.
var ErrDescriptorLength = errors.New("descriptor length mismatch")

// Descriptor is a fixed-length face embedding (128 values for the
// recognition nets used here).
type Descriptor []float32

// Comparison is the outcome of comparing two descriptors.
type Comparison struct {
	Distance float64 `json:"distance"`
	Match    bool    `json:"match"`
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Descriptor) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDescriptorLength, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("%w: empty descriptor", ErrDescriptorLength)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// IsMatch applies MatchThreshold.
func IsMatch(distance float64) bool {
	return distance < MatchThreshold
}

// Compare computes the distance and match decision. It is symmetric in its
// arguments.
func Compare(live, reference Descriptor) (Comparison, error) {
	d, err := Distance(live, reference)
	if err != nil {
		return Comparison{}, err
	}
	return Comparison{Distance: d, Match: IsMatch(d)}, nil
}
