package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/poiesic/spamsense/core"
)

// Stats summarizes the labels of a dataset.
type Stats struct {
	Spam  int
	Ham   int
	Other int
	Total int
}

// Shuffle returns a new dataset holding a uniformly random permutation of d.
// Features[i] and Labels[i] stay paired. A nil rng uses the global source.
func Shuffle(d *core.Dataset, rng *rand.Rand) *core.Dataset {
	n := d.Len()
	var perm []int
	if rng != nil {
		perm = rng.Perm(n)
	} else {
		perm = rand.Perm(n)
	}

	out := core.NewDataset(n)
	for _, i := range perm {
		out.Features = append(out.Features, d.Features[i])
		out.Labels = append(out.Labels, d.Labels[i])
	}
	return out
}

// Split partitions d without reordering it. The first partition holds the
// first floor(n*ratio) pairs and the second holds the rest.
func Split(d *core.Dataset, ratio float64) (*core.Dataset, *core.Dataset, error) {
	if err := core.ValidateDataset(d); err != nil {
		return nil, nil, err
	}
	if !(ratio > 0 && ratio < 1) {
		return nil, nil, fmt.Errorf("%w: split ratio %v must be in (0, 1)", core.ErrInvalidInput, ratio)
	}

	cut := int(math.Floor(float64(d.Len()) * ratio))
	first := &core.Dataset{
		Features: append([][]float32(nil), d.Features[:cut]...),
		Labels:   append([]float64(nil), d.Labels[:cut]...),
	}
	second := &core.Dataset{
		Features: append([][]float32(nil), d.Features[cut:]...),
		Labels:   append([]float64(nil), d.Labels[cut:]...),
	}
	return first, second, nil
}

// Merge concatenates datasets in order. It fails with core.ErrShapeMismatch
// when the merged feature vectors would not all share one dimension.
func Merge(datasets ...*core.Dataset) (*core.Dataset, error) {
	total := 0
	for i, d := range datasets {
		if err := core.ValidateDataset(d); err != nil {
			return nil, fmt.Errorf("dataset %d: %w", i, err)
		}
		total += d.Len()
	}

	out := core.NewDataset(total)
	for _, d := range datasets {
		out.Features = append(out.Features, d.Features...)
		out.Labels = append(out.Labels, d.Labels...)
	}

	if err := CheckShape(out); err != nil {
		return nil, err
	}
	return out, nil
}

// CheckShape verifies that d is index-aligned and that every feature vector
// has the same dimension.
func CheckShape(d *core.Dataset) error {
	if err := core.ValidateDataset(d); err != nil {
		return err
	}
	dim := d.Dim()
	for i, features := range d.Features {
		if len(features) != dim {
			return fmt.Errorf("%w: entry %d has dimension %d, expected %d", core.ErrShapeMismatch, i, len(features), dim)
		}
	}
	return nil
}

// Summarize counts spam, ham and other labels in d.
func Summarize(d *core.Dataset) Stats {
	var s Stats
	if d == nil {
		return s
	}
	for _, label := range d.Labels {
		switch label {
		case core.LabelSpam:
			s.Spam++
		case core.LabelHam:
			s.Ham++
		default:
			s.Other++
		}
	}
	s.Total = len(d.Labels)
	return s
}
