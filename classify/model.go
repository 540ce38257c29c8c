package classify

import (
	"context"
	"errors"
	"fmt"

	"github.com/poiesic/spamsense/core"
)

// Threshold separates spam from ham predictions and labels.
const Threshold = 0.5

var (
	// ErrNotTrained is returned when a model is used before Update.
	ErrNotTrained = errors.New("model has not been trained")

	// ErrInvalidK is returned when k is < 1.
	ErrInvalidK = errors.New("k must be greater than 0")
)

// Model is a trainable regressor over embedding vectors.
type Model interface {
	// Update replaces the model's training data with d.
	Update(ctx context.Context, d *core.Dataset) error

	// Test predicts every entry of d and compares the result with its label.
	Test(ctx context.Context, d *core.Dataset) (*Metrics, error)

	// Predict returns one score per feature vector, in order.
	Predict(ctx context.Context, features [][]float32) ([]float64, error)
}

// Metrics summarizes predictions against known labels.
type Metrics struct {
	Count int
	// MSE is the mean squared error between scores and labels.
	MSE float64
	// Accuracy is the share of entries on the correct side of Threshold.
	Accuracy float64

	TruePositives  int
	FalsePositives int
	TrueNegatives  int
	FalseNegatives int
}

// Precision is TP / (TP + FP), or 0 without positive predictions.
func (m *Metrics) Precision() float64 {
	if m.TruePositives+m.FalsePositives == 0 {
		return 0
	}
	return float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
}

// Recall is TP / (TP + FN), or 0 without positive labels.
func (m *Metrics) Recall() float64 {
	if m.TruePositives+m.FalseNegatives == 0 {
		return 0
	}
	return float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
}

// Evaluate compares predictions with labels.
func Evaluate(predictions, labels []float64) (*Metrics, error) {
	if len(predictions) != len(labels) {
		return nil, fmt.Errorf("%w: %d predictions for %d labels", core.ErrShapeMismatch, len(predictions), len(labels))
	}

	m := &Metrics{Count: len(labels)}
	if m.Count == 0 {
		return m, nil
	}

	var squared float64
	correct := 0
	for i, p := range predictions {
		diff := p - labels[i]
		squared += diff * diff

		predictedSpam := p >= Threshold
		actualSpam := labels[i] >= Threshold
		switch {
		case predictedSpam && actualSpam:
			m.TruePositives++
			correct++
		case predictedSpam && !actualSpam:
			m.FalsePositives++
		case !predictedSpam && actualSpam:
			m.FalseNegatives++
		default:
			m.TrueNegatives++
			correct++
		}
	}

	m.MSE = squared / float64(m.Count)
	m.Accuracy = float64(correct) / float64(m.Count)
	return m, nil
}
