package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Label values used by the bundled corpora.
const (
	LabelHam  = 0.0
	LabelSpam = 1.0
)

// LabeledText is a single corpus entry waiting to be embedded.
type LabeledText struct {
	Text  string
	Label float64
}

// EmbeddingRecord is a produced embedding together with its label.
// Text is optional; some historical encodings dropped it.
type EmbeddingRecord struct {
	Embedding []float32 `json:"embedding"`
	Label     float64   `json:"label"`
	Text      string    `json:"text,omitempty"`
}

// Dataset holds index-aligned features and labels: Features[i] belongs to Labels[i].
type Dataset struct {
	Features [][]float32 `json:"features"`
	Labels   []float64   `json:"labels"`
}

// NewDataset creates an empty dataset with room for n entries.
func NewDataset(n int) *Dataset {
	return &Dataset{
		Features: make([][]float32, 0, n),
		Labels:   make([]float64, 0, n),
	}
}

// Len returns the number of entries.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Labels)
}

// Dim returns the dimension of the first feature vector, or 0 for an empty dataset.
func (d *Dataset) Dim() int {
	if d == nil || len(d.Features) == 0 {
		return 0
	}
	return len(d.Features[0])
}

// Append adds a single record to the dataset.
func (d *Dataset) Append(record *EmbeddingRecord) {
	d.Features = append(d.Features, record.Embedding)
	d.Labels = append(d.Labels, record.Label)
}

// Checkpoint marks how far a generation run has durably progressed through its corpus.
type Checkpoint struct {
	Key       string    `json:"key"`
	Position  int       `json:"position"` // number of corpus items already accounted for
	UpdatedAt time.Time `json:"updated_at"`
}
