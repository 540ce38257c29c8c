package core

import (
	"errors"
	"math"
	"testing"
)

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  *EmbeddingRecord
		wantErr error
	}{
		{
			name:    "valid record",
			record:  &EmbeddingRecord{Embedding: []float32{0.1, 0.2}, Label: 1, Text: "hello"},
			wantErr: nil,
		},
		{
			name:    "valid record without text",
			record:  &EmbeddingRecord{Embedding: []float32{0.1}, Label: 0},
			wantErr: nil,
		},
		{
			name:    "soft label",
			record:  &EmbeddingRecord{Embedding: []float32{0.1}, Label: 0.35},
			wantErr: nil,
		},
		{
			name:    "nil record",
			record:  nil,
			wantErr: ErrParse,
		},
		{
			name:    "empty embedding",
			record:  &EmbeddingRecord{Embedding: nil, Label: 1},
			wantErr: ErrEmptyEmbedding,
		},
		{
			name:    "NaN label",
			record:  &EmbeddingRecord{Embedding: []float32{0.1}, Label: math.NaN()},
			wantErr: ErrNonFiniteLabel,
		},
		{
			name:    "infinite label",
			record:  &EmbeddingRecord{Embedding: []float32{0.1}, Label: math.Inf(1)},
			wantErr: ErrNonFiniteLabel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecord(tt.record)

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateRecord() error = %v, want nil", err)
				}
				return
			}

			if err == nil {
				t.Fatalf("ValidateRecord() error = nil, want %v", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateRecord() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrParse) {
				t.Errorf("ValidateRecord() error = %v, should wrap %v", err, ErrParse)
			}
		})
	}
}

func TestValidateDataset(t *testing.T) {
	aligned := &Dataset{Features: [][]float32{{1}, {2}}, Labels: []float64{0, 1}}
	if err := ValidateDataset(aligned); err != nil {
		t.Errorf("ValidateDataset() error = %v, want nil", err)
	}

	misaligned := &Dataset{Features: [][]float32{{1}}, Labels: []float64{0, 1}}
	if err := ValidateDataset(misaligned); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("ValidateDataset() error = %v, want %v", err, ErrShapeMismatch)
	}

	if err := ValidateDataset(nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("ValidateDataset(nil) error = %v, want %v", err, ErrInvalidInput)
	}
}

func TestStatusError(t *testing.T) {
	err := error(&StatusError{StatusCode: 503, Body: "loading model"})

	if !errors.Is(err, ErrRemoteRejected) {
		t.Errorf("StatusError should unwrap to ErrRemoteRejected")
	}
	if !IsItemError(err) {
		t.Errorf("IsItemError(StatusError) = false, want true")
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != 503 {
		t.Errorf("errors.As did not recover status code, got %v", statusErr)
	}
}

func TestIsItemError(t *testing.T) {
	if IsItemError(ErrIOFailure) {
		t.Error("IsItemError(ErrIOFailure) = true, want false")
	}
	if IsItemError(ErrShapeMismatch) {
		t.Error("IsItemError(ErrShapeMismatch) = true, want false")
	}
	if !IsItemError(ErrParse) {
		t.Error("IsItemError(ErrParse) = false, want true")
	}
}
