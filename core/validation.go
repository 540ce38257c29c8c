// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"math"
)

// ValidateRecord validates an EmbeddingRecord according to domain rules.
//
// Validation rules:
//   - Embedding must not be empty
//   - Label must be finite
//
// NOT validated:
//   - Text (dropped by some legacy encodings, never needed for training)
//   - Embedding dimension (only meaningful across records, see dataset.CheckShape)
func ValidateRecord(record *EmbeddingRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrParse)
	}

	if len(record.Embedding) == 0 {
		return fmt.Errorf("%w: %w", ErrParse, ErrEmptyEmbedding)
	}

	if !IsFinite(record.Label) {
		return fmt.Errorf("%w: %w", ErrParse, ErrNonFiniteLabel)
	}

	return nil
}

// ValidateDataset checks that features and labels are index-aligned.
func ValidateDataset(d *Dataset) error {
	if d == nil {
		return fmt.Errorf("%w: dataset is nil", ErrInvalidInput)
	}
	if len(d.Features) != len(d.Labels) {
		return fmt.Errorf("%w: %d features but %d labels", ErrShapeMismatch, len(d.Features), len(d.Labels))
	}
	return nil
}

// IsFinite reports whether f is neither NaN nor infinite.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
