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


package storage

import (
	"encoding/json"
	"fmt"

	"github.com/poiesic/spamsense/core"
)

// MarshalCheckpoint serializes a Checkpoint to bytes.
func MarshalCheckpoint(checkpoint *core.Checkpoint) ([]byte, error) {
	data, err := json.Marshal(checkpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalCheckpoint deserializes a Checkpoint from bytes.
func UnmarshalCheckpoint(data []byte) (*core.Checkpoint, error) {
	var checkpoint core.Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &checkpoint, nil
}

// row is the stored form of one training example.
type row struct {
	Features []float32 `json:"f"`
	Label    float64   `json:"l"`
}

// MarshalRow serializes one training example to bytes.
func MarshalRow(features []float32, label float64) ([]byte, error) {
	data, err := json.Marshal(row{Features: features, Label: label})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalRow deserializes one training example from bytes.
func UnmarshalRow(data []byte) ([]float32, float64, error) {
	var r row
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if len(r.Features) == 0 {
		return nil, 0, fmt.Errorf("%w: %w", ErrSerializationFailed, core.ErrEmptyEmbedding)
	}
	return r.Features, r.Label, nil
}
