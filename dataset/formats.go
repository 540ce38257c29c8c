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


package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/poiesic/spamsense/core"
)

// Format names an on-disk encoding of embedding records.
type Format string

const (
	// FormatAggregate is a single object {"embeddings": [[...]], "dataset": [[text, label]]}.
	FormatAggregate Format = "aggregate"
	// FormatArray is a single JSON array of record objects.
	FormatArray Format = "array"
	// FormatFlat is one {"embedding": [...], "label": n} object per line.
	FormatFlat Format = "flat"
	// FormatEntry is one {"embedding": [...], "entry": [text, label]} object per line.
	FormatEntry Format = "entry"
)

// EmptyTextSentinel marks aggregate entries that have no corpus text.
const EmptyTextSentinel = "empty"

var (
	// errNotThisFormat means the structure did not match and the next format should be tried.
	errNotThisFormat = errors.New("not this format")

	// errDegraded means non-numeric scalars were dropped from a vector.
	errDegraded = errors.New("non-numeric vector components")
)

// decoded is one normalized record produced by a format.
type decoded struct {
	record   *core.EmbeddingRecord
	degraded bool
}

// sink receives records and per-entry problems from a format parser.
type sink interface {
	record(format Format, d decoded)
	skip(format Format, where string, err error)
	exclude(where string)
}

// documentFormat parses a whole source. It returns errNotThisFormat when the
// source does not have its structure.
type documentFormat struct {
	name  Format
	parse func(data []byte, strict bool, out sink) error
}

// lineFormat parses a single record object.
type lineFormat struct {
	name Format
	// matches reports whether the object has this format's required fields.
	matches func(fields map[string]json.RawMessage) bool
	parse func(fields map[string]json.RawMessage, strict bool) (decoded, error)
}

// documentFormats are tried in order against every source before line mode.
var documentFormats = []documentFormat{
	{name: FormatAggregate, parse: parseAggregate},
	{name: FormatArray, parse: parseArray},
}

// lineFormats are tried in order against every line and array element.
var lineFormats = []lineFormat{
	{
		name: FormatFlat,
		matches: func(fields map[string]json.RawMessage) bool {
			return hasFields(fields, "embedding", "label")
		},
		parse: parseFlat,
	},
	{
		name: FormatEntry,
		matches: func(fields map[string]json.RawMessage) bool {
			return hasFields(fields, "embedding", "entry")
		},
		parse: parseEntry,
	},
}

func hasFields(fields map[string]json.RawMessage, names ...string) bool {
	for _, name := range names {
		if _, ok := fields[name]; !ok {
			return false
		}
	}
	return true
}

// parseObject decodes one record object with the first line format whose fields match.
func parseObject(raw []byte, strict bool) (Format, decoded, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", decoded{}, fmt.Errorf("%w: %w", core.ErrParse, err)
	}
	if fields == nil {
		return "", decoded{}, fmt.Errorf("%w: not an object", core.ErrParse)
	}
	for _, format := range lineFormats {
		if !format.matches(fields) {
			continue
		}
		d, err := format.parse(fields, strict)
		return format.name, d, err
	}
	return "", decoded{}, fmt.Errorf("%w: no known record fields", core.ErrParse)
}

func parseFlat(fields map[string]json.RawMessage, strict bool) (decoded, error) {
	label, err := decodeLabel(fields["label"])
	if err != nil {
		return decoded{}, err
	}
	var text string
	if raw, ok := fields["text"]; ok {
		// Text is informational only.
		_ = json.Unmarshal(raw, &text)
	}
	return decodeRecord(fields["embedding"], label, text, strict)
}

func parseEntry(fields map[string]json.RawMessage, strict bool) (decoded, error) {
	text, label, err := decodeEntry(fields["entry"])
	if err != nil {
		return decoded{}, err
	}
	return decodeRecord(fields["embedding"], label, text, strict)
}

// parseAggregate handles {"embeddings": [...], "dataset": [...]} documents.
// Entries are paired by index; unpaired extras on either side are skipped.
func parseAggregate(data []byte, strict bool, out sink) error {
	if !bytes.HasPrefix(data, []byte("{")) {
		return errNotThisFormat
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || !hasFields(fields, "embeddings", "dataset") {
		return errNotThisFormat
	}
	var embeddings, entries []json.RawMessage
	if err := json.Unmarshal(fields["embeddings"], &embeddings); err != nil {
		return fmt.Errorf("%w: embeddings: %w", core.ErrParse, err)
	}
	if err := json.Unmarshal(fields["dataset"], &entries); err != nil {
		return fmt.Errorf("%w: dataset: %w", core.ErrParse, err)
	}

	n := min(len(embeddings), len(entries))
	for i := 0; i < n; i++ {
		where := fmt.Sprintf("entry %d", i)
		text, label, err := decodeEntry(entries[i])
		if err != nil {
			out.skip(FormatAggregate, where, err)
			continue
		}
		if text == EmptyTextSentinel {
			out.exclude(where)
			continue
		}
		d, err := decodeRecord(embeddings[i], label, text, strict)
		if err != nil {
			out.skip(FormatAggregate, where, err)
			continue
		}
		out.record(FormatAggregate, d)
	}

	for i := n; i < max(len(embeddings), len(entries)); i++ {
		out.skip(FormatAggregate, fmt.Sprintf("entry %d", i),
			fmt.Errorf("%w: %d embeddings but %d dataset entries", core.ErrParse, len(embeddings), len(entries)))
	}
	return nil
}

// parseArray handles documents that are one JSON array of record objects.
func parseArray(data []byte, strict bool, out sink) error {
	if !bytes.HasPrefix(data, []byte("[")) {
		return errNotThisFormat
	}
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return errNotThisFormat
	}
	for i, raw := range elements {
		where := fmt.Sprintf("element %d", i)
		_, d, err := parseObject(raw, strict)
		if err != nil {
			out.skip(FormatArray, where, err)
			continue
		}
		out.record(FormatArray, d)
	}
	return nil
}

// decodeEntry decodes a [text, label] pair. A non-string text is treated as absent.
func decodeEntry(raw json.RawMessage) (string, float64, error) {
	var entry []json.RawMessage
	if err := json.Unmarshal(raw, &entry); err != nil {
		return "", 0, fmt.Errorf("%w: entry: %w", core.ErrParse, err)
	}
	if len(entry) < 2 {
		return "", 0, fmt.Errorf("%w: entry has %d elements, want [text, label]", core.ErrParse, len(entry))
	}
	var text string
	_ = json.Unmarshal(entry[0], &text)
	label, err := decodeLabel(entry[1])
	if err != nil {
		return "", 0, err
	}
	return text, label, nil
}

func decodeLabel(raw json.RawMessage) (float64, error) {
	label, ok := decodeNumber(raw)
	if !ok {
		return 0, fmt.Errorf("%w: label %s is not a number", core.ErrParse, truncateRaw(raw))
	}
	return label, nil
}

// decodeNumber decodes a JSON number. null, strings and other values are rejected.
func decodeNumber(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	return v, true
}

func truncateRaw(raw json.RawMessage) string {
	const limit = 32
	if len(raw) > limit {
		return string(raw[:limit]) + "..."
	}
	return string(raw)
}

// decodeRecord builds a validated record. Scalars that are not numbers are
// dropped from the vector and the record is marked degraded; with strict set
// such a vector is rejected instead.
func decodeRecord(raw json.RawMessage, label float64, text string, strict bool) (decoded, error) {
	var scalars []json.RawMessage
	if err := json.Unmarshal(raw, &scalars); err != nil {
		return decoded{}, fmt.Errorf("%w: embedding: %w", core.ErrParse, err)
	}

	vector := make([]float32, 0, len(scalars))
	dropped := 0
	for _, s := range scalars {
		v, ok := decodeNumber(s)
		if !ok {
			dropped++
			continue
		}
		vector = append(vector, float32(v))
	}

	if dropped > 0 && strict {
		return decoded{}, fmt.Errorf("%w: %w: %d of %d", core.ErrParse, errDegraded, dropped, len(scalars))
	}

	record := &core.EmbeddingRecord{Embedding: vector, Label: label, Text: text}
	if err := core.ValidateRecord(record); err != nil {
		return decoded{}, err
	}
	return decoded{record: record, degraded: dropped > 0}, nil
}
