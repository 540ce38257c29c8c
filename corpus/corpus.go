// Package corpus reads labeled text corpora from CSV files.
//
// A corpus file has a header row with at least the columns text and label.
// Labels are numbers (0 for ham, 1 for spam, fractions for soft scores) or
// the words "ham" and "spam".
package corpus

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/poiesic/spamsense/core"
)

// row is one CSV record. Unknown columns are ignored.
type row struct {
	Text  string `csv:"text"`
	Label string `csv:"label"`
}

// ReadCSV reads one corpus file. Rows whose label cannot be parsed are
// skipped with a warning. Rows with empty text are kept; embedding them fails
// later as invalid input.
func ReadCSV(path string) ([]core.LabeledText, error) {
	logger := slog.Default().With("component", "corpus")

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrIOFailure, err)
	}
	defer f.Close()

	rows := []*row{}
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", core.ErrIOFailure, path, err)
	}

	items := make([]core.LabeledText, 0, len(rows))
	for i, r := range rows {
		label, err := ParseLabel(r.Label)
		if err != nil {
			// Header is line 1.
			logger.Warn("skipping row with bad label", "source", path, "line", i+2, "err", err)
			continue
		}
		items = append(items, core.LabeledText{Text: r.Text, Label: label})
	}

	logger.Debug("read corpus", "source", path, "rows", len(rows), "items", len(items))
	return items, nil
}

// ReadAll reads every path and concatenates the items in path order.
// Any unreadable file fails the whole read.
func ReadAll(paths ...string) ([]core.LabeledText, error) {
	var items []core.LabeledText
	for _, path := range paths {
		part, err := ReadCSV(path)
		if err != nil {
			return nil, err
		}
		items = append(items, part...)
	}
	return items, nil
}

// ParseLabel converts a label cell to a finite float.
func ParseLabel(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "spam":
		return core.LabelSpam, nil
	case "ham":
		return core.LabelHam, nil
	}
	label, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: label %q", core.ErrInvalidInput, s)
	}
	if !core.IsFinite(label) {
		return 0, fmt.Errorf("%w: %w", core.ErrInvalidInput, core.ErrNonFiniteLabel)
	}
	return label, nil
}
