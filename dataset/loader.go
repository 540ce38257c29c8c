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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/spamsense/core"
)

// DefaultWorkers is the number of sources read concurrently.
const DefaultWorkers = 4

// LoadReport describes what a Load call found.
type LoadReport struct {
	// Sources is the number of paths given.
	Sources int
	// Records is the number of records in the returned dataset.
	Records int
	// Skipped counts lines or entries that could not be parsed.
	Skipped int
	// Degraded counts records whose vectors lost non-numeric components.
	Degraded int
	// Excluded counts aggregate entries carrying the "empty" text sentinel.
	Excluded int
	// Unreadable lists sources that could not be opened or read.
	Unreadable []string
	// Formats counts records per detected format.
	Formats map[Format]int
}

func newLoadReport() *LoadReport {
	return &LoadReport{Formats: make(map[Format]int)}
}

func (r *LoadReport) merge(other *LoadReport) {
	r.Records += other.Records
	r.Skipped += other.Skipped
	r.Degraded += other.Degraded
	r.Excluded += other.Excluded
	r.Unreadable = append(r.Unreadable, other.Unreadable...)
	for format, n := range other.Formats {
		r.Formats[format] += n
	}
}

// Loader reads persisted embedding records in any of the known formats.
type Loader struct {
	workers int
	strict  bool
	logger  *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithWorkers sets how many sources are read concurrently.
// Default is DefaultWorkers.
func WithWorkers(n int) LoaderOption {
	return func(l *Loader) {
		if n < 1 {
			n = 1
		}
		l.workers = n
	}
}

// WithStrictVectors rejects records whose vectors contain non-numeric
// components instead of dropping those components.
func WithStrictVectors() LoaderOption {
	return func(l *Loader) {
		l.strict = true
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger == nil {
			logger = slog.Default()
		}
		l.logger = logger
	}
}

// NewLoader creates a loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		workers: DefaultWorkers,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "loader")
	return l
}

// Load reads every path and concatenates the records in path order.
//
// Bad lines and entries are skipped and counted. A path that cannot be read
// contributes nothing and is listed in LoadReport.Unreadable. The only errors
// returned are cancellation and worker pool failures.
func (l *Loader) Load(ctx context.Context, paths ...string) (*core.Dataset, *LoadReport, error) {
	report := newLoadReport()
	report.Sources = len(paths)
	if len(paths) == 0 {
		return core.NewDataset(0), report, nil
	}

	pool, err := ants.NewPool(min(l.workers, len(paths)))
	if err != nil {
		return nil, nil, err
	}
	defer pool.Release()

	datasets := make([]*core.Dataset, len(paths))
	reports := make([]*LoadReport, len(paths))

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			datasets[i], reports[i] = l.loadSource(path)
		})
		if submitErr != nil {
			wg.Done()
			wg.Wait()
			return nil, nil, fmt.Errorf("submitting %s: %w", path, submitErr)
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	total := 0
	for _, d := range datasets {
		total += d.Len()
	}
	result := core.NewDataset(total)
	for i := range paths {
		result.Features = append(result.Features, datasets[i].Features...)
		result.Labels = append(result.Labels, datasets[i].Labels...)
		report.merge(reports[i])
	}

	l.logger.Info("loaded embeddings",
		"sources", report.Sources,
		"records", report.Records,
		"skipped", report.Skipped,
		"degraded", report.Degraded,
		"excluded", report.Excluded,
		"unreadable", len(report.Unreadable))

	return result, report, nil
}

// sourceSink collects the output of one source.
type sourceSink struct {
	path    string
	dataset *core.Dataset
	report  *LoadReport
	logger  *slog.Logger
}

func (s *sourceSink) record(format Format, d decoded) {
	s.dataset.Append(d.record)
	s.report.Records++
	s.report.Formats[format]++
	if d.degraded {
		s.report.Degraded++
		s.logger.Warn("dropped non-numeric vector components; vector dimension changed",
			"source", s.path, "format", format, "dim", len(d.record.Embedding))
	}
}

func (s *sourceSink) skip(format Format, where string, err error) {
	s.report.Skipped++
	s.logger.Warn("skipping record", "source", s.path, "format", format, "at", where, "err", err)
}

func (s *sourceSink) exclude(where string) {
	s.report.Excluded++
	s.logger.Debug("excluding entry without corpus text", "source", s.path, "at", where)
}

// loadSource reads one path. It never fails; problems are recorded in the report.
func (l *Loader) loadSource(path string) (*core.Dataset, *LoadReport) {
	out := &sourceSink{
		path:    path,
		dataset: core.NewDataset(0),
		report:  newLoadReport(),
		logger:  l.logger,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		out.report.Unreadable = append(out.report.Unreadable, path)
		l.logger.Warn("cannot read source, skipping it", "source", path, "err", fmt.Errorf("%w: %w", core.ErrIOFailure, err))
		return out.dataset, out.report
	}
	data = bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))

	for _, format := range documentFormats {
		err := format.parse(data, l.strict, out)
		if errors.Is(err, errNotThisFormat) {
			continue
		}
		if err != nil {
			out.skip(format.name, "document", err)
		}
		l.logger.Debug("parsed source", "source", path, "format", format.name, "records", out.report.Records)
		return out.dataset, out.report
	}

	l.parseLines(data, out)
	return out.dataset, out.report
}

// parseLines treats data as one record object per line.
func (l *Loader) parseLines(data []byte, out *sourceSink) {
	lineNo := 0
	for line := range bytes.Lines(data) {
		lineNo++
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		where := fmt.Sprintf("line %d", lineNo)
		format, d, err := parseObject(line, l.strict)
		if err != nil {
			out.skip(format, where, err)
			continue
		}
		out.record(format, d)
	}
	l.logger.Debug("parsed source", "source", out.path, "format", "lines", "records", out.report.Records)
}
