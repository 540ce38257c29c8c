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


package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"time"

	"github.com/poiesic/spamsense/core"
	"github.com/poiesic/spamsense/ingestion"
	"github.com/poiesic/spamsense/storage"
)

// DefaultBatchSize is the number of records buffered before a write.
const DefaultBatchSize = 100

// Summary reports the outcome of a Persist call.
type Summary struct {
	// Processed is the number of results consumed from the stream.
	Processed int
	// Written is the number of records appended to the sink.
	Written int
	// Failed is the number of results that carried an error.
	Failed int
	// Interrupted is the number of results that failed because ctx was
	// cancelled while they were in flight. They are not checkpointed.
	Interrupted int
	Elapsed     time.Duration
}

// Persister writes successful results to an append-only sink in batches.
type Persister struct {
	sink           io.Writer
	batchSize      int
	progress       io.Writer
	reportInterval int
	checkpoints    storage.CheckpointRepository
	checkpointKey  string
	offset         int
	logger         *slog.Logger
}

// Option configures a Persister.
type Option func(*Persister) error

// WithBatchSize sets how many records are buffered before they are written.
// Default is DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(p *Persister) error {
		if size < 1 {
			return ErrInvalidBatchSize
		}
		p.batchSize = size
		return nil
	}
}

// WithProgress writes a progress line to w every interval processed items.
func WithProgress(w io.Writer, interval int) Option {
	return func(p *Persister) error {
		p.progress = w
		p.reportInterval = interval
		return nil
	}
}

// WithCheckpoints records progress under key after every write so that an
// interrupted run can be resumed. offset is the number of corpus items that
// were skipped before the stream started.
func WithCheckpoints(repo storage.CheckpointRepository, key string, offset int) Option {
	return func(p *Persister) error {
		if key == "" {
			return storage.ErrInvalidKey
		}
		p.checkpoints = repo
		p.checkpointKey = key
		p.offset = offset
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Persister) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPersister creates a persister appending to sink.
func NewPersister(sink io.Writer, opts ...Option) (*Persister, error) {
	if sink == nil {
		return nil, ErrSinkRequired
	}

	p := &Persister{
		sink:      sink,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "persister")

	return p, nil
}

// indexedRecord is a successful result on its way to the writer.
type indexedRecord struct {
	index  int
	record *core.EmbeddingRecord
}

// writeOutcome is reported by the writer goroutine when it exits.
type writeOutcome struct {
	written int
	err     error
}

// Persist consumes results until the stream ends, ctx is cancelled or a write
// fails. total is only used for progress reporting.
//
// The returned error wraps core.ErrIOFailure when the sink rejected a write,
// or is ctx.Err() when the run was cancelled. The summary is valid either way.
func (p *Persister) Persist(ctx context.Context, results iter.Seq[ingestion.Result], total int) (Summary, error) {
	var summary Summary

	tracker := NewProgressTracker(p.progress, total, p.reportInterval)
	tracker.Start()

	records := make(chan indexedRecord, p.batchSize)
	outcome := make(chan writeOutcome, 1)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		written, err := p.writeLoop(records)
		outcome <- writeOutcome{written: written, err: err}
	}()

produce:
	for result := range results {
		summary.Processed++
		tracker.Increment(1)

		if result.Failed() {
			switch {
			case ctx.Err() != nil:
				summary.Interrupted++
				p.logger.Info("item interrupted by cancellation", "index", p.offset+result.Index)
			case core.IsItemError(result.Err):
				summary.Failed++
				p.logger.Warn("failed to embed item", "index", p.offset+result.Index, "err", result.Err)
			default:
				summary.Failed++
				p.logger.Error("unexpected item failure", "index", p.offset+result.Index, "err", result.Err)
			}
		} else {
			select {
			case records <- indexedRecord{index: result.Index, record: result.Record}:
			case <-writerDone:
				break produce
			}
		}

		if ctx.Err() != nil {
			break
		}
		select {
		case <-writerDone:
			break produce
		default:
		}
	}
	close(records)
	<-writerDone

	tracker.Finish()
	summary.Elapsed = tracker.Elapsed()

	out := <-outcome
	summary.Written = out.written
	if out.err != nil {
		return summary, out.err
	}

	// An interrupted item is always the last one consumed, so everything before
	// it has been accounted for.
	p.saveCheckpoint(p.offset + summary.Processed - summary.Interrupted)

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// writeLoop owns the buffer and the sink. It returns after records is closed
// and drained, or after the first failed write.
func (p *Persister) writeLoop(records <-chan indexedRecord) (int, error) {
	var (
		buffer  bytes.Buffer
		pending int
		last    = -1
		written int
	)

	flush := func() error {
		if pending == 0 {
			return nil
		}
		if _, err := p.sink.Write(buffer.Bytes()); err != nil {
			return fmt.Errorf("%w: writing %d records: %w", core.ErrIOFailure, pending, err)
		}
		p.logger.Debug("flushed batch", "records", pending)
		written += pending
		pending = 0
		buffer.Reset()
		p.saveCheckpoint(p.offset + last + 1)
		return nil
	}

	for r := range records {
		line, err := json.Marshal(r.record)
		if err != nil {
			// Only non-finite values can fail here; they cannot be read back either.
			p.logger.Warn("dropping unencodable record", "index", p.offset+r.index, "err", err)
			continue
		}
		buffer.Write(line)
		buffer.WriteByte('\n')
		pending++
		last = r.index

		if pending >= p.batchSize {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}

	if err := flush(); err != nil {
		return written, err
	}
	return written, nil
}

func (p *Persister) saveCheckpoint(position int) {
	if p.checkpoints == nil {
		return
	}
	// A cancelled run still records how far it got.
	err := p.checkpoints.SaveCheckpoint(context.Background(), &core.Checkpoint{
		Key:      p.checkpointKey,
		Position: position,
	})
	if err != nil {
		p.logger.Warn("failed to save checkpoint", "key", p.checkpointKey, "position", position, "err", err)
	}
}
