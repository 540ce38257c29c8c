// Package persist appends produced embedding records to durable storage.
//
// A Persister consumes the result stream of an ingestion.Producer. Successful
// records are handed over a bounded channel to a single writer goroutine that
// owns the batch buffer and the sink. Every full batch is written as
// newline-delimited JSON with one Write call, and the remaining partial batch
// is written when the stream ends or is cancelled.
//
// Failed results are counted and logged, never written. A failed write ends
// the run with an error wrapping core.ErrIOFailure.
//
// # Usage
//
//	out, err := os.OpenFile("embeddings.ndjson", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer out.Close()
//
//	persister, err := persist.NewPersister(out,
//	    persist.WithBatchSize(100),
//	    persist.WithProgress(os.Stderr, 1),
//	)
//	summary, err := persister.Persist(ctx, producer.Produce(ctx, items), len(items))
package persist
