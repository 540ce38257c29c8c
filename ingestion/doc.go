// Package ingestion turns labeled corpus items into embedding records.
//
// The Producer type walks a corpus in order and yields exactly one Result per
// item:
//   - a Record when the embedding service returned a vector
//   - an Err when the item could not be embedded
//
// Production is lazy. Nothing is requested until the consumer pulls the next
// result, and at most one request is outstanding at a time. Failed items never
// end the stream; they are reported through Result.Err and the caller decides
// what to do with them.
package ingestion
