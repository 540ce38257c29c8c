// Package dataset reads persisted embedding records back and assembles them
// into training and test sets.
//
// The Loader recognizes every encoding the pipeline has written over time,
// probing each source structurally:
//
//	aggregate  {"embeddings": [[...], ...], "dataset": [[text, label], ...]}
//	array      [{"embedding": [...], "label": n}, ...]
//	flat       {"embedding": [...], "label": n}          one per line
//	entry      {"embedding": [...], "entry": [text, label]}  one per line
//
// Malformed lines and entries are skipped and counted in the LoadReport.
//
// Shuffle, Split and Merge build new datasets and never modify their inputs.
// Merge and CheckShape reject feature vectors of differing dimension before
// the data reaches a model.
package dataset
