// Package classify provides the regression model that scores embeddings.
//
// Model is the contract the pipeline relies on: train with Update, evaluate
// with Test and score new vectors with Predict. Scores are spam
// probabilities in [0, 1] when labels are 0 (ham) and 1 (spam).
//
// KNN is a k-nearest-neighbors regressor. It keeps its training set in a
// storage.ModelRepository so a model trained by one command can be used by
// another.
package classify
