// Package mock provides test double implementations of ai.Embedder.
//
// The mocks let pipeline tests run without a live embedding server and make
// behavior deterministic and observable.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	embedder := mock.NewMockEmbedder()
//	vector, err := embedder.EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	embedder := mock.NewMockEmbedder().
//	    WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
//	        return []float32{0.1, 0.2, 0.3}, nil
//	    })
//
//	// Check call counts and received texts
//	count := embedder.CallCount()
//	texts := embedder.Texts()
//
// # Default Behavior
//
// MockEmbedder returns deterministic vectors derived from a hash of the text,
// and rejects empty text with core.ErrInvalidInput like the real client.
package mock
