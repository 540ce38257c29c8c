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


// Package ai provides the embedding abstraction used by spamsense.
//
// The pipeline depends on the Embedder interface rather than on a concrete
// client, so production code talks to a remote embedding server while tests
// use deterministic doubles.
//
// # Implementation Packages
//
//   - ai/llamacpp: HTTP client for llama.cpp style `/embedding` servers
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public production constructors (llamacpp.NewEmbedder, llamacpp.NewBreaker)
// return the ai.Embedder interface. Test utility constructors
// (mock.NewMockEmbedder) return concrete types so tests can inject behavior
// and inspect call counts.
//
// # Usage Example
//
//	cfg := ai.NewConfig(
//	    ai.WithEndpoint("http://localhost:8080/embedding"),
//	    ai.WithContextSize(512),
//	)
//	embedder, err := llamacpp.NewEmbedder(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	vector, err := embedder.EmbedText(ctx, "Hi Bob, don't forget our meeting today at 4pm.")
package ai
