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


// Package llamacpp implements ai.Embedder against a llama.cpp style embedding server.
//
// Each request is a POST of {"content": "<text>"} with a JSON content type; a
// successful response carries {"embedding": [<float>, ...]}. Input text is
// truncated client-side to ContextSize*4 characters. The client never retries;
// retry policy belongs to callers (see ingestion.WithRetry) and NewBreaker can
// be layered on top to fail fast while the server is down.
//
// # Usage
//
//	cfg := ai.NewConfig(
//	    ai.WithEndpoint("http://localhost:8080/embedding"),
//	    ai.WithContextSize(512),
//	)
//
//	embedder, err := llamacpp.NewEmbedder(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	embedder = llamacpp.NewBreaker(embedder, llamacpp.DefaultBreakerConfig())
package llamacpp
