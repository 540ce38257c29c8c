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


package ai

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Environment keys recognized for embedding configuration.
const (
	EnvContextSize = "EMBEDDING_CONTEXT_SIZE"
	EnvEndpoint    = "DOCKER_EMBEDDING_ENDPOINT"
)

// CharsPerToken is the heuristic ratio used to turn a token context size into a
// character bound.
const CharsPerToken = 4

// Config holds configuration for the embedding service.
type Config struct {
	// Endpoint is the full URL the embedding request is POSTed to.
	// Example: "http://localhost:8080/embedding" for a llama.cpp server
	Endpoint string

	// ContextSize is the model context in tokens. Input text is truncated to
	// ContextSize*CharsPerToken characters before it is sent.
	ContextSize int

	// Timeout bounds a single embedding request. Zero disables the timeout.
	// Default: 60s
	Timeout time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEndpoint sets the embedding service URL.
func WithEndpoint(endpoint string) ConfigOption {
	return func(c *Config) {
		c.Endpoint = endpoint
	}
}

// WithContextSize sets the model context size in tokens.
func WithContextSize(size int) ConfigOption {
	return func(c *Config) {
		c.ContextSize = size
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// DefaultConfig returns a Config with defaults for a local llama.cpp server.
// Endpoint and ContextSize have no defaults; both must be supplied.
func DefaultConfig() *Config {
	return &Config{
		Timeout: 60 * time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithEndpoint("http://localhost:8080/embedding"),
//	    WithContextSize(512),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// MaxChars returns the client-side truncation bound in characters.
func (c *Config) MaxChars() int {
	return c.ContextSize * CharsPerToken
}

// Normalize trims whitespace around the endpoint.
func (c *Config) Normalize() {
	c.Endpoint = strings.TrimSpace(c.Endpoint)
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.Endpoint == "" {
		return errors.New("ai config: Endpoint is required (" + EnvEndpoint + ")")
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("ai config: Endpoint must be an absolute URL")
	}
	if c.ContextSize <= 0 {
		return errors.New("ai config: ContextSize must be greater than 0 (" + EnvContextSize + ")")
	}
	if c.Timeout < 0 {
		return errors.New("ai config: Timeout cannot be negative")
	}
	return nil
}
