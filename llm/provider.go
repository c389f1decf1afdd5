// Copyright 2025 AxonFlow
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

// Package llm provides reasoning-backend adapters for the assistant.
// It contains the generic Provider contract, the backend-family request
// shaping table, an AWS Bedrock provider, and the agent-gateway adapter
// used for the general-purpose fallback backend.
package llm

import (
	"context"
	"time"
)

// Default limits for completions.
const (
	DefaultMaxTokens = 1024
	DefaultTimeout   = 120 * time.Second
)

// CompletionRequest is a single reasoning request against a backend.
type CompletionRequest struct {
	Input     string // prompt / user text
	Context   string // rendered conversation context, may be empty
	SessionID string
	Model     string // backend/model identifier, selects the family
	MaxTokens int
}

// CompletionResponse is the fully reassembled backend output.
type CompletionResponse struct {
	Content string
	Model   string
	Chunks  int // number of stream fragments drained (0 for unary calls)
	Latency time.Duration
}

// Provider is implemented by every reasoning backend adapter.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	IsHealthy() bool
}

// NotFoundError indicates the named backend/agent does not exist. The
// executor maps this to the recoverable "unavailable" class, which routes
// the request to the fallback path instead of surfacing an error.
type NotFoundError struct {
	Backend string
}

func (e *NotFoundError) Error() string {
	return "backend not found: " + e.Backend
}

// UpstreamError indicates the backend exists but one of its dependencies
// failed. The executor maps this to the "degraded" class.
type UpstreamError struct {
	Backend string
	Cause   error
}

func (e *UpstreamError) Error() string {
	if e.Cause != nil {
		return "backend " + e.Backend + " dependency failure: " + e.Cause.Error()
	}
	return "backend " + e.Backend + " dependency failure"
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// UnconfiguredProvider stands in for a backend that was never configured.
// Every completion reports the backend as not found, which callers treat
// as the recoverable unavailable class.
type UnconfiguredProvider struct {
	Backend string
}

// Unconfigured creates a provider for a missing backend configuration.
func Unconfigured(backend string) *UnconfiguredProvider {
	return &UnconfiguredProvider{Backend: backend}
}

func (p *UnconfiguredProvider) Name() string { return p.Backend }

func (p *UnconfiguredProvider) IsHealthy() bool { return false }

func (p *UnconfiguredProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return nil, &NotFoundError{Backend: p.Backend}
}
