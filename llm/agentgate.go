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

package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// HTTPClient is an interface for HTTP client operations (enables testing).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// AgentGateProvider adapts the general-purpose agent gateway. A request
// names an agent id and alias; the gateway answers with a server-sent
// stream of response fragments which the provider fully drains and
// concatenates in arrival order.
type AgentGateProvider struct {
	endpoint string
	agentID  string
	alias    string
	client   HTTPClient
	mu       sync.RWMutex
	healthy  bool
}

// AgentGateConfig configures the agent gateway adapter.
type AgentGateConfig struct {
	Endpoint string        // Required: gateway base URL
	AgentID  string        // Required: agent to invoke
	Alias    string        // Optional: agent alias/version (default: "latest")
	Timeout  time.Duration // Optional: HTTP timeout (default: 120s)
}

// NewAgentGateProvider creates a new agent gateway provider.
func NewAgentGateProvider(cfg AgentGateConfig) (*AgentGateProvider, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("agent gateway endpoint is required")
	}
	if cfg.AgentID == "" {
		return nil, fmt.Errorf("agent id is required")
	}
	if cfg.Alias == "" {
		cfg.Alias = "latest"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &AgentGateProvider{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		agentID:  cfg.AgentID,
		alias:    cfg.Alias,
		client:   &http.Client{Timeout: cfg.Timeout},
		healthy:  true,
	}, nil
}

func (p *AgentGateProvider) Name() string {
	return "agent-gate"
}

func (p *AgentGateProvider) IsHealthy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.healthy
}

func (p *AgentGateProvider) setHealthy(healthy bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.healthy = healthy
}

type gateRequest struct {
	AgentID   string `json:"agent_id"`
	Alias     string `json:"alias"`
	SessionID string `json:"session_id"`
	Input     string `json:"input"`
}

type gateEvent struct {
	Type string `json:"type"` // "fragment" or "done"
	Text string `json:"text,omitempty"`
}

// Complete sends the input to the gateway and reassembles the fragment
// stream. A stream that closes with zero fragments and no completion
// signal is an error, not an empty answer.
func (p *AgentGateProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	input := req.Input
	if req.Context != "" {
		input = req.Context + "\n\n" + req.Input
	}

	body, err := json.Marshal(gateRequest{
		AgentID:   p.agentID,
		Alias:     p.alias,
		SessionID: req.SessionID,
		Input:     input,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.endpoint+"/v1/agents/invoke", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		p.setHealthy(false)
		return nil, &NotFoundError{Backend: p.agentID}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{Backend: p.agentID}
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			p.setHealthy(false)
		}
		return nil, &UpstreamError{
			Backend: p.agentID,
			Cause:   fmt.Errorf("gateway status %d: %s", resp.StatusCode, string(raw)),
		}
	}
	p.setHealthy(true)

	content, chunks, completed, err := drainFragmentStream(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("stream read error: %w", err)
	}
	if chunks == 0 && !completed {
		return nil, fmt.Errorf("no response from backend")
	}

	return &CompletionResponse{
		Content: content,
		Model:   p.agentID + "/" + p.alias,
		Chunks:  chunks,
		Latency: time.Since(start),
	}, nil
}

// drainFragmentStream reads the SSE body to exhaustion, concatenating
// fragment text in arrival order. Malformed events are skipped.
func drainFragmentStream(body io.Reader) (content string, chunks int, completed bool, err error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var sb strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}

		var event gateEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			continue
		}

		switch event.Type {
		case "fragment":
			sb.WriteString(event.Text)
			chunks++
		case "done":
			completed = true
		}
	}

	if err := scanner.Err(); err != nil {
		return "", chunks, completed, err
	}
	return sb.String(), chunks, completed, nil
}
