// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package automation bridges a third-party workflow-action catalog into
// the tool registry. The catalog is discovered at initialization, one
// descriptor per remote action, so a registry refresh picks up actions
// published after startup.
package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"axonflow/assistant/tools/base"
)

const groupName = "automation"

// HTTPClient abstracts the HTTP transport for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Group is the workflow-automation tool group.
type Group struct {
	endpoint string
	apiKey   string
	client   HTTPClient

	mu      sync.RWMutex
	catalog []base.ToolDescriptor
}

// catalogAction is one action as described by the remote catalog.
type catalogAction struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  []struct {
		Name        string `json:"name"`
		Type        string `json:"type"`
		Description string `json:"description"`
		Required    bool   `json:"required"`
	} `json:"parameters"`
}

// New creates the group against a catalog base URL.
func New(endpoint, apiKey string) *Group {
	return &Group{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// NewWithClient wires a custom transport. Used by tests.
func NewWithClient(endpoint, apiKey string, client HTTPClient) *Group {
	return &Group{endpoint: strings.TrimRight(endpoint, "/"), apiKey: apiKey, client: client}
}

func (g *Group) Name() string { return groupName }

// Init discovers the remote action catalog. Called again on registry
// refresh to pick up newly published actions.
func (g *Group) Init(ctx context.Context) error {
	actions, err := g.discover(ctx)
	if err != nil {
		return err
	}

	catalog := make([]base.ToolDescriptor, 0, len(actions))
	for _, a := range actions {
		desc := base.ToolDescriptor{
			Name:        a.Name,
			Description: a.Description,
			Group:       groupName,
		}
		for _, p := range a.Parameters {
			desc.Parameters = append(desc.Parameters, base.ParameterSpec{
				Name:        p.Name,
				Type:        base.ParamType(p.Type),
				Description: p.Description,
				Required:    p.Required,
			})
		}
		catalog = append(catalog, desc)
	}

	g.mu.Lock()
	g.catalog = catalog
	g.mu.Unlock()
	return nil
}

func (g *Group) Close(ctx context.Context) error { return nil }

func (g *Group) HealthCheck(ctx context.Context) (*base.HealthStatus, error) {
	start := time.Now()
	_, err := g.discover(ctx)
	status := &base.HealthStatus{
		Healthy:   err == nil,
		Latency:   time.Since(start),
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		status.Error = err.Error()
	}
	return status, nil
}

func (g *Group) Descriptors() []base.ToolDescriptor {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]base.ToolDescriptor, len(g.catalog))
	copy(out, g.catalog)
	return out
}

// Invoke runs one discovered action by name.
func (g *Group) Invoke(ctx context.Context, tool string, args map[string]interface{}) (*base.Result, error) {
	g.mu.RLock()
	known := false
	for _, d := range g.catalog {
		if d.Name == tool {
			known = true
			break
		}
	}
	g.mu.RUnlock()
	if !known {
		return nil, base.NewGroupError(groupName, "Invoke", fmt.Sprintf("unsupported tool %q", tool), nil)
	}

	payload, err := json.Marshal(args)
	if err != nil {
		return nil, base.NewGroupError(groupName, tool, "failed to marshal arguments", err)
	}

	req, err := g.newRequest(ctx, "POST", fmt.Sprintf("%s/v1/actions/%s/invoke", g.endpoint, tool), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, base.NewGroupError(groupName, tool, "catalog backend unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, base.NewGroupError(groupName, tool, "failed to read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, base.NewGroupError(groupName, tool,
			fmt.Sprintf("action returned status %d: %s", resp.StatusCode, truncate(string(body), 200)), nil)
	}

	var out struct {
		Output string `json:"output"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.Output == "" {
		// Some actions return plain text.
		return base.TextResult(groupName, string(body)), nil
	}
	return base.TextResult(groupName, out.Output), nil
}

func (g *Group) discover(ctx context.Context) ([]catalogAction, error) {
	req, err := g.newRequest(ctx, "GET", g.endpoint+"/v1/actions", nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, base.NewGroupError(groupName, "discover", "catalog unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, base.NewGroupError(groupName, "discover",
			fmt.Sprintf("catalog returned status %d", resp.StatusCode), nil)
	}

	var out struct {
		Actions []catalogAction `json:"actions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, base.NewGroupError(groupName, "discover", "failed to parse catalog", err)
	}
	return out.Actions, nil
}

func (g *Group) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, base.NewGroupError(groupName, "request", "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
	return req, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
