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

// Package mailsearch exposes the communication-search backend as a tool
// group. The backend accepts structured-or-free-text queries and returns
// matching messages with sender, subject, date, and body fields.
package mailsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"axonflow/assistant/tools/base"
)

const groupName = "mail-search"

// HTTPClient abstracts the HTTP transport for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Group is the mail-search tool group.
type Group struct {
	endpoint string
	client   HTTPClient
}

// Message is one search hit returned by the backend.
type Message struct {
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
	Date    string `json:"date"`
	Body    string `json:"body"`
}

type searchRequest struct {
	Query      string `json:"query"`
	UserID     string `json:"user_id,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

type searchResponse struct {
	Messages []Message `json:"messages"`
}

// New creates the group against a backend base URL.
func New(endpoint string) *Group {
	return &Group{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// NewWithClient wires a custom transport. Used by tests.
func NewWithClient(endpoint string, client HTTPClient) *Group {
	return &Group{endpoint: strings.TrimRight(endpoint, "/"), client: client}
}

func (g *Group) Name() string { return groupName }

func (g *Group) Init(ctx context.Context) error {
	if g.endpoint == "" {
		return base.NewGroupError(groupName, "Init", "endpoint is required", nil)
	}
	return nil
}

func (g *Group) Close(ctx context.Context) error { return nil }

// HealthCheck probes the backend's health endpoint.
func (g *Group) HealthCheck(ctx context.Context) (*base.HealthStatus, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, "GET", g.endpoint+"/health", nil)
	if err != nil {
		return nil, base.NewGroupError(groupName, "HealthCheck", "failed to create request", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return &base.HealthStatus{
			Healthy:   false,
			Latency:   time.Since(start),
			Timestamp: time.Now().UTC(),
			Error:     err.Error(),
		}, nil
	}
	defer func() { _ = resp.Body.Close() }()

	return &base.HealthStatus{
		Healthy:   resp.StatusCode == http.StatusOK,
		Latency:   time.Since(start),
		Timestamp: time.Now().UTC(),
		Details:   map[string]string{"status_code": fmt.Sprintf("%d", resp.StatusCode)},
	}, nil
}

func (g *Group) Descriptors() []base.ToolDescriptor {
	return []base.ToolDescriptor{
		{
			Name:        "search_messages",
			Description: "Search messages and correspondence. Supports filter syntax like status:unread, sender:Name, date:today, has:attachment alongside free text.",
			Group:       groupName,
			Parameters: []base.ParameterSpec{
				{Name: "query", Type: base.ParamString, Description: "Search query", Required: true},
				{Name: "user_id", Type: base.ParamString, Description: "Requesting user id", Required: false},
				{Name: "max_results", Type: base.ParamNumber, Description: "Maximum hits to return", Required: false},
			},
		},
	}
}

// Invoke executes one named operation.
func (g *Group) Invoke(ctx context.Context, tool string, args map[string]interface{}) (*base.Result, error) {
	switch tool {
	case "search_messages":
		return g.search(ctx, args)
	default:
		return nil, base.NewGroupError(groupName, "Invoke", fmt.Sprintf("unsupported tool %q", tool), nil)
	}
}

func (g *Group) search(ctx context.Context, args map[string]interface{}) (*base.Result, error) {
	sr := searchRequest{}
	if q, ok := args["query"].(string); ok {
		sr.Query = q
	}
	if u, ok := args["user_id"].(string); ok {
		sr.UserID = u
	}
	if n, ok := args["max_results"].(float64); ok {
		sr.MaxResults = int(n)
	}

	payload, err := json.Marshal(sr)
	if err != nil {
		return nil, base.NewGroupError(groupName, "search", "failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.endpoint+"/api/v1/search", bytes.NewReader(payload))
	if err != nil {
		return nil, base.NewGroupError(groupName, "search", "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, base.NewGroupError(groupName, "search", "backend unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, base.NewGroupError(groupName, "search", "failed to read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, base.NewGroupError(groupName, "search",
			fmt.Sprintf("backend returned status %d", resp.StatusCode), nil)
	}

	var out searchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, base.NewGroupError(groupName, "search", "failed to parse response", err)
	}

	result := base.TextResult(groupName, renderMessages(out.Messages))
	result.Metadata = map[string]interface{}{"count": len(out.Messages)}
	return result, nil
}

// renderMessages flattens hits into readable text. Zero hits yields an
// explicit negative so callers can detect an empty result.
func renderMessages(msgs []Message) string {
	if len(msgs) == 0 {
		return "No messages found."
	}
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		fmt.Fprintf(&b, "Sender: %s\nSubject: %s\nDate: %s\n\n%s\n", m.Sender, m.Subject, m.Date, m.Body)
	}
	return strings.TrimRight(b.String(), "\n")
}
