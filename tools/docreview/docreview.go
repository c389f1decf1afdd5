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

// Package docreview exposes document analysis as a tool group backed by
// a reasoning provider. The group itself carries no analysis logic; it
// shapes the request and returns the assessment text.
package docreview

import (
	"context"
	"fmt"
	"time"

	"axonflow/assistant/llm"
	"axonflow/assistant/tools/base"
)

const groupName = "doc-review"

// Group is the document-analysis tool group.
type Group struct {
	provider llm.Provider
}

// New creates the group over a reasoning provider.
func New(provider llm.Provider) *Group {
	return &Group{provider: provider}
}

func (g *Group) Name() string { return groupName }

func (g *Group) Init(ctx context.Context) error {
	if g.provider == nil {
		return base.NewGroupError(groupName, "Init", "reasoning provider is required", nil)
	}
	return nil
}

func (g *Group) Close(ctx context.Context) error { return nil }

func (g *Group) HealthCheck(ctx context.Context) (*base.HealthStatus, error) {
	return &base.HealthStatus{
		Healthy:   g.provider.IsHealthy(),
		Timestamp: time.Now().UTC(),
		Details:   map[string]string{"provider": g.provider.Name()},
	}, nil
}

func (g *Group) Descriptors() []base.ToolDescriptor {
	return []base.ToolDescriptor{
		{
			Name:        "analyze_document",
			Description: "Analyze document text for risks, key terms, red flags, and recommended actions.",
			Group:       groupName,
			Parameters: []base.ParameterSpec{
				{Name: "text", Type: base.ParamString, Description: "Document text, with instructions when needed", Required: true},
				{Name: "max_tokens", Type: base.ParamNumber, Description: "Response length bound", Required: false},
			},
		},
	}
}

func (g *Group) Invoke(ctx context.Context, tool string, args map[string]interface{}) (*base.Result, error) {
	if tool != "analyze_document" {
		return nil, base.NewGroupError(groupName, "Invoke", fmt.Sprintf("unsupported tool %q", tool), nil)
	}

	text, _ := args["text"].(string)
	if text == "" {
		return nil, base.NewGroupError(groupName, "analyze_document", "text is required", nil)
	}
	maxTokens := 0
	if n, ok := args["max_tokens"].(float64); ok {
		maxTokens = int(n)
	}

	resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
		Input:     text,
		MaxTokens: maxTokens,
	})
	if err != nil {
		// Provider errors carry their own class; pass them through so
		// the executor can tell unavailable from degraded.
		return nil, err
	}

	result := base.TextResult(groupName, resp.Content)
	result.Metadata = map[string]interface{}{
		"model":  resp.Model,
		"chunks": resp.Chunks,
	}
	return result, nil
}
