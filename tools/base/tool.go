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

package base

import (
	"context"
	"time"
)

// ParamType enumerates the value kinds a tool parameter accepts.
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
	ParamArray   ParamType = "array"
	ParamObject  ParamType = "object"
)

// ParameterSpec describes a single named parameter of a tool.
type ParameterSpec struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Description string    `json:"description,omitempty"`
	Required    bool      `json:"required"`
}

// ToolDescriptor describes one named operation exposed by a tool group.
// Descriptors are created at group initialization and are immutable until
// the registry replaces the group's set via Refresh.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ParameterSpec `json:"parameters"`
	Group       string          `json:"group"`
}

// Param looks up a parameter spec by name.
func (d ToolDescriptor) Param(name string) (ParameterSpec, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterSpec{}, false
}

// ContentBlock is one ordered unit of tool output.
type ContentBlock struct {
	Type string                 `json:"type"` // "text" or "data"
	Text string                 `json:"text,omitempty"`
	Data map[string]interface{} `json:"data,omitempty"`
}

// Result contains the outcome of a single tool invocation.
type Result struct {
	Content  []ContentBlock         `json:"content"`
	IsError  bool                   `json:"is_error"`
	Duration time.Duration          `json:"duration"`
	Group    string                 `json:"group"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Text concatenates the text blocks of a result in order.
func (r *Result) Text() string {
	out := ""
	for _, b := range r.Content {
		if b.Type == "text" {
			out += b.Text
		}
	}
	return out
}

// TextResult builds a single-block successful result.
func TextResult(group, text string) *Result {
	return &Result{
		Content: []ContentBlock{{Type: "text", Text: text}},
		Group:   group,
	}
}

// Group is the contract every tool group implements. A group exposes a set
// of named operations against one backend (mail search, document review,
// object storage, ...). Implementations must be safe for concurrent use.
type Group interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close(ctx context.Context) error
	HealthCheck(ctx context.Context) (*HealthStatus, error)

	// Catalog
	Name() string
	Descriptors() []ToolDescriptor

	// Invoke executes one named operation with concrete arguments.
	Invoke(ctx context.Context, tool string, args map[string]interface{}) (*Result, error)
}

// HealthStatus reports the outcome of a group health probe.
type HealthStatus struct {
	Healthy   bool              `json:"healthy"`
	Latency   time.Duration     `json:"latency"`
	Details   map[string]string `json:"details,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Error     string            `json:"error,omitempty"`
}

// GroupError represents errors raised by tool group operations.
type GroupError struct {
	GroupName string
	Operation string
	Message   string
	Cause     error
}

func (e *GroupError) Error() string {
	if e.Cause != nil {
		return e.GroupName + "." + e.Operation + ": " + e.Message + " (cause: " + e.Cause.Error() + ")"
	}
	return e.GroupName + "." + e.Operation + ": " + e.Message
}

func (e *GroupError) Unwrap() error {
	return e.Cause
}

// NewGroupError creates a new GroupError.
func NewGroupError(groupName, operation, message string, cause error) *GroupError {
	return &GroupError{
		GroupName: groupName,
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}
