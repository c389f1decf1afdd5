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

package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"axonflow/assistant/llm"
	"axonflow/assistant/tools/registry"
)

// ErrorClass is the failure taxonomy applied at the executor boundary.
// Every backend or transport failure is reclassified into one of these
// before it reaches the workflow layer; raw errors never cross
// HandleUserTurn.
type ErrorClass string

const (
	// ClassUnavailable: the named backend does not exist. Recoverable,
	// routed to the fallback path, never surfaced raw.
	ClassUnavailable ErrorClass = "unavailable"

	// ClassDegraded: the backend exists but an upstream dependency
	// failed. Surfaced as "temporarily unavailable"; not retried within
	// the request.
	ClassDegraded ErrorClass = "degraded"

	// ClassUnknownTool: the call named an unregistered tool. Fatal only
	// for that call.
	ClassUnknownTool ErrorClass = "unknown_tool"

	// ClassDenied: blocked by the security policy. Logged as a security
	// event.
	ClassDenied ErrorClass = "denied"

	// ClassFatal: any other transport or parse failure for this call.
	ClassFatal ErrorClass = "fatal"
)

// CallError is the classified outcome of a failed tool call.
type CallError struct {
	Class   ErrorClass
	Tool    string
	Backend string
	Message string
	Cause   error
}

func (e *CallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Tool, e.Class, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Tool, e.Class, e.Message)
}

func (e *CallError) Unwrap() error {
	return e.Cause
}

// ClassifyError maps an arbitrary failure into the executor taxonomy.
func ClassifyError(tool, backend string, err error) *CallError {
	var notFound *registry.ErrToolNotFound
	if errors.As(err, &notFound) {
		return &CallError{
			Class:   ClassUnknownTool,
			Tool:    tool,
			Backend: backend,
			Message: "unknown tool",
			Cause:   err,
		}
	}

	var backendMissing *llm.NotFoundError
	if errors.As(err, &backendMissing) {
		return &CallError{
			Class:   ClassUnavailable,
			Tool:    tool,
			Backend: backend,
			Message: "backend not found",
			Cause:   err,
		}
	}

	var upstream *llm.UpstreamError
	if errors.As(err, &upstream) {
		return &CallError{
			Class:   ClassDegraded,
			Tool:    tool,
			Backend: backend,
			Message: "backend dependency failed",
			Cause:   err,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &CallError{
			Class:   ClassDegraded,
			Tool:    tool,
			Backend: backend,
			Message: "call timed out",
			Cause:   err,
		}
	}

	return &CallError{
		Class:   ClassFatal,
		Tool:    tool,
		Backend: backend,
		Message: "call failed",
		Cause:   err,
	}
}

// UserMessage renders the polite, user-facing form of a classified
// failure. Degraded failures apologize and suggest retrying later;
// nothing here exposes transport detail.
func (e *CallError) UserMessage() string {
	switch e.Class {
	case ClassDegraded:
		return "That service is temporarily unavailable. Please try again in a few minutes."
	case ClassUnknownTool:
		return fmt.Sprintf("I don't have an operation named %q available right now.", e.Tool)
	case ClassDenied:
		return fmt.Sprintf("The operation %q is not permitted by the current security policy.", e.Tool)
	default:
		return "Something went wrong handling that request. The details have been recorded."
	}
}
