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
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"axonflow/assistant/shared/logger"
	"axonflow/assistant/tools/base"
	"axonflow/assistant/tools/registry"
)

// ErrTooManyOps is returned when a session exceeds its concurrent
// operation limit. Callers fail fast instead of queuing.
var ErrTooManyOps = fmt.Errorf("too many concurrent operations")

// ToolExecutor performs one tool call against one backend group. It is
// the single choke point for policy evaluation, audit recording, and
// failure classification: every call produces exactly one audit entry
// and a delegating trace before the call plus a success or error trace
// after, regardless of outcome.
type ToolExecutor struct {
	registry *registry.Registry
	policy   *SecurityPolicy
	ledger   *AuditLedger
	logger   *logger.Logger

	callTimeout time.Duration
	maxOps      int

	mu         sync.Mutex
	sessionOps map[string]int
}

// NewToolExecutor wires the executor. callTimeout bounds each backend
// call; maxOps bounds concurrent in-flight calls per session.
func NewToolExecutor(reg *registry.Registry, policy *SecurityPolicy, ledger *AuditLedger, callTimeout time.Duration, maxOps int) *ToolExecutor {
	if callTimeout <= 0 {
		callTimeout = 60 * time.Second
	}
	if maxOps <= 0 {
		maxOps = 4
	}
	return &ToolExecutor{
		registry:    reg,
		policy:      policy,
		ledger:      ledger,
		logger:      logger.New("TOOL_EXECUTOR"),
		callTimeout: callTimeout,
		maxOps:      maxOps,
		sessionOps:  make(map[string]int),
	}
}

func (e *ToolExecutor) acquire(sessionID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sessionOps[sessionID] >= e.maxOps {
		return false
	}
	e.sessionOps[sessionID]++
	return true
}

func (e *ToolExecutor) release(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sessionOps[sessionID] > 0 {
		e.sessionOps[sessionID]--
	}
	if e.sessionOps[sessionID] == 0 {
		delete(e.sessionOps, sessionID)
	}
}

// Execute runs one tool call. The returned error, when non-nil, is
// always a *CallError so callers can branch on its class. Exactly one
// audit entry is appended per invocation of Execute.
func (e *ToolExecutor) Execute(ctx context.Context, call ToolCall, cctx CallContext, trace *TraceLog) (*base.Result, error) {
	start := time.Now()
	sessionID := cctx.User.SessionID

	audited := false
	audit := func(group string, outcome AuditOutcome, detail string) {
		if audited {
			return
		}
		audited = true
		entry := AuditEntry{
			ID:        uuid.New().String(),
			SessionID: sessionID,
			UserID:    cctx.User.UserID,
			Tool:      call.Tool,
			Group:     group,
			Outcome:   outcome,
			Detail:    detail,
			Duration:  time.Since(start),
		}
		e.ledger.Append(entry)
		recordToolCall(call.Tool, string(outcome), entry.Duration)
	}

	trace.Emit(TraceEntry{
		SessionID: sessionID,
		Action:    "Delegating to " + call.Tool,
		Tool:      call.Tool,
		Status:    TraceDelegating,
	})

	fail := func(group string, outcome AuditOutcome, cerr *CallError) (*base.Result, error) {
		audit(group, outcome, cerr.Message)
		trace.Emit(TraceEntry{
			SessionID: sessionID,
			Action:    "Call failed: " + call.Tool,
			Tool:      call.Tool,
			Status:    TraceError,
			Detail:    cerr.Error(),
			Duration:  time.Since(start),
		})
		e.logger.ErrorWithCause(sessionID, cctx.RequestID, "tool call failed", cerr, map[string]interface{}{
			"tool": call.Tool, "class": string(cerr.Class),
		})
		return nil, cerr
	}

	if !e.acquire(sessionID) {
		return fail("", AuditError, &CallError{
			Class: ClassFatal, Tool: call.Tool,
			Message: ErrTooManyOps.Error(), Cause: ErrTooManyOps,
		})
	}
	defer e.release(sessionID)

	desc, err := e.registry.Resolve(call.Tool)
	if err != nil {
		return fail("", AuditError, ClassifyError(call.Tool, "", err))
	}

	if err := ValidateArgs(desc, call.Args); err != nil {
		return fail(desc.Group, AuditError, &CallError{
			Class: ClassFatal, Tool: call.Tool, Backend: desc.Group,
			Message: "invalid arguments", Cause: err,
		})
	}

	if denied := e.policy.Evaluate(call.Tool); denied != nil {
		if e.policy.Mode() == ModeEnforcing {
			return fail(desc.Group, AuditDenied, &CallError{
				Class: ClassDenied, Tool: call.Tool, Backend: desc.Group,
				Message: denied.Reason, Cause: denied,
			})
		}
		e.logger.Warn(sessionID, cctx.RequestID, "permissive mode: allowing denied tool", map[string]interface{}{
			"tool": call.Tool, "reason": denied.Reason,
		})
	}

	group, err := e.registry.Group(call.Tool)
	if err != nil {
		return fail(desc.Group, AuditError, ClassifyError(call.Tool, desc.Group, err))
	}

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	result, err := group.Invoke(callCtx, call.Tool, call.Args)
	if err != nil {
		return fail(desc.Group, AuditError, ClassifyError(call.Tool, desc.Group, err))
	}
	if result == nil {
		return fail(desc.Group, AuditError, &CallError{
			Class: ClassFatal, Tool: call.Tool, Backend: desc.Group,
			Message: "backend returned no result",
		})
	}
	if result.IsError {
		return fail(desc.Group, AuditError, &CallError{
			Class: ClassDegraded, Tool: call.Tool, Backend: desc.Group,
			Message: result.Text(),
		})
	}

	result.Duration = time.Since(start)
	result.Group = desc.Group

	audit(desc.Group, AuditSuccess, "")
	trace.Emit(TraceEntry{
		SessionID: sessionID,
		Action:    "Call completed: " + call.Tool,
		Tool:      call.Tool,
		Status:    TraceSuccess,
		Duration:  result.Duration,
	})
	return result, nil
}
