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
	"time"

	"github.com/google/uuid"

	"axonflow/assistant/llm"
	"axonflow/assistant/shared/logger"
	"axonflow/assistant/tools/base"
	"axonflow/assistant/tools/registry"
)

// Assistant is the top-level entry point of the orchestration layer. It
// owns the session map, the classifier, the executor, and the fallback
// reasoning backend. The user-visible path never dead-ends on a backend
// failure: HandleUserTurn always returns usable text.
type Assistant struct {
	sessions   *SessionManager
	classifier *Classifier
	executor   *ToolExecutor
	workflow   *Workflow
	registry   *registry.Registry
	ledger     *AuditLedger
	fallback   llm.Provider
	health     *HealthMonitor
	logger     *logger.Logger
}

// NewAssistant wires the orchestration layer together.
func NewAssistant(sessions *SessionManager, reg *registry.Registry, executor *ToolExecutor, ledger *AuditLedger, fallback llm.Provider) *Assistant {
	return &Assistant{
		sessions:   sessions,
		classifier: NewClassifier(),
		executor:   executor,
		workflow:   NewWorkflow(executor),
		registry:   reg,
		ledger:     ledger,
		fallback:   fallback,
		health:     NewHealthMonitor(reg, ledger),
		logger:     logger.New("ASSISTANT"),
	}
}

// HandleUserTurn processes one turn of user text and returns the final
// reply. All failures are classified and folded into the returned text;
// no backend or transport error escapes this method.
func (a *Assistant) HandleUserTurn(ctx context.Context, text, userID, sessionID string) string {
	start := time.Now()
	requestID := uuid.New().String()

	session := a.sessions.GetOrCreate(sessionID, userID)
	session.Trace.Reset()

	cctx := CallContext{
		Caller:    "assistant",
		RequestID: requestID,
		Source:    "user_turn",
		User:      UserContext{UserID: userID, SessionID: sessionID},
	}

	_ = session.Memory.AppendUser(text)

	cls := a.classifier.Classify(text)
	a.logger.Info(sessionID, requestID, "classified request", map[string]interface{}{
		"route": string(cls.Route),
	})

	var reply string
	switch cls.Route {
	case RouteDirect:
		reply = CapabilitySummary()
		session.Trace.Emit(TraceEntry{
			SessionID: sessionID,
			Action:    "Direct response",
			Status:    TraceSuccess,
		})
		_ = session.Memory.AppendAssistant(reply, "")

	case RoutePipeline:
		out, err := a.workflow.RunDocumentPipeline(ctx, cls, cctx, session.Trace, session.Memory)
		reply = out
		if err != nil {
			if asCallError(err).Class == ClassUnavailable {
				reply = a.fallbackReply(ctx, text, session, cctx)
			} else {
				_ = session.Memory.AppendAssistant(reply, "")
			}
		}

	case RouteMailSearch:
		reply = a.runSingleDelegate(ctx, ToolCall{
			Tool: ToolMailSearch,
			Args: map[string]interface{}{"query": cls.Query, "user_id": userID},
		}, session, cctx, text)

	case RouteDocAnalysis:
		reply = a.runSingleDelegate(ctx, ToolCall{
			Tool: ToolDocAnalyze,
			Args: map[string]interface{}{"text": text},
		}, session, cctx, text)

	default:
		reply = a.fallbackReply(ctx, text, session, cctx)
	}

	elapsed := time.Since(start)
	recordTurn(string(cls.Route), elapsed)
	a.logger.InfoWithDuration(sessionID, requestID, "turn completed", float64(elapsed.Milliseconds()), map[string]interface{}{
		"route": string(cls.Route),
	})
	return reply
}

// runSingleDelegate executes one tool call and renders the outcome.
// Unavailable backends drop through to the fallback path.
func (a *Assistant) runSingleDelegate(ctx context.Context, call ToolCall, session *Session, cctx CallContext, originalText string) string {
	result, err := a.executor.Execute(ctx, call, cctx, session.Trace)
	if err != nil {
		cerr := asCallError(err)
		if cerr.Class == ClassUnavailable {
			return a.fallbackReply(ctx, originalText, session, cctx)
		}
		reply := cerr.UserMessage()
		_ = session.Memory.AppendAssistant(reply, "")
		return reply
	}
	reply := result.Text()
	_ = session.Memory.AppendBackendExchange(result.Group, "backend", reply)
	_ = session.Memory.AppendAssistant(reply, result.Group)
	return reply
}

// fallbackReply delegates unmodified user text plus rendered memory
// context to the general-purpose reasoning backend. Every delegation
// opens with a delegating trace entry and closes with exactly one
// success, info, or error entry. When the backend is unavailable the
// static capability summary is returned as a degraded, non-error
// result. The final reply always reaches memory, tagged with the
// backend that produced it, or untagged when none did.
func (a *Assistant) fallbackReply(ctx context.Context, text string, session *Session, cctx CallContext) string {
	session.Trace.Emit(TraceEntry{
		SessionID: session.ID,
		Action:    "Delegating to " + a.fallback.Name(),
		Status:    TraceDelegating,
	})

	resp, err := a.fallback.Complete(ctx, llm.CompletionRequest{
		Input:     text,
		Context:   session.Memory.RenderContext(),
		SessionID: session.ID,
	})
	if err == nil {
		session.Trace.Emit(TraceEntry{
			SessionID: session.ID,
			Action:    "General reasoning",
			Status:    TraceSuccess,
			Duration:  resp.Latency,
		})
		_ = session.Memory.AppendBackendExchange(a.fallback.Name(), "backend", resp.Content)
		_ = session.Memory.AppendAssistant(resp.Content, a.fallback.Name())
		return resp.Content
	}

	var notFound *llm.NotFoundError
	if errors.As(err, &notFound) || errors.Is(err, context.DeadlineExceeded) {
		session.Trace.Emit(TraceEntry{
			SessionID: session.ID,
			Action:    "Fallback to capability summary",
			Status:    TraceInfo,
			Detail:    "reasoning backend unreachable",
		})
		a.logger.Info(session.ID, cctx.RequestID, "reasoning backend unreachable, serving capability summary", nil)
		reply := CapabilitySummary()
		_ = session.Memory.AppendAssistant(reply, "")
		return reply
	}

	session.Trace.Emit(TraceEntry{
		SessionID: session.ID,
		Action:    "General reasoning failed",
		Status:    TraceError,
		Detail:    err.Error(),
	})
	a.logger.ErrorWithCause(session.ID, cctx.RequestID, "reasoning backend failed", err, nil)
	reply := (&CallError{Class: ClassDegraded}).UserMessage()
	_ = session.Memory.AppendAssistant(reply, "")
	return reply
}

// RunBatch executes several tool calls in parallel for one session and
// synthesizes a single labeled reply. Each call is isolated: one failure
// never cancels its siblings, and every call is audited individually.
func (a *Assistant) RunBatch(ctx context.Context, calls []ToolCall, userID, sessionID string) string {
	requestID := uuid.New().String()
	session := a.sessions.GetOrCreate(sessionID, userID)
	session.Trace.Reset()

	cctx := CallContext{
		Caller:    "assistant",
		RequestID: requestID,
		Source:    "batch",
		User:      UserContext{UserID: userID, SessionID: sessionID},
	}

	results := a.workflow.RunFanOut(ctx, calls, cctx, session.Trace)
	steps := make([]StepResult, 0, len(results))
	for _, r := range results {
		steps = append(steps, StepResult{Action: r.Call.Tool, Result: r.Result, Err: r.Err})
	}

	reply := Synthesize(steps)
	_ = session.Memory.AppendAssistant(reply, "")
	return reply
}

// GetTraces returns the trace entries of the most recent request in the
// given session.
func (a *Assistant) GetTraces(sessionID string) []TraceEntry {
	session, ok := a.sessions.Get(sessionID)
	if !ok {
		return nil
	}
	return session.Trace.Snapshot()
}

// GetAuditLog returns the current audit ledger contents, oldest first.
func (a *Assistant) GetAuditLog() []AuditEntry {
	return a.ledger.Snapshot()
}

// GetHealth probes every registered backend group.
func (a *Assistant) GetHealth(ctx context.Context) map[string]*base.HealthStatus {
	return a.health.Check(ctx)
}

// RecentErrors reports the audit ledger error count within the trailing
// window.
func (a *Assistant) RecentErrors(window time.Duration) int {
	return a.health.RecentErrorCount(window)
}
