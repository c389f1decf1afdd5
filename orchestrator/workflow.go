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
	"strings"
	"sync"

	"axonflow/assistant/tools/base"
)

// Canonical tool names used by the fixed plans.
const (
	ToolMailSearch = "search_messages"
	ToolDocAnalyze = "analyze_document"
)

// fanOutLimit bounds concurrent in-flight sibling calls within one
// request so a wide fan-out cannot throttle a backend.
const fanOutLimit = 4

// ShortCircuitMessage is returned when document retrieval finds nothing.
// Ending the plan here is a normal outcome, not an error.
const ShortCircuitMessage = "I could not find any matching messages or documents. " +
	"Try naming the sender differently or broadening the request."

// analysisInstruction is the fixed template used for document review.
const analysisInstruction = "Review the following document and provide: " +
	"a risk level (low/moderate/high), the key terms, any red flags, " +
	"and a recommended action. Keep the assessment under 200 words.\n\nDocument:\n%s"

var noResultMarkers = []string{
	"no messages found", "no results", "nothing found", "0 results", "no matching",
}

// Workflow composes Tool Executor calls into sequential pipelines and
// parallel fan-out, and synthesizes one final text result.
type Workflow struct {
	executor *ToolExecutor
}

// NewWorkflow wires the workflow layer to an executor.
func NewWorkflow(executor *ToolExecutor) *Workflow {
	return &Workflow{executor: executor}
}

// RunDocumentPipeline executes the fixed retrieve-then-analyze plan:
// search correspondence for a candidate document, short-circuit when
// nothing is found, otherwise analyze the retrieved text and synthesize
// an assessment. Every step that actually ran appears in the output, in
// order, even when a later step failed.
func (w *Workflow) RunDocumentPipeline(ctx context.Context, cls Classification, cctx CallContext, trace *TraceLog, memory MemoryStore) (string, error) {
	query := "contracts and agreements, include full message bodies"
	if cls.Correspondent != "" {
		query = fmt.Sprintf("sender:%s contracts and agreements, include full message bodies", cls.Correspondent)
	}

	plan := BuildPlan([]PlanStep{
		{Action: "Search correspondence", Tool: ToolMailSearch},
		{Action: "Assess document", Tool: ToolDocAnalyze},
	})
	trace.Emit(TraceEntry{
		SessionID: cctx.User.SessionID,
		Action:    "Pipeline plan",
		Status:    TraceInfo,
		Detail:    fmt.Sprintf("%d steps, %s risk, estimated %s", len(plan.Steps), plan.Risk, plan.EstimatedDuration),
	})

	_ = memory.AppendBackendExchange("mail-search", "assistant", query)
	searchResult, err := w.executor.Execute(ctx, ToolCall{
		Tool: ToolMailSearch,
		Args: map[string]interface{}{"query": query, "user_id": cctx.User.UserID},
	}, cctx, trace)
	if err != nil {
		cerr := asCallError(err)
		return cerr.UserMessage(), err
	}

	body := searchResult.Text()
	_ = memory.AppendBackendExchange("mail-search", "backend", body)

	if isEmptyResult(body) {
		trace.Emit(TraceEntry{
			SessionID: cctx.User.SessionID,
			Action:    "Pipeline short-circuit",
			Status:    TraceInfo,
			Detail:    "document retrieval found nothing",
		})
		_ = memory.AppendAssistant(ShortCircuitMessage, "")
		return ShortCircuitMessage, nil
	}

	meta := ExtractMetadata(body)

	analysisResult, err := w.executor.Execute(ctx, ToolCall{
		Tool: ToolDocAnalyze,
		Args: map[string]interface{}{"text": fmt.Sprintf(analysisInstruction, body)},
	}, cctx, trace)

	var b strings.Builder
	if meta.Sender != MetadataUnknown || meta.Subject != MetadataUnknown || meta.Date != MetadataUnknown {
		b.WriteString("## Message Details\n")
		fmt.Fprintf(&b, "- Sender: %s\n", meta.Sender)
		fmt.Fprintf(&b, "- Subject: %s\n", meta.Subject)
		fmt.Fprintf(&b, "- Date: %s\n", meta.Date)
		b.WriteString("\n")
	}

	b.WriteString("## Retrieved Document\n")
	b.WriteString(body)
	b.WriteString("\n\n## Legal Assessment\n")

	if err != nil {
		cerr := asCallError(err)
		b.WriteString(cerr.UserMessage())
		_ = memory.AppendAssistant(b.String(), "doc-review")
		return b.String(), nil
	}

	b.WriteString(analysisResult.Text())
	_ = memory.AppendBackendExchange("doc-review", "backend", analysisResult.Text())

	out := b.String()
	_ = memory.AppendAssistant(out, "doc-review")
	return out, nil
}

// FanOutResult pairs one fan-out entry with its outcome. Exactly one of
// Result and Err is set.
type FanOutResult struct {
	Call   ToolCall
	Result *base.Result
	Err    error
}

// RunFanOut invokes all calls concurrently, bounded by fanOutLimit,
// waits for every entry to settle, and returns outcomes in input order.
// One entry's failure never cancels its siblings.
func (w *Workflow) RunFanOut(ctx context.Context, calls []ToolCall, cctx CallContext, trace *TraceLog) []FanOutResult {
	results := make([]FanOutResult, len(calls))
	sem := make(chan struct{}, fanOutLimit)
	var wg sync.WaitGroup

	for i, call := range calls {
		wg.Add(1)
		go func(i int, call ToolCall) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i] = FanOutResult{Call: call, Err: fmt.Errorf("panic in fan-out call: %v", r)}
				}
			}()
			sem <- struct{}{}
			defer func() { <-sem }()

			res, err := w.executor.Execute(ctx, call, cctx, trace)
			results[i] = FanOutResult{Call: call, Result: res, Err: err}
		}(i, call)
	}

	wg.Wait()
	return results
}

// StepResult labels one executed plan step for synthesis.
type StepResult struct {
	Action string
	Result *base.Result
	Err    error
}

// Synthesize renders the results of a generic multi-step plan. Each
// step is labeled by its action name; recognizable result shapes are
// surfaced under predictable headings when present, which is optional
// and never required for correctness.
func Synthesize(steps []StepResult) string {
	var b strings.Builder
	for i, s := range steps {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "### %s\n", s.Action)
		if s.Err != nil {
			b.WriteString(asCallError(s.Err).UserMessage())
			continue
		}
		if s.Result == nil {
			b.WriteString("(no result)")
			continue
		}
		b.WriteString(renderShape(s.Result))
	}
	return b.String()
}

// renderShape pattern matches common result shapes in a tool result's
// metadata. Falls back to the plain text content.
func renderShape(r *base.Result) string {
	if r.Metadata != nil {
		if insight, ok := r.Metadata["insight"].(string); ok && insight != "" {
			return insight
		}
		if records, ok := r.Metadata["records"].([]interface{}); ok {
			var b strings.Builder
			fmt.Fprintf(&b, "%d record(s):\n", len(records))
			for _, rec := range records {
				fmt.Fprintf(&b, "- %v\n", rec)
			}
			return strings.TrimRight(b.String(), "\n")
		}
		if listing, ok := r.Metadata["listing"].([]interface{}); ok {
			var b strings.Builder
			for _, item := range listing {
				fmt.Fprintf(&b, "- %v\n", item)
			}
			return strings.TrimRight(b.String(), "\n")
		}
		if rows, ok := r.Metadata["query_results"].([]interface{}); ok {
			var b strings.Builder
			fmt.Fprintf(&b, "%d row(s):\n", len(rows))
			for _, row := range rows {
				fmt.Fprintf(&b, "- %v\n", row)
			}
			return strings.TrimRight(b.String(), "\n")
		}
	}
	return r.Text()
}

func isEmptyResult(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, m := range noResultMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func asCallError(err error) *CallError {
	if cerr, ok := err.(*CallError); ok {
		return cerr
	}
	return &CallError{Class: ClassFatal, Message: err.Error(), Cause: err}
}
