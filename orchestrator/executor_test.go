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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axonflow/assistant/tools/base"
	"axonflow/assistant/tools/registry"
)

// fakeGroup is an in-memory base.Group for testing the execution path.
type fakeGroup struct {
	name    string
	descs   []base.ToolDescriptor
	invoke  func(ctx context.Context, tool string, args map[string]interface{}) (*base.Result, error)
	initErr error
}

func (f *fakeGroup) Name() string                       { return f.name }
func (f *fakeGroup) Init(ctx context.Context) error     { return f.initErr }
func (f *fakeGroup) Close(ctx context.Context) error    { return nil }
func (f *fakeGroup) Descriptors() []base.ToolDescriptor { return f.descs }

func (f *fakeGroup) HealthCheck(ctx context.Context) (*base.HealthStatus, error) {
	return &base.HealthStatus{Healthy: true, Timestamp: time.Now()}, nil
}

func (f *fakeGroup) Invoke(ctx context.Context, tool string, args map[string]interface{}) (*base.Result, error) {
	return f.invoke(ctx, tool, args)
}

func echoDescriptor(name, group string) base.ToolDescriptor {
	return base.ToolDescriptor{
		Name:  name,
		Group: group,
		Parameters: []base.ParameterSpec{
			{Name: "text", Type: base.ParamString, Required: true},
		},
	}
}

func newTestRegistry(t *testing.T, groups ...*fakeGroup) *registry.Registry {
	t.Helper()
	reg := registry.NewRegistry()
	for _, g := range groups {
		require.NoError(t, reg.Register(context.Background(), g.name, g))
	}
	return reg
}

func testCallContext(sessionID string) CallContext {
	return CallContext{
		Caller:    "test",
		RequestID: "req-1",
		Source:    "test",
		User:      UserContext{UserID: "user-1", SessionID: sessionID},
	}
}

func TestExecutor_SuccessProducesOneAuditEntryAndTracePair(t *testing.T) {
	g := &fakeGroup{
		name:  "echo",
		descs: []base.ToolDescriptor{echoDescriptor("echo_text", "echo")},
		invoke: func(ctx context.Context, tool string, args map[string]interface{}) (*base.Result, error) {
			return base.TextResult("echo", args["text"].(string)), nil
		},
	}
	ledger := NewAuditLedger(10, nil)
	ex := NewToolExecutor(newTestRegistry(t, g), NewSecurityPolicy(nil, nil, ModeEnforcing), ledger, time.Second, 4)
	trace := NewTraceLog()

	result, err := ex.Execute(context.Background(), ToolCall{
		Tool: "echo_text",
		Args: map[string]interface{}{"text": "hello"},
	}, testCallContext("s1"), trace)

	require.NoError(t, err)
	assert.Equal(t, "hello", result.Text())

	entries := ledger.Snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, AuditSuccess, entries[0].Outcome)
	assert.Equal(t, "echo_text", entries[0].Tool)
	assert.Equal(t, "echo", entries[0].Group)

	traces := trace.Snapshot()
	require.Len(t, traces, 2)
	assert.Equal(t, TraceDelegating, traces[0].Status)
	assert.Equal(t, TraceSuccess, traces[1].Status)
}

func TestExecutor_UnknownToolYieldsOneErrorAuditEntry(t *testing.T) {
	ledger := NewAuditLedger(10, nil)
	ex := NewToolExecutor(newTestRegistry(t), NewSecurityPolicy(nil, nil, ModeEnforcing), ledger, time.Second, 4)
	trace := NewTraceLog()

	_, err := ex.Execute(context.Background(), ToolCall{
		Tool: "does_not_exist",
		Args: map[string]interface{}{},
	}, testCallContext("s1"), trace)

	require.Error(t, err)
	cerr := asCallError(err)
	assert.Equal(t, ClassUnknownTool, cerr.Class)

	entries := ledger.Snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, AuditError, entries[0].Outcome)
}

func TestExecutor_AllowAndDenyEvaluatesAsDenied(t *testing.T) {
	g := &fakeGroup{
		name:  "echo",
		descs: []base.ToolDescriptor{echoDescriptor("echo_text", "echo")},
		invoke: func(ctx context.Context, tool string, args map[string]interface{}) (*base.Result, error) {
			t.Fatal("denied tool must not be invoked")
			return nil, nil
		},
	}
	ledger := NewAuditLedger(10, nil)
	policy := NewSecurityPolicy([]string{"echo_text"}, []string{"echo_text"}, ModeEnforcing)
	ex := NewToolExecutor(newTestRegistry(t, g), policy, ledger, time.Second, 4)

	_, err := ex.Execute(context.Background(), ToolCall{
		Tool: "echo_text",
		Args: map[string]interface{}{"text": "hi"},
	}, testCallContext("s1"), NewTraceLog())

	require.Error(t, err)
	assert.Equal(t, ClassDenied, asCallError(err).Class)

	entries := ledger.Snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, AuditDenied, entries[0].Outcome)
}

func TestExecutor_MissingRequiredArgumentFailsBeforeInvoke(t *testing.T) {
	invoked := false
	g := &fakeGroup{
		name:  "echo",
		descs: []base.ToolDescriptor{echoDescriptor("echo_text", "echo")},
		invoke: func(ctx context.Context, tool string, args map[string]interface{}) (*base.Result, error) {
			invoked = true
			return base.TextResult("echo", "x"), nil
		},
	}
	ledger := NewAuditLedger(10, nil)
	ex := NewToolExecutor(newTestRegistry(t, g), NewSecurityPolicy(nil, nil, ModeEnforcing), ledger, time.Second, 4)

	_, err := ex.Execute(context.Background(), ToolCall{
		Tool: "echo_text",
		Args: map[string]interface{}{},
	}, testCallContext("s1"), NewTraceLog())

	require.Error(t, err)
	assert.Equal(t, ClassFatal, asCallError(err).Class)
	assert.False(t, invoked)
	assert.Len(t, ledger.Snapshot(), 1)
}

func TestExecutor_TimeoutClassifiesAsDegraded(t *testing.T) {
	g := &fakeGroup{
		name:  "slow",
		descs: []base.ToolDescriptor{echoDescriptor("slow_call", "slow")},
		invoke: func(ctx context.Context, tool string, args map[string]interface{}) (*base.Result, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	ledger := NewAuditLedger(10, nil)
	ex := NewToolExecutor(newTestRegistry(t, g), NewSecurityPolicy(nil, nil, ModeEnforcing), ledger, 20*time.Millisecond, 4)

	_, err := ex.Execute(context.Background(), ToolCall{
		Tool: "slow_call",
		Args: map[string]interface{}{"text": "x"},
	}, testCallContext("s1"), NewTraceLog())

	require.Error(t, err)
	assert.Equal(t, ClassDegraded, asCallError(err).Class)
}

func TestExecutor_SessionConcurrencyLimitFailsFast(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	g := &fakeGroup{
		name:  "block",
		descs: []base.ToolDescriptor{echoDescriptor("block_call", "block")},
		invoke: func(ctx context.Context, tool string, args map[string]interface{}) (*base.Result, error) {
			close(started)
			<-release
			return base.TextResult("block", "done"), nil
		},
	}
	ledger := NewAuditLedger(10, nil)
	ex := NewToolExecutor(newTestRegistry(t, g), NewSecurityPolicy(nil, nil, ModeEnforcing), ledger, time.Second, 1)

	done := make(chan error, 1)
	go func() {
		_, err := ex.Execute(context.Background(), ToolCall{
			Tool: "block_call",
			Args: map[string]interface{}{"text": "x"},
		}, testCallContext("s1"), NewTraceLog())
		done <- err
	}()
	<-started

	// Same session: over the limit, fails fast.
	_, err := ex.Execute(context.Background(), ToolCall{
		Tool: "block_call",
		Args: map[string]interface{}{"text": "x"},
	}, testCallContext("s1"), NewTraceLog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many concurrent operations")

	close(release)
	require.NoError(t, <-done)
}

func TestExecutor_ErrorResultBecomesDegraded(t *testing.T) {
	g := &fakeGroup{
		name:  "echo",
		descs: []base.ToolDescriptor{echoDescriptor("echo_text", "echo")},
		invoke: func(ctx context.Context, tool string, args map[string]interface{}) (*base.Result, error) {
			return &base.Result{
				Content: []base.ContentBlock{{Type: "text", Text: "backend said no"}},
				IsError: true,
			}, nil
		},
	}
	ledger := NewAuditLedger(10, nil)
	ex := NewToolExecutor(newTestRegistry(t, g), NewSecurityPolicy(nil, nil, ModeEnforcing), ledger, time.Second, 4)

	_, err := ex.Execute(context.Background(), ToolCall{
		Tool: "echo_text",
		Args: map[string]interface{}{"text": "x"},
	}, testCallContext("s1"), NewTraceLog())

	require.Error(t, err)
	assert.Equal(t, ClassDegraded, asCallError(err).Class)
}
