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
	"fmt"
	"sync"
	"time"
)

// EnforcementMode controls whether policy denials block calls or only log.
type EnforcementMode string

const (
	// ModeEnforcing blocks denied calls.
	ModeEnforcing EnforcementMode = "enforcing"
	// ModePermissive logs denials but lets the call proceed. Used during
	// rollout of a new policy set.
	ModePermissive EnforcementMode = "permissive"
)

// DeniedError is returned when policy evaluation blocks a tool call.
type DeniedError struct {
	Tool   string
	Reason string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("tool %s denied by policy: %s", e.Tool, e.Reason)
}

// SecurityPolicy evaluates tool calls against allow and deny sets.
// Evaluation order: explicit deny wins; a non-empty allow set makes
// absence from it a default deny; otherwise default allow. The policy is
// read-mostly and safe for concurrent use.
type SecurityPolicy struct {
	mu      sync.RWMutex
	allow   map[string]struct{}
	deny    map[string]struct{}
	mode    EnforcementMode
	maxRate int // calls per tool per minute, 0 = unlimited
}

// NewSecurityPolicy builds a policy from allow and deny lists.
func NewSecurityPolicy(allowed, denied []string, mode EnforcementMode) *SecurityPolicy {
	p := &SecurityPolicy{
		allow: make(map[string]struct{}, len(allowed)),
		deny:  make(map[string]struct{}, len(denied)),
		mode:  mode,
	}
	for _, t := range allowed {
		p.allow[t] = struct{}{}
	}
	for _, t := range denied {
		p.deny[t] = struct{}{}
	}
	return p
}

// Mode returns the current enforcement mode.
func (p *SecurityPolicy) Mode() EnforcementMode {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mode
}

// Evaluate decides whether a tool call is permitted. The returned
// DeniedError is nil when the call may proceed. In permissive mode the
// decision is still computed so callers can log it, but Allowed reports
// true.
func (p *SecurityPolicy) Evaluate(tool string) *DeniedError {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if _, denied := p.deny[tool]; denied {
		return &DeniedError{Tool: tool, Reason: "explicitly denied"}
	}
	if len(p.allow) > 0 {
		if _, ok := p.allow[tool]; !ok {
			return &DeniedError{Tool: tool, Reason: "not in allow list"}
		}
	}
	return nil
}

// AuditOutcome is the recorded result of one audited tool call.
type AuditOutcome string

const (
	AuditSuccess AuditOutcome = "success"
	AuditError   AuditOutcome = "error"
	AuditDenied  AuditOutcome = "denied"
)

// AuditEntry is one row of the call ledger. Exactly one entry is written
// per tool call regardless of outcome.
type AuditEntry struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	SessionID string        `json:"session_id"`
	UserID    string        `json:"user_id"`
	Tool      string        `json:"tool"`
	Group     string        `json:"group,omitempty"`
	Outcome   AuditOutcome  `json:"outcome"`
	Detail    string        `json:"detail,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// AuditSink receives entries for durable storage. Record must not block
// request handling and must never return an error to the caller path.
type AuditSink interface {
	Record(entry AuditEntry)
	Shutdown(timeout time.Duration)
}

// AuditLedger is the bounded in-memory call ledger. Appends evict the
// oldest entry past the cap. An optional sink receives every entry for
// durable storage; the ledger itself is diagnostic.
type AuditLedger struct {
	mu      sync.Mutex
	entries []AuditEntry
	cap     int
	sink    AuditSink
}

// NewAuditLedger creates a ledger holding at most size entries.
func NewAuditLedger(size int, sink AuditSink) *AuditLedger {
	if size <= 0 {
		size = 500
	}
	return &AuditLedger{cap: size, sink: sink}
}

// Append records one entry, evicting the oldest when full.
func (l *AuditLedger) Append(entry AuditEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.cap {
		l.entries = l.entries[len(l.entries)-l.cap:]
	}
	sink := l.sink
	l.mu.Unlock()

	if sink != nil {
		sink.Record(entry)
	}
}

// Snapshot returns a copy of the current entries, oldest first.
func (l *AuditLedger) Snapshot() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// CountByTool reports how many ledger entries reference the given tool,
// optionally restricted to one outcome ("" matches all).
func (l *AuditLedger) CountByTool(tool string, outcome AuditOutcome) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.Tool != tool {
			continue
		}
		if outcome != "" && e.Outcome != outcome {
			continue
		}
		n++
	}
	return n
}

// RecentErrors counts error outcomes within the trailing window. Feeds
// the degraded-health computation.
func (l *AuditLedger) RecentErrors(window time.Duration) int {
	cutoff := time.Now().UTC().Add(-window)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.Outcome == AuditError && e.Timestamp.After(cutoff) {
			n++
		}
	}
	return n
}
