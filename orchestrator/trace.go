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
	"sync"
	"time"
)

// TraceStatus is the outcome recorded on a trace entry.
type TraceStatus string

const (
	TraceSuccess    TraceStatus = "success"
	TraceError      TraceStatus = "error"
	TraceInfo       TraceStatus = "info"
	TraceDelegating TraceStatus = "delegating"
)

// TraceEntry is one observability record describing a step the assistant
// took while handling a turn. Entries are diagnostic only and carry no
// authorization weight.
type TraceEntry struct {
	Timestamp time.Time     `json:"timestamp"`
	SessionID string        `json:"session_id"`
	Action    string        `json:"action"`
	Tool      string        `json:"tool,omitempty"`
	Status    TraceStatus   `json:"status"`
	Detail    string        `json:"detail,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// TraceLog accumulates trace entries for the current request. Emit never
// returns an error and never panics outward: tracing must not be able to
// break request handling. At most one subscriber can observe entries as
// they are emitted; subscriber failures are swallowed.
type TraceLog struct {
	mu         sync.Mutex
	entries    []TraceEntry
	subscriber func(TraceEntry)
}

// NewTraceLog creates an empty trace log.
func NewTraceLog() *TraceLog {
	return &TraceLog{}
}

// Subscribe installs the single live subscriber, replacing any previous
// one. Pass nil to detach.
func (t *TraceLog) Subscribe(fn func(TraceEntry)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subscriber = fn
}

// Emit appends an entry and notifies the subscriber if one is attached.
func (t *TraceLog) Emit(entry TraceEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	t.mu.Lock()
	t.entries = append(t.entries, entry)
	sub := t.subscriber
	t.mu.Unlock()

	if sub != nil {
		func() {
			defer func() { _ = recover() }()
			sub(entry)
		}()
	}
}

// Reset clears accumulated entries. Called at the start of each turn so
// trace reads reflect the most recent request only.
func (t *TraceLog) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
}

// Snapshot returns a copy of the current entries.
func (t *TraceLog) Snapshot() []TraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TraceEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len reports the number of accumulated entries.
func (t *TraceLog) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
