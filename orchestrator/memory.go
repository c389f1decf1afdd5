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
	"strings"
	"sync"
	"time"
)

// MemoryEntry is one line of conversational history.
type MemoryEntry struct {
	Role      string    `json:"role"`    // "user" or "assistant"
	Content   string    `json:"content"`
	Backend   string    `json:"backend,omitempty"` // origin backend, empty for direct exchanges
	Timestamp time.Time `json:"timestamp"`
}

// MemoryStore holds the conversational history for one session across
// three append-only scopes: the user<->assistant dialogue, per-backend
// exchanges, and a merged chronological transcript. Entries are never
// deleted mid-session.
type MemoryStore interface {
	AppendUser(text string) error
	AppendAssistant(text, originBackend string) error
	AppendBackendExchange(backend, role, text string) error
	RenderContext() string
	Transcript() []MemoryEntry
}

// InMemoryStore is the default MemoryStore. Single mutex, append-only.
type InMemoryStore struct {
	mu         sync.Mutex
	dialogue   []MemoryEntry
	exchanges  map[string][]MemoryEntry
	transcript []MemoryEntry
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{exchanges: make(map[string][]MemoryEntry)}
}

// AppendUser records one user utterance.
func (m *InMemoryStore) AppendUser(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := MemoryEntry{Role: "user", Content: text, Timestamp: time.Now().UTC()}
	m.dialogue = append(m.dialogue, e)
	m.transcript = append(m.transcript, e)
	return nil
}

// AppendAssistant records one assistant reply. originBackend is empty for
// directly answered turns and names the backend that produced the text
// otherwise.
func (m *InMemoryStore) AppendAssistant(text, originBackend string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := MemoryEntry{Role: "assistant", Content: text, Backend: originBackend, Timestamp: time.Now().UTC()}
	m.dialogue = append(m.dialogue, e)
	m.transcript = append(m.transcript, e)
	return nil
}

// AppendBackendExchange records one side of an orchestrator<->backend
// exchange under that backend's scope and in the merged transcript.
func (m *InMemoryStore) AppendBackendExchange(backend, role, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := MemoryEntry{Role: role, Content: text, Backend: backend, Timestamp: time.Now().UTC()}
	m.exchanges[backend] = append(m.exchanges[backend], e)
	m.transcript = append(m.transcript, e)
	return nil
}

// RenderContext renders the merged transcript for inclusion in a backend
// prompt. Lines that originated from a backend are tagged with its name.
func (m *InMemoryStore) RenderContext() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.transcript) == 0 {
		return "start of conversation"
	}

	var b strings.Builder
	for _, e := range m.transcript {
		if e.Backend != "" {
			fmt.Fprintf(&b, "%s [%s]: %s\n", e.Role, e.Backend, e.Content)
		} else {
			fmt.Fprintf(&b, "%s: %s\n", e.Role, e.Content)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Transcript returns a copy of the merged chronological log.
func (m *InMemoryStore) Transcript() []MemoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MemoryEntry, len(m.transcript))
	copy(out, m.transcript)
	return out
}

// BackendExchanges returns a copy of the exchange log for one backend.
func (m *InMemoryStore) BackendExchanges(backend string) []MemoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.exchanges[backend]
	out := make([]MemoryEntry, len(src))
	copy(out, src)
	return out
}
