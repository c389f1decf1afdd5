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

	"github.com/go-redis/redis/v8"
)

// Session is the per-session context: conversational memory and the
// trace log for the most recent request. All mutable per-conversation
// state lives here, never on the long-lived orchestrator, so concurrent
// sessions share nothing.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	LastSeen  time.Time

	Memory MemoryStore
	Trace  *TraceLog

	mu sync.Mutex
}

// Touch updates the last-seen time.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastSeen = time.Now().UTC()
}

// SessionManager owns the session map. Sessions are created on first
// use and keyed by session id.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	redis    *redis.Client
}

// NewSessionManager creates a manager. When redisClient is non-nil,
// session memory is backed by Redis so replicas share history;
// otherwise memory is process local.
func NewSessionManager(redisClient *redis.Client) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		redis:    redisClient,
	}
}

// GetOrCreate returns the session for the given id, creating it on
// first use.
func (m *SessionManager) GetOrCreate(sessionID, userID string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if ok {
		s.Touch()
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		s.Touch()
		return s
	}

	var mem MemoryStore
	if m.redis != nil {
		mem = NewRedisMemoryStore(m.redis, sessionID)
	} else {
		mem = NewInMemoryStore()
	}

	now := time.Now().UTC()
	s = &Session{
		ID:        sessionID,
		UserID:    userID,
		CreatedAt: now,
		LastSeen:  now,
		Memory:    mem,
		Trace:     NewTraceLog(),
	}
	m.sessions[sessionID] = s
	return s
}

// Get returns an existing session without creating one.
func (m *SessionManager) Get(sessionID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

// Count reports the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
