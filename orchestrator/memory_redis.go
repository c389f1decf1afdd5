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
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// redisMemoryTTL bounds how long an idle session's history is kept.
const redisMemoryTTL = 24 * time.Hour

// RedisMemoryStore is a MemoryStore backed by Redis lists, used when the
// assistant runs with more than one replica and sessions may land on any
// of them. Each append is an RPUSH so the append-only ordering holds
// across writers.
type RedisMemoryStore struct {
	client    *redis.Client
	sessionID string
}

// NewRedisMemoryStore creates a store for one session. The client is
// shared; keys are namespaced by session id.
func NewRedisMemoryStore(client *redis.Client, sessionID string) *RedisMemoryStore {
	return &RedisMemoryStore{client: client, sessionID: sessionID}
}

func (r *RedisMemoryStore) transcriptKey() string {
	return fmt.Sprintf("assistant:memory:%s:transcript", r.sessionID)
}

func (r *RedisMemoryStore) exchangeKey(backend string) string {
	return fmt.Sprintf("assistant:memory:%s:exchange:%s", r.sessionID, backend)
}

func (r *RedisMemoryStore) push(ctx context.Context, key string, e MemoryEntry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal memory entry: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.Expire(ctx, key, redisMemoryTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append memory entry: %w", err)
	}
	return nil
}

// AppendUser records one user utterance.
func (r *RedisMemoryStore) AppendUser(text string) error {
	e := MemoryEntry{Role: "user", Content: text, Timestamp: time.Now().UTC()}
	return r.push(context.Background(), r.transcriptKey(), e)
}

// AppendAssistant records one assistant reply.
func (r *RedisMemoryStore) AppendAssistant(text, originBackend string) error {
	e := MemoryEntry{Role: "assistant", Content: text, Backend: originBackend, Timestamp: time.Now().UTC()}
	return r.push(context.Background(), r.transcriptKey(), e)
}

// AppendBackendExchange records one side of a backend exchange in both
// the backend scope and the merged transcript.
func (r *RedisMemoryStore) AppendBackendExchange(backend, role, text string) error {
	e := MemoryEntry{Role: role, Content: text, Backend: backend, Timestamp: time.Now().UTC()}
	if err := r.push(context.Background(), r.exchangeKey(backend), e); err != nil {
		return err
	}
	return r.push(context.Background(), r.transcriptKey(), e)
}

// Transcript returns the merged chronological log. A read failure yields
// an empty slice; history reads are best effort.
func (r *RedisMemoryStore) Transcript() []MemoryEntry {
	raw, err := r.client.LRange(context.Background(), r.transcriptKey(), 0, -1).Result()
	if err != nil {
		return nil
	}
	out := make([]MemoryEntry, 0, len(raw))
	for _, item := range raw {
		var e MemoryEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out
}

// RenderContext renders the transcript the same way InMemoryStore does.
func (r *RedisMemoryStore) RenderContext() string {
	entries := r.Transcript()
	if len(entries) == 0 {
		return "start of conversation"
	}
	var b strings.Builder
	for _, e := range entries {
		if e.Backend != "" {
			fmt.Fprintf(&b, "%s [%s]: %s\n", e.Role, e.Backend, e.Content)
		} else {
			fmt.Fprintf(&b, "%s: %s\n", e.Role, e.Content)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
