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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityPolicy_DenyWins(t *testing.T) {
	p := NewSecurityPolicy([]string{"search_messages"}, []string{"search_messages"}, ModeEnforcing)

	denied := p.Evaluate("search_messages")
	require.NotNil(t, denied)
	assert.Equal(t, "explicitly denied", denied.Reason)
}

func TestSecurityPolicy_NonEmptyAllowListIsDefaultDeny(t *testing.T) {
	p := NewSecurityPolicy([]string{"search_messages"}, nil, ModeEnforcing)

	assert.Nil(t, p.Evaluate("search_messages"))
	denied := p.Evaluate("upload_object")
	require.NotNil(t, denied)
	assert.Equal(t, "not in allow list", denied.Reason)
}

func TestSecurityPolicy_EmptyListsDefaultAllow(t *testing.T) {
	p := NewSecurityPolicy(nil, nil, ModeEnforcing)
	assert.Nil(t, p.Evaluate("anything_at_all"))
}

func TestSecurityPolicy_DenyWithoutAllowList(t *testing.T) {
	p := NewSecurityPolicy(nil, []string{"put_item"}, ModeEnforcing)

	assert.NotNil(t, p.Evaluate("put_item"))
	assert.Nil(t, p.Evaluate("get_item"))
}

func TestAuditLedger_EvictsOldestPastCap(t *testing.T) {
	l := NewAuditLedger(3, nil)

	for i := 0; i < 5; i++ {
		l.Append(AuditEntry{ID: fmt.Sprintf("e%d", i), Tool: "t", Outcome: AuditSuccess})
	}

	entries := l.Snapshot()
	require.Len(t, entries, 3)
	assert.Equal(t, "e2", entries[0].ID)
	assert.Equal(t, "e4", entries[2].ID)
}

func TestAuditLedger_CountByTool(t *testing.T) {
	l := NewAuditLedger(10, nil)
	l.Append(AuditEntry{ID: "1", Tool: "analyze_document", Outcome: AuditSuccess})
	l.Append(AuditEntry{ID: "2", Tool: "analyze_document", Outcome: AuditError})
	l.Append(AuditEntry{ID: "3", Tool: "search_messages", Outcome: AuditSuccess})

	assert.Equal(t, 2, l.CountByTool("analyze_document", ""))
	assert.Equal(t, 1, l.CountByTool("analyze_document", AuditError))
	assert.Equal(t, 0, l.CountByTool("upload_object", ""))
}

func TestAuditLedger_SinkReceivesEveryEntry(t *testing.T) {
	sink := &captureSink{}
	l := NewAuditLedger(2, sink)

	l.Append(AuditEntry{ID: "1"})
	l.Append(AuditEntry{ID: "2"})
	l.Append(AuditEntry{ID: "3"}) // evicts "1" from the ledger, not the sink

	assert.Len(t, l.Snapshot(), 2)
	assert.Len(t, sink.entries, 3)
}

func TestAuditLedger_RecentErrors(t *testing.T) {
	l := NewAuditLedger(10, nil)
	l.Append(AuditEntry{ID: "old", Outcome: AuditError, Timestamp: time.Now().UTC().Add(-2 * time.Hour)})
	l.Append(AuditEntry{ID: "new", Outcome: AuditError})
	l.Append(AuditEntry{ID: "ok", Outcome: AuditSuccess})

	assert.Equal(t, 1, l.RecentErrors(time.Hour))
}

type captureSink struct {
	entries []AuditEntry
}

func (c *captureSink) Record(e AuditEntry)            { c.entries = append(c.entries, e) }
func (c *captureSink) Shutdown(timeout time.Duration) {}
