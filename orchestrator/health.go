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
	"time"

	"axonflow/assistant/tools/base"
	"axonflow/assistant/tools/registry"
)

// healthProbeTimeout bounds each group probe independently.
const healthProbeTimeout = 5 * time.Second

// HealthMonitor performs on-demand liveness probes against every
// registered backend group. A probe that succeeds is healthy; one that
// fails is unhealthy. A rolling error-rate computation over the audit
// ledger could additionally report degraded, which is not wired into
// probe results yet; RecentErrorCount exposes the input for it. Health
// results are diagnostic only and never disable a backend.
type HealthMonitor struct {
	registry *registry.Registry
	ledger   *AuditLedger
}

// NewHealthMonitor creates a monitor over the given registry.
func NewHealthMonitor(reg *registry.Registry, ledger *AuditLedger) *HealthMonitor {
	return &HealthMonitor{registry: reg, ledger: ledger}
}

// Check probes every registered group once, keyed by group id. Each
// probe gets its own timeout so one slow backend cannot mask the rest.
func (h *HealthMonitor) Check(ctx context.Context) map[string]*base.HealthStatus {
	out := make(map[string]*base.HealthStatus)
	for _, groupID := range h.registry.GroupIDs() {
		group, ok := h.registry.GroupByID(groupID)
		if !ok {
			continue
		}
		out[groupID] = h.probe(ctx, group)
	}
	return out
}

func (h *HealthMonitor) probe(ctx context.Context, group base.Group) *base.HealthStatus {
	probeCtx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()

	start := time.Now()
	status, err := group.HealthCheck(probeCtx)
	if err != nil || status == nil {
		s := &base.HealthStatus{
			Healthy:   false,
			Latency:   time.Since(start),
			Timestamp: time.Now().UTC(),
		}
		if err != nil {
			s.Error = err.Error()
		}
		return s
	}
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now().UTC()
	}
	return status
}

// RecentErrorCount reports the ledger's error count within the trailing
// window, the raw input for a future degraded classification.
func (h *HealthMonitor) RecentErrorCount(window time.Duration) int {
	return h.ledger.RecentErrors(window)
}
