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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "axonflow_assistant_turns_total",
		Help: "User turns handled, by classifier route.",
	}, []string{"route"})

	turnDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "axonflow_assistant_turn_duration_seconds",
		Help:    "End-to-end turn handling latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "axonflow_assistant_tool_calls_total",
		Help: "Tool calls executed, by tool and audit outcome.",
	}, []string{"tool", "outcome"})

	toolCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "axonflow_assistant_tool_call_duration_seconds",
		Help:    "Tool call latency measured end to end.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"tool"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "axonflow_assistant_active_sessions",
		Help: "Sessions currently held in the session map.",
	})
)

func recordTurn(route string, d time.Duration) {
	turnsTotal.WithLabelValues(route).Inc()
	turnDuration.WithLabelValues(route).Observe(d.Seconds())
}

func recordToolCall(tool, outcome string, d time.Duration) {
	toolCallsTotal.WithLabelValues(tool, outcome).Inc()
	toolCallDuration.WithLabelValues(tool).Observe(d.Seconds())
}

func setActiveSessions(n int) {
	activeSessions.Set(float64(n))
}
