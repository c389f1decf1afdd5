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
)

// UserContext identifies the user behind a request. Permissions arrive
// already resolved; the assistant never issues credentials itself.
type UserContext struct {
	UserID      string   `json:"user_id"`
	SessionID   string   `json:"session_id"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// ToolCall is one ephemeral invocation of a named tool.
type ToolCall struct {
	ID   string                 `json:"id"`
	Tool string                 `json:"tool"`
	Args map[string]interface{} `json:"args"`
}

// CallContext carries the identity and provenance of a tool call
// through the executor, audit ledger, and trace log.
type CallContext struct {
	Caller    string      `json:"caller"` // component issuing the call
	RequestID string      `json:"request_id"`
	Source    string      `json:"source,omitempty"`
	User      UserContext `json:"user"`
}

// RiskLevel is the coarse risk classification of a plan.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// PlanStep is one ordered step of an execution plan.
type PlanStep struct {
	Action string                 `json:"action"`
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// ExecutionPlan is an ordered list of steps with a duration estimate and
// a coarse risk level.
type ExecutionPlan struct {
	Steps             []PlanStep    `json:"steps"`
	EstimatedDuration time.Duration `json:"estimated_duration"`
	Risk              RiskLevel     `json:"risk"`
}

// mutatingTools are operations that write to a backend or cross system
// boundaries. Plans containing one are at least medium risk.
var mutatingTools = map[string]bool{
	"upload_object": true,
	"put_item":      true,
	"update_item":   true,
	"invoke_action": true,
}

// stepEstimate is the per-step duration assumption used for plan
// estimates. Deliberately coarse; plans are advisory, not scheduled.
const stepEstimate = 3 * time.Second

// BuildPlan assembles an ExecutionPlan from ordered steps, deriving the
// duration estimate and risk level.
func BuildPlan(steps []PlanStep) ExecutionPlan {
	risk := RiskLow
	for _, s := range steps {
		if mutatingTools[s.Tool] {
			risk = RiskMedium
		}
	}
	if len(steps) > 2 && risk == RiskMedium {
		risk = RiskHigh
	}
	return ExecutionPlan{
		Steps:             steps,
		EstimatedDuration: time.Duration(len(steps)) * stepEstimate,
		Risk:              risk,
	}
}
