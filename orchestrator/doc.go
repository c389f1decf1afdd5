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

/*
Package orchestrator is the control plane of the AxonFlow Assistant.

One user turn flows through it as:

	text -> Classifier -> route -> Workflow/Executor -> tool groups -> reply

The Classifier applies ordered first-match rules to pick a route: a
direct capability answer, a single tool delegation, the fixed document
retrieve-then-analyze pipeline, or deferral to the general-purpose
reasoning backend. The ToolExecutor is the only component that touches
backends: it resolves tools through the registry, validates arguments,
evaluates the security policy, bounds each call with a timeout, and
classifies every failure into the unavailable/degraded/denied/fatal
taxonomy. Exactly one audit entry is recorded per tool call.

Per-session state (conversational memory and the request trace log)
lives in Session objects held by the SessionManager; nothing mutable is
kept on the long-lived Assistant, so concurrent sessions never share
request state.

HandleUserTurn never propagates a raw backend failure: the worst case
is a polite message plus a complete trace and audit record. When the
reasoning backend itself is unreachable, the static capability summary
is served as a degraded, non-error result.
*/
package orchestrator
