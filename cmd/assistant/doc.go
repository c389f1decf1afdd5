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
Command assistant runs the AxonFlow Assistant service.

The Assistant answers natural-language business requests by delegating to
specialized backend tool groups: communication search, document review,
workflow automation, and cloud storage/record/log services.

# Usage

	assistant [flags]

# Environment Variables

Optional (each unset backend is simply not registered):
  - PORT: HTTP server port (default: 8082)
  - MAIL_SEARCH_ENDPOINT: communication-search backend URL
  - AGENT_GATE_ENDPOINT: general reasoning gateway URL
  - GENERAL_AGENT_ID: agent to invoke on the gateway
  - BEDROCK_REGION: AWS region for document analysis
  - BEDROCK_MODEL: Bedrock model identifier
  - AUTOMATION_ENDPOINT: workflow-action catalog URL
  - S3_BUCKET: object-store bucket
  - DYNAMO_TABLE: records table
  - CLOUDWATCH_LOG_GROUP: log-analytics log group
  - REDIS_ADDR: Redis address for shared session memory
  - DATABASE_URL: PostgreSQL connection string for durable audit
  - ALLOWED_TOOLS / DENIED_TOOLS: security policy via config file
  - ENFORCEMENT_MODE: "enforcing" (default) or "permissive"

# Example

	export MAIL_SEARCH_ENDPOINT="http://localhost:9090"
	export AGENT_GATE_ENDPOINT="http://localhost:9091"
	export GENERAL_AGENT_ID="general-assistant"
	./assistant
*/
package main
