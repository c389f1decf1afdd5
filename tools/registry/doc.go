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

// Package registry manages the catalog of tool groups available to the
// assistant. Registration is idempotent per group, a group that fails to
// initialize is disabled rather than fatal, and the only mutation allowed
// after registration is Refresh, which atomically replaces one group's
// descriptor set.
package registry
