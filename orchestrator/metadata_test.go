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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMetadata_HeaderStyle(t *testing.T) {
	text := "Sender: Mehdi\nSubject: Partnership contract\nDate: 2025-08-12\n\nDeal: 70/30 split, 2-year term"

	meta := ExtractMetadata(text)
	assert.Equal(t, "Mehdi", meta.Sender)
	assert.Equal(t, "Partnership contract", meta.Subject)
	assert.Equal(t, "2025-08-12", meta.Date)
	assert.True(t, meta.Complete())
}

func TestExtractMetadata_ProseStyle(t *testing.T) {
	text := `This was sent by Jane Doe regarding "Q3 licensing" on Aug 12, 2025 for review.`

	meta := ExtractMetadata(text)
	assert.Equal(t, "Jane Doe", meta.Sender)
	assert.Equal(t, "Q3 licensing", meta.Subject)
	assert.Equal(t, "Aug 12, 2025", meta.Date)
}

func TestExtractMetadata_NoPatternsYieldsUnknown(t *testing.T) {
	meta := ExtractMetadata("completely unstructured blob of text with no recognizable fields")

	assert.Equal(t, MetadataUnknown, meta.Sender)
	assert.Equal(t, MetadataUnknown, meta.Subject)
	assert.Equal(t, MetadataUnknown, meta.Date)
	assert.False(t, meta.Complete())
}

func TestExtractMetadata_PartialMatch(t *testing.T) {
	meta := ExtractMetadata("From: legal@example.com\nno subject or date here")

	assert.Equal(t, "legal@example.com", meta.Sender)
	assert.Equal(t, MetadataUnknown, meta.Subject)
	assert.Equal(t, MetadataUnknown, meta.Date)
}
