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
	"regexp"
	"strings"
)

// MetadataUnknown is the sentinel for a field no pattern could extract.
const MetadataUnknown = "unknown"

// MessageMetadata holds best-effort structured fields pulled out of raw
// message text. Extraction never fails; fields that cannot be determined
// are "unknown".
type MessageMetadata struct {
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
	Date    string `json:"date"`
}

// Complete reports whether every field was extracted.
func (m MessageMetadata) Complete() bool {
	return m.Sender != MetadataUnknown && m.Subject != MetadataUnknown && m.Date != MetadataUnknown
}

// Alternative textual shapes tried in order. First match wins per field.
var (
	senderPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?im)^sender:\s*(.+)$`),
		regexp.MustCompile(`(?im)^from:\s*(.+)$`),
		regexp.MustCompile(`\b(?i:sent by)\s+([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)?)`),
		regexp.MustCompile(`\b(?i:from)\s+([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)?)\b`),
	}
	subjectPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?im)^subject:\s*(.+)$`),
		regexp.MustCompile(`(?im)^re:\s*(.+)$`),
		regexp.MustCompile(`(?i)\bregarding\s+"([^"]+)"`),
	}
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?im)^date:\s*(.+)$`),
		regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`),
		regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{2,4})\b`),
		regexp.MustCompile(`(?i)\b((?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4})\b`),
	}
)

// ExtractMetadata pulls sender, subject, and date out of raw message
// text. Each field independently falls back to "unknown".
func ExtractMetadata(text string) MessageMetadata {
	return MessageMetadata{
		Sender:  firstMatch(senderPatterns, text),
		Subject: firstMatch(subjectPatterns, text),
		Date:    firstMatch(datePatterns, text),
	}
}

func firstMatch(patterns []*regexp.Regexp, text string) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); len(m) >= 2 {
			v := strings.TrimSpace(m[1])
			if v != "" {
				return v
			}
		}
	}
	return MetadataUnknown
}
