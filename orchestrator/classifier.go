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

// Route identifies which execution path a classified request takes.
type Route string

const (
	// RouteDirect answers from a static capability summary, no delegation.
	RouteDirect Route = "direct"
	// RoutePipeline runs the two-step document retrieval + analysis plan.
	RoutePipeline Route = "pipeline"
	// RouteMailSearch delegates once to the communication-search tool.
	RouteMailSearch Route = "mail_search"
	// RouteDocAnalysis delegates once to the document-analysis tool.
	RouteDocAnalysis Route = "doc_analysis"
	// RouteFallback defers to the general-purpose reasoning backend.
	RouteFallback Route = "fallback"
)

// Classification is the outcome of routing one user turn.
type Classification struct {
	Route         Route
	Correspondent string // named sender extracted from the text, if any
	Query         string // translated query for mail search routes
}

var greetingTokens = map[string]struct{}{
	"hey": {}, "hi": {}, "hello": {}, "yo": {}, "hiya": {},
	"howdy": {}, "greetings": {}, "good morning": {},
	"good afternoon": {}, "good evening": {},
}

var documentTerms = []string{
	"contract", "agreement", "document", "nda", "legal",
	"assess", "review", "clause", "terms", "deal",
}

var communicationTerms = []string{
	"email", "e-mail", "mail", "inbox", "message", "messages",
	"correspondence", "sent", "received",
}

var fromPattern = regexp.MustCompile(`\b(?i:from)\s+([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)?)`)

// Classifier selects an execution route for a user turn using ordered
// first-match rules. It is total: it never fails and has no side effects
// beyond what its caller records.
type Classifier struct{}

// NewClassifier creates a classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify routes one turn of user text.
func (c *Classifier) Classify(text string) Classification {
	normalized := strings.ToLower(strings.TrimSpace(text))
	trimmed := strings.Trim(normalized, "!.? ")

	// Rule 1: short greeting.
	if _, ok := greetingTokens[trimmed]; ok {
		return Classification{Route: RouteDirect}
	}

	hasDoc := containsAny(normalized, documentTerms)
	hasComm := containsAny(normalized, communicationTerms)
	correspondent := extractCorrespondent(text)

	// Rule 2: document terms plus a communication channel or a named
	// correspondent means retrieve-then-analyze.
	if hasDoc && (hasComm || correspondent != "") {
		return Classification{Route: RoutePipeline, Correspondent: correspondent}
	}

	// Rule 3: communication terms alone go to mail search with keyword
	// to filter translation.
	if hasComm {
		return Classification{
			Route:         RouteMailSearch,
			Correspondent: correspondent,
			Query:         translateQuery(text),
		}
	}

	// Rule 4: document terms alone go straight to document analysis.
	if hasDoc {
		return Classification{Route: RouteDocAnalysis}
	}

	// Rule 5: no match, defer to the general-purpose backend.
	return Classification{Route: RouteFallback}
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

// extractCorrespondent pulls a capitalized name following "from" out of
// the original-case text. Returns "" when nothing matches.
func extractCorrespondent(text string) string {
	m := fromPattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	// "from My Inbox" style phrases are channel references, not names.
	lower := strings.ToLower(m[1])
	for _, t := range communicationTerms {
		if strings.Contains(lower, t) {
			return ""
		}
	}
	return m[1]
}

// translateQuery rewrites recognized keywords into structured filter
// syntax for the communication-search backend. Unmatched text passes
// through unchanged.
func translateQuery(text string) string {
	var filters []string
	remainder := text

	lower := strings.ToLower(text)
	if strings.Contains(lower, "unread") {
		filters = append(filters, "status:unread")
		remainder = removeWord(remainder, "unread")
	}
	if strings.Contains(lower, "today") {
		filters = append(filters, "date:today")
		remainder = removeWord(remainder, "today")
	}
	if strings.Contains(lower, "attachment") {
		filters = append(filters, "has:attachment")
		remainder = removeWord(remainder, "attachments")
		remainder = removeWord(remainder, "attachment")
	}
	if m := fromPattern.FindStringSubmatch(remainder); len(m) >= 2 {
		name := extractCorrespondent(remainder)
		if name != "" {
			filters = append(filters, "sender:"+name)
			remainder = strings.Replace(remainder, m[0], "", 1)
		}
	}

	remainder = strings.Join(strings.Fields(remainder), " ")
	parts := append(filters, remainder)
	return strings.TrimSpace(strings.Join(parts, " "))
}

func removeWord(text, word string) string {
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
	return re.ReplaceAllString(text, "")
}

// CapabilitySummary is the static greeting returned for direct answers
// and for the degraded path when the reasoning backend is unreachable.
func CapabilitySummary() string {
	return strings.Join([]string{
		"Hello! I'm your workflow assistant. Here's what I can help with:",
		"",
		"- Search your messages and correspondence (try: \"show unread mail from today\")",
		"- Find and assess contracts or agreements (try: \"find the contract from Mehdi and assess it\")",
		"- Review documents for risks, key terms, and red flags",
		"- Run workflow actions and look up records in connected systems",
		"",
		"Just describe what you need in plain language.",
	}, "\n")
}
