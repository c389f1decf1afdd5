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

func TestClassify_Greeting(t *testing.T) {
	c := NewClassifier()

	for _, input := range []string{"hey", "Hi", "hello!", "  HELLO  ", "good morning"} {
		cls := c.Classify(input)
		assert.Equal(t, RouteDirect, cls.Route, "input %q", input)
	}
}

func TestClassify_GreetingInsideSentenceIsNotDirect(t *testing.T) {
	c := NewClassifier()

	cls := c.Classify("hey can you find the contract from Mehdi")
	assert.NotEqual(t, RouteDirect, cls.Route)
}

func TestClassify_DocumentWithCorrespondent(t *testing.T) {
	c := NewClassifier()

	cls := c.Classify("find the contract from Mehdi and assess it")
	assert.Equal(t, RoutePipeline, cls.Route)
	assert.Equal(t, "Mehdi", cls.Correspondent)
}

func TestClassify_DocumentWithChannelTerm(t *testing.T) {
	c := NewClassifier()

	cls := c.Classify("review the agreement in my inbox")
	assert.Equal(t, RoutePipeline, cls.Route)
}

func TestClassify_CommunicationOnly(t *testing.T) {
	c := NewClassifier()

	cls := c.Classify("show me unread messages from today")
	assert.Equal(t, RouteMailSearch, cls.Route)
	assert.Contains(t, cls.Query, "status:unread")
	assert.Contains(t, cls.Query, "date:today")
}

func TestClassify_DocumentOnly(t *testing.T) {
	c := NewClassifier()

	cls := c.Classify("assess this clause: payment due in 90 days")
	assert.Equal(t, RouteDocAnalysis, cls.Route)
}

func TestClassify_NoMatchFallsBack(t *testing.T) {
	c := NewClassifier()

	cls := c.Classify("what's the weather like in Berlin?")
	assert.Equal(t, RouteFallback, cls.Route)
}

func TestTranslateQuery_Filters(t *testing.T) {
	q := translateQuery("unread mail from Sarah with attachments")
	assert.Contains(t, q, "status:unread")
	assert.Contains(t, q, "sender:Sarah")
	assert.Contains(t, q, "has:attachment")
	// Unmatched words pass through.
	assert.Contains(t, q, "mail")
}

func TestTranslateQuery_PassThrough(t *testing.T) {
	q := translateQuery("quarterly report emails")
	assert.Equal(t, "quarterly report emails", q)
}

func TestExtractCorrespondent(t *testing.T) {
	assert.Equal(t, "Mehdi", extractCorrespondent("the contract from Mehdi please"))
	assert.Equal(t, "Jane Doe", extractCorrespondent("messages from Jane Doe"))
	assert.Equal(t, "", extractCorrespondent("messages from yesterday"))
	assert.Equal(t, "", extractCorrespondent("mail from My Inbox"))
}

func TestCapabilitySummary_NonEmpty(t *testing.T) {
	s := CapabilitySummary()
	assert.NotEmpty(t, s)
	assert.Contains(t, s, "-")
}
