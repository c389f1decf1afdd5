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

package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Family pairs a request builder with a response extractor for one model
// family. The envelope shape and the field path used to pull generated
// text out of the response are selected purely from the model identifier;
// adding a backend family means registering a new entry, not extending a
// conditional chain.
type Family struct {
	// ID is the identifier segment that selects this family, e.g.
	// "anthropic" in "anthropic.claude-3-5-sonnet-20240620-v1:0".
	ID string

	// BuildRequest shapes the request envelope for this family.
	BuildRequest func(input string, maxTokens int) map[string]interface{}

	// ExtractText pulls the generated text out of a raw response body.
	ExtractText func(body []byte) (string, error)
}

// inferenceProfilePrefixes are regional prefixes that may precede the
// family segment in a model identifier.
var inferenceProfilePrefixes = []string{"eu", "us", "apac", "global"}

type familyTable struct {
	mu       sync.RWMutex
	families map[string]Family
}

var table = &familyTable{families: make(map[string]Family)}

// RegisterFamily adds or replaces a model family in the dispatch table.
func RegisterFamily(f Family) {
	table.mu.Lock()
	defer table.mu.Unlock()
	table.families[f.ID] = f
}

// FamilyFor resolves the family for a model identifier. Identifiers follow
// the pattern family.model-name-version, optionally preceded by an
// inference profile prefix (eu., us., apac., global.).
func FamilyFor(modelID string) (Family, error) {
	segments := strings.Split(modelID, ".")
	if len(segments) < 2 {
		return Family{}, fmt.Errorf("unsupported model identifier: %q", modelID)
	}

	first := segments[0]
	for _, prefix := range inferenceProfilePrefixes {
		if first == prefix {
			first = segments[1]
			break
		}
	}

	table.mu.RLock()
	defer table.mu.RUnlock()
	f, ok := table.families[first]
	if !ok {
		return Family{}, fmt.Errorf("unsupported model family: %q", first)
	}
	return f, nil
}

// RegisteredFamilies returns the ids of all registered families.
func RegisteredFamilies() []string {
	table.mu.RLock()
	defer table.mu.RUnlock()
	ids := make([]string, 0, len(table.families))
	for id := range table.families {
		ids = append(ids, id)
	}
	return ids
}

func init() {
	RegisterFamily(Family{
		ID: "anthropic",
		BuildRequest: func(input string, maxTokens int) map[string]interface{} {
			return map[string]interface{}{
				"anthropic_version": "bedrock-2023-05-31",
				"max_tokens":        maxTokens,
				"messages": []map[string]string{
					{"role": "user", "content": input},
				},
			}
		},
		ExtractText: func(body []byte) (string, error) {
			var resp struct {
				Content []struct {
					Text string `json:"text"`
				} `json:"content"`
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return "", fmt.Errorf("failed to unmarshal response: %w", err)
			}
			var sb strings.Builder
			for _, block := range resp.Content {
				sb.WriteString(block.Text)
			}
			return sb.String(), nil
		},
	})

	RegisterFamily(Family{
		ID: "amazon",
		BuildRequest: func(input string, maxTokens int) map[string]interface{} {
			return map[string]interface{}{
				"inputText": input,
				"textGenerationConfig": map[string]interface{}{
					"maxTokenCount": maxTokens,
					"topP":          0.9,
				},
			}
		},
		ExtractText: func(body []byte) (string, error) {
			var resp struct {
				Results []struct {
					OutputText string `json:"outputText"`
				} `json:"results"`
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return "", fmt.Errorf("failed to unmarshal response: %w", err)
			}
			if len(resp.Results) == 0 {
				return "", nil
			}
			return resp.Results[0].OutputText, nil
		},
	})

	RegisterFamily(Family{
		ID: "meta",
		BuildRequest: func(input string, maxTokens int) map[string]interface{} {
			return map[string]interface{}{
				"prompt":      input,
				"max_gen_len": maxTokens,
				"top_p":       0.9,
			}
		},
		ExtractText: func(body []byte) (string, error) {
			var resp struct {
				Generation string `json:"generation"`
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return "", fmt.Errorf("failed to unmarshal response: %w", err)
			}
			return resp.Generation, nil
		},
	})

	RegisterFamily(Family{
		ID: "mistral",
		BuildRequest: func(input string, maxTokens int) map[string]interface{} {
			return map[string]interface{}{
				"prompt":     input,
				"max_tokens": maxTokens,
				"top_p":      0.9,
			}
		},
		ExtractText: func(body []byte) (string, error) {
			var resp struct {
				Outputs []struct {
					Text string `json:"text"`
				} `json:"outputs"`
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return "", fmt.Errorf("failed to unmarshal response: %w", err)
			}
			if len(resp.Outputs) == 0 {
				return "", nil
			}
			return resp.Outputs[0].Text, nil
		},
	})
}
