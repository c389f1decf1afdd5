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
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBedrockClient struct {
	lastInput *bedrockruntime.InvokeModelInput
	output    *bedrockruntime.InvokeModelOutput
	err       error
}

func (f *fakeBedrockClient) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.lastInput = params
	if f.err != nil {
		return nil, f.err
	}
	return f.output, nil
}

func TestBedrockComplete_AnthropicRoundTrip(t *testing.T) {
	client := &fakeBedrockClient{
		output: &bedrockruntime.InvokeModelOutput{
			Body: []byte(`{"content":[{"text":"the assessment"}]}`),
		},
	}
	p := NewBedrockProviderWithClient(client, "us-east-1", "anthropic.claude-3-5-sonnet-20240620-v1:0")

	resp, err := p.Complete(context.Background(), CompletionRequest{Input: "analyze this"})
	require.NoError(t, err)
	assert.Equal(t, "the assessment", resp.Content)
	assert.Equal(t, "anthropic.claude-3-5-sonnet-20240620-v1:0", resp.Model)
	assert.True(t, p.IsHealthy())

	require.NotNil(t, client.lastInput)
	assert.Equal(t, "anthropic.claude-3-5-sonnet-20240620-v1:0", *client.lastInput.ModelId)

	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal(client.lastInput.Body, &sent))
	assert.Equal(t, "bedrock-2023-05-31", sent["anthropic_version"])
	assert.Equal(t, float64(DefaultMaxTokens), sent["max_tokens"])
}

func TestBedrockComplete_RequestModelOverridesDefault(t *testing.T) {
	client := &fakeBedrockClient{
		output: &bedrockruntime.InvokeModelOutput{
			Body: []byte(`{"generation":"llama output"}`),
		},
	}
	p := NewBedrockProviderWithClient(client, "us-east-1", "anthropic.claude-3-5-sonnet-20240620-v1:0")

	resp, err := p.Complete(context.Background(), CompletionRequest{
		Input: "analyze this",
		Model: "meta.llama3-70b-instruct-v1:0",
	})
	require.NoError(t, err)
	assert.Equal(t, "llama output", resp.Content)
	assert.Equal(t, "meta.llama3-70b-instruct-v1:0", *client.lastInput.ModelId)
}

func TestBedrockComplete_InvokeFailureIsUpstream(t *testing.T) {
	client := &fakeBedrockClient{err: errors.New("throttled")}
	p := NewBedrockProviderWithClient(client, "us-east-1", "anthropic.claude-3-5-sonnet-20240620-v1:0")

	_, err := p.Complete(context.Background(), CompletionRequest{Input: "analyze this"})
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "bedrock", upstream.Backend)
	assert.False(t, p.IsHealthy())
}

func TestBedrockComplete_UnknownFamily(t *testing.T) {
	client := &fakeBedrockClient{}
	p := NewBedrockProviderWithClient(client, "us-east-1", "cohere.command-r-v1:0")

	_, err := p.Complete(context.Background(), CompletionRequest{Input: "analyze this"})
	require.Error(t, err)
	assert.Nil(t, client.lastInput, "request should fail before reaching the backend")
}
