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

package cloudwatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLogsClient struct {
	startInput   *cloudwatchlogs.StartQueryInput
	resultsInput *cloudwatchlogs.GetQueryResultsInput

	queryStatus types.QueryStatus
	results     [][]types.ResultField
	err         error
}

func (f *fakeLogsClient) StartQuery(ctx context.Context, params *cloudwatchlogs.StartQueryInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.StartQueryOutput, error) {
	f.startInput = params
	if f.err != nil {
		return nil, f.err
	}
	return &cloudwatchlogs.StartQueryOutput{QueryId: aws.String("q-123")}, nil
}

func (f *fakeLogsClient) GetQueryResults(ctx context.Context, params *cloudwatchlogs.GetQueryResultsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.GetQueryResultsOutput, error) {
	f.resultsInput = params
	if f.err != nil {
		return nil, f.err
	}
	return &cloudwatchlogs.GetQueryResultsOutput{
		Status:  f.queryStatus,
		Results: f.results,
	}, nil
}

func (f *fakeLogsClient) DescribeLogGroups(ctx context.Context, params *cloudwatchlogs.DescribeLogGroupsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &cloudwatchlogs.DescribeLogGroupsOutput{}, nil
}

func TestStartQuery_DefaultWindow(t *testing.T) {
	client := &fakeLogsClient{}
	g := NewWithClient("/assistant/app", client)

	result, err := g.Invoke(context.Background(), "start_query", map[string]interface{}{
		"query": "fields @timestamp, @message | limit 20",
	})
	require.NoError(t, err)
	assert.Contains(t, result.Text(), "q-123")
	assert.Equal(t, "q-123", result.Metadata["query_id"])

	input := client.startInput
	assert.Equal(t, "/assistant/app", aws.ToString(input.LogGroupName))
	window := aws.ToInt64(input.EndTime) - aws.ToInt64(input.StartTime)
	assert.InDelta(t, time.Hour.Seconds(), float64(window), 5)
}

func TestStartQuery_CustomHours(t *testing.T) {
	client := &fakeLogsClient{}
	g := NewWithClient("/assistant/app", client)

	_, err := g.Invoke(context.Background(), "start_query", map[string]interface{}{
		"query": "stats count() by bin(5m)",
		"hours": float64(6),
	})
	require.NoError(t, err)

	window := aws.ToInt64(client.startInput.EndTime) - aws.ToInt64(client.startInput.StartTime)
	assert.InDelta(t, (6 * time.Hour).Seconds(), float64(window), 5)
}

func TestGetQueryResults_StillRunning(t *testing.T) {
	client := &fakeLogsClient{queryStatus: types.QueryStatusRunning}
	g := NewWithClient("/assistant/app", client)

	result, err := g.Invoke(context.Background(), "get_query_results", map[string]interface{}{
		"query_id": "q-123",
	})
	require.NoError(t, err)
	assert.Contains(t, result.Text(), "still running")
}

func TestGetQueryResults_Complete(t *testing.T) {
	client := &fakeLogsClient{
		queryStatus: types.QueryStatusComplete,
		results: [][]types.ResultField{
			{
				{Field: aws.String("@timestamp"), Value: aws.String("2025-08-12 10:00:00")},
				{Field: aws.String("@message"), Value: aws.String("request handled")},
			},
		},
	}
	g := NewWithClient("/assistant/app", client)

	result, err := g.Invoke(context.Background(), "get_query_results", map[string]interface{}{
		"query_id": "q-123",
	})
	require.NoError(t, err)
	assert.Contains(t, result.Text(), "@message=request handled")

	rows, ok := result.Metadata["query_results"].([]interface{})
	require.True(t, ok)
	require.Len(t, rows, 1)
}

func TestGetQueryResults_FailedStatus(t *testing.T) {
	client := &fakeLogsClient{queryStatus: types.QueryStatusFailed}
	g := NewWithClient("/assistant/app", client)

	_, err := g.Invoke(context.Background(), "get_query_results", map[string]interface{}{
		"query_id": "q-123",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed")
}

func TestGetQueryResults_NoRows(t *testing.T) {
	client := &fakeLogsClient{queryStatus: types.QueryStatusComplete}
	g := NewWithClient("/assistant/app", client)

	result, err := g.Invoke(context.Background(), "get_query_results", map[string]interface{}{
		"query_id": "q-123",
	})
	require.NoError(t, err)
	assert.Equal(t, "No results found.", result.Text())
}

func TestInit_RequiresLogGroup(t *testing.T) {
	g := NewWithClient("", &fakeLogsClient{})
	assert.Error(t, g.Init(context.Background()))
}

func TestHealthCheck_BackendDown(t *testing.T) {
	g := NewWithClient("/assistant/app", &fakeLogsClient{err: errors.New("denied")})
	status, err := g.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Healthy)
}
