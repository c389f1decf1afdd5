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

package automation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axonflow/assistant/tools/base"
)

type mockHTTPClient struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.doFunc(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

const catalogJSON = `{"actions":[
	{"name":"create_ticket","description":"Open a support ticket","parameters":[
		{"name":"title","type":"string","description":"Ticket title","required":true},
		{"name":"priority","type":"string","description":"low, medium, or high","required":false}
	]},
	{"name":"schedule_report","description":"Schedule a recurring report","parameters":[
		{"name":"cron","type":"string","required":true}
	]}
]}`

func catalogClient(t *testing.T, invoke func(req *http.Request) (*http.Response, error)) *mockHTTPClient {
	t.Helper()
	return &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			if req.Method == "GET" && strings.HasSuffix(req.URL.Path, "/v1/actions") {
				return jsonResponse(http.StatusOK, catalogJSON), nil
			}
			if invoke != nil {
				return invoke(req)
			}
			return jsonResponse(http.StatusNotFound, "unexpected request"), nil
		},
	}
}

func TestInit_DiscoversCatalog(t *testing.T) {
	g := NewWithClient("http://automation.local", "key-1", catalogClient(t, nil))
	require.NoError(t, g.Init(context.Background()))

	descs := g.Descriptors()
	require.Len(t, descs, 2)
	assert.Equal(t, "create_ticket", descs[0].Name)
	assert.Equal(t, groupName, descs[0].Group)

	title, ok := descs[0].Param("title")
	require.True(t, ok)
	assert.True(t, title.Required)
	assert.Equal(t, base.ParamString, title.Type)
}

func TestInit_CatalogUnreachable(t *testing.T) {
	client := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		},
	}
	g := NewWithClient("http://automation.local", "", client)
	assert.Error(t, g.Init(context.Background()))
	assert.Empty(t, g.Descriptors())
}

func TestInit_RefreshReplacesCatalog(t *testing.T) {
	serving := catalogJSON
	client := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, serving), nil
		},
	}
	g := NewWithClient("http://automation.local", "", client)
	require.NoError(t, g.Init(context.Background()))
	require.Len(t, g.Descriptors(), 2)

	serving = `{"actions":[{"name":"rotate_credentials","description":"","parameters":[]}]}`
	require.NoError(t, g.Init(context.Background()))

	descs := g.Descriptors()
	require.Len(t, descs, 1)
	assert.Equal(t, "rotate_credentials", descs[0].Name)
}

func TestInvoke_PostsArgsWithAuth(t *testing.T) {
	var captured map[string]interface{}
	client := catalogClient(t, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/v1/actions/create_ticket/invoke", req.URL.Path)
		assert.Equal(t, "Bearer key-1", req.Header.Get("Authorization"))
		body, _ := io.ReadAll(req.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		return jsonResponse(http.StatusOK, `{"output":"ticket OPS-1432 created"}`), nil
	})
	g := NewWithClient("http://automation.local", "key-1", client)
	require.NoError(t, g.Init(context.Background()))

	result, err := g.Invoke(context.Background(), "create_ticket", map[string]interface{}{
		"title":    "Printer on fire",
		"priority": "high",
	})
	require.NoError(t, err)
	assert.Equal(t, "ticket OPS-1432 created", result.Text())
	assert.Equal(t, "Printer on fire", captured["title"])
}

func TestInvoke_PlainTextResponse(t *testing.T) {
	client := catalogClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, "done"), nil
	})
	g := NewWithClient("http://automation.local", "", client)
	require.NoError(t, g.Init(context.Background()))

	result, err := g.Invoke(context.Background(), "schedule_report", map[string]interface{}{"cron": "0 9 * * 1"})
	require.NoError(t, err)
	assert.Equal(t, "done", result.Text())
}

func TestInvoke_UndiscoveredActionRejected(t *testing.T) {
	g := NewWithClient("http://automation.local", "", catalogClient(t, nil))
	require.NoError(t, g.Init(context.Background()))

	_, err := g.Invoke(context.Background(), "drop_database", nil)
	var groupErr *base.GroupError
	require.ErrorAs(t, err, &groupErr)
	assert.Contains(t, err.Error(), "unsupported tool")
}

func TestInvoke_ActionErrorStatus(t *testing.T) {
	client := catalogClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnprocessableEntity, `{"error":"missing cron"}`), nil
	})
	g := NewWithClient("http://automation.local", "", client)
	require.NoError(t, g.Init(context.Background()))

	_, err := g.Invoke(context.Background(), "schedule_report", map[string]interface{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 422")
}

func TestHealthCheck_UsesDiscovery(t *testing.T) {
	g := NewWithClient("http://automation.local", "", catalogClient(t, nil))
	status, err := g.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)

	down := NewWithClient("http://automation.local", "", &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		},
	})
	status, err = down.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Healthy)
}
