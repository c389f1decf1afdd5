// Copyright 2025 AxonFlow
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cloudwatch exposes log analytics as a tool group over
// CloudWatch Logs Insights: start a query against the configured log
// group and poll its results. Queries are asynchronous on the backend,
// so the two operations are separate tools.
package cloudwatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"axonflow/assistant/tools/base"
)

const groupName = "log-analytics"

// defaultQueryWindow is used when the caller gives no time range.
const defaultQueryWindow = time.Hour

// Client is the slice of the CloudWatch Logs API the group uses.
type Client interface {
	StartQuery(ctx context.Context, params *cloudwatchlogs.StartQueryInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.StartQueryOutput, error)
	GetQueryResults(ctx context.Context, params *cloudwatchlogs.GetQueryResultsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.GetQueryResultsOutput, error)
	DescribeLogGroups(ctx context.Context, params *cloudwatchlogs.DescribeLogGroupsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error)
}

// Group is the log-analytics tool group.
type Group struct {
	region   string
	logGroup string
	client   Client
}

// New creates the group for one log group. The client is built in Init.
func New(region, logGroup string) *Group {
	if region == "" {
		region = "us-east-1"
	}
	return &Group{region: region, logGroup: logGroup}
}

// NewWithClient wires a prebuilt client. Used by tests.
func NewWithClient(logGroup string, client Client) *Group {
	return &Group{logGroup: logGroup, client: client}
}

func (g *Group) Name() string { return groupName }

func (g *Group) Init(ctx context.Context) error {
	if g.logGroup == "" {
		return base.NewGroupError(groupName, "Init", "log group is required", nil)
	}
	if g.client != nil {
		return nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(g.region))
	if err != nil {
		return base.NewGroupError(groupName, "Init", "failed to load AWS config", err)
	}
	g.client = cloudwatchlogs.NewFromConfig(cfg)
	return nil
}

func (g *Group) Close(ctx context.Context) error { return nil }

// HealthCheck describes the log group as a cheap read-only probe.
func (g *Group) HealthCheck(ctx context.Context) (*base.HealthStatus, error) {
	start := time.Now()
	_, err := g.client.DescribeLogGroups(ctx, &cloudwatchlogs.DescribeLogGroupsInput{
		LogGroupNamePrefix: aws.String(g.logGroup),
		Limit:              aws.Int32(1),
	})
	status := &base.HealthStatus{
		Healthy:   err == nil,
		Latency:   time.Since(start),
		Timestamp: time.Now().UTC(),
		Details:   map[string]string{"log_group": g.logGroup},
	}
	if err != nil {
		status.Error = err.Error()
	}
	return status, nil
}

func (g *Group) Descriptors() []base.ToolDescriptor {
	return []base.ToolDescriptor{
		{
			Name:        "start_query",
			Description: "Start a Logs Insights query against the configured log group. Returns a query id.",
			Group:       groupName,
			Parameters: []base.ParameterSpec{
				{Name: "query", Type: base.ParamString, Description: "Logs Insights query string", Required: true},
				{Name: "hours", Type: base.ParamNumber, Description: "Hours of history to search (default 1)", Required: false},
			},
		},
		{
			Name:        "get_query_results",
			Description: "Fetch the results of a previously started query by id.",
			Group:       groupName,
			Parameters: []base.ParameterSpec{
				{Name: "query_id", Type: base.ParamString, Description: "Query id from start_query", Required: true},
			},
		},
	}
}

func (g *Group) Invoke(ctx context.Context, tool string, args map[string]interface{}) (*base.Result, error) {
	switch tool {
	case "start_query":
		return g.startQuery(ctx, args)
	case "get_query_results":
		return g.getQueryResults(ctx, args)
	default:
		return nil, base.NewGroupError(groupName, "Invoke", fmt.Sprintf("unsupported tool %q", tool), nil)
	}
}

func (g *Group) startQuery(ctx context.Context, args map[string]interface{}) (*base.Result, error) {
	query, _ := args["query"].(string)
	window := defaultQueryWindow
	if h, ok := args["hours"].(float64); ok && h > 0 {
		window = time.Duration(h * float64(time.Hour))
	}

	now := time.Now().UTC()
	out, err := g.client.StartQuery(ctx, &cloudwatchlogs.StartQueryInput{
		LogGroupName: aws.String(g.logGroup),
		QueryString:  aws.String(query),
		StartTime:    aws.Int64(now.Add(-window).Unix()),
		EndTime:      aws.Int64(now.Unix()),
	})
	if err != nil {
		return nil, base.NewGroupError(groupName, "start_query", "start failed", err)
	}

	queryID := aws.ToString(out.QueryId)
	result := base.TextResult(groupName, "Query started with id "+queryID)
	result.Metadata = map[string]interface{}{"query_id": queryID}
	return result, nil
}

func (g *Group) getQueryResults(ctx context.Context, args map[string]interface{}) (*base.Result, error) {
	queryID, _ := args["query_id"].(string)

	out, err := g.client.GetQueryResults(ctx, &cloudwatchlogs.GetQueryResultsInput{
		QueryId: aws.String(queryID),
	})
	if err != nil {
		return nil, base.NewGroupError(groupName, "get_query_results", "fetch failed", err)
	}

	switch out.Status {
	case types.QueryStatusRunning, types.QueryStatusScheduled:
		return base.TextResult(groupName, "Query is still running; try again shortly."), nil
	case types.QueryStatusComplete:
		// fallthrough to rendering
	default:
		return nil, base.NewGroupError(groupName, "get_query_results",
			fmt.Sprintf("query ended with status %s", out.Status), nil)
	}

	rows := make([]interface{}, 0, len(out.Results))
	var b strings.Builder
	for _, row := range out.Results {
		fields := make(map[string]interface{}, len(row))
		var parts []string
		for _, f := range row {
			k := aws.ToString(f.Field)
			v := aws.ToString(f.Value)
			fields[k] = v
			parts = append(parts, k+"="+v)
		}
		rows = append(rows, fields)
		b.WriteString(strings.Join(parts, " "))
		b.WriteString("\n")
	}
	if len(rows) == 0 {
		b.WriteString("No results found.")
	}

	result := base.TextResult(groupName, strings.TrimRight(b.String(), "\n"))
	result.Metadata = map[string]interface{}{"query_results": rows}
	return result, nil
}
