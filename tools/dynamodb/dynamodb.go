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

// Package dynamodb exposes a key-value record table as a tool group
// with get, put, update, query, and scan operations. Items are exchanged
// as JSON objects of string attributes to keep the tool schema flat.
package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"axonflow/assistant/tools/base"
)

const groupName = "records"

// Client is the slice of the DynamoDB API the group uses.
type Client interface {
	GetItem(ctx context.Context, params *awsdynamodb.GetItemInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *awsdynamodb.PutItemInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *awsdynamodb.UpdateItemInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *awsdynamodb.QueryInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *awsdynamodb.ScanInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, params *awsdynamodb.DescribeTableInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.DescribeTableOutput, error)
}

// Group is the records tool group.
type Group struct {
	region string
	table  string
	client Client
}

// New creates the group for one table. The client is built in Init.
func New(region, table string) *Group {
	if region == "" {
		region = "us-east-1"
	}
	return &Group{region: region, table: table}
}

// NewWithClient wires a prebuilt client. Used by tests.
func NewWithClient(table string, client Client) *Group {
	return &Group{table: table, client: client}
}

func (g *Group) Name() string { return groupName }

func (g *Group) Init(ctx context.Context) error {
	if g.table == "" {
		return base.NewGroupError(groupName, "Init", "table is required", nil)
	}
	if g.client != nil {
		return nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(g.region))
	if err != nil {
		return base.NewGroupError(groupName, "Init", "failed to load AWS config", err)
	}
	g.client = awsdynamodb.NewFromConfig(cfg)
	return nil
}

func (g *Group) Close(ctx context.Context) error { return nil }

// HealthCheck describes the table as a cheap read-only probe.
func (g *Group) HealthCheck(ctx context.Context) (*base.HealthStatus, error) {
	start := time.Now()
	_, err := g.client.DescribeTable(ctx, &awsdynamodb.DescribeTableInput{
		TableName: aws.String(g.table),
	})
	status := &base.HealthStatus{
		Healthy:   err == nil,
		Latency:   time.Since(start),
		Timestamp: time.Now().UTC(),
		Details:   map[string]string{"table": g.table},
	}
	if err != nil {
		status.Error = err.Error()
	}
	return status, nil
}

func (g *Group) Descriptors() []base.ToolDescriptor {
	keyParam := base.ParameterSpec{Name: "key", Type: base.ParamObject, Description: "Primary key attributes", Required: true}
	return []base.ToolDescriptor{
		{
			Name:        "get_item",
			Description: "Fetch one record by primary key.",
			Group:       groupName,
			Parameters:  []base.ParameterSpec{keyParam},
		},
		{
			Name:        "put_item",
			Description: "Store one record, replacing any existing item with the same key.",
			Group:       groupName,
			Parameters: []base.ParameterSpec{
				{Name: "item", Type: base.ParamObject, Description: "Full item attributes", Required: true},
			},
		},
		{
			Name:        "update_item",
			Description: "Set attributes on an existing record.",
			Group:       groupName,
			Parameters: []base.ParameterSpec{
				keyParam,
				{Name: "updates", Type: base.ParamObject, Description: "Attributes to set", Required: true},
			},
		},
		{
			Name:        "query_items",
			Description: "Query records by partition key value.",
			Group:       groupName,
			Parameters: []base.ParameterSpec{
				{Name: "key_name", Type: base.ParamString, Description: "Partition key attribute name", Required: true},
				{Name: "key_value", Type: base.ParamString, Description: "Partition key value", Required: true},
				{Name: "limit", Type: base.ParamNumber, Description: "Maximum records", Required: false},
			},
		},
		{
			Name:        "scan_items",
			Description: "Scan the table, returning up to a bounded number of records.",
			Group:       groupName,
			Parameters: []base.ParameterSpec{
				{Name: "limit", Type: base.ParamNumber, Description: "Maximum records", Required: false},
			},
		},
	}
}

func (g *Group) Invoke(ctx context.Context, tool string, args map[string]interface{}) (*base.Result, error) {
	switch tool {
	case "get_item":
		return g.getItem(ctx, args)
	case "put_item":
		return g.putItem(ctx, args)
	case "update_item":
		return g.updateItem(ctx, args)
	case "query_items":
		return g.queryItems(ctx, args)
	case "scan_items":
		return g.scanItems(ctx, args)
	default:
		return nil, base.NewGroupError(groupName, "Invoke", fmt.Sprintf("unsupported tool %q", tool), nil)
	}
}

func (g *Group) getItem(ctx context.Context, args map[string]interface{}) (*base.Result, error) {
	key, err := toAttributeValues(args["key"])
	if err != nil {
		return nil, base.NewGroupError(groupName, "get_item", "invalid key", err)
	}

	out, err := g.client.GetItem(ctx, &awsdynamodb.GetItemInput{
		TableName: aws.String(g.table),
		Key:       key,
	})
	if err != nil {
		return nil, base.NewGroupError(groupName, "get_item", "get failed", err)
	}
	if len(out.Item) == 0 {
		return base.TextResult(groupName, "No record found."), nil
	}
	return itemResult([]map[string]types.AttributeValue{out.Item})
}

func (g *Group) putItem(ctx context.Context, args map[string]interface{}) (*base.Result, error) {
	item, err := toAttributeValues(args["item"])
	if err != nil {
		return nil, base.NewGroupError(groupName, "put_item", "invalid item", err)
	}

	if _, err := g.client.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName: aws.String(g.table),
		Item:      item,
	}); err != nil {
		return nil, base.NewGroupError(groupName, "put_item", "put failed", err)
	}
	return base.TextResult(groupName, fmt.Sprintf("Stored record with %d attributes.", len(item))), nil
}

func (g *Group) updateItem(ctx context.Context, args map[string]interface{}) (*base.Result, error) {
	key, err := toAttributeValues(args["key"])
	if err != nil {
		return nil, base.NewGroupError(groupName, "update_item", "invalid key", err)
	}
	updates, ok := args["updates"].(map[string]interface{})
	if !ok || len(updates) == 0 {
		return nil, base.NewGroupError(groupName, "update_item", "updates must be a non-empty object", nil)
	}

	var exprs []string
	names := make(map[string]string, len(updates))
	values := make(map[string]types.AttributeValue, len(updates))
	i := 0
	for k, v := range updates {
		nameRef := fmt.Sprintf("#a%d", i)
		valueRef := fmt.Sprintf(":v%d", i)
		exprs = append(exprs, fmt.Sprintf("%s = %s", nameRef, valueRef))
		names[nameRef] = k
		av, err := toAttributeValue(v)
		if err != nil {
			return nil, base.NewGroupError(groupName, "update_item", fmt.Sprintf("invalid value for %q", k), err)
		}
		values[valueRef] = av
		i++
	}

	if _, err := g.client.UpdateItem(ctx, &awsdynamodb.UpdateItemInput{
		TableName:                 aws.String(g.table),
		Key:                       key,
		UpdateExpression:          aws.String("SET " + strings.Join(exprs, ", ")),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}); err != nil {
		return nil, base.NewGroupError(groupName, "update_item", "update failed", err)
	}
	return base.TextResult(groupName, fmt.Sprintf("Updated %d attribute(s).", len(updates))), nil
}

func (g *Group) queryItems(ctx context.Context, args map[string]interface{}) (*base.Result, error) {
	keyName, _ := args["key_name"].(string)
	keyValue, _ := args["key_value"].(string)

	input := &awsdynamodb.QueryInput{
		TableName:              aws.String(g.table),
		KeyConditionExpression: aws.String("#k = :v"),
		ExpressionAttributeNames: map[string]string{
			"#k": keyName,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: keyValue},
		},
	}
	if n, ok := args["limit"].(float64); ok && n > 0 {
		input.Limit = aws.Int32(int32(n))
	}

	out, err := g.client.Query(ctx, input)
	if err != nil {
		return nil, base.NewGroupError(groupName, "query_items", "query failed", err)
	}
	return itemResult(out.Items)
}

func (g *Group) scanItems(ctx context.Context, args map[string]interface{}) (*base.Result, error) {
	input := &awsdynamodb.ScanInput{TableName: aws.String(g.table)}
	if n, ok := args["limit"].(float64); ok && n > 0 {
		input.Limit = aws.Int32(int32(n))
	} else {
		input.Limit = aws.Int32(25)
	}

	out, err := g.client.Scan(ctx, input)
	if err != nil {
		return nil, base.NewGroupError(groupName, "scan_items", "scan failed", err)
	}
	return itemResult(out.Items)
}

// toAttributeValues converts a JSON object into string attributes.
func toAttributeValues(v interface{}) (map[string]types.AttributeValue, error) {
	obj, ok := v.(map[string]interface{})
	if !ok || len(obj) == 0 {
		return nil, fmt.Errorf("expected a non-empty object")
	}
	out := make(map[string]types.AttributeValue, len(obj))
	for k, raw := range obj {
		av, err := toAttributeValue(raw)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = av
	}
	return out, nil
}

func toAttributeValue(v interface{}) (types.AttributeValue, error) {
	switch x := v.(type) {
	case string:
		return &types.AttributeValueMemberS{Value: x}, nil
	case float64:
		return &types.AttributeValueMemberN{Value: formatNumber(x)}, nil
	case bool:
		return &types.AttributeValueMemberBOOL{Value: x}, nil
	default:
		return nil, fmt.Errorf("unsupported attribute type %T", v)
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// itemResult renders records as text and surfaces them as structured
// metadata for synthesis.
func itemResult(items []map[string]types.AttributeValue) (*base.Result, error) {
	records := make([]interface{}, 0, len(items))
	for _, item := range items {
		rec := make(map[string]interface{}, len(item))
		for k, av := range item {
			rec[k] = attributeToPlain(av)
		}
		records = append(records, rec)
	}

	text := "No records found."
	if len(records) > 0 {
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return nil, base.NewGroupError(groupName, "render", "failed to render records", err)
		}
		text = string(data)
	}

	result := base.TextResult(groupName, text)
	result.Metadata = map[string]interface{}{"records": records}
	return result, nil
}

func attributeToPlain(av types.AttributeValue) interface{} {
	switch x := av.(type) {
	case *types.AttributeValueMemberS:
		return x.Value
	case *types.AttributeValueMemberN:
		return x.Value
	case *types.AttributeValueMemberBOOL:
		return x.Value
	default:
		return fmt.Sprintf("%v", av)
	}
}
