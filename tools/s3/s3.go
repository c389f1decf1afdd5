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

// Package s3 exposes an object store as a tool group with upload, get,
// and list operations against a single configured bucket. It also works
// with S3-compatible services like MinIO and Cloudflare R2 via the
// ENDPOINT option of the AWS SDK.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"axonflow/assistant/tools/base"
)

const groupName = "object-store"

// Client is the slice of the S3 API the group uses.
type Client interface {
	PutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *awss3.ListObjectsV2Input, optFns ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error)
}

// Group is the object-store tool group.
type Group struct {
	region string
	bucket string
	client Client
}

// New creates the group for one bucket. The client is built in Init.
func New(region, bucket string) *Group {
	if region == "" {
		region = "us-east-1"
	}
	return &Group{region: region, bucket: bucket}
}

// NewWithClient wires a prebuilt client. Used by tests.
func NewWithClient(bucket string, client Client) *Group {
	return &Group{bucket: bucket, client: client}
}

func (g *Group) Name() string { return groupName }

func (g *Group) Init(ctx context.Context) error {
	if g.bucket == "" {
		return base.NewGroupError(groupName, "Init", "bucket is required", nil)
	}
	if g.client != nil {
		return nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(g.region))
	if err != nil {
		return base.NewGroupError(groupName, "Init", "failed to load AWS config", err)
	}
	g.client = awss3.NewFromConfig(cfg)
	return nil
}

func (g *Group) Close(ctx context.Context) error { return nil }

// HealthCheck lists at most one object as a cheap read-only probe.
func (g *Group) HealthCheck(ctx context.Context) (*base.HealthStatus, error) {
	start := time.Now()
	_, err := g.client.ListObjectsV2(ctx, &awss3.ListObjectsV2Input{
		Bucket:  aws.String(g.bucket),
		MaxKeys: aws.Int32(1),
	})
	status := &base.HealthStatus{
		Healthy:   err == nil,
		Latency:   time.Since(start),
		Timestamp: time.Now().UTC(),
		Details:   map[string]string{"bucket": g.bucket},
	}
	if err != nil {
		status.Error = err.Error()
	}
	return status, nil
}

func (g *Group) Descriptors() []base.ToolDescriptor {
	return []base.ToolDescriptor{
		{
			Name:        "upload_object",
			Description: "Upload text content to the object store under a key.",
			Group:       groupName,
			Parameters: []base.ParameterSpec{
				{Name: "key", Type: base.ParamString, Description: "Object key", Required: true},
				{Name: "content", Type: base.ParamString, Description: "Object content", Required: true},
				{Name: "content_type", Type: base.ParamString, Description: "MIME type", Required: false},
			},
		},
		{
			Name:        "get_object",
			Description: "Fetch an object's content by key.",
			Group:       groupName,
			Parameters: []base.ParameterSpec{
				{Name: "key", Type: base.ParamString, Description: "Object key", Required: true},
			},
		},
		{
			Name:        "list_objects",
			Description: "List object keys, optionally under a prefix.",
			Group:       groupName,
			Parameters: []base.ParameterSpec{
				{Name: "prefix", Type: base.ParamString, Description: "Key prefix filter", Required: false},
				{Name: "max_keys", Type: base.ParamNumber, Description: "Maximum keys to return", Required: false},
			},
		},
	}
}

func (g *Group) Invoke(ctx context.Context, tool string, args map[string]interface{}) (*base.Result, error) {
	switch tool {
	case "upload_object":
		return g.upload(ctx, args)
	case "get_object":
		return g.get(ctx, args)
	case "list_objects":
		return g.list(ctx, args)
	default:
		return nil, base.NewGroupError(groupName, "Invoke", fmt.Sprintf("unsupported tool %q", tool), nil)
	}
}

func (g *Group) upload(ctx context.Context, args map[string]interface{}) (*base.Result, error) {
	key, _ := args["key"].(string)
	content, _ := args["content"].(string)

	input := &awss3.PutObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader([]byte(content)),
	}
	if ct, ok := args["content_type"].(string); ok && ct != "" {
		input.ContentType = aws.String(ct)
	}

	if _, err := g.client.PutObject(ctx, input); err != nil {
		return nil, base.NewGroupError(groupName, "upload_object", "put failed", err)
	}
	return base.TextResult(groupName, fmt.Sprintf("Uploaded %d bytes to %s/%s", len(content), g.bucket, key)), nil
}

func (g *Group) get(ctx context.Context, args map[string]interface{}) (*base.Result, error) {
	key, _ := args["key"].(string)

	out, err := g.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, base.NewGroupError(groupName, "get_object", "get failed", err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, base.NewGroupError(groupName, "get_object", "failed to read object body", err)
	}
	return base.TextResult(groupName, string(data)), nil
}

func (g *Group) list(ctx context.Context, args map[string]interface{}) (*base.Result, error) {
	input := &awss3.ListObjectsV2Input{Bucket: aws.String(g.bucket)}
	if p, ok := args["prefix"].(string); ok && p != "" {
		input.Prefix = aws.String(p)
	}
	if n, ok := args["max_keys"].(float64); ok && n > 0 {
		input.MaxKeys = aws.Int32(int32(n))
	}

	out, err := g.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, base.NewGroupError(groupName, "list_objects", "list failed", err)
	}

	keys := make([]interface{}, 0, len(out.Contents))
	var b strings.Builder
	for _, obj := range out.Contents {
		keys = append(keys, aws.ToString(obj.Key))
		fmt.Fprintf(&b, "%s (%d bytes)\n", aws.ToString(obj.Key), aws.ToInt64(obj.Size))
	}
	if len(keys) == 0 {
		b.WriteString("No objects found.")
	}

	result := base.TextResult(groupName, strings.TrimRight(b.String(), "\n"))
	result.Metadata = map[string]interface{}{"listing": keys}
	return result, nil
}
