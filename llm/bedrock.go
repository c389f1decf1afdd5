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

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// BedrockInvoker is the subset of the Bedrock runtime client used by the
// provider. Declared as an interface so tests can substitute a fake.
type BedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockProvider implements Provider for AWS Bedrock using AWS SDK v2.
// Request shaping and text extraction are delegated to the family table.
type BedrockProvider struct {
	client  BedrockInvoker
	region  string
	model   string
	mu      sync.RWMutex
	healthy bool
}

// NewBedrockProvider creates a Bedrock provider. Returns an error if AWS
// config loading fails; callers should handle this rather than silently
// falling back.
func NewBedrockProvider(ctx context.Context, region, model string) (*BedrockProvider, error) {
	if region == "" {
		region = "us-east-1"
	}
	if model == "" {
		model = "anthropic.claude-3-5-sonnet-20240620-v1:0"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for Bedrock (region: %s): %w", region, err)
	}

	log.Printf("[Bedrock] Initialized provider (region: %s, model: %s)", region, model)
	return &BedrockProvider{
		client:  bedrockruntime.NewFromConfig(awsCfg),
		region:  region,
		model:   model,
		healthy: true,
	}, nil
}

// NewBedrockProviderWithClient builds a provider around an existing client.
// Used by tests and by callers that manage AWS config themselves.
func NewBedrockProviderWithClient(client BedrockInvoker, region, model string) *BedrockProvider {
	return &BedrockProvider{client: client, region: region, model: model, healthy: true}
}

func (p *BedrockProvider) Name() string {
	return "bedrock"
}

func (p *BedrockProvider) IsHealthy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.healthy && p.region != ""
}

func (p *BedrockProvider) setHealthy(healthy bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.healthy = healthy
}

// Complete invokes the configured model once and extracts the generated
// text via the model's family.
func (p *BedrockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = p.model
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	family, err := FamilyFor(model)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	input := req.Input
	if req.Context != "" {
		input = req.Context + "\n\n" + req.Input
	}

	requestJSON, err := json.Marshal(family.BuildRequest(input, maxTokens))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	output, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		Body:        requestJSON,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		p.setHealthy(false)
		return nil, &UpstreamError{Backend: "bedrock", Cause: err}
	}
	p.setHealthy(true)

	content, err := family.ExtractText(output.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &CompletionResponse{
		Content: content,
		Model:   model,
		Latency: time.Since(start),
	}, nil
}
