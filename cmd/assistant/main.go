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

// Package main is the entry point for the AxonFlow Assistant service.
//
// The Assistant is a business-workflow orchestration service that:
// - Classifies natural-language requests into execution routes
// - Delegates to specialized backend tool groups
// - Composes sequential pipelines and parallel fan-out plans
// - Enforces a tool allow/deny policy with audit logging
// - Degrades gracefully when the reasoning backend is unreachable
//
// Usage:
//
//	./assistant
//
// Environment Variables:
//
//	PORT - HTTP server port (default: 8082)
//	MAIL_SEARCH_ENDPOINT - communication-search backend URL
//	AGENT_GATE_ENDPOINT - general reasoning gateway URL
//	BEDROCK_REGION - AWS Bedrock region for document analysis
//	DATABASE_URL - PostgreSQL connection string for durable audit (optional)
//	REDIS_ADDR - Redis address for shared session memory (optional)
//
// For more information, see https://docs.getaxonflow.com
package main

import (
	"axonflow/assistant/orchestrator"
)

func main() {
	orchestrator.Run()
}
