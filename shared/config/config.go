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

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full assistant configuration. Values come from
// environment variables first, optionally merged over a YAML file named
// by ASSISTANT_CONFIG_FILE.
type Config struct {
	// HTTP server
	Port string `yaml:"port"`

	// Backend endpoints
	MailSearchEndpoint string `yaml:"mail_search_endpoint"`
	DocReviewEndpoint  string `yaml:"doc_review_endpoint"`
	AutomationEndpoint string `yaml:"automation_endpoint"`
	AutomationAPIKey   string `yaml:"automation_api_key"`
	AgentGateEndpoint  string `yaml:"agent_gate_endpoint"`
	GeneralAgentID     string `yaml:"general_agent_id"`
	GeneralAgentAlias  string `yaml:"general_agent_alias"`

	// Reasoning backend (Bedrock)
	BedrockRegion string `yaml:"bedrock_region"`
	BedrockModel  string `yaml:"bedrock_model"`

	// AWS tool groups
	AWSRegion       string `yaml:"aws_region"`
	S3Bucket        string `yaml:"s3_bucket"`
	DynamoTable     string `yaml:"dynamo_table"`
	CloudWatchGroup string `yaml:"cloudwatch_log_group"`

	// Session memory
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`

	// Durable audit sink (optional)
	DatabaseURL string `yaml:"database_url"`

	// Security policy
	AllowedTools    []string `yaml:"allowed_tools"`
	DeniedTools     []string `yaml:"denied_tools"`
	EnforcementMode string   `yaml:"enforcement_mode"` // "permissive" or "enforcing"

	// Limits
	MaxConcurrentOps int           `yaml:"max_concurrent_ops"`
	ToolCallTimeout  time.Duration `yaml:"tool_call_timeout"`
	AuditLedgerSize  int           `yaml:"audit_ledger_size"`
}

// Defaults applied when neither environment nor file provide a value.
const (
	DefaultPort             = "8082"
	DefaultMaxConcurrentOps = 4
	DefaultToolCallTimeout  = 60 * time.Second
	DefaultAuditLedgerSize  = 500
)

// LoadConfig builds the configuration from the environment, merged over
// the optional YAML file. Environment variables win.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	if path := os.Getenv("ASSISTANT_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	overrideString(&cfg.Port, "PORT")
	overrideString(&cfg.MailSearchEndpoint, "MAIL_SEARCH_ENDPOINT")
	overrideString(&cfg.DocReviewEndpoint, "DOC_REVIEW_ENDPOINT")
	overrideString(&cfg.AutomationEndpoint, "AUTOMATION_ENDPOINT")
	overrideString(&cfg.AutomationAPIKey, "AUTOMATION_API_KEY")
	overrideString(&cfg.AgentGateEndpoint, "AGENT_GATE_ENDPOINT")
	overrideString(&cfg.GeneralAgentID, "GENERAL_AGENT_ID")
	overrideString(&cfg.GeneralAgentAlias, "GENERAL_AGENT_ALIAS")
	overrideString(&cfg.BedrockRegion, "BEDROCK_REGION")
	overrideString(&cfg.BedrockModel, "BEDROCK_MODEL")
	overrideString(&cfg.AWSRegion, "AWS_REGION")
	overrideString(&cfg.S3Bucket, "S3_BUCKET")
	overrideString(&cfg.DynamoTable, "DYNAMO_TABLE")
	overrideString(&cfg.CloudWatchGroup, "CLOUDWATCH_LOG_GROUP")
	overrideString(&cfg.RedisAddr, "REDIS_ADDR")
	overrideString(&cfg.RedisPassword, "REDIS_PASSWORD")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.EnforcementMode, "ENFORCEMENT_MODE")
	overrideList(&cfg.AllowedTools, "ALLOWED_TOOLS")
	overrideList(&cfg.DeniedTools, "DENIED_TOOLS")

	if v := os.Getenv("MAX_CONCURRENT_OPS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_CONCURRENT_OPS %q: %w", v, err)
		}
		cfg.MaxConcurrentOps = n
	}
	if v := os.Getenv("TOOL_CALL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TOOL_CALL_TIMEOUT %q: %w", v, err)
		}
		cfg.ToolCallTimeout = d
	}
	if v := os.Getenv("AUDIT_LEDGER_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid AUDIT_LEDGER_SIZE %q: %w", v, err)
		}
		cfg.AuditLedgerSize = n
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == "" {
		c.Port = DefaultPort
	}
	if c.MaxConcurrentOps <= 0 {
		c.MaxConcurrentOps = DefaultMaxConcurrentOps
	}
	if c.ToolCallTimeout <= 0 {
		c.ToolCallTimeout = DefaultToolCallTimeout
	}
	if c.AuditLedgerSize <= 0 {
		c.AuditLedgerSize = DefaultAuditLedgerSize
	}
	if c.EnforcementMode == "" {
		c.EnforcementMode = "enforcing"
	}
}

func overrideString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// overrideList parses a comma-separated env value into a string slice.
func overrideList(dst *[]string, env string) {
	v := os.Getenv(env)
	if v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}
