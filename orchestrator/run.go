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

package orchestrator

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"axonflow/assistant/llm"
	"axonflow/assistant/shared/config"
	"axonflow/assistant/tools/automation"
	"axonflow/assistant/tools/cloudwatch"
	"axonflow/assistant/tools/docreview"
	"axonflow/assistant/tools/dynamodb"
	"axonflow/assistant/tools/mailsearch"
	"axonflow/assistant/tools/registry"
	"axonflow/assistant/tools/s3"
)

// Run starts the assistant service: loads configuration, registers the
// backend tool groups, wires the orchestration layer, and serves the
// HTTP API until interrupted.
func Run() {
	log.Println("Starting AxonFlow Assistant...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	// Session memory: Redis when configured, process-local otherwise.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("WARNING: Redis unreachable, using in-process session memory: %v", err)
			redisClient = nil
		} else {
			log.Println("✅ Redis session memory connected")
		}
	}
	sessions := NewSessionManager(redisClient)

	// Durable audit sink is optional; the in-memory ledger always runs.
	auditSink := NewPostgresAuditSink(cfg.DatabaseURL)
	ledger := NewAuditLedger(cfg.AuditLedgerSize, auditSink)
	log.Println("Audit ledger initialized")

	policy := NewSecurityPolicy(cfg.AllowedTools, cfg.DeniedTools, EnforcementMode(cfg.EnforcementMode))
	log.Printf("Security policy initialized (mode=%s, allow=%d, deny=%d)",
		cfg.EnforcementMode, len(cfg.AllowedTools), len(cfg.DeniedTools))

	reg := registry.NewRegistry()
	registerToolGroups(ctx, reg, cfg)
	log.Printf("Tool registry initialized with %d tools across %d groups",
		len(reg.ListAll()), reg.Count())

	var fallback llm.Provider = llm.Unconfigured("general-agent")
	if cfg.AgentGateEndpoint != "" && cfg.GeneralAgentID != "" {
		gate, err := llm.NewAgentGateProvider(llm.AgentGateConfig{
			Endpoint: cfg.AgentGateEndpoint,
			AgentID:  cfg.GeneralAgentID,
			Alias:    cfg.GeneralAgentAlias,
		})
		if err != nil {
			log.Printf("WARNING: reasoning backend misconfigured, serving capability summaries: %v", err)
		} else {
			fallback = gate
			log.Println("✅ General reasoning backend configured")
		}
	} else {
		log.Println("WARNING: no reasoning backend configured, serving capability summaries")
	}

	executor := NewToolExecutor(reg, policy, ledger, cfg.ToolCallTimeout, cfg.MaxConcurrentOps)
	assistant := NewAssistant(sessions, reg, executor, ledger, fallback)

	r := mux.NewRouter()
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // Configure for production
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	r.HandleFunc("/health", livenessHandler).Methods("GET")
	r.Handle("/prometheus", promhttp.Handler()).Methods("GET")

	r.HandleFunc("/api/v1/turn", turnHandler(assistant, sessions)).Methods("POST")
	r.HandleFunc("/api/v1/batch", batchHandler(assistant)).Methods("POST")
	r.HandleFunc("/api/v1/traces", tracesHandler(assistant)).Methods("GET")
	r.HandleFunc("/api/v1/audit", auditHandler(assistant)).Methods("GET")
	r.HandleFunc("/api/v1/health", backendHealthHandler(assistant)).Methods("GET")
	r.HandleFunc("/api/v1/tools", toolsHandler(reg)).Methods("GET")
	r.HandleFunc("/api/v1/tools/refresh", refreshHandler(reg)).Methods("POST")

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("AxonFlow Assistant listening on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	reg.CloseAll(shutdownCtx)
	auditSink.Shutdown(10 * time.Second)
	log.Println("Shutdown complete")
}

// registerToolGroups registers every configured backend group. A group
// that fails initialization is disabled, not fatal.
func registerToolGroups(ctx context.Context, reg *registry.Registry, cfg *config.Config) {
	if cfg.MailSearchEndpoint != "" {
		if err := reg.Register(ctx, "mail-search", mailsearch.New(cfg.MailSearchEndpoint)); err != nil {
			log.Printf("WARNING: mail-search group failed to initialize: %v", err)
		} else {
			log.Println("✅ mail-search tools registered")
		}
	}

	// Document review runs against a dedicated gateway agent when one is
	// configured, Bedrock otherwise.
	var docProvider llm.Provider
	if cfg.DocReviewEndpoint != "" {
		gate, err := llm.NewAgentGateProvider(llm.AgentGateConfig{
			Endpoint: cfg.DocReviewEndpoint,
			AgentID:  "doc-review",
		})
		if err != nil {
			log.Printf("WARNING: doc-review endpoint misconfigured: %v", err)
		} else {
			docProvider = gate
		}
	}
	if docProvider == nil {
		bedrock, err := llm.NewBedrockProvider(ctx, cfg.BedrockRegion, cfg.BedrockModel)
		if err != nil {
			log.Printf("WARNING: Bedrock provider unavailable, document review disabled: %v", err)
		} else {
			docProvider = bedrock
		}
	}
	if docProvider != nil {
		if err := reg.Register(ctx, "doc-review", docreview.New(docProvider)); err != nil {
			log.Printf("WARNING: doc-review group failed to initialize: %v", err)
		} else {
			log.Println("✅ doc-review tools registered")
		}
	}

	if cfg.AutomationEndpoint != "" {
		if err := reg.Register(ctx, "automation", automation.New(cfg.AutomationEndpoint, cfg.AutomationAPIKey)); err != nil {
			log.Printf("WARNING: automation group failed to initialize: %v", err)
		} else {
			log.Println("✅ automation tools registered")
		}
	}

	if cfg.S3Bucket != "" {
		if err := reg.Register(ctx, "object-store", s3.New(cfg.AWSRegion, cfg.S3Bucket)); err != nil {
			log.Printf("WARNING: object-store group failed to initialize: %v", err)
		} else {
			log.Println("✅ object-store tools registered")
		}
	}

	if cfg.DynamoTable != "" {
		if err := reg.Register(ctx, "records", dynamodb.New(cfg.AWSRegion, cfg.DynamoTable)); err != nil {
			log.Printf("WARNING: records group failed to initialize: %v", err)
		} else {
			log.Println("✅ records tools registered")
		}
	}

	if cfg.CloudWatchGroup != "" {
		if err := reg.Register(ctx, "log-analytics", cloudwatch.New(cfg.AWSRegion, cfg.CloudWatchGroup)); err != nil {
			log.Printf("WARNING: log-analytics group failed to initialize: %v", err)
		} else {
			log.Println("✅ log-analytics tools registered")
		}
	}
}

type turnRequest struct {
	Text      string `json:"text"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

type turnResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id"`
}

func turnHandler(assistant *Assistant, sessions *SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req turnRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Text == "" || req.SessionID == "" {
			http.Error(w, "text and session_id are required", http.StatusBadRequest)
			return
		}

		reply := assistant.HandleUserTurn(r.Context(), req.Text, req.UserID, req.SessionID)
		setActiveSessions(sessions.Count())

		writeJSON(w, http.StatusOK, turnResponse{Reply: reply, SessionID: req.SessionID})
	}
}

type batchRequest struct {
	Calls     []ToolCall `json:"calls"`
	UserID    string     `json:"user_id"`
	SessionID string     `json:"session_id"`
}

func batchHandler(assistant *Assistant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req batchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if len(req.Calls) == 0 || req.SessionID == "" {
			http.Error(w, "calls and session_id are required", http.StatusBadRequest)
			return
		}

		reply := assistant.RunBatch(r.Context(), req.Calls, req.UserID, req.SessionID)
		writeJSON(w, http.StatusOK, turnResponse{Reply: reply, SessionID: req.SessionID})
	}
}

func tracesHandler(assistant *Assistant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session_id")
		if sessionID == "" {
			http.Error(w, "session_id is required", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"session_id": sessionID,
			"traces":     assistant.GetTraces(sessionID),
		})
	}
}

func auditHandler(assistant *Assistant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"entries": assistant.GetAuditLog(),
		})
	}
}

func backendHealthHandler(assistant *Assistant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"groups":           assistant.GetHealth(r.Context()),
			"recent_errors_1h": assistant.RecentErrors(time.Hour),
		})
	}
}

func toolsHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"tools": reg.ListAll(),
		})
	}
}

func refreshHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID := r.URL.Query().Get("group")
		if groupID == "" {
			http.Error(w, "group is required", http.StatusBadRequest)
			return
		}
		if err := reg.Refresh(r.Context(), groupID); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed", "group": groupID})
	}
}

func livenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "axonflow-assistant",
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
