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

package logger

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"strings"
	"testing"
	"time"
)

// TestNew tests logger initialization
func TestNew(t *testing.T) {
	tests := []struct {
		name           string
		component      string
		instanceID     string
		expectedComp   string
		expectedInstID string
	}{
		{
			name:           "with instance ID set",
			component:      "ASSISTANT",
			instanceID:     "instance-123",
			expectedComp:   "ASSISTANT",
			expectedInstID: "instance-123",
		},
		{
			name:           "without instance ID",
			component:      "TOOL_EXECUTOR",
			instanceID:     "",
			expectedComp:   "TOOL_EXECUTOR",
			expectedInstID: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.instanceID != "" {
				t.Setenv("INSTANCE_ID", tt.instanceID)
			} else {
				if err := os.Unsetenv("INSTANCE_ID"); err != nil {
					t.Fatalf("Failed to unset INSTANCE_ID: %v", err)
				}
			}

			logger := New(tt.component)

			if logger.Component != tt.expectedComp {
				t.Errorf("Expected component %s, got %s", tt.expectedComp, logger.Component)
			}

			if logger.InstanceID != tt.expectedInstID {
				t.Errorf("Expected instance ID %s, got %s", tt.expectedInstID, logger.InstanceID)
			}
		})
	}
}

// captureEntry runs logFunc and parses the single JSON entry it writes.
func captureEntry(t *testing.T, logFunc func()) LogEntry {
	t.Helper()

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	logFunc()

	output := buf.String()
	jsonStart := strings.Index(output, "{")
	if jsonStart == -1 {
		t.Fatalf("No JSON found in log output: %s", output)
	}

	var entry LogEntry
	if err := json.Unmarshal([]byte(strings.TrimSpace(output[jsonStart:])), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v\nOutput: %s", err, output)
	}
	return entry
}

// TestLogLevels tests all log level methods
func TestLogLevels(t *testing.T) {
	tests := []struct {
		name      string
		logFunc   func(*Logger, string, string, string, map[string]interface{})
		level     LogLevel
		message   string
		sessionID string
		requestID string
		fields    map[string]interface{}
	}{
		{
			name:      "Info log",
			logFunc:   (*Logger).Info,
			level:     INFO,
			message:   "Turn completed",
			sessionID: "session-123",
			requestID: "req-456",
			fields:    map[string]interface{}{"route": "mail_search"},
		},
		{
			name:      "Error log",
			logFunc:   (*Logger).Error,
			level:     ERROR,
			message:   "Tool call failed",
			sessionID: "session-789",
			requestID: "req-012",
			fields:    map[string]interface{}{"tool": "search_messages"},
		},
		{
			name:      "Warn log",
			logFunc:   (*Logger).Warn,
			level:     WARN,
			message:   "Policy denial in permissive mode",
			sessionID: "session-abc",
			requestID: "req-def",
			fields:    nil,
		},
		{
			name:      "Debug log",
			logFunc:   (*Logger).Debug,
			level:     DEBUG,
			message:   "Classified request",
			sessionID: "session-xyz",
			requestID: "req-uvw",
			fields:    map[string]interface{}{"route": "direct"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New("test-component")
			entry := captureEntry(t, func() {
				tt.logFunc(logger, tt.sessionID, tt.requestID, tt.message, tt.fields)
			})

			if entry.Level != tt.level {
				t.Errorf("Expected level %s, got %s", tt.level, entry.Level)
			}

			if entry.Message != tt.message {
				t.Errorf("Expected message '%s', got '%s'", tt.message, entry.Message)
			}

			if entry.SessionID != tt.sessionID {
				t.Errorf("Expected session ID '%s', got '%s'", tt.sessionID, entry.SessionID)
			}

			if entry.RequestID != tt.requestID {
				t.Errorf("Expected request ID '%s', got '%s'", tt.requestID, entry.RequestID)
			}

			if entry.Component != "test-component" {
				t.Errorf("Expected component 'test-component', got '%s'", entry.Component)
			}

			if _, err := time.Parse(time.RFC3339Nano, entry.Timestamp); err != nil {
				t.Errorf("Invalid timestamp format: %s", entry.Timestamp)
			}

			for key, expectedValue := range tt.fields {
				if actualValue, ok := entry.Fields[key]; !ok {
					t.Errorf("Expected field '%s' not found", key)
				} else if actualValue != expectedValue {
					t.Errorf("Field '%s': expected %v, got %v", key, expectedValue, actualValue)
				}
			}
		})
	}
}

// TestInfoWithDuration tests the InfoWithDuration helper method
func TestInfoWithDuration(t *testing.T) {
	logger := New("test-component")
	entry := captureEntry(t, func() {
		logger.InfoWithDuration("session-123", "req-456", "Turn completed", 123.45, map[string]interface{}{
			"route": "pipeline",
		})
	})

	if entry.Level != INFO {
		t.Errorf("Expected INFO level, got %s", entry.Level)
	}

	if entry.Fields["duration_ms"] != 123.45 {
		t.Errorf("Expected duration_ms 123.45, got %v", entry.Fields["duration_ms"])
	}

	if entry.Fields["route"] != "pipeline" {
		t.Errorf("Expected route 'pipeline', got %v", entry.Fields["route"])
	}
}

// TestErrorWithCause tests the ErrorWithCause helper method
func TestErrorWithCause(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectError    bool
		expectedErrMsg string
	}{
		{
			name:           "with error",
			err:            &testError{msg: "backend unreachable"},
			expectError:    true,
			expectedErrMsg: "backend unreachable",
		},
		{
			name:        "without error",
			err:         nil,
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New("test-component")
			entry := captureEntry(t, func() {
				logger.ErrorWithCause("session-123", "req-456", "Tool call failed", tt.err, nil)
			})

			if entry.Level != ERROR {
				t.Errorf("Expected ERROR level, got %s", entry.Level)
			}

			errMsg, ok := entry.Fields["error"]
			if tt.expectError {
				if !ok {
					t.Fatal("Expected error field not found")
				}
				if errMsg != tt.expectedErrMsg {
					t.Errorf("Expected error message '%s', got '%v'", tt.expectedErrMsg, errMsg)
				}
			} else if ok {
				t.Errorf("Did not expect error field, got %v", errMsg)
			}
		})
	}
}

// TestJSONMarshalError tests behavior when JSON marshaling fails
func TestJSONMarshalError(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	logger := New("test-component")

	ch := make(chan int)
	logger.Info("session-123", "req-456", "Test message", map[string]interface{}{
		"channel": ch, // Channels cannot be marshaled to JSON
	})

	if !strings.Contains(buf.String(), "Failed to marshal log entry") {
		t.Error("Expected error message about JSON marshaling failure")
	}
}

// Helper type for testing errors
type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}
