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
	"database/sql"
	"log"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

const (
	auditQueueSize  = 10000
	auditBatchSize  = 100
	auditFlushEvery = 5 * time.Second
)

// PostgresAuditSink persists audit entries to Postgres in batches. The
// sink is write-behind: Record enqueues and returns immediately so a slow
// or absent database never stalls a tool call. When the database is
// unreachable at construction the sink degrades to a no-op.
type PostgresAuditSink struct {
	db           *sql.DB
	queue        chan AuditEntry
	wg           sync.WaitGroup
	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

// NewPostgresAuditSink connects to the audit database and starts the
// background writer. An empty databaseURL or a failed connection yields a
// no-op sink, never an error.
func NewPostgresAuditSink(databaseURL string) *PostgresAuditSink {
	sink := &PostgresAuditSink{
		queue:        make(chan AuditEntry, auditQueueSize),
		shutdownChan: make(chan struct{}),
	}

	if databaseURL == "" {
		return sink
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		log.Printf("audit sink: database unavailable, running in-memory only: %v", err)
		return sink
	}
	if err := createAuditTable(db); err != nil {
		log.Printf("audit sink: failed to create table: %v", err)
	}

	sink.db = db
	sink.wg.Add(1)
	go sink.processQueue()
	return sink
}

// NewPostgresAuditSinkWithDB wires the sink to an existing handle. Used
// by tests with a mock database.
func NewPostgresAuditSinkWithDB(db *sql.DB) *PostgresAuditSink {
	sink := &PostgresAuditSink{
		db:           db,
		queue:        make(chan AuditEntry, auditQueueSize),
		shutdownChan: make(chan struct{}),
	}
	sink.wg.Add(1)
	go sink.processQueue()
	return sink
}

// Record enqueues one entry. When the queue is full the entry is dropped
// with a log line; durable audit is best effort, the in-memory ledger
// remains authoritative for the current process.
func (s *PostgresAuditSink) Record(entry AuditEntry) {
	if s.db == nil {
		return
	}
	select {
	case s.queue <- entry:
	default:
		log.Printf("audit sink: queue full, dropping entry %s", entry.ID)
	}
}

// Shutdown drains the queue and closes the database, waiting at most
// timeout for the writer to finish.
func (s *PostgresAuditSink) Shutdown(timeout time.Duration) {
	s.shutdownOnce.Do(func() {
		close(s.shutdownChan)
	})
	if s.db == nil {
		return
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		log.Printf("audit sink: shutdown timed out with entries pending")
	}
	_ = s.db.Close()
}

// IsHealthy pings the database. A no-op sink reports healthy.
func (s *PostgresAuditSink) IsHealthy() bool {
	if s.db == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return s.db.PingContext(ctx) == nil
}

func (s *PostgresAuditSink) processQueue() {
	defer s.wg.Done()

	batch := make([]AuditEntry, 0, auditBatchSize)
	ticker := time.NewTicker(auditFlushEvery)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := s.writeBatch(batch); err != nil {
			log.Printf("audit sink: batch write failed: %v", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-s.queue:
			batch = append(batch, entry)
			if len(batch) >= auditBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.shutdownChan:
			for {
				select {
				case entry := <-s.queue:
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (s *PostgresAuditSink) writeBatch(entries []AuditEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO assistant_audit_log (
			id, timestamp, session_id, user_id, tool, tool_group,
			outcome, detail, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		_, err = stmt.Exec(
			e.ID,
			e.Timestamp,
			e.SessionID,
			e.UserID,
			e.Tool,
			e.Group,
			string(e.Outcome),
			e.Detail,
			e.Duration.Milliseconds(),
		)
		if err != nil {
			log.Printf("audit sink: insert failed for %s: %v", e.ID, err)
		}
	}

	return tx.Commit()
}

func createAuditTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS assistant_audit_log (
		id VARCHAR(255) PRIMARY KEY,
		timestamp TIMESTAMP NOT NULL,
		session_id VARCHAR(255) NOT NULL,
		user_id VARCHAR(255) NOT NULL,
		tool VARCHAR(255) NOT NULL,
		tool_group VARCHAR(255),
		outcome VARCHAR(50) NOT NULL,
		detail TEXT,
		duration_ms BIGINT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_assistant_audit_timestamp ON assistant_audit_log(timestamp);
	CREATE INDEX IF NOT EXISTS idx_assistant_audit_session ON assistant_audit_log(session_id);
	CREATE INDEX IF NOT EXISTS idx_assistant_audit_tool ON assistant_audit_log(tool);
	`
	_, err := db.Exec(query)
	return err
}
