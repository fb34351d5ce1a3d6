package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	txcontext "charter/pkg/platform/tx"
)

// PostgresStore implements Store using the transactional outbox pattern.
// Events are written to the outbox table in the same transaction as the
// domain mutation; the worker drains them to Kafka afterwards.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// payload is the JSON structure stored in the outbox and published to Kafka.
type payload struct {
	Category  string `json:"category"`
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
	ActorID   string `json:"actor_id,omitempty"`
	Subject   string `json:"subject"`
	RegionID  string `json:"region_id,omitempty"`
	Decision  string `json:"decision,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Device    string `json:"device,omitempty"`
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	body, err := json.Marshal(payload{
		Category:  string(event.Action.Category()),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Action:    string(event.Action),
		ActorID:   event.ActorID,
		Subject:   event.Subject,
		RegionID:  event.RegionID,
		Decision:  event.Decision,
		Reason:    event.Reason,
		RequestID: event.RequestID,
		Device:    event.Device,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	_, err = s.execer(ctx).ExecContext(ctx,
		`INSERT INTO audit_outbox (action, payload, created_at) VALUES ($1, $2, $3)`,
		string(event.Action), body, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) NextBatch(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, action, payload, created_at
		 FROM audit_outbox
		 WHERE published_at IS NULL
		 ORDER BY seq
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch audit outbox: %w", err)
	}
	defer rows.Close()

	var batch []Entry
	for rows.Next() {
		var (
			entry Entry
			body  []byte
			p     payload
		)
		if err := rows.Scan(&entry.Seq, &entry.Event.Action, &body, &entry.Event.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit outbox row: %w", err)
		}
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("unmarshal audit payload: %w", err)
		}
		entry.Event.ActorID = p.ActorID
		entry.Event.Subject = p.Subject
		entry.Event.RegionID = p.RegionID
		entry.Event.Decision = p.Decision
		entry.Event.Reason = p.Reason
		entry.Event.RequestID = p.RequestID
		entry.Event.Device = p.Device
		batch = append(batch, entry)
	}
	return batch, rows.Err()
}

func (s *PostgresStore) MarkPublished(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE audit_outbox SET published_at = now() WHERE seq = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("mark audit events published: %w", err)
	}
	return nil
}
