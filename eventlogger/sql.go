package eventlogger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
)

type sqlEventLogger struct {
	db *sql.DB
}

func NewSqlEventLogger(db *sql.DB) *sqlEventLogger {
	return &sqlEventLogger{
		db: db,
	}
}

func (el *sqlEventLogger) Save(ctx context.Context, e Event) error {
	jsonData, err := json.Marshal(e.Data)
	if err != nil {
		return err
	}
	jsonMetadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return err
	}
	statement := `INSERT INTO events (id, event_type, event_data, event_metadata, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err = el.db.ExecContext(ctx, statement, e.ID, e.Type, jsonData, jsonMetadata, e.CreatedAt)
	if err != nil {
		return err
	}

	return nil
}

// GetByType returns the stored events of eventType, oldest first. Data is
// left as raw JSON.
func (el *sqlEventLogger) GetByType(ctx context.Context, eventType string) ([]Event, error) {
	query := `SELECT id, event_type, event_data, event_metadata, created_at FROM events WHERE event_type = $1 ORDER BY created_at ASC`
	return el.query(ctx, query, eventType)
}

// GetByLedger returns the stored events of the given types whose data
// carries ledgerID, oldest first.
func (el *sqlEventLogger) GetByLedger(ctx context.Context, ledgerID string, types ...string) ([]Event, error) {
	query := `SELECT id, event_type, event_data, event_metadata, created_at FROM events
		WHERE event_data->>'ledger_id' = $1 AND event_type = ANY($2)
		ORDER BY created_at ASC`
	return el.query(ctx, query, ledgerID, pq.Array(types))
}

func (el *sqlEventLogger) query(ctx context.Context, query string, args ...any) ([]Event, error) {
	result, err := el.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	events := make([]Event, 0)
	for result.Next() {
		var event Event
		var jsonData, jsonMetadata []byte
		if err := result.Scan(&event.ID, &event.Type, &jsonData, &jsonMetadata, &event.CreatedAt); err != nil {
			return events, err
		}
		event.Data = json.RawMessage(jsonData)

		var metadata map[string]string
		if err := json.Unmarshal(jsonMetadata, &metadata); err != nil {
			return events, fmt.Errorf("decoding metadata of event %s: %w", event.ID, err)
		}
		event.Metadata = metadata

		events = append(events, event)
	}

	if err := result.Err(); err != nil {
		return events, err
	}

	return events, nil
}
