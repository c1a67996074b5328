package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"esp32_supervisor/internal/models"

	"github.com/google/uuid"
)

type EventSQLite struct {
	db *sql.DB
}

func NewEventSQLite(db *sql.DB) *EventSQLite { return &EventSQLite{db: db} }

const (
	insertEventSQL = `
		INSERT INTO relay_events (id, occurred_at, type, writer, value, message, meta)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	selectEventsSQL = `SELECT id, occurred_at, type, writer, value, message, meta FROM relay_events`
)

// Append inserts a new journal entry. If EventID or OccurredAt are empty, they're set.
func (r *EventSQLite) Append(ctx context.Context, e models.RelayEvent) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	} else {
		e.OccurredAt = e.OccurredAt.UTC()
	}

	var metaPtr *string
	if e.Metadata != nil {
		if b, err := json.Marshal(e.Metadata); err == nil {
			s := string(b)
			metaPtr = &s
		}
	}

	var value sql.NullBool
	if e.Value != nil {
		value = sql.NullBool{Bool: *e.Value, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, insertEventSQL,
		e.EventID,
		e.OccurredAt.Format("2006-01-02 15:04:05"),
		strings.ToUpper(strings.TrimSpace(e.Type)),
		string(e.Writer),
		value,
		e.Description,
		metaPtr,
	)
	return err
}

// List returns entries filtered by [from, to] (inclusive), type and writer, ordered ASC.
func (r *EventSQLite) List(ctx context.Context, from, to time.Time, typ, writer string) ([]models.RelayEvent, error) {
	var (
		conds []string
		args  []any
	)

	if !from.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, to.UTC())
	}
	if typ = strings.ToUpper(strings.TrimSpace(typ)); typ != "" {
		conds = append(conds, "type = ?")
		args = append(args, typ)
	}
	if writer = strings.ToLower(strings.TrimSpace(writer)); writer != "" {
		conds = append(conds, "writer = ?")
		args = append(args, writer)
	}

	q := selectEventsSQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_at ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.RelayEvent, 0, 64)
	for rows.Next() {
		var (
			ev      models.RelayEvent
			writer  string
			value   sql.NullBool
			metaStr sql.NullString
		)
		if err := rows.Scan(&ev.EventID, &ev.OccurredAt, &ev.Type, &writer, &value, &ev.Description, &metaStr); err != nil {
			return nil, err
		}
		ev.OccurredAt = ev.OccurredAt.UTC()
		ev.Writer = models.Writer(writer)
		if value.Valid {
			v := value.Bool
			ev.Value = &v
		}

		if metaStr.Valid && metaStr.String != "" {
			var v any
			if err := json.Unmarshal([]byte(metaStr.String), &v); err == nil {
				ev.Metadata = v
			} else {
				ev.Metadata = metaStr.String // keep raw if malformed
			}
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
