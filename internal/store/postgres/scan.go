package postgres

import (
	"database/sql"
	"encoding/json"

	"github.com/alfredjeanlab/tripwire/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanGate scans a single row into a model.Gate.
// The row must contain columns in the order defined by gateColumns.
func scanGate(row scannable) (*model.Gate, error) {
	var g model.Gate
	var (
		name           sql.NullString
		threshold      int64
		predicted      int64
		armedAt        sql.NullTime
		lastObserved   sql.NullInt64
		lastObservedAt sql.NullTime
		createdBy      sql.NullString
	)

	err := row.Scan(
		&g.ID,
		&name,
		&g.Owner,
		&g.Feed,
		&threshold,
		&predicted,
		&g.Armed,
		&armedAt,
		&lastObserved,
		&lastObservedAt,
		&g.CreatedAt,
		&createdBy,
		&g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	g.Name = name.String
	g.CreatedBy = createdBy.String
	g.TriggerThreshold = uint64(threshold)
	g.PredictedValue = uint64(predicted)

	if armedAt.Valid {
		t := armedAt.Time
		g.ArmedAt = &t
	}
	if lastObserved.Valid {
		v := uint64(lastObserved.Int64)
		g.LastObserved = &v
	}
	if lastObservedAt.Valid {
		t := lastObservedAt.Time
		g.LastObservedAt = &t
	}

	return &g, nil
}

// scanGateWithTotal scans a row that has a leading total_count column
// followed by the standard gate columns. Used by queryListGates with
// COUNT(*) OVER().
func scanGateWithTotal(row scannable) (*model.Gate, int, error) {
	var total int
	var g model.Gate
	var (
		name           sql.NullString
		threshold      int64
		predicted      int64
		armedAt        sql.NullTime
		lastObserved   sql.NullInt64
		lastObservedAt sql.NullTime
		createdBy      sql.NullString
	)

	err := row.Scan(
		&total,
		&g.ID,
		&name,
		&g.Owner,
		&g.Feed,
		&threshold,
		&predicted,
		&g.Armed,
		&armedAt,
		&lastObserved,
		&lastObservedAt,
		&g.CreatedAt,
		&createdBy,
		&g.UpdatedAt,
	)
	if err != nil {
		return nil, 0, err
	}

	g.Name = name.String
	g.CreatedBy = createdBy.String
	g.TriggerThreshold = uint64(threshold)
	g.PredictedValue = uint64(predicted)

	if armedAt.Valid {
		t := armedAt.Time
		g.ArmedAt = &t
	}
	if lastObserved.Valid {
		v := uint64(lastObserved.Int64)
		g.LastObserved = &v
	}
	if lastObservedAt.Valid {
		t := lastObservedAt.Time
		g.LastObservedAt = &t
	}

	return &g, total, nil
}

// scanEvent scans a single row into a model.Event.
func scanEvent(row scannable) (*model.Event, error) {
	var e model.Event
	var (
		actor   sql.NullString
		payload []byte
	)
	err := row.Scan(&e.ID, &e.Topic, &e.GateID, &actor, &payload, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Actor = actor.String
	if len(payload) > 0 {
		e.Payload = json.RawMessage(payload)
	}
	return &e, nil
}

// scanEvents scans multiple rows into a slice of model.Event pointers.
func scanEvents(rows *sql.Rows) ([]*model.Event, error) {
	var events []*model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// jsonbBytes converts json.RawMessage to a []byte suitable for JSONB columns.
func jsonbBytes(m json.RawMessage) []byte {
	if len(m) == 0 {
		return nil
	}
	return []byte(m)
}
