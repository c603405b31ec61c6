package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/alfredjeanlab/tripwire/internal/model"
)

// gateColumns is the column list used for SELECT statements on the gates table.
const gateColumns = `id, name, owner, feed, trigger_threshold, predicted_value,
	armed, armed_at, last_observed, last_observed_at,
	created_at, created_by, updated_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryCreateGate(ctx context.Context, db executor, g *model.Gate) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO gates (
			id, name, owner, feed, trigger_threshold, predicted_value,
			armed, created_at, created_by, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10
		)`,
		g.ID,
		nullString(g.Name),
		g.Owner,
		g.Feed,
		int64(g.TriggerThreshold),
		int64(g.PredictedValue),
		g.Armed,
		g.CreatedAt,
		nullString(g.CreatedBy),
		g.UpdatedAt,
	)
	return err
}

func queryGetGate(ctx context.Context, db executor, id string) (*model.Gate, error) {
	row := db.QueryRowContext(ctx, `SELECT `+gateColumns+` FROM gates WHERE id = $1`, id)
	return scanGate(row)
}

// queryGetGateForUpdate locks the row for the rest of the transaction so
// concurrent evaluations and triggers on the same gate serialize.
func queryGetGateForUpdate(ctx context.Context, db executor, id string) (*model.Gate, error) {
	row := db.QueryRowContext(ctx, `SELECT `+gateColumns+` FROM gates WHERE id = $1 FOR UPDATE`, id)
	return scanGate(row)
}

func queryListGates(ctx context.Context, db executor, filter model.GateFilter) ([]*model.Gate, int, error) {
	var (
		whereClauses []string
		args         []any
		argIdx       int
	)

	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	if filter.Owner != "" {
		whereClauses = append(whereClauses, "owner = "+nextArg())
		args = append(args, filter.Owner)
	}
	if filter.Feed != "" {
		whereClauses = append(whereClauses, "feed = "+nextArg())
		args = append(args, filter.Feed)
	}
	if filter.Armed != nil {
		whereClauses = append(whereClauses, "armed = "+nextArg())
		args = append(args, *filter.Armed)
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	// Single query with COUNT(*) OVER() to get total and rows atomically.
	dataQuery := "SELECT COUNT(*) OVER() AS total_count, " + gateColumns +
		" FROM gates" + whereSQL + " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		dataQuery += " LIMIT " + nextArg()
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		dataQuery += " OFFSET " + nextArg()
		args = append(args, filter.Offset)
	}

	rows, err := db.QueryContext(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var gates []*model.Gate
	total := 0
	for rows.Next() {
		g, t, err := scanGateWithTotal(rows)
		if err != nil {
			return nil, 0, err
		}
		total = t
		gates = append(gates, g)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return gates, total, nil
}

func querySetPredictedValue(ctx context.Context, db executor, id string, value uint64) error {
	res, err := db.ExecContext(ctx, `
		UPDATE gates
		SET predicted_value = $2, updated_at = NOW()
		WHERE id = $1`,
		id, int64(value),
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func queryRecordObservation(ctx context.Context, db executor, id string, observed uint64, at time.Time) error {
	res, err := db.ExecContext(ctx, `
		UPDATE gates
		SET last_observed = $2, last_observed_at = $3, updated_at = NOW()
		WHERE id = $1`,
		id, int64(observed), at,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// queryArmGate flips armed to true only when it is currently false, and
// reports whether the row transitioned. An already-armed gate is left
// untouched and returns false.
func queryArmGate(ctx context.Context, db executor, id string, at time.Time) (bool, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE gates
		SET armed = TRUE, armed_at = $2, updated_at = NOW()
		WHERE id = $1 AND armed = FALSE`,
		id, at,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// queryDisarmGate clears armed only when it is currently set, and reports
// whether the flag was consumed.
func queryDisarmGate(ctx context.Context, db executor, id string) (bool, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE gates
		SET armed = FALSE, armed_at = NULL, updated_at = NOW()
		WHERE id = $1 AND armed = TRUE`,
		id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func queryRecordEvent(ctx context.Context, db executor, e *model.Event) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO events (topic, gate_id, actor, payload, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at`,
		e.Topic,
		e.GateID,
		nullString(e.Actor),
		jsonbBytes(e.Payload),
	).Scan(&e.ID, &e.CreatedAt)
}

func queryGetEvents(ctx context.Context, db executor, gateID string) ([]*model.Event, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, topic, gate_id, actor, payload, created_at
		FROM events
		WHERE gate_id = $1
		ORDER BY id`,
		gateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// requireRow converts a zero-row UPDATE into sql.ErrNoRows so callers can
// distinguish "gate not found" from success.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
