package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/office-scraper/internal/model"
)

// scannable is satisfied by *sql.Row, *sql.Rows, pgx.Row and pgx.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var (
		r          model.Run
		kind       string
		status     string
		stats      string
		finishedAt sql.NullTime
	)
	if err := row.Scan(&r.ID, &kind, &r.Input, &r.Output, &status, &stats, &r.Error, &r.StartedAt, &finishedAt); err != nil {
		return nil, err
	}
	r.Kind = model.RunKind(kind)
	r.Status = model.RunStatus(status)
	if stats != "" {
		if err := json.Unmarshal([]byte(stats), &r.Stats); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal stats")
		}
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		r.FinishedAt = &t
	}
	return &r, nil
}

func scanRowOutcome(row scannable) (model.RowOutcome, error) {
	var (
		o          model.RowOutcome
		state      string
		recordedAt time.Time
	)
	if err := row.Scan(&o.RunID, &o.RowIndex, &o.URL, &state, &o.FieldCount, &o.Error, &o.ErrorType, &recordedAt); err != nil {
		return o, err
	}
	o.State = model.RowState(state)
	o.RecordedAt = recordedAt
	return o, nil
}
