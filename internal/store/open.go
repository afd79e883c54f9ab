package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/office-scraper/internal/db"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// Open connects to the configured store and migrates it. DriverNone returns a
// nil Store, which callers treat as diagnostics disabled.
func Open(ctx context.Context, driver, databaseURL string) (Store, error) {
	var st Store
	switch driver {
	case DriverSQLite, "":
		s, err := NewSQLite(databaseURL)
		if err != nil {
			return nil, err
		}
		st = s
	case DriverPostgres:
		s, err := NewPostgres(ctx, databaseURL, db.PoolConfig{})
		if err != nil {
			return nil, err
		}
		st = s
	case DriverNone:
		return nil, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}
