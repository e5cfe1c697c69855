// Package history keeps every reported position in a sqlite database so the
// store can answer point in time queries.
package history

import (
	"aprsd/internal/models"
	"aprsd/internal/providers"
	"aprsd/internal/stationdb/interfaces"
	"aprsd/internal/structures"
	"database/sql"
	"errors"
	"fmt"
	json "github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"
	_ "github.com/mattn/go-sqlite3"
	"time"
)

const schema = `
CREATE TABLE IF NOT EXISTS points (
	id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
	ident TEXT NOT NULL,
	time INTEGER NOT NULL,
	record TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS points_ident_time ON points (ident, time);
`

type DB struct {
	db       *sql.DB
	insert   *sql.Stmt
	at       *sql.Stmt
	logger   providers.Logger
	trailLen int
}

func Open(path string, trailLen int, logger providers.Logger) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	// sqlite allows one writer.
	db.SetMaxOpenConns(1)

	h := &DB{db: db, logger: logger, trailLen: trailLen}
	if err := h.init(); err != nil {
		return nil, multierror.Append(fmt.Errorf("init history %s: %w", path, err), h.Close())
	}
	return h, nil
}

func (h *DB) init() (err error) {
	if _, err = h.db.Exec(schema); err != nil {
		return err
	}
	if h.insert, err = h.db.Prepare(`INSERT INTO points (ident, time, record) VALUES (?, ?, ?)`); err != nil {
		return err
	}
	h.at, err = h.db.Prepare(`SELECT record FROM points WHERE ident = ? AND time <= ? ORDER BY time DESC, id DESC LIMIT 1`)
	return err
}

// Record stores the current state of p under its last update time.
func (h *DB) Record(p models.AprsPoint) error {
	rec := p.Snapshot()
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = h.insert.Exec(rec.Ident, rec.Updated.UnixNano(), string(data))
	return err
}

// ItemAt returns the state of id as it was at t, or nil if nothing was
// recorded for it before t.
func (h *DB) ItemAt(id string, t time.Time) (models.AprsPoint, error) {
	var data string
	err := h.at.QueryRow(id, t.UnixNano()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec models.PointRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("history record of %s: %w", id, err)
	}
	p, ok := models.PointFromRecord(rec, h.trailLen)
	if !ok {
		return nil, fmt.Errorf("history record of %s has unknown kind %q", id, rec.Kind)
	}
	return p, nil
}

// Prune deletes records older than before and returns how many went.
func (h *DB) Prune(before time.Time) (int64, error) {
	res, err := h.db.Exec(`DELETE FROM points WHERE time < ?`, before.UnixNano())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err == nil && n > 0 {
		h.logger.Infof(providers.TypeStore, "Pruned %d history records", n)
	}
	return n, err
}

func (h *DB) Close() error {
	var result *multierror.Error
	for _, stmt := range []*sql.Stmt{h.insert, h.at} {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	if err := h.db.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// NewHistory opens the history database when enabled in conf. It returns a
// nil DB otherwise.
func NewHistory(conf *structures.Config, logger providers.Logger) (*DB, error) {
	if !conf.History.Enabled {
		return nil, nil
	}
	return Open(conf.History.Path, conf.Stations.TrailLength, logger)
}

// AsHistory converts a possibly nil DB into the store collaborator.
func AsHistory(db *DB) interfaces.HistoryInterface {
	if db == nil {
		return nil
	}
	return db
}
