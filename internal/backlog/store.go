// Package backlog implements the durable, deduplicated reindex queue and the
// batch runner that drains it.
package backlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Item statuses.
const (
	StatusPending   = 0
	StatusProcessed = 1
)

// queueSchema creates the queue table. The unique key makes enqueue
// insert-or-ignore: re-enqueuing a pending item is a no-op.
const queueSchema = `
CREATE TABLE IF NOT EXISTS reindex_queue (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	plugin_id TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	status INTEGER NOT NULL DEFAULT 0,
	error INTEGER NOT NULL DEFAULT 0,
	created INTEGER NOT NULL,
	UNIQUE(plugin_id, entity_type, entity_id)
);
CREATE INDEX IF NOT EXISTS reindex_queue_drain ON reindex_queue(plugin_id, status);
`

// Item is one unit of pending reindex work.
type Item struct {
	ID         int64
	PluginID   string
	EntityType string
	EntityID   string
	Status     int
	Error      bool
	Created    time.Time
}

// Status summarizes a plugin's backlog.
type Status struct {
	Total     int
	Processed int
	Errors    int
}

// Store persists queue items in sqlite.
type Store struct {
	db *sql.DB
}

// NewStore creates the queue table if needed.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(queueSchema); err != nil {
		return nil, fmt.Errorf("create queue schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Enqueue inserts a queue item, ignoring duplicates of the unique key.
func (s *Store) Enqueue(ctx context.Context, pluginID, entityType, entityID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO reindex_queue (plugin_id, entity_type, entity_id, created) VALUES (?, ?, ?, ?)`,
		pluginID, entityType, entityID, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("enqueue %s/%s for %q: %w", entityType, entityID, pluginID, err)
	}
	return nil
}

// Drain returns every pending item for a plugin in enqueue order.
func (s *Store) Drain(ctx context.Context, pluginID string) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, plugin_id, entity_type, entity_id, status, error, created
		 FROM reindex_queue WHERE plugin_id = ? AND status = ? ORDER BY created, id`,
		pluginID, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("drain %q: %w", pluginID, err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var errFlag int
		var created int64
		if err := rows.Scan(&it.ID, &it.PluginID, &it.EntityType, &it.EntityID, &it.Status, &errFlag, &created); err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		it.Error = errFlag != 0
		it.Created = time.Unix(created, 0)
		items = append(items, it)
	}
	return items, rows.Err()
}

// MarkProcessed marks an item done and clears its error flag. The transition
// is terminal and repeatable, so concurrent workers may race on it safely.
func (s *Store) MarkProcessed(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE reindex_queue SET status = ?, error = 0 WHERE id = ?`, StatusProcessed, id)
	if err != nil {
		return fmt.Errorf("mark item %d processed: %w", id, err)
	}
	return nil
}

// MarkFailed records a failure on an item, leaving it out of future drains.
func (s *Store) MarkFailed(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE reindex_queue SET status = ?, error = 1 WHERE id = ?`, StatusProcessed, id)
	if err != nil {
		return fmt.Errorf("mark item %d failed: %w", id, err)
	}
	return nil
}

// QueueStatus reports total, processed and errored counts for a plugin.
func (s *Store) QueueStatus(ctx context.Context, pluginID string) (Status, error) {
	var st Status
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN status = ? AND error = 0 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(error), 0)
		 FROM reindex_queue WHERE plugin_id = ?`,
		StatusProcessed, pluginID).Scan(&st.Total, &st.Processed, &st.Errors)
	if err != nil {
		return Status{}, fmt.Errorf("queue status for %q: %w", pluginID, err)
	}
	return st, nil
}

// Clear deletes every queue item for a plugin and returns how many.
func (s *Store) Clear(ctx context.Context, pluginID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reindex_queue WHERE plugin_id = ?`, pluginID)
	if err != nil {
		return 0, fmt.Errorf("clear queue for %q: %w", pluginID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
