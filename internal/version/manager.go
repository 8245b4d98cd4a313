// Package version maintains the index version counter and performs
// zero-downtime alias swaps between versioned physical indices.
package version

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/indexsync/indexsync/internal/engine"
	"github.com/indexsync/indexsync/internal/executor"
)

// VersionPrefix is the suffix template for versioned physical index names:
// <baseName>_version_<N>.
const VersionPrefix = "_version_"

// currentVersionKey is the configuration row holding the counter.
const currentVersionKey = "current_version"

// ErrDestinationMissing is returned by UpdateAlias when the destination
// physical index does not exist; the alias is left untouched.
var ErrDestinationMissing = errors.New("destination index does not exist")

// configSchema holds single-row configuration values.
const configSchema = `
CREATE TABLE IF NOT EXISTS config (
	name TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Manager reads and advances the version counter and repoints aliases.
// The counter is single-writer: concurrent increments must be serialized by
// the caller.
type Manager struct {
	db     *sql.DB
	exec   *executor.Executor
	logger *slog.Logger
}

// NewManager creates the config table if needed.
func NewManager(db *sql.DB, exec *executor.Executor, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := db.Exec(configSchema); err != nil {
		return nil, fmt.Errorf("create config schema: %w", err)
	}
	return &Manager{db: db, exec: exec, logger: logger}, nil
}

// CurrentVersion returns the version suffix ("_version_<N>"), empty if the
// counter was never set.
func (m *Manager) CurrentVersion(ctx context.Context) (string, error) {
	n, err := m.counter(ctx)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	return VersionPrefix + strconv.Itoa(n), nil
}

// IncrementVersion advances the counter and returns the new suffix. This is
// a deliberate operator action after a rebuild is verified complete; nothing
// increments automatically.
func (m *Manager) IncrementVersion(ctx context.Context) (string, error) {
	n, err := m.counter(ctx)
	if err != nil {
		return "", err
	}
	n++
	_, err = m.db.ExecContext(ctx,
		`INSERT INTO config (name, value) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
		currentVersionKey, strconv.Itoa(n))
	if err != nil {
		return "", fmt.Errorf("store version counter: %w", err)
	}
	return VersionPrefix + strconv.Itoa(n), nil
}

func (m *Manager) counter(ctx context.Context) (int, error) {
	var value string
	err := m.db.QueryRowContext(ctx,
		`SELECT value FROM config WHERE name = ?`, currentVersionKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read version counter: %w", err)
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parse version counter %q: %w", value, err)
	}
	return n, nil
}

// UpdateAlias repoints the alias indexBaseName at the physical index
// indexBaseName+version. Order of operations:
//
//  1. verify the destination exists, otherwise fail without touching the
//     alias;
//  2. remove the alias's current binding if one exists;
//  3. delete a concrete index literally named like the alias (pre-alias
//     legacy state) — the alias cannot coexist with a same-named index;
//  4. add the new binding with the engine's single atomic alias update.
//
// Step 3 opens a window where readers of a legacy deployment observe the
// name absent; it occurs at most once per migration, since afterwards only
// versioned indices are ever created under the base name.
func (m *Manager) UpdateAlias(ctx context.Context, indexBaseName, version string) error {
	if version == "" {
		return fmt.Errorf("update alias %q: empty version", indexBaseName)
	}
	destination := indexBaseName + version

	exists, err := m.exec.IndexExists(ctx, destination)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("update alias %q -> %q: %w", indexBaseName, destination, ErrDestinationMissing)
	}

	eng := m.exec.Engine()

	aliasExists, err := eng.AliasExists(ctx, indexBaseName)
	if err != nil {
		return err
	}
	if aliasExists {
		target, err := eng.GetAlias(ctx, indexBaseName)
		if err != nil {
			return err
		}
		if target == destination {
			return nil
		}
		if err := eng.DeleteAlias(ctx, indexBaseName, target); err != nil && !engine.IsNotFound(err) {
			return err
		}
	}

	concrete, err := m.exec.IndexExists(ctx, indexBaseName)
	if err != nil {
		return err
	}
	if concrete {
		m.logger.Warn("deleting concrete index occupying the alias name", "index", indexBaseName)
		if _, err := eng.DeleteIndex(ctx, indexBaseName); err != nil {
			return err
		}
	}

	err = eng.UpdateAliases(ctx, []engine.AliasAction{
		{Add: &engine.AliasBinding{Alias: indexBaseName, Index: destination}},
	})
	if err != nil {
		return fmt.Errorf("bind alias %q -> %q: %w", indexBaseName, destination, err)
	}
	m.logger.Info("alias updated", "alias", indexBaseName, "index", destination)
	return nil
}
