package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sumanths012/SymptoSense/constants"
	"github.com/sumanths012/SymptoSense/internal/common"
)

// SynonymRepository stores the label synonym catalog: one row per (category, label).
type SynonymRepository interface {
	Migrate(ctx context.Context) error
	ListAll(ctx context.Context) (map[constants.Category][]string, error)
	Replace(ctx context.Context, catalog map[constants.Category][]string) error
	Count(ctx context.Context) (int, error)
}

type synonymRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewSynonymRepository(db *DB, logger *slog.Logger) SynonymRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &synonymRepository{db: db, logger: logger}
}

type synonymRow struct {
	Category string `db:"category"`
	Label    string `db:"label"`
	Position int    `db:"position"`
}

const createSynonymTable = `CREATE TABLE IF NOT EXISTS label_synonym (
	category TEXT NOT NULL,
	label    TEXT NOT NULL,
	position INTEGER NOT NULL,
	PRIMARY KEY (category, label)
)`

func (r *synonymRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createSynonymTable); err != nil {
		r.logger.Error("failed to migrate label_synonym", "error", err)
		return common.NewAppError("DB_MIGRATE", "create label_synonym", fmt.Errorf("%w: %v", common.ErrDatabase, err))
	}
	return nil
}

// ListAll returns every category with its labels in stored order.
func (r *synonymRepository) ListAll(ctx context.Context) (map[constants.Category][]string, error) {
	var rows []synonymRow
	q := `SELECT category, label, position FROM label_synonym ORDER BY category, position, label`
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		r.logger.Error("failed to list synonyms", "error", err)
		return nil, common.NewAppError("DB_QUERY", "list synonyms", fmt.Errorf("%w: %v", common.ErrDatabase, err))
	}
	out := make(map[constants.Category][]string)
	for _, row := range rows {
		cat := constants.Category(row.Category)
		out[cat] = append(out[cat], row.Label)
	}
	r.logger.Debug("synonyms listed", "categories", len(out), "rows", len(rows))
	return out, nil
}

// Replace swaps the whole catalog in one transaction.
func (r *synonymRepository) Replace(ctx context.Context, catalog map[constants.Category][]string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return common.NewAppError("DB_TX", "begin", fmt.Errorf("%w: %v", common.ErrDatabase, err))
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Warn("rollback failed", "error", rbErr)
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM label_synonym`); err != nil {
		return common.NewAppError("DB_EXEC", "clear synonyms", fmt.Errorf("%w: %v", common.ErrDatabase, err))
	}
	insert := tx.Rebind(`INSERT INTO label_synonym (category, label, position) VALUES (?, ?, ?)`)
	rows := 0
	for cat, labels := range catalog {
		for i, label := range labels {
			if _, err = tx.ExecContext(ctx, insert, string(cat), label, i); err != nil {
				return common.NewAppError("DB_EXEC", "insert synonym", fmt.Errorf("%w: %v", common.ErrDatabase, err))
			}
			rows++
		}
	}
	if err = tx.Commit(); err != nil {
		return common.NewAppError("DB_TX", "commit", fmt.Errorf("%w: %v", common.ErrDatabase, err))
	}
	r.logger.Info("synonym catalog replaced", "categories", len(catalog), "rows", rows)
	return nil
}

func (r *synonymRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM label_synonym`); err != nil {
		return 0, common.NewAppError("DB_QUERY", "count synonyms", fmt.Errorf("%w: %v", common.ErrDatabase, err))
	}
	return n, nil
}
