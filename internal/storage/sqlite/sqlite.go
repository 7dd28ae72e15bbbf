package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/envrelay/envrelay/internal/log"
	"github.com/envrelay/envrelay/internal/model"
	"github.com/envrelay/envrelay/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.Repository.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

// NewRepository creates a new SQLite repository and runs pending migrations.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(db, cfg.Logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// CreateExecution stores a new execution record.
func (r *Repository) CreateExecution(ctx context.Context, e model.Execution) error {
	args, err := json.Marshal(e.Args)
	if err != nil {
		return fmt.Errorf("could not encode args: %w", err)
	}

	var finishedAt *int64
	if e.FinishedAt != nil {
		ts := e.FinishedAt.Unix()
		finishedAt = &ts
	}

	query := `
		INSERT INTO executions (id, command, args, client_id, status, exit_code, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		e.ID, e.Command, string(args), e.ClientID, e.Status, e.ExitCode, e.Error, e.StartedAt.Unix(), finishedAt)
	if err != nil {
		return fmt.Errorf("could not insert execution: %w", err)
	}

	r.logger.Debugf("Created execution in repository: %s", e.ID)
	return nil
}

// GetExecution retrieves an execution by ID.
func (r *Repository) GetExecution(ctx context.Context, id string) (*model.Execution, error) {
	query := `
		SELECT id, command, args, client_id, status, exit_code, error, started_at, finished_at
		FROM executions WHERE id = ?
	`
	row := r.db.QueryRowContext(ctx, query, id)

	e, err := scanExecution(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("execution %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("could not get execution: %w", err)
	}

	return e, nil
}

// UpdateExecution updates an existing execution record.
func (r *Repository) UpdateExecution(ctx context.Context, e model.Execution) error {
	var finishedAt *int64
	if e.FinishedAt != nil {
		ts := e.FinishedAt.Unix()
		finishedAt = &ts
	}

	query := `
		UPDATE executions SET status = ?, exit_code = ?, error = ?, finished_at = ?
		WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, query, e.Status, e.ExitCode, e.Error, finishedAt, e.ID)
	if err != nil {
		return fmt.Errorf("could not update execution: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("execution %s: %w", e.ID, model.ErrNotFound)
	}

	return nil
}

// ListExecutions returns all executions, newest first.
func (r *Repository) ListExecutions(ctx context.Context) ([]model.Execution, error) {
	query := `
		SELECT id, command, args, client_id, status, exit_code, error, started_at, finished_at
		FROM executions ORDER BY started_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("could not list executions: %w", err)
	}
	defer rows.Close()

	var executions []model.Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan execution: %w", err)
		}
		executions = append(executions, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate executions: %w", err)
	}

	return executions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExecution(row rowScanner) (*model.Execution, error) {
	var (
		e          model.Execution
		args       string
		startedAt  int64
		finishedAt *int64
	)

	err := row.Scan(&e.ID, &e.Command, &args, &e.ClientID, &e.Status, &e.ExitCode, &e.Error, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(args), &e.Args); err != nil {
		return nil, fmt.Errorf("could not decode args: %w", err)
	}

	e.StartedAt = time.Unix(startedAt, 0).UTC()
	if finishedAt != nil {
		ts := time.Unix(*finishedAt, 0).UTC()
		e.FinishedAt = &ts
	}

	return &e, nil
}
