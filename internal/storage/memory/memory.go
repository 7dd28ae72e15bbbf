package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/envrelay/envrelay/internal/log"
	"github.com/envrelay/envrelay/internal/model"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of storage.Repository.
type Repository struct {
	executions map[string]model.Execution
	mu         sync.RWMutex
	logger     log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		executions: make(map[string]model.Execution),
		logger:     cfg.Logger,
	}, nil
}

// CreateExecution stores a new execution record.
func (r *Repository) CreateExecution(ctx context.Context, e model.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.executions[e.ID]; ok {
		return fmt.Errorf("execution %s: %w", e.ID, model.ErrNotValid)
	}

	r.executions[e.ID] = e
	r.logger.Debugf("Created execution in repository: %s", e.ID)

	return nil
}

// GetExecution retrieves an execution by ID.
func (r *Repository) GetExecution(ctx context.Context, id string) (*model.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.executions[id]
	if !ok {
		return nil, fmt.Errorf("execution %s: %w", id, model.ErrNotFound)
	}

	// Return a copy.
	eCopy := e
	return &eCopy, nil
}

// UpdateExecution updates an existing execution record.
func (r *Repository) UpdateExecution(ctx context.Context, e model.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.executions[e.ID]; !ok {
		return fmt.Errorf("execution %s: %w", e.ID, model.ErrNotFound)
	}

	r.executions[e.ID] = e
	return nil
}

// ListExecutions returns all executions, newest first.
func (r *Repository) ListExecutions(ctx context.Context) ([]model.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	executions := make([]model.Execution, 0, len(r.executions))
	for _, e := range r.executions {
		executions = append(executions, e)
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	return executions, nil
}
