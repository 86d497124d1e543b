package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// CommitHook observes the event batch of a top-level operation. Pre-commit
// hooks run inside the operation and may read contract state through ctx;
// state they change is kept but never published.
type CommitHook interface {
	Name() string
	OnCommit(ctx context.Context, batch EventBatch) error
}

// CommitHookFunc adapts a function to CommitHook.
type CommitHookFunc struct {
	HookName string
	Fn       func(ctx context.Context, batch EventBatch) error
}

func (h CommitHookFunc) Name() string { return h.HookName }

func (h CommitHookFunc) OnCommit(ctx context.Context, batch EventBatch) error {
	if h.Fn == nil {
		return nil
	}
	return h.Fn(ctx, batch)
}

// CommitHookCoordinator runs hooks around the commit of an operation.
// Pre-commit hooks run while sinks are staged: the first failure rolls the
// operation back and discards every staged batch. Post-commit hooks run once the runtime lock is released;
// their failures are logged and never undo the operation.
type CommitHookCoordinator struct {
	mu         sync.RWMutex
	preCommit  []CommitHook
	postCommit []CommitHook
}

func NewCommitHookCoordinator() *CommitHookCoordinator {
	return &CommitHookCoordinator{
		preCommit:  make([]CommitHook, 0),
		postCommit: make([]CommitHook, 0),
	}
}

func (c *CommitHookCoordinator) RegisterPreCommit(hook CommitHook) {
	if c == nil || hook == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.preCommit = append(c.preCommit, hook)
}

func (c *CommitHookCoordinator) RegisterPostCommit(hook CommitHook) {
	if c == nil || hook == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.postCommit = append(c.postCommit, hook)
}

// Stage runs the pre-commit hooks before any sink commits the batch.
func (c *CommitHookCoordinator) Stage(ctx context.Context, batch EventBatch) (StagedBatch, error) {
	if err := c.Publish(ctx, batch); err != nil {
		return nil, err
	}
	return nil, nil
}

// Publish runs the pre-commit hooks in registration order and stops at the
// first failure.
func (c *CommitHookCoordinator) Publish(ctx context.Context, batch EventBatch) error {
	for _, hook := range c.hooks(true) {
		if err := hook.OnCommit(ctx, batch); err != nil {
			return fmt.Errorf("core: pre-commit hook %q failed: %w", hookName(hook), err)
		}
	}
	return nil
}

// ExecutePostCommit runs every post-commit hook and joins their failures.
func (c *CommitHookCoordinator) ExecutePostCommit(ctx context.Context, batch EventBatch) error {
	var hookErr error
	for _, hook := range c.hooks(false) {
		if err := hook.OnCommit(ctx, batch); err != nil {
			hookErr = errors.Join(hookErr, fmt.Errorf("post-commit hook %q failed: %w", hookName(hook), err))
		}
	}
	return hookErr
}

func (c *CommitHookCoordinator) hooks(pre bool) []CommitHook {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	source := c.postCommit
	if pre {
		source = c.preCommit
	}
	out := make([]CommitHook, len(source))
	copy(out, source)
	return out
}

func hookName(hook CommitHook) string {
	name := strings.TrimSpace(hook.Name())
	if name == "" {
		return "unnamed"
	}
	return name
}
