// Copyright 2025 MCP Compiler Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/asertorio/mcp-compiler/pkg/core"
)

// DefaultAutosaveDelay is how long the container waits after the last change
// before saving.
const DefaultAutosaveDelay = 2 * time.Second

// Saver persists a project snapshot.
type Saver interface {
	Save(ctx context.Context, p *core.Project) error
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, p *core.Project) error

// Save calls f.
func (f SaverFunc) Save(ctx context.Context, p *core.Project) error { return f(ctx, p) }

// Option configures a Container.
type Option func(*Container)

// WithAutosave saves the project delay after the last change. A zero delay
// saves only on Flush.
func WithAutosave(s Saver, delay time.Duration) Option {
	return func(c *Container) {
		c.saver = s
		c.delay = delay
	}
}

// Container is the single slot that holds the current project. Actions are
// applied one at a time; subscribers see every committed snapshot.
type Container struct {
	mu      sync.Mutex
	project *core.Project
	dirty   bool
	nextSub int
	subs    map[int]func(*core.Project)

	// saveMu serializes saves so an older snapshot never lands after a newer one.
	saveMu sync.Mutex
	saver  Saver
	delay  time.Duration
	timer  *time.Timer

	logger *zap.Logger
}

// NewContainer creates an empty container.
func NewContainer(logger *zap.Logger, opts ...Option) *Container {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Container{
		subs:   make(map[int]func(*core.Project)),
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Project returns the current snapshot, or nil before one is loaded.
func (c *Container) Project() *core.Project {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.project
}

// Load replaces the current project without marking it changed.
func (c *Container) Load(p *core.Project) {
	c.mu.Lock()
	c.project = p
	c.dirty = false
	c.stopTimerLocked()
	subs := c.subscribersLocked()
	c.mu.Unlock()
	notify(subs, p)
}

// Dispatch applies an action to the current project. It does nothing when no
// project is loaded.
func (c *Container) Dispatch(action func(*core.Project) *core.Project) *core.Project {
	p, _ := c.DispatchErr(func(p *core.Project) (*core.Project, error) {
		return action(p), nil
	})
	return p
}

// DispatchErr applies an action that may fail. On error nothing is committed.
func (c *Container) DispatchErr(action func(*core.Project) (*core.Project, error)) (*core.Project, error) {
	c.mu.Lock()
	if c.project == nil {
		c.mu.Unlock()
		return nil, nil
	}
	next, err := action(c.project)
	if err != nil {
		current := c.project
		c.mu.Unlock()
		return current, err
	}
	c.project = next
	c.dirty = true
	c.scheduleLocked()
	subs := c.subscribersLocked()
	c.mu.Unlock()

	notify(subs, next)
	return next, nil
}

// Subscribe registers fn for every committed snapshot and returns a function
// that removes it.
func (c *Container) Subscribe(fn func(*core.Project)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Dirty reports whether there are changes that have not been saved.
func (c *Container) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Flush saves pending changes now. Concurrent flushes run one at a time, each
// saving the snapshot current when it starts writing.
func (c *Container) Flush(ctx context.Context) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	c.stopTimerLocked()
	if !c.dirty || c.saver == nil || c.project == nil {
		c.mu.Unlock()
		return nil
	}
	p := c.project
	c.mu.Unlock()

	if err := c.saver.Save(ctx, p); err != nil {
		return err
	}

	c.mu.Lock()
	if c.project == p {
		c.dirty = false
	}
	c.mu.Unlock()
	return nil
}

// Close stops a pending autosave without running it.
func (c *Container) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
}

func (c *Container) scheduleLocked() {
	if c.saver == nil || c.delay <= 0 {
		return
	}
	c.stopTimerLocked()
	c.timer = time.AfterFunc(c.delay, func() {
		if err := c.Flush(context.Background()); err != nil {
			c.logger.Warn("Autosave failed", zap.Error(err))
			return
		}
		c.logger.Debug("Project autosaved")
	})
}

func (c *Container) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Container) subscribersLocked() []func(*core.Project) {
	subs := make([]func(*core.Project), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func(*core.Project), p *core.Project) {
	for _, fn := range subs {
		fn(p)
	}
}
