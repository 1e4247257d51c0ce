// SPDX-License-Identifier: BSD-3-Clause

package cmdfsm

import (
	"context"

	"github.com/mtce-project/mtce-agent/pkg/config"
	"github.com/mtce-project/mtce-agent/pkg/mtcerr"

	"github.com/mtce-project/mtce-agent/internal/registry"
)

// TickableResetProgression is the narrow surface internal/stage's reset
// action handler drives, exported separately from the Manager-internal
// routing path so a reset can also be launched directly by a stage handler
// rather than only via a queued command work FIFO entry.
type TickableResetProgression interface {
	Tick(ctx context.Context) (terminal bool, status mtcerr.Kind, statusString string)
	Stage() string
	Done() bool
}

// NewDirectResetProgression is NewResetProgression, re-exported under a
// name that makes clear it is meant for direct embedding by another
// package's stage handler rather than Manager-mediated dispatch.
func NewDirectResetProgression(name string, node *registry.Node, deps Deps, cfg *config.Config) (TickableResetProgression, error) {
	return NewResetProgression(name, node, deps, cfg)
}
