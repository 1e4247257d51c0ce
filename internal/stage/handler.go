// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"context"

	"github.com/mtce-project/mtce-agent/pkg/mtcerr"

	"github.com/mtce-project/mtce-agent/internal/registry"
)

// Handler is one running stage machine for a node. Tick advances it by at
// most one step and reports whether it has reached a terminal outcome.
type Handler interface {
	Kind() registry.StageKind
	Tick(ctx context.Context) (terminal bool, status mtcerr.Kind, detail string)
}

// Factory builds a Handler for node given its current admin action. Kept
// as a function type so Manager can be unit-tested against fakes without
// constructing every concrete handler's real dependencies.
type Factory func(node *registry.Node, deps Deps, opts Options) (Handler, error)
