// Package services contains server-side business logic: credentials and
// tokens, search and image orchestration, history, the dashboard and the
// admin read side. Services translate repository and provider failures into
// the sentinel errors of package common.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/aiexplorer/internal/common"
	"github.com/dmitrijs2005/aiexplorer/internal/dbx"
	"github.com/dmitrijs2005/aiexplorer/internal/logging"
	"github.com/dmitrijs2005/aiexplorer/internal/server/models"
	"github.com/dmitrijs2005/aiexplorer/internal/server/repositories/repomanager"
)

// Caller is the authenticated principal of a request.
type Caller struct {
	UserID string
	Role   string
}

func (c Caller) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

// persistence is the database handle shared by all services.
type persistence struct {
	db             *sql.DB
	repomanager    repomanager.RepositoryManager
	acquireTimeout time.Duration
	log            logging.Logger
}

// bounded limits how long a persistence call may wait on the pool. The
// inbound cancellation is dropped so a finished provider call is not lost
// to a client that hung up.
func (p persistence) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return dbx.Bounded(context.WithoutCancel(ctx), p.acquireTimeout)
}

// internal logs err and returns the opaque internal error.
func (p persistence) internal(ctx context.Context, op string, err error) error {
	p.log.Error(ctx, op+" failed", "error", err)
	return fmt.Errorf("%w: %s", common.ErrorInternal, op)
}

// passThrough keeps taxonomy errors and turns everything else into an
// internal error.
func (p persistence) passThrough(ctx context.Context, op string, err error) error {
	for _, known := range []error{common.ErrorNotFound, common.ErrorValidation, common.ErrorForbidden} {
		if errors.Is(err, known) {
			return err
		}
	}
	return p.internal(ctx, op, err)
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrorValidation, fmt.Sprintf(format, args...))
}
