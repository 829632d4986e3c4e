package contracts

import (
	"context"

	"github.com/julienschmidt/httprouter"
)

type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// Worker is a background loop owned by an Application. Run blocks until ctx
// is cancelled.
type Worker interface {
	Name() string
	Run(ctx context.Context) error
}
