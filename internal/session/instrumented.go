package session

import (
	"context"
	"time"

	"github.com/kjstillabower/weatherx-dashboard/internal/observability"
)

// Instrumented counts every call on the wrapped store under the given backend label.
type Instrumented struct {
	Store
	backend string
}

func NewInstrumented(s Store, backend string) *Instrumented {
	return &Instrumented{Store: s, backend: backend}
}

func (i *Instrumented) Get(ctx context.Context, token string) (Session, bool, error) {
	s, ok, err := i.Store.Get(ctx, token)
	observability.RecordSessionOp(i.backend, "get", err)
	return s, ok, err
}

func (i *Instrumented) Put(ctx context.Context, s Session, ttl time.Duration) error {
	err := i.Store.Put(ctx, s, ttl)
	observability.RecordSessionOp(i.backend, "put", err)
	return err
}

func (i *Instrumented) Delete(ctx context.Context, token string) error {
	err := i.Store.Delete(ctx, token)
	observability.RecordSessionOp(i.backend, "delete", err)
	return err
}
