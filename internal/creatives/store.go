package creatives

import (
	"context"

	"github.com/wolfman30/outreach-pipeline/internal/audit"
)

// Store persists assets and requests.
type Store interface {
	Atomic(ctx context.Context, fn func(tx Tx) error) error
	ListCreatives(ctx context.Context, status Status) ([]Asset, error)
	// ListCreativeRequests returns requests newest first.
	ListCreativeRequests(ctx context.Context) ([]Request, error)
}

// Tx is the unit of work for asset and request writes.
type Tx interface {
	LockCreative(ctx context.Context, id string) (Asset, error)
	InsertCreative(ctx context.Context, a Asset) error
	SaveCreative(ctx context.Context, a Asset) error
	LockCreativeRequest(ctx context.Context, id string) (Request, error)
	InsertCreativeRequest(ctx context.Context, r Request) error
	SaveCreativeRequest(ctx context.Context, r Request) error
	AppendAudit(ctx context.Context, entry audit.Entry) error
}
