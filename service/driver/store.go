package driver

import (
	"context"

	"github.com/viant/opflow/service/dao/store"
)

// NewJobStore returns an in-memory job store keyed by job ID.
func NewJobStore() *store.MemoryStore[string, Job] {
	return store.NewMemoryStore[string, Job](jobKey, jobState)
}

// NewArchive returns a snapshot archive rooted at baseURL.
func NewArchive(ctx context.Context, baseURL string) (*store.FSStore[Snapshot], error) {
	return store.NewFSStore[Snapshot](ctx, baseURL, snapshotKey, snapshotState)
}
