package sync

import (
	"context"
	"sync"

	"github.com/tochadigital/cuidasenior/internal/models"
)

// fakeLocal 记录每次本地写入的载荷
type fakeLocal struct {
	mu    sync.Mutex
	saves []models.AppState
	err   error
}

func (f *fakeLocal) SaveState(ctx context.Context, state models.AppState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saves = append(f.saves, state)
	return nil
}

func (f *fakeLocal) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func (f *fakeLocal) last() models.AppState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves[len(f.saves)-1]
}

// fakeRemote 远程存储替身（记录 upsert，返回预置的 fetch 结果）
type fakeRemote struct {
	mu        sync.Mutex
	upserts   []models.AppState
	upsertErr error

	fetchState *models.AppState
	fetchErr   error
	fetches    int
}

func (f *fakeRemote) Upsert(ctx context.Context, syncID string, state models.AppState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, state)
	return nil
}

func (f *fakeRemote) Fetch(ctx context.Context, syncID string) (*models.AppState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.fetchState == nil {
		return nil, nil
	}
	return f.fetchState.Clone(), nil
}

func (f *fakeRemote) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserts)
}

func (f *fakeRemote) lastUpsert() models.AppState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upserts[len(f.upserts)-1]
}

func (f *fakeRemote) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

// fakeSyncID 固定同步标识
type fakeSyncID struct {
	id string
}

func (f *fakeSyncID) Current(ctx context.Context) string {
	return f.id
}
