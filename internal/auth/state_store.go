package auth

import (
	"context"
	"sync"
	"time"
)

// PendingFlow は進行中の認可フロー1件を表す。
// ログイン開始時に作成され、コールバックで1回だけ消費される。
type PendingFlow struct {
	CodeVerifier string
	CreatedAt    time.Time
}

// PendingFlowStore はstateをキーとする進行中フローの一時ストア。
// 単一インスタンス構成ではインメモリ実装を使用する。
// 複数インスタンス構成では共有ストア（Redis等）の実装に差し替えること。
type PendingFlowStore interface {
	// Put はフローを登録する。同じstateが既に存在する場合はErrStateCollisionを返す。
	Put(ctx context.Context, state string, flow PendingFlow) error

	// TakeOnce はstateに対応するフローを取得と同時に削除する。
	// 取得と削除は不可分であり、同じstateで競合する2つの呼び出しが
	// 両方成功することはない。未登録または期限切れの場合はnilを返す。
	TakeOnce(ctx context.Context, state string) (*PendingFlow, error)
}

// MemoryPendingFlowStore はプロセス内マップによるPendingFlowStore実装。
// TTL超過エントリは読み取り時に破棄し、バックグラウンドでも定期削除する。
type MemoryPendingFlowStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]PendingFlow
	stopCh  chan struct{}
}

// NewMemoryPendingFlowStore は新しいMemoryPendingFlowStoreを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewMemoryPendingFlowStore(ttl time.Duration) *MemoryPendingFlowStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	s := &MemoryPendingFlowStore{
		ttl:     ttl,
		entries: make(map[string]PendingFlow),
		stopCh:  make(chan struct{}),
	}

	go s.cleanupLoop()

	return s
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (s *MemoryPendingFlowStore) Stop() {
	close(s.stopCh)
}

// Put はフローを登録する。stateが既に存在する場合はErrStateCollisionを返す。
func (s *MemoryPendingFlowStore) Put(_ context.Context, state string, flow PendingFlow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[state]; exists {
		return ErrStateCollision
	}

	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = time.Now()
	}
	s.entries[state] = flow

	return nil
}

// TakeOnce はstateに対応するフローを取得と同時に削除する。
// 未登録または期限切れの場合はnilを返す。
func (s *MemoryPendingFlowStore) TakeOnce(_ context.Context, state string) (*PendingFlow, error) {
	s.mu.Lock()
	flow, ok := s.entries[state]
	if ok {
		delete(s.entries, state)
	}
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}

	// 物理的に残っていても期限切れなら未登録と同じ扱いにする
	if time.Since(flow.CreatedAt) > s.ttl {
		return nil, nil
	}

	return &flow, nil
}

// Len は現在保持しているエントリ数を返す。テストおよびメトリクス用。
func (s *MemoryPendingFlowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
// 放置されたフロー（ユーザーがタブを閉じた等）のメモリリークを防ぐ。
func (s *MemoryPendingFlowStore) cleanupLoop() {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup はTTLを超過したエントリを削除する。
func (s *MemoryPendingFlowStore) cleanup() {
	now := time.Now()

	s.mu.Lock()
	for state, flow := range s.entries {
		if now.Sub(flow.CreatedAt) > s.ttl {
			delete(s.entries, state)
		}
	}
	s.mu.Unlock()
}
