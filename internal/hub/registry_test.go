package hub

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndSnapshot(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// Given an empty registry
	req.Zero(registry.Count())
	req.Empty(registry.Snapshot())

	// When three connections register
	ids := []string{uuid.NewString(), uuid.NewString(), uuid.NewString()}
	for _, id := range ids {
		req.True(registry.Register(id))
	}

	// Then the snapshot lists them in registration order without nicknames
	snapshot := registry.Snapshot()
	req.Len(snapshot, 3)
	for i, conn := range snapshot {
		req.Equal(ids[i], conn.ID)
		req.Empty(conn.Nickname)
		req.False(conn.ConnectedAt.IsZero())
	}
	req.Equal(ids, registry.IDs())
	req.Equal(3, registry.Count())
}

func TestRegistry_DoubleRegisterKeepsOneEntry(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	id := uuid.NewString()

	req.True(registry.Register(id))
	first, _ := registry.Lookup(id)
	req.False(registry.Register(id))

	snapshot := registry.Snapshot()
	req.Len(snapshot, 1)
	req.Equal(first, snapshot[0])
}

func TestRegistry_Unregister(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	id := uuid.NewString()
	registry.Register(id)
	req.NoError(registry.SetNickname(id, "alice"))

	removed, err := registry.Unregister(id)
	req.NoError(err)
	req.Equal(id, removed.ID)
	req.Equal("alice", removed.Nickname)
	req.Zero(registry.Count())

	// Duplicate disconnect notifications are tolerated
	_, err = registry.Unregister(id)
	req.ErrorIs(err, ErrNotFound)
	req.Zero(registry.Count())
}

func TestRegistry_SetNickname(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	id := uuid.NewString()
	registry.Register(id)

	req.NoError(registry.SetNickname(id, "alice"))
	req.NoError(registry.SetNickname(id, "bob"))
	conn, ok := registry.Lookup(id)
	req.True(ok)
	req.Equal("bob", conn.Nickname)
	req.Equal("bob", conn.DisplayName())

	req.ErrorIs(registry.SetNickname("gone", "x"), ErrNotFound)
	_, ok = registry.Lookup("gone")
	req.False(ok)
}

func TestRegistry_SnapshotIsACopy(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Register("abc123ef")

	snapshot := registry.Snapshot()
	snapshot[0].Nickname = "mutated"

	conn, _ := registry.Lookup("abc123ef")
	req.Empty(conn.Nickname)
	req.Equal("Guest-abc123ef", conn.DisplayName())
}

func TestRegistry_AccountingUnderRandomSequences(t *testing.T) {
	req := require.New(t)
	rng := rand.New(rand.NewSource(42))
	registry := NewRegistry()

	pool := make([]string, 20)
	for i := range pool {
		pool[i] = fmt.Sprintf("conn-%02d", i)
	}
	live := make(map[string]bool)
	joins, leaves := 0, 0

	for step := 0; step < 2000; step++ {
		id := pool[rng.Intn(len(pool))]
		if rng.Intn(2) == 0 {
			if registry.Register(id) {
				joins++
				live[id] = true
			}
		} else if _, err := registry.Unregister(id); err == nil {
			leaves++
			delete(live, id)
		}
		req.Equal(joins-leaves, registry.Count())
		req.Len(registry.Snapshot(), len(live))
	}
}

func TestRegistry_ConcurrentMutations(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	const workers = 50
	const perWorker = 40

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := fmt.Sprintf("w%d-%d", w, i)
				registry.Register(id)
				_ = registry.SetNickname(id, "n")
				_ = registry.Snapshot()
				if i%2 == 0 {
					_, _ = registry.Unregister(id)
				}
			}
		}(w)
	}
	wg.Wait()

	req.Equal(workers*perWorker/2, registry.Count())
	for _, conn := range registry.Snapshot() {
		req.Equal("n", conn.Nickname)
	}
}
