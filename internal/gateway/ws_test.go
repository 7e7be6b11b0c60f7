package gateway

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MartinAltmayer/pokerserver-sub000/internal/config"
	"github.com/MartinAltmayer/pokerserver-sub000/internal/lobby"
	"github.com/MartinAltmayer/pokerserver-sub000/internal/store"
	"github.com/MartinAltmayer/pokerserver-sub000/poker"
)

func newTestHub(t *testing.T) *hub {
	t.Helper()
	storeService, err := store.NewSQLiteService(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { storeService.Close() })

	cfg := config.Config{
		FreeTables: 1,
		Seed:       42,
		Table: poker.TableConfig{
			MinPlayerCount: 2,
			MaxPlayerCount: 10,
			SmallBlind:     1,
			BigBlind:       2,
			StartBalance:   100,
		},
	}
	lby := lobby.New(store.Stores(storeService), cfg)
	require.NoError(t, lby.Setup(context.Background()))
	return newHub(lby, func(string) (string, bool) { return "", false })
}

// TestPushAfterUnsubscribe replays a broadcast that snapshotted a
// subscriber just before the client disconnected. The late push must be
// delivered to nobody instead of panicking the process.
func TestPushAfterUnsubscribe(t *testing.T) {
	h := newTestHub(t)
	c := &connection{send: make(chan []byte, 1), tableName: "Table1"}
	h.add(c)
	h.remove(c)

	h.pushView(c)
	h.notifyTable("Table1")

	select {
	case payload := <-c.send:
		require.NotEmpty(t, payload)
	default:
		t.Fatal("expected the late push to reach the still-open channel")
	}
}

func TestConcurrentNotifyAndUnsubscribe(t *testing.T) {
	h := newTestHub(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		c := &connection{send: make(chan []byte, 16), tableName: "Table1"}
		h.add(c)
		wg.Add(2)
		go func(c *connection) {
			defer wg.Done()
			h.remove(c)
		}(c)
		go func() {
			defer wg.Done()
			h.notifyTable("Table1")
		}()
	}
	wg.Wait()

	h.mu.RLock()
	defer h.mu.RUnlock()
	require.Empty(t, h.subs["Table1"])
}
