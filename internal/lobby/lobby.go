// Package lobby serializes access to tables. Every mutating action on a
// table runs under that table's mutex: lock, load the aggregate from
// the store, apply the action, unlock, notify subscribers. Tables are
// independent, so actions on different tables run in parallel.
package lobby

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MartinAltmayer/pokerserver-sub000/internal/config"
	"github.com/MartinAltmayer/pokerserver-sub000/poker"
)

const opTimeout = 10 * time.Second

type Lobby struct {
	stores poker.Stores
	cfg    config.Config

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	seed    int64
	seedSeq atomic.Int64

	notify atomic.Pointer[func(tableName string)]
}

func New(stores poker.Stores, cfg config.Config) *Lobby {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Lobby{
		stores: stores,
		cfg:    cfg,
		locks:  make(map[string]*sync.Mutex),
		seed:   seed,
	}
}

// SetNotify registers a callback invoked after every mutating action on
// a table, outside the table's lock.
func (l *Lobby) SetNotify(fn func(tableName string)) {
	l.notify.Store(&fn)
}

// Setup provisions the configured number of free tables.
func (l *Lobby) Setup(ctx context.Context) error {
	created, err := poker.EnsureFreeTables(ctx, l.stores, l.cfg.FreeTables, l.cfg.Table)
	if err != nil {
		return err
	}
	if created > 0 {
		log.Printf("[Lobby] created %d tables", created)
	}
	return nil
}

func (l *Lobby) tableLock(name string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[name] = lock
	}
	return lock
}

// rng returns a fresh random source. Matches must not share one rand
// instance across tables, it is not safe for concurrent use.
func (l *Lobby) rng() *rand.Rand {
	return rand.New(rand.NewSource(l.seed + l.seedSeq.Add(1)))
}

func (l *Lobby) withTable(ctx context.Context, tableName string, fn func(*poker.Match) error) error {
	lock := l.tableLock(tableName)
	lock.Lock()
	err := func() error {
		table, err := poker.LoadTableByName(ctx, l.stores, tableName)
		if err != nil {
			return err
		}
		match := poker.NewMatch(table, l.stores, l.rng(), l.cfg.TurnTimeout, l)
		return fn(match)
	}()
	lock.Unlock()

	if err == nil {
		if fn := l.notify.Load(); fn != nil {
			(*fn)(tableName)
		}
	}
	return err
}

// ScheduleKick arms the timer that removes a player who does not act in
// time. The token check inside the kick makes a timer that fires after
// the player already acted a no-op.
func (l *Lobby) ScheduleKick(tableName, playerName, token string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		err := l.withTable(ctx, tableName, func(match *poker.Match) error {
			return match.KickIfCurrentPlayer(ctx, playerName, token, "timeout")
		})
		if err != nil {
			log.Printf("[Lobby] timeout kick of %s at table %s failed: %v", playerName, tableName, err)
		}
	})
}

func (l *Lobby) Join(ctx context.Context, tableName, playerName string, position int) error {
	err := l.withTable(ctx, tableName, func(match *poker.Match) error {
		return match.Join(ctx, playerName, position)
	})
	if err != nil {
		return err
	}
	if setupErr := l.Setup(ctx); setupErr != nil {
		log.Printf("[Lobby] ensuring free tables failed: %v", setupErr)
	}
	return nil
}

func (l *Lobby) Fold(ctx context.Context, tableName, playerName string) error {
	return l.withTable(ctx, tableName, func(match *poker.Match) error {
		return match.Fold(ctx, playerName)
	})
}

func (l *Lobby) Call(ctx context.Context, tableName, playerName string) error {
	return l.withTable(ctx, tableName, func(match *poker.Match) error {
		return match.Call(ctx, playerName)
	})
}

func (l *Lobby) Check(ctx context.Context, tableName, playerName string) error {
	return l.withTable(ctx, tableName, func(match *poker.Match) error {
		return match.Check(ctx, playerName)
	})
}

func (l *Lobby) RaiseBet(ctx context.Context, tableName, playerName string, amount int) error {
	return l.withTable(ctx, tableName, func(match *poker.Match) error {
		return match.RaiseBet(ctx, playerName, amount)
	})
}

// TableView renders a table for one viewer. Reads do not take the
// table lock, they see whatever state is committed.
func (l *Lobby) TableView(ctx context.Context, tableName, viewerName string) (poker.TableView, error) {
	table, err := poker.LoadTableByName(ctx, l.stores, tableName)
	if err != nil {
		return poker.TableView{}, err
	}
	return table.View(viewerName), nil
}

func (l *Lobby) Tables(ctx context.Context) ([]poker.TableInfoView, error) {
	tables, err := poker.LoadAllTables(ctx, l.stores)
	if err != nil {
		return nil, err
	}
	infos := make([]poker.TableInfoView, 0, len(tables))
	for _, table := range tables {
		infos = append(infos, table.InfoView())
	}
	return infos, nil
}

func (l *Lobby) Statistics(ctx context.Context) ([]poker.PlayerStatistics, error) {
	return l.stores.Stats.LoadAllStats(ctx)
}
