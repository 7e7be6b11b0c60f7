package poker

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/MartinAltmayer/pokerserver-sub000/card"
)

// memStore is an in-memory implementation of the store interfaces for
// engine tests. It enforces the same uniqueness rules as the real
// stores.
type memStore struct {
	mu      sync.Mutex
	tables  map[int]TableRecord
	players map[int]map[int]PlayerRecord
	names   map[string]bool
	stats   map[string]PlayerStatistics
}

func newMemStore() *memStore {
	return &memStore{
		tables:  make(map[int]TableRecord),
		players: make(map[int]map[int]PlayerRecord),
		names:   make(map[string]bool),
		stats:   make(map[string]PlayerStatistics),
	}
}

func (s *memStore) stores() Stores {
	return Stores{Tables: s, Players: s, Stats: s}
}

func (s *memStore) CreateTable(_ context.Context, rec TableRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tables {
		if existing.Name == rec.Name {
			return fmt.Errorf("table %q: %w", rec.Name, ErrDuplicateKey)
		}
	}
	if _, ok := s.tables[rec.TableID]; ok {
		return fmt.Errorf("table %d: %w", rec.TableID, ErrDuplicateKey)
	}
	s.tables[rec.TableID] = copyTableRecord(rec)
	return nil
}

func (s *memStore) LoadAllTables(context.Context) ([]TableRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int, 0, len(s.tables))
	for id := range s.tables {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	recs := make([]TableRecord, 0, len(ids))
	for _, id := range ids {
		recs = append(recs, copyTableRecord(s.tables[id]))
	}
	return recs, nil
}

func (s *memStore) LoadTableByName(_ context.Context, name string) (TableRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.tables {
		if rec.Name == name {
			return copyTableRecord(rec), nil
		}
	}
	return TableRecord{}, fmt.Errorf("%w: %s", ErrTableNotFound, name)
}

func (s *memStore) SetDealer(_ context.Context, tableID int, dealer string) error {
	return s.updateTable(tableID, func(rec *TableRecord) {
		rec.Dealer = dealer
	})
}

func (s *memStore) SetCurrentPlayer(_ context.Context, tableID int, name, token string) error {
	return s.updateTable(tableID, func(rec *TableRecord) {
		rec.CurrentPlayer = name
		rec.CurrentPlayerToken = token
	})
}

func (s *memStore) CheckAndUnsetCurrentPlayer(_ context.Context, tableID int, name, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tables[tableID]
	if !ok {
		return false, ErrTableNotFound
	}
	if rec.CurrentPlayer != name {
		return false, nil
	}
	if token != "" && rec.CurrentPlayerToken != token {
		return false, nil
	}
	rec.CurrentPlayer = ""
	rec.CurrentPlayerToken = ""
	s.tables[tableID] = rec
	return true, nil
}

func (s *memStore) SetCards(_ context.Context, tableID int, remainingDeck, openCards []card.Card) error {
	return s.updateTable(tableID, func(rec *TableRecord) {
		rec.RemainingDeck = append([]card.Card{}, remainingDeck...)
		rec.OpenCards = append([]card.Card{}, openCards...)
	})
}

func (s *memStore) SetPots(_ context.Context, tableID int, pots []*Pot) error {
	return s.updateTable(tableID, func(rec *TableRecord) {
		rec.Pots = copyPots(pots)
	})
}

func (s *memStore) AddJoinedPlayer(_ context.Context, tableID int, name string) error {
	return s.updateTable(tableID, func(rec *TableRecord) {
		rec.JoinedPlayers = append(rec.JoinedPlayers, name)
	})
}

func (s *memStore) CloseTable(_ context.Context, tableID int) error {
	return s.updateTable(tableID, func(rec *TableRecord) {
		rec.IsClosed = true
	})
}

func (s *memStore) updateTable(tableID int, update func(*TableRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tables[tableID]
	if !ok {
		return ErrTableNotFound
	}
	update(&rec)
	s.tables[tableID] = rec
	return nil
}

func (s *memStore) AddPlayer(_ context.Context, rec PlayerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.names[rec.Name] {
		return fmt.Errorf("player %q: %w", rec.Name, ErrDuplicateKey)
	}
	if s.players[rec.TableID] == nil {
		s.players[rec.TableID] = make(map[int]PlayerRecord)
	}
	if _, ok := s.players[rec.TableID][rec.Position]; ok {
		return fmt.Errorf("position %d: %w", rec.Position, ErrDuplicateKey)
	}
	s.players[rec.TableID][rec.Position] = rec
	s.names[rec.Name] = true
	return nil
}

func (s *memStore) LoadPlayersByTableID(_ context.Context, tableID int) ([]PlayerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	positions := make([]int, 0, len(s.players[tableID]))
	for position := range s.players[tableID] {
		positions = append(positions, position)
	}
	sort.Ints(positions)
	recs := make([]PlayerRecord, 0, len(positions))
	for _, position := range positions {
		recs = append(recs, s.players[tableID][position])
	}
	return recs, nil
}

func (s *memStore) SetBalance(_ context.Context, tableID, position, balance int) error {
	return s.updatePlayer(tableID, position, func(rec *PlayerRecord) {
		rec.Balance = balance
	})
}

func (s *memStore) SetBalanceAndBet(_ context.Context, tableID, position, balance, bet int) error {
	return s.updatePlayer(tableID, position, func(rec *PlayerRecord) {
		rec.Balance = balance
		rec.Bet = bet
	})
}

func (s *memStore) SetPlayerCards(_ context.Context, tableID, position int, cards []card.Card) error {
	return s.updatePlayer(tableID, position, func(rec *PlayerRecord) {
		rec.Cards = append([]card.Card{}, cards...)
	})
}

func (s *memStore) SetState(_ context.Context, tableID, position int, state PlayerState) error {
	return s.updatePlayer(tableID, position, func(rec *PlayerRecord) {
		rec.State = state
	})
}

func (s *memStore) DeletePlayer(_ context.Context, tableID, position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.players[tableID][position]; ok {
		delete(s.names, rec.Name)
	}
	delete(s.players[tableID], position)
	return nil
}

func (s *memStore) updatePlayer(tableID, position int, update func(*PlayerRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.players[tableID][position]
	if !ok {
		return ErrPlayerNotFound
	}
	update(&rec)
	s.players[tableID][position] = rec
	return nil
}

func (s *memStore) IncrementStats(_ context.Context, name string, matches, buyIn, gain int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats[name]
	st.PlayerName = name
	st.Matches += matches
	st.BuyIn += buyIn
	st.Gain += gain
	s.stats[name] = st
	return nil
}

func (s *memStore) LoadAllStats(context.Context) ([]PlayerStatistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stats []PlayerStatistics
	for _, st := range s.stats {
		stats = append(stats, st)
	}
	return stats, nil
}

func copyTableRecord(rec TableRecord) TableRecord {
	rec.RemainingDeck = append([]card.Card{}, rec.RemainingDeck...)
	rec.OpenCards = append([]card.Card{}, rec.OpenCards...)
	rec.Pots = copyPots(rec.Pots)
	rec.JoinedPlayers = append([]string{}, rec.JoinedPlayers...)
	return rec
}

func copyPots(pots []*Pot) []*Pot {
	copied := make([]*Pot, 0, len(pots))
	for _, pot := range pots {
		c := NewPot()
		for position, bet := range pot.Bets {
			c.Bets[position] = bet
		}
		copied = append(copied, c)
	}
	return copied
}
