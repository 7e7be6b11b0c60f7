package poker

import (
	"context"
	"fmt"
	"sort"

	"github.com/MartinAltmayer/pokerserver-sub000/card"
)

// Round of a hand, derived from the number of open cards.
type Round string

const (
	Preflop Round = "preflop"
	Flop    Round = "flop"
	Turn    Round = "turn"
	River   Round = "river"
)

// Table is the aggregate for a single table: its configuration, the
// community cards, the pots and the seated players. Like Player, every
// mutation is written through to the stores.
type Table struct {
	TableID       int
	Name          string
	Config        TableConfig
	RemainingDeck []card.Card
	OpenCards     []card.Card
	Pots          []*Pot
	CurrentPlayer *Player
	Dealer        *Player
	IsClosed      bool
	JoinedPlayers []string
	Players       []*Player

	stores Stores
}

func tableFromRecord(stores Stores, rec TableRecord, playerRecs []PlayerRecord) (*Table, error) {
	table := &Table{
		TableID:       rec.TableID,
		Name:          rec.Name,
		Config:        rec.Config,
		RemainingDeck: rec.RemainingDeck,
		OpenCards:     rec.OpenCards,
		Pots:          rec.Pots,
		IsClosed:      rec.IsClosed,
		JoinedPlayers: rec.JoinedPlayers,
		stores:        stores,
	}
	if len(table.Pots) == 0 {
		table.Pots = []*Pot{NewPot()}
	}
	for _, playerRec := range playerRecs {
		table.Players = append(table.Players, newPlayer(stores.Players, playerRec))
	}
	sort.Slice(table.Players, func(i, j int) bool {
		return table.Players[i].Position < table.Players[j].Position
	})
	if rec.Dealer != "" {
		dealer, err := table.FindPlayer(rec.Dealer)
		if err != nil {
			return nil, fmt.Errorf("dealer %q: %w", rec.Dealer, err)
		}
		table.Dealer = dealer
	}
	if rec.CurrentPlayer != "" {
		current, err := table.FindPlayer(rec.CurrentPlayer)
		if err != nil {
			return nil, fmt.Errorf("current player %q: %w", rec.CurrentPlayer, err)
		}
		table.CurrentPlayer = current
	}
	return table, nil
}

// LoadTableByName loads a table and its players from the stores.
func LoadTableByName(ctx context.Context, stores Stores, name string) (*Table, error) {
	rec, err := stores.Tables.LoadTableByName(ctx, name)
	if err != nil {
		return nil, err
	}
	playerRecs, err := stores.Players.LoadPlayersByTableID(ctx, rec.TableID)
	if err != nil {
		return nil, err
	}
	return tableFromRecord(stores, rec, playerRecs)
}

// LoadAllTables loads every table with its players.
func LoadAllTables(ctx context.Context, stores Stores) ([]*Table, error) {
	recs, err := stores.Tables.LoadAllTables(ctx)
	if err != nil {
		return nil, err
	}
	tables := make([]*Table, 0, len(recs))
	for _, rec := range recs {
		playerRecs, err := stores.Players.LoadPlayersByTableID(ctx, rec.TableID)
		if err != nil {
			return nil, err
		}
		table, err := tableFromRecord(stores, rec, playerRecs)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	return tables, nil
}

// CreateTables creates the given number of empty tables, allocating the
// lowest unused "TableN" names and table ids.
func CreateTables(ctx context.Context, stores Stores, number int, config TableConfig) error {
	existing, err := LoadAllTables(ctx, stores)
	if err != nil {
		return err
	}
	usedNames := make(map[string]bool)
	usedIDs := make(map[int]bool)
	for _, table := range existing {
		usedNames[table.Name] = true
		usedIDs[table.TableID] = true
	}

	names := make([]string, 0, number)
	for i := 1; len(names) < number; i++ {
		name := fmt.Sprintf("Table%d", i)
		if !usedNames[name] {
			names = append(names, name)
		}
	}
	ids := make([]int, 0, number)
	for id := 1; len(ids) < number; id++ {
		if !usedIDs[id] {
			ids = append(ids, id)
		}
	}

	for i := 0; i < number; i++ {
		rec := TableRecord{
			TableID:       ids[i],
			Name:          names[i],
			Config:        config,
			RemainingDeck: []card.Card{},
			OpenCards:     []card.Card{},
			Pots:          []*Pot{NewPot()},
		}
		if err := stores.Tables.CreateTable(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// EnsureFreeTables creates tables until at least number tables have a
// free seat. It returns how many tables were created.
func EnsureFreeTables(ctx context.Context, stores Stores, number int, config TableConfig) (int, error) {
	tables, err := LoadAllTables(ctx, stores)
	if err != nil {
		return 0, err
	}
	free := 0
	for _, table := range tables {
		if !table.IsClosed && table.IsFree() {
			free++
		}
	}
	if free >= number {
		return 0, nil
	}
	missing := number - free
	if err := CreateTables(ctx, stores, missing, config); err != nil {
		return 0, err
	}
	return missing, nil
}

// Round is derived from the community cards alone so it never needs to
// be persisted separately.
func (t *Table) Round() Round {
	switch len(t.OpenCards) {
	case 0:
		return Preflop
	case 3:
		return Flop
	case 4:
		return Turn
	case 5:
		return River
	}
	panic(fmt.Sprintf("table %s has %d open cards", t.Name, len(t.OpenCards)))
}

func (t *Table) IsFree() bool {
	return len(t.Players) < t.Config.MaxPlayerCount
}

func (t *Table) IsPositionValid(position int) bool {
	return 1 <= position && position <= t.Config.MaxPlayerCount
}

func (t *Table) IsPositionFree(position int) bool {
	return t.IsPositionValid(position) && t.PlayerAt(position) == nil
}

func (t *Table) PlayerAt(position int) *Player {
	for _, player := range t.Players {
		if player.Position == position {
			return player
		}
	}
	return nil
}

func (t *Table) FindPlayer(name string) (*Player, error) {
	for _, player := range t.Players {
		if player.Name == name {
			return player, nil
		}
	}
	return nil, ErrPlayerNotFound
}

func (t *Table) IsPlayerAtTable(name string) bool {
	_, err := t.FindPlayer(name)
	return err == nil
}

func (t *Table) HasJoined(name string) bool {
	for _, joined := range t.JoinedPlayers {
		if joined == name {
			return true
		}
	}
	return false
}

// ActivePlayers are the seated players who have not folded.
func (t *Table) ActivePlayers() []*Player {
	active := make([]*Player, 0, len(t.Players))
	for _, player := range t.Players {
		if !player.IsFolded() {
			active = append(active, player)
		}
	}
	return active
}

// PlayerPositionsBetween returns the occupied positions from pos1 to
// pos2 in clockwise order, wrapping around the table if necessary.
func (t *Table) PlayerPositionsBetween(pos1, pos2 int) []int {
	if pos1 == pos2 {
		return []int{pos1}
	}
	all := make([]int, 0, len(t.Players))
	for _, player := range t.Players {
		all = append(all, player.Position)
	}
	sort.Ints(all)
	if pos1 < pos2 {
		section := make([]int, 0, len(all))
		for _, p := range all {
			if pos1 <= p && p <= pos2 {
				section = append(section, p)
			}
		}
		return section
	}
	var section1, section2 []int
	for _, p := range all {
		if p >= pos1 {
			section1 = append(section1, p)
		}
		if p <= pos2 {
			section2 = append(section2, p)
		}
	}
	return append(section1, section2...)
}

// PlayerLeftOf returns the next player clockwise from the given player.
// If filter is non-nil only players in the filter are considered. The
// player itself is never returned.
func (t *Table) PlayerLeftOf(player *Player, filter []*Player) (*Player, error) {
	candidates := t.neighborCandidates(player, filter)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no player left of %s", ErrPlayerNotFound, player.Name)
	}
	sort.Slice(candidates, func(i, j int) bool {
		wrappedI := candidates[i].Position <= player.Position
		wrappedJ := candidates[j].Position <= player.Position
		if wrappedI != wrappedJ {
			return !wrappedI
		}
		return candidates[i].Position < candidates[j].Position
	})
	return candidates[0], nil
}

// PlayerRightOf is PlayerLeftOf in the counterclockwise direction.
func (t *Table) PlayerRightOf(player *Player, filter []*Player) (*Player, error) {
	candidates := t.neighborCandidates(player, filter)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no player right of %s", ErrPlayerNotFound, player.Name)
	}
	sort.Slice(candidates, func(i, j int) bool {
		wrappedI := candidates[i].Position > player.Position
		wrappedJ := candidates[j].Position > player.Position
		if wrappedI != wrappedJ {
			return !wrappedI
		}
		return candidates[i].Position > candidates[j].Position
	})
	return candidates[0], nil
}

func (t *Table) neighborCandidates(player *Player, filter []*Player) []*Player {
	pool := t.Players
	if filter != nil {
		pool = filter
	}
	candidates := make([]*Player, 0, len(pool))
	for _, candidate := range pool {
		if candidate != player {
			candidates = append(candidates, candidate)
		}
	}
	return candidates
}

func (t *Table) SetDealer(ctx context.Context, dealer *Player) error {
	t.Dealer = dealer
	name := ""
	if dealer != nil {
		name = dealer.Name
	}
	return t.stores.Tables.SetDealer(ctx, t.TableID, name)
}

func (t *Table) SetCurrentPlayer(ctx context.Context, player *Player, token string) error {
	t.CurrentPlayer = player
	name := ""
	if player != nil {
		name = player.Name
	}
	return t.stores.Tables.SetCurrentPlayer(ctx, t.TableID, name, token)
}

// CheckAndUnsetCurrentPlayer atomically consumes the turn of the named
// player. It reports false if somebody else is on turn, or if a token
// is given and no longer matches.
func (t *Table) CheckAndUnsetCurrentPlayer(ctx context.Context, name, token string) (bool, error) {
	ok, err := t.stores.Tables.CheckAndUnsetCurrentPlayer(ctx, t.TableID, name, token)
	if err != nil {
		return false, err
	}
	if ok {
		t.CurrentPlayer = nil
	}
	return ok, nil
}

func (t *Table) SetCards(ctx context.Context, remainingDeck, openCards []card.Card) error {
	t.RemainingDeck = remainingDeck
	t.OpenCards = openCards
	return t.stores.Tables.SetCards(ctx, t.TableID, remainingDeck, openCards)
}

// DrawCards moves n cards from the end of the deck onto the open cards.
func (t *Table) DrawCards(ctx context.Context, n int) error {
	remaining, drawn := card.Draw(t.RemainingDeck, n)
	return t.SetCards(ctx, remaining, append(t.OpenCards, drawn...))
}

func (t *Table) ClearPots(ctx context.Context) error {
	t.Pots = []*Pot{NewPot()}
	return t.setPots(ctx)
}

// IncreasePot books a contribution into the layered pots. Capped pots
// are filled up first; if the contribution cannot reach a pot's cap the
// pot is split at the contributed amount and a side pot takes the
// overflow. Chips beyond all caps go into the last pot, or into a fresh
// side pot if the last one already contains an all-in player.
func (t *Table) IncreasePot(ctx context.Context, position, bet int) error {
	if bet < 0 {
		panic("negative pot contribution")
	}
	for index, pot := range t.Pots {
		existing := pot.Bet(position)
		maxBet := pot.MaxBet()
		if maxBet == 0 {
			maxBet = bet
		}
		if bet > 0 && existing <= maxBet {
			required := maxBet - existing
			if bet >= required {
				pot.AddBet(position, required)
				bet -= required
			} else {
				pot.AddBet(position, bet)
				overflow := pot.Split(bet + existing)
				t.Pots = append(t.Pots[:index+1], append([]*Pot{overflow}, t.Pots[index+1:]...)...)
				bet = 0
				break
			}
		}
	}
	if bet > 0 {
		if t.hasAllInPlayers(t.Pots[len(t.Pots)-1], position) {
			t.Pots = append(t.Pots, NewPot())
		}
		t.Pots[len(t.Pots)-1].AddBet(position, bet)
	}
	return t.setPots(ctx)
}

func (t *Table) hasAllInPlayers(pot *Pot, excludedPosition int) bool {
	for _, player := range t.Players {
		if !player.IsAllIn() || player.Position == excludedPosition {
			continue
		}
		if _, ok := pot.Bets[player.Position]; ok {
			return true
		}
	}
	return false
}

func (t *Table) setPots(ctx context.Context) error {
	return t.stores.Tables.SetPots(ctx, t.TableID, t.Pots)
}

// AddPlayer seats a player and remembers the name in the joined list so
// the same player cannot rejoin after leaving.
func (t *Table) AddPlayer(ctx context.Context, player *Player) error {
	t.Players = append(t.Players, player)
	sort.Slice(t.Players, func(i, j int) bool {
		return t.Players[i].Position < t.Players[j].Position
	})
	t.JoinedPlayers = append(t.JoinedPlayers, player.Name)
	return t.stores.Tables.AddJoinedPlayer(ctx, t.TableID, player.Name)
}

func (t *Table) RemovePlayer(ctx context.Context, player *Player) error {
	for i, p := range t.Players {
		if p == player {
			t.Players = append(t.Players[:i], t.Players[i+1:]...)
			break
		}
	}
	return t.stores.Players.DeletePlayer(ctx, t.TableID, player.Position)
}

// ResetAfterHand clears cards, pots and the dealer between hands.
func (t *Table) ResetAfterHand(ctx context.Context) error {
	if err := t.SetCards(ctx, []card.Card{}, []card.Card{}); err != nil {
		return err
	}
	if err := t.ClearPots(ctx); err != nil {
		return err
	}
	return t.SetDealer(ctx, nil)
}

// Close removes all players and marks the table closed.
func (t *Table) Close(ctx context.Context) error {
	for _, player := range append([]*Player{}, t.Players...) {
		if err := t.RemovePlayer(ctx, player); err != nil {
			return err
		}
	}
	t.IsClosed = true
	return t.stores.Tables.CloseTable(ctx, t.TableID)
}
