package poker

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/MartinAltmayer/pokerserver-sub000/card"
)

// TurnTimer schedules a deferred kick of a player who does not act in
// time. Implementations must not block the caller. The token makes a
// stale timer harmless: by the time it fires, KickIfCurrentPlayer only
// acts if the same turn is still open.
type TurnTimer interface {
	ScheduleKick(tableName, playerName, token string, delay time.Duration)
}

// Match drives the state machine of a single table: joining, blinds,
// betting rounds, showdown and table closing. It holds no state of its
// own beyond its collaborators; everything it decides on is read from
// and written through the table aggregate.
type Match struct {
	Table *Table

	stores  Stores
	rng     *rand.Rand
	timeout time.Duration
	timer   TurnTimer
}

// NewMatch wraps a loaded table. The rng drives dealer selection and
// deck shuffling, which makes hands reproducible under a seeded source.
// A zero timeout or nil timer disables turn timeouts.
func NewMatch(table *Table, stores Stores, rng *rand.Rand, timeout time.Duration, timer TurnTimer) *Match {
	return &Match{
		Table:   table,
		stores:  stores,
		rng:     rng,
		timeout: timeout,
		timer:   timer,
	}
}

// Join seats a player. Concurrent joins to the same seat are resolved
// by the player store's uniqueness constraint, so exactly one request
// wins and the others observe ErrPositionOccupied. Reaching the
// configured minimum player count starts the match.
func (m *Match) Join(ctx context.Context, name string, position int) error {
	if m.Table.IsClosed {
		return ErrTableClosed
	}
	if !m.Table.IsPositionValid(position) {
		return ErrInvalidPosition
	}
	if !m.Table.IsPositionFree(position) {
		return ErrPositionOccupied
	}
	if m.Table.IsPlayerAtTable(name) || m.Table.HasJoined(name) {
		return ErrAlreadyJoined
	}

	rec := PlayerRecord{
		TableID:  m.Table.TableID,
		Position: position,
		Name:     name,
		Balance:  m.Table.Config.StartBalance,
		Cards:    []card.Card{},
		LastSeen: time.Now().UTC(),
		State:    StatePlaying,
	}
	if err := m.stores.Players.AddPlayer(ctx, rec); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return ErrPositionOccupied
		}
		return err
	}
	if err := m.Table.AddPlayer(ctx, newPlayer(m.stores.Players, rec)); err != nil {
		return err
	}
	log.Printf("[Match] %s joined table %s at position %d", name, m.Table.Name, position)

	if len(m.Table.Players) == m.Table.Config.MinPlayerCount {
		return m.Start(ctx)
	}
	return nil
}

// Start begins the first hand with a randomly chosen dealer.
func (m *Match) Start(ctx context.Context) error {
	dealer := m.Table.Players[m.rng.Intn(len(m.Table.Players))]
	return m.StartHand(ctx, dealer)
}

// StartHand posts the blinds, deals two hole cards to every player and
// puts the first player on turn.
func (m *Match) StartHand(ctx context.Context, dealer *Player) error {
	if len(m.Table.Players) < 2 {
		panic("cannot start a hand with fewer than two players")
	}
	smallBlindPlayer, bigBlindPlayer, _ := m.findBlindPlayers(dealer)
	if err := m.Table.SetDealer(ctx, dealer); err != nil {
		return err
	}
	if err := m.Table.ClearPots(ctx); err != nil {
		return err
	}
	if err := m.resetBets(ctx); err != nil {
		return err
	}
	if err := m.payBlinds(ctx, smallBlindPlayer, bigBlindPlayer); err != nil {
		return err
	}
	if err := m.distributeCards(ctx); err != nil {
		return err
	}
	log.Printf("[Match] started hand at table %s, dealer %s", m.Table.Name, dealer.Name)

	// Posting a blind can put a player all in, so the first actor is the
	// first eligible seat from under the gun. If the blinds put everyone
	// all in, the streets run out to the showdown immediately.
	startPlayer := m.findRoundStartPlayer()
	if startPlayer == nil {
		return m.nextRound(ctx)
	}
	return m.SetPlayerActive(ctx, startPlayer)
}

// findBlindPlayers determines small blind, big blind and the first
// player to act preflop. Heads-up the dealer posts the small blind and
// acts first; with more players the blinds sit left of the dealer and
// the player left of the big blind opens.
func (m *Match) findBlindPlayers(dealer *Player) (smallBlind, bigBlind, underTheGun *Player) {
	if len(m.Table.Players) == 2 {
		smallBlind = dealer
		bigBlind = m.mustPlayerLeftOf(smallBlind, nil)
		underTheGun = smallBlind
		return
	}
	smallBlind = m.mustPlayerLeftOf(dealer, nil)
	bigBlind = m.mustPlayerLeftOf(smallBlind, nil)
	underTheGun = m.mustPlayerLeftOf(bigBlind, nil)
	return
}

// findStartPlayer determines who opens a betting round. Heads-up the
// big blind acts first on every round after the preflop.
func (m *Match) findStartPlayer(dealer *Player, round Round) *Player {
	_, bigBlind, startPlayer := m.findBlindPlayers(dealer)
	if round != Preflop && len(m.Table.Players) == 2 {
		startPlayer = bigBlind
	}
	return startPlayer
}

func (m *Match) mustPlayerLeftOf(player *Player, filter []*Player) *Player {
	next, err := m.Table.PlayerLeftOf(player, filter)
	if err != nil {
		panic(err)
	}
	return next
}

func (m *Match) payBlinds(ctx context.Context, smallBlindPlayer, bigBlindPlayer *Player) error {
	if err := m.makePlayerPay(ctx, smallBlindPlayer, m.Table.Config.SmallBlind); err != nil {
		return err
	}
	return m.makePlayerPay(ctx, bigBlindPlayer, m.Table.Config.BigBlind)
}

// makePlayerPay moves amount from the player into the pots, capping at
// the player's balance. Running out of chips puts the player all in.
func (m *Match) makePlayerPay(ctx context.Context, player *Player, amount int) error {
	if amount <= 0 {
		panic("amount to pay must be greater than 0")
	}
	if amount > player.Balance {
		amount = player.Balance
	}
	if err := player.IncreaseBet(ctx, amount); err != nil {
		return err
	}
	return m.Table.IncreasePot(ctx, player.Position, amount)
}

func (m *Match) distributeCards(ctx context.Context) error {
	deck := card.ShuffledDeck(m.rng)
	for _, player := range m.Table.Players {
		first := deck[len(deck)-1]
		second := deck[len(deck)-2]
		deck = deck[:len(deck)-2]
		if err := player.SetCards(ctx, []card.Card{first, second}); err != nil {
			return err
		}
	}
	return m.Table.SetCards(ctx, deck, m.Table.OpenCards)
}

// SetPlayerActive puts a player on turn under a fresh token and, if a
// timeout is configured, schedules the kick that fires if they never
// act.
func (m *Match) SetPlayerActive(ctx context.Context, player *Player) error {
	token := uuid.NewString()
	if err := m.Table.SetCurrentPlayer(ctx, player, token); err != nil {
		return err
	}
	if m.timeout > 0 && m.timer != nil {
		m.timer.ScheduleKick(m.Table.Name, player.Name, token, m.timeout)
	}
	return nil
}

// KickIfCurrentPlayer removes the named player if they are still on
// turn under the given token. A stale timer, firing after the player
// already acted, finds the token consumed and does nothing.
func (m *Match) KickIfCurrentPlayer(ctx context.Context, playerName, token, reason string) error {
	player, err := m.Table.FindPlayer(playerName)
	if err != nil {
		return nil
	}
	isCurrentPlayer, err := m.Table.CheckAndUnsetCurrentPlayer(ctx, playerName, token)
	if err != nil {
		return err
	}
	if !isCurrentPlayer {
		return nil
	}
	log.Printf("[Match] kicked %s from table %s: %s", playerName, m.Table.Name, reason)

	nextPlayer := m.findNextPlayer(player)
	if m.Table.Dealer != nil && m.Table.Dealer.Name == playerName {
		if newDealer, err := m.Table.PlayerRightOf(m.Table.Dealer, nil); err == nil {
			if err := m.Table.SetDealer(ctx, newDealer); err != nil {
				return err
			}
		}
	}

	if err := m.incrementStatsForPlayer(ctx, player); err != nil {
		return err
	}
	if err := m.Table.RemovePlayer(ctx, player); err != nil {
		return err
	}

	if len(m.Table.Players) <= 1 {
		return m.CloseTable(ctx)
	}
	if nextPlayer == nil {
		return m.nextRound(ctx)
	}
	return m.SetPlayerActive(ctx, nextPlayer)
}

// Fold gives up the hand.
func (m *Match) Fold(ctx context.Context, playerName string) error {
	player, err := m.validateTurn(playerName)
	if err != nil {
		return err
	}
	if err := m.takeTurn(ctx, playerName); err != nil {
		return err
	}
	if err := player.Fold(ctx); err != nil {
		return err
	}
	return m.nextPlayerOrRound(ctx, player)
}

// Call matches the highest outstanding bet, going all in if the
// balance does not cover it.
func (m *Match) Call(ctx context.Context, playerName string) error {
	player, err := m.validateTurn(playerName)
	if err != nil {
		return err
	}
	highestBet := m.highestBet()
	if highestBet <= player.Bet {
		return ErrInvalidTurn
	}
	if err := m.takeTurn(ctx, playerName); err != nil {
		return err
	}
	if err := m.makePlayerPay(ctx, player, highestBet-player.Bet); err != nil {
		return err
	}
	return m.nextPlayerOrRound(ctx, player)
}

// Check passes the turn without betting, only legal while nobody has
// bet more than the player.
func (m *Match) Check(ctx context.Context, playerName string) error {
	player, err := m.validateTurn(playerName)
	if err != nil {
		return err
	}
	if m.highestBet() > player.Bet {
		return ErrInvalidTurn
	}
	if err := m.takeTurn(ctx, playerName); err != nil {
		return err
	}
	return m.nextPlayerOrRound(ctx, player)
}

// RaiseBet puts amount additional chips in, which must exceed the
// outstanding difference to the highest bet. Betting the whole balance
// is allowed and forces all in.
func (m *Match) RaiseBet(ctx context.Context, playerName string, amount int) error {
	player, err := m.validateTurn(playerName)
	if err != nil {
		return err
	}
	if amount <= m.highestBet()-player.Bet {
		return ErrInvalidBet
	}
	if amount > player.Balance {
		return ErrInsufficientBalance
	}
	if err := m.takeTurn(ctx, playerName); err != nil {
		return err
	}
	if err := m.makePlayerPay(ctx, player, amount); err != nil {
		return err
	}
	return m.nextPlayerOrRound(ctx, player)
}

// validateTurn checks that the named player is on turn without
// consuming the turn, so a rejected action leaves the table unchanged.
func (m *Match) validateTurn(playerName string) (*Player, error) {
	player, err := m.Table.FindPlayer(playerName)
	if err != nil {
		return nil, err
	}
	if m.Table.CurrentPlayer == nil || m.Table.CurrentPlayer.Name != playerName {
		return nil, ErrNotYourTurn
	}
	return player, nil
}

// takeTurn atomically consumes the turn of the named player. The
// conditional update in the store is what makes a racing duplicate
// request or stale timer lose.
func (m *Match) takeTurn(ctx context.Context, playerName string) error {
	isCurrentPlayer, err := m.Table.CheckAndUnsetCurrentPlayer(ctx, playerName, "")
	if err != nil {
		return err
	}
	if !isCurrentPlayer {
		return ErrNotYourTurn
	}
	return nil
}

func (m *Match) nextPlayerOrRound(ctx context.Context, currentPlayer *Player) error {
	nextPlayer := m.findNextPlayer(currentPlayer)
	if nextPlayer == nil {
		return m.nextRound(ctx)
	}
	return m.SetPlayerActive(ctx, nextPlayer)
}

// findNextPlayer returns the next player to act after currentPlayer,
// or nil if the betting round is over. All-in players cannot act and
// are skipped; the round ends when the next candidate has already
// matched the highest bet and made their turn.
func (m *Match) findNextPlayer(currentPlayer *Player) *Player {
	activePlayers := m.Table.ActivePlayers()
	if len(activePlayers) <= 1 {
		return nil
	}
	eligible := make([]*Player, 0, len(activePlayers))
	for _, player := range activePlayers {
		if !player.IsAllIn() {
			eligible = append(eligible, player)
		}
	}
	nextPlayer, err := m.Table.PlayerLeftOf(currentPlayer, eligible)
	if err != nil {
		return nil
	}
	highestBet := m.highestBet()
	if nextPlayer.Bet == highestBet && m.hasMadeTurn(nextPlayer, currentPlayer) {
		return nil
	}
	return nextPlayer
}

func (m *Match) resetBets(ctx context.Context) error {
	for _, player := range m.Table.Players {
		if err := player.ClearBet(ctx); err != nil {
			return err
		}
	}
	return nil
}

// nextRound reveals the community cards of the following betting round
// or, after the river, triggers the showdown. If nobody is left who
// can act, the remaining streets are run out immediately.
func (m *Match) nextRound(ctx context.Context) error {
	if err := m.resetBets(ctx); err != nil {
		return err
	}
	switch m.Table.Round() {
	case Preflop:
		if err := m.Table.DrawCards(ctx, 3); err != nil {
			return err
		}
	case Flop, Turn:
		if err := m.Table.DrawCards(ctx, 1); err != nil {
			return err
		}
	default:
		return m.showDown(ctx)
	}

	startPlayer := m.findRoundStartPlayer()
	if startPlayer == nil {
		return m.nextRound(ctx)
	}
	log.Printf("[Match] %s starts the %s round at table %s", startPlayer.Name, m.Table.Round(), m.Table.Name)
	return m.SetPlayerActive(ctx, startPlayer)
}

// findRoundStartPlayer picks the first player still able to act in a
// fresh betting round: the regular start player if possible, otherwise
// the next eligible seat clockwise. Returns nil if everybody is folded
// or all in.
func (m *Match) findRoundStartPlayer() *Player {
	base := m.findStartPlayer(m.Table.Dealer, m.Table.Round())
	eligible := make([]*Player, 0, len(m.Table.Players))
	for _, player := range m.Table.Players {
		if !player.IsFolded() && !player.IsAllIn() {
			eligible = append(eligible, player)
		}
	}
	if len(eligible) == 0 {
		return nil
	}
	for _, player := range eligible {
		if player == base {
			return base
		}
	}
	next, err := m.Table.PlayerLeftOf(base, eligible)
	if err != nil {
		return nil
	}
	return next
}

// showDown pays out the pots, resets the table and either starts the
// next hand with the dealer moved one seat clockwise or closes the
// table when fewer than two solvent players remain.
func (m *Match) showDown(ctx context.Context) error {
	if err := m.distributePots(ctx); err != nil {
		return err
	}
	for _, player := range m.Table.Players {
		if err := player.ResetForNewHand(ctx); err != nil {
			return err
		}
	}
	oldDealer := m.Table.Dealer
	if err := m.Table.ResetAfterHand(ctx); err != nil {
		return err
	}

	dealer, err := m.Table.PlayerLeftOf(oldDealer, nil)
	if err != nil {
		return m.CloseTable(ctx)
	}
	for len(m.Table.Players) > 1 {
		bankruptPlayers := m.findBankruptPlayers(dealer)
		if len(bankruptPlayers) == 0 {
			break
		}
		dealerRemoved := false
		for _, player := range bankruptPlayers {
			log.Printf("[Match] %s leaves table %s with no chips", player.Name, m.Table.Name)
			if err := m.incrementStatsForPlayer(ctx, player); err != nil {
				return err
			}
			if err := m.Table.RemovePlayer(ctx, player); err != nil {
				return err
			}
			if player == dealer {
				dealerRemoved = true
			}
		}
		if dealerRemoved {
			dealer, err = m.Table.PlayerLeftOf(dealer, nil)
			if err != nil {
				break
			}
		}
	}

	if len(m.Table.Players) > 1 {
		return m.StartHand(ctx, dealer)
	}
	return m.CloseTable(ctx)
}

func (m *Match) distributePots(ctx context.Context) error {
	activePlayers := m.Table.ActivePlayers()
	for _, pot := range m.Table.Pots {
		contenders := make([]*Player, 0, len(activePlayers))
		for _, player := range activePlayers {
			if _, ok := pot.Bets[player.Position]; ok {
				contenders = append(contenders, player)
			}
		}
		if err := m.distributePot(ctx, pot, contenders); err != nil {
			return err
		}
	}
	return nil
}

// distributePot splits a pot evenly among its winners. A remainder
// that does not divide evenly goes to the earliest winning seat
// clockwise from the dealer. A pot whose contributors all folded is
// refunded to them.
func (m *Match) distributePot(ctx context.Context, pot *Pot, contenders []*Player) error {
	if len(contenders) == 0 {
		for _, position := range pot.Positions() {
			player := m.Table.PlayerAt(position)
			if player == nil {
				continue
			}
			if err := player.IncreaseBalance(ctx, pot.Bet(position)); err != nil {
				return err
			}
		}
		return nil
	}

	winners := DetermineWinningPlayers(contenders, m.Table.OpenCards)
	amount := pot.Amount()
	for _, winner := range winners {
		if err := winner.IncreaseBalance(ctx, amount/len(winners)); err != nil {
			return err
		}
	}
	rest := amount % len(winners)
	if rest != 0 {
		winner := m.earliestFromDealer(winners)
		if err := winner.IncreaseBalance(ctx, rest); err != nil {
			return err
		}
	}
	return nil
}

// earliestFromDealer returns the player reached first when scanning
// clockwise starting at the seat left of the dealer.
func (m *Match) earliestFromDealer(players []*Player) *Player {
	dealerPosition := 0
	if m.Table.Dealer != nil {
		dealerPosition = m.Table.Dealer.Position
	}
	best := players[0]
	for _, player := range players[1:] {
		bestWrapped := best.Position <= dealerPosition
		playerWrapped := player.Position <= dealerPosition
		if playerWrapped == bestWrapped {
			if player.Position < best.Position {
				best = player
			}
		} else if bestWrapped {
			best = player
		}
	}
	return best
}

// findBankruptPlayers returns, in seating order, the players who
// cannot afford the next hand: the blind seats need their blind, every
// other seat at least one chip.
func (m *Match) findBankruptPlayers(dealer *Player) []*Player {
	smallBlindPlayer, bigBlindPlayer, _ := m.findBlindPlayers(dealer)
	var bankrupt []*Player
	for _, player := range m.Table.Players {
		requiredBalance := 1
		switch player {
		case smallBlindPlayer:
			requiredBalance = m.Table.Config.SmallBlind
		case bigBlindPlayer:
			requiredBalance = m.Table.Config.BigBlind
		}
		if player.Balance < requiredBalance {
			bankrupt = append(bankrupt, player)
		}
	}
	return bankrupt
}

// CloseTable records statistics for everyone still seated and closes
// the table.
func (m *Match) CloseTable(ctx context.Context) error {
	log.Printf("[Match] closing table %s", m.Table.Name)
	for _, player := range m.Table.Players {
		if err := m.incrementStatsForPlayer(ctx, player); err != nil {
			return err
		}
	}
	return m.Table.Close(ctx)
}

func (m *Match) incrementStatsForPlayer(ctx context.Context, player *Player) error {
	return m.stores.Stats.IncrementStats(ctx, player.Name, 1, m.Table.Config.StartBalance, player.Balance)
}

func (m *Match) highestBet() int {
	highest := 0
	for _, player := range m.Table.Players {
		if player.Bet > highest {
			highest = player.Bet
		}
	}
	return highest
}

// hasMadeTurn reports whether player already acted in the current
// betting round, judged by whether their seat lies between the round's
// start seat and the seat that just acted.
func (m *Match) hasMadeTurn(player, currentPlayer *Player) bool {
	startPlayer := m.findStartPlayer(m.Table.Dealer, m.Table.Round())
	for _, position := range m.Table.PlayerPositionsBetween(startPlayer.Position, currentPlayer.Position) {
		if position == player.Position {
			return true
		}
	}
	return false
}
