package poker

import (
	"context"
	"time"

	"github.com/MartinAltmayer/pokerserver-sub000/card"
)

// Player is a seated player. All mutations go through the player store
// so the in-memory state never diverges from the database.
type Player struct {
	TableID  int
	Position int
	Name     string
	Balance  int
	Cards    []card.Card
	Bet      int
	LastSeen time.Time
	State    PlayerState

	store PlayerStore
}

func newPlayer(store PlayerStore, rec PlayerRecord) *Player {
	return &Player{
		TableID:  rec.TableID,
		Position: rec.Position,
		Name:     rec.Name,
		Balance:  rec.Balance,
		Cards:    rec.Cards,
		Bet:      rec.Bet,
		LastSeen: rec.LastSeen,
		State:    rec.State,
		store:    store,
	}
}

func (p *Player) IsAllIn() bool { return p.State == StateAllIn }

func (p *Player) IsFolded() bool { return p.State == StateFolded }

// IncreaseBet moves amount chips from the balance into the player's
// current bet. The caller must never pass a non-positive amount or more
// than the balance; going to exactly zero puts the player all in.
func (p *Player) IncreaseBet(ctx context.Context, amount int) error {
	if amount <= 0 {
		panic("bet increase must be positive")
	}
	if amount > p.Balance {
		panic("bet increase exceeds balance")
	}
	p.Balance -= amount
	p.Bet += amount
	if err := p.store.SetBalanceAndBet(ctx, p.TableID, p.Position, p.Balance, p.Bet); err != nil {
		return err
	}
	if p.Balance == 0 {
		return p.setState(ctx, StateAllIn)
	}
	return nil
}

// IncreaseBalance credits winnings to the player.
func (p *Player) IncreaseBalance(ctx context.Context, amount int) error {
	if amount < 0 {
		panic("balance increase must not be negative")
	}
	p.Balance += amount
	return p.store.SetBalance(ctx, p.TableID, p.Position, p.Balance)
}

// ClearBet resets the bet at the start of a betting round without
// touching the balance.
func (p *Player) ClearBet(ctx context.Context) error {
	p.Bet = 0
	return p.store.SetBalanceAndBet(ctx, p.TableID, p.Position, p.Balance, 0)
}

func (p *Player) SetCards(ctx context.Context, cards []card.Card) error {
	p.Cards = cards
	return p.store.SetPlayerCards(ctx, p.TableID, p.Position, cards)
}

func (p *Player) Fold(ctx context.Context) error {
	return p.setState(ctx, StateFolded)
}

func (p *Player) setState(ctx context.Context, state PlayerState) error {
	p.State = state
	return p.store.SetState(ctx, p.TableID, p.Position, state)
}

// ResetForNewHand returns the player to the playing state with no bet
// and no cards.
func (p *Player) ResetForNewHand(ctx context.Context) error {
	if err := p.ClearBet(ctx); err != nil {
		return err
	}
	if err := p.SetCards(ctx, []card.Card{}); err != nil {
		return err
	}
	return p.setState(ctx, StatePlaying)
}
