package poker

import (
	"context"
	"time"

	"github.com/MartinAltmayer/pokerserver-sub000/card"
)

// TableConfig holds the parameters shared by every hand played at a
// table.
type TableConfig struct {
	MinPlayerCount int `json:"min_player_count"`
	MaxPlayerCount int `json:"max_player_count"`
	SmallBlind     int `json:"small_blind"`
	BigBlind       int `json:"big_blind"`
	StartBalance   int `json:"start_balance"`
}

// PlayerState describes whether a seat still takes part in the current
// hand.
type PlayerState string

const (
	StatePlaying    PlayerState = "PLAYING"
	StateFolded     PlayerState = "FOLDED"
	StateAllIn      PlayerState = "ALL_IN"
	StateSittingOut PlayerState = "SITTING_OUT"
)

// TableRecord is the persisted form of a table.
type TableRecord struct {
	TableID            int
	Name               string
	Config             TableConfig
	RemainingDeck      []card.Card
	OpenCards          []card.Card
	Pots               []*Pot
	CurrentPlayer      string
	CurrentPlayerToken string
	Dealer             string
	IsClosed           bool
	JoinedPlayers      []string
}

// PlayerRecord is the persisted form of a seated player.
type PlayerRecord struct {
	TableID  int
	Position int
	Name     string
	Balance  int
	Cards    []card.Card
	Bet      int
	LastSeen time.Time
	State    PlayerState
}

// PlayerStatistics accumulates a player's lifetime results across all
// tables they were removed from.
type PlayerStatistics struct {
	PlayerName string `json:"player_name"`
	Matches    int    `json:"matches"`
	BuyIn      int    `json:"buy_in"`
	Gain       int    `json:"gain"`
}

// TableStore persists tables. Implementations must enforce a unique
// table name.
type TableStore interface {
	CreateTable(ctx context.Context, rec TableRecord) error
	LoadAllTables(ctx context.Context) ([]TableRecord, error)
	LoadTableByName(ctx context.Context, name string) (TableRecord, error)
	SetDealer(ctx context.Context, tableID int, dealer string) error
	SetCurrentPlayer(ctx context.Context, tableID int, name, token string) error
	// CheckAndUnsetCurrentPlayer atomically clears the current player
	// if it matches name (and token, when token is non-empty) and
	// reports whether it did. This is what prevents a player from
	// acting twice and a stale timeout from kicking the wrong turn.
	CheckAndUnsetCurrentPlayer(ctx context.Context, tableID int, name, token string) (bool, error)
	SetCards(ctx context.Context, tableID int, remainingDeck, openCards []card.Card) error
	SetPots(ctx context.Context, tableID int, pots []*Pot) error
	AddJoinedPlayer(ctx context.Context, tableID int, name string) error
	CloseTable(ctx context.Context, tableID int) error
}

// PlayerStore persists seated players. AddPlayer must return
// ErrDuplicateKey when the seat or the player name is already taken so
// that concurrent joins resolve to exactly one winner.
type PlayerStore interface {
	AddPlayer(ctx context.Context, rec PlayerRecord) error
	LoadPlayersByTableID(ctx context.Context, tableID int) ([]PlayerRecord, error)
	SetBalance(ctx context.Context, tableID, position, balance int) error
	SetBalanceAndBet(ctx context.Context, tableID, position, balance, bet int) error
	SetPlayerCards(ctx context.Context, tableID, position int, cards []card.Card) error
	SetState(ctx context.Context, tableID, position int, state PlayerState) error
	DeletePlayer(ctx context.Context, tableID, position int) error
}

// StatsStore persists lifetime player statistics.
type StatsStore interface {
	IncrementStats(ctx context.Context, name string, matches, buyIn, gain int) error
	LoadAllStats(ctx context.Context) ([]PlayerStatistics, error)
}

// Stores bundles the three stores the engine mutates.
type Stores struct {
	Tables  TableStore
	Players PlayerStore
	Stats   StatsStore
}
