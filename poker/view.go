package poker

import "github.com/MartinAltmayer/pokerserver-sub000/card"

// PlayerView is the JSON shape of a seated player. Hole cards are only
// included for the player viewing the table.
type PlayerView struct {
	TableID  int      `json:"table_id"`
	Position int      `json:"position"`
	Name     string   `json:"name"`
	Balance  int      `json:"balance"`
	Cards    []string `json:"cards"`
	Bet      int      `json:"bet"`
	State    string   `json:"state"`
}

type PotView struct {
	Bets   map[int]int `json:"bets"`
	Amount int         `json:"amount"`
}

// TableView is the JSON shape of a table as seen by one viewer.
type TableView struct {
	Players       []PlayerView `json:"players"`
	SmallBlind    int          `json:"small_blind"`
	BigBlind      int          `json:"big_blind"`
	Round         string       `json:"round"`
	OpenCards     []string     `json:"open_cards"`
	Pots          []PotView    `json:"pots"`
	CurrentPlayer string       `json:"current_player"`
	Dealer        string       `json:"dealer"`
	IsClosed      bool         `json:"is_closed"`
	CanJoin       bool         `json:"can_join"`
}

// TableInfoView is the compact shape used by the table list.
type TableInfoView struct {
	Name           string         `json:"name"`
	MinPlayerCount int            `json:"min_player_count"`
	MaxPlayerCount int            `json:"max_player_count"`
	Players        map[int]string `json:"players"`
}

func (p *Player) view(showCards bool) PlayerView {
	cards := []string{}
	if showCards {
		cards = card.Tokens(p.Cards)
	}
	return PlayerView{
		TableID:  p.TableID,
		Position: p.Position,
		Name:     p.Name,
		Balance:  p.Balance,
		Cards:    cards,
		Bet:      p.Bet,
		State:    string(p.State),
	}
}

// View renders the table for the given viewer. An empty viewer name
// renders the public view with no hole cards. CanJoin is viewer-scoped
// rather than a property of the table: joining requires an
// authenticated player, so the anonymous view never reports the table
// as joinable.
func (t *Table) View(viewerName string) TableView {
	players := make([]PlayerView, 0, len(t.Players))
	for _, player := range t.Players {
		players = append(players, player.view(player.Name == viewerName))
	}
	pots := make([]PotView, 0, len(t.Pots))
	for _, pot := range t.Pots {
		bets := make(map[int]int, len(pot.Bets))
		for position, bet := range pot.Bets {
			bets[position] = bet
		}
		pots = append(pots, PotView{Bets: bets, Amount: pot.Amount()})
	}
	currentPlayer := ""
	if t.CurrentPlayer != nil {
		currentPlayer = t.CurrentPlayer.Name
	}
	dealer := ""
	if t.Dealer != nil {
		dealer = t.Dealer.Name
	}
	canJoin := viewerName != "" &&
		!t.IsClosed &&
		!t.IsPlayerAtTable(viewerName) &&
		!t.HasJoined(viewerName) &&
		t.IsFree()
	return TableView{
		Players:       players,
		SmallBlind:    t.Config.SmallBlind,
		BigBlind:      t.Config.BigBlind,
		Round:         string(t.Round()),
		OpenCards:     card.Tokens(t.OpenCards),
		Pots:          pots,
		CurrentPlayer: currentPlayer,
		Dealer:        dealer,
		IsClosed:      t.IsClosed,
		CanJoin:       canJoin,
	}
}

// InfoView renders the table for the table list.
func (t *Table) InfoView() TableInfoView {
	players := make(map[int]string, len(t.Players))
	for _, player := range t.Players {
		players[player.Position] = player.Name
	}
	return TableInfoView{
		Name:           t.Name,
		MinPlayerCount: t.Config.MinPlayerCount,
		MaxPlayerCount: t.Config.MaxPlayerCount,
		Players:        players,
	}
}
