// Package store implements the relational persistence behind the poker
// engine. SQLite is the default backend, Postgres can be selected via
// the environment.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/MartinAltmayer/pokerserver-sub000/card"
	"github.com/MartinAltmayer/pokerserver-sub000/poker"
)

const defaultSQLitePath = "pokerserver.db"

// SQLiteService implements the table, player and statistics stores on a
// single SQLite database.
type SQLiteService struct {
	db *sql.DB
}

func NewSQLiteServiceFromEnv() (*SQLiteService, error) {
	path := strings.TrimSpace(os.Getenv("STORE_DATABASE_PATH"))
	if path == "" {
		path = defaultSQLitePath
	}
	return NewSQLiteService(path)
}

func NewSQLiteService(dbPath string) (*SQLiteService, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSQLiteSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteService{db: db}, nil
}

func (s *SQLiteService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteService) CreateTable(ctx context.Context, rec poker.TableRecord) error {
	pots, err := marshalPots(rec.Pots)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO tables (
    table_id, name, min_player_count, max_player_count, remaining_deck,
    small_blind, big_blind, start_balance, open_cards, pots,
    current_player, current_player_token, dealer, is_closed, joined_players
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, rec.TableID, rec.Name, rec.Config.MinPlayerCount, rec.Config.MaxPlayerCount,
		card.JoinTokens(rec.RemainingDeck), rec.Config.SmallBlind, rec.Config.BigBlind,
		rec.Config.StartBalance, card.JoinTokens(rec.OpenCards), pots,
		rec.CurrentPlayer, rec.CurrentPlayerToken, rec.Dealer,
		boolToInt(rec.IsClosed), strings.Join(rec.JoinedPlayers, " "))
	if isSQLiteUniqueViolation(err) {
		return fmt.Errorf("table %q: %w", rec.Name, poker.ErrDuplicateKey)
	}
	return err
}

const tableColumns = `
    table_id, name, min_player_count, max_player_count, remaining_deck,
    small_blind, big_blind, start_balance, open_cards, pots,
    current_player, current_player_token, dealer, is_closed, joined_players`

func (s *SQLiteService) LoadAllTables(ctx context.Context) ([]poker.TableRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT`+tableColumns+` FROM tables ORDER BY table_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []poker.TableRecord
	for rows.Next() {
		rec, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *SQLiteService) LoadTableByName(ctx context.Context, name string) (poker.TableRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT`+tableColumns+` FROM tables WHERE name = ?`, name)
	rec, err := scanTable(row)
	if errors.Is(err, sql.ErrNoRows) {
		return poker.TableRecord{}, fmt.Errorf("%w: %s", poker.ErrTableNotFound, name)
	}
	return rec, err
}

func (s *SQLiteService) SetDealer(ctx context.Context, tableID int, dealer string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE tables SET dealer = ? WHERE table_id = ?`, dealer, tableID)
	return err
}

func (s *SQLiteService) SetCurrentPlayer(ctx context.Context, tableID int, name, token string) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE tables SET current_player = ?, current_player_token = ? WHERE table_id = ?
`, name, token, tableID)
	return err
}

func (s *SQLiteService) CheckAndUnsetCurrentPlayer(ctx context.Context, tableID int, name, token string) (bool, error) {
	var res sql.Result
	var err error
	if token == "" {
		res, err = s.db.ExecContext(ctx, `
UPDATE tables SET current_player = '', current_player_token = ''
WHERE table_id = ? AND current_player = ?
`, tableID, name)
	} else {
		res, err = s.db.ExecContext(ctx, `
UPDATE tables SET current_player = '', current_player_token = ''
WHERE table_id = ? AND current_player = ? AND current_player_token = ?
`, tableID, name, token)
	}
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *SQLiteService) SetCards(ctx context.Context, tableID int, remainingDeck, openCards []card.Card) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE tables SET remaining_deck = ?, open_cards = ? WHERE table_id = ?
`, card.JoinTokens(remainingDeck), card.JoinTokens(openCards), tableID)
	return err
}

func (s *SQLiteService) SetPots(ctx context.Context, tableID int, pots []*poker.Pot) error {
	encoded, err := marshalPots(pots)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE tables SET pots = ? WHERE table_id = ?`, encoded, tableID)
	return err
}

func (s *SQLiteService) AddJoinedPlayer(ctx context.Context, tableID int, name string) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE tables SET joined_players = TRIM(joined_players || ' ' || ?) WHERE table_id = ?
`, name, tableID)
	return err
}

func (s *SQLiteService) CloseTable(ctx context.Context, tableID int) error {
	_, err := s.db.ExecContext(ctx, `UPDATE tables SET is_closed = 1 WHERE table_id = ?`, tableID)
	return err
}

func (s *SQLiteService) AddPlayer(ctx context.Context, rec poker.PlayerRecord) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO players (table_id, position, name, balance, cards, bet, last_seen_ms, state)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, rec.TableID, rec.Position, rec.Name, rec.Balance, card.JoinTokens(rec.Cards),
		rec.Bet, rec.LastSeen.UnixMilli(), string(rec.State))
	if isSQLiteUniqueViolation(err) {
		return fmt.Errorf("player %q at position %d: %w", rec.Name, rec.Position, poker.ErrDuplicateKey)
	}
	return err
}

func (s *SQLiteService) LoadPlayersByTableID(ctx context.Context, tableID int) ([]poker.PlayerRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT table_id, position, name, balance, cards, bet, last_seen_ms, state
FROM players
WHERE table_id = ?
ORDER BY position
`, tableID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []poker.PlayerRecord
	for rows.Next() {
		var rec poker.PlayerRecord
		var cards string
		var lastSeenMs int64
		var state string
		if err := rows.Scan(&rec.TableID, &rec.Position, &rec.Name, &rec.Balance,
			&cards, &rec.Bet, &lastSeenMs, &state); err != nil {
			return nil, err
		}
		rec.Cards, err = card.SplitTokens(cards)
		if err != nil {
			return nil, err
		}
		rec.LastSeen = time.UnixMilli(lastSeenMs).UTC()
		rec.State = poker.PlayerState(state)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *SQLiteService) SetBalance(ctx context.Context, tableID, position, balance int) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE players SET balance = ? WHERE table_id = ? AND position = ?
`, balance, tableID, position)
	return err
}

func (s *SQLiteService) SetBalanceAndBet(ctx context.Context, tableID, position, balance, bet int) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE players SET balance = ?, bet = ? WHERE table_id = ? AND position = ?
`, balance, bet, tableID, position)
	return err
}

func (s *SQLiteService) SetPlayerCards(ctx context.Context, tableID, position int, cards []card.Card) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE players SET cards = ? WHERE table_id = ? AND position = ?
`, card.JoinTokens(cards), tableID, position)
	return err
}

func (s *SQLiteService) SetState(ctx context.Context, tableID, position int, state poker.PlayerState) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE players SET state = ? WHERE table_id = ? AND position = ?
`, string(state), tableID, position)
	return err
}

func (s *SQLiteService) DeletePlayer(ctx context.Context, tableID, position int) error {
	_, err := s.db.ExecContext(ctx, `
DELETE FROM players WHERE table_id = ? AND position = ?
`, tableID, position)
	return err
}

func (s *SQLiteService) IncrementStats(ctx context.Context, name string, matches, buyIn, gain int) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO stats (player_name, matches, buy_in, gain)
VALUES (?, ?, ?, ?)
ON CONFLICT (player_name) DO UPDATE
SET matches = stats.matches + excluded.matches,
    buy_in = stats.buy_in + excluded.buy_in,
    gain = stats.gain + excluded.gain
`, name, matches, buyIn, gain)
	return err
}

func (s *SQLiteService) LoadAllStats(ctx context.Context) ([]poker.PlayerStatistics, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT player_name, matches, buy_in, gain FROM stats ORDER BY player_name
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []poker.PlayerStatistics
	for rows.Next() {
		var st poker.PlayerStatistics
		if err := rows.Scan(&st.PlayerName, &st.Matches, &st.BuyIn, &st.Gain); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

func ensureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS tables (
    table_id INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    min_player_count INTEGER NOT NULL,
    max_player_count INTEGER NOT NULL,
    remaining_deck TEXT NOT NULL DEFAULT '',
    small_blind INTEGER NOT NULL,
    big_blind INTEGER NOT NULL,
    start_balance INTEGER NOT NULL,
    open_cards TEXT NOT NULL DEFAULT '',
    pots TEXT NOT NULL DEFAULT '[]',
    current_player TEXT NOT NULL DEFAULT '',
    current_player_token TEXT NOT NULL DEFAULT '',
    dealer TEXT NOT NULL DEFAULT '',
    is_closed INTEGER NOT NULL DEFAULT 0,
    joined_players TEXT NOT NULL DEFAULT ''
)`,
		`
CREATE TABLE IF NOT EXISTS players (
    table_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    name TEXT NOT NULL UNIQUE,
    balance INTEGER NOT NULL,
    cards TEXT NOT NULL DEFAULT '',
    bet INTEGER NOT NULL DEFAULT 0,
    last_seen_ms INTEGER NOT NULL,
    state TEXT NOT NULL,
    PRIMARY KEY (table_id, position)
)`,
		`
CREATE TABLE IF NOT EXISTS stats (
    player_name TEXT PRIMARY KEY,
    matches INTEGER NOT NULL DEFAULT 0,
    buy_in INTEGER NOT NULL DEFAULT 0,
    gain INTEGER NOT NULL DEFAULT 0
)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTable(row rowScanner) (poker.TableRecord, error) {
	var rec poker.TableRecord
	var remainingDeck, openCards, pots, joinedPlayers string
	var isClosed int
	err := row.Scan(&rec.TableID, &rec.Name, &rec.Config.MinPlayerCount,
		&rec.Config.MaxPlayerCount, &remainingDeck, &rec.Config.SmallBlind,
		&rec.Config.BigBlind, &rec.Config.StartBalance, &openCards, &pots,
		&rec.CurrentPlayer, &rec.CurrentPlayerToken, &rec.Dealer, &isClosed, &joinedPlayers)
	if err != nil {
		return poker.TableRecord{}, err
	}
	rec.RemainingDeck, err = card.SplitTokens(remainingDeck)
	if err != nil {
		return poker.TableRecord{}, err
	}
	rec.OpenCards, err = card.SplitTokens(openCards)
	if err != nil {
		return poker.TableRecord{}, err
	}
	rec.Pots, err = unmarshalPots(pots)
	if err != nil {
		return poker.TableRecord{}, err
	}
	rec.IsClosed = isClosed != 0
	rec.JoinedPlayers = strings.Fields(joinedPlayers)
	return rec, nil
}

func marshalPots(pots []*poker.Pot) (string, error) {
	if pots == nil {
		pots = []*poker.Pot{}
	}
	raw, err := json.Marshal(pots)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func unmarshalPots(encoded string) ([]*poker.Pot, error) {
	if strings.TrimSpace(encoded) == "" {
		return nil, nil
	}
	var pots []*poker.Pot
	if err := json.Unmarshal([]byte(encoded), &pots); err != nil {
		return nil, err
	}
	for _, pot := range pots {
		if pot.Bets == nil {
			pot.Bets = make(map[int]int)
		}
	}
	return pots, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isSQLiteUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
