package poker

import "errors"

var (
	ErrTableNotFound       = errors.New("table not found")
	ErrPlayerNotFound      = errors.New("player not found")
	ErrTableClosed         = errors.New("table is closed")
	ErrNotYourTurn         = errors.New("not your turn")
	ErrInvalidTurn         = errors.New("invalid action in this situation")
	ErrInvalidBet          = errors.New("invalid bet amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrPositionOccupied    = errors.New("position occupied")
	ErrAlreadyJoined       = errors.New("player already joined this table")
	ErrInvalidPosition     = errors.New("invalid position")

	// ErrDuplicateKey is returned by stores when an insert violates a
	// uniqueness constraint. The engine translates it into the
	// appropriate domain error.
	ErrDuplicateKey = errors.New("duplicate key")
)
