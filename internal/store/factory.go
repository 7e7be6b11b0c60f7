package store

import (
	"fmt"
	"os"
	"strings"

	"github.com/MartinAltmayer/pokerserver-sub000/poker"
)

const (
	ModeSQLite   = "sqlite"
	ModePostgres = "postgres"
)

// Service is the full store surface backed by one database.
type Service interface {
	poker.TableStore
	poker.PlayerStore
	poker.StatsStore
	Close() error
}

func storeModeFromEnv() string {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("STORE_MODE")))
	switch raw {
	case "", ModeSQLite, "local":
		return ModeSQLite
	case ModePostgres, "postgresql", "pg":
		return ModePostgres
	default:
		return raw
	}
}

// NewServiceFromEnv selects the backend via STORE_MODE and builds it
// from the environment.
func NewServiceFromEnv() (Service, string, error) {
	mode := storeModeFromEnv()

	switch mode {
	case ModeSQLite:
		service, err := NewSQLiteServiceFromEnv()
		if err != nil {
			return nil, mode, err
		}
		return service, mode, nil
	case ModePostgres:
		service, err := NewPostgresServiceFromEnv()
		if err != nil {
			return nil, mode, err
		}
		return service, mode, nil
	default:
		return nil, mode, fmt.Errorf("invalid STORE_MODE %q (supported: %s, %s)", mode, ModeSQLite, ModePostgres)
	}
}

// Stores adapts a Service to the bundle the engine consumes.
func Stores(service Service) poker.Stores {
	return poker.Stores{Tables: service, Players: service, Stats: service}
}
