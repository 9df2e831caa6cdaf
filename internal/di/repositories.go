package di

import (
	"fmt"

	"github.com/aristath/frontier/internal/modules/calculations"
	"github.com/aristath/frontier/internal/modules/history"
	"github.com/aristath/frontier/internal/modules/prices"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates the repositories over the open databases
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil || container.HistoryDB == nil || container.CacheDB == nil {
		return fmt.Errorf("databases must be initialized first")
	}

	container.PriceRepo = prices.NewRepository(container.HistoryDB.Conn(), log)
	container.HistoryRepo = history.NewRepository(container.HistoryDB.Conn(), log)
	container.Cache = calculations.NewCache(container.CacheDB.Conn(), log)

	return nil
}
