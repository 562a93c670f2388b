package commands

import (
	"errors"

	"github.com/lunalog/lunalog/internal/database"
	"github.com/lunalog/lunalog/internal/setup/config"
	"github.com/redis/rueidis"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

var (
	ErrNameRequired  = errors.New("NAME argument required")
	ErrBoardRequired = errors.New("BOARD argument required")
	ErrInvalidDate   = errors.New("invalid date, expected YYYY-MM-DD")
)

// CLIDependencies holds the common dependencies needed by CLI commands.
type CLIDependencies struct {
	Config    *config.Config
	DB        database.Client
	Migrator  *migrate.Migrator
	Cache     rueidis.Client // nil when Redis is disabled
	RecapLock rueidis.Client // nil when Redis is disabled
	Logger    *zap.Logger
}
