package database

import (
	"github.com/lunalog/lunalog/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	user        *models.UserModel
	activity    *models.ActivityModel
	interaction *models.InteractionModel
	moment      *models.MomentModel
	channel     *models.ChannelModel
	recap       *models.RecapModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		user:        models.NewUser(db, logger),
		activity:    models.NewActivity(db, logger),
		interaction: models.NewInteraction(db, logger),
		moment:      models.NewMoment(db, logger),
		channel:     models.NewChannel(db, logger),
		recap:       models.NewRecap(db, logger),
	}
}

// User returns the user model repository.
func (r *Repository) User() *models.UserModel {
	return r.user
}

// Activity returns the daily activity model repository.
func (r *Repository) Activity() *models.ActivityModel {
	return r.activity
}

// Interaction returns the interaction model repository.
func (r *Repository) Interaction() *models.InteractionModel {
	return r.interaction
}

// Moment returns the moment model repository.
func (r *Repository) Moment() *models.MomentModel {
	return r.moment
}

// Channel returns the channel ownership model repository.
func (r *Repository) Channel() *models.ChannelModel {
	return r.channel
}

// Recap returns the recap run model repository.
func (r *Repository) Recap() *models.RecapModel {
	return r.recap
}
