package database

import (
	"github.com/lunalog/lunalog/internal/database/service"
	"github.com/lunalog/lunalog/internal/setup/config"
	"go.uber.org/zap"
)

// Service provides access to all business logic services.
type Service struct {
	moment *service.MomentService
	vibe   *service.VibeService
	link   *service.LinkService
}

// NewService creates a new service instance with all services.
func NewService(repository *Repository, cfg *config.Config, logger *zap.Logger) *Service {
	return &Service{
		moment: service.NewMoment(repository.Moment(), cfg.Bot.Moments.MaxPerUser, logger),
		vibe:   service.NewVibe(repository.User(), cfg.Vibes.Names(), logger),
		link:   service.NewLink(repository.Interaction(), cfg.Bot.Moments.MaxMostSeenWith, logger),
	}
}

// Moment returns the moment service.
func (s *Service) Moment() *service.MomentService {
	return s.moment
}

// Vibe returns the vibe service.
func (s *Service) Vibe() *service.VibeService {
	return s.vibe
}

// Link returns the link service.
func (s *Service) Link() *service.LinkService {
	return s.link
}
