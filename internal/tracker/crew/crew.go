// Package crew classifies users by when they are most active.
package crew

import (
	"context"

	"github.com/lunalog/lunalog/internal/database"
	"github.com/lunalog/lunalog/internal/database/types"
	"github.com/lunalog/lunalog/internal/database/types/enum"
	"go.uber.org/zap"
)

// Share thresholds above which a crew is assigned.
const (
	WeekendShare = 0.55
	BucketShare  = 0.4
)

// Classify returns the crew for a user's all-time totals. Weekend activity
// takes priority, then day-parts in order from night to evening.
func Classify(totals types.ActivityTotals) enum.Crew {
	total := totals.BucketTotal()
	if total <= 0 {
		return enum.CrewMixed
	}

	if float64(totals.Weekend)/float64(total) > WeekendShare {
		return enum.CrewWeekend
	}

	for _, b := range enum.BucketValues() {
		if float64(totals.Bucket(b))/float64(total) > BucketShare {
			return bucketCrew(b)
		}
	}

	return enum.CrewMixed
}

func bucketCrew(b enum.Bucket) enum.Crew {
	switch b {
	case enum.BucketNight:
		return enum.CrewNight
	case enum.BucketMorning:
		return enum.CrewMorning
	case enum.BucketAfternoon:
		return enum.CrewAfternoon
	case enum.BucketEvening:
		return enum.CrewEvening
	}
	return enum.CrewMixed
}

// Classifier classifies users from their stored totals.
type Classifier struct {
	db     database.Client
	logger *zap.Logger
}

// NewClassifier creates a Classifier.
func NewClassifier(db database.Client, logger *zap.Logger) *Classifier {
	return &Classifier{
		db:     db,
		logger: logger.Named("crew_classifier"),
	}
}

// ClassifyUser reads the user's totals and classifies them. A failed read
// classifies as Mixed.
func (c *Classifier) ClassifyUser(ctx context.Context, userID uint64) enum.Crew {
	totals, err := c.db.Model().Activity().Totals(ctx, userID)
	if err != nil {
		c.logger.Error("Failed to read activity totals",
			zap.Error(err),
			zap.Uint64("userID", userID))
		return enum.CrewMixed
	}
	return Classify(totals)
}
