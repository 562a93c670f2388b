package models

import "errors"

var ErrUnknownMetric = errors.New("unknown leaderboard metric")
