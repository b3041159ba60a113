package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrFeedUnavailable       = errors.New("feed unavailable")
	ErrReconciliation        = errors.New("reconciliation failed")
	ErrAggregation           = errors.New("leaderboard aggregation failed")
)
