package service

import "time"

const (
	// FinalCountdownThreshold is the remaining time below which a giveaway
	// enters the per-second ending animation.
	FinalCountdownThreshold = 4 * time.Second
	// FinalCountdownSteps is the number of animation frames.
	FinalCountdownSteps = 3
	// DefaultFinalCountdownFrame is how long each animation frame is shown.
	DefaultFinalCountdownFrame = time.Second

	DefaultCountdownInterval   = 10 * time.Second
	DefaultRequirementInterval = 8 * time.Minute
	// RequirementInitialDelay is how long after startup the first server
	// requirement resolution runs.
	RequirementInitialDelay = 15 * time.Second
)
