package app

import "errors"

// Sentinel errors for the subscription subsystem. Handlers translate these
// to HTTP statuses; messages never carry internal or provider identifiers.
var (
	ErrPlanNotFound         = errors.New("plan not found")
	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrProjectNotFound      = errors.New("project not found")
	ErrDrawingNotFound      = errors.New("drawing not found")
)
