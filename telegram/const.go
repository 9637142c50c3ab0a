package telegram

import "time"

const (
	Version = "v1.0.0"

	// Rule priorities, lower values are tried first inside a bucket.
	PriorityPattern  = 100
	PriorityText     = 200
	PriorityContains = 300
	PriorityRegExp   = 400
	PriorityCatchAll = 1000000

	DefaultInterval           = 100 * time.Millisecond
	DefaultTimeoutDelay       = time.Second
	DefaultServerErrorBackoff = 5 * time.Second
	DefaultSchedulerLimit     = 100
	DefaultPendingLimit       = 10000

	WebhookSecretHeader = "X-Telegram-Bot-Api-Secret-Token"
)
