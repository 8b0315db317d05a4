package notifications

import "github.com/proveen/testimonial-bot/internal/models"

// NotificationInterface is the contract for operator-facing alerts. End users
// never see these: scrape failures surface inline in the UI and generation
// failures are masked by the simulator, so this channel is how operators find
// out something is degraded.
type NotificationInterface interface {
	NotifyRefreshFailure(source models.ReviewSource, cause error)
	NotifyGenerationFallback(reason string)
}
