package creative

import (
	"context"
	"strings"
	"time"

	"github.com/proveen/testimonial-bot/internal/models"
)

// placeholderImagePath is served as a static asset; the simulator points at
// it so callers always get a renderable image.
const placeholderImagePath = "/assets/generated_placeholder.png"

// Simulator produces a deterministic local generation result. It backs the
// orchestrator's always-succeed contract when the vendor is unreachable or
// unconfigured.
type Simulator struct {
	Delay time.Duration
}

// NewSimulator creates a simulator with the production artificial delay.
func NewSimulator() *Simulator {
	return &Simulator{Delay: 2500 * time.Millisecond}
}

// Generate synthesizes an output after the fixed artificial delay.
func (s *Simulator) Generate(ctx context.Context, input models.WiroAIInput) models.WiroAIOutput {
	select {
	case <-time.After(s.Delay):
	case <-ctx.Done():
	}

	sentiment := 0.7
	if strings.Contains(strings.ToLower(input.TestimonialContent), "great") {
		sentiment = 0.9
	}

	return models.WiroAIOutput{
		Quote:     extractQuote(input.TestimonialContent),
		Sentiment: sentiment,
		Hashtags:  []string{"#proveen", "#customerfeedback", "#" + strings.ToLower(string(input.SocialPlatform))},
		ImageURL:  placeholderImagePath,
		Simulated: true,
	}
}

// extractQuote shortens a testimonial to its first twelve words for display,
// with an ellipsis when truncated.
func extractQuote(content string) string {
	words := strings.Fields(content)
	if len(words) <= 12 {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:12], " ") + "..."
}
