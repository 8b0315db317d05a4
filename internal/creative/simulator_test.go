package creative

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/proveen/testimonial-bot/internal/models"
)

func TestSimulator_Generate(t *testing.T) {
	sim := &Simulator{Delay: 0}

	output := sim.Generate(context.Background(), models.WiroAIInput{
		TestimonialContent: "Great product that saved us a lot of time",
		SocialPlatform:     models.PlatformInstagram,
		Format:             models.FormatPost,
	})

	assert.Equal(t, "Great product that saved us a lot of time", output.Quote)
	assert.Equal(t, 0.9, output.Sentiment, "testimonials mentioning 'great' score higher")
	assert.Equal(t, []string{"#proveen", "#customerfeedback", "#instagram"}, output.Hashtags)
	assert.Equal(t, placeholderImagePath, output.ImageURL)
	assert.True(t, output.Simulated)
}

func TestSimulator_NeutralSentiment(t *testing.T) {
	sim := &Simulator{Delay: 0}

	output := sim.Generate(context.Background(), models.WiroAIInput{
		TestimonialContent: "It works as advertised",
		SocialPlatform:     models.PlatformLinkedIn,
	})

	assert.Equal(t, 0.7, output.Sentiment)
	assert.Equal(t, []string{"#proveen", "#customerfeedback", "#linkedin"}, output.Hashtags)
}

func TestSimulator_ContextCancelSkipsDelay(t *testing.T) {
	sim := &Simulator{Delay: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	output := sim.Generate(ctx, models.WiroAIInput{TestimonialContent: "Fine"})
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, output.Simulated, "a cancelled context still yields a usable result")
}

func TestExtractQuote(t *testing.T) {
	assert.Equal(t, "short one", extractQuote("short one"))
	assert.Equal(t, "", extractQuote(""))

	long := "one two three four five six seven eight nine ten eleven twelve thirteen"
	assert.Equal(t, "one two three four five six seven eight nine ten eleven twelve...", extractQuote(long))

	exact := "one two three four five six seven eight nine ten eleven twelve"
	assert.Equal(t, exact, extractQuote(exact), "exactly twelve words are not truncated")
}
