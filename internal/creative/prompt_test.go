package creative

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proveen/testimonial-bot/internal/models"
)

func TestSpecFor(t *testing.T) {
	tests := []struct {
		platform   models.SocialPlatform
		format     models.CreativeFormat
		ratio      string
		resolution string
	}{
		{models.PlatformInstagram, models.FormatPost, "1:1", "1024x1024"},
		{models.PlatformInstagram, models.FormatStory, "9:16", "1080x1920"},
		{models.PlatformLinkedIn, models.FormatPost, "1:1", "1200x1200"},
		{models.PlatformLinkedIn, models.FormatStory, "9:16", "1080x1920"},
		{models.PlatformTwitter, models.FormatPost, "1:1", "1080x1080"},
		{models.PlatformTwitter, models.FormatStory, "9:16", "1080x1920"},
		{models.PlatformFacebook, models.FormatPost, "1:1", "1080x1080"},
		{models.PlatformFacebook, models.FormatStory, "9:16", "1080x1920"},
	}

	for _, tt := range tests {
		t.Run(string(tt.platform)+"/"+string(tt.format), func(t *testing.T) {
			spec, err := SpecFor(tt.platform, tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.ratio, spec.Ratio)
			assert.Equal(t, tt.resolution, spec.Resolution)
			assert.NotEmpty(t, spec.PromptSuffix)
		})
	}
}

func TestSpecFor_UnknownCombinations(t *testing.T) {
	_, err := SpecFor("tiktok", models.FormatPost)
	assert.Error(t, err)

	_, err = SpecFor(models.PlatformInstagram, "reel")
	assert.Error(t, err)
}

func TestConstructPrompt_CoreContent(t *testing.T) {
	input := models.WiroAIInput{
		TestimonialContent: "Great product, saved us hours every week",
		SocialPlatform:     models.PlatformInstagram,
		Format:             models.FormatPost,
		CTA:                "Try it free",
	}

	prompt, err := ConstructPrompt(input, nil)
	require.NoError(t, err)

	assert.Contains(t, prompt, `"Great product, saved us hours every week"`)
	assert.Contains(t, prompt, "1:1")
	assert.Contains(t, prompt, "1024x1024")
	assert.Contains(t, prompt, "Instagram")
	assert.Contains(t, prompt, `Display "Try it free" prominently`)
	assert.Contains(t, prompt, "Helvetica", "missing brand typography falls back to Helvetica")
	assert.Contains(t, prompt, "Use vibrant professional colors", "missing brand config falls back to generic colors")
	assert.Contains(t, prompt, "TEXT ONLY", "no logo means text-only branding")
}

func TestConstructPrompt_BrandConfig(t *testing.T) {
	input := models.WiroAIInput{
		TestimonialContent: "Solid service",
		SocialPlatform:     models.PlatformLinkedIn,
		Format:             models.FormatPost,
	}
	brand := &models.BrandConfig{
		Name: "Proveen",
		Colors: models.BrandColors{
			Primary:   "#112233",
			Secondary: "#445566",
			Accent:    "#778899",
		},
		Typography: models.BrandTypography{FontFamily: "Inter"},
	}

	prompt, err := ConstructPrompt(input, brand)
	require.NoError(t, err)

	assert.Contains(t, prompt, "Primary: #112233")
	assert.Contains(t, prompt, "Secondary: #445566")
	assert.Contains(t, prompt, "Accent: #778899")
	assert.Contains(t, prompt, "Inter")
	assert.NotContains(t, prompt, "Use vibrant professional colors")
	assert.Contains(t, prompt, `brand name "Proveen" TEXT ONLY`)
}

func TestConstructPrompt_LogoClause(t *testing.T) {
	input := models.WiroAIInput{
		TestimonialContent: "Solid service",
		SocialPlatform:     models.PlatformFacebook,
		Format:             models.FormatStory,
	}
	brand := &models.BrandConfig{
		Name:  "Proveen",
		Logos: models.BrandLogos{Primary: "https://cdn.example/logo.png"},
	}

	prompt, err := ConstructPrompt(input, brand)
	require.NoError(t, err)

	assert.Contains(t, prompt, "Incorporate the logo from the input image")
	assert.NotContains(t, prompt, "TEXT ONLY")
}

func TestConstructPrompt_ReviewerSection(t *testing.T) {
	input := models.WiroAIInput{
		TestimonialContent: "Solid service",
		SocialPlatform:     models.PlatformTwitter,
		Format:             models.FormatPost,
		ReviewerInfo: &models.ReviewerInfo{
			Name:          "Dana Miles",
			Rating:        4,
			Avatar:        "https://avatars.example/dana.png",
			IncludeName:   true,
			IncludeRating: true,
			IncludeAvatar: true,
		},
	}

	prompt, err := ConstructPrompt(input, nil)
	require.NoError(t, err)

	assert.Contains(t, prompt, "Reviewer Name: Dana Miles")
	assert.Contains(t, prompt, "Rating: 4/5 "+strings.Repeat("⭐", 4)+"☆")
	assert.Contains(t, prompt, "profile picture/avatar")
}

func TestConstructPrompt_ReviewerFlagsOff(t *testing.T) {
	input := models.WiroAIInput{
		TestimonialContent: "Solid service",
		SocialPlatform:     models.PlatformTwitter,
		Format:             models.FormatPost,
		ReviewerInfo: &models.ReviewerInfo{
			Name:   "Dana Miles",
			Rating: 4,
		},
	}

	prompt, err := ConstructPrompt(input, nil)
	require.NoError(t, err)

	assert.NotContains(t, prompt, "Dana Miles", "name is only shown when explicitly enabled")
	assert.NotContains(t, prompt, "Reviewer Information")
}

func TestConstructPrompt_AdditionalInstructions(t *testing.T) {
	input := models.WiroAIInput{
		TestimonialContent: "Solid service",
		SocialPlatform:     models.PlatformInstagram,
		Format:             models.FormatStory,
		AdditionalPrompt:   "Use a dark neon theme",
	}

	prompt, err := ConstructPrompt(input, nil)
	require.NoError(t, err)
	assert.Contains(t, prompt, "Use a dark neon theme")
}

func TestConstructPrompt_Deterministic(t *testing.T) {
	input := models.WiroAIInput{
		TestimonialContent: "Same input, same prompt",
		SocialPlatform:     models.PlatformInstagram,
		Format:             models.FormatPost,
	}

	first, err := ConstructPrompt(input, nil)
	require.NoError(t, err)
	second, err := ConstructPrompt(input, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
