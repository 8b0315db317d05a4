package creative

import (
	"fmt"
	"strings"

	"github.com/proveen/testimonial-bot/internal/models"
)

// PlatformSpec holds the technical parameters for one platform/format target.
type PlatformSpec struct {
	Ratio        string
	Resolution   string
	PromptSuffix string
}

// platformSpecs is exhaustive for every supported platform and format. An
// unlisted combination is a programming error, reported loudly by SpecFor.
var platformSpecs = map[models.SocialPlatform]map[models.CreativeFormat]PlatformSpec{
	models.PlatformInstagram: {
		models.FormatPost:  {Ratio: "1:1", Resolution: "1024x1024", PromptSuffix: "Square format, optimized for Instagram Feed."},
		models.FormatStory: {Ratio: "9:16", Resolution: "1080x1920", PromptSuffix: "Vertical full-screen format, optimized for Instagram Story with clear safe zones."},
	},
	models.PlatformLinkedIn: {
		models.FormatPost:  {Ratio: "1:1", Resolution: "1200x1200", PromptSuffix: "Professional square format, optimized for LinkedIn Feed."},
		models.FormatStory: {Ratio: "9:16", Resolution: "1080x1920", PromptSuffix: "Vertical format, corporate professional style for LinkedIn."},
	},
	models.PlatformTwitter: {
		models.FormatPost:  {Ratio: "1:1", Resolution: "1080x1080", PromptSuffix: "Square format, high visibility for Twitter."},
		models.FormatStory: {Ratio: "9:16", Resolution: "1080x1920", PromptSuffix: "Vertical format for Fleet-style content."},
	},
	models.PlatformFacebook: {
		models.FormatPost:  {Ratio: "1:1", Resolution: "1080x1080", PromptSuffix: "Square format, optimized for Facebook Feed."},
		models.FormatStory: {Ratio: "9:16", Resolution: "1080x1920", PromptSuffix: "Vertical format, optimized for Facebook Stories."},
	},
}

// SpecFor looks up the technical spec for a platform/format pair.
func SpecFor(platform models.SocialPlatform, format models.CreativeFormat) (PlatformSpec, error) {
	formats, ok := platformSpecs[platform]
	if !ok {
		return PlatformSpec{}, fmt.Errorf("unsupported social platform %q", platform)
	}
	spec, ok := formats[format]
	if !ok {
		return PlatformSpec{}, fmt.Errorf("unsupported format %q for platform %q", format, platform)
	}
	return spec, nil
}

// ConstructPrompt deterministically assembles the generation prompt from the
// testimonial content, brand configuration and platform target. The
// testimonial text goes in verbatim; truncation is left to the image model.
// The logo clause references the input image only when a (non-SVG) logo URL
// is present, otherwise it demands text-only brand display.
func ConstructPrompt(input models.WiroAIInput, brandConfig *models.BrandConfig) (string, error) {
	spec, err := SpecFor(input.SocialPlatform, input.Format)
	if err != nil {
		return "", err
	}

	colors := "Use vibrant professional colors."
	if brandConfig != nil {
		var colorParts []string
		if brandConfig.Colors.Primary != "" {
			colorParts = append(colorParts, "Primary: "+brandConfig.Colors.Primary)
		}
		if brandConfig.Colors.Secondary != "" {
			colorParts = append(colorParts, "Secondary: "+brandConfig.Colors.Secondary)
		}
		if brandConfig.Colors.Accent != "" {
			colorParts = append(colorParts, "Accent: "+brandConfig.Colors.Accent)
		}
		if brandConfig.Colors.Background != "" {
			colorParts = append(colorParts, "Background: "+brandConfig.Colors.Background)
		}
		if brandConfig.Colors.Text != "" {
			colorParts = append(colorParts, "Text: "+brandConfig.Colors.Text)
		}
		if len(colorParts) > 0 {
			colors = fmt.Sprintf("Brand Colors: %s. Use these colors throughout the design - primary for main elements, secondary for supporting elements, accent for highlights, background for the base, and text color for all text content.", strings.Join(colorParts, ", "))
		}
	}

	font := "Helvetica"
	if brandConfig != nil && brandConfig.Typography.FontFamily != "" {
		font = brandConfig.Typography.FontFamily
	}

	reviewerSection := buildReviewerSection(input.ReviewerInfo)

	additionalInstructions := ""
	if input.AdditionalPrompt != "" {
		additionalInstructions = fmt.Sprintf("\n\nAdditional Design Modifications:\n- %s\n", input.AdditionalPrompt)
	}

	logoInstruction := logoClause(brandConfig)

	ctaClause := ""
	if input.CTA != "" {
		ctaClause = fmt.Sprintf("\n- Call to Action: Display %q prominently, styled as a button or action text using the brand primary color.", input.CTA)
	}

	return fmt.Sprintf(`Create a high-quality, professional social media image for %s.
Format: %s (%s). %s
Resolution: %s.

Brand Identity:
- %s
- Style: Professional, minimal, premium.
- %s

Content:
- Testimonial Text to Display: %q
- Typography: %s, bold and legible. Use brand-compliant font colors that ensure high contrast against the background. Avoid black text on dark backgrounds. Ensure all text fits within the canvas with generous padding (at least 15%% from all edges) to prevent cutoff.%s%s%s

Visuals:
- Layout: Center-weighted composition with safe zones. Keep text away from edges.
- Background: Use the brand background color as the base. Create abstract gradient or soft texture incorporating brand primary, secondary, and accent colors.
- Color Application: Apply brand colors strategically - primary for main elements and CTAs, secondary for supporting elements, accent for highlights and emphasis.
- Contrast: Ensure all text is easily readable. Do not place dark text on dark backgrounds. Use light text/white if the background is dark.
- Atmosphere: Inspiring, trustworthy, glowing.
- Lighting: Soft studio lighting.
- Quality: Photorealistic, 4k, core detail.`,
		input.SocialPlatform,
		input.Format, spec.Ratio, spec.PromptSuffix,
		spec.Resolution,
		colors,
		logoInstruction,
		input.TestimonialContent,
		font,
		reviewerSection,
		ctaClause,
		additionalInstructions,
	), nil
}

func buildReviewerSection(info *models.ReviewerInfo) string {
	if info == nil {
		return ""
	}

	var parts []string
	if info.IncludeName && info.Name != "" {
		parts = append(parts, fmt.Sprintf("Reviewer Name: %s - Display the name in small, subtle text (approximately 12-14px font size, occupying less than 5%% of the image height).", info.Name))
	}
	if info.IncludeRating && info.Rating >= 1 && info.Rating <= 5 {
		stars := strings.Repeat("⭐", info.Rating) + strings.Repeat("☆", 5-info.Rating)
		parts = append(parts, fmt.Sprintf("Rating: %d/5 %s - Display as small stars near the reviewer name.", info.Rating, stars))
	}
	if info.IncludeAvatar && info.Avatar != "" {
		parts = append(parts, "Include reviewer profile picture/avatar in the design - The avatar should be small and compact (approximately 32-40px diameter, circular, occupying less than 2% of the image area). Position it discretely, typically in a corner or bottom section alongside the name.")
	}

	if len(parts) == 0 {
		return ""
	}

	return fmt.Sprintf("\nReviewer Information:\n- %s\nIMPORTANT: Keep all reviewer elements (name, avatar, rating) small and unobtrusive. They should complement the testimonial text, not dominate the design.", strings.Join(parts, "\n- "))
}

func logoClause(brandConfig *models.BrandConfig) string {
	if brandConfig != nil && brandConfig.Logos.Primary != "" {
		return "Logo: Incorporate the logo from the input image naturally into the composition (e.g. bottom corner or watermark)."
	}

	brandName := "Brand"
	if brandConfig != nil && brandConfig.Name != "" {
		brandName = brandConfig.Name
	}
	return fmt.Sprintf("Brand Name: Display the brand name %q TEXT ONLY in the design (e.g. bottom corner or watermark). DO NOT generate a logo icon or symbol. Use text only for the brand identity.", brandName)
}
