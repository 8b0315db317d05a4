package models

import (
	"fmt"
	"math"
	"net/url"
	"time"
)

// ReviewPlatform identifies a supported third-party review platform.
type ReviewPlatform string

const (
	PlatformGoogle     ReviewPlatform = "google"
	PlatformTrustpilot ReviewPlatform = "trustpilot"
)

// TestimonialSource identifies where a testimonial originally came from.
type TestimonialSource string

const (
	SourceGoogle     TestimonialSource = "Google"
	SourceLinkedIn   TestimonialSource = "LinkedIn"
	SourceTwitter    TestimonialSource = "Twitter"
	SourceDirect     TestimonialSource = "Direct"
	SourceTrustpilot TestimonialSource = "Trustpilot"
	SourceOther      TestimonialSource = "Other"
)

// TestimonialStatus is the publication state of a testimonial.
type TestimonialStatus string

const (
	StatusLive       TestimonialStatus = "Live"
	StatusUnused     TestimonialStatus = "Unused"
	StatusProcessing TestimonialStatus = "Processing"
)

// SocialPlatform is a creative generation target platform.
type SocialPlatform string

const (
	PlatformInstagram SocialPlatform = "Instagram"
	PlatformLinkedIn  SocialPlatform = "LinkedIn"
	PlatformTwitter   SocialPlatform = "Twitter"
	PlatformFacebook  SocialPlatform = "Facebook"
)

// CreativeFormat is a creative generation target format.
type CreativeFormat string

const (
	FormatPost  CreativeFormat = "Post"
	FormatStory CreativeFormat = "Story"
)

// ScrapedReview is the canonical shape every review parser converges to.
// Instances are transient: created during a single scrape call, never mutated.
type ScrapedReview struct {
	ID      string            `json:"id"`
	Author  string            `json:"author"`
	Content string            `json:"content"`
	Rating  int               `json:"rating"` // 1-5
	Date    string            `json:"date"`   // ISO-8601
	Avatar  string            `json:"avatar,omitempty"`
	Title   string            `json:"title,omitempty"`
	Source  TestimonialSource `json:"source,omitempty"`
	URL     string            `json:"url,omitempty"`
}

// Testimonial is the first-class persisted entity.
type Testimonial struct {
	ID           string            `json:"id"`
	CustomerName string            `json:"customer_name"`
	CompanyTitle string            `json:"company_title"`
	Content      string            `json:"content"`
	Rating       int               `json:"rating"`
	Date         string            `json:"date"`
	Status       TestimonialStatus `json:"status"`
	Avatar       string            `json:"avatar"`
	Source       TestimonialSource `json:"source"`
	BrandID      string            `json:"brand_id,omitempty"`
}

// ReviewSource is a configured connection to one review platform for one
// brand. At most one source of a given type may exist per brand; the reviews
// service enforces that before creation.
type ReviewSource struct {
	ID          string          `json:"id"`
	Type        ReviewPlatform  `json:"type"`
	URL         string          `json:"url"`
	LastUpdated int64           `json:"last_updated"` // epoch ms
	Reviews     []ScrapedReview `json:"reviews"`
	AutoRefresh bool            `json:"auto_refresh"`
	BrandID     string          `json:"brand_id,omitempty"`
}

// BrandColors holds the configured brand palette.
type BrandColors struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Text       string `json:"text"`
	Background string `json:"background"`
	Accent     string `json:"accent,omitempty"`
}

// BrandLogos holds the configured brand logo asset URLs.
type BrandLogos struct {
	Primary string `json:"primary"`
	White   string `json:"white,omitempty"`
	Favicon string `json:"favicon,omitempty"`
}

// BrandTypography holds the configured brand font settings.
type BrandTypography struct {
	FontFamily string `json:"font_family"`
}

// BrandConfig is the brand identity used for creative generation.
type BrandConfig struct {
	Name       string          `json:"name,omitempty"`
	Colors     BrandColors     `json:"colors"`
	Logos      BrandLogos      `json:"logos"`
	Typography BrandTypography `json:"typography"`
}

// ReviewerInfo carries the optional reviewer-display toggles for a creative.
type ReviewerInfo struct {
	Name          string `json:"name,omitempty"`
	Avatar        string `json:"avatar,omitempty"`
	Rating        int    `json:"rating,omitempty"`
	IncludeName   bool   `json:"include_name"`
	IncludeAvatar bool   `json:"include_avatar"`
	IncludeRating bool   `json:"include_rating"`
}

// WiroAIInput is a creative generation request.
type WiroAIInput struct {
	TestimonialContent string         `json:"testimonial_content"`
	Format             CreativeFormat `json:"format"`
	SocialPlatform     SocialPlatform `json:"social_platform"`
	MaxLength          int            `json:"max_length"`
	CTA                string         `json:"cta"`
	ReviewerInfo       *ReviewerInfo  `json:"reviewer_info,omitempty"`
	AdditionalPrompt   string         `json:"additional_prompt,omitempty"`
}

// WiroAIOutput is a creative generation result. ImageURL is always populated:
// either the externally generated asset or the simulator placeholder.
type WiroAIOutput struct {
	Quote     string   `json:"quote"`
	Sentiment float64  `json:"sentiment"` // 0-1
	Hashtags  []string `json:"hashtags"`
	ImageURL  string   `json:"image_url"`
	Simulated bool     `json:"simulated"`
}

// GeneratedCreative is the persisted artifact of one generation.
type GeneratedCreative struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Subtitle       string         `json:"subtitle"`
	Format         CreativeFormat `json:"format"`
	SocialPlatform SocialPlatform `json:"social_platform"`
	ImageURL       string         `json:"image_url"`
	Timestamp      string         `json:"timestamp"`
	Sentiment      int            `json:"sentiment"` // 0-100 once persisted
	CTA            string         `json:"cta"`
	Quote          string         `json:"quote"`
}

// NewGeneratedCreative builds the persisted record for a generation result.
// Sentiment is converted from the service-layer 0-1 float to the stored 0-100
// integer scale here, at the persistence boundary.
func NewGeneratedCreative(id, title, subtitle string, input WiroAIInput, output WiroAIOutput) GeneratedCreative {
	sentiment := output.Sentiment
	if sentiment <= 1 {
		sentiment = math.Round(sentiment * 100)
	} else {
		sentiment = math.Round(sentiment)
	}

	return GeneratedCreative{
		ID:             id,
		Title:          title,
		Subtitle:       subtitle,
		Format:         input.Format,
		SocialPlatform: input.SocialPlatform,
		ImageURL:       output.ImageURL,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		Sentiment:      int(sentiment),
		CTA:            input.CTA,
		Quote:          output.Quote,
	}
}

// ConvertToTestimonial maps a canonical scraped review into a persistable
// testimonial. The scrapers do not extract company affiliation, so the
// company title is fixed to "Verified Customer". Reviews without an avatar
// get a generated initials avatar keyed by author name.
func ConvertToTestimonial(review ScrapedReview) Testimonial {
	avatar := review.Avatar
	if avatar == "" {
		avatar = fmt.Sprintf("https://ui-avatars.com/api/?name=%s&background=random", url.QueryEscape(review.Author))
	}

	source := review.Source
	if source == "" {
		source = SourceOther
	}

	return Testimonial{
		ID:           review.ID,
		CustomerName: review.Author,
		CompanyTitle: "Verified Customer",
		Content:      review.Content,
		Avatar:       avatar,
		Rating:       review.Rating,
		Source:       source,
		Date:         review.Date,
		Status:       StatusLive,
	}
}
