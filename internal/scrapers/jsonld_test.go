package scrapers

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proveen/testimonial-bot/internal/models"
)

func docFromHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestParseJSONLD_DirectReview(t *testing.T) {
	doc := docFromHTML(t, `<html><head><script type="application/ld+json">
	{"@type":"Review","reviewBody":"Excellent service","author":{"name":"Jamie Fox"},
	 "reviewRating":{"ratingValue":"4"},"datePublished":"2024-03-02"}
	</script></head><body></body></html>`)

	reviews := parseJSONLD(doc, models.SourceTrustpilot)
	require.Len(t, reviews, 1)

	assert.Equal(t, "Jamie Fox", reviews[0].Author)
	assert.Equal(t, "Excellent service", reviews[0].Content)
	assert.Equal(t, 4, reviews[0].Rating)
	assert.Equal(t, "2024-03-02", reviews[0].Date)
	assert.Equal(t, models.SourceTrustpilot, reviews[0].Source)
}

func TestParseJSONLD_NestedReviewsUnderLocalBusiness(t *testing.T) {
	doc := docFromHTML(t, `<html><head><script type="application/ld+json">
	{"@type":"LocalBusiness","review":[
		{"reviewBody":"First review","author":"Sam"},
		{"reviewBody":"Second review","author":{"name":"Alex"},"reviewRating":{"ratingValue":3}}
	]}
	</script></head></html>`)

	reviews := parseJSONLD(doc, models.SourceTrustpilot)
	require.Len(t, reviews, 2)

	assert.Equal(t, "Sam", reviews[0].Author)
	assert.Equal(t, 5, reviews[0].Rating, "missing rating defaults to 5")
	assert.Equal(t, "Alex", reviews[1].Author)
	assert.Equal(t, 3, reviews[1].Rating)
	assert.NotEqual(t, reviews[0].ID, reviews[1].ID)
}

func TestParseJSONLD_GraphStructure(t *testing.T) {
	doc := docFromHTML(t, `<html><head><script type="application/ld+json">
	{"@graph":[
		{"@type":"WebPage"},
		{"@type":"Product","review":{"reviewBody":"Graph review","author":"Robin"}}
	]}
	</script></head></html>`)

	reviews := parseJSONLD(doc, models.SourceTrustpilot)
	require.Len(t, reviews, 1)
	assert.Equal(t, "Graph review", reviews[0].Content)
}

func TestParseJSONLD_MalformedBlockIsSkipped(t *testing.T) {
	doc := docFromHTML(t, `<html><head>
	<script type="application/ld+json">{not valid json</script>
	<script type="application/ld+json">{"@type":"Review","reviewBody":"Still parsed","author":"Kim"}</script>
	</head></html>`)

	reviews := parseJSONLD(doc, models.SourceTrustpilot)
	require.Len(t, reviews, 1)
	assert.Equal(t, "Still parsed", reviews[0].Content)
}

func TestParseJSONLD_EmptyReviewsAreDiscarded(t *testing.T) {
	doc := docFromHTML(t, `<html><head><script type="application/ld+json">
	{"@type":"LocalBusiness","review":[
		{"author":"No Content"},
		{"headline":"Title only","author":"Headline Person"},
		{"reviewBody":"Body only"}
	]}
	</script></head></html>`)

	reviews := parseJSONLD(doc, models.SourceTrustpilot)
	require.Len(t, reviews, 2, "a review lacking both body and headline is invalid")

	assert.Equal(t, "Title only", reviews[0].Title)
	assert.Equal(t, "Anonymous", reviews[1].Author, "missing author defaults to Anonymous")
	assert.NotEmpty(t, reviews[1].Date, "missing datePublished falls back to fetch time")
}

func TestParseJSONLD_NoScriptsYieldsNothing(t *testing.T) {
	doc := docFromHTML(t, `<html><body><p>no structured data</p></body></html>`)
	assert.Empty(t, parseJSONLD(doc, models.SourceTrustpilot))
}
