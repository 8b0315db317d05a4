package notifications

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proveen/testimonial-bot/internal/config"
	"github.com/proveen/testimonial-bot/internal/models"
)

func TestNotifyRefreshFailure_SendsTeamsCard(t *testing.T) {
	var received TeamsMessage

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	service := NewService(&config.Config{TeamsWebhookURL: server.URL})
	service.NotifyRefreshFailure(models.ReviewSource{
		Type:        models.PlatformTrustpilot,
		URL:         "https://trustpilot.com/review/example.com",
		LastUpdated: 1714557600000,
	}, errors.New("all proxies failed"))

	assert.Equal(t, "MessageCard", received.Type)
	assert.Contains(t, received.Title, "trustpilot")
	assert.Contains(t, received.Text, "all proxies failed")

	require.Len(t, received.Sections, 1)
	facts := map[string]string{}
	for _, fact := range received.Sections[0].Facts {
		facts[fact.Name] = fact.Value
	}
	assert.Equal(t, "https://trustpilot.com/review/example.com", facts["URL"])
	assert.Equal(t, "2024-05-01T10:00:00Z", facts["Last successful update"])
}

func TestNotifyGenerationFallback_SendsTeamsCard(t *testing.T) {
	var received TeamsMessage

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	service := NewService(&config.Config{TeamsWebhookURL: server.URL})
	service.NotifyGenerationFallback("submission: status 500")

	assert.Contains(t, received.Title, "simulator")
	require.Len(t, received.Sections, 1)
	assert.Equal(t, "Reason", received.Sections[0].Facts[0].Name)
	assert.Equal(t, "submission: status 500", received.Sections[0].Facts[0].Value)
}

func TestDispatch_WebhookFailureDoesNotPanic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	service := NewService(&config.Config{TeamsWebhookURL: server.URL})
	assert.NotPanics(t, func() {
		service.NotifyGenerationFallback("submission: status 500")
	})
}

func TestDispatch_NoChannelsConfiguredIsANoop(t *testing.T) {
	service := NewService(&config.Config{})
	assert.NotPanics(t, func() {
		service.NotifyRefreshFailure(models.ReviewSource{Type: models.PlatformGoogle}, errors.New("boom"))
	})
}

func TestFormatEpochMillis(t *testing.T) {
	assert.Equal(t, "never", formatEpochMillis(0))
	assert.Equal(t, "2024-05-01T10:00:00Z", formatEpochMillis(1714557600000))
}
