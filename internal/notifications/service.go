package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/proveen/testimonial-bot/internal/config"
	"github.com/proveen/testimonial-bot/internal/models"
)

// Service sends operator alerts via the configured channels (Teams webhook
// and/or SMTP email). Delivery failures are logged and dropped: alerting must
// never take the scrape or generation path down with it.
type Service struct {
	config *config.Config
	client *resty.Client
}

var _ NotificationInterface = (*Service)(nil)

// TeamsMessage is the MessageCard payload for a Teams webhook.
type TeamsMessage struct {
	Type     string         `json:"@type"`
	Context  string         `json:"@context"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Sections []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle string      `json:"activityTitle,omitempty"`
	Facts         []TeamsFact `json:"facts,omitempty"`
	Markdown      bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a notification service.
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// NotifyRefreshFailure reports a failed review-source refresh.
func (s *Service) NotifyRefreshFailure(source models.ReviewSource, cause error) {
	title := fmt.Sprintf("Review source refresh failed (%s)", source.Type)
	facts := []TeamsFact{
		{Name: "Source", Value: string(source.Type)},
		{Name: "URL", Value: source.URL},
		{Name: "Error", Value: cause.Error()},
		{Name: "Last successful update", Value: formatEpochMillis(source.LastUpdated)},
	}
	s.dispatch(title, fmt.Sprintf("Scraping %s failed: %v", source.URL, cause), facts)
}

// NotifyGenerationFallback reports that creative generation fell back to the
// local simulator.
func (s *Service) NotifyGenerationFallback(reason string) {
	facts := []TeamsFact{
		{Name: "Reason", Value: reason},
		{Name: "At", Value: time.Now().UTC().Format(time.RFC3339)},
	}
	s.dispatch("Creative generation fell back to simulator",
		"The image vendor request failed; the user received a simulated creative.", facts)
}

func (s *Service) dispatch(title, text string, facts []TeamsFact) {
	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(title, text, facts); err != nil {
			logrus.Errorf("Failed to send Teams alert: %v", err)
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(title, text, facts); err != nil {
			logrus.Errorf("Failed to send email alert: %v", err)
		}
	}
}

func (s *Service) sendToTeams(title, text string, facts []TeamsFact) error {
	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   title,
		Text:    text,
		Sections: []TeamsSection{
			{Facts: facts, Markdown: true},
		},
	}

	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

var emailTemplate = template.Must(template.New("alert").Parse(`
<html>
<body>
<h2>{{.Title}}</h2>
<p>{{.Text}}</p>
<table border="0" cellpadding="4">
{{range .Facts}}<tr><td><strong>{{.Name}}</strong></td><td>{{.Value}}</td></tr>
{{end}}</table>
</body>
</html>
`))

func (s *Service) sendEmail(title, text string, facts []TeamsFact) error {
	var body bytes.Buffer
	err := emailTemplate.Execute(&body, struct {
		Title string
		Text  string
		Facts []TeamsFact
	}{title, text, facts})
	if err != nil {
		return fmt.Errorf("failed to render alert email: %w", err)
	}

	message := gomail.NewMessage()
	message.SetHeader("From", s.config.SMTPUsername)
	message.SetHeader("To", s.config.NotificationEmail)
	message.SetHeader("Subject", title)
	message.SetBody("text/html", body.String())

	dialer := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)
	if err := dialer.DialAndSend(message); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}

	return nil
}

func formatEpochMillis(millis int64) string {
	if millis == 0 {
		return "never"
	}
	return time.UnixMilli(millis).UTC().Format(time.RFC3339)
}
