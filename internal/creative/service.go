package creative

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/proveen/testimonial-bot/internal/models"
)

const (
	defaultAPIURL = "https://api.wiro.ai/v1"
	defaultModel  = "google/nano-banana-pro"

	// The submission endpoint expects a resolution tier enum, not pixel
	// dimensions; pixel dimensions only appear inside the prompt.
	resolutionTier = "1K"

	defaultPollInterval    = 2 * time.Second
	defaultMaxPollAttempts = 30 // 30 * 2s = 60s budget

	statusCompleted = "task_postprocess_end"
	statusCancelled = "task_cancel"
)

var (
	// ErrSubmissionFailed means the vendor rejected the task submission.
	ErrSubmissionFailed = errors.New("task submission failed")

	// ErrPollingTimeout means the poll budget was exhausted without the task
	// reaching a terminal status.
	ErrPollingTimeout = errors.New("polling timed out")

	// ErrNoOutput means the task completed but produced no output asset.
	ErrNoOutput = errors.New("task completed but no output found")

	// ErrTaskCancelled means the vendor cancelled the task.
	ErrTaskCancelled = errors.New("task was cancelled")
)

// supportedLogoMIMETypes is the vendor's reference-image allowlist. An empty
// MIME type is tolerated and the image attached anyway.
var supportedLogoMIMETypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/gif":  true,
}

// FallbackNotifier receives operator-facing notice when generation falls back
// to the simulator. The caller-facing contract is unchanged; this exists so a
// vendor outage is distinguishable from normal operation in monitoring.
type FallbackNotifier interface {
	NotifyGenerationFallback(reason string)
}

// Service orchestrates creative generation against the Wiro AI image API:
// signed submission, bounded polling, and fallback to the local simulator on
// any failure. GenerateContent never leaves the caller without an image.
type Service struct {
	apiKey    string
	apiSecret string
	apiURL    string
	model     string

	client          *resty.Client
	simulator       *Simulator
	notifier        FallbackNotifier
	pollInterval    time.Duration
	maxPollAttempts int
}

// Option customizes a Service.
type Option func(*Service)

// WithAPIURL points the service at a custom endpoint. Used by tests.
func WithAPIURL(url string) Option {
	return func(s *Service) { s.apiURL = url }
}

// WithPolling overrides the poll cadence and budget. Used by tests.
func WithPolling(interval time.Duration, maxAttempts int) Option {
	return func(s *Service) {
		s.pollInterval = interval
		s.maxPollAttempts = maxAttempts
	}
}

// WithSimulator substitutes the fallback simulator. Used by tests to drop the
// artificial delay.
func WithSimulator(sim *Simulator) Option {
	return func(s *Service) { s.simulator = sim }
}

// WithFallbackNotifier wires operator notifications for simulator fallbacks.
func WithFallbackNotifier(n FallbackNotifier) Option {
	return func(s *Service) { s.notifier = n }
}

// NewService creates a generation service.
func NewService(apiKey, apiSecret string, opts ...Option) *Service {
	s := &Service{
		apiKey:          apiKey,
		apiSecret:       apiSecret,
		apiURL:          defaultAPIURL,
		model:           defaultModel,
		client:          resty.New().SetTimeout(30 * time.Second),
		simulator:       NewSimulator(),
		pollInterval:    defaultPollInterval,
		maxPollAttempts: defaultMaxPollAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateContent runs one generation request end to end. The only error it
// returns is an invalid platform/format combination, which is a programming
// error; every vendor-side failure is logged and converted into a simulated
// result instead, so the caller always receives a populated output.
func (s *Service) GenerateContent(ctx context.Context, input models.WiroAIInput, brandConfig *models.BrandConfig) (models.WiroAIOutput, error) {
	spec, err := SpecFor(input.SocialPlatform, input.Format)
	if err != nil {
		return models.WiroAIOutput{}, err
	}

	if !s.credentialsConfigured() {
		logrus.Warn("Wiro AI API keys missing, using simulator")
		return s.simulator.Generate(ctx, input), nil
	}

	// Validate the logo before building the prompt: when an unsupported SVG
	// logo is dropped, the prompt must already demand text-only branding
	// instead of referencing an image that will never be uploaded.
	logoURL := ""
	if brandConfig != nil {
		logoURL = brandConfig.Logos.Primary
	}
	if logoURL != "" && strings.Contains(strings.ToLower(logoURL), ".svg") {
		logrus.Warn("Unsupported SVG logo detected, forcing text-only branding")
		logoURL = ""
	}

	effectiveConfig := brandConfig
	if brandConfig != nil {
		cfg := *brandConfig
		cfg.Logos.Primary = logoURL
		effectiveConfig = &cfg
	}

	prompt, err := ConstructPrompt(input, effectiveConfig)
	if err != nil {
		return models.WiroAIOutput{}, err
	}

	taskID, err := s.submitTask(ctx, prompt, spec.Ratio, logoURL)
	if err != nil {
		return s.fallback(ctx, input, fmt.Errorf("submission: %w", err)), nil
	}

	imageURL, err := s.pollTask(ctx, taskID)
	if err != nil {
		return s.fallback(ctx, input, fmt.Errorf("polling: %w", err)), nil
	}

	return models.WiroAIOutput{
		Quote: extractQuote(input.TestimonialContent),
		// The image model returns no sentiment signal; default high.
		Sentiment: 0.9,
		Hashtags:  []string{"#proveen", "#generated"},
		ImageURL:  imageURL,
	}, nil
}

func (s *Service) credentialsConfigured() bool {
	return s.apiKey != "" && s.apiSecret != "" && !strings.Contains(s.apiKey, "your_api_key")
}

func (s *Service) fallback(ctx context.Context, input models.WiroAIInput, cause error) models.WiroAIOutput {
	logrus.Errorf("Wiro AI generation failed, falling back to simulator: %v", cause)
	if s.notifier != nil {
		s.notifier.NotifyGenerationFallback(cause.Error())
	}
	return s.simulator.Generate(ctx, input)
}

type submitResponse struct {
	Result bool        `json:"result"`
	TaskID string      `json:"taskid"`
	Errors interface{} `json:"errors"`
}

// submitTask signs and posts the generation task. A logo fetch or MIME
// failure is swallowed: generation proceeds without the reference image
// rather than aborting.
func (s *Service) submitTask(ctx context.Context, prompt, ratio, logoURL string) (string, error) {
	nonce := strconv.FormatInt(time.Now().Unix(), 10)
	signature := signRequest(s.apiSecret, nonce, s.apiKey)

	req := s.client.R().
		SetContext(ctx).
		SetHeader("x-api-key", s.apiKey).
		SetHeader("x-nonce", nonce).
		SetHeader("x-signature", signature).
		SetMultipartFormData(map[string]string{
			"prompt":      prompt,
			"aspectRatio": ratio,
			"resolution":  resolutionTier,
		}).
		SetResult(&submitResponse{})

	if logoURL != "" {
		if filename, mimeType, data, err := s.fetchLogo(ctx, logoURL); err != nil {
			logrus.Warnf("Failed to load logo for upload, continuing without it: %v", err)
		} else {
			req.SetMultipartField("inputImage", filename, mimeType, bytes.NewReader(data))
		}
	}

	resp, err := req.Post(fmt.Sprintf("%s/Run/%s", s.apiURL, s.model))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return "", fmt.Errorf("%w: status %d: %s", ErrSubmissionFailed, resp.StatusCode(), string(resp.Body()))
	}

	result, ok := resp.Result().(*submitResponse)
	if !ok || result == nil {
		return "", fmt.Errorf("%w: unexpected response shape", ErrSubmissionFailed)
	}
	if !result.Result {
		return "", fmt.Errorf("%w: API returned false result: %v", ErrSubmissionFailed, result.Errors)
	}

	return result.TaskID, nil
}

// fetchLogo downloads the brand logo and validates its MIME type against the
// vendor allowlist. An empty MIME type is tolerated.
func (s *Service) fetchLogo(ctx context.Context, logoURL string) (filename, mimeType string, data []byte, err error) {
	resp, err := s.client.R().SetContext(ctx).Get(logoURL)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to fetch logo: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", "", nil, fmt.Errorf("failed to fetch logo: status %d", resp.StatusCode())
	}

	mimeType = strings.ToLower(strings.TrimSpace(strings.Split(resp.Header().Get("Content-Type"), ";")[0]))
	if mimeType != "" && !supportedLogoMIMETypes[mimeType] {
		return "", "", nil, fmt.Errorf("logo MIME type %q not supported (png, jpg, jpeg, gif)", mimeType)
	}

	filename = path.Base(strings.Split(logoURL, "?")[0])
	if filename == "" || filename == "." || filename == "/" || !strings.Contains(filename, ".") {
		filename = "logo.png"
	}

	return filename, mimeType, resp.Body(), nil
}

type taskDetailResponse struct {
	Result   bool   `json:"result"`
	TaskList []task `json:"tasklist"`
}

type task struct {
	Status  string       `json:"status"`
	Outputs []taskOutput `json:"outputs"`
}

type taskOutput struct {
	URL string `json:"url"`
}

// pollTask polls the task detail endpoint until a terminal status or the poll
// budget runs out. Each poll is re-signed with a fresh nonce. A transport
// failure or malformed response skips the attempt without counting as
// terminal; polls are strictly sequential.
func (s *Service) pollTask(ctx context.Context, taskID string) (string, error) {
	for attempt := 0; attempt < s.maxPollAttempts; attempt++ {
		select {
		case <-time.After(s.pollInterval):
		case <-ctx.Done():
			return "", ctx.Err()
		}

		nonce := strconv.FormatInt(time.Now().Unix(), 10)
		signature := signRequest(s.apiSecret, nonce, s.apiKey)

		resp, err := s.client.R().
			SetContext(ctx).
			SetHeader("x-api-key", s.apiKey).
			SetHeader("x-nonce", nonce).
			SetHeader("x-signature", signature).
			SetHeader("Content-Type", "application/json").
			SetBody(map[string]string{"taskid": taskID}).
			SetResult(&taskDetailResponse{}).
			Post(s.apiURL + "/Task/Detail")

		if err != nil {
			logrus.Debugf("Poll attempt %d failed: %v", attempt+1, err)
			continue
		}
		if resp.StatusCode() != 200 {
			continue
		}

		detail, ok := resp.Result().(*taskDetailResponse)
		if !ok || detail == nil || !detail.Result || len(detail.TaskList) == 0 {
			continue
		}

		current := detail.TaskList[0]
		switch current.Status {
		case statusCompleted:
			if len(current.Outputs) == 0 || current.Outputs[0].URL == "" {
				return "", ErrNoOutput
			}
			logrus.Infof("Wiro AI task %s completed after %d polls", taskID, attempt+1)
			return current.Outputs[0].URL, nil
		case statusCancelled:
			return "", ErrTaskCancelled
		}
		// Any other status: keep polling.
	}

	return "", ErrPollingTimeout
}
