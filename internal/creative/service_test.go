package creative

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proveen/testimonial-bot/internal/models"
)

type fallbackRecorder struct {
	mu      sync.Mutex
	reasons []string
}

func (f *fallbackRecorder) NotifyGenerationFallback(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reasons = append(f.reasons, reason)
}

func (f *fallbackRecorder) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.reasons...)
}

// wiroStub fakes the vendor API: a submission endpoint and a task-detail
// endpoint that walks through a scripted status sequence.
type wiroStub struct {
	t *testing.T

	submitStatus int
	taskStatuses []string
	outputURL    string
	logoMIME     string

	mu           sync.Mutex
	pollCount    int
	prompt       string
	aspectRatio  string
	resolution   string
	logoAttached bool
	logoFilename string
}

func newWiroStub(t *testing.T) *wiroStub {
	return &wiroStub{
		t:            t,
		submitStatus: http.StatusOK,
		taskStatuses: []string{"task_postprocess_end"},
		outputURL:    "https://cdn.wiro.example/generated.png",
		logoMIME:     "image/png",
	}
}

func (w *wiroStub) handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/Run/"):
			w.handleSubmit(rw, r)
		case r.URL.Path == "/Task/Detail":
			w.handlePoll(rw, r)
		case r.URL.Path == "/logo.png":
			rw.Header().Set("Content-Type", w.logoMIME)
			fmt.Fprint(rw, "fake-image-bytes")
		default:
			http.NotFound(rw, r)
		}
	}
}

func (w *wiroStub) handleSubmit(rw http.ResponseWriter, r *http.Request) {
	assert.Equal(w.t, "/Run/google/nano-banana-pro", r.URL.Path)

	nonce := r.Header.Get("x-nonce")
	assert.NotEmpty(w.t, nonce)
	assert.Equal(w.t, signRequest("secret", nonce, "key"), r.Header.Get("x-signature"))

	if w.submitStatus != http.StatusOK {
		rw.WriteHeader(w.submitStatus)
		return
	}

	require.NoError(w.t, r.ParseMultipartForm(10<<20))

	w.mu.Lock()
	w.prompt = r.FormValue("prompt")
	w.aspectRatio = r.FormValue("aspectRatio")
	w.resolution = r.FormValue("resolution")
	if files := r.MultipartForm.File["inputImage"]; len(files) > 0 {
		w.logoAttached = true
		w.logoFilename = files[0].Filename
	}
	w.mu.Unlock()

	rw.Header().Set("Content-Type", "application/json")
	fmt.Fprint(rw, `{"result": true, "taskid": "task-123"}`)
}

func (w *wiroStub) handlePoll(rw http.ResponseWriter, r *http.Request) {
	var body map[string]string
	require.NoError(w.t, json.NewDecoder(r.Body).Decode(&body))
	assert.Equal(w.t, "task-123", body["taskid"])

	nonce := r.Header.Get("x-nonce")
	assert.Equal(w.t, signRequest("secret", nonce, "key"), r.Header.Get("x-signature"))

	w.mu.Lock()
	index := w.pollCount
	w.pollCount++
	w.mu.Unlock()

	if index >= len(w.taskStatuses) {
		index = len(w.taskStatuses) - 1
	}
	status := w.taskStatuses[index]

	outputs := []map[string]string{}
	if status == "task_postprocess_end" && w.outputURL != "" {
		outputs = append(outputs, map[string]string{"url": w.outputURL})
	}

	rw.Header().Set("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(map[string]interface{}{
		"result":   true,
		"tasklist": []map[string]interface{}{{"status": status, "outputs": outputs}},
	})
}

func (w *wiroStub) polls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pollCount
}

func newTestService(stub *wiroStub, extra ...Option) (*Service, *httptest.Server, *fallbackRecorder) {
	server := httptest.NewServer(stub.handler())
	recorder := &fallbackRecorder{}

	opts := append([]Option{
		WithAPIURL(server.URL),
		WithPolling(time.Millisecond, 30),
		WithSimulator(&Simulator{Delay: 0}),
		WithFallbackNotifier(recorder),
	}, extra...)

	return NewService("key", "secret", opts...), server, recorder
}

func baseInput() models.WiroAIInput {
	return models.WiroAIInput{
		TestimonialContent: "Great product that saved us hours every week",
		SocialPlatform:     models.PlatformInstagram,
		Format:             models.FormatPost,
	}
}

func TestGenerateContent_InvalidComboIsTheOnlyError(t *testing.T) {
	service := NewService("key", "secret", WithSimulator(&Simulator{Delay: 0}))

	input := baseInput()
	input.SocialPlatform = "tiktok"

	_, err := service.GenerateContent(context.Background(), input, nil)
	assert.Error(t, err)
}

func TestGenerateContent_MissingCredentialsSimulates(t *testing.T) {
	for _, keys := range [][2]string{
		{"", ""},
		{"key", ""},
		{"your_api_key_here", "secret"},
	} {
		service := NewService(keys[0], keys[1], WithSimulator(&Simulator{Delay: 0}))

		output, err := service.GenerateContent(context.Background(), baseInput(), nil)
		require.NoError(t, err)
		assert.True(t, output.Simulated)
		assert.Equal(t, placeholderImagePath, output.ImageURL)
	}
}

func TestGenerateContent_SuccessAfterPolling(t *testing.T) {
	stub := newWiroStub(t)
	stub.taskStatuses = []string{
		"task_queue", "task_running", "task_running", "task_running", "task_running",
		"task_postprocess_end",
	}

	service, server, recorder := newTestService(stub)
	defer server.Close()

	output, err := service.GenerateContent(context.Background(), baseInput(), nil)
	require.NoError(t, err)

	assert.False(t, output.Simulated)
	assert.Equal(t, "https://cdn.wiro.example/generated.png", output.ImageURL)
	assert.Equal(t, "Great product that saved us hours every week", output.Quote)
	assert.Equal(t, 0.9, output.Sentiment)
	assert.Equal(t, []string{"#proveen", "#generated"}, output.Hashtags)

	assert.Equal(t, 6, stub.polls(), "polling stops on the first terminal status")
	assert.Empty(t, recorder.all())

	assert.Contains(t, stub.prompt, "Great product that saved us hours every week")
	assert.Equal(t, "1:1", stub.aspectRatio)
	assert.Equal(t, "1K", stub.resolution, "submission carries the resolution tier, not pixels")
}

func TestGenerateContent_SubmissionFailureFallsBack(t *testing.T) {
	stub := newWiroStub(t)
	stub.submitStatus = http.StatusInternalServerError

	service, server, recorder := newTestService(stub)
	defer server.Close()

	output, err := service.GenerateContent(context.Background(), baseInput(), nil)
	require.NoError(t, err, "vendor failures never surface to the caller")

	assert.True(t, output.Simulated)
	assert.Equal(t, placeholderImagePath, output.ImageURL)

	reasons := recorder.all()
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "submission")
}

func TestGenerateContent_CancelledTaskFallsBack(t *testing.T) {
	stub := newWiroStub(t)
	stub.taskStatuses = []string{"task_running", "task_cancel"}

	service, server, recorder := newTestService(stub)
	defer server.Close()

	output, err := service.GenerateContent(context.Background(), baseInput(), nil)
	require.NoError(t, err)

	assert.True(t, output.Simulated)
	assert.NotEmpty(t, output.ImageURL)

	reasons := recorder.all()
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "cancel")
}

func TestGenerateContent_PollingBudgetExhaustedFallsBack(t *testing.T) {
	stub := newWiroStub(t)
	stub.taskStatuses = []string{"task_running"}

	service, server, recorder := newTestService(stub, WithPolling(time.Millisecond, 3))
	defer server.Close()

	output, err := service.GenerateContent(context.Background(), baseInput(), nil)
	require.NoError(t, err)

	assert.True(t, output.Simulated)
	assert.Equal(t, 3, stub.polls(), "poll budget is a hard cap")

	reasons := recorder.all()
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "polling")
}

func TestGenerateContent_CompletedWithoutOutputFallsBack(t *testing.T) {
	stub := newWiroStub(t)
	stub.outputURL = ""

	service, server, _ := newTestService(stub)
	defer server.Close()

	output, err := service.GenerateContent(context.Background(), baseInput(), nil)
	require.NoError(t, err)
	assert.True(t, output.Simulated)
	assert.NotEmpty(t, output.ImageURL)
}

func TestGenerateContent_LogoUploaded(t *testing.T) {
	stub := newWiroStub(t)
	service, server, _ := newTestService(stub)
	defer server.Close()

	brand := &models.BrandConfig{
		Name:  "Proveen",
		Logos: models.BrandLogos{Primary: server.URL + "/logo.png?v=2"},
	}

	output, err := service.GenerateContent(context.Background(), baseInput(), brand)
	require.NoError(t, err)
	assert.False(t, output.Simulated)

	assert.True(t, stub.logoAttached)
	assert.Equal(t, "logo.png", stub.logoFilename, "query string is stripped from the filename")
	assert.Contains(t, stub.prompt, "Incorporate the logo from the input image")
}

func TestGenerateContent_SVGLogoForcesTextOnly(t *testing.T) {
	stub := newWiroStub(t)
	service, server, _ := newTestService(stub)
	defer server.Close()

	brand := &models.BrandConfig{
		Name:  "Proveen",
		Logos: models.BrandLogos{Primary: "https://cdn.example/brand/logo.svg"},
	}

	output, err := service.GenerateContent(context.Background(), baseInput(), brand)
	require.NoError(t, err)
	assert.False(t, output.Simulated, "dropping the logo must not derail generation")

	assert.False(t, stub.logoAttached, "SVG logos are never uploaded")
	assert.Contains(t, stub.prompt, `"Proveen" TEXT ONLY`)
}

func TestGenerateContent_UnsupportedLogoMIMEContinuesWithout(t *testing.T) {
	stub := newWiroStub(t)
	stub.logoMIME = "image/webp"

	service, server, _ := newTestService(stub)
	defer server.Close()

	brand := &models.BrandConfig{
		Logos: models.BrandLogos{Primary: server.URL + "/logo.png"},
	}

	output, err := service.GenerateContent(context.Background(), baseInput(), brand)
	require.NoError(t, err)

	assert.False(t, output.Simulated, "a rejected logo only drops the attachment")
	assert.False(t, stub.logoAttached)
}
