package voice

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/bytedance/sonic"

	"github.com/hammamikhairi/sentinel/internal/domain"
	"github.com/hammamikhairi/sentinel/internal/logger"
)

// Compile-time interface check.
var _ domain.Synthesizer = (*GoogleClient)(nil)

const googleEndpoint = "https://texttospeech.googleapis.com/v1/text:synthesize"

// GoogleOption configures the Google TTS client.
type GoogleOption func(*GoogleClient)

// WithGoogleVoice sets the voice name.
func WithGoogleVoice(name string) GoogleOption {
	return func(c *GoogleClient) { c.voice = name }
}

// WithGoogleEndpoint overrides the synthesize URL.
func WithGoogleEndpoint(url string) GoogleOption {
	return func(c *GoogleClient) { c.endpoint = url }
}

// GoogleClient synthesizes prompts via the Google Cloud Text-to-Speech
// REST API. Audio is requested as LINEAR16, which the API returns as a
// RIFF/WAV file the Player can read directly.
type GoogleClient struct {
	httpClient  *http.Client
	accessToken string
	projectID   string
	voice       string
	endpoint    string
	log         *logger.Logger
}

// NewGoogleClient creates a client using a bearer access token.
func NewGoogleClient(token, projectID string, log *logger.Logger, opts ...GoogleOption) *GoogleClient {
	c := &GoogleClient{
		httpClient:  &http.Client{Timeout: 20 * time.Second},
		accessToken: token,
		projectID:   projectID,
		voice:       DefaultGoogleVoice,
		endpoint:    googleEndpoint,
		log:         log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewGoogleClientFromEnv reads the token and project from the environment.
func NewGoogleClientFromEnv(log *logger.Logger, opts ...GoogleOption) (*GoogleClient, error) {
	token := os.Getenv(EnvGoogleTTSToken)
	if token == "" {
		return nil, fmt.Errorf("%s not set: %w", EnvGoogleTTSToken, domain.ErrNotConfigured)
	}
	projectID := os.Getenv(EnvGoogleProject)
	if projectID == "" {
		return nil, fmt.Errorf("%s not set: %w", EnvGoogleProject, domain.ErrNotConfigured)
	}
	return NewGoogleClient(token, projectID, log, opts...), nil
}

// Voice returns the configured voice name.
func (c *GoogleClient) Voice() string { return c.voice }

// Synthesize returns WAV bytes for text.
func (c *GoogleClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body := map[string]any{
		"input": map[string]string{
			"text": text,
		},
		"voice": map[string]string{
			"languageCode": "en-US",
			"name":         c.voice,
		},
		"audioConfig": map[string]any{
			"audioEncoding":   "LINEAR16",
			"sampleRateHertz": SampleRate,
		},
	}

	payload, err := sonic.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build tts request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-user-project", c.projectID)

	c.log.Debug("google tts: synthesizing %d chars with voice %s", len(text), c.voice)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts http error: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus("google", resp); err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tts response: %w", err)
	}
	var out struct {
		AudioContent string `json:"audioContent"`
	}
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode tts response: %w", err)
	}
	if out.AudioContent == "" {
		return nil, errors.New("empty audioContent in tts response")
	}

	audio, err := base64.StdEncoding.DecodeString(out.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("decode base64 audioContent: %w", err)
	}
	c.log.Debug("google tts: got %d bytes of audio", len(audio))
	return audio, nil
}
