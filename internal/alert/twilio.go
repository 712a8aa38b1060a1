package alert

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/hammamikhairi/sentinel/internal/domain"
	"github.com/hammamikhairi/sentinel/internal/logger"
)

// Compile-time interface checks.
var (
	_ domain.Alerter = (*TwilioSMS)(nil)
	_ domain.Alerter = (*TwilioCall)(nil)
)

// Env var names for Twilio.
const (
	EnvTwilioAccountSID = "TWILIO_ACCOUNT_SID"
	EnvTwilioAuthToken  = "TWILIO_AUTH_TOKEN"
	EnvTwilioFrom       = "TWILIO_FROM_NUMBER"
	EnvAlertPhone       = "ALERT_PHONE_NUMBER"
)

const twilioBaseURL = "https://api.twilio.com/2010-04-01"

// TwilioConfig holds the credentials and numbers shared by SMS and calls.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string // E.164 sender number
	To         string // E.164 number that receives alerts
	BaseURL    string // override for tests; empty = Twilio API
}

// TwilioConfigFromEnv reads the Twilio settings from the environment.
func TwilioConfigFromEnv() (TwilioConfig, error) {
	cfg := TwilioConfig{
		AccountSID: os.Getenv(EnvTwilioAccountSID),
		AuthToken:  os.Getenv(EnvTwilioAuthToken),
		From:       os.Getenv(EnvTwilioFrom),
		To:         os.Getenv(EnvAlertPhone),
	}
	return cfg, cfg.validate()
}

func (c TwilioConfig) validate() error {
	var missing []string
	if c.AccountSID == "" {
		missing = append(missing, EnvTwilioAccountSID)
	}
	if c.AuthToken == "" {
		missing = append(missing, EnvTwilioAuthToken)
	}
	if c.From == "" {
		missing = append(missing, EnvTwilioFrom)
	}
	if c.To == "" {
		missing = append(missing, EnvAlertPhone)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s not set: %w", strings.Join(missing, ", "), domain.ErrNotConfigured)
	}
	return nil
}

// twilioClient posts form requests to the Twilio REST API with a small
// retry loop for 429 and 5xx responses.
type twilioClient struct {
	cfg        TwilioConfig
	httpClient *http.Client
	log        *logger.Logger
	backoff    time.Duration
}

func newTwilioClient(cfg TwilioConfig, log *logger.Logger) *twilioClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = twilioBaseURL
	}
	return &twilioClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
		backoff:    500 * time.Millisecond,
	}
}

func (c *twilioClient) post(ctx context.Context, resource string, form url.Values) error {
	endpoint := fmt.Sprintf("%s/Accounts/%s/%s.json", c.cfg.BaseURL, c.cfg.AccountSID, resource)
	payload := form.Encode()

	const maxAttempts = 3
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload))
		if err != nil {
			return fmt.Errorf("build twilio request: %w", err)
		}
		req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt == maxAttempts {
				return fmt.Errorf("twilio request failed after retries: %w", err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		var tr twilioResponse
		_ = sonic.Unmarshal(body, &tr)

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			c.log.Debug("twilio %s ok (status=%d sid=%s)", resource, resp.StatusCode, tr.SID)
			return nil
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			c.log.Warn("twilio %s temp error, attempt %d, status=%d: %s", resource, attempt, resp.StatusCode, tr.describe(body))
			if attempt == maxAttempts {
				return fmt.Errorf("twilio error after retries: status=%d: %s", resp.StatusCode, tr.describe(body))
			}
			c.sleep(ctx, attempt)
			continue
		}

		return fmt.Errorf("twilio error: status=%d: %s", resp.StatusCode, tr.describe(body))
	}
	return errors.New("twilio: unreachable")
}

// twilioResponse holds the fields we read from Twilio's JSON replies.
// Errors carry code and message; created resources carry sid.
type twilioResponse struct {
	SID     string `json:"sid"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (r twilioResponse) describe(raw []byte) string {
	if r.Message != "" {
		return fmt.Sprintf("%s (code %d)", r.Message, r.Code)
	}
	return string(raw)
}

func (c *twilioClient) sleep(ctx context.Context, attempt int) {
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(attempt) * c.backoff):
	}
}

// TwilioSMS sends threat alerts as text messages.
type TwilioSMS struct {
	client *twilioClient
}

// NewTwilioSMS creates an SMS alerter.
func NewTwilioSMS(cfg TwilioConfig, log *logger.Logger) (*TwilioSMS, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &TwilioSMS{client: newTwilioClient(cfg, log)}, nil
}

// Name implements domain.Alerter.
func (s *TwilioSMS) Name() string { return "sms" }

// Send posts the rendered alert to the Messages resource.
func (s *TwilioSMS) Send(ctx context.Context, a domain.Alert) error {
	form := url.Values{}
	form.Set("To", s.client.cfg.To)
	form.Set("From", s.client.cfg.From)
	form.Set("Body", RenderSMS(a))
	return s.client.post(ctx, "Messages", form)
}

// TwilioCall places a voice call that reads the alert aloud.
type TwilioCall struct {
	client *twilioClient
}

// NewTwilioCall creates a voice-call alerter.
func NewTwilioCall(cfg TwilioConfig, log *logger.Logger) (*TwilioCall, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &TwilioCall{client: newTwilioClient(cfg, log)}, nil
}

// Name implements domain.Alerter.
func (c *TwilioCall) Name() string { return "call" }

// Send posts an inline TwiML <Say> to the Calls resource.
func (c *TwilioCall) Send(ctx context.Context, a domain.Alert) error {
	form := url.Values{}
	form.Set("To", c.client.cfg.To)
	form.Set("From", c.client.cfg.From)
	form.Set("Twiml", twiml(RenderCall(a)))
	return c.client.post(ctx, "Calls", form)
}

func twiml(say string) string {
	var esc bytes.Buffer
	_ = xml.EscapeText(&esc, []byte(say))
	return "<Response><Say>" + esc.String() + "</Say></Response>"
}
