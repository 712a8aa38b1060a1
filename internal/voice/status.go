package voice

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrSpeechAuth means the speech service rejected the credentials.
	ErrSpeechAuth = errors.New("speech service rejected credentials")
	// ErrSpeechRateLimited means the speech service is throttling requests
	// or the subscription is out of quota.
	ErrSpeechRateLimited = errors.New("speech service rate limited")
)

// maxErrorBody caps how much of a failed response is kept for the error.
const maxErrorBody = 512

// StatusError is a non-200 reply from a speech backend. Err is
// ErrSpeechAuth or ErrSpeechRateLimited when the status maps to one.
type StatusError struct {
	Service    string
	Code       int
	Body       string
	RetryAfter time.Duration // set on 429 when the server sent Retry-After
	Err        error
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s tts error %d", e.Service, e.Code)
	if e.Err != nil {
		msg += " (" + e.Err.Error() + ")"
	}
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(", retry after %s", e.RetryAfter)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *StatusError) Unwrap() error { return e.Err }

// checkStatus returns nil for 200 and a *StatusError otherwise. It reads
// at most maxErrorBody bytes of the body.
func checkStatus(service string, resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	e := &StatusError{
		Service: service,
		Code:    resp.StatusCode,
		Body:    strings.TrimSpace(string(body)),
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		e.Err = ErrSpeechAuth
	case http.StatusTooManyRequests:
		e.Err = ErrSpeechRateLimited
		e.RetryAfter = retryAfter(resp.Header.Get("Retry-After"))
	}
	return e
}

// retryAfter parses the delay-seconds form of Retry-After.
func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if d, err := time.ParseDuration(strings.TrimSpace(v) + "s"); err == nil && d > 0 {
		return d
	}
	return 0
}
