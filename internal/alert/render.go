package alert

import (
	"fmt"
	"strings"
	"time"

	"github.com/hammamikhairi/sentinel/internal/domain"
)

const timeLayout = "2006-01-02 15:04:05"

// RenderSMS builds the text message body for a threat alert.
func RenderSMS(a domain.Alert) string {
	msg := fmt.Sprintf("SECURITY ALERT: %s flagged at %s (confidence %s).",
		subjectOrUnknown(a.Subject), stamp(a.At), percent(a.Confidence))
	if len(a.Accessories) > 0 {
		msg += " Wearing " + itemList(a.Accessories) + "."
	}
	if a.ID != "" {
		msg += " Ref " + shortRef(a.ID) + "."
	}
	return msg
}

// RenderCall builds the sentence read out on the voice call.
func RenderCall(a domain.Alert) string {
	return fmt.Sprintf("Security alert. %s was flagged by the screening station with %s confidence. Please check the station.",
		subjectOrUnknown(a.Subject), percent(a.Confidence))
}

// RenderEmail returns the subject line and plain-text body of the email.
func RenderEmail(a domain.Alert) (subject, body string) {
	who := subjectOrUnknown(a.Subject)
	subject = fmt.Sprintf("Security alert: %s", who)
	body = fmt.Sprintf(
		"The screening station flagged a threat.\n\nSubject:    %s\nConfidence: %s\nTime:       %s\n",
		who, percent(a.Confidence), stamp(a.At),
	)
	if len(a.Accessories) > 0 {
		body += fmt.Sprintf("Wearing:    %s\n", itemList(a.Accessories))
	}
	if a.ID != "" {
		body += fmt.Sprintf("Reference:  %s\n", a.ID)
	}
	if len(a.Image) > 0 {
		body += "\nThe captured frame is attached.\n"
	}
	return subject, body
}

// shortRef is enough of the alert ID to match an SMS with the email.
func shortRef(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func itemList(items []domain.Accessory) string {
	names := make([]string, len(items))
	for i, a := range items {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}

func subjectOrUnknown(s string) string {
	if s == "" {
		return "Unknown person"
	}
	return s
}

func percent(c float64) string {
	return fmt.Sprintf("%.1f%%", c*100)
}

func stamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format(timeLayout)
}
