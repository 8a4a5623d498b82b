package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

// MailtrapMailer sends through the Mailtrap HTTP API instead of SMTP.
// Used in staging where outbound port 25/587 is blocked.
type MailtrapMailer struct {
	apiURL string
	apiKey string
	http   *http.Client
}

func NewMailtrapMailer() *MailtrapMailer {
	return &MailtrapMailer{
		apiURL: os.Getenv("MAILTRAP_API_URL"),
		apiKey: os.Getenv("MAILTRAP_API_TOKEN"),
		http:   http.DefaultClient,
	}
}

type mailtrapPerson struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailtrapPayload struct {
	From     mailtrapPerson   `json:"from"`
	To       []mailtrapPerson `json:"to"`
	Subject  string           `json:"subject"`
	Text     string           `json:"text,omitempty"`
	HTML     string           `json:"html,omitempty"`
	Category string           `json:"category,omitempty"`
}

func (m *MailtrapMailer) Send(ctx context.Context, e Email) error {
	if m.apiURL == "" || m.apiKey == "" {
		return fmt.Errorf("mailtrap credentials not configured")
	}

	to := make([]mailtrapPerson, 0, len(e.To))
	for _, addr := range e.To {
		to = append(to, mailtrapPerson{Email: addr})
	}

	payload := mailtrapPayload{
		From:     mailtrapPerson{Email: e.From, Name: e.FromName},
		To:       to,
		Subject:  e.Subject,
		HTML:     e.HTMLBody,
		Text:     e.TextBody,
		Category: "Transactional",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := m.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		return fmt.Errorf("mailtrap API error: %d", res.StatusCode)
	}
	return nil
}

// FromEnv picks the mail driver: "mailtrap" uses the HTTP API, anything
// else (including unset) means SMTP.
func FromEnv() Service {
	if os.Getenv("MAIL_DRIVER") == "mailtrap" {
		return NewMailtrapMailer()
	}
	return NewSMTPMailer(SMTPConfigFromEnv())
}
