package mail

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/morgante/graph-auth/core"
)

const sendgridMailEndpoint = "https://api.sendgrid.com/v3/mail/send"

// SendGridMailer delivers rendered templates through the SendGrid v3 API.
type SendGridMailer struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

var _ core.Mailer = (*SendGridMailer)(nil)

func NewSendGridMailer(apiKey string) *SendGridMailer {
	return &SendGridMailer{
		apiKey:   apiKey,
		endpoint: sendgridMailEndpoint,
		client:   http.DefaultClient,
	}
}

func (m *SendGridMailer) Send(msg core.EmailMessage) error {
	tmpl, err := LookupTemplate(msg.TemplateName)
	if err != nil {
		return err
	}

	subject, body, err := tmpl.Render(msg.Context)
	if err != nil {
		return err
	}

	to := make([]sgAddress, 0, len(msg.To))
	for _, addr := range msg.To {
		to = append(to, sgAddress{Email: addr})
	}

	payload := sgMailPayload{
		Personalizations: []sgPersonalization{{To: to}},
		From:             sgAddress{Email: msg.From},
		Subject:          subject,
		Content:          []sgContent{{Type: "text/plain", Value: body}},
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal SendGrid payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, m.endpoint, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to create SendGrid request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("SendGrid request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("SendGrid returned %d: %s", resp.StatusCode, respBody)
	}
	return nil
}

type sgMailPayload struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}
