package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// EmailClient posts messages to the transactional email provider.
type EmailClient struct {
	http *resty.Client
	from string
}

func NewEmailClient(baseURL, apiKey, from string) *EmailClient {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	if apiKey != "" {
		httpClient.SetHeader("Authorization", "Bearer "+apiKey)
	}

	return &EmailClient{http: httpClient, from: from}
}

type emailRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (c *EmailClient) Send(ctx context.Context, to, subject, body string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(emailRequest{From: c.from, To: to, Subject: subject, Body: body}).
		Post("/v1/messages")
	if err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	if resp.IsError() {
		return fmt.Errorf("send email to %s: status %d", to, resp.StatusCode())
	}

	return nil
}
