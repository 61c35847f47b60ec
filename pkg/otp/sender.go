package otp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

type Mailer interface {
	SendOTPEmail(to, code string, validFor time.Duration) error
}

// EmailSender delivers codes through the transactional mailer
type EmailSender struct {
	Mailer Mailer
	TTL    time.Duration
}

func (s *EmailSender) Send(ctx context.Context, to, code string) error {
	return s.Mailer.SendOTPEmail(to, code, s.TTL)
}

// SMSSender posts codes to an HTTP SMS gateway
type SMSSender struct {
	APIURL     string
	APIKey     string
	From       string
	HTTPClient *http.Client
}

type smsRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

func NewSMSSender(apiURL, apiKey, from string) *SMSSender {
	return &SMSSender{
		APIURL: apiURL,
		APIKey: apiKey,
		From:   from,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *SMSSender) Send(ctx context.Context, to, code string) error {
	body, err := json.Marshal(smsRequest{
		From: s.From,
		To:   to,
		Text: fmt.Sprintf("Your verification code is %s. It expires in 5 minutes.", code),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.APIURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sms api error: %s (status: %d)", string(respBody), resp.StatusCode)
	}
	return nil
}

// LogSender prints codes instead of sending them. Used when no provider is configured.
type LogSender struct {
	Channel Channel
}

func (s LogSender) Send(ctx context.Context, to, code string) error {
	log.Printf("[%s] passcode for %s: %s", s.Channel, to, code)
	return nil
}
