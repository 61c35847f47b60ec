// pkg/email/email.go
package email

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"time"
)

const DefaultAPIURL = "https://api.resend.com/emails"

var ErrAPIKeyRequired = errors.New("resend API key is required")

type EmailService struct {
	apiKey    string
	apiURL    string
	from      string
	client    *http.Client
	templates *template.Template
}

type EmailData struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Html    string `json:"html"`
}

// Template data structures
type WelcomeEmailData struct {
	Name string
}

type OTPEmailData struct {
	Code    string
	Minutes int
}

type InvoiceData struct {
	InvoiceNumber string
	Name          string
	PlanName      string
	Price         float64
	Currency      string
	PaidAt        time.Time
	ValidUntil    *time.Time
	WatchLimit    string
}

type SubscriptionCancelledData struct {
	Name     string
	PlanName string
	EndedAt  time.Time
}

type SubscriptionExpiryWarningData struct {
	Name       string
	PlanName   string
	DaysLeft   int
	ExpiryDate time.Time
}

type Option func(*EmailService)

func WithAPIURL(url string) Option {
	return func(s *EmailService) {
		if url != "" {
			s.apiURL = url
		}
	}
}

func WithFrom(from string) Option {
	return func(s *EmailService) {
		if from != "" {
			s.from = from
		}
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(s *EmailService) { s.client = c }
}

func NewEmailService(apiKey string, opts ...Option) (*EmailService, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("error loading email templates: %w", err)
	}

	s := &EmailService{
		apiKey:    apiKey,
		apiURL:    DefaultAPIURL,
		from:      "VidShare <no-reply@vidshare.local>",
		client:    &http.Client{Timeout: 15 * time.Second},
		templates: templates,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *EmailService) sendTemplateEmail(to, subject, templateName string, data interface{}) error {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, templateName, data); err != nil {
		return fmt.Errorf("template execution error: %w", err)
	}

	emailData := EmailData{
		From:    s.from,
		To:      to,
		Subject: subject,
		Html:    body.String(),
	}

	jsonData, err := json.Marshal(emailData)
	if err != nil {
		return fmt.Errorf("error marshaling email data: %w", err)
	}

	log.Printf("Sending %s email to: %s", templateName, to)

	req, err := http.NewRequest(http.MethodPost, s.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		log.Printf("Resend API response: Status: %d, Body: %s", resp.StatusCode, string(respBody))
		return fmt.Errorf("resend API error: %s", string(respBody))
	}

	return nil
}

// Email sending methods
func (s *EmailService) SendWelcomeEmail(email, name string) error {
	return s.sendTemplateEmail(email, "Welcome to VidShare! 🎉", "welcome.html", WelcomeEmailData{Name: name})
}

// SendOTPEmail satisfies otp.Mailer
func (s *EmailService) SendOTPEmail(email, code string, validFor time.Duration) error {
	data := OTPEmailData{
		Code:    code,
		Minutes: int(validFor.Minutes()),
	}
	return s.sendTemplateEmail(email, "Your VidShare login code 🔐", "otp.html", data)
}

func (s *EmailService) SendInvoiceEmail(email string, data InvoiceData) error {
	subject := fmt.Sprintf("Invoice %s for your %s plan 🧾", data.InvoiceNumber, data.PlanName)
	return s.sendTemplateEmail(email, subject, "invoice.html", data)
}

func (s *EmailService) SendSubscriptionCancelledEmail(email, name, planName string, endedAt time.Time) error {
	data := SubscriptionCancelledData{
		Name:     name,
		PlanName: planName,
		EndedAt:  endedAt,
	}
	return s.sendTemplateEmail(email, "Your Subscription Has Been Cancelled", "subscription_cancelled.html", data)
}

func (s *EmailService) SendSubscriptionExpiryWarning(
	email, name, planName string,
	expiryDate time.Time,
	daysLeft int,
) error {
	data := SubscriptionExpiryWarningData{
		Name:       name,
		PlanName:   planName,
		DaysLeft:   daysLeft,
		ExpiryDate: expiryDate,
	}
	return s.sendTemplateEmail(
		email,
		fmt.Sprintf("Your Subscription Expires in %d Days ⚠️", daysLeft),
		"subscription_expiry_warning.html",
		data,
	)
}
