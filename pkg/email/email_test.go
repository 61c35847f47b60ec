package email

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, status int) (*EmailService, *[]EmailData) {
	t.Helper()
	var sent []EmailData

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var data EmailData
		require.NoError(t, json.NewDecoder(r.Body).Decode(&data))
		sent = append(sent, data)
		w.WriteHeader(status)
		w.Write([]byte(`{"id":"msg_1"}`))
	}))
	t.Cleanup(srv.Close)

	s, err := NewEmailService("test-key", WithAPIURL(srv.URL), WithFrom("Test <t@example.com>"))
	require.NoError(t, err)
	return s, &sent
}

func TestNewEmailServiceRequiresKey(t *testing.T) {
	_, err := NewEmailService("")
	assert.ErrorIs(t, err, ErrAPIKeyRequired)
}

func TestSendOTPEmail(t *testing.T) {
	s, sent := newTestService(t, http.StatusOK)

	require.NoError(t, s.SendOTPEmail("a@example.com", "123456", 5*time.Minute))
	require.Len(t, *sent, 1)

	msg := (*sent)[0]
	assert.Equal(t, "a@example.com", msg.To)
	assert.Equal(t, "Test <t@example.com>", msg.From)
	assert.Contains(t, msg.Html, "123456")
	assert.Contains(t, msg.Html, "5 minutes")
}

func TestSendInvoiceEmail(t *testing.T) {
	s, sent := newTestService(t, http.StatusCreated)

	until := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	err := s.SendInvoiceEmail("b@example.com", InvoiceData{
		InvoiceNumber: "INV-7",
		Name:          "Bob",
		PlanName:      "gold",
		Price:         100,
		Currency:      "inr",
		PaidAt:        time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		ValidUntil:    &until,
		WatchLimit:    "Unlimited",
	})
	require.NoError(t, err)

	html := (*sent)[0].Html
	assert.Contains(t, (*sent)[0].Subject, "INV-7")
	assert.Contains(t, html, "100.00 INR")
	assert.Contains(t, html, "01 Feb 2026")
	assert.Contains(t, html, "Unlimited")
}

func TestSendReportsAPIError(t *testing.T) {
	s, _ := newTestService(t, http.StatusUnprocessableEntity)
	assert.Error(t, s.SendWelcomeEmail("c@example.com", "Cara"))
}
