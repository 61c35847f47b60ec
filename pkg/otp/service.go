package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const (
	DefaultTTL         = 5 * time.Minute
	DefaultMaxAttempts = 5
	codeDigits         = 6
)

var (
	ErrNoDestination   = errors.New("no destination for passcode")
	ErrNoSender        = errors.New("no sender for channel")
	ErrCodeExpired     = errors.New("passcode expired or not found")
	ErrCodeInvalid     = errors.New("invalid passcode")
	ErrTooManyAttempts = errors.New("too many attempts")
)

type Sender interface {
	Send(ctx context.Context, to, code string) error
}

type Destination struct {
	Email string
	Phone string
	State string
}

type Service struct {
	store       Store
	senders     map[Channel]Sender
	now         func() time.Time
	ttl         time.Duration
	maxAttempts int
	generate    func() (string, error)
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

func WithGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.generate = gen }
}

func NewService(store Store, senders map[Channel]Sender, opts ...Option) *Service {
	s := &Service{
		store:       store,
		senders:     senders,
		now:         time.Now,
		ttl:         DefaultTTL,
		maxAttempts: DefaultMaxAttempts,
		generate:    GenerateCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request generates and delivers a passcode. The returned key identifies the
// code for Verify: the email or phone it was sent to.
func (s *Service) Request(ctx context.Context, dest Destination) (Channel, string, error) {
	channel, to, err := Route(dest)
	if err != nil {
		return "", "", err
	}

	sender, ok := s.senders[channel]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrNoSender, channel)
	}

	code, err := s.generate()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate passcode: %w", err)
	}

	key := normalizeKey(to)
	entry := Entry{
		Code:      code,
		ExpiresAt: s.now().Add(s.ttl),
		Channel:   channel,
	}
	if err := s.store.Save(ctx, key, entry); err != nil {
		return "", "", fmt.Errorf("failed to store passcode: %w", err)
	}

	if err := sender.Send(ctx, to, code); err != nil {
		s.store.Delete(ctx, key)
		return "", "", fmt.Errorf("failed to send passcode via %s: %w", channel, err)
	}

	return channel, key, nil
}

// Verify consumes the code on success. The check and the consume or
// attempt count happen atomically in the store.
func (s *Service) Verify(ctx context.Context, key, code string) error {
	return s.store.Attempt(ctx, normalizeKey(key), code, s.maxAttempts, s.now())
}

// Route picks the channel and address a passcode for dest goes to, falling
// back to whichever address is present. The address is also the Verify key.
func Route(dest Destination) (Channel, string, error) {
	channel := ChannelFor(dest.State)

	to := dest.Email
	if channel == ChannelSMS {
		to = dest.Phone
	}
	if to == "" {
		if dest.Email != "" {
			channel, to = ChannelEmail, dest.Email
		} else if dest.Phone != "" {
			channel, to = ChannelSMS, dest.Phone
		}
	}
	if to == "" {
		return "", "", ErrNoDestination
	}
	return channel, to, nil
}

func GenerateCode() (string, error) {
	max := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
