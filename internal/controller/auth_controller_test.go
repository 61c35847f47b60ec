package controller

import (
	"context"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidshare_backend/internal/model"
	"vidshare_backend/internal/testutil"
	"vidshare_backend/pkg/otp"
)

type captureSender struct {
	to    string
	calls int
}

func (s *captureSender) Send(ctx context.Context, to, code string) error {
	s.to = to
	s.calls++
	return nil
}

func withOTP(t *testing.T, env *testEnv) (*captureSender, *captureSender) {
	t.Helper()
	mail, sms := &captureSender{}, &captureSender{}
	svc := otp.NewService(otp.NewMemoryStore(time.Now),
		map[otp.Channel]otp.Sender{otp.ChannelEmail: mail, otp.ChannelSMS: sms},
		otp.WithGenerator(func() (string, error) { return "123456", nil }))
	InitAuthController(svc, env.subs, env.gate)
	t.Cleanup(func() { InitAuthController(nil, nil, nil) })
	return mail, sms
}

func TestOTPLogin_EmailCreatesAccount(t *testing.T) {
	env := newTestEnv(t)
	mail, sms := withOTP(t, env)

	resp, body := env.do("POST", "/api/auth/otp/request", fiber.Map{"email": "New@Example.com", "state": "Kerala"}, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "email", body["channel"])
	assert.Equal(t, "new@example.com", body["key"])
	assert.Equal(t, 1, mail.calls)
	assert.Zero(t, sms.calls)

	resp, _ = env.do("POST", "/api/auth/otp/verify", fiber.Map{"key": "new@example.com", "code": "000000"}, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, body = env.do("POST", "/api/auth/otp/verify", fiber.Map{"key": "new@example.com", "code": "123456"}, "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, body["token"])

	var user model.User
	require.NoError(t, env.db.Where("email = ?", "new@example.com").First(&user).Error)
	assert.Equal(t, "new", user.Username)

	// the code is single use
	resp, _ = env.do("POST", "/api/auth/otp/verify", fiber.Map{"key": "new@example.com", "code": "123456"}, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestOTPLogin_SMSForOtherStates(t *testing.T) {
	env := newTestEnv(t)
	mail, sms := withOTP(t, env)

	resp, body := env.do("POST", "/api/auth/otp/request", fiber.Map{"phone": "+919800000000", "state": "Maharashtra"}, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "sms", body["channel"])
	assert.Equal(t, "+919800000000", sms.to)
	assert.Zero(t, mail.calls)

	resp, _ = env.do("POST", "/api/auth/otp/verify", fiber.Map{"key": "+919800000000", "code": "123456"}, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestOTPLogin_ExistingUserUsesProfileState(t *testing.T) {
	env := newTestEnv(t)
	mail, _ := withOTP(t, env)
	user := testutil.CreateUser(t, env.db, "asha")

	resp, body := env.do("POST", "/api/auth/otp/request", fiber.Map{"email": user.Email}, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "email", body["channel"])
	assert.Equal(t, user.Email, mail.to)

	resp, body = env.do("POST", "/api/auth/otp/verify", fiber.Map{"key": user.Email, "code": "123456"}, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["token"])
}

func TestOTPLogin_Unavailable(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do("POST", "/api/auth/otp/request", fiber.Map{"email": "x@example.com"}, "")
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestOTPLogin_NeedsDestination(t *testing.T) {
	env := newTestEnv(t)
	withOTP(t, env)

	resp, _ := env.do("POST", "/api/auth/otp/request", fiber.Map{"state": "Kerala"}, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGetTheme(t *testing.T) {
	env := newTestEnv(t)
	ist := time.FixedZone("IST", 5*60*60+30*60)
	authNow = func() time.Time { return time.Date(2026, 10, 17, 11, 0, 0, 0, ist) }
	t.Cleanup(func() { authNow = time.Now })

	resp, body := env.do("GET", "/api/theme?state=kerala", nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "light", body["theme"])
	assert.Equal(t, "Kerala", body["state"])
	assert.Equal(t, true, body["southIndia"])
	assert.Equal(t, "email", body["otpChannel"])

	resp, body = env.do("GET", "/api/theme?state=MH", nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "dark", body["theme"])
	assert.Equal(t, "sms", body["otpChannel"])

	// logged in users fall back to their profile state
	user := testutil.CreateUser(t, env.db, "meena")
	resp, body = env.do("GET", "/api/theme", nil, env.token(user))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Tamil Nadu", body["state"])
	assert.Equal(t, "light", body["theme"])
}
