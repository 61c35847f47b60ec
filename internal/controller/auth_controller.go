package controller

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/slug"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"vidshare_backend/internal/model"
	"vidshare_backend/internal/repository"
	"vidshare_backend/pkg/database"
	"vidshare_backend/pkg/email"
	"vidshare_backend/pkg/otp"
	"vidshare_backend/pkg/subscription"
	"vidshare_backend/pkg/utils/jwt"
	"vidshare_backend/pkg/utils/location"
)

type RegisterInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	City        string `json:"city"`
	State       string `json:"state"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type OTPRequestInput struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
	State string `json:"state"`
}

type OTPVerifyInput struct {
	Key  string `json:"key"`
	Code string `json:"code"`
}

var (
	otpService *otp.Service
	authSubs   *repository.SubscriptionRepository
	authGate   *subscription.Gate
	authNow    = time.Now
)

func InitAuthController(service *otp.Service, subs *repository.SubscriptionRepository, gate *subscription.Gate) {
	otpService = service
	authSubs = subs
	authGate = gate
}

// generateUsername builds a URL friendly username from a display name
func generateUsername(name string) string {
	return slug.Make(name)
}

// uniqueUsername appends a short suffix when the base is taken
func uniqueUsername(tx *gorm.DB, base string) string {
	if base == "" {
		base = "user"
	}
	username := base
	for i := 0; i < 5; i++ {
		var count int64
		tx.Model(&model.User{}).Where("username = ?", username).Count(&count)
		if count == 0 {
			return username
		}
		username = fmt.Sprintf("%s-%s", base, randomHex(2))
	}
	return fmt.Sprintf("%s-%s", base, randomHex(4))
}

func randomHex(n int) string {
	b := make([]byte, n)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// createAccount inserts the user with an implicit free subscription row
func createAccount(c *fiber.Ctx, user *model.User) error {
	if user.Username == "" {
		base := user.Name
		if base == "" {
			base = strings.Split(user.Email, "@")[0]
		}
		user.Username = uniqueUsername(database.GetDB(), generateUsername(base))
	}
	if user.ChannelName == "" {
		user.ChannelName = user.DisplayName()
	}
	if user.ChannelSlug == "" {
		user.ChannelSlug = user.Username
	}

	if err := database.GetDB().Create(user).Error; err != nil {
		return err
	}

	if authSubs != nil {
		if err := authSubs.CreateFree(c.UserContext(), user.ID, authNow()); err != nil {
			log.Printf("Could not create free plan row for user %d: %v", user.ID, err)
		}
	}

	if email.GlobalEmailService != nil {
		if err := email.GlobalEmailService.SendWelcomeEmail(user.Email, user.DisplayName()); err != nil {
			log.Printf("Could not send welcome email: %v", err)
		}
	}
	return nil
}

func issueToken(c *fiber.Ctx, status int, message string, user *model.User) error {
	token, err := jwt.GenerateToken(user.ID, user.Email, user.Username, user.IsAdmin)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not generate token",
		})
	}

	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"token":   token,
		"user":    user.GetPublicProfile(),
	})
}

func Register(c *fiber.Ctx) error {
	input := new(RegisterInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if !strings.Contains(input.Email, "@") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "A valid email is required",
		})
	}
	if len(input.Password) < 6 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Password must be at least 6 characters",
		})
	}

	var existingUser model.User
	if err := database.GetDB().Where("email = ?", input.Email).First(&existingUser).Error; err == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email already exists",
		})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not hash password",
		})
	}

	state, _ := location.Normalize(input.State)
	user := model.User{
		Email:       input.Email,
		Password:    string(hashedPassword),
		Name:        strings.TrimSpace(input.Name),
		PhoneNumber: strings.TrimSpace(input.PhoneNumber),
		City:        strings.TrimSpace(input.City),
		State:       state,
	}
	if input.Username != "" {
		user.Username = uniqueUsername(database.GetDB(), generateUsername(input.Username))
	}

	if err := createAccount(c, &user); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create user",
		})
	}

	return issueToken(c, fiber.StatusCreated, "Registration successful", &user)
}

func Login(c *fiber.Ctx) error {
	input := new(LoginInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	var user model.User
	if err := database.GetDB().Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).First(&user).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	return issueToken(c, fiber.StatusOK, "Login successful", &user)
}

// GetMe returns the logged in user with their effective plan
func GetMe(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var user model.User
	if err := database.GetDB().First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "User not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch user",
		})
	}

	plan := subscription.FreePlan
	if authGate != nil {
		if p, err := authGate.CurrentPlan(c.UserContext(), user.ID); err == nil {
			plan = p
		}
	}

	return c.JSON(fiber.Map{
		"user": fiber.Map{
			"id":           user.ID,
			"email":        user.Email,
			"username":     user.Username,
			"name":         user.DisplayName(),
			"channel_slug": user.ChannelSlug,
			"phone_number": user.PhoneNumber,
			"city":         user.City,
			"state":        user.State,
			"is_admin":     user.IsAdmin,
			"created_at":   user.CreatedAt,
		},
		"plan":  plan,
		"theme": otp.ThemeFor(user.State, authNow()),
	})
}

// RequestOTP sends a login passcode by email or SMS depending on the region
func RequestOTP(c *fiber.Ctx) error {
	if otpService == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "OTP login is not available",
		})
	}

	input := new(OTPRequestInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	dest := otp.Destination{
		Email: strings.TrimSpace(input.Email),
		Phone: strings.TrimSpace(input.Phone),
		State: input.State,
	}

	// known accounts fill in whatever the request left out
	var user model.User
	if found := lookupUser(dest.Email, dest.Phone, &user); found {
		if dest.Email == "" {
			dest.Email = user.Email
		}
		if dest.Phone == "" {
			dest.Phone = user.PhoneNumber
		}
		if dest.State == "" {
			dest.State = user.State
		}
	}

	channel, key, err := otpService.Request(c.UserContext(), dest)
	if err != nil {
		if errors.Is(err, otp.ErrNoDestination) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "An email or phone number is required",
			})
		}
		log.Printf("OTP request failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Could not send passcode",
		})
	}

	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Passcode sent via %s", channel),
		"channel": channel,
		"key":     key,
	})
}

// VerifyOTP exchanges a passcode for a JWT, creating the account on first
// email login
func VerifyOTP(c *fiber.Ctx) error {
	if otpService == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "OTP login is not available",
		})
	}

	input := new(OTPVerifyInput)
	if err := c.BodyParser(input); err != nil || input.Key == "" || input.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Key and code are required",
		})
	}

	if err := otpService.Verify(c.UserContext(), input.Key, input.Code); err != nil {
		status := fiber.StatusUnauthorized
		if errors.Is(err, otp.ErrTooManyAttempts) {
			status = fiber.StatusTooManyRequests
		}
		if !errors.Is(err, otp.ErrCodeInvalid) && !errors.Is(err, otp.ErrCodeExpired) && !errors.Is(err, otp.ErrTooManyAttempts) {
			log.Printf("OTP verify failed: %v", err)
			status = fiber.StatusInternalServerError
		}
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	key := strings.ToLower(strings.TrimSpace(input.Key))
	isEmail := strings.Contains(key, "@")

	var user model.User
	var found bool
	if isEmail {
		found = lookupUser(key, "", &user)
	} else {
		found = lookupUser("", input.Key, &user)
	}

	if found {
		return issueToken(c, fiber.StatusOK, "Login successful", &user)
	}
	if !isEmail {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No account for this phone number",
		})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(randomHex(16)), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create user",
		})
	}
	user = model.User{
		Email:    key,
		Password: string(hashed),
		Name:     strings.Split(key, "@")[0],
	}
	if err := createAccount(c, &user); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create user",
		})
	}
	return issueToken(c, fiber.StatusCreated, "Account created", &user)
}

func lookupUser(emailAddr, phone string, user *model.User) bool {
	db := database.GetDB()
	if emailAddr != "" {
		if err := db.Where("email = ?", strings.ToLower(emailAddr)).First(user).Error; err == nil {
			return true
		}
	}
	if phone != "" {
		if err := db.Where("phone_number = ?", phone).First(user).Error; err == nil {
			return true
		}
	}
	return false
}

// GetTheme returns the UI theme for a state. Logged in users default to
// their profile state.
func GetTheme(c *fiber.Ctx) error {
	state := c.Query("state")
	if state == "" {
		if claims := claimsFrom(c); claims != nil {
			var user model.User
			if err := database.GetDB().Select("id", "state").First(&user, claims.UserID).Error; err == nil {
				state = user.State
			}
		}
	}

	state, _ = location.Normalize(state)
	return c.JSON(fiber.Map{
		"theme":      otp.ThemeFor(state, authNow()),
		"state":      state,
		"southIndia": otp.IsSouthIndia(state),
		"otpChannel": otp.ChannelFor(state),
	})
}
