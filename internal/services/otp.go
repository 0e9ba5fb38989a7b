package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"regexp"
	"time"

	"github.com/example/bikestore/internal/models"
	"github.com/example/bikestore/internal/utils"
)

const (
	supportedISDCode   = "91"
	maxOTPAttempts     = 5
	defaultOTPLifetime = 5 * time.Minute
)

var phonePattern = regexp.MustCompile(`^\d{10}$`)

// OTPService issues and verifies one-time codes. Delivery is delegated to an
// SMSSender so the lifecycle does not depend on the provider.
type OTPService struct {
	otps      OTPRepository
	profiles  ProfileFinder
	sender    SMSSender
	ttl       time.Duration
	jwtSecret string
	tokenTTL  time.Duration
	now       func() time.Time
	generate  func() (string, error)
}

// OTPConfig configures OTPService.
type OTPConfig struct {
	TTL       time.Duration
	JWTSecret string
	TokenTTL  time.Duration
}

// NewOTPService constructs OTPService.
func NewOTPService(otps OTPRepository, profiles ProfileFinder, sender SMSSender, cfg OTPConfig) *OTPService {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultOTPLifetime
	}
	return &OTPService{
		otps:      otps,
		profiles:  profiles,
		sender:    sender,
		ttl:       cfg.TTL,
		jwtSecret: cfg.JWTSecret,
		tokenTTL:  cfg.TokenTTL,
		now:       time.Now,
		generate:  generateVerificationCode,
	}
}

// VerifyResult is returned after a successful verification.
type VerifyResult struct {
	Verified      bool            `json:"verified"`
	Token         string          `json:"token"`
	ProfileExists bool            `json:"profile_exists"`
	Profile       *models.Profile `json:"profile"`
}

// ValidatePhone checks the supported isd code and the 10 digit number format.
func ValidatePhone(isdCode, phone string) error {
	if isdCode != supportedISDCode {
		return ErrInvalidISDCode
	}
	if !phonePattern.MatchString(phone) {
		return ErrInvalidPhone
	}
	return nil
}

// Generate replaces any pending code for the phone and sends a new one.
func (s *OTPService) Generate(ctx context.Context, isdCode, phone string) (time.Time, error) {
	if err := ValidatePhone(isdCode, phone); err != nil {
		return time.Time{}, err
	}

	if err := s.otps.DeleteUnverified(ctx, isdCode, phone); err != nil {
		return time.Time{}, err
	}

	code, err := s.generate()
	if err != nil {
		return time.Time{}, fmt.Errorf("generate otp: %w", err)
	}
	hash, err := utils.HashSecret(code)
	if err != nil {
		return time.Time{}, fmt.Errorf("hash otp: %w", err)
	}

	otp := &models.OTP{
		IsdCode:     isdCode,
		PhoneNumber: phone,
		CodeHash:    hash,
		ExpiresAt:   s.now().Add(s.ttl),
	}
	if err := s.otps.Create(ctx, otp); err != nil {
		return time.Time{}, err
	}

	if err := s.sender.SendOTP(ctx, isdCode, phone, code); err != nil {
		log.Printf("[OTP] delivery to %s failed: %v", phone, err)
		if delErr := s.otps.Delete(ctx, otp.ID); delErr != nil {
			log.Printf("[OTP] failed to delete undelivered code %s: %v", otp.ID, delErr)
		}
		return time.Time{}, ErrSMSDelivery
	}

	log.Printf("[OTP] code sent to %s, expires %s", phone, otp.ExpiresAt.Format(time.RFC3339))
	return otp.ExpiresAt, nil
}

// Verify checks code against the newest live code for the phone. On success
// the code is consumed and a session token is issued.
func (s *OTPService) Verify(ctx context.Context, isdCode, phone, code string) (*VerifyResult, error) {
	if err := ValidatePhone(isdCode, phone); err != nil {
		return nil, err
	}

	now := s.now()
	otp, err := s.otps.FindLatestUnverified(ctx, isdCode, phone, now)
	if err != nil {
		return nil, err
	}
	if otp == nil {
		return nil, ErrOTPExpired
	}

	if otp.Attempts >= maxOTPAttempts {
		if err := s.otps.Delete(ctx, otp.ID); err != nil {
			return nil, err
		}
		return nil, ErrOTPAttemptsExceeded
	}

	if !utils.CheckSecret(otp.CodeHash, code) {
		if err := s.otps.IncrementAttempts(ctx, otp.ID); err != nil {
			return nil, err
		}
		return nil, ErrInvalidOTP
	}

	if err := s.otps.MarkVerified(ctx, otp.ID, now); err != nil {
		return nil, err
	}

	token, err := utils.GeneratePhoneToken(s.jwtSecret, isdCode, phone, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	profile, err := s.profiles.FindProfile(ctx, isdCode, phone)
	if err != nil {
		return nil, err
	}

	return &VerifyResult{
		Verified:      true,
		Token:         token,
		ProfileExists: profile != nil,
		Profile:       profile,
	}, nil
}

// StartJanitor deletes expired codes every interval until ctx is done.
func (s *OTPService) StartJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.otps.PurgeExpired(ctx, s.now())
				if err != nil && !errors.Is(err, context.Canceled) {
					log.Printf("[OTP] purge failed: %v", err)
					continue
				}
				if n > 0 {
					log.Printf("[OTP] purged %d expired codes", n)
				}
			}
		}
	}()
}

func generateVerificationCode() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
