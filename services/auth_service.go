package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"calibration-backend/models"
	"calibration-backend/repository"
	"calibration-backend/services/transport"
	"calibration-backend/utils"

	"go.uber.org/zap"
)

const (
	OTPTTL            = 10 * time.Minute
	minPasswordLength = 6
)

type AuthStore interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error
	UpdatePassword(ctx context.Context, id uint, hash string) error

	CustomerByEmail(ctx context.Context, email string) (*models.Customer, error)
	MobileUserByCustomer(ctx context.Context, customerID uint) (*models.MobileUser, error)
	SaveMobileUser(ctx context.Context, user *models.MobileUser) error
}

type AuthService struct {
	store     AuthStore
	otpSender transport.Sender
	secret    string
	expiry    time.Duration
	clock     Clock
	newOTP    func() (string, error)
	logger    *zap.Logger
}

func NewAuthService(store AuthStore, otpSender transport.Sender, secret string, expiry time.Duration, clock Clock, logger *zap.Logger) *AuthService {
	return &AuthService{
		store:     store,
		otpSender: otpSender,
		secret:    secret,
		expiry:    expiry,
		clock:     clock,
		newOTP:    randomOTP,
		logger:    logger,
	}
}

// randomOTP returns six digits, never starting with zero.
func randomOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type CustomerLoginResult struct {
	Token    string           `json:"token"`
	Customer *models.Customer `json:"customer"`
}

type VerifyOTPRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	DeviceToken string `json:"deviceToken"`
	Platform    string `json:"platform"`
}

var errInvalidCredentials = &AuthError{Message: "invalid credentials"}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email, ok := utils.NormalizeEmail(email)
	if !ok || password == "" {
		return nil, errInvalidCredentials
	}

	user, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive || !utils.CheckPasswordHash(password, user.Password) {
		return nil, errInvalidCredentials
	}

	token, err := utils.GenerateToken(s.secret, s.expiry, utils.TokenStaff, user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	now := s.clock()
	if err := s.store.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to record last login", zap.Uint("user_id", user.ID), zap.Error(err))
	} else {
		user.LastLogin = &now
	}
	return &LoginResult{Token: token, User: user}, nil
}

func (s *AuthService) Me(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	return lookup(user, err, "user", userID)
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	var v validator
	v.check(current != "", "currentPassword", "is required")
	v.check(len(next) >= minPasswordLength, "newPassword", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	if err := v.err(); err != nil {
		return err
	}

	user, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	if !utils.CheckPasswordHash(current, user.Password) {
		return &AuthError{Message: "current password is incorrect"}
	}
	hash, err := utils.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *AuthService) activeCustomer(ctx context.Context, email string) (*models.Customer, error) {
	normalized, ok := utils.NormalizeEmail(email)
	if !ok {
		return nil, &ValidationError{Fields: map[string]string{"email": "must be a valid email address"}}
	}
	customer, err := s.store.CustomerByEmail(ctx, normalized)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !customer.IsActive) {
		return nil, &NotFoundError{Missing: []Missing{{Entity: "customer"}}}
	}
	if err != nil {
		return nil, fmt.Errorf("load customer: %w", err)
	}
	return customer, nil
}

// RequestCustomerOTP issues a one-time code and mails it to the customer's address on file.
// Only the bcrypt hash is stored.
func (s *AuthService) RequestCustomerOTP(ctx context.Context, email string) error {
	customer, err := s.activeCustomer(ctx, email)
	if err != nil {
		return err
	}

	code, err := s.newOTP()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	hash, err := utils.HashPassword(code)
	if err != nil {
		return fmt.Errorf("hash otp: %w", err)
	}

	mobile, err := s.store.MobileUserByCustomer(ctx, customer.ID)
	if errors.Is(err, repository.ErrNotFound) {
		mobile = &models.MobileUser{CustomerID: customer.ID}
	} else if err != nil {
		return fmt.Errorf("load mobile user: %w", err)
	}
	expires := s.clock().Add(OTPTTL)
	mobile.Email = customer.Email
	mobile.OTPHash = hash
	mobile.OTPExpiresAt = &expires
	if err := s.store.SaveMobileUser(ctx, mobile); err != nil {
		return fmt.Errorf("save otp: %w", err)
	}

	msg := transport.Message{
		To:      customer.Email,
		Subject: "Your login code",
		Body: fmt.Sprintf("<p>Dear %s,</p><p>Your one-time login code is <strong>%s</strong>. It expires in %d minutes.</p>",
			customer.ContactPerson, code, int(OTPTTL.Minutes())),
	}
	if err := s.otpSender.Send(ctx, msg); err != nil {
		return &TransportError{Channel: string(models.ChannelEmail), Err: err}
	}
	s.logger.Info("customer otp issued", zap.Uint("customer_id", customer.ID))
	return nil
}

// VerifyOTP checks a code, consumes it and returns a customer token.
func (s *AuthService) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*CustomerLoginResult, error) {
	var v validator
	req.OTP = strings.TrimSpace(req.OTP)
	v.check(len(req.OTP) == 6, "otp", "must be 6 digits")
	if err := v.err(); err != nil {
		return nil, err
	}

	customer, err := s.activeCustomer(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	invalid := &AuthError{Message: "invalid or expired OTP"}
	mobile, err := s.store.MobileUserByCustomer(ctx, customer.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, fmt.Errorf("load mobile user: %w", err)
	}
	if mobile.OTPHash == "" || mobile.OTPExpiresAt == nil || !s.clock().Before(*mobile.OTPExpiresAt) {
		return nil, invalid
	}
	if !utils.CheckPasswordHash(req.OTP, mobile.OTPHash) {
		return nil, invalid
	}

	mobile.OTPHash = ""
	mobile.OTPExpiresAt = nil
	mobile.IsVerified = true
	if req.DeviceToken != "" {
		mobile.DeviceToken = req.DeviceToken
	}
	if req.Platform != "" {
		mobile.Platform = req.Platform
	}
	if err := s.store.SaveMobileUser(ctx, mobile); err != nil {
		return nil, fmt.Errorf("save mobile user: %w", err)
	}

	token, err := utils.GenerateToken(s.secret, s.expiry, utils.TokenCustomer, customer.ID, "")
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	customer.Addresses = nil
	return &CustomerLoginResult{Token: token, Customer: customer}, nil
}
