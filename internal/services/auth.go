package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/ladybug-tracker/backend/internal/config"
	"github.com/ladybug-tracker/backend/internal/models"
	"github.com/ladybug-tracker/backend/internal/utils"
	"github.com/ladybug-tracker/backend/pkg/logger"
	"github.com/ladybug-tracker/backend/pkg/response"
)

type AuthService struct {
	db      *gorm.DB
	jwtCfg  *config.JWTConfig
	authCfg *config.AuthConfig
}

func NewAuthService(db *gorm.DB, jwtCfg *config.JWTConfig, authCfg *config.AuthConfig) *AuthService {
	return &AuthService{db: db, jwtCfg: jwtCfg, authCfg: authCfg}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	Name string `json:"name" binding:"required,min=2,max=100"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

type AuthResult struct {
	AccessToken     string       `json:"token"`
	AccessExpireAt  time.Time    `json:"expire_at"`
	RefreshToken    string       `json:"refresh_token"`
	RefreshExpireAt time.Time    `json:"refresh_expire_at"`
	User            *models.User `json:"user"`
}

// Register creates a new account. Email is the identity key; a duplicate is a
// conflict regardless of casing.
func (s *AuthService) Register(req *RegisterRequest, clientIP, userAgent string) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, response.NewConflict("an account with this email already exists")
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Password: hashed,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}

	return s.issueTokens(&user, clientIP, userAgent)
}

// Login authenticates by email and password. Both unknown email and wrong
// password return the same unauthorized error.
func (s *AuthService) Login(req *LoginRequest, clientIP, userAgent string) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewUnauthorized("invalid email or password")
		}
		return nil, err
	}

	if !utils.CheckPassword(req.Password, user.Password) {
		return nil, response.NewUnauthorized("invalid email or password")
	}

	return s.issueTokens(&user, clientIP, userAgent)
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued in the same transaction.
func (s *AuthService) Refresh(refreshToken, clientIP, userAgent string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, response.NewBadRequest("refresh token required")
	}

	hash := hashRefreshToken(refreshToken)

	var stored models.RefreshToken
	if err := s.db.Where("token_hash = ?", hash).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewUnauthorized("invalid refresh token")
		}
		return nil, err
	}
	if stored.RevokedAt != nil {
		return nil, response.NewUnauthorized("refresh token revoked")
	}
	if time.Now().After(stored.ExpiresAt) {
		return nil, response.NewUnauthorized("refresh token expired")
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", stored.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewUnauthorized("user no longer exists")
		}
		return nil, err
	}

	accessToken, err := utils.GenerateToken(user.ID, user.Email, s.jwtCfg.ExpireHour)
	if err != nil {
		return nil, err
	}
	newRefreshToken, newHash, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	newRecord := models.RefreshToken{
		UserID:      user.ID,
		TokenHash:   newHash,
		ExpiresAt:   now.Add(time.Duration(s.authCfg.RefreshExpireHours) * time.Hour),
		CreatedByIP: clientIP,
		UserAgent:   userAgent,
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&newRecord).Error; err != nil {
			return err
		}
		return tx.Model(&stored).Updates(map[string]interface{}{
			"revoked_at":           now,
			"replaced_by_token_id": newRecord.ID,
		}).Error
	}); err != nil {
		return nil, err
	}

	return &AuthResult{
		AccessToken:     accessToken,
		AccessExpireAt:  now.Add(time.Duration(s.jwtCfg.ExpireHour) * time.Hour),
		RefreshToken:    newRefreshToken,
		RefreshExpireAt: newRecord.ExpiresAt,
		User:            &user,
	}, nil
}

// RevokeRefreshToken invalidates a refresh token on logout. Unknown tokens
// are ignored.
func (s *AuthService) RevokeRefreshToken(refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	hash := hashRefreshToken(refreshToken)
	return s.db.Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", hash).
		Update("revoked_at", time.Now()).Error
}

// GetUserByID returns the user's profile.
func (s *AuthService) GetUserByID(id string) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("user not found")
		}
		return nil, err
	}
	return &user, nil
}

// UpdateProfile changes the display name.
func (s *AuthService) UpdateProfile(userID string, req *UpdateProfileRequest) (*models.User, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	user.Name = strings.TrimSpace(req.Name)
	if err := s.db.Save(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) ChangePassword(userID string, req *ChangePasswordRequest) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}

	if !utils.CheckPassword(req.OldPassword, user.Password) {
		return response.NewBadRequest("incorrect old password")
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}

	user.Password = hashed
	return s.db.Save(user).Error
}

// StartRefreshTokenCleanup schedules a daily purge of expired and revoked
// refresh tokens. Returns the scheduler so the caller can stop it on shutdown.
func (s *AuthService) StartRefreshTokenCleanup() *cron.Cron {
	c := cron.New()
	clog := logger.Component("token-cleanup")
	_, err := c.AddFunc("0 3 * * *", func() {
		cutoff := time.Now().Add(-24 * time.Hour)
		result := s.db.Where("expires_at < ? OR (revoked_at IS NOT NULL AND revoked_at < ?)", time.Now(), cutoff).
			Delete(&models.RefreshToken{})
		if result.Error != nil {
			clog.Error().Err(result.Error).Msg("refresh token cleanup failed")
			return
		}
		if result.RowsAffected > 0 {
			clog.Info().Int64("deleted", result.RowsAffected).Msg("purged stale refresh tokens")
		}
	})
	if err != nil {
		clog.Error().Err(err).Msg("failed to schedule refresh token cleanup")
		return c
	}
	c.Start()
	return c
}

func (s *AuthService) issueTokens(user *models.User, clientIP, userAgent string) (*AuthResult, error) {
	accessToken, err := utils.GenerateToken(user.ID, user.Email, s.jwtCfg.ExpireHour)
	if err != nil {
		return nil, err
	}

	refreshToken, refreshHash, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	record := models.RefreshToken{
		UserID:      user.ID,
		TokenHash:   refreshHash,
		ExpiresAt:   now.Add(time.Duration(s.authCfg.RefreshExpireHours) * time.Hour),
		CreatedByIP: clientIP,
		UserAgent:   userAgent,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return nil, err
	}

	return &AuthResult{
		AccessToken:     accessToken,
		AccessExpireAt:  now.Add(time.Duration(s.jwtCfg.ExpireHour) * time.Hour),
		RefreshToken:    refreshToken,
		RefreshExpireAt: record.ExpiresAt,
		User:            user,
	}, nil
}

func generateRefreshToken() (token string, tokenHash string, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(buf)
	return token, hashRefreshToken(token), nil
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
