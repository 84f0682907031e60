package services

import (
	"context"
	cryptorand "crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTooManyAttempts    = errors.New("too many login attempts")
)

// AdminAuthService guards the provisioning API. There is a single operator
// account whose username and argon2id hash come from configuration.
type AdminAuthService struct {
	redis     *redis.Client
	validator *ValidationHelper
}

// LoginRequest represents the login request payload
// @Description Admin login request
type LoginRequest struct {
	Username string `json:"username" validate:"required" example:"operator"`
	Password string `json:"password" validate:"required,min=8" example:"correct-horse-battery"`
}

// TokenResponse represents the authentication response
// @Description Admin bearer token
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewAdminAuthService(redisClient *redis.Client) *AdminAuthService {
	return &AdminAuthService{
		redis:     redisClient,
		validator: NewValidationHelper(),
	}
}

// Login handles operator login
// @Summary Admin login
// @Description Exchange the operator credentials for a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /auth/login [post]
func (s *AdminAuthService) Login(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Login attempt from IP: %s", r.RemoteAddr)

	var req LoginRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		log.Printf("[AUTH] Login validation failed: %v", err)
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	client := clientIP(r)
	if err := s.checkRateLimit(r.Context(), client); err != nil {
		log.Printf("[AUTH] Login blocked for %s: %v", client, err)
		SendErrorResponse(w, "Too many login attempts", http.StatusTooManyRequests, nil)
		return
	}

	if err := s.Authenticate(req.Username, req.Password); err != nil {
		log.Printf("[AUTH] Invalid credentials for user: %s", req.Username)
		s.incrementRateLimit(r.Context(), client)
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	expiresAt := time.Now().Add(time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour)
	token, err := GenerateJWT(req.Username, expiresAt)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for %s: %v", req.Username, err)
		SendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] Login successful for %s", req.Username)
	WriteJSON(w, http.StatusOK, TokenResponse{Token: token, ExpiresAt: expiresAt})
}

// Logout handles operator logout
// @Summary Admin logout
// @Description Revoke the presented bearer token until it expires
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Router /auth/logout [post]
func (s *AdminAuthService) Logout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token != "" && s.redis != nil {
		expiry := time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour
		if err := s.redis.Set(r.Context(), blacklistKey(token), "1", expiry).Err(); err != nil {
			log.Printf("[AUTH] Failed to blacklist token: %v", err)
		}
	}

	WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// IsRevoked reports whether token was logged out. Without redis no token
// is ever revoked.
func (s *AdminAuthService) IsRevoked(ctx context.Context, token string) bool {
	if s.redis == nil {
		return false
	}
	n, err := s.redis.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		log.Printf("[AUTH] Blacklist lookup failed: %v", err)
		return false
	}
	return n > 0
}

func (s *AdminAuthService) Authenticate(username, password string) error {
	expected := viper.GetString("admin.username")
	hashed := viper.GetString("admin.password_hash")
	if expected == "" || hashed == "" {
		return ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(username), []byte(expected)) != 1 {
		return ErrInvalidCredentials
	}
	if !VerifyPassword(password, hashed) {
		return ErrInvalidCredentials
	}
	return nil
}

// checkRateLimit fails once a client has used up its failed attempts for
// the current window. Without redis logins are not limited.
func (s *AdminAuthService) checkRateLimit(ctx context.Context, client string) error {
	if s.redis == nil {
		return nil
	}
	count, err := s.redis.Get(ctx, rateLimitKey(client)).Int()
	if err != nil && err != redis.Nil {
		return err
	}
	if count >= viper.GetInt("auth.max_login_attempts") {
		return ErrTooManyAttempts
	}
	return nil
}

func (s *AdminAuthService) incrementRateLimit(ctx context.Context, client string) {
	if s.redis == nil {
		return
	}
	key := rateLimitKey(client)
	pipe := s.redis.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, viper.GetDuration("auth.login_window"))
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[AUTH] Failed to record login attempt: %v", err)
	}
}

func rateLimitKey(client string) string {
	return fmt.Sprintf("auth:ratelimit:%s", client)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func blacklistKey(token string) string {
	return fmt.Sprintf("blacklist:%s", token)
}

func GenerateJWT(subject string, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})

	return token.SignedString([]byte(viper.GetString("jwt.secret_key")))
}

// HashPassword produces "base64(salt)$base64(hash)" with argon2id.
func HashPassword(password string) (string, error) {
	salt := make([]byte, viper.GetInt("argon2.salt_length"))
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func VerifyPassword(password, hashedPassword string) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, computedHash) == 1
}

// DecodeJSONBody decodes exactly one JSON object into dst, writing a 400
// response and returning false otherwise.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	return true
}
