package auth

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Назначения токенов
const (
	UsageAdmin    = "admin"
	UsageWSTicket = "ws_ticket"

	RoleAdmin = "admin"
)

// Ошибки разбора токенов
var (
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token is expired")
	ErrTokenInvalid   = errors.New("token validation failed")
	ErrWrongUsage     = errors.New("token usage mismatch")
)

// JWTCustomClaims содержит пользовательские поля для токена
type JWTCustomClaims struct {
	Role string `json:"role,omitempty"`
	// SessionID заполняется только для тикетов WebSocket
	SessionID string `json:"session_id,omitempty"`
	Usage     string `json:"usage"`
	jwt.RegisteredClaims
}

// JWTService выпускает и проверяет HS256 токены администратора и тикеты WebSocket
type JWTService struct {
	secret         []byte
	expirationHrs  int
	wsTicketExpiry time.Duration
	now            func() time.Time
}

// NewJWTService создает новый сервис JWT и возвращает ошибку при проблемах
func NewJWTService(secret string, expirationHrs int, wsTicketExpirySec int) (*JWTService, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("JWT secret must be at least 16 bytes")
	}
	// Default expiry if not set or invalid
	if expirationHrs <= 0 {
		expirationHrs = 24
	}
	wsExpiry := time.Duration(wsTicketExpirySec) * time.Second
	if wsExpiry <= 0 {
		wsExpiry = 6 * time.Hour // тикет живёт столько же, сколько сессия забега
	}
	return &JWTService{
		secret:         []byte(secret),
		expirationHrs:  expirationHrs,
		wsTicketExpiry: wsExpiry,
		now:            time.Now,
	}, nil
}

// GenerateAdminToken выпускает токен администратора
func (s *JWTService) GenerateAdminToken() (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(time.Duration(s.expirationHrs) * time.Hour)
	claims := JWTCustomClaims{
		Role:  RoleAdmin,
		Usage: UsageAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign admin token: %w", err)
	}
	return signed, expiresAt, nil
}

// GenerateWSTicket выпускает короткоживущий тикет для подключения к потоку сканов сессии
func (s *JWTService) GenerateWSTicket(sessionID string) (string, error) {
	now := s.now()
	claims := JWTCustomClaims{
		SessionID: sessionID,
		Usage:     UsageWSTicket,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.wsTicketExpiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseToken разбирает токен и проверяет его назначение
func (s *JWTService) ParseToken(tokenString, usage string) (*JWTCustomClaims, error) {
	claims := &JWTCustomClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) {
			switch {
			case ve.Errors&jwt.ValidationErrorMalformed != 0:
				return nil, ErrTokenMalformed
			case ve.Errors&jwt.ValidationErrorExpired != 0:
				return nil, ErrTokenExpired
			}
		}
		log.Printf("[JWT] Ошибка при разборе токена: %v", err)
		return nil, ErrTokenInvalid
	}
	if claims.Usage != usage {
		return nil, ErrWrongUsage
	}
	return claims, nil
}
