package service

import (
	"errors"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/checkrun-api/pkg/auth"
)

// AdminToken выданный токен администратора
type AdminToken struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// AdminAuthService проверяет пароль администратора и выдаёт токен
type AdminAuthService struct {
	passwordHash []byte
	jwtService   *auth.JWTService
}

// NewAdminAuthService создает сервис входа администратора. Пустой хеш отключает вход.
func NewAdminAuthService(passwordHash string, jwtService *auth.JWTService) *AdminAuthService {
	return &AdminAuthService{
		passwordHash: []byte(passwordHash),
		jwtService:   jwtService,
	}
}

// Login сверяет пароль с bcrypt-хешем и выдаёт токен администратора
func (s *AdminAuthService) Login(password string) (*AdminToken, error) {
	if len(s.passwordHash) == 0 {
		return nil, ErrAdminDisabled
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			log.Printf("[AdminAuthService] Ошибка проверки хеша пароля: %v", err)
		}
		return nil, ErrInvalidPassword
	}

	token, expiresAt, err := s.jwtService.GenerateAdminToken()
	if err != nil {
		return nil, err
	}
	log.Printf("[AdminAuthService] Выдан токен администратора до %s", expiresAt.Format(time.RFC3339))
	return &AdminToken{AccessToken: token, ExpiresAt: expiresAt}, nil
}
