package services

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/juju/errors"
	"golang.org/x/crypto/bcrypt"

	"marketadmin/internal/domain"
	"marketadmin/internal/repos"
)

type AuthService struct {
	Users  *repos.UserRepo
	Secret []byte
	TTL    time.Duration
}

// NewAuthService signs tokens with secret. An empty secret is replaced by a
// random per-process key.
func NewAuthService(users *repos.UserRepo, secret string, ttl time.Duration) (*AuthService, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, errors.Trace(err)
		}
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{Users: users, Secret: key, TTL: ttl}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	u, err := s.Users.ByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return "", nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}
	tok, err := s.Token(u.ID)
	if err != nil {
		return "", nil, err
	}
	return tok, u, nil
}

// Token issues an HS256 token whose subject is the user id. Roles are not
// embedded; they are looked up on every request.
func (s *AuthService) Token(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	return tok, errors.Annotate(err, "signing token")
}

// CurrentCaller resolves a bearer token to the caller, reading the user and
// its roles from the store.
func (s *AuthService) CurrentCaller(ctx context.Context, token string) (*domain.Caller, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, errors.Annotate(err, "parsing token")
	}
	if claims.Subject == "" {
		return nil, errors.NotValidf("token without subject")
	}
	u, err := s.Users.ByID(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	return domain.NewCaller(u), nil
}
