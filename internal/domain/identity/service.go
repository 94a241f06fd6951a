package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/swasthya/healthcard/internal/platform/auth"
)

// TokenSigner issues session tokens for an authenticated user.
type TokenSigner interface {
	Issue(userID string, roles ...string) (string, error)
}

type Service struct {
	users  UserRepository
	tokens TokenSigner
}

func NewService(users UserRepository, tokens TokenSigner) *Service {
	return &Service{users: users, tokens: tokens}
}

var (
	namePattern  = regexp.MustCompile(`^[\p{L} .'-]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9\s()-]+$`)
)

func validateRegistration(req *RegisterRequest) error {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if n := len([]rune(req.FullName)); n < 2 || n > 100 {
		return invalid("full name must be between 2 and 100 characters")
	}
	if !namePattern.MatchString(req.FullName) {
		return invalid("full name contains invalid characters")
	}
	if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
		return invalid("please provide a valid email address")
	}
	if req.Phone != nil {
		p := strings.TrimSpace(*req.Phone)
		if p == "" {
			req.Phone = nil
		} else {
			if len(p) < 10 || len(p) > 15 || !phonePattern.MatchString(p) {
				return invalid("phone number must be 10 to 15 digits")
			}
			req.Phone = &p
		}
	}
	if err := validatePassword(req.Password); err != nil {
		return err
	}

	if req.Role == "" {
		req.Role = auth.RolePatient
	}
	if !auth.ValidRole(req.Role) {
		return invalid("invalid role specified")
	}
	if req.Role == auth.RoleAdmin {
		return invalid("admin accounts cannot be self-registered")
	}
	return nil
}

func validatePassword(pw string) error {
	if len(pw) < 8 || len(pw) > 128 {
		return invalid("password must be between 8 and 128 characters")
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return invalid("password must contain at least one uppercase letter, one lowercase letter, and one number")
	}
	return nil
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	if err := validateRegistration(&req); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: hash,
		Role:         req.Role,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return s.session(u)
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, invalid("email and password required")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := auth.VerifyPassword(u.PasswordHash, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.session(u)
}

func (s *Service) session(u *User) (*Session, error) {
	token, err := s.tokens.Issue(u.ID.String(), u.Role)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}
	return &Session{Token: token, User: u}, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) SearchUsers(ctx context.Context, q string, limit, offset int) ([]*User, int, error) {
	return s.users.Search(ctx, q, limit, offset)
}

func (s *Service) CountByRole(ctx context.Context) (RoleCounts, error) {
	return s.users.CountByRole(ctx)
}

// Seed stores u with a hash of password, skipping registration rules. It is
// meant for demo data only.
func (s *Service) Seed(ctx context.Context, u *User, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.Email = strings.ToLower(u.Email)
	return s.users.Create(ctx, u)
}

func (s *Service) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}
