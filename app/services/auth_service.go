package services

import (
	"errors"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/sofrapos/sofra/app/models"
	"github.com/sofrapos/sofra/app/repositories"
	"github.com/sofrapos/sofra/pkg/audit"
	"github.com/sofrapos/sofra/pkg/authz"
	"github.com/sofrapos/sofra/config"
	"github.com/sofrapos/sofra/pkg/token"
)

// ErrInvalidCredentials is returned for both unknown emails and wrong
// passwords so callers can't probe which accounts exist.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService signs terminals in and serves their profiles.
type AuthService struct {
	users *repositories.UserRepository
}

func NewAuthService(users *repositories.UserRepository) *AuthService {
	return &AuthService{users: users}
}

// LoginResult is what a successful sign-in returns.
type LoginResult struct {
	Token        string        `json:"token"`
	RefreshToken string        `json:"refreshToken"`
	User         authz.Profile `json:"user"`
}

// Login verifies the credentials and issues access and refresh tokens whose
// claims carry role, branch code, and effective permissions.
func (s *AuthService) Login(email, password string) (LoginResult, error) {
	user, err := s.users.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	profile := s.profileOf(&user)
	claims := token.Claims{
		UserID:      user.ID,
		Email:       user.Email,
		Role:        profile.Role,
		Branch:      profile.Branch,
		Permissions: profile.Permissions,
	}

	secret := config.JWTSecret()
	access, err := token.Generate(secret, claims)
	if err != nil {
		return LoginResult{}, err
	}
	refresh, err := token.GenerateRefresh(secret, claims)
	if err != nil {
		return LoginResult{}, err
	}

	audit.Record(audit.Entry{
		Kind:   "login",
		Actor:  user.Email,
		Role:   profile.Role,
		Branch: profile.Branch,
	})

	return LoginResult{Token: access, RefreshToken: refresh, User: profile}, nil
}

// Profile returns the profile for the authenticated user id.
func (s *AuthService) Profile(userID uint) (authz.Profile, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		return authz.Profile{}, err
	}
	profile := s.profileOf(&user)
	return profile, nil
}

// profileOf maps a database user onto the wire profile shape. The permission
// list is the per-user override when present; absent, terminals fall back to
// the static role defaults on their side, so we omit it.
func (s *AuthService) profileOf(u *models.User) authz.Profile {
	p := authz.Profile{
		ID:     strconv.FormatUint(uint64(u.ID), 10),
		Email:  u.Email,
		Name:   u.Name,
		Role:   strings.ToUpper(u.Role),
		Branch: u.BranchCode(),
	}
	if u.Permissions != "" {
		for _, tok := range strings.Split(u.Permissions, ",") {
			if tok = strings.TrimSpace(tok); tok != "" {
				p.Permissions = append(p.Permissions, tok)
			}
		}
	}
	return p
}
