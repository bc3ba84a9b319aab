package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"research-repository-api/models"
	"research-repository-api/utils"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultTokenTTL    = 24 * time.Hour
	defaultTokenIssuer = "research-repository-api"
	maxNameLength      = 100
)

// selfRegistrationRoles are the roles a caller may pick at registration.
// Admin accounts are provisioned with cmd/create-admin.
var selfRegistrationRoles = []models.Role{models.RoleStudent, models.RoleFaculty}

// unknownUserHash is compared against when no account matches a login, so
// both failure paths pay for one bcrypt comparison.
var unknownUserHash = sync.OnceValue(func() string {
	hash, err := utils.HashPassword("research-repository-unknown-user")
	if err != nil {
		panic(fmt.Sprintf("hash placeholder password: %v", err))
	}
	return hash
})

// Claims is the payload of an access token.
type Claims struct {
	UserID uint        `json:"user_id"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenConfig configures access token signing.
type TokenConfig struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// RegisterInput is a self-registration request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// AuthService registers users, issues tokens and resolves tokens back to
// users.
type AuthService struct {
	users  UserRepository
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time

	checkPassword func(password, hash string) bool
}

func NewAuthService(users UserRepository, cfg TokenConfig) (*AuthService, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = defaultTokenIssuer
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &AuthService{
		users:  users,
		secret: cfg.Secret,
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,

		checkPassword: utils.CheckPasswordHash,
	}, nil
}

// Register creates a student or faculty account and returns it with a token.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, string, error) {
	verr := &ValidationError{Op: "registration"}

	role := models.ParseRole(input.Role)
	if role == "" {
		role = models.RoleStudent
	}
	if !roleIn(role, selfRegistrationRoles) {
		verr.add("role", "role must be student or faculty")
	}

	user, err := s.newUser(verr, input.Name, input.Email, input.Password, role)
	if err != nil {
		return nil, "", err
	}
	if err := s.create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	utils.LoggerFromContext(ctx).Info("user registered", "user_id", user.ID, "role", user.Role)
	return user, token, nil
}

// CreateAdmin provisions an administrator account.
func (s *AuthService) CreateAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	verr := &ValidationError{Op: "registration"}
	user, err := s.newUser(verr, name, email, password, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if err := s.create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) newUser(verr *ValidationError, name, email, password string, role models.Role) (*models.User, error) {
	name = utils.SanitizeInput(name)
	if name == "" {
		verr.add("name", "name is required")
	} else if len([]rune(name)) > maxNameLength {
		verr.add("name", fmt.Sprintf("name must be at most %d characters", maxNameLength))
	}

	email = utils.NormalizeEmail(email)
	if !utils.ValidateEmail(email) {
		verr.add("email", "a valid email is required")
	}

	if ok, msg := utils.ValidatePassword(password); !ok {
		verr.add("password", msg)
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &models.User{Name: name, Email: email, Password: hash, Role: role}, nil
}

func (s *AuthService) create(ctx context.Context, user *models.User) error {
	_, exists, err := s.users.FindUserByEmail(ctx, user.Email)
	if err != nil {
		return fmt.Errorf("find user by email: %w", err)
	}
	if exists {
		return ErrEmailTaken
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return err
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Login checks credentials and returns the user with a fresh token. Unknown
// emails and wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, found, err := s.users.FindUserByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return nil, "", fmt.Errorf("find user by email: %w", err)
	}
	if !found {
		s.checkPassword(password, unknownUserHash())
		return nil, "", ErrInvalidCredentials
	}
	if !s.checkPassword(password, user.Password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.IssueToken(&user)
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

// IssueToken signs an HS256 access token for user.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify resolves a bearer token to the stored user. The role is read from
// the store, not from the token.
func (s *AuthService) Verify(ctx context.Context, tokenString string) (*models.User, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrUnauthenticated
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid || claims.UserID == 0 {
		return nil, ErrUnauthenticated
	}

	user, found, err := s.users.FindUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !found {
		return nil, ErrUnauthenticated
	}
	user.Password = ""
	return &user, nil
}

func roleIn(role models.Role, allowed []models.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
