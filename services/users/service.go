package users

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"movieverse/models"
)

var (
	ErrStorageDirRequired = errors.New("storage directory not provided")
	ErrNameRequired       = errors.New("name is required")
	ErrNameTooShort       = errors.New("name must be at least 2 characters")
	ErrEmailRequired      = errors.New("email is required")
	ErrEmailInvalid       = errors.New("email is invalid")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

const tokenLifetime = 7 * 24 * time.Hour

// Service manages user accounts and issues session tokens.
type Service struct {
	mu        sync.RWMutex
	path      string
	users     map[string]models.User
	byEmail   map[string]string
	jwtSecret []byte
}

// NewService creates a users service storing accounts inside the provided
// directory, signing tokens with the given secret.
func NewService(storageDir string, jwtSecret []byte) (*Service, error) {
	if strings.TrimSpace(storageDir) == "" {
		return nil, ErrStorageDirRequired
	}
	if len(jwtSecret) == 0 {
		return nil, errors.New("jwt secret not provided")
	}

	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create users dir: %w", err)
	}

	svc := &Service{
		path:      filepath.Join(storageDir, "users.json"),
		users:     make(map[string]models.User),
		byEmail:   make(map[string]string),
		jwtSecret: jwtSecret,
	}

	if err := svc.load(); err != nil {
		return nil, err
	}

	return svc, nil
}

// Signup registers a new account and returns the user with a session token.
func (s *Service) Signup(name, email, password string) (models.User, string, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	if name == "" {
		return models.User{}, "", ErrNameRequired
	}
	if len([]rune(name)) < 2 {
		return models.User{}, "", ErrNameTooShort
	}
	if email == "" {
		return models.User{}, "", ErrEmailRequired
	}
	if !strings.Contains(email, "@") {
		return models.User{}, "", ErrEmailInvalid
	}
	if password == "" {
		return models.User{}, "", ErrPasswordRequired
	}
	if len(password) < 6 {
		return models.User{}, "", ErrPasswordTooShort
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[email]; taken {
		return models.User{}, "", ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.users[user.ID] = user
	s.byEmail[email] = user.ID

	if err := s.saveLocked(); err != nil {
		delete(s.users, user.ID)
		delete(s.byEmail, email)
		return models.User{}, "", err
	}

	token, err := s.issueToken(user)
	if err != nil {
		return models.User{}, "", err
	}
	return user, token, nil
}

// Login verifies credentials and returns the user with a fresh token. A
// missing account and a wrong password are indistinguishable to callers.
func (s *Service) Login(email, password string) (models.User, string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return models.User{}, "", ErrInvalidCredentials
	}

	s.mu.RLock()
	id, ok := s.byEmail[email]
	user := s.users[id]
	s.mu.RUnlock()

	if !ok {
		return models.User{}, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, "", ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return models.User{}, "", err
	}
	return user, token, nil
}

// Get returns the user with the given id.
func (s *Service) Get(id string) (models.User, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.User{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	return user, ok
}

// VerifyToken validates a session token and returns the user it names.
func (s *Service) VerifyToken(tokenString string) (models.User, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return models.User{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.User{}, ErrInvalidToken
	}
	userID, _ := claims["sub"].(string)

	user, found := s.Get(userID)
	if !found {
		return models.User{}, ErrUserNotFound
	}
	return user, nil
}

func (s *Service) issueToken(user models.User) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(tokenLifetime).Unix(),
	})

	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open users file: %w", err)
	}
	defer file.Close()

	var stored []storedUser
	if err := json.NewDecoder(file).Decode(&stored); err != nil {
		return fmt.Errorf("decode users: %w", err)
	}

	s.users = make(map[string]models.User, len(stored))
	s.byEmail = make(map[string]string, len(stored))
	for _, su := range stored {
		user := su.User
		user.PasswordHash = su.PasswordHash
		if strings.TrimSpace(user.ID) == "" || user.Email == "" {
			continue
		}
		s.users[user.ID] = user
		s.byEmail[user.Email] = user.ID
	}

	return nil
}

// storedUser re-attaches the password hash the public model hides from JSON.
type storedUser struct {
	models.User
	PasswordHash string `json:"passwordHash"`
}

func (s *Service) saveLocked() error {
	stored := make([]storedUser, 0, len(s.users))
	for _, user := range s.users {
		stored = append(stored, storedUser{User: user, PasswordHash: user.PasswordHash})
	}

	sort.Slice(stored, func(i, j int) bool {
		if stored[i].CreatedAt.Equal(stored[j].CreatedAt) {
			return stored[i].Email < stored[j].Email
		}
		return stored[i].CreatedAt.Before(stored[j].CreatedAt)
	})

	tmp := s.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create users temp file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(stored); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode users: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync users: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close users temp file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace users file: %w", err)
	}

	return nil
}
