package auth

import (
	"errors"

	"chathub/pkg/chat"

	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("username or email already exists")
)

type Service struct {
	db     *gorm.DB
	tokens *Tokens
}

func NewService(db *gorm.DB, tokens *Tokens) *Service {
	return &Service{db: db, tokens: tokens}
}

// Register creates an account and returns it with a signed token.
func (s *Service) Register(username, email, password string) (*chat.User, string, error) {
	if username == "" {
		return nil, "", errors.New("username cannot be empty")
	}
	if email == "" {
		return nil, "", errors.New("email cannot be empty")
	}
	if password == "" {
		return nil, "", errors.New("password cannot be empty")
	}

	var existing chat.User
	err := s.db.Where("username = ? OR email = ?", username, email).First(&existing).Error
	if err == nil {
		return nil, "", ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	user := chat.User{
		Username: username,
		Email:    email,
		Password: hashedPassword,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Generate(user.ID, user.Username)
	if err != nil {
		return nil, "", err
	}

	return &user, token, nil
}

// Login authenticates by email and returns the account with a signed token.
func (s *Service) Login(email, password string) (*chat.User, string, error) {
	var user chat.User
	err := s.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !CheckPassword(password, user.Password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, user.Username)
	if err != nil {
		return nil, "", err
	}

	return &user, token, nil
}
