// Package gorm provides the GORM-backed UserStore. The email column carries
// a unique index so concurrent signups for the same address cannot both
// commit; the violation surfaces as warden.ErrEmailTaken.
package gorm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/wardenhq/warden"
)

// UserModel is the GORM model for users.
type UserModel struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Email        string    `gorm:"size:255;uniqueIndex;not null"`
	Username     string    `gorm:"size:255;not null"`
	PasswordHash string    `gorm:"size:128"`
	Source       int       `gorm:"default:1"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) toUser() *warden.User {
	return &warden.User{
		ID:           m.ID,
		Email:        m.Email,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		Source:       warden.UserSource(m.Source),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func userToModel(u *warden.User) *UserModel {
	return &UserModel{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Source:       int(u.Source),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// AutoMigrate runs database migrations for the warden tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserModel{})
}

// UserStore implements warden.UserStore using GORM.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*warden.User, error) {
	var model UserModel
	err := s.db.WithContext(ctx).First(&model, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, warden.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.toUser(), nil
}

func (s *UserStore) GetUserByID(ctx context.Context, id int64) (*warden.User, error) {
	var model UserModel
	err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, warden.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.toUser(), nil
}

func (s *UserStore) CreateUser(ctx context.Context, user *warden.User) (*warden.User, error) {
	model := userToModel(user)
	model.ID = 0
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, warden.ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return model.toUser(), nil
}

func (s *UserStore) SaveUser(ctx context.Context, user *warden.User) error {
	return s.db.WithContext(ctx).Save(userToModel(user)).Error
}

// isDuplicateKey covers both GORM's translated error and drivers that only
// surface the raw constraint message.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
