// Package fs stores users as JSON files. It backs development setups and the
// test suite; production runs the gorm store.
package fs

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/wardenhq/warden"
)

type fsUser struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	Source       int       `json:"user_source"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *fsUser) toUser() *warden.User {
	return &warden.User{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Source:       warden.UserSource(u.Source),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// UserStore keeps one JSON file per user plus an email index. The mutex makes
// id assignment and the email uniqueness check atomic within the process.
type UserStore struct {
	StoragePath string

	mu sync.Mutex
}

func NewUserStore(storagePath string) *UserStore {
	return &UserStore{StoragePath: storagePath}
}

func (s *UserStore) userPath(id int64) string {
	return filepath.Join(s.StoragePath, "users", strconv.FormatInt(id, 10)+".json")
}

func (s *UserStore) emailPath(email string) string {
	return filepath.Join(s.StoragePath, "emails", hex.EncodeToString([]byte(email))+".json")
}

func (s *UserStore) seqPath() string {
	return filepath.Join(s.StoragePath, "users", "seq")
}

func (s *UserStore) GetUserByEmail(_ context.Context, email string) (*warden.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.lookupEmail(email)
	if err != nil {
		return nil, err
	}
	return s.readUser(id)
}

func (s *UserStore) GetUserByID(_ context.Context, id int64) (*warden.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readUser(id)
}

func (s *UserStore) CreateUser(_ context.Context, user *warden.User) (*warden.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookupEmail(user.Email); err == nil {
		return nil, warden.ErrEmailTaken
	}

	id, err := s.nextID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	record := &fsUser{
		ID:           id,
		Email:        user.Email,
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		Source:       int(user.Source),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.writeUser(record); err != nil {
		return nil, err
	}
	if err := s.writeJSON(s.emailPath(user.Email), id); err != nil {
		// A failed create must not leave an unindexed user file behind.
		os.Remove(s.userPath(id))
		return nil, err
	}
	return record.toUser(), nil
}

func (s *UserStore) SaveUser(_ context.Context, user *warden.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.readUser(user.ID)
	if err != nil {
		return err
	}
	record := &fsUser{
		ID:           user.ID,
		Email:        user.Email,
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		Source:       int(user.Source),
		CreatedAt:    existing.CreatedAt,
		UpdatedAt:    time.Now(),
	}
	return s.writeUser(record)
}

func (s *UserStore) lookupEmail(email string) (int64, error) {
	data, err := os.ReadFile(s.emailPath(email))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, warden.ErrUserNotFound
		}
		return 0, err
	}
	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *UserStore) readUser(id int64) (*warden.User, error) {
	data, err := os.ReadFile(s.userPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, warden.ErrUserNotFound
		}
		return nil, err
	}
	var record fsUser
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return record.toUser(), nil
}

func (s *UserStore) writeUser(record *fsUser) error {
	return s.writeJSON(s.userPath(record.ID), record)
}

func (s *UserStore) writeJSON(path string, value any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (s *UserStore) nextID() (int64, error) {
	last := int64(0)
	data, err := os.ReadFile(s.seqPath())
	if err == nil {
		last, err = strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("corrupt sequence file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return 0, err
	}

	next := last + 1
	if err := os.MkdirAll(filepath.Dir(s.seqPath()), 0755); err != nil {
		return 0, err
	}
	if err := os.WriteFile(s.seqPath(), []byte(strconv.FormatInt(next, 10)), 0644); err != nil {
		return 0, err
	}
	return next, nil
}
