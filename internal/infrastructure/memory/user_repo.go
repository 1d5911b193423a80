package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/ErlanBelekov/sso-handoff/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// DemoUser is a plaintext seed entry; the password is hashed on registration.
type DemoUser struct {
	Username    string
	Password    string
	DisplayName string
	Roles       []string
}

var DemoUsers = []DemoUser{
	{Username: "user1", Password: "password1", DisplayName: "User One", Roles: []string{"USER"}},
	{Username: "admin1", Password: "password1", DisplayName: "Admin One", Roles: []string{"USER", "ADMIN"}},
	{Username: "user2", Password: "password2", DisplayName: "User Two", Roles: []string{"USER"}},
}

// UserRepository is an in-memory user directory keyed by username.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
	cost  int
}

func NewUserRepository(cost int) *UserRepository {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &UserRepository{users: make(map[string]*domain.User), cost: cost}
}

// NewDemoUserRepository returns a directory seeded with DemoUsers.
func NewDemoUserRepository(cost int) (*UserRepository, error) {
	r := NewUserRepository(cost)
	for _, u := range DemoUsers {
		if err := r.Register(u.Username, u.Password, u.DisplayName, u.Roles); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds or replaces a user.
func (r *UserRepository) Register(username, password, displayName string, roles []string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.cost)
	if err != nil {
		return fmt.Errorf("hash password for %s: %w", username, err)
	}

	u := &domain.User{
		Identity: domain.Identity{
			Username:    username,
			DisplayName: displayName,
			Roles:       slices.Clone(roles),
		},
		PasswordHash: string(hash),
	}

	r.mu.Lock()
	r.users[username] = u
	r.mu.Unlock()
	return nil
}

func (r *UserRepository) Remove(username string) {
	r.mu.Lock()
	delete(r.users, username)
	r.mu.Unlock()
}

// FindByUsername returns a copy so callers cannot mutate directory state.
func (r *UserRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	u, ok := r.users[username]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrUserNotFound
	}

	cp := *u
	cp.Roles = slices.Clone(u.Roles)
	return &cp, nil
}
