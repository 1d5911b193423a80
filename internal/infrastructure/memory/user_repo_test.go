package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ErlanBelekov/sso-handoff/internal/domain"
	"github.com/ErlanBelekov/sso-handoff/internal/infrastructure/memory"
	"golang.org/x/crypto/bcrypt"
)

func TestDemoUsers_Seeded(t *testing.T) {
	repo, err := memory.NewDemoUserRepository(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewDemoUserRepository: %v", err)
	}

	for _, want := range memory.DemoUsers {
		u, err := repo.FindByUsername(context.Background(), want.Username)
		if err != nil {
			t.Fatalf("FindByUsername(%q): %v", want.Username, err)
		}
		if u.DisplayName != want.DisplayName {
			t.Errorf("%s: display name = %q, want %q", want.Username, u.DisplayName, want.DisplayName)
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(want.Password)) != nil {
			t.Errorf("%s: stored hash does not match demo password", want.Username)
		}
		if u.PasswordHash == want.Password {
			t.Errorf("%s: password stored in plaintext", want.Username)
		}
	}

	admin, _ := repo.FindByUsername(context.Background(), "admin1")
	if !admin.HasRole("ADMIN") || !admin.HasRole("USER") {
		t.Errorf("admin1 roles = %v", admin.Roles)
	}
}

func TestFindByUsername_Unknown(t *testing.T) {
	repo := memory.NewUserRepository(bcrypt.MinCost)

	_, err := repo.FindByUsername(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("want ErrUserNotFound, got %v", err)
	}
}

func TestFindByUsername_ReturnsCopy(t *testing.T) {
	repo := memory.NewUserRepository(bcrypt.MinCost)
	if err := repo.Register("user1", "password1", "User One", []string{"USER"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	u, _ := repo.FindByUsername(context.Background(), "user1")
	u.Roles[0] = "ADMIN"
	u.DisplayName = "changed"

	again, _ := repo.FindByUsername(context.Background(), "user1")
	if again.Roles[0] != "USER" || again.DisplayName != "User One" {
		t.Errorf("directory mutated through returned user: %+v", again)
	}
}

func TestRemove(t *testing.T) {
	repo := memory.NewUserRepository(bcrypt.MinCost)
	_ = repo.Register("user2", "password2", "User Two", []string{"USER"})
	repo.Remove("user2")

	if _, err := repo.FindByUsername(context.Background(), "user2"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("want ErrUserNotFound after Remove, got %v", err)
	}
}
