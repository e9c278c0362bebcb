package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/norahq/nora/internal/models"
	"github.com/norahq/nora/internal/storage"
	"github.com/norahq/nora/internal/storage/document"
)

func newTestAuthenticator(t *testing.T) (*PasswordAuthenticator, storage.Store) {
	t.Helper()
	store := document.NewStore(document.NewMemoryEngine())
	t.Cleanup(func() { store.Close() })

	a := NewPasswordAuthenticator(NewStoreUsers(store))
	a.cost = bcrypt.MinCost
	return a, store
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	a, store := newTestAuthenticator(t)

	user, err := a.Register(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.ID == "" {
		t.Error("Expected an assigned id")
	}
	if user.Username != "alice" {
		t.Errorf("Expected username alice, got %q", user.Username)
	}
	if user.PasswordHash == "secret1" || !strings.HasPrefix(user.PasswordHash, "$2") {
		t.Errorf("Expected a bcrypt hash, got %q", user.PasswordHash)
	}

	rec, err := store.GetByKey(ctx, storage.KindUser, "username", "alice")
	if err != nil {
		t.Fatalf("GetByKey failed: %v", err)
	}
	if rec.ID() != user.ID {
		t.Errorf("Expected stored id %s, got %s", user.ID, rec.ID())
	}
}

func TestRegister_WeakPassword(t *testing.T) {
	a, _ := newTestAuthenticator(t)

	tests := []struct {
		password string
		wantErr  bool
	}{
		{"", true},
		{"12345", true},
		{"123456", false},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			err := a.ValidateCredential(tt.password)
			if tt.wantErr && !errors.Is(err, ErrWeakPassword) {
				t.Errorf("Expected ErrWeakPassword, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}

	if _, err := a.Register(context.Background(), "bob", "abc"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("Expected ErrWeakPassword from Register, got %v", err)
	}
}

func TestRegister_DuplicateKeepsOriginal(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAuthenticator(t)

	if _, err := a.Register(ctx, "alice", "first-password"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := a.Register(ctx, "alice", "second-password"); !errors.Is(err, ErrUsernameExists) {
		t.Fatalf("Expected ErrUsernameExists, got %v", err)
	}

	if _, err := a.Authenticate(ctx, "alice", "first-password"); err != nil {
		t.Errorf("Original password should still work: %v", err)
	}
	if _, err := a.Authenticate(ctx, "alice", "second-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Second password should be rejected, got %v", err)
	}
}

func TestRegister_ConcurrentSameUsername(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAuthenticator(t)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := a.Register(ctx, "carol", "password")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case !errors.Is(err, ErrUsernameExists):
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Errorf("Expected exactly one registration, got %d", created)
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAuthenticator(t)

	registered, err := a.Register(ctx, "dave", "hunter22")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	t.Run("correct password", func(t *testing.T) {
		user, err := a.Authenticate(ctx, "dave", "hunter22")
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if user.ID != registered.ID {
			t.Errorf("Expected user %s, got %s", registered.ID, user.ID)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		if _, err := a.Authenticate(ctx, "dave", "hunter23"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		if _, err := a.Authenticate(ctx, "erin", "hunter22"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestStoreUsers_GetUserByID(t *testing.T) {
	ctx := context.Background()
	a, store := newTestAuthenticator(t)
	users := NewStoreUsers(store)

	registered, err := a.Register(ctx, "frank", "password")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	user, err := users.GetUserByID(ctx, registered.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if user.Username != "frank" || user.CreatedAt == "" {
		t.Errorf("Unexpected user %+v", user)
	}

	if _, err := users.GetUserByID(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestJWTManager(t *testing.T) {
	user := &models.User{ID: "42", Username: "alice"}

	t.Run("round trip", func(t *testing.T) {
		m := NewJWTManager("test-secret", time.Hour)
		token, err := m.Generate(user)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		claims, err := m.Validate(token)
		if err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if claims.UserID != "42" || claims.Username != "alice" {
			t.Errorf("Unexpected claims %+v", claims)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, _ := NewJWTManager("secret-a", time.Hour).Generate(user)
		if _, err := NewJWTManager("secret-b", time.Hour).Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		m := NewJWTManager("test-secret", time.Minute)
		m.now = func() time.Time { return time.Now().Add(-time.Hour) }
		token, err := m.Generate(user)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		m.now = time.Now
		if _, err := m.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		m := NewJWTManager("test-secret", time.Hour)
		if _, err := m.Validate("not-a-token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})
}
