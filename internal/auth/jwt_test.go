package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"vodworks/internal/pkg/errors"
)

var testSecret = []byte("test-secret-key-for-signing-tokens")

func TestGenerateAndVerifyToken(t *testing.T) {
	token, err := GenerateToken(testSecret, "user-123")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	userID, err := VerifyToken(testSecret, token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if userID != "user-123" {
		t.Errorf("subject = %q, want user-123", userID)
	}
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken(testSecret, "user-123")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	_, err = VerifyToken([]byte("a-different-secret-entirely"), token)
	if err == nil {
		t.Fatal("expected verification to fail with wrong secret")
	}
	if !errors.IsCode(err, errors.CodeUnauthorized) {
		t.Errorf("code = %s, want UNAUTHORIZED", errors.GetCode(err))
	}
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := VerifyToken(testSecret, token); err == nil {
			t.Errorf("VerifyToken(%q) = nil, want error", token)
		}
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "hunter2hunter2") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "wrong-password") {
		t.Error("wrong password accepted")
	}
}

func TestRandomPassword(t *testing.T) {
	a, err := RandomPassword(32)
	if err != nil {
		t.Fatalf("RandomPassword: %v", err)
	}
	b, err := RandomPassword(32)
	if err != nil {
		t.Fatalf("RandomPassword: %v", err)
	}
	if len(a) != 32 || len(b) != 32 {
		t.Errorf("lengths = %d, %d, want 32", len(a), len(b))
	}
	if a == b {
		t.Error("two random passwords matched")
	}
}

func TestUsernameFromEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"jane.doe@example.com", "jane_doe_google"},
		{"dev+test@example.com", "dev_test_google"},
		{"@example.com", "user_google"},
	}
	for _, tt := range tests {
		if got := UsernameFromEmail(tt.email); got != tt.want {
			t.Errorf("UsernameFromEmail(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}

func TestRequireAuth(t *testing.T) {
	var seenUserID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUserID, _ = UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireAuth(testSecret)(next)

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/videos", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/videos", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("bad token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/videos", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := GenerateToken(testSecret, "user-42")
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/videos", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
		if seenUserID != "user-42" {
			t.Errorf("user id in context = %q, want user-42", seenUserID)
		}
	})
}
