package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/storeflow/pkg/adapters/memory"
	"github.com/aretw0/storeflow/pkg/persistence/middleware"
	"github.com/aretw0/storeflow/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ports.RunPersistenceStoreContract(t, mw(memory.NewStore()))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	ctx := context.Background()

	if err := secure.SetVariable(ctx, "u1", "phone", "5551234567"); err != nil {
		t.Fatalf("SetVariable failed: %v", err)
	}

	raw, err := underlying.Variables(ctx, "u1")
	if err != nil {
		t.Fatalf("underlying Variables failed: %v", err)
	}
	if strings.Contains(raw["phone"], "5551234567") {
		t.Fatalf("value stored in plaintext: %q", raw["phone"])
	}
	if !strings.HasPrefix(raw["phone"], "enc:v1:") {
		t.Fatalf("missing envelope prefix: %q", raw["phone"])
	}

	vars, err := secure.Variables(ctx, "u1")
	if err != nil {
		t.Fatalf("Variables failed: %v", err)
	}
	if vars["phone"] != "5551234567" {
		t.Errorf("expected decrypted value, got %q", vars["phone"])
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)
	ctx := context.Background()

	old := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlying)
	if err := old.SetVariable(ctx, "u1", "email", "a@b.c"); err != nil {
		t.Fatalf("SetVariable failed: %v", err)
	}

	rotated := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlying)
	vars, err := rotated.Variables(ctx, "u1")
	if err != nil {
		t.Fatalf("Variables with fallback failed: %v", err)
	}
	if vars["email"] != "a@b.c" {
		t.Errorf("expected a@b.c, got %q", vars["email"])
	}

	withoutFallback := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: newKey})(underlying)
	if _, err := withoutFallback.Variables(ctx, "u1"); err == nil {
		t.Fatal("expected decryption to fail without the old key")
	}
}

func TestEncryptionMiddleware_Plaintext(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	if err := underlying.SetVariable(ctx, "u1", "legacy", "hello"); err != nil {
		t.Fatal(err)
	}

	strict := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	if _, err := strict.Variables(ctx, "u1"); err == nil {
		t.Fatal("expected error for plaintext value")
	}

	lenient := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:      generateKey(t),
		AllowPlaintext: true,
	})(underlying)
	vars, err := lenient.Variables(ctx, "u1")
	if err != nil {
		t.Fatalf("Variables failed: %v", err)
	}
	if vars["legacy"] != "hello" {
		t.Errorf("expected hello, got %q", vars["legacy"])
	}
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for short key")
		}
	}()
	middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short")})
}

func TestParseKey(t *testing.T) {
	key := generateKey(t)

	got, err := middleware.ParseKey(hex.EncodeToString(key))
	if err != nil || string(got) != string(key) {
		t.Fatalf("hex key: got %x, err %v", got, err)
	}
	got, err = middleware.ParseKey(base64.StdEncoding.EncodeToString(key))
	if err != nil || string(got) != string(key) {
		t.Fatalf("base64 key: got %x, err %v", got, err)
	}
	if _, err := middleware.ParseKey(base64.StdEncoding.EncodeToString([]byte("too short"))); err == nil {
		t.Fatal("expected error for short key")
	}
}
