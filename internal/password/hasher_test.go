package password

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// ハッシュが平文と一致しないことを検証
func TestHasher_Hash_NeverEqualsPlaintext(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	digest, err := h.Hash("Secret123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if digest == "Secret123" {
		t.Error("digest must not equal plaintext")
	}
	if !strings.HasPrefix(digest, "$2") {
		t.Errorf("digest = %q, expected bcrypt format", digest)
	}
}

// 正しい平文でVerifyが成功し、誤った平文で失敗することを検証
func TestHasher_Verify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	digest, err := h.Hash("Secret123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	if !h.Verify("Secret123", digest) {
		t.Error("Verify should succeed for correct plaintext")
	}
	if h.Verify("wrong-password", digest) {
		t.Error("Verify should fail for wrong plaintext")
	}
	if h.Verify("Secret123", "not-a-digest") {
		t.Error("Verify should fail for malformed digest")
	}
}

// 同じ平文でもソルトにより毎回異なるハッシュになることを検証
func TestHasher_Hash_Salted(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	first, _ := h.Hash("Secret123")
	second, _ := h.Hash("Secret123")
	if first == second {
		t.Error("two hashes of the same plaintext should differ (salt)")
	}
}

// コストの下限がbcrypt.DefaultCost以上に引き上げられることを検証
func TestNewHasher_CostFloor(t *testing.T) {
	h := NewHasher(1)
	if h.cost < bcrypt.DefaultCost {
		t.Errorf("cost = %d, want >= %d", h.cost, bcrypt.DefaultCost)
	}

	h = NewHasher(bcrypt.MaxCost + 10)
	if h.cost > bcrypt.MaxCost {
		t.Errorf("cost = %d, want <= %d", h.cost, bcrypt.MaxCost)
	}
}
