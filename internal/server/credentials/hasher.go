// Package credentials hashes and verifies account passwords with Argon2id.
//
// Hashes are encoded in the PHC string format
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt>$<key>
//
// so the salt and cost parameters travel with the hash and verification
// keeps working after the policy changes.
package credentials

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrEmptyPassword = errors.New("empty password")
	ErrShortSalt     = errors.New("salt too short")
)

// Params is the Argon2id cost policy used for new hashes.
type Params struct {
	Time    uint32 // iterations
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

// DefaultParams is the production policy.
var DefaultParams = Params{
	Time:    3,
	Memory:  64 * 1024,
	Threads: 2,
	KeyLen:  32,
	SaltLen: 16,
}

// Hasher is a one-way, salted, deliberately slow password hasher.
type Hasher struct {
	params Params
	decoy  string
}

// NewHasher returns a Hasher using p for new hashes.
func NewHasher(p Params) *Hasher {
	h := &Hasher{params: p}
	h.decoy = h.mustHash("decoy-password", make([]byte, p.SaltLen))
	return h
}

// GenerateSalt returns SaltLen random bytes.
func (h *Hasher) GenerateSalt() ([]byte, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// EncodeSalt renders a salt for storage next to the hash.
func EncodeSalt(salt []byte) string {
	return base64.RawStdEncoding.EncodeToString(salt)
}

// Hash derives the encoded hash of password under salt.
func (h *Hasher) Hash(password string, salt []byte) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if len(salt) < 8 {
		return "", ErrShortSalt
	}
	p := h.params
	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches the encoded hash. Malformed
// hashes never verify.
func (h *Hasher) Verify(password, encoded string) bool {
	p, salt, key, err := decode(encoded)
	if err != nil {
		return false
	}
	candidate := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(candidate, key) == 1
}

// VerifyDecoy spends the same work as Verify against a fixed hash and
// always returns false. Callers use it when the account does not exist so
// the response time matches a wrong-password attempt.
func (h *Hasher) VerifyDecoy(password string) bool {
	h.Verify(password, h.decoy)
	return false
}

func (h *Hasher) mustHash(password string, salt []byte) string {
	s, err := h.Hash(password, salt)
	if err != nil {
		panic(err)
	}
	return s
}

func decode(encoded string) (Params, []byte, []byte, error) {
	var p Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, errors.New("invalid hash format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, err
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("unsupported argon2 version %d", version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return p, nil, nil, err
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, err
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, err
	}
	if len(key) == 0 {
		return p, nil, nil, errors.New("empty key")
	}

	p.SaltLen = uint32(len(salt))
	p.KeyLen = uint32(len(key))
	return p, salt, key, nil
}
