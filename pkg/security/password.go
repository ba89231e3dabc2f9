// Package security hashes and verifies account passwords with Argon2id.
//
// Hashes use the PHC string layout
//
//	$argon2id$v=19$m=<KiB>,t=<passes>,p=<lanes>$<salt>$<key>
//
// so the cost parameters travel with every stored hash and can be raised
// later without invalidating existing accounts.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/angelmondragon/surplus-backend/pkg/config"
)

var (
	ErrInvalidHash   = errors.New("invalid argon2id hash")
	ErrEmptyPassword = errors.New("password cannot be empty")
)

var b64 = base64.RawStdEncoding

type argonCost struct {
	memoryKiB uint32
	passes    uint32
	lanes     uint8
	saltLen   uint32
	keyLen    uint32
}

// costFor bounds the configured parameters so a bad env value can neither
// make hashing trivially cheap nor exhaust memory.
func costFor(cfg config.PasswordConfig) argonCost {
	return argonCost{
		memoryKiB: bounded(cfg.ArgonMemoryKB, 8, 512*1024),
		passes:    bounded(cfg.ArgonTime, 1, 10),
		lanes:     uint8(bounded(cfg.ArgonParallelism, 1, 255)),
		saltLen:   bounded(cfg.ArgonSaltLen, 8, 64),
		keyLen:    bounded(cfg.ArgonKeyLen, 16, 64),
	}
}

func (c argonCost) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, c.passes, c.memoryKiB, c.lanes, c.keyLen)
}

// HashPassword derives a fresh salted hash.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	cost := costFor(cfg)
	salt := make([]byte, cost.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := cost.derive(password, salt)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, cost.memoryKiB, cost.passes, cost.lanes,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// VerifyPassword reports whether password matches encoded. A malformed hash
// is an error, a wrong password is not.
func VerifyPassword(password, encoded string) (bool, error) {
	cost, salt, key, err := parseHash(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(key, cost.derive(password, salt)) == 1, nil
}

// NeedsRehash is true when encoded was produced with cheaper parameters than
// cfg asks for, or cannot be parsed at all.
func NeedsRehash(encoded string, cfg config.PasswordConfig) bool {
	have, _, _, err := parseHash(encoded)
	if err != nil {
		return true
	}
	want := costFor(cfg)
	switch {
	case have.memoryKiB < want.memoryKiB, have.passes < want.passes:
		return true
	case have.lanes != want.lanes, have.keyLen != want.keyLen:
		return true
	}
	return false
}

func parseHash(encoded string) (argonCost, []byte, []byte, error) {
	// "" / argon2id / v=19 / m=..,t=..,p=.. / salt / key
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return argonCost{}, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return argonCost{}, nil, nil, ErrInvalidHash
	}

	var cost argonCost
	if n, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &cost.memoryKiB, &cost.passes, &cost.lanes); err != nil || n != 3 {
		return argonCost{}, nil, nil, ErrInvalidHash
	}

	salt, err := b64.DecodeString(fields[4])
	if err != nil || len(salt) == 0 {
		return argonCost{}, nil, nil, ErrInvalidHash
	}
	key, err := b64.DecodeString(fields[5])
	if err != nil || len(key) == 0 {
		return argonCost{}, nil, nil, ErrInvalidHash
	}
	cost.saltLen = uint32(len(salt))
	cost.keyLen = uint32(len(key))
	return cost, salt, key, nil
}

func bounded(v, lo, hi int) uint32 {
	return uint32(min(max(v, lo), hi))
}
