package security_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/surplus-backend/pkg/config"
	"github.com/angelmondragon/surplus-backend/pkg/security"
)

var cheap = config.PasswordConfig{ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := security.HashPassword("very-secure-password", cheap)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$"), hash)

	ok, err := security.VerifyPassword("very-secure-password", hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = security.VerifyPassword("bogus-password", hash)
	require.NoError(t, err)
	require.False(t, ok)

	again, err := security.HashPassword("very-secure-password", cheap)
	require.NoError(t, err)
	require.NotEqual(t, hash, again, "salt must differ per hash")
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := security.HashPassword("", cheap)
	require.ErrorIs(t, err, security.ErrEmptyPassword)
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	valid, err := security.HashPassword("pw", cheap)
	require.NoError(t, err)
	parts := strings.Split(valid, "$")

	cases := map[string]string{
		"not phc":       "not-a-hash",
		"bcrypt":        "$2a$10$abcdefghijklmnopqrstuv",
		"wrong version": strings.Join([]string{"", "argon2id", "v=16", parts[3], parts[4], parts[5]}, "$"),
		"bad params":    strings.Join([]string{"", "argon2id", "v=19", "m=x,t=1,p=1", parts[4], parts[5]}, "$"),
		"bad salt":      strings.Join([]string{"", "argon2id", "v=19", parts[3], "!!!", parts[5]}, "$"),
	}
	for name, encoded := range cases {
		_, err := security.VerifyPassword("pw", encoded)
		require.ErrorIs(t, err, security.ErrInvalidHash, name)
	}
}

func TestNeedsRehash(t *testing.T) {
	strong := cheap
	strong.ArgonMemoryKB = 16384
	strong.ArgonTime = 2

	hash, err := security.HashPassword("pw", cheap)
	require.NoError(t, err)
	require.False(t, security.NeedsRehash(hash, cheap))
	require.True(t, security.NeedsRehash(hash, strong))
	require.True(t, security.NeedsRehash("garbage", cheap))
}

func TestOutOfRangeCostIsClamped(t *testing.T) {
	hash, err := security.HashPassword("pw", config.PasswordConfig{})
	require.NoError(t, err)
	require.Contains(t, hash, "$m=8,t=1,p=1$")
}
