package vault

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerive_Deterministic(t *testing.T) {
	p := testKDF()

	k1, err := p.Derive([]byte("secret-password"), ContextKey, 32)
	require.NoError(t, err)
	k2, err := p.Derive([]byte("secret-password"), ContextKey, 32)
	require.NoError(t, err)

	assert.Len(t, k1, 32)
	assert.Equal(t, k1, k2, "same inputs must re-derive the same key")
}

func TestDerive_ContextsSeparateRoles(t *testing.T) {
	p := testKDF()
	pw := []byte("secret-password")

	key, err := p.Derive(pw, ContextKey, 16)
	require.NoError(t, err)
	iv, err := p.Derive(pw, ContextIV, 16)
	require.NoError(t, err)

	assert.False(t, bytes.Equal(key, iv))
}

func TestDerive_DifferentPasswords(t *testing.T) {
	p := testKDF()

	k1, err := p.Derive([]byte("password-one"), ContextKey, 32)
	require.NoError(t, err)
	k2, err := p.Derive([]byte("password-two"), ContextKey, 32)
	require.NoError(t, err)

	assert.False(t, bytes.Equal(k1, k2))
}

func TestDerive_OutputLength(t *testing.T) {
	p := testKDF()
	for _, n := range []int{1, 16, 32, 64, 100} {
		out, err := p.Derive([]byte("pw"), "len", n)
		require.NoError(t, err)
		assert.Len(t, out, n)
	}
}

func TestDerive_WorkFactorChangesOutput(t *testing.T) {
	a, err := (&KDFParams{Algorithm: KDFPBKDF2, Iterations: 1000}).Derive([]byte("pw"), ContextKey, 32)
	require.NoError(t, err)
	b, err := (&KDFParams{Algorithm: KDFPBKDF2, Iterations: 1001}).Derive([]byte("pw"), ContextKey, 32)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDerive_Argon2id(t *testing.T) {
	p := &KDFParams{Algorithm: KDFArgon2id, Time: 1, Memory: 1024, Threads: 1}
	require.NoError(t, p.Validate())

	k1, err := p.Derive([]byte("secret-password"), ContextKey, 32)
	require.NoError(t, err)
	k2, err := p.Derive([]byte("secret-password"), ContextKey, 32)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	pb, err := testKDF().Derive([]byte("secret-password"), ContextKey, 32)
	require.NoError(t, err)
	assert.NotEqual(t, k1, pb, "algorithms must not collide")
}

func TestKDFParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		p       KDFParams
		wantErr bool
	}{
		{"default", *DefaultKDFParams(), false},
		{"pbkdf2 zero iterations", KDFParams{Algorithm: KDFPBKDF2}, true},
		{"argon2 zero memory", KDFParams{Algorithm: KDFArgon2id, Time: 1, Threads: 1}, true},
		{"unknown", KDFParams{Algorithm: "scrypt", Iterations: 10}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHashPassword(t *testing.T) {
	assert.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		HashPassword([]byte("abc")))
	assert.NotEqual(t, HashPassword([]byte("abc")), HashPassword([]byte("abd")))
}
