package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheap parameters keep the tests fast
var testParams = Params{Memory: 64, Iterations: 1, Parallelism: 1}

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(testParams)

	encoded, err := h.Hash("pw123abc")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=64,t=1,p=1$"))
	assert.True(t, h.Verify(encoded, "pw123abc"))
	assert.False(t, h.Verify(encoded, "pw123abd"))
}

func TestHasher_SaltsDiffer(t *testing.T) {
	h := NewHasher(testParams)

	a, err := h.Hash("same-pass1")
	require.NoError(t, err)
	b, err := h.Hash("same-pass1")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHasher_VerifyUsesEncodedParams(t *testing.T) {
	encoded, err := NewHasher(testParams).Hash("pw123abc")
	require.NoError(t, err)

	// a hasher configured differently still verifies older hashes
	assert.True(t, NewHasher(Params{Memory: 128, Iterations: 2, Parallelism: 1}).Verify(encoded, "pw123abc"))
}

func TestHasher_RejectsBadInput(t *testing.T) {
	h := NewHasher(testParams)

	_, err := h.Hash("")
	assert.Error(t, err)
	_, err = h.Hash(strings.Repeat("a", maxPasswordLength+1))
	assert.Error(t, err)

	assert.False(t, h.Verify("not-a-hash", "pw123abc"))
	assert.False(t, h.Verify("$bcrypt$v=19$m=64,t=1,p=1$c2FsdA$aGFzaA", "pw123abc"))
	assert.False(t, h.Verify("$argon2id$v=19$m=64,t=1,p=1$!!$aGFzaA", "pw123abc"))
}
