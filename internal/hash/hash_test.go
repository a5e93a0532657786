package hash

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := New(bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newHasher(t)

	digest, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest, "$2a$04$"), digest)
	assert.NotContains(t, digest, "correct horse")

	assert.True(t, h.Verify("correct horse", digest))
	assert.False(t, h.Verify("correct horse ", digest))
	assert.False(t, h.Verify("", digest))
}

func TestHash_SaltedPerCall(t *testing.T) {
	h := newHasher(t)

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, h.Verify("same", a))
	assert.True(t, h.Verify("same", b))
}

func TestHash_RejectsEmpty(t *testing.T) {
	h := newHasher(t)

	_, err := h.Hash("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestVerify_MalformedDigest(t *testing.T) {
	h := newHasher(t)

	for _, digest := range []string{"", "plain", "$2a$04$short", "$9z$04$abcdefghijklmnopqrstuvabcdefghijklmnopqrstuvwxyz12345"} {
		assert.NotPanics(t, func() {
			assert.False(t, h.Verify("x", digest))
		})
	}
}

func TestNew_OutOfRangeCostFallsBack(t *testing.T) {
	h, err := New(1)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, h.Cost())
}

func TestVerifyDummy_CostsLikeARealCompare(t *testing.T) {
	h, err := New(8)
	require.NoError(t, err)
	digest, err := h.Hash("pw")
	require.NoError(t, err)

	measure := func(fn func()) time.Duration {
		start := time.Now()
		for i := 0; i < 5; i++ {
			fn()
		}
		return time.Since(start)
	}

	matched := measure(func() { h.Verify("wrong", digest) })
	dummy := measure(func() { h.VerifyDummy("wrong") })

	ratio := float64(matched) / float64(dummy)
	assert.Greater(t, ratio, 0.33)
	assert.Less(t, ratio, 3.0)
	assert.False(t, h.VerifyDummy("anything"))
}

func TestHash_RejectsOverlongPassword(t *testing.T) {
	h := newHasher(t)

	_, err := h.Hash(strings.Repeat("p", MaxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	digest, err := h.Hash(strings.Repeat("p", MaxPasswordBytes))
	require.NoError(t, err)
	assert.True(t, h.Verify(strings.Repeat("p", MaxPasswordBytes), digest))
}
