package jwtauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintAndVerifyRoundTrip(t *testing.T) {
	svc := New([]byte("test-secret-key-32-bytes-long!!"), time.Hour)
	token, err := svc.Mint(map[string]any{"user": "mcordova"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "mcordova", claims["user"])
	assert.Contains(t, claims, "exp")
	assert.Contains(t, claims, "iat")
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := New([]byte("test-secret-key-32-bytes-long!!"), -time.Minute)
	token, err := svc.Mint(map[string]any{"user": "mcordova"})
	require.NoError(t, err)

	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	minter := New([]byte("secret-one-32-bytes-long-enough!"), time.Hour)
	verifier := New([]byte("secret-two-32-bytes-long-enough!"), time.Hour)

	token, err := minter.Mint(map[string]any{"user": "x"})
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsMalformedToken(t *testing.T) {
	svc := New([]byte("test-secret-key-32-bytes-long!!"), time.Hour)
	_, err := svc.Verify("not-a-jwt")
	assert.Error(t, err)
}
