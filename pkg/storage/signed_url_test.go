package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("thumb-1", "school-a/thumb-1.png")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	assetID, path, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "thumb-1", assetID)
	require.Equal(t, "school-a/thumb-1.png", path)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Millisecond*10)
	token, _, err := signer.Generate("thumb-1", "thumb-1.png")
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 20)

	_, _, _, err = signer.Parse(token, false)
	require.ErrorIs(t, err, ErrExpiredSignature)

	assetID, path, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "thumb-1", assetID)
	require.Equal(t, "thumb-1.png", path)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("thumb-1", "thumb-1.png")
	require.NoError(t, err)

	_, _, _, err = NewSignedURLSigner("other", time.Hour).Parse(token, false)
	require.ErrorIs(t, err, ErrInvalidSignature)

	_, _, err = signer.Generate("thumb.1", "thumb-1.png")
	require.Error(t, err)
}

func TestSignedURLSignerUsesClock(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	signer := NewSignedURLSigner("secret", time.Hour)
	signer.SetClock(func() time.Time { return now })

	token, expiresAt, err := signer.Generate("thumb-1", "thumb-1.png")
	require.NoError(t, err)
	require.Equal(t, now.Add(time.Hour), expiresAt)

	now = now.Add(2 * time.Hour)
	_, _, _, err = signer.Parse(token, false)
	require.ErrorIs(t, err, ErrExpiredSignature)
}
