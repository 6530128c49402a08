package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := "super-secret"

	tok, err := GenerateToken(&Payload{ID: "alice", UserType: "member"}, secret, time.Hour)
	require.NoError(t, err)

	payload, err := ParseToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, "alice", payload.ID)
	assert.Equal(t, "member", payload.UserType)
	assert.Equal(t, TokenIssuer, payload.Issuer)
}

func TestParseToken_Expired(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken(&Payload{ID: "alice", UserType: "member"}, "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(tok, "secret")
	assert.Error(t, err)
}

func TestParseToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken(&Payload{ID: "alice", UserType: "guest"}, "right-secret", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(tok, "wrong-secret")
	assert.Error(t, err)
}

func TestParseToken_Malformed(t *testing.T) {
	t.Parallel()

	_, err := ParseToken("not.a.jwt", "secret")
	assert.Error(t, err)
}
