package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

var testCfg = config.JWTConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 30}

func TestMintAndParseAccessToken(t *testing.T) {
	now := time.Now().UTC()
	userID := uuid.New()

	token, err := MintAccessToken(testCfg, now, AccessTokenPayload{UserID: userID, Role: enums.UserRoleManager, JTI: "access-1"})
	require.NoError(t, err)

	claims, err := ParseAccessToken(testCfg, token)
	require.NoError(t, err)
	require.Equal(t, userID, claims.UserID)
	require.Equal(t, enums.UserRoleManager, claims.Role)
	require.Equal(t, "access-1", claims.ID)
	require.Equal(t, userID.String(), claims.Subject)
	require.Equal(t, "storefront", claims.Issuer)
	require.WithinDuration(t, now.Add(30*time.Minute), claims.ExpiresAt.Time, time.Second)
}

func TestMintGeneratesJTI(t *testing.T) {
	token, err := MintAccessToken(testCfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleUser})
	require.NoError(t, err)
	claims, err := ParseAccessToken(testCfg, token)
	require.NoError(t, err)
	_, err = uuid.Parse(claims.ID)
	require.NoError(t, err)
}

func TestMintRejectsBadInput(t *testing.T) {
	good := AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleUser}
	_, err := MintAccessToken(config.JWTConfig{Issuer: "x", ExpirationMinutes: 1}, time.Now(), good)
	require.ErrorIs(t, err, ErrNoSecret)

	_, err = MintAccessToken(testCfg, time.Now(), AccessTokenPayload{Role: enums.UserRoleUser})
	require.Error(t, err)

	_, err = MintAccessToken(testCfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: "owner"})
	require.Error(t, err)
}

func TestParseRejects(t *testing.T) {
	old := time.Now().Add(-2 * time.Hour)
	expired, err := MintAccessToken(testCfg, old, AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleUser, JTI: "stale"})
	require.NoError(t, err)

	_, err = ParseAccessToken(testCfg, expired)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)

	claims, err := ParseAccessTokenAllowExpired(testCfg, expired)
	require.NoError(t, err)
	require.Equal(t, "stale", claims.ID)

	other := testCfg
	other.Issuer = "elsewhere"
	_, err = ParseAccessTokenAllowExpired(other, expired)
	require.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	other = testCfg
	other.Secret = "different"
	_, err = ParseAccessToken(other, expired)
	require.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestParseRejectsOtherAlgorithms(t *testing.T) {
	claims := AccessTokenClaims{
		UserID:           uuid.New(),
		Role:             enums.UserRoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: testCfg.Issuer, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseAccessToken(testCfg, unsigned)
	require.Error(t, err)
}

func TestParseRequiresIdentity(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: testCfg.Issuer, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte(testCfg.Secret))
	require.NoError(t, err)

	_, err = ParseAccessToken(testCfg, token)
	require.ErrorIs(t, err, ErrMissingIdentity)
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":    "abc",
		"bearer   abc ": "abc",
		"abc":           "abc",
	}
	for in, want := range cases {
		got, ok := BearerToken(in)
		require.True(t, ok, in)
		require.Equal(t, want, got)
	}
	_, ok := BearerToken("Bearer ")
	require.False(t, ok)
	_, ok = BearerToken("")
	require.False(t, ok)
}
