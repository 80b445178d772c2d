package token

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "walletverify/pkg/domain-errors"
	"walletverify/pkg/requestcontext"
)

const (
	testKey      = "test-signing-key"
	testIssuer   = "walletverify"
	testAudience = "walletverify-admin"
)

func TestIssueAndValidate(t *testing.T) {
	issuedAt := time.Now().UTC().Truncate(time.Second)
	svc := New(testKey, testIssuer, testAudience, time.Hour)

	signed, issued, err := svc.Issue(requestcontext.WithTime(context.Background(), issuedAt), "ops")
	require.NoError(t, err)

	claims, err := svc.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.Equal(t, issued.ID, claims.ID)
	assert.NoError(t, uuid.Validate(claims.ID))
	assert.True(t, issuedAt.Add(time.Hour).Equal(claims.ExpiresAt.Time))
}

func TestValidate_Expired(t *testing.T) {
	now := time.Now()
	svc := New(testKey, testIssuer, testAudience, time.Minute, WithClock(func() time.Time { return now }))
	signed, _, err := svc.Issue(requestcontext.WithTime(context.Background(), now), "ops")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = svc.Validate(signed)

	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Equal(t, "admin token expired", err.Error())
}

func TestValidate_Rejects(t *testing.T) {
	svc := New(testKey, testIssuer, testAudience, time.Hour)
	base := func() Claims {
		return Claims{
			Role: RoleAdmin,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "ops",
				Issuer:    testIssuer,
				Audience:  jwt.ClaimStrings{testAudience},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
				ID:        uuid.NewString(),
			},
		}
	}
	sign := func(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}

	wrongIssuer := base()
	wrongIssuer.Issuer = "someone-else"
	wrongAudience := base()
	wrongAudience.Audience = jwt.ClaimStrings{"wallet-users"}
	noExpiry := base()
	noExpiry.ExpiresAt = nil
	wrongRole := base()
	wrongRole.Role = "viewer"

	cases := map[string]func(t *testing.T) string{
		"empty":          func(*testing.T) string { return "" },
		"garbage":        func(*testing.T) string { return "not-a-jwt" },
		"wrong key":      func(t *testing.T) string { return sign(t, jwt.SigningMethodHS256, []byte("other-key"), base()) },
		"hs512 header":   func(t *testing.T) string { return sign(t, jwt.SigningMethodHS512, []byte(testKey), base()) },
		"alg none":       func(t *testing.T) string { return sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, base()) },
		"wrong issuer":   func(t *testing.T) string { return sign(t, jwt.SigningMethodHS256, []byte(testKey), wrongIssuer) },
		"wrong audience": func(t *testing.T) string { return sign(t, jwt.SigningMethodHS256, []byte(testKey), wrongAudience) },
		"no expiry":      func(t *testing.T) string { return sign(t, jwt.SigningMethodHS256, []byte(testKey), noExpiry) },
		"wrong role":     func(t *testing.T) string { return sign(t, jwt.SigningMethodHS256, []byte(testKey), wrongRole) },
	}
	for name, tokenFn := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Validate(tokenFn(t))
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		})
	}
}
