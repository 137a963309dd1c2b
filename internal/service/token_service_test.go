package service

import (
	"strings"
	"testing"
	"time"

	"townsquare/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-123456"

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour)
	id := uuid.New()

	token, err := svc.Issue(id)
	require.NoError(t, err)

	got, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestTokenService_IssueRequiresSecret(t *testing.T) {
	_, err := NewTokenService("", time.Hour).Issue(uuid.New())
	assert.Error(t, err)
}

func TestTokenService_VerifyRejects(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour)
	valid, err := svc.Issue(uuid.New())
	require.NoError(t, err)

	sign := func(claims jwt.MapClaims, method jwt.SigningMethod, key any) string {
		tok, signErr := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, signErr)
		return tok
	}
	baseClaims := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub": uuid.NewString(),
			"iss": TokenIssuer,
			"aud": TokenAudience,
			"exp": time.Now().Add(time.Hour).Unix(),
		}
	}

	tampered := valid[:len(valid)-2] + flip(valid[len(valid)-2:])

	wrongIssuer := baseClaims()
	wrongIssuer["iss"] = "someone-else"
	wrongAudience := baseClaims()
	wrongAudience["aud"] = "other-client"
	noExpiry := baseClaims()
	delete(noExpiry, "exp")
	badSubject := baseClaims()
	badSubject["sub"] = "42"

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"tampered signature", tampered},
		{"other secret", sign(baseClaims(), jwt.SigningMethodHS256, []byte("another-secret-another-secret-123"))},
		{"other algorithm", sign(baseClaims(), jwt.SigningMethodHS512, []byte(testSecret))},
		{"wrong issuer", sign(wrongIssuer, jwt.SigningMethodHS256, []byte(testSecret))},
		{"wrong audience", sign(wrongAudience, jwt.SigningMethodHS256, []byte(testSecret))},
		{"missing expiry", sign(noExpiry, jwt.SigningMethodHS256, []byte(testSecret))},
		{"non uuid subject", sign(badSubject, jwt.SigningMethodHS256, []byte(testSecret))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Verify(tt.token)
			require.Error(t, err)
			assert.True(t, models.IsCode(err, models.CodeInvalidToken), "got %v", err)
		})
	}
}

func TestTokenService_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := NewTokenService(testSecret, time.Hour).WithClock(func() time.Time { return now })

	token, err := svc.Issue(uuid.New())
	require.NoError(t, err)

	now = now.Add(59 * time.Minute)
	_, err = svc.Verify(token)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = svc.Verify(token)
	assert.True(t, models.IsCode(err, models.CodeInvalidToken))
}

// flip changes a base64url suffix so the signature no longer matches.
func flip(s string) string {
	if strings.HasPrefix(s, "A") {
		return "B" + s[1:]
	}
	return "A" + s[1:]
}
