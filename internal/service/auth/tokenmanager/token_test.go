package tokenmanager

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
)

func Test_TokenManager(t *testing.T) {
	t.Parallel()

	testUser := models.User{
		ID:       uuid.New(),
		Username: "testuser",
		FullName: "Test User",
		Roles:    []string{"user", "admin"},
	}

	mustNew := func(t *testing.T, cfg Config) *TokenManager {
		m, err := New(cfg)
		require.NoError(t, err, "token manager should be created without errors")
		return m
	}

	t.Run("new defaults", func(t *testing.T) {
		m := mustNew(t, Config{SecretKey: "secret"})

		require.Equal(t, "secret", m.key, "secret key should be set")
		require.Equal(t, defaultAccessTokenTTL, m.accessTTL, "default access token TTL should be set")
		require.Equal(t, defaultSigningMethod, m.alg.Alg(), "default signing method should be set")
	})

	t.Run("fail without secret", func(t *testing.T) {
		_, err := New(Config{})
		require.Error(t, err, "empty secret must be rejected")
	})

	t.Run("IssueAccess", func(t *testing.T) {
		t.Run("return signed token", func(t *testing.T) {
			m := mustNew(t, Config{SecretKey: "test-secret-key", AccessTTL: 15 * time.Minute})

			issued, err := m.IssueAccess(testUser)
			require.NoError(t, err)

			assert.NotEmpty(t, issued.Value, "access token should not be empty")
			assert.WithinDuration(t, time.Now().Add(15*time.Minute), issued.ExpiresAt, time.Second)
		})

		t.Run("access claims", func(t *testing.T) {
			m := mustNew(t, Config{
				SecretKey: "test-secret-key",
				Issuer:    "storefront",
				Audience:  "storefront-web",
				AccessTTL: 15 * time.Minute,
			})

			issued, err := m.IssueAccess(testUser)
			require.NoError(t, err)

			token, err := jwt.ParseWithClaims(issued.Value, &AccessTokenClaims{}, func(token *jwt.Token) (any, error) {
				return []byte("test-secret-key"), nil
			})
			require.NoError(t, err)
			require.True(t, token.Valid, "access token should be valid")

			claims, ok := token.Claims.(*AccessTokenClaims)
			require.True(t, ok, "claims should be of type AccessTokenClaims")

			assert.Equal(t, testUser.ID.String(), claims.Subject, "subject should be the user id")
			assert.Equal(t, "storefront", claims.Issuer)
			assert.Equal(t, jwt.ClaimStrings{"storefront-web"}, claims.Audience)
			assert.Equal(t, "Test User", claims.Name)
			assert.Equal(t, []string{"user", "admin"}, claims.Roles)
			assert.NotEmpty(t, claims.ID, "token has to has jti")
			assert.WithinDuration(t, time.Now(), claims.IssuedAt.Time, time.Second, "issued at should be close to now")
			assert.WithinDuration(t, issued.ExpiresAt, claims.ExpiresAt.Time, 0, "expires at should match issued token")
		})

		t.Run("generate different tokens", func(t *testing.T) {
			m := mustNew(t, Config{SecretKey: "test-secret-key"})

			first, err := m.IssueAccess(testUser)
			require.NoError(t, err)

			second, err := m.IssueAccess(testUser)
			require.NoError(t, err)

			assert.NotEqual(t, first.Value, second.Value, "access tokens should be different")
		})
	})

	t.Run("ParseAccess", func(t *testing.T) {
		t.Run("valid token", func(t *testing.T) {
			m := mustNew(t, Config{SecretKey: "test-secret-key"})

			issued, err := m.IssueAccess(testUser)
			require.NoError(t, err)

			claims, err := m.ParseAccess(issued.Value)
			require.NoError(t, err, "valid token should be parsed without errors")

			userID, err := claims.UserID()
			require.NoError(t, err)
			require.Equal(t, testUser.ID, userID)
			require.Equal(t, testUser.Roles, claims.Roles)
		})

		t.Run("not a token", func(t *testing.T) {
			m := mustNew(t, Config{SecretKey: "test-secret-key"})

			_, err := m.ParseAccess("invalid token")
			require.Error(t, err, "parsing even not a token should return an error")
		})

		t.Run("expired token", func(t *testing.T) {
			m := mustNew(t, Config{SecretKey: "test-secret-key", AccessTTL: time.Second})

			issued, err := m.IssueAccess(testUser)
			require.NoError(t, err)

			time.Sleep(time.Second)

			_, err = m.ParseAccess(issued.Value)
			require.Error(t, err, "token has to become expired")
		})

		t.Run("wrong issuer", func(t *testing.T) {
			signer := mustNew(t, Config{SecretKey: "test-secret-key", Issuer: "someone-else"})
			parser := mustNew(t, Config{SecretKey: "test-secret-key", Issuer: "storefront"})

			issued, err := signer.IssueAccess(testUser)
			require.NoError(t, err)

			_, err = parser.ParseAccess(issued.Value)
			require.Error(t, err, "issuer mismatch must fail validation")
		})

		t.Run("wrong audience", func(t *testing.T) {
			signer := mustNew(t, Config{SecretKey: "test-secret-key", Audience: "other-app"})
			parser := mustNew(t, Config{SecretKey: "test-secret-key", Audience: "storefront-web"})

			issued, err := signer.IssueAccess(testUser)
			require.NoError(t, err)

			_, err = parser.ParseAccess(issued.Value)
			require.Error(t, err, "audience mismatch must fail validation")
		})

		t.Run("not signed token", func(t *testing.T) {
			m := mustNew(t, Config{SecretKey: "test-secret-key"})

			token := jwt.NewWithClaims(
				jwt.SigningMethodNone,
				AccessTokenClaims{
					RegisteredClaims: jwt.RegisteredClaims{
						ID:        uuid.NewString(),
						Subject:   testUser.ID.String(),
						IssuedAt:  jwt.NewNumericDate(time.Now()),
						ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
					},
				},
			)
			access, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
			require.NoError(t, err)

			_, err = m.ParseAccess(access)
			require.Error(t, err, "valid token with empty alg must fail")
		})
	})
}
