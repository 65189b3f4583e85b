package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "revenuehub/pkg/domain"
	dErrors "revenuehub/pkg/domain-errors"
)

var jwtService = NewJWTService("test-signing-key", "revenuehub-test", time.Hour)

var subject = Subject{
	UserID:   id.UserID(uuid.New()),
	Role:     id.RoleCollector,
	District: "Accra Metropolitan",
	Region:   "Greater Accra",
}

func Test_IssueAndValidate(t *testing.T) {
	issued, err := jwtService.Issue(subject, time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, issued.Token)
	require.NotEmpty(t, issued.JTI)

	claims, err := jwtService.ValidateToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, subject.UserID.String(), claims.UserID)
	assert.Equal(t, "collector", claims.Role)
	assert.Equal(t, "Accra Metropolitan", claims.District)
	assert.Equal(t, issued.JTI, claims.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	issued, err := jwtService.Issue(subject, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(issued.Token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "token has expired"))
}

func Test_ValidateToken_WrongKeyOrIssuer(t *testing.T) {
	other := NewJWTService("another-key", "revenuehub-test", time.Hour)
	issued, err := other.Issue(subject, time.Now())
	require.NoError(t, err)
	_, err = jwtService.ValidateToken(issued.Token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))

	foreign := NewJWTService("test-signing-key", "someone-else", time.Hour)
	issued, err = foreign.Issue(subject, time.Now())
	require.NoError(t, err)
	_, err = jwtService.ValidateToken(issued.Token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_MiddlewareAdapter(t *testing.T) {
	issued, err := jwtService.Issue(subject, time.Now())
	require.NoError(t, err)

	claims, err := NewMiddlewareAdapter(jwtService).ValidateToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, issued.JTI, claims.JTI)
	assert.Equal(t, "Greater Accra", claims.Region)
	assert.Equal(t, issued.ExpiresAt.Unix(), claims.ExpiresAt.Unix())
}
