package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/sofrapos/sofra/app/models"
	"github.com/sofrapos/sofra/app/repositories"
	"github.com/sofrapos/sofra/config"
	"github.com/sofrapos/sofra/pkg/token"
)

func seedUser(t *testing.T, db *gorm.DB, email, role, perms string) models.User {
	t.Helper()
	var branch models.Branch
	require.NoError(t, db.Where("code = ?", "downtown").First(&branch).Error)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret-pw"), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		Name: "Test", Email: email, Password: string(hash),
		Role: role, BranchID: &branch.ID, Permissions: perms,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestLoginIssuesTokenWithClaims(t *testing.T) {
	db := testDB(t)
	seedUser(t, db, "manager@sofra.local", "MANAGER", "")
	svc := NewAuthService(repositories.NewUserRepository(db))

	result, err := svc.Login("manager@sofra.local", "secret-pw")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, "MANAGER", result.User.Role)
	assert.Equal(t, "downtown", result.User.Branch)

	claims, err := token.Validate(config.JWTSecret(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, "MANAGER", claims.Role)
	assert.Equal(t, "downtown", claims.Branch)
	assert.Empty(t, claims.Permissions, "no override means defaults apply downstream")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	db := testDB(t)
	seedUser(t, db, "staff@sofra.local", "STAFF", "")
	svc := NewAuthService(repositories.NewUserRepository(db))

	_, err := svc.Login("staff@sofra.local", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Unknown email gets the same answer as a wrong password.
	_, err = svc.Login("ghost@sofra.local", "secret-pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestProfileCarriesPermissionOverride(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db, "kds@sofra.local", "KITCHEN_STAFF", "ORDER_READ, ORDER_UPDATE,")
	svc := NewAuthService(repositories.NewUserRepository(db))

	profile, err := svc.Profile(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "KITCHEN_STAFF", profile.Role)
	assert.Equal(t, "downtown", profile.Branch)
	assert.Equal(t, []string{"ORDER_READ", "ORDER_UPDATE"}, profile.Permissions)
}
