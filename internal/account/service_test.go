package account_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentmanagement/internal/access"
	"studentmanagement/internal/account"
	"studentmanagement/internal/apperr"
	"studentmanagement/internal/store"
)

var admin = access.Actor{ID: "adm-1", Role: access.RoleAdmin}

func newService(t *testing.T) *account.Service {
	t.Helper()
	svc := account.NewService(store.NewMemory())
	require.NoError(t, svc.EnsureAdmin(context.Background(), "admin", "bootstrap-secret"))
	return svc
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	svc := account.NewService(store.NewMemory())

	// Blank password skips bootstrapping entirely.
	require.NoError(t, svc.EnsureAdmin(ctx, "admin", ""))
	_, err := svc.Authenticate(ctx, "admin", "")
	assert.True(t, apperr.Is(err, apperr.KindAuthentication))

	require.NoError(t, svc.EnsureAdmin(ctx, "admin", "bootstrap-secret"))
	usr, err := svc.Authenticate(ctx, "admin", "bootstrap-secret")
	require.NoError(t, err)
	assert.Equal(t, access.RoleAdmin, usr.Role)

	// Idempotent on restart.
	require.NoError(t, svc.EnsureAdmin(ctx, "admin", "bootstrap-secret"))
}

func TestAuthenticateUniformFailures(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	created, err := svc.Create(ctx, admin, account.NewUser{
		Username: "frank", Password: "correct-horse", Role: access.RoleTeacher,
	})
	require.NoError(t, err)

	// Unknown user, wrong password and disabled account fail identically.
	_, unknownErr := svc.Authenticate(ctx, "nobody", "whatever")
	_, wrongErr := svc.Authenticate(ctx, "frank", "wrong")
	require.Error(t, unknownErr)
	require.Error(t, wrongErr)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())

	disabled := false
	_, err = svc.Update(ctx, admin, created.ID, account.UpdateUser{Enabled: &disabled})
	require.NoError(t, err)
	_, disabledErr := svc.Authenticate(ctx, "frank", "correct-horse")
	require.Error(t, disabledErr)
	assert.Equal(t, unknownErr.Error(), disabledErr.Error())
	assert.True(t, apperr.Is(disabledErr, apperr.KindAuthentication))
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	_, err := svc.Create(ctx, admin, account.NewUser{Username: "ab", Password: "short", Role: "WIZARD"})
	require.True(t, apperr.Is(err, apperr.KindValidation))
	fields := apperr.FieldsOf(err)
	assert.Len(t, fields, 3)

	// Usernames are normalized and unique.
	_, err = svc.Create(ctx, admin, account.NewUser{Username: "Grace ", Password: "password123", Role: access.RoleStudent})
	require.NoError(t, err)
	_, err = svc.Create(ctx, admin, account.NewUser{Username: "grace", Password: "password123", Role: access.RoleStudent})
	assert.True(t, apperr.Is(err, apperr.KindDuplicate))
}

func TestCreateRequiresAdmin(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	teacher := access.Actor{ID: "tea-1", Role: access.RoleTeacher}
	_, err := svc.Create(ctx, teacher, account.NewUser{Username: "mallory", Password: "password123", Role: access.RoleAdmin})
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
}

func TestUpdateKeepsRoleImmutable(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	created, err := svc.Create(ctx, admin, account.NewUser{
		Username: "dana", Password: "password123", Role: access.RoleStudent, FirstName: "Dana",
	})
	require.NoError(t, err)

	email := "dana@example.edu"
	newPwd := "rotated-password"
	updated, err := svc.Update(ctx, admin, created.ID, account.UpdateUser{Email: &email, Password: &newPwd})
	require.NoError(t, err)
	assert.Equal(t, access.RoleStudent, updated.Role, "no update path changes the role")
	assert.Equal(t, email, updated.Email)

	_, err = svc.Authenticate(ctx, "dana", "rotated-password")
	assert.NoError(t, err)
}

func TestDeleteSelfBlocked(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	boot, err := svc.Authenticate(ctx, "admin", "bootstrap-secret")
	require.NoError(t, err)

	err = svc.Delete(ctx, boot.Actor(), boot.ID)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	_, err := svc.Create(ctx, admin, account.NewUser{
		Username: "lin", Password: "password123", Role: access.RoleStudent,
		FirstName: "Lin", LastName: "Okafor", Email: "lin@example.edu",
	})
	require.NoError(t, err)

	users, err := svc.Search(ctx, admin, "okafor")
	require.NoError(t, err)
	assert.Len(t, users, 1)

	users, err = svc.Search(ctx, admin, "  ")
	require.NoError(t, err)
	assert.Empty(t, users, "blank query matches nothing rather than everything")
}
