package attendance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	seeded, err := Seed(ctx, f.svc, false)
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = Seed(ctx, f.svc, false)
	require.NoError(t, err)
	assert.False(t, seeded)

	users, err := f.svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, len(demoAccounts))

	admin, err := f.svc.Authenticate(ctx, "admin@escola.com", "admin123", RoleAdmin)
	require.NoError(t, err)
	assert.NotEqual(t, "admin123", admin.PasswordHash)

	_, err = f.svc.Authenticate(ctx, "aluno@escola.com", "aluno123", RoleStudent)
	assert.NoError(t, err)
}

func TestSeedWithSamples(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	seeded, err := Seed(ctx, f.svc, true)
	require.NoError(t, err)
	require.True(t, seeded)

	st, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, st.TotalUsers)
	assert.Equal(t, 4, st.TotalCheckIns)
	assert.Equal(t, 1, st.ByStatus[StatusPending])
	assert.Equal(t, 2, st.ByStatus[StatusApproved])
	assert.Equal(t, 1, st.ByStatus[StatusRejected])
}

func TestSeedSkipsWhenUsersExist(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.mustUser(t, "Someone", "someone@x.com", RoleAdmin)

	seeded, err := Seed(ctx, f.svc, true)
	require.NoError(t, err)
	assert.False(t, seeded)

	users, err := f.svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
