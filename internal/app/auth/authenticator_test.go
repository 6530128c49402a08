package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"neochat/internal/app/account"
	"neochat/internal/app/identity"
	"neochat/internal/app/protocol"
	"neochat/internal/pkg/randx"
)

func newMemberAccount(t *testing.T, id, email, password string) *account.Account {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	return &account.Account{
		ID:           id,
		Name:         id,
		Email:        email,
		PasswordHash: string(hashed),
	}
}

func TestGuest_GeneratedIdentity(t *testing.T) {
	t.Parallel()

	svc := NewService(account.NewMemoryStore())

	user, err := svc.Guest(context.Background(), "wanderer")
	require.NoError(t, err)

	assert.Equal(t, identity.KindGuest, user.Kind)
	assert.True(t, randx.IsValidGuestID(user.Identity.ID))
	assert.Equal(t, "wanderer", user.Identity.Name)
	assert.Nil(t, user.Account)
}

func TestGuest_EmptyNameDefaultsToID(t *testing.T) {
	t.Parallel()

	svc := NewService(account.NewMemoryStore())

	user, err := svc.Guest(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, user.Identity.ID, user.Identity.Name)
}

func TestMember_UnknownUser(t *testing.T) {
	t.Parallel()

	svc := NewService(account.NewMemoryStore())

	result, user, err := svc.Member(context.Background(), "nobody", "whatever")
	require.NoError(t, err)
	assert.Equal(t, protocol.AuthUnknownUser, result)
	assert.Nil(t, user)
}

func TestMember_IncorrectPassword(t *testing.T) {
	t.Parallel()

	store := account.NewMemoryStore()
	require.NoError(t, store.Create(context.Background(), newMemberAccount(t, "alice", "alice@example.com", "correct-horse")))

	svc := NewService(store)

	result, user, err := svc.Member(context.Background(), "alice", "wrong-horse")
	require.NoError(t, err)
	assert.Equal(t, protocol.AuthIncorrectPassword, result)
	assert.Nil(t, user)
}

func TestMember_Banned(t *testing.T) {
	t.Parallel()

	store := account.NewMemoryStore()
	acct := newMemberAccount(t, "alice", "alice@example.com", "correct-horse")
	acct.Banned = true
	require.NoError(t, store.Create(context.Background(), acct))

	svc := NewService(store)

	result, user, err := svc.Member(context.Background(), "alice", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, protocol.AuthUnauthorized, result)
	assert.Nil(t, user)
}

func TestMember_Success(t *testing.T) {
	t.Parallel()

	store := account.NewMemoryStore()
	require.NoError(t, store.Create(context.Background(), newMemberAccount(t, "alice", "alice@example.com", "correct-horse")))

	svc := NewService(store)

	result, user, err := svc.Member(context.Background(), "alice", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, protocol.AuthSuccess, result)
	require.NotNil(t, user)
	assert.Equal(t, identity.KindMember, user.Kind)
	assert.Equal(t, "alice", user.Identity.ID)
	require.NotNil(t, user.Account)
}

func TestRegister_Success(t *testing.T) {
	t.Parallel()

	store := account.NewMemoryStore()
	svc := NewService(store)

	result, user, err := svc.Register(context.Background(), RegisterSpec{
		ID:       "alice",
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, protocol.AuthSuccess, result)
	require.NotNil(t, user)
	assert.Equal(t, identity.KindMember, user.Kind)

	// The account is committed and the password is stored hashed.
	stored, err := store.ByID(context.Background(), "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "correct-horse", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("correct-horse")))
}

func TestRegister_GuestPrefixedIDRejected(t *testing.T) {
	t.Parallel()

	svc := NewService(account.NewMemoryStore())

	result, user, err := svc.Register(context.Background(), RegisterSpec{
		ID:       "Guest-abcd1234",
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, protocol.AuthIDInUse, result)
	assert.Nil(t, user)
}

func TestRegister_InvalidEmail(t *testing.T) {
	t.Parallel()

	svc := NewService(account.NewMemoryStore())

	result, user, err := svc.Register(context.Background(), RegisterSpec{
		ID:       "alice",
		Email:    "not-an-email",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, protocol.AuthEmailInUse, result)
	assert.Nil(t, user)
}

func TestRegister_PasswordLengthBounds(t *testing.T) {
	t.Parallel()

	svc := NewService(account.NewMemoryStore())

	result, _, err := svc.Register(context.Background(), RegisterSpec{
		ID:       "alice",
		Email:    "alice@example.com",
		Password: "short",
	})
	require.NoError(t, err)
	assert.Equal(t, protocol.AuthIncorrectPassword, result)
}

func TestRegister_Conflicts(t *testing.T) {
	t.Parallel()

	store := account.NewMemoryStore()
	require.NoError(t, store.Create(context.Background(), newMemberAccount(t, "alice", "alice@example.com", "correct-horse")))

	svc := NewService(store)

	result, _, err := svc.Register(context.Background(), RegisterSpec{
		ID:       "alice",
		Email:    "fresh@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, protocol.AuthIDInUse, result)

	result, _, err = svc.Register(context.Background(), RegisterSpec{
		ID:       "bob",
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, protocol.AuthEmailInUse, result)
}

func TestRegister_ConcurrentSameEmail_OneWinner(t *testing.T) {
	t.Parallel()

	store := account.NewMemoryStore()
	svc := NewService(store)

	const attempts = 8

	results := make(chan protocol.AuthResult, attempts)
	for i := 0; i < attempts; i++ {
		go func(i int) {
			result, _, _ := svc.Register(context.Background(), RegisterSpec{
				ID:       "user-" + string(rune('a'+i)),
				Email:    "shared@example.com",
				Password: "correct-horse",
			})
			results <- result
		}(i)
	}

	successes := 0
	for i := 0; i < attempts; i++ {
		if <-results == protocol.AuthSuccess {
			successes++
		}
	}
	assert.Equal(t, 1, successes)
}
