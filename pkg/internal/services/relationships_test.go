package services

import (
	"errors"
	"testing"

	"git.solsynth.dev/hypernet/circle/pkg/internal/database"
	"git.solsynth.dev/hypernet/circle/pkg/internal/models"
	"git.solsynth.dev/hypernet/circle/pkg/internal/testutil"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accountIDs(accounts []models.Account) []uint {
	return lo.Map(accounts, func(item models.Account, _ int) uint {
		return item.ID
	})
}

func makeFriends(t *testing.T, a, b models.Account) {
	t.Helper()
	require.NoError(t, NewFriendRequest(a, b.ID))
	require.NoError(t, AcceptFriendRequest(b, a.ID))
}

// assertSymmetric checks both sides of the friendship agree.
func assertSymmetric(t *testing.T, a, b models.Account) {
	t.Helper()
	ab, err := IsFriend(database.C, a.ID, b.ID)
	require.NoError(t, err)
	ba, err := IsFriend(database.C, b.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
}

func TestFriendRequestRoundTrip(t *testing.T) {
	testutil.Setup(t)
	alice := testutil.NewAccount(t, "alice")
	bob := testutil.NewAccount(t, "bob")

	require.NoError(t, NewFriendRequest(alice, bob.ID))

	requests, err := ListFriendRequests(bob)
	require.NoError(t, err)
	assert.Equal(t, []uint{alice.ID}, accountIDs(requests))

	followers, err := ListFollowers(bob)
	require.NoError(t, err)
	assert.Equal(t, []uint{alice.ID}, accountIDs(followers))

	friends, err := ListFriends(alice)
	require.NoError(t, err)
	assert.Empty(t, friends)

	require.NoError(t, AcceptFriendRequest(bob, alice.ID))

	friends, err = ListFriends(alice)
	require.NoError(t, err)
	assert.Equal(t, []uint{bob.ID}, accountIDs(friends))
	friends, err = ListFriends(bob)
	require.NoError(t, err)
	assert.Equal(t, []uint{alice.ID}, accountIDs(friends))

	requests, err = ListFriendRequests(bob)
	require.NoError(t, err)
	assert.Empty(t, requests)

	// Accepting makes the follow relation symmetric.
	followers, err = ListFollowers(alice)
	require.NoError(t, err)
	assert.Equal(t, []uint{bob.ID}, accountIDs(followers))

	assertSymmetric(t, alice, bob)
}

func TestFriendRequestRepeatIsNoop(t *testing.T) {
	testutil.Setup(t)
	alice := testutil.NewAccount(t, "alice")
	bob := testutil.NewAccount(t, "bob")

	require.NoError(t, NewFriendRequest(alice, bob.ID))
	require.NoError(t, NewFriendRequest(alice, bob.ID))

	requests, err := ListFriendRequests(bob)
	require.NoError(t, err)
	assert.Len(t, requests, 1)
}

func TestFriendRequestErrors(t *testing.T) {
	testutil.Setup(t)
	alice := testutil.NewAccount(t, "alice")
	bob := testutil.NewAccount(t, "bob")

	t.Run("self reference", func(t *testing.T) {
		assert.ErrorIs(t, NewFriendRequest(alice, alice.ID), ErrSelfReference)
		assert.ErrorIs(t, AcceptFriendRequest(alice, alice.ID), ErrSelfReference)
		assert.ErrorIs(t, RefuseFriendRequest(alice, alice.ID), ErrSelfReference)
		assert.ErrorIs(t, RefuseFollower(alice, alice.ID), ErrSelfReference)
		assert.ErrorIs(t, DeleteFriend(alice, alice.ID), ErrSelfReference)
	})

	t.Run("unknown target", func(t *testing.T) {
		assert.ErrorIs(t, NewFriendRequest(alice, 9999), ErrUserNotFound)
	})

	t.Run("no pending request", func(t *testing.T) {
		err := AcceptFriendRequest(bob, alice.ID)
		assert.ErrorIs(t, err, ErrNoPendingRequest)
		assert.Equal(t, ErrorKindBadInput, KindOf(err))
		assert.ErrorIs(t, RefuseFriendRequest(bob, alice.ID), ErrNoPendingRequest)
	})

	t.Run("already friends", func(t *testing.T) {
		makeFriends(t, alice, bob)
		assert.ErrorIs(t, NewFriendRequest(alice, bob.ID), ErrAlreadyFriends)
		assert.ErrorIs(t, NewFriendRequest(bob, alice.ID), ErrAlreadyFriends)
	})
}

func TestCrossedFriendRequests(t *testing.T) {
	testutil.Setup(t)
	alice := testutil.NewAccount(t, "alice")
	bob := testutil.NewAccount(t, "bob")

	require.NoError(t, NewFriendRequest(alice, bob.ID))
	require.NoError(t, NewFriendRequest(bob, alice.ID))
	require.NoError(t, AcceptFriendRequest(bob, alice.ID))

	for _, user := range []models.Account{alice, bob} {
		requests, err := ListFriendRequests(user)
		require.NoError(t, err)
		assert.Empty(t, requests)
	}
	assert.ErrorIs(t, AcceptFriendRequest(alice, bob.ID), ErrNoPendingRequest)
	assertSymmetric(t, alice, bob)
}

func TestRefuseFriendRequest(t *testing.T) {
	testutil.Setup(t)
	alice := testutil.NewAccount(t, "alice")
	bob := testutil.NewAccount(t, "bob")

	require.NoError(t, NewFriendRequest(alice, bob.ID))
	require.NoError(t, RefuseFriendRequest(bob, alice.ID))

	requests, err := ListFriendRequests(bob)
	require.NoError(t, err)
	assert.Empty(t, requests)

	// The follow edge survives a refused request.
	followers, err := ListFollowers(bob)
	require.NoError(t, err)
	assert.Equal(t, []uint{alice.ID}, accountIDs(followers))

	friends, err := ListFriends(bob)
	require.NoError(t, err)
	assert.Empty(t, friends)
}

func TestRefuseFollower(t *testing.T) {
	testutil.Setup(t)
	alice := testutil.NewAccount(t, "alice")
	bob := testutil.NewAccount(t, "bob")
	carol := testutil.NewAccount(t, "carol")

	makeFriends(t, alice, bob)

	t.Run("non follower changes nothing", func(t *testing.T) {
		before, err := ListFollowers(bob)
		require.NoError(t, err)

		err = RefuseFollower(bob, carol.ID)
		assert.ErrorIs(t, err, ErrNotAFollower)

		after, err := ListFollowers(bob)
		require.NoError(t, err)
		assert.Equal(t, accountIDs(before), accountIDs(after))
	})

	t.Run("friendship is untouched", func(t *testing.T) {
		require.NoError(t, RefuseFollower(bob, alice.ID))

		followers, err := ListFollowers(bob)
		require.NoError(t, err)
		assert.Empty(t, followers)

		friend, err := IsFriend(database.C, alice.ID, bob.ID)
		require.NoError(t, err)
		assert.True(t, friend)
		assertSymmetric(t, alice, bob)
	})
}

func TestDeleteFriendCascadesChat(t *testing.T) {
	testutil.Setup(t)
	alice := testutil.NewAccount(t, "alice")
	bob := testutil.NewAccount(t, "bob")

	makeFriends(t, alice, bob)

	chat, err := NewChat(alice, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = NewMessage(chat.ID, alice.Name, "hello")
	require.NoError(t, err)

	// Warm the cache so the cascade has something to evict.
	_, err = GetChat(alice, chat.ID)
	require.NoError(t, err)

	require.NoError(t, DeleteFriend(alice, bob.ID))

	assertSymmetric(t, alice, bob)
	friend, err := IsFriend(database.C, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, friend)

	following, err := IsFollower(database.C, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, following)

	_, err = GetChat(alice, chat.ID)
	assert.ErrorIs(t, err, ErrChatNotFound)

	var messages int64
	require.NoError(t, database.C.Model(&models.Message{}).Where("chat_id = ?", chat.ID).Count(&messages).Error)
	assert.Zero(t, messages)

	assert.ErrorIs(t, DeleteFriend(alice, bob.ID), ErrNotFriends)
}

func TestRetryOnConflict(t *testing.T) {
	var calls int
	err := retryOnConflict(func() error {
		calls++
		if calls == 1 {
			return ErrConflict
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = retryOnConflict(func() error {
		calls++
		return ErrConflict
	})
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, 2, calls)
}

func TestBumpAccountVersionDetectsStaleState(t *testing.T) {
	testutil.Setup(t)
	alice := testutil.NewAccount(t, "alice")

	stale := alice
	require.NoError(t, bumpAccountVersion(database.C, &alice))
	assert.ErrorIs(t, bumpAccountVersion(database.C, &stale), ErrConflict)
	assert.Equal(t, ErrorKindConflict, KindOf(ErrConflict))
}
