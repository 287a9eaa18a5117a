package services

import (
	"testing"

	"git.solsynth.dev/hypernet/circle/pkg/internal/database"
	"git.solsynth.dev/hypernet/circle/pkg/internal/models"
	"git.solsynth.dev/hypernet/circle/pkg/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatLifecycle(t *testing.T) {
	testutil.Setup(t)
	alice := testutil.NewAccount(t, "alice")
	bob := testutil.NewAccount(t, "bob")
	makeFriends(t, alice, bob)

	chat, err := NewChat(alice, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{alice.ID, bob.ID}, chat.MemberIDs())
	assert.Nil(t, chat.LastMessage)

	require.NoError(t, LeaveChat(bob, chat.ID))

	chat, err = GetChat(alice, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{alice.ID}, chat.MemberIDs())

	_, err = GetChat(bob, chat.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)

	require.NoError(t, LeaveChat(alice, chat.ID))

	_, err = GetChat(alice, chat.ID)
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestCreateChatErrors(t *testing.T) {
	testutil.Setup(t)
	alice := testutil.NewAccount(t, "alice")
	bob := testutil.NewAccount(t, "bob")
	carol := testutil.NewAccount(t, "carol")

	_, err := NewChat(alice, alice.ID, bob.ID)
	assert.ErrorIs(t, err, ErrNotFriends)

	makeFriends(t, alice, bob)

	_, err = NewChat(carol, alice.ID, bob.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = NewChat(alice, alice.ID, 9999)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = NewChat(alice, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = NewChat(bob, bob.ID, alice.ID)
	assert.ErrorIs(t, err, ErrChatAlreadyExists)
}

func TestJoinChat(t *testing.T) {
	testutil.Setup(t)
	alice := testutil.NewAccount(t, "alice")
	bob := testutil.NewAccount(t, "bob")
	carol := testutil.NewAccount(t, "carol")
	makeFriends(t, alice, bob)
	makeFriends(t, alice, carol)

	chat, err := NewChat(alice, alice.ID, bob.ID)
	require.NoError(t, err)

	t.Run("full chat", func(t *testing.T) {
		_, err := JoinChat(carol, chat.ID)
		assert.ErrorIs(t, err, ErrChatFull)
	})

	require.NoError(t, LeaveChat(bob, chat.ID))

	// Warm the cache, the join must not leave a stale member set behind.
	_, err = GetChat(alice, chat.ID)
	require.NoError(t, err)

	t.Run("already member", func(t *testing.T) {
		_, err := JoinChat(alice, chat.ID)
		assert.ErrorIs(t, err, ErrAlreadyMember)
	})

	t.Run("not a friend of the member", func(t *testing.T) {
		dave := testutil.NewAccount(t, "dave")
		_, err := JoinChat(dave, chat.ID)
		assert.ErrorIs(t, err, ErrNotFriends)
	})

	t.Run("missing chat", func(t *testing.T) {
		_, err := JoinChat(carol, 9999)
		assert.ErrorIs(t, err, ErrChatNotFound)
	})

	joined, err := JoinChat(carol, chat.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{alice.ID, carol.ID}, joined.MemberIDs())

	fetched, err := GetChat(carol, chat.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{alice.ID, carol.ID}, fetched.MemberIDs())
	assert.LessOrEqual(t, len(fetched.Members), models.ChatMemberLimit)
}

func TestUnauthorizedChatRead(t *testing.T) {
	testutil.Setup(t)
	alice := testutil.NewAccount(t, "alice")
	bob := testutil.NewAccount(t, "bob")
	carol := testutil.NewAccount(t, "carol")
	makeFriends(t, alice, bob)

	chat, err := NewChat(alice, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = GetChat(carol, chat.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.Equal(t, ErrorKindAccessDenied, KindOf(err))

	assert.ErrorIs(t, LeaveChat(carol, chat.ID), ErrAccessDenied)
	assert.ErrorIs(t, DeleteChat(carol, chat.ID), ErrAccessDenied)

	_, err = GetChatLastMessage(carol, chat.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestDeleteChat(t *testing.T) {
	testutil.Setup(t)
	alice := testutil.NewAccount(t, "alice")
	bob := testutil.NewAccount(t, "bob")
	admin := testutil.NewAccount(t, "admin")
	makeFriends(t, alice, bob)

	first, err := NewChat(alice, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = NewMessage(first.ID, bob.Name, "bye")
	require.NoError(t, err)

	require.NoError(t, DeleteChat(bob, first.ID))
	_, err = GetChat(alice, first.ID)
	assert.ErrorIs(t, err, ErrChatNotFound)

	var count int64
	require.NoError(t, database.C.Model(&models.Message{}).Where("chat_id = ?", first.ID).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, database.C.Model(&models.ChatMember{}).Where("chat_id = ?", first.ID).Count(&count).Error)
	assert.Zero(t, count)

	second, err := NewChat(alice, alice.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, DeleteChat(admin, second.ID))
	assert.ErrorIs(t, DeleteChat(admin, second.ID), ErrChatNotFound)
}

func TestListChats(t *testing.T) {
	testutil.Setup(t)
	alice := testutil.NewAccount(t, "alice")
	bob := testutil.NewAccount(t, "bob")
	carol := testutil.NewAccount(t, "carol")
	admin := testutil.NewAccount(t, "admin")
	makeFriends(t, alice, bob)
	makeFriends(t, bob, carol)

	ab, err := NewChat(alice, alice.ID, bob.ID)
	require.NoError(t, err)
	bc, err := NewChat(carol, bob.ID, carol.ID)
	require.NoError(t, err)

	_, err = ListChats(alice)
	assert.ErrorIs(t, err, ErrAccessDenied)

	all, err := ListChats(admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	owned, err := ListOwnedChats(bob)
	require.NoError(t, err)
	assert.Equal(t, []uint{ab.ID, bc.ID}, []uint{owned[0].ID, owned[1].ID})

	owned, err = ListOwnedChats(alice)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, ab.ID, owned[0].ID)
}

func TestCleanupRemovesOrphans(t *testing.T) {
	testutil.Setup(t)

	orphan := models.Chat{}
	require.NoError(t, database.C.Create(&orphan).Error)
	require.NoError(t, database.C.Create(&models.Message{Text: "lost", ChatID: orphan.ID}).Error)
	require.NoError(t, database.C.Create(&models.Message{Text: "dangling", ChatID: 9999}).Error)

	DoAutoDatabaseCleanup()

	var count int64
	require.NoError(t, database.C.Model(&models.Chat{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, database.C.Model(&models.Message{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestChatReadAfterMembershipRemovedBehindCache(t *testing.T) {
	testutil.Setup(t)
	alice := testutil.NewAccount(t, "alice")
	bob := testutil.NewAccount(t, "bob")
	makeFriends(t, alice, bob)

	chat, err := NewChat(alice, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = GetChat(bob, chat.ID)
	require.NoError(t, err)

	// The cached entry still lists bob, the store no longer does.
	require.NoError(t, database.C.
		Where("chat_id = ? AND account_id = ?", chat.ID, bob.ID).
		Delete(&models.ChatMember{}).Error)
	cached, ok := getCached[models.Chat](cacheKindChat, KeyForChat(chat.ID))
	require.True(t, ok)
	require.True(t, cached.HasMember(bob.ID))

	_, err = GetChat(bob, chat.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)

	fetched, err := GetChat(alice, chat.ID)
	require.NoError(t, err)
	assert.True(t, fetched.HasMember(alice.ID))
}

func TestChatReadRefreshesMissingMember(t *testing.T) {
	testutil.Setup(t)
	alice := testutil.NewAccount(t, "alice")
	bob := testutil.NewAccount(t, "bob")
	carol := testutil.NewAccount(t, "carol")
	makeFriends(t, alice, bob)
	makeFriends(t, alice, carol)

	chat, err := NewChat(alice, alice.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, LeaveChat(bob, chat.ID))

	_, err = GetChat(alice, chat.ID)
	require.NoError(t, err)

	// Joined behind the cache's back.
	require.NoError(t, database.C.Create(&models.ChatMember{ChatID: chat.ID, AccountID: carol.ID}).Error)

	fetched, err := GetChat(carol, chat.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{alice.ID, carol.ID}, fetched.MemberIDs())
}

func accountVersion(t *testing.T, id uint) uint {
	t.Helper()
	account, err := GetAccountWithID(database.C, id)
	require.NoError(t, err)
	return account.Version
}

func TestJoinChatClaimsBothAccounts(t *testing.T) {
	testutil.Setup(t)
	alice := testutil.NewAccount(t, "alice")
	bob := testutil.NewAccount(t, "bob")
	carol := testutil.NewAccount(t, "carol")
	makeFriends(t, alice, bob)
	makeFriends(t, alice, carol)

	chat, err := NewChat(alice, alice.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, LeaveChat(bob, chat.ID))

	aliceBefore := accountVersion(t, alice.ID)
	carolBefore := accountVersion(t, carol.ID)
	bobBefore := accountVersion(t, bob.ID)

	_, err = JoinChat(carol, chat.ID)
	require.NoError(t, err)

	assert.Equal(t, aliceBefore+1, accountVersion(t, alice.ID))
	assert.Equal(t, carolBefore+1, accountVersion(t, carol.ID))
	assert.Equal(t, bobBefore, accountVersion(t, bob.ID))
}
