package services

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub-io/studyhub/internal/models"
)

func TestCreatePublishesToUserQueue(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice")

	dto, err := env.notifier.Create(&models.Notification{
		UserID:  alice.ID,
		Title:   "hello",
		Message: "world",
	})
	require.NoError(t, err)
	assert.Equal(t, models.NotificationUpdates, dto.Type)
	assert.False(t, dto.IsRead)

	events := env.broadcaster.eventsFor(UserQueueDestination(alice.ID))
	require.Len(t, events, 1)
	published, ok := events[0].Payload.(*NotificationDTO)
	require.True(t, ok)
	assert.Equal(t, dto.ID, published.ID)
}

func TestCreateUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.notifier.Create(&models.Notification{
		UserID:  9999,
		Title:   "hello",
		Message: "world",
	})
	require.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, env.broadcaster.events)
}

func TestNotifyInvite(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice")
	group := env.seedGroup(t, alice, "study")
	bob := env.seedUser(t, "bob")

	require.NoError(t, env.notifier.NotifyInvite(bob.ID, group))

	list, err := env.notifier.List(bob.ID, true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.NotificationInvites, list[0].Type)
	require.NotNil(t, list[0].RelatedEntityID)
	assert.Equal(t, int64(group.ID), *list[0].RelatedEntityID)
}

func TestAddMemberSendsInvite(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice")
	bob := env.seedUser(t, "bob")
	group := env.seedGroup(t, alice, "study")

	require.NoError(t, env.groups.AddMember(alice.ID, group.ID, bob.ID, models.RoleMember))

	events := env.broadcaster.eventsFor(UserQueueDestination(bob.ID))
	assert.Len(t, events, 1)
}

func TestMarkReadOwnership(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice")
	bob := env.seedUser(t, "bob")

	dto, err := env.notifier.Create(&models.Notification{
		UserID: alice.ID, Title: "private", Message: "x",
	})
	require.NoError(t, err)

	err = env.notifier.MarkRead(bob.ID, dto.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, env.notifier.MarkRead(alice.ID, dto.ID))

	err = env.notifier.MarkRead(alice.ID, 99999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnreadCountAndDeleteRead(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice")

	var first uint
	for i := 0; i < 3; i++ {
		dto, err := env.notifier.Create(&models.Notification{
			UserID: alice.ID, Title: "n", Message: "m",
		})
		require.NoError(t, err)
		if i == 0 {
			first = dto.ID
		}
	}

	count, err := env.notifier.UnreadCount(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	require.NoError(t, env.notifier.MarkRead(alice.ID, first))
	require.NoError(t, env.notifier.DeleteRead(alice.ID))

	list, err := env.notifier.List(alice.ID, false)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

// 已读状态性质：任选一个下标子集标记已读后，未读列表恰好是补集
func TestReadStateProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30

	properties := gopter.NewProperties(parameters)

	properties.Property("unread list is the complement of marked indices", prop.ForAll(
		func(total int, marks []int) bool {
			env := newTestEnv(t)
			alice := env.seedUser(t, "alice")

			ids := make([]uint, total)
			for i := 0; i < total; i++ {
				dto, err := env.notifier.Create(&models.Notification{
					UserID: alice.ID, Title: "n", Message: "m",
				})
				if err != nil {
					return false
				}
				ids[i] = dto.ID
			}

			marked := make(map[uint]bool)
			for _, m := range marks {
				id := ids[m%total]
				if err := env.notifier.MarkRead(alice.ID, id); err != nil {
					return false
				}
				marked[id] = true
			}

			unread, err := env.notifier.List(alice.ID, true)
			if err != nil {
				return false
			}
			if len(unread) != total-len(marked) {
				return false
			}
			for _, n := range unread {
				if marked[n.ID] {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 8),
		gen.SliceOf(gen.IntRange(0, 100)),
	))

	properties.TestingRun(t)
}
