package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub-io/studyhub/internal/models"
)

func TestSendPersistsAndBroadcasts(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice")
	group := env.seedGroup(t, alice, "study")

	dto, err := env.messages.Send(alice.ID, &SendMessageRequest{
		GroupID: group.ID,
		Content: "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, models.MsgTypeText, dto.MsgType)
	assert.Equal(t, alice.ID, dto.SenderID)
	assert.NotZero(t, dto.ID)

	events := env.broadcaster.eventsFor(GroupDestination(group.ID))
	require.Len(t, events, 1)
	published, ok := events[0].Payload.(*MessageDTO)
	require.True(t, ok)
	assert.Equal(t, dto.ID, published.ID)
}

func TestSendNonMemberAllowed(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice")
	mallory := env.seedUser(t, "mallory")
	group := env.seedGroup(t, alice, "study")

	// 只要群组和发送者存在就接受，成员检查不在这条路径上
	_, err := env.messages.Send(mallory.ID, &SendMessageRequest{
		GroupID: group.ID,
		Content: "outsider",
	})
	require.NoError(t, err)
}

func TestSendUnknownGroup(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice")

	_, err := env.messages.Send(alice.ID, &SendMessageRequest{
		GroupID: 9999,
		Content: "void",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSendTimestampsMonotonic(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice")
	group := env.seedGroup(t, alice, "study")

	var prev *MessageDTO
	for i := 0; i < 50; i++ {
		dto, err := env.messages.Send(alice.ID, &SendMessageRequest{
			GroupID: group.ID, Content: "tick",
		})
		require.NoError(t, err)
		if prev != nil {
			assert.Less(t, prev.ID, dto.ID)
			assert.LessOrEqual(t, prev.CreatedAt, dto.CreatedAt)
		}
		prev = dto
	}
}

func TestSendReplyLink(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice")
	group := env.seedGroup(t, alice, "study")

	original, err := env.messages.Send(alice.ID, &SendMessageRequest{
		GroupID: group.ID, Content: "original",
	})
	require.NoError(t, err)

	reply, err := env.messages.Send(alice.ID, &SendMessageRequest{
		GroupID: group.ID, Content: "reply", ReplyToID: original.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, reply.ReplyToID)
	assert.Equal(t, original.ID, *reply.ReplyToID)

	// 失效的 ReplyToID：消息成功，链接静默跳过
	dangling, err := env.messages.Send(alice.ID, &SendMessageRequest{
		GroupID: group.ID, Content: "dangling", ReplyToID: 123456789,
	})
	require.NoError(t, err)
	assert.Nil(t, dangling.ReplyToID)
}

func TestDeleteAuthz(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice") // 群主 admin
	bob := env.seedUser(t, "bob")
	carol := env.seedUser(t, "carol")
	group := env.seedGroup(t, alice, "study")
	env.seedMember(t, group, bob, models.RoleMember)
	env.seedMember(t, group, carol, models.RoleMember)

	msg, err := env.messages.Send(bob.ID, &SendMessageRequest{
		GroupID: group.ID, Content: "bob's message",
	})
	require.NoError(t, err)

	// 普通成员删不了别人的消息
	err = env.messages.Delete(carol.ID, msg.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// 发送者本人可以删
	require.NoError(t, env.messages.Delete(bob.ID, msg.ID))

	msg2, err := env.messages.Send(bob.ID, &SendMessageRequest{
		GroupID: group.ID, Content: "another",
	})
	require.NoError(t, err)

	// admin 可以删
	require.NoError(t, env.messages.Delete(alice.ID, msg2.ID))
}

func TestDeleteMissingMessage(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice")

	err := env.messages.Delete(alice.ID, 424242)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPinAuthzAndListing(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice")
	outsider := env.seedUser(t, "outsider")
	group := env.seedGroup(t, alice, "study")

	msg, err := env.messages.Send(alice.ID, &SendMessageRequest{
		GroupID: group.ID, Content: "pin me",
	})
	require.NoError(t, err)

	// 非成员不能置顶
	err = env.messages.Pin(outsider.ID, msg.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, env.messages.Pin(alice.ID, msg.ID))
	// 重复置顶是幂等的
	require.NoError(t, env.messages.Pin(alice.ID, msg.ID))

	pins, err := env.messages.ListPinned(group.ID)
	require.NoError(t, err)
	require.Len(t, pins, 1)
	assert.Equal(t, msg.ID, pins[0].ID)

	require.NoError(t, env.messages.Unpin(alice.ID, msg.ID))
	// 取消未置顶的消息是 no-op
	require.NoError(t, env.messages.Unpin(alice.ID, msg.ID))

	pins, err = env.messages.ListPinned(group.ID)
	require.NoError(t, err)
	assert.Empty(t, pins)
}

func TestAttachFileCreatesCompanionMessage(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice")
	group := env.seedGroup(t, alice, "study")

	fileDTO, msgDTO, err := env.messages.AttachFile(alice.ID, &models.GroupFile{
		GroupID:          group.ID,
		OriginalFilename: "notes.pdf",
		StoredKey:        "key.pdf",
		ContentType:      "application/pdf",
		Size:             42,
	})
	require.NoError(t, err)

	assert.Equal(t, models.MsgTypeFile, msgDTO.MsgType)
	assert.Equal(t, "notes.pdf", msgDTO.Content)
	assert.Equal(t, msgDTO.ID, fileDTO.MessageID)
	require.NotNil(t, msgDTO.FileID)
	assert.Equal(t, fileDTO.ID, *msgDTO.FileID)

	events := env.broadcaster.eventsFor(GroupDestination(group.ID))
	require.Len(t, events, 1)

	// 伴随消息出现在群组消息列表里
	messages, err := env.messages.ListGroupMessages(group.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, models.MsgTypeFile, messages[0].MsgType)
}

func TestListGroupMessagesAscending(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice")
	group := env.seedGroup(t, alice, "study")

	for _, content := range []string{"one", "two", "three"} {
		_, err := env.messages.Send(alice.ID, &SendMessageRequest{
			GroupID: group.ID, Content: content,
		})
		require.NoError(t, err)
	}

	messages, err := env.messages.ListGroupMessages(group.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "one", messages[0].Content)
	assert.Equal(t, "three", messages[2].Content)
}
