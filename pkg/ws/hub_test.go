package ws

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(buffer int) *Client {
	return &Client{
		send:          make(chan *Envelope, buffer),
		subscriptions: make(map[string]bool),
	}
}

func TestPublishDeliversSynchronously(t *testing.T) {
	hub := NewHub(nil, "node-1", nil)
	client := newTestClient(4)
	hub.Register(client)
	hub.Subscribe("group/1", client)

	hub.Publish("group/1", "hello")

	// 本地投递在 Publish 返回前完成
	select {
	case envelope := <-client.send:
		assert.Equal(t, "group/1", envelope.Destination)
		assert.Equal(t, "hello", envelope.Payload)
	default:
		t.Fatal("expected envelope in send buffer")
	}
}

func TestPublishOnlyReachesSubscribers(t *testing.T) {
	hub := NewHub(nil, "node-1", nil)
	subscribed := newTestClient(4)
	other := newTestClient(4)
	hub.Register(subscribed)
	hub.Register(other)
	hub.Subscribe("group/1", subscribed)
	hub.Subscribe("group/2", other)

	hub.Publish("group/1", "only for group 1")

	assert.Len(t, subscribed.send, 1)
	assert.Empty(t, other.send)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub(nil, "node-1", nil)
	client := newTestClient(4)
	hub.Register(client)
	hub.Subscribe("user-queue/7", client)
	hub.Unsubscribe("user-queue/7", client)

	hub.Publish("user-queue/7", "gone")

	assert.Empty(t, client.send)
	assert.Zero(t, hub.SubscriberCount("user-queue/7"))
}

func TestUnsubscribeUnknownDestinationNoop(t *testing.T) {
	hub := NewHub(nil, "node-1", nil)
	client := newTestClient(4)
	hub.Register(client)

	hub.Unsubscribe("group/404", client)
}

func TestSlowClientDisconnected(t *testing.T) {
	hub := NewHub(nil, "node-1", nil)
	slow := newTestClient(1)
	hub.Register(slow)
	hub.Subscribe("group/1", slow)

	hub.Publish("group/1", "fills the buffer")
	hub.Publish("group/1", "overflows")

	// 缓冲区满的客户端被移除，通道被关闭
	_, open1 := <-slow.send
	require.True(t, open1)
	_, open2 := <-slow.send
	assert.False(t, open2)
	assert.Zero(t, hub.SubscriberCount("group/1"))
}

func TestRedisFanoutAcrossHubs(t *testing.T) {
	mr := miniredis.RunT(t)

	clientA := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	clientB := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	hubA := NewHub(clientA, "node-a", nil)
	hubB := NewHub(clientB, "node-b", nil)
	go hubA.Run()
	go hubB.Run()

	// 等订阅建立
	time.Sleep(100 * time.Millisecond)

	remote := newTestClient(4)
	hubB.Register(remote)
	hubB.Subscribe("group/1", remote)

	local := newTestClient(4)
	hubA.Register(local)
	hubA.Subscribe("group/1", local)

	hubA.Publish("group/1", "cross instance")

	// 本地同步收到
	require.Len(t, local.send, 1)

	// 远端经由 Redis 订阅收到
	require.Eventually(t, func() bool {
		return len(remote.send) == 1
	}, 2*time.Second, 10*time.Millisecond)

	envelope := <-remote.send
	assert.Equal(t, "group/1", envelope.Destination)
	assert.Equal(t, "cross instance", envelope.Payload)

	// 发布方不会从 Redis 重复收到自己的消息
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, local.send, 1)
}
