package ws

import (
	"context"
	"encoding/json"
	"sync"

	redis "github.com/redis/go-redis/v9"

	log "github.com/studyhub-io/studyhub/middleware/log"
)

const (
	redisChannelName = "studyhub:broadcast"
)

// Hub 维护活跃的客户端连接，按目的地（group/{id}、user-queue/{id}）组织房间。
// Publish 对本地订阅者是同步扇出；配置了 Redis 时同时发布到 Redis 频道，
// 由其他实例的订阅协程投递给它们的本地连接
type Hub struct {
	// 注册的客户端
	clients map[*Client]bool

	// 目的地对应的客户端集合 destination -> Client -> bool
	rooms map[string]map[*Client]bool

	// 互斥锁，保护 map 的并发读写
	mu sync.RWMutex

	// 注销请求通道
	unregister chan *Client

	// Redis 客户端，用于跨实例广播
	redis *redis.Client

	// 节点标识，Redis 订阅时跳过自己发出的消息避免重复投递
	nodeID string

	logger *log.Logger
}

// Envelope 投递给客户端的消息信封，也是 Redis 频道上的载荷格式
type Envelope struct {
	Destination string `json:"destination"`
	Payload     any    `json:"payload"`
	Origin      string `json:"origin,omitempty"`
}

func NewHub(redisClient *redis.Client, nodeID string, logger *log.Logger) *Hub {
	return &Hub{
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		redis:      redisClient,
		nodeID:     nodeID,
		logger:     logger,
	}
}

// Run 处理注销请求并启动 Redis 订阅协程
func (h *Hub) Run() {
	if h.redis != nil {
		go h.subscribeToRedis()
	}

	for client := range h.unregister {
		h.removeClient(client)
	}
}

// Register 注册客户端连接
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
}

// Unregister 注销客户端并从所有房间移除
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	for destination := range client.subscriptions {
		if room, ok := h.rooms[destination]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, destination)
			}
		}
	}
}

// Subscribe 将客户端加入目的地房间
func (h *Hub) Subscribe(destination string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[destination]; !ok {
		h.rooms[destination] = make(map[*Client]bool)
	}
	h.rooms[destination][client] = true
	client.subscriptions[destination] = true
}

// Unsubscribe 将客户端移出目的地房间，未订阅时为 no-op
func (h *Hub) Unsubscribe(destination string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[destination]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, destination)
		}
	}
	delete(client.subscriptions, destination)
}

// Publish 把载荷投递给目的地的所有本地订阅者，并转发到 Redis 频道。
// 本地投递在调用内完成；发送缓冲区满的慢客户端被断开
func (h *Hub) Publish(destination string, payload any) {
	h.deliverLocal(&Envelope{Destination: destination, Payload: payload})

	if h.redis != nil {
		data, err := json.Marshal(&Envelope{
			Destination: destination,
			Payload:     payload,
			Origin:      h.nodeID,
		})
		if err != nil {
			return
		}
		if err := h.redis.Publish(context.Background(), redisChannelName, data).Err(); err != nil && h.logger != nil {
			h.logger.Error("redis publish failed: " + err.Error())
		}
	}
}

func (h *Hub) deliverLocal(envelope *Envelope) {
	h.mu.RLock()
	// 收集需要关闭的客户端，避免在 RLock 中修改 map
	var closedClients []*Client
	if clients, ok := h.rooms[envelope.Destination]; ok {
		for client := range clients {
			select {
			case client.send <- envelope:
			default:
				closedClients = append(closedClients, client)
			}
		}
	}
	h.mu.RUnlock()

	for _, client := range closedClients {
		h.removeClient(client)
		if client.conn != nil {
			client.conn.Close()
		}
	}
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.redis.Subscribe(ctx, redisChannelName)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for msg := range ch {
		var envelope Envelope
		if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
			continue
		}
		// 自己发出的消息在 Publish 里已经本地投递过了
		if envelope.Origin == h.nodeID {
			continue
		}
		h.deliverLocal(&envelope)
	}
}

// SubscriberCount 目的地当前的本地订阅者数量，监控与测试用
func (h *Hub) SubscriberCount(destination string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[destination])
}
