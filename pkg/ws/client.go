package ws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/studyhub-io/studyhub/internal/services"
	log "github.com/studyhub-io/studyhub/middleware/log"
	"github.com/studyhub-io/studyhub/pkg/mq"
)

const (
	writeWait      = 10 * time.Second    // 允许写入消息到对端的最大时间
	pongWait       = 60 * time.Second    // 允许读取下一个 pong 消息的最大时间
	pingPeriod     = (pongWait * 9) / 10 // 发送 ping 到对端的周期。必须小于 pongWait
	maxMessageSize = 16384               // 允许来自对端的最大消息大小
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// 客户端入站帧。Type 决定其余字段的含义：
//
//	auth        {token}
//	subscribe   {destination}
//	unsubscribe {destination}
//	send        {group_id, content, msg_type, reply_to_id}
type frame struct {
	Type        string `json:"type"`
	Token       string `json:"token,omitempty"`
	Destination string `json:"destination,omitempty"`
	GroupID     uint   `json:"group_id,omitempty"`
	Content     string `json:"content,omitempty"`
	MsgType     string `json:"msg_type,omitempty"`
	ReplyToID   int64  `json:"reply_to_id,omitempty"`
}

// Client 代表一个 WebSocket 连接客户端。连接建立后处于未认证状态，
// 必须先发 auth 帧；认证失败只回错误帧，不断开连接
type Client struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan *Envelope
	subscriptions map[string]bool

	userID        uint // 0 表示尚未认证
	authService   *services.AuthService
	groupService  *services.GroupService
	msgService    *services.MessageService
	kafkaProducer *mq.KafkaProducer
	logger        *log.Logger
}

func (c *Client) authenticated() bool {
	return c.userID != 0
}

func (c *Client) sendError(message string) {
	select {
	case c.send <- &Envelope{Destination: "error", Payload: gin.H{"error": message}}:
	default:
	}
}

func (c *Client) sendAck(kind string, fields gin.H) {
	payload := gin.H{"event": kind}
	for k, v := range fields {
		payload[k] = v
	}
	select {
	case c.send <- &Envelope{Destination: "ack", Payload: payload}:
	default:
	}
}

// readPump 泵送来自 WebSocket 连接的帧并分发处理
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) && c.logger != nil {
				c.logger.Warn("websocket read error: " + err.Error())
			}
			break
		}

		var f frame
		if err := json.Unmarshal(message, &f); err != nil {
			c.sendError("malformed frame")
			continue
		}

		switch f.Type {
		case "auth":
			c.handleAuth(&f)
		case "subscribe":
			c.handleSubscribe(&f)
		case "unsubscribe":
			c.handleUnsubscribe(&f)
		case "send":
			c.handleSend(&f)
		default:
			c.sendError("unknown frame type: " + f.Type)
		}
	}
}

func (c *Client) handleAuth(f *frame) {
	user, err := c.authService.Identify(f.Token)
	if err != nil {
		// 认证失败不断连，客户端可以换 token 重试
		c.sendError("authentication failed")
		return
	}
	c.userID = user.ID
	c.sendAck("authenticated", gin.H{"user_id": user.ID, "username": user.Username})
}

func (c *Client) handleSubscribe(f *frame) {
	if !c.authenticated() {
		c.sendError("authenticate first")
		return
	}

	var id uint64
	switch {
	case parseDestination(f.Destination, "user-queue/%d", &id):
		if uint(id) != c.userID {
			c.sendError("cannot subscribe to another user's queue")
			return
		}
	case parseDestination(f.Destination, "group/%d", &id):
		role, err := c.groupService.RoleOf(uint(id), c.userID)
		if err != nil {
			c.sendError("subscribe failed")
			return
		}
		if role == "" {
			c.sendError("not a member of this group")
			return
		}
	default:
		c.sendError("unknown destination: " + f.Destination)
		return
	}

	c.hub.Subscribe(f.Destination, c)
	c.sendAck("subscribed", gin.H{"destination": f.Destination})
}

func (c *Client) handleUnsubscribe(f *frame) {
	if !c.authenticated() {
		c.sendError("authenticate first")
		return
	}
	c.hub.Unsubscribe(f.Destination, c)
	c.sendAck("unsubscribed", gin.H{"destination": f.Destination})
}

func (c *Client) handleSend(f *frame) {
	if !c.authenticated() {
		c.sendError("authenticate first")
		return
	}

	req := &services.SendMessageRequest{
		GroupID:   f.GroupID,
		Content:   f.Content,
		MsgType:   f.MsgType,
		ReplyToID: f.ReplyToID,
	}

	// 配置了 Kafka 时消息先进队列，由消费者落库并广播；
	// 使用 GroupID 作为 Key，保证同一个群的消息在同一个 Partition，从而有序
	if c.kafkaProducer != nil {
		kafkaMsg := mq.InboundMessage{
			SenderID: c.userID,
			Request:  req,
		}
		if err := c.kafkaProducer.SendMessage(strconv.Itoa(int(f.GroupID)), kafkaMsg); err != nil {
			if c.logger != nil {
				c.logger.Error("kafka produce failed: " + err.Error())
			}
			c.sendError("message enqueue failed")
		}
		return
	}

	// 降级处理：没有 Kafka 时直接调用 Service，广播由 Service 完成
	if _, err := c.msgService.Send(c.userID, req); err != nil {
		c.sendError(err.Error())
	}
}

func parseDestination(destination, format string, id *uint64) bool {
	var v uint64
	n, err := fmt.Sscanf(destination, format, &v)
	if err != nil || n != 1 {
		return false
	}
	*id = v
	return true
}

// writePump 泵送来自 Hub 的信封到 WebSocket 连接
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case envelope, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			json.NewEncoder(w).Encode(envelope)

			// 合并队列中积压的其他信封
			n := len(c.send)
			for range n {
				json.NewEncoder(w).Encode(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs 处理 WebSocket 升级请求。认证在连接内通过 auth 帧完成，
// 所以这个路由不要求携带 HTTP 层的 token
func ServeWs(
	hub *Hub,
	authService *services.AuthService,
	groupService *services.GroupService,
	msgService *services.MessageService,
	kafkaProducer *mq.KafkaProducer,
	logger *log.Logger,
	c *gin.Context,
) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if logger != nil {
			logger.Error("websocket upgrade failed: " + err.Error())
		}
		return
	}

	client := &Client{
		hub:           hub,
		conn:          conn,
		send:          make(chan *Envelope, 256),
		subscriptions: make(map[string]bool),
		authService:   authService,
		groupService:  groupService,
		msgService:    msgService,
		kafkaProducer: kafkaProducer,
		logger:        logger,
	}
	hub.Register(client)
	go client.writePump()
	go client.readPump()
}
