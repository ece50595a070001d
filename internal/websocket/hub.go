package websocket

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// 错误定义
var (
	ErrClientNotFound = errors.New("客户端未找到")
	ErrSendBufferFull = errors.New("发送缓冲区已满")
)

// MessageHandler 客户端消息处理器
type MessageHandler interface {
	// HandleClientMessage 处理客户端消息
	HandleClientMessage(client *Client, data []byte)
	// HandleClientDisconnect 处理客户端断开
	HandleClientDisconnect(client *Client)
}

// Hub WebSocket连接管理中心
type Hub struct {
	// 客户端连接池
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 房间号到客户端的映射
	roomClients map[string]map[string]*Client
	roomMu      sync.RWMutex

	// 注册/注销通道
	register   chan *Client
	unregister chan *Client

	// 消息处理器
	messageHandler MessageHandler

	// 日志
	logger *zap.Logger
}

// NewHub 创建Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:     make(map[string]*Client),
		roomClients: make(map[string]map[string]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		logger:      logger,
	}
}

// SetMessageHandler 设置消息处理器
func (h *Hub) SetMessageHandler(handler MessageHandler) {
	h.messageHandler = handler
}

// Run 运行Hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

// registerClient 注册客户端
func (h *Hub) registerClient(client *Client) {
	h.clientsMu.Lock()
	h.clients[client.ID] = client
	h.clientsMu.Unlock()

	h.logger.Info("WebSocket客户端连接",
		zap.String("client_id", client.ID))

	// 发送连接成功消息
	msg := &Message{
		Type:      MessageTypeConnected,
		Timestamp: time.Now().Unix(),
		Data:      json.RawMessage(`{"message":"连接成功"}`),
	}
	h.SendToClient(client.ID, msg)
}

// unregisterClient 注销客户端
func (h *Hub) unregisterClient(client *Client) {
	h.clientsMu.Lock()
	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.Send)
	}
	h.clientsMu.Unlock()

	h.UnbindRoom(client)

	h.logger.Info("WebSocket客户端断开",
		zap.String("client_id", client.ID),
		zap.String("player_id", client.PlayerID),
		zap.String("room_code", client.RoomCode))

	if h.messageHandler != nil {
		h.messageHandler.HandleClientDisconnect(client)
	}
}

// BindRoom 将客户端绑定到房间
func (h *Hub) BindRoom(client *Client, roomCode, playerID string) {
	h.UnbindRoom(client)

	client.RoomCode = roomCode
	client.PlayerID = playerID

	h.roomMu.Lock()
	if _, ok := h.roomClients[roomCode]; !ok {
		h.roomClients[roomCode] = make(map[string]*Client)
	}
	h.roomClients[roomCode][client.ID] = client
	h.roomMu.Unlock()
}

// UnbindRoom 解除客户端的房间绑定
func (h *Hub) UnbindRoom(client *Client) {
	if client.RoomCode == "" {
		return
	}

	h.roomMu.Lock()
	if clients, ok := h.roomClients[client.RoomCode]; ok {
		delete(clients, client.ID)
		if len(clients) == 0 {
			delete(h.roomClients, client.RoomCode)
		}
	}
	h.roomMu.Unlock()
}

// SendToRoom 向房间内全部客户端广播事件
func (h *Hub) SendToRoom(roomCode, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("序列化房间事件失败",
			zap.String("room_code", roomCode),
			zap.String("event", event),
			zap.Error(err))
		return
	}

	msg := &Message{
		Type:      event,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("序列化消息失败", zap.Error(err))
		return
	}

	h.roomMu.RLock()
	clients := make([]*Client, 0, len(h.roomClients[roomCode]))
	for _, client := range h.roomClients[roomCode] {
		clients = append(clients, client)
	}
	h.roomMu.RUnlock()

	for _, client := range clients {
		select {
		case client.Send <- raw:
		default:
			// 发送缓冲区满，丢弃本条消息
			h.logger.Warn("客户端发送缓冲区满",
				zap.String("client_id", client.ID),
				zap.String("room_code", roomCode))
		}
	}
}

// SendToClient 发送消息给指定客户端
func (h *Hub) SendToClient(clientID string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.clientsMu.RLock()
	client, ok := h.clients[clientID]
	h.clientsMu.RUnlock()

	if !ok {
		return ErrClientNotFound
	}

	select {
	case client.Send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// ClientCount 返回当前连接数
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// RoomClientCount 返回房间内连接数
func (h *Hub) RoomClientCount(roomCode string) int {
	h.roomMu.RLock()
	defer h.roomMu.RUnlock()
	return len(h.roomClients[roomCode])
}
