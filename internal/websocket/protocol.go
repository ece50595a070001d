package websocket

import (
	"encoding/json"

	"github.com/wfunc/color-party/internal/game"
)

// Message WebSocket消息
type Message struct {
	Type      string          `json:"type"`                // 消息类型
	Data      json.RawMessage `json:"data,omitempty"`      // 消息数据
	Timestamp int64           `json:"timestamp,omitempty"` // 时间戳
}

// MessageType 消息类型
const (
	// 系统消息
	MessageTypeConnected = "connected"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeError     = "error"

	// 房间消息
	MessageTypeCreateRoom = "create_room"
	MessageTypeJoinRoom   = "join_room"
	MessageTypeReconnect  = "reconnect"
	MessageTypeLeaveRoom  = "leave_room"

	// 游戏消息
	MessageTypeStartGame    = "start_game"
	MessageTypeSubmitInput  = "submit_input"
	MessageTypeSubmitAnswer = "submit_answer"
)

// CreateRoomRequest 创建房间请求
type CreateRoomRequest struct {
	DisplayName string `json:"display_name"`
	AvatarID    string `json:"avatar_id,omitempty"`
}

// JoinRoomRequest 加入房间请求
type JoinRoomRequest struct {
	RoomCode    string `json:"room_code"`
	DisplayName string `json:"display_name"`
	AvatarID    string `json:"avatar_id,omitempty"`
}

// ReconnectRequest 重连请求
type ReconnectRequest struct {
	RoomCode string `json:"room_code"`
	PlayerID string `json:"player_id"`
}

// StartGameRequest 开始游戏请求
type StartGameRequest struct {
	Mode game.Mode `json:"mode"`
}

// SubmitInputRequest 序列复述输入请求
type SubmitInputRequest struct {
	Value game.Color `json:"value"`
	Index int        `json:"index"`
}

// SubmitAnswerRequest 反应抢答请求
type SubmitAnswerRequest struct {
	Value game.Color `json:"value"`
}

// RoomBoundResponse 房间绑定响应（创建/加入/重连成功后下发）
type RoomBoundResponse struct {
	Event    string      `json:"event"`
	Room     interface{} `json:"room"`
	PlayerID string      `json:"player_id"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
