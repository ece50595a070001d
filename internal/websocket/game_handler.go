package websocket

import (
	"encoding/json"
	"errors"

	apperrors "github.com/wfunc/color-party/internal/errors"
	"github.com/wfunc/color-party/internal/room"
	"github.com/wfunc/color-party/internal/service"
	"go.uber.org/zap"
)

// GameMessageHandler WebSocket游戏消息处理器
type GameMessageHandler struct {
	hub         *Hub
	gameService *service.GameService
	logger      *zap.Logger
}

// NewGameMessageHandler 创建游戏消息处理器
func NewGameMessageHandler(hub *Hub, gameService *service.GameService, logger *zap.Logger) *GameMessageHandler {
	return &GameMessageHandler{
		hub:         hub,
		gameService: gameService,
		logger:      logger,
	}
}

// HandleClientMessage 处理客户端消息
func (h *GameMessageHandler) HandleClientMessage(client *Client, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		h.logger.Error("解析消息失败",
			zap.String("client_id", client.ID),
			zap.Error(err))
		h.sendError(client, apperrors.New(apperrors.ErrMessageFormat, "消息格式错误"))
		client.Close()
		return
	}

	// 验证消息类型不为空
	if msg.Type == "" {
		h.logger.Warn("收到空消息类型",
			zap.String("client_id", client.ID))
		h.sendError(client, apperrors.New(apperrors.ErrMessageFormat, "消息类型不能为空"))
		client.Close()
		return
	}

	h.logger.Debug("收到WebSocket消息",
		zap.String("client_id", client.ID),
		zap.String("type", msg.Type),
		zap.String("player_id", client.PlayerID))

	// 根据消息类型处理
	switch msg.Type {
	case MessageTypePing:
		h.handlePing(client)

	case MessageTypePong:
		// 客户端响应ping

	case MessageTypeCreateRoom:
		h.handleCreateRoom(client, &msg)

	case MessageTypeJoinRoom:
		h.handleJoinRoom(client, &msg)

	case MessageTypeReconnect:
		h.handleReconnect(client, &msg)

	case MessageTypeLeaveRoom:
		h.handleLeaveRoom(client)

	case MessageTypeStartGame:
		h.handleStartGame(client, &msg)

	case MessageTypeSubmitInput:
		h.handleSubmitInput(client, &msg)

	case MessageTypeSubmitAnswer:
		h.handleSubmitAnswer(client, &msg)

	default:
		h.logger.Warn("收到不支持的消息类型",
			zap.String("client_id", client.ID),
			zap.String("type", msg.Type))
		h.sendError(client, apperrors.Newf(apperrors.ErrMessageFormat, "不支持的消息类型: %s", msg.Type))
	}
}

// HandleClientDisconnect 处理客户端断开
func (h *GameMessageHandler) HandleClientDisconnect(client *Client) {
	if client.RoomCode == "" || client.PlayerID == "" {
		return
	}
	h.gameService.HandleDisconnect(client.RoomCode, client.PlayerID)
}

// handlePing 响应心跳
func (h *GameMessageHandler) handlePing(client *Client) {
	client.SendMessage(MessageTypePong, map[string]interface{}{})
}

// handleCreateRoom 创建房间
func (h *GameMessageHandler) handleCreateRoom(client *Client, msg *Message) {
	var req CreateRoomRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		h.sendError(client, apperrors.New(apperrors.ErrMessageFormat, "创建房间参数错误"))
		return
	}
	if req.DisplayName == "" {
		h.sendError(client, apperrors.New(apperrors.ErrMessageFormat, "昵称不能为空"))
		return
	}
	if client.RoomCode != "" {
		h.sendError(client, apperrors.New(apperrors.ErrMessageFormat, "已在房间中"))
		return
	}

	summary, player, err := h.gameService.CreateRoom(room.PlayerInfo{
		DisplayName: req.DisplayName,
		AvatarID:    req.AvatarID,
	})
	if err != nil {
		h.sendError(client, err)
		return
	}

	h.bindAndAck(client, summary, player.ID, "room_created")
}

// handleJoinRoom 加入房间
func (h *GameMessageHandler) handleJoinRoom(client *Client, msg *Message) {
	var req JoinRoomRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		h.sendError(client, apperrors.New(apperrors.ErrMessageFormat, "加入房间参数错误"))
		return
	}
	if req.RoomCode == "" || req.DisplayName == "" {
		h.sendError(client, apperrors.New(apperrors.ErrMessageFormat, "房间号和昵称不能为空"))
		return
	}
	if client.RoomCode != "" {
		h.sendError(client, apperrors.New(apperrors.ErrMessageFormat, "已在房间中"))
		return
	}

	summary, player, err := h.gameService.JoinRoom(req.RoomCode, room.PlayerInfo{
		DisplayName: req.DisplayName,
		AvatarID:    req.AvatarID,
	})
	if err != nil {
		h.sendError(client, err)
		return
	}

	h.bindAndAck(client, summary, player.ID, "room_joined")
}

// handleReconnect 重连房间
func (h *GameMessageHandler) handleReconnect(client *Client, msg *Message) {
	var req ReconnectRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		h.sendError(client, apperrors.New(apperrors.ErrMessageFormat, "重连参数错误"))
		return
	}

	summary, err := h.gameService.Registry().GetRoom(req.RoomCode)
	if err != nil {
		h.sendError(client, err)
		return
	}

	h.hub.BindRoom(client, req.RoomCode, req.PlayerID)
	if err := h.gameService.AttachConnection(req.RoomCode, req.PlayerID, client.ID); err != nil {
		h.hub.UnbindRoom(client)
		client.RoomCode = ""
		client.PlayerID = ""
		h.sendError(client, err)
		return
	}

	client.SendMessage("room_rejoined", RoomBoundResponse{
		Event:    "room_rejoined",
		Room:     summary,
		PlayerID: req.PlayerID,
	})
}

// handleLeaveRoom 主动退出房间
func (h *GameMessageHandler) handleLeaveRoom(client *Client) {
	if client.RoomCode == "" {
		h.sendError(client, apperrors.New(apperrors.ErrMessageFormat, "不在任何房间中"))
		return
	}

	code, playerID := client.RoomCode, client.PlayerID
	h.hub.UnbindRoom(client)
	client.RoomCode = ""
	client.PlayerID = ""

	if err := h.gameService.LeaveRoom(code, playerID); err != nil {
		h.logger.Warn("退出房间失败",
			zap.String("room_code", code),
			zap.String("player_id", playerID),
			zap.Error(err))
	}
	client.SendMessage("room_left", map[string]string{"room_code": code})
}

// handleStartGame 房主开始游戏
func (h *GameMessageHandler) handleStartGame(client *Client, msg *Message) {
	var req StartGameRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		h.sendError(client, apperrors.New(apperrors.ErrMessageFormat, "开始游戏参数错误"))
		return
	}
	if client.RoomCode == "" {
		h.sendError(client, apperrors.New(apperrors.ErrMessageFormat, "不在任何房间中"))
		return
	}

	if err := h.gameService.StartGame(client.RoomCode, client.PlayerID, req.Mode); err != nil {
		h.sendError(client, err)
	}
}

// handleSubmitInput 序列复述输入
func (h *GameMessageHandler) handleSubmitInput(client *Client, msg *Message) {
	var req SubmitInputRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		h.sendError(client, apperrors.New(apperrors.ErrMessageFormat, "输入参数错误"))
		return
	}
	if client.RoomCode == "" {
		h.sendError(client, apperrors.New(apperrors.ErrMessageFormat, "不在任何房间中"))
		return
	}

	if err := h.gameService.HandleSequenceInput(client.RoomCode, client.PlayerID, req.Value, req.Index); err != nil {
		h.sendError(client, err)
	}
}

// handleSubmitAnswer 反应抢答
func (h *GameMessageHandler) handleSubmitAnswer(client *Client, msg *Message) {
	var req SubmitAnswerRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		h.sendError(client, apperrors.New(apperrors.ErrMessageFormat, "抢答参数错误"))
		return
	}
	if client.RoomCode == "" {
		h.sendError(client, apperrors.New(apperrors.ErrMessageFormat, "不在任何房间中"))
		return
	}

	if err := h.gameService.HandleReactionAnswer(client.RoomCode, client.PlayerID, req.Value); err != nil {
		h.sendError(client, err)
	}
}

// bindAndAck 绑定房间并下发成功响应
func (h *GameMessageHandler) bindAndAck(client *Client, summary room.Summary, playerID, event string) {
	h.hub.BindRoom(client, summary.Code, playerID)
	if err := h.gameService.AttachConnection(summary.Code, playerID, client.ID); err != nil {
		h.logger.Error("绑定连接失败",
			zap.String("room_code", summary.Code),
			zap.String("player_id", playerID),
			zap.Error(err))
	}

	client.SendMessage(event, RoomBoundResponse{
		Event:    event,
		Room:     summary,
		PlayerID: playerID,
	})
}

// sendError 发送错误消息
func (h *GameMessageHandler) sendError(client *Client, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Wrap(err, apperrors.ErrUnknown)
	}

	client.SendMessage(MessageTypeError, ErrorResponse{
		Code:    int(appErr.Code),
		Message: appErr.Message,
	})
}

var _ service.Broadcaster = (*Hub)(nil)
