package service

import (
	"github.com/wfunc/color-party/internal/game"
	"github.com/wfunc/color-party/internal/room"
)

// 对外广播的事件类型
const (
	EventRoomState        = "room_state"
	EventPlayerJoined     = "player_joined"
	EventPlayerLeft       = "player_left"
	EventHostChanged      = "host_changed"
	EventRoundStart       = "round_start"
	EventInputAccepted    = "input_accepted"
	EventPlayerEliminated = "player_eliminated"
	EventRoundResult      = "round_result"
	EventGameFinished     = "game_finished"
)

// 玩家离开原因
const (
	LeaveReasonQuit         = "quit"         // 主动退出
	LeaveReasonDisconnected = "disconnected" // 断线宽限期过期
)

// Broadcaster 房间广播接口，由传输层实现
type Broadcaster interface {
	SendToRoom(roomCode string, event string, payload interface{})
}

// PlayerJoinedEvent 玩家加入事件
type PlayerJoinedEvent struct {
	Player room.PlayerSummary `json:"player"`
	Room   room.Summary       `json:"room"`
}

// PlayerLeftEvent 玩家离开事件
type PlayerLeftEvent struct {
	PlayerID string `json:"player_id"`
	Reason   string `json:"reason"`
}

// HostChangedEvent 房主转移事件
type HostChangedEvent struct {
	NewHostID string `json:"new_host_id"`
}

// RoundStartEvent 回合开始事件
// 序列模式携带完整序列，反应模式携带单个目标颜色
type RoundStartEvent struct {
	Mode           game.Mode    `json:"mode"`
	Round          int          `json:"round"`
	Sequence       []game.Color `json:"sequence,omitempty"`
	Target         game.Color   `json:"target,omitempty"`
	TimeoutMs      int64        `json:"timeout_ms"`
	ShowDurationMs int64        `json:"show_duration_ms,omitempty"`
}

// InputAcceptedEvent 输入被接受事件
type InputAcceptedEvent struct {
	PlayerID string `json:"player_id"`
	Index    int    `json:"index"`
}

// PlayerEliminatedEvent 玩家淘汰事件
type PlayerEliminatedEvent struct {
	PlayerID string                 `json:"player_id"`
	Reason   game.EliminationReason `json:"reason"`
	Round    int                    `json:"round"`
}

// RoundResultEvent 回合结算事件
type RoundResultEvent struct {
	Mode        game.Mode      `json:"mode"`
	Round       int            `json:"round"`
	RoundWinner string         `json:"round_winner,omitempty"`
	Scores      map[string]int `json:"scores,omitempty"`
	NextRound   int            `json:"next_round,omitempty"`
}

// GameFinishedEvent 游戏结束事件
type GameFinishedEvent struct {
	Mode     game.Mode      `json:"mode"`
	WinnerID string         `json:"winner_id"`
	Rounds   int            `json:"rounds"`
	Scores   map[string]int `json:"scores,omitempty"`
}
