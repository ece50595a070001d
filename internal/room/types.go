package room

import (
	"sync"
	"time"

	"github.com/wfunc/color-party/internal/game"
)

// Status 房间状态
type Status string

const (
	StatusWaiting  Status = "waiting"  // 等待开始
	StatusActive   Status = "active"   // 游戏进行中
	StatusFinished Status = "finished" // 游戏已结束
)

// PlayerInfo 加入房间时提交的玩家信息
type PlayerInfo struct {
	DisplayName string `json:"display_name"`
	AvatarID    string `json:"avatar_id"`
}

// Player 房间内的玩家
type Player struct {
	ID             string    `json:"id"`
	DisplayName    string    `json:"display_name"`
	AvatarID       string    `json:"avatar_id"`
	IsHost         bool      `json:"is_host"`
	ConnectionID   string    `json:"-"`         // 当前连接ID，断线时为空
	Connected      bool      `json:"connected"` // 是否在线
	JoinedAt       time.Time `json:"-"`
	LastActivity   time.Time `json:"-"` // 重连或操作时刷新
	DisconnectedAt time.Time `json:"-"` // 最近一次断线时刻
}

// Room 游戏房间
// 不变式: 玩家数1~4；非空房间恰有一名房主；
// 字段由 mu 保护，外部统一通过 Registry.WithRoom 串行访问
type Room struct {
	mu sync.Mutex

	Code           string
	Players        []*Player // 加入顺序
	Status         Status
	Game           game.Game // 仅 Status == active 时非空
	LastActivityAt time.Time
	CreatedAt      time.Time

	closed bool // 已从注册表删除
}

// PlayerSummary 玩家信息快照
type PlayerSummary struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarID    string `json:"avatar_id"`
	IsHost      bool   `json:"is_host"`
	Connected   bool   `json:"connected"`
}

// Summary 房间信息快照，用于对外查询和广播
type Summary struct {
	Code        string          `json:"code"`
	Status      Status          `json:"status"`
	Players     []PlayerSummary `json:"players"`
	PlayerCount int             `json:"player_count"`
	CreatedAt   time.Time       `json:"created_at"`
}

// findPlayer 按ID查找玩家，要求已持有房间锁
func (r *Room) findPlayer(playerID string) *Player {
	for _, p := range r.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// FindPlayer 按ID查找玩家
func (r *Room) FindPlayer(playerID string) *Player {
	return r.findPlayer(playerID)
}

// Host 返回当前房主
func (r *Room) Host() *Player {
	for _, p := range r.Players {
		if p.IsHost {
			return p
		}
	}
	return nil
}

// PlayerOrder 返回按加入顺序排列的玩家ID
func (r *Room) PlayerOrder() []string {
	order := make([]string, 0, len(r.Players))
	for _, p := range r.Players {
		order = append(order, p.ID)
	}
	return order
}

// Touch 刷新房间活动时间
func (r *Room) Touch() {
	r.LastActivityAt = time.Now()
}

// Snapshot 生成房间快照，要求已持有房间锁
func (r *Room) Snapshot() Summary {
	players := make([]PlayerSummary, 0, len(r.Players))
	for _, p := range r.Players {
		players = append(players, PlayerSummary{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			AvatarID:    p.AvatarID,
			IsHost:      p.IsHost,
			Connected:   p.Connected,
		})
	}

	return Summary{
		Code:        r.Code,
		Status:      r.Status,
		Players:     players,
		PlayerCount: len(players),
		CreatedAt:   r.CreatedAt,
	}
}
