package room

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/color-party/internal/config"
	"github.com/wfunc/color-party/internal/errors"
	"go.uber.org/zap"
)

// RemoveResult 移除玩家的结果
type RemoveResult struct {
	Removed     bool   // 玩家确实被移除
	RoomDeleted bool   // 房间因此被删除
	NewHostID   string // 房主转移后的新房主ID（未转移时为空）
}

// Registry 房间注册表
// 进程内唯一的跨请求共享结构。表锁只保护 code→Room 映射本身，
// 房间内容由各房间自己的锁保护：同一房间的操作串行，不同房间完全并行
type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]*Room
	codeGen *CodeGenerator
	cfg     config.RoomConfig
	logger  *zap.Logger

	// 房间被删除时的回调（取消定时器等），由服务层注入
	onRoomClosed func(code string)
}

// NewRegistry 创建房间注册表
func NewRegistry(cfg config.RoomConfig, logger *zap.Logger) *Registry {
	return &Registry{
		rooms:   make(map[string]*Room),
		codeGen: NewDefaultCodeGenerator(cfg.CodeLength),
		cfg:     cfg,
		logger:  logger,
	}
}

// OnRoomClosed 设置房间删除回调
func (r *Registry) OnRoomClosed(fn func(code string)) {
	r.onRoomClosed = fn
}

// CreateRoom 创建房间
// 分配唯一房间号（冲突重试，有上限），创建房主玩家；
// 连接在传输层握手完成后单独挂载，因此房主初始为离线状态
func (r *Registry) CreateRoom(info PlayerInfo) (Summary, PlayerSummary, error) {
	host := &Player{
		ID:           uuid.New().String(),
		DisplayName:  info.DisplayName,
		AvatarID:     info.AvatarID,
		IsHost:       true,
		Connected:    false,
		JoinedAt:     time.Now(),
		LastActivity: time.Now(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 0; attempt < r.cfg.MaxCodeAttempts; attempt++ {
		code := r.codeGen.Generate()
		if _, exists := r.rooms[code]; exists {
			continue
		}

		now := time.Now()
		newRoom := &Room{
			Code:           code,
			Players:        []*Player{host},
			Status:         StatusWaiting,
			LastActivityAt: now,
			CreatedAt:      now,
		}
		r.rooms[code] = newRoom

		r.logger.Info("创建房间",
			zap.String("room_code", code),
			zap.String("host_id", host.ID),
			zap.String("display_name", host.DisplayName))

		return newRoom.Snapshot(), PlayerSummary{
			ID:          host.ID,
			DisplayName: host.DisplayName,
			AvatarID:    host.AvatarID,
			IsHost:      true,
		}, nil
	}

	return Summary{}, PlayerSummary{}, errors.Newf(errors.ErrCodeGenerationExhausted,
		"连续%d次房间号冲突", r.cfg.MaxCodeAttempts)
}

// WithRoom 在持有房间锁的前提下执行fn
// 这是对注册表共享结构的按键串行访问接口：
// 同一房间号上的两个操作不可能交错
func (r *Registry) WithRoom(code string, fn func(*Room) error) error {
	r.mu.RLock()
	target, exists := r.rooms[code]
	r.mu.RUnlock()

	if !exists {
		return errors.New(errors.ErrRoomNotFound, "房间号: "+code)
	}

	target.mu.Lock()
	defer target.mu.Unlock()

	// 拿到锁之前房间可能已被删除
	if target.closed {
		return errors.New(errors.ErrRoomNotFound, "房间号: "+code)
	}

	return fn(target)
}

// GetRoom 获取房间快照
func (r *Registry) GetRoom(code string) (Summary, error) {
	var summary Summary
	err := r.WithRoom(code, func(rm *Room) error {
		summary = rm.Snapshot()
		return nil
	})
	return summary, err
}

// JoinRoom 加入房间
// 房间不存在、已满、游戏已开始时分别拒绝
func (r *Registry) JoinRoom(code string, info PlayerInfo) (Summary, PlayerSummary, error) {
	var summary Summary
	var joined PlayerSummary

	err := r.WithRoom(code, func(rm *Room) error {
		if len(rm.Players) >= r.cfg.MaxPlayers {
			return errors.Newf(errors.ErrRoomFull, "房间 %s 已有%d名玩家", code, len(rm.Players))
		}
		if rm.Status != StatusWaiting {
			return errors.New(errors.ErrGameInProgress, "房间号: "+code)
		}

		player := &Player{
			ID:           uuid.New().String(),
			DisplayName:  info.DisplayName,
			AvatarID:     info.AvatarID,
			IsHost:       false,
			Connected:    false,
			JoinedAt:     time.Now(),
			LastActivity: time.Now(),
		}
		rm.Players = append(rm.Players, player)
		rm.Touch()

		summary = rm.Snapshot()
		joined = PlayerSummary{
			ID:          player.ID,
			DisplayName: player.DisplayName,
			AvatarID:    player.AvatarID,
		}

		r.logger.Info("玩家加入房间",
			zap.String("room_code", code),
			zap.String("player_id", player.ID),
			zap.String("display_name", player.DisplayName),
			zap.Int("player_count", len(rm.Players)))

		return nil
	})

	return summary, joined, err
}

// AttachConnection 挂载玩家连接，标记在线
func (r *Registry) AttachConnection(code, playerID, connectionID string) error {
	return r.WithRoom(code, func(rm *Room) error {
		player := rm.findPlayer(playerID)
		if player == nil {
			return errors.New(errors.ErrPlayerNotFound, "玩家ID: "+playerID)
		}

		player.ConnectionID = connectionID
		player.Connected = true
		player.LastActivity = time.Now()
		rm.Touch()

		return nil
	})
}

// MarkDisconnected 标记玩家离线，清除连接但保留席位（见宽限期处理）
func (r *Registry) MarkDisconnected(code, playerID string) error {
	return r.WithRoom(code, func(rm *Room) error {
		player := rm.findPlayer(playerID)
		if player == nil {
			return errors.New(errors.ErrPlayerNotFound, "玩家ID: "+playerID)
		}

		player.ConnectionID = ""
		player.Connected = false
		player.DisconnectedAt = time.Now()
		rm.Touch()

		r.logger.Info("玩家断线",
			zap.String("room_code", code),
			zap.String("player_id", playerID))

		return nil
	})
}

// RemovePlayer 将玩家移出房间
// 被移除的是房主且还有其他人时，房主按加入顺序转移给下一位；
// 房间因此变空时整个房间被删除
func (r *Registry) RemovePlayer(code, playerID string) (RemoveResult, error) {
	var result RemoveResult

	err := r.WithRoom(code, func(rm *Room) error {
		index := -1
		for i, p := range rm.Players {
			if p.ID == playerID {
				index = i
				break
			}
		}
		if index < 0 {
			return nil
		}

		wasHost := rm.Players[index].IsHost
		rm.Players = append(rm.Players[:index], rm.Players[index+1:]...)
		result.Removed = true
		rm.Touch()

		if len(rm.Players) == 0 {
			rm.closed = true
			result.RoomDeleted = true
			return nil
		}

		if wasHost {
			next := rm.Players[0]
			next.IsHost = true
			result.NewHostID = next.ID

			r.logger.Info("房主转移",
				zap.String("room_code", code),
				zap.String("new_host_id", next.ID))
		}

		return nil
	})
	if err != nil {
		return result, err
	}

	if result.RoomDeleted {
		r.deleteRoom(code)
	}

	if result.Removed {
		r.logger.Info("玩家离开房间",
			zap.String("room_code", code),
			zap.String("player_id", playerID),
			zap.Bool("room_deleted", result.RoomDeleted))
	}

	return result, nil
}

// UpdateStatus 更新房间状态
func (r *Registry) UpdateStatus(code string, status Status) error {
	return r.WithRoom(code, func(rm *Room) error {
		rm.Status = status
		rm.Touch()
		return nil
	})
}

// RoomCount 返回当前存活的房间数
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// deleteRoom 从注册表删除房间并触发回调
func (r *Registry) deleteRoom(code string) {
	r.mu.Lock()
	delete(r.rooms, code)
	r.mu.Unlock()

	if r.onRoomClosed != nil {
		r.onRoomClosed(code)
	}

	r.logger.Info("删除房间", zap.String("room_code", code))
}

// CleanupIdleRooms 清理闲置房间，返回清理数量
// 清理条件：房间已空，或全部玩家断线超过宽限期，
// 或最后活动时间超过空闲上限。只清理可以无害移除的房间，
// 不会打断进行中的对局
func (r *Registry) CleanupIdleRooms() int {
	r.mu.RLock()
	codes := make([]string, 0, len(r.rooms))
	for code := range r.rooms {
		codes = append(codes, code)
	}
	r.mu.RUnlock()

	now := time.Now()
	removed := 0

	for _, code := range codes {
		shouldDelete := false

		err := r.WithRoom(code, func(rm *Room) error {
			if len(rm.Players) == 0 {
				shouldDelete = true
				rm.closed = true
				return nil
			}

			allDisconnected := true
			for _, p := range rm.Players {
				// 从未挂载过连接的玩家按加入时间计算
				since := p.DisconnectedAt
				if since.IsZero() {
					since = p.JoinedAt
				}
				if p.Connected || now.Sub(since) <= r.cfg.GracePeriod {
					allDisconnected = false
					break
				}
			}
			if allDisconnected {
				shouldDelete = true
				rm.closed = true
				return nil
			}

			if now.Sub(rm.LastActivityAt) > r.cfg.IdleTimeout {
				shouldDelete = true
				rm.closed = true
			}
			return nil
		})
		if err != nil {
			continue
		}

		if shouldDelete {
			r.deleteRoom(code)
			removed++
		}
	}

	if removed > 0 {
		r.logger.Info("清理闲置房间", zap.Int("removed", removed))
	}

	return removed
}

// StartCleanupTask 启动周期清理任务
func (r *Registry) StartCleanupTask(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				r.logger.Info("停止房间清理任务")
				return
			case <-ticker.C:
				r.CleanupIdleRooms()
			}
		}
	}()
}
