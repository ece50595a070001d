package service

import (
	"sync"
	"time"

	"github.com/wfunc/color-party/internal/config"
	"github.com/wfunc/color-party/internal/errors"
	"github.com/wfunc/color-party/internal/game"
	"github.com/wfunc/color-party/internal/room"
	"go.uber.org/zap"
)

// GameService 游戏编排服务
// 把注册表、游戏状态机、回合协调器和广播串起来。
// 所有游戏状态的变更都走状态机的校验路径，本层不直接改分数或进度
type GameService struct {
	registry  *room.Registry
	presence  *room.PresenceSupervisor
	gen       *game.Generator
	cfg       *config.Config
	broadcast Broadcaster
	logger    *zap.Logger

	// 每个活跃房间一个回合协调器
	coordMu      sync.Mutex
	coordinators map[string]*game.RoundCoordinator
}

// NewGameService 创建游戏服务
func NewGameService(registry *room.Registry, cfg *config.Config, broadcast Broadcaster, logger *zap.Logger) *GameService {
	s := &GameService{
		registry:     registry,
		gen:          game.NewDefaultGenerator(),
		cfg:          cfg,
		broadcast:    broadcast,
		logger:       logger,
		coordinators: make(map[string]*game.RoundCoordinator),
	}

	s.presence = room.NewPresenceSupervisor(cfg.Room.GracePeriod, s.handleGraceExpired, logger)
	registry.OnRoomClosed(s.handleRoomClosed)

	return s
}

// Registry 返回房间注册表（用于只读查询）
func (s *GameService) Registry() *room.Registry {
	return s.registry
}

// SetGenerator 注入随机源（测试用）
func (s *GameService) SetGenerator(gen *game.Generator) {
	s.gen = gen
}

// CreateRoom 创建房间
func (s *GameService) CreateRoom(info room.PlayerInfo) (room.Summary, room.PlayerSummary, error) {
	return s.registry.CreateRoom(info)
}

// JoinRoom 加入房间并向房间广播
func (s *GameService) JoinRoom(code string, info room.PlayerInfo) (room.Summary, room.PlayerSummary, error) {
	summary, player, err := s.registry.JoinRoom(code, info)
	if err != nil {
		return summary, player, err
	}

	s.broadcast.SendToRoom(code, EventPlayerJoined, PlayerJoinedEvent{
		Player: player,
		Room:   summary,
	})

	return summary, player, nil
}

// AttachConnection 挂载连接
// 宽限期内的重连会取消移除定时器，游戏不受影响
func (s *GameService) AttachConnection(code, playerID, connectionID string) error {
	if err := s.registry.AttachConnection(code, playerID, connectionID); err != nil {
		return err
	}

	if s.presence.CancelGrace(code, playerID) {
		s.logger.Info("玩家宽限期内重连",
			zap.String("room_code", code),
			zap.String("player_id", playerID))
	}

	s.broadcastRoomState(code)
	return nil
}

// HandleDisconnect 处理断线：标记离线并启动宽限期，不移除玩家
func (s *GameService) HandleDisconnect(code, playerID string) {
	if err := s.registry.MarkDisconnected(code, playerID); err != nil {
		// 房间或玩家已不存在，无需处理
		return
	}

	s.presence.StartGrace(code, playerID)
	s.broadcastRoomState(code)
}

// LeaveRoom 玩家主动离开
func (s *GameService) LeaveRoom(code, playerID string) error {
	return s.removePlayer(code, playerID, LeaveReasonQuit)
}

// handleGraceExpired 宽限期过期，按离开路径移除玩家
func (s *GameService) handleGraceExpired(code, playerID string) {
	if err := s.removePlayer(code, playerID, LeaveReasonDisconnected); err != nil {
		s.logger.Debug("宽限期移除失败",
			zap.String("room_code", code),
			zap.String("player_id", playerID),
			zap.Error(err))
	}
}

// removePlayer 移除玩家的统一路径
// 游戏进行中先按超时处理游戏内状态，再移出席位；
// 触发房主转移或房间删除时一并广播
func (s *GameService) removePlayer(code, playerID, reason string) error {
	// 游戏中途离开，先处理游戏内淘汰/观战
	err := s.registry.WithRoom(code, func(rm *room.Room) error {
		if rm.Game == nil || rm.Game.Finished() {
			return nil
		}

		rm.Game.RemovePlayer(playerID)

		switch g := rm.Game.(type) {
		case *game.SequenceGame:
			if g.ShouldFinish() || g.RoundComplete() {
				return s.resolveSequenceRound(code, rm, g, false)
			}
		case *game.ReactionGame:
			if c := s.coordinator(code); c != nil && c.AllAnswered(g.Round(), g.ActiveCount()) {
				return s.resolveReactionRound(code, rm, g)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.presence.CancelGrace(code, playerID)

	result, err := s.registry.RemovePlayer(code, playerID)
	if err != nil {
		return err
	}
	if !result.Removed {
		return nil
	}

	if !result.RoomDeleted {
		s.broadcast.SendToRoom(code, EventPlayerLeft, PlayerLeftEvent{
			PlayerID: playerID,
			Reason:   reason,
		})
		if result.NewHostID != "" {
			s.broadcast.SendToRoom(code, EventHostChanged, HostChangedEvent{
				NewHostID: result.NewHostID,
			})
		}
		s.broadcastRoomState(code)
	}

	return nil
}

// StartGame 开始游戏
// 仅房主可发起，房间必须处于等待状态；
// 状态切到 active 后游戏从回合1开始
func (s *GameService) StartGame(code, playerID string, mode game.Mode) error {
	return s.registry.WithRoom(code, func(rm *room.Room) error {
		if rm.Status != room.StatusWaiting {
			return errors.New(errors.ErrGameAlreadyStarted, "房间号: "+code)
		}

		player := rm.FindPlayer(playerID)
		if player == nil {
			return errors.New(errors.ErrPlayerNotFound, "玩家ID: "+playerID)
		}
		if !player.IsHost {
			return errors.New(errors.ErrNotHost, "玩家ID: "+playerID)
		}

		order := rm.PlayerOrder()

		switch mode {
		case game.ModeSequence:
			g := game.NewSequenceGame(code, order, s.gen, s.cfg.Game.Sequence, s.logger)
			rm.Game = g
			rm.Status = room.StatusActive
			rm.Touch()
			return s.startSequenceRound(code, g)

		case game.ModeReaction:
			g := game.NewReactionGame(code, order, s.gen, s.cfg.Game.Reaction, s.logger)
			rm.Game = g
			rm.Status = room.StatusActive
			rm.Touch()
			return s.startReactionRound(code, g)

		default:
			return errors.New(errors.ErrInvalidGameMode, "模式: "+string(mode))
		}
	})
}

// startSequenceRound 广播回合开始并武装截止定时器
// 序列展示时间计入回合时限，服务端只持有一个截止点
func (s *GameService) startSequenceRound(code string, g *game.SequenceGame) error {
	show := s.cfg.Game.Sequence.ShowDuration
	timeout := g.Timeout()

	s.broadcast.SendToRoom(code, EventRoundStart, RoundStartEvent{
		Mode:           game.ModeSequence,
		Round:          g.Round(),
		Sequence:       g.Sequence(),
		TimeoutMs:      timeout.Milliseconds(),
		ShowDurationMs: show.Milliseconds(),
	})

	if err := g.OpenInput(); err != nil {
		return err
	}

	s.ensureCoordinator(code).ArmDeadline(g.Round(), show+timeout)
	return nil
}

// startReactionRound 广播目标颜色并武装截止定时器
func (s *GameService) startReactionRound(code string, g *game.ReactionGame) error {
	timeout := g.Timeout()

	s.broadcast.SendToRoom(code, EventRoundStart, RoundStartEvent{
		Mode:      game.ModeReaction,
		Round:     g.Round(),
		Target:    g.CurrentTarget(),
		TimeoutMs: timeout.Milliseconds(),
	})

	s.ensureCoordinator(code).ArmDeadline(g.Round(), timeout)
	return nil
}

// HandleSequenceInput 处理序列模式的玩家输入
// 输入按服务端接收顺序应用；过期和乱序提交是空操作，不是错误
func (s *GameService) HandleSequenceInput(code, playerID string, value game.Color, index int) error {
	return s.registry.WithRoom(code, func(rm *room.Room) error {
		g, ok := rm.Game.(*game.SequenceGame)
		if !ok || rm.Status != room.StatusActive {
			// 游戏未开始或已结束的提交静默丢弃
			return nil
		}

		res := g.HandleInput(playerID, value, index)
		rm.Touch()

		if res.Accepted {
			s.broadcast.SendToRoom(code, EventInputAccepted, InputAcceptedEvent{
				PlayerID: playerID,
				Index:    res.Index,
			})
		}
		if res.Eliminated {
			s.broadcast.SendToRoom(code, EventPlayerEliminated, PlayerEliminatedEvent{
				PlayerID: playerID,
				Reason:   res.Reason,
				Round:    g.Round(),
			})
		}

		// 全员完成或在局人数降到1人及以下时提前结算
		if g.ShouldFinish() || g.RoundComplete() {
			return s.resolveSequenceRound(code, rm, g, false)
		}

		return nil
	})
}

// HandleReactionAnswer 处理反应模式的答案
// 时间戳取服务端接收时刻，防止客户端上报时间作弊
func (s *GameService) HandleReactionAnswer(code, playerID string, value game.Color) error {
	receivedAt := time.Now()

	return s.registry.WithRoom(code, func(rm *room.Room) error {
		g, ok := rm.Game.(*game.ReactionGame)
		if !ok || rm.Status != room.StatusActive {
			return nil
		}
		if g.Phase() != game.PhaseShowingColor || !g.IsPlaying(playerID) {
			return nil
		}

		c := s.coordinator(code)
		if c == nil {
			return nil
		}

		if !c.RecordAnswer(g.Round(), game.PlayerAnswer{
			PlayerID:   playerID,
			Value:      value,
			ReceivedAt: receivedAt,
		}) {
			return nil
		}
		rm.Touch()

		// 全员作答后提前结算
		if c.AllAnswered(g.Round(), g.ActiveCount()) {
			return s.resolveReactionRound(code, rm, g)
		}

		return nil
	})
}

// handleDeadline 回合截止定时器回调
// 回合号已推进的过期触发是空操作，保证截止与迟到答案互斥
func (s *GameService) handleDeadline(code string, round int) {
	err := s.registry.WithRoom(code, func(rm *room.Room) error {
		if rm.Game == nil || rm.Game.Finished() {
			return nil
		}
		if rm.Game.Round() != round {
			return nil
		}

		switch g := rm.Game.(type) {
		case *game.SequenceGame:
			if g.Phase() != game.PhasePlayerInput {
				return nil
			}
			s.logger.Info("回合超时",
				zap.String("room_code", code),
				zap.Int("round", round))
			return s.resolveSequenceRound(code, rm, g, true)

		case *game.ReactionGame:
			if g.Phase() != game.PhaseShowingColor {
				return nil
			}
			s.logger.Info("回合超时",
				zap.String("room_code", code),
				zap.Int("round", round))
			return s.resolveReactionRound(code, rm, g)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("回合截止处理失败",
			zap.String("room_code", code),
			zap.Int("round", round),
			zap.Error(err))
	}
}

// resolveSequenceRound 结算序列回合，要求已持有房间锁
func (s *GameService) resolveSequenceRound(code string, rm *room.Room, g *game.SequenceGame, timedOut bool) error {
	if c := s.coordinator(code); c != nil {
		c.Cancel()
	}

	outcome, err := g.ResolveRound(timedOut)
	if err != nil {
		return err
	}

	for _, e := range outcome.Eliminated {
		s.broadcast.SendToRoom(code, EventPlayerEliminated, PlayerEliminatedEvent{
			PlayerID: e.PlayerID,
			Reason:   e.Reason,
			Round:    e.Round,
		})
	}

	s.broadcast.SendToRoom(code, EventRoundResult, RoundResultEvent{
		Mode:      game.ModeSequence,
		Round:     outcome.Round,
		NextRound: outcome.NextRound,
	})

	if outcome.Finished {
		return s.finishGame(code, rm, GameFinishedEvent{
			Mode:     game.ModeSequence,
			WinnerID: outcome.WinnerID,
			Rounds:   outcome.Round,
		})
	}

	return s.startSequenceRound(code, g)
}

// resolveReactionRound 结算反应回合，要求已持有房间锁
func (s *GameService) resolveReactionRound(code string, rm *room.Room, g *game.ReactionGame) error {
	var answers []game.PlayerAnswer
	if c := s.coordinator(code); c != nil {
		answers = c.DrainAnswers(g.Round())
		c.Cancel()
	}

	outcome, err := g.ResolveRound(answers)
	if err != nil {
		return err
	}

	s.broadcast.SendToRoom(code, EventRoundResult, RoundResultEvent{
		Mode:        game.ModeReaction,
		Round:       outcome.Round,
		RoundWinner: outcome.RoundWinner,
		Scores:      g.Scores(),
		NextRound:   outcome.NextRound,
	})

	if outcome.Finished {
		return s.finishGame(code, rm, GameFinishedEvent{
			Mode:     game.ModeReaction,
			WinnerID: outcome.WinnerID,
			Rounds:   outcome.Round,
			Scores:   g.Scores(),
		})
	}

	return s.startReactionRound(code, g)
}

// finishGame 游戏收尾：广播结果、状态切到 finished、释放协调器
func (s *GameService) finishGame(code string, rm *room.Room, event GameFinishedEvent) error {
	rm.Status = room.StatusFinished
	rm.Touch()

	s.broadcast.SendToRoom(code, EventGameFinished, event)
	s.dropCoordinator(code)

	return nil
}

// handleRoomClosed 房间被删除时释放相关资源
func (s *GameService) handleRoomClosed(code string) {
	s.dropCoordinator(code)
	s.presence.CancelRoom(code)
}

// broadcastRoomState 广播房间快照
func (s *GameService) broadcastRoomState(code string) {
	summary, err := s.registry.GetRoom(code)
	if err != nil {
		return
	}
	s.broadcast.SendToRoom(code, EventRoomState, summary)
}

// ensureCoordinator 获取或创建房间的回合协调器
func (s *GameService) ensureCoordinator(code string) *game.RoundCoordinator {
	s.coordMu.Lock()
	defer s.coordMu.Unlock()

	if c, exists := s.coordinators[code]; exists {
		return c
	}
	c := game.NewRoundCoordinator(code, s.handleDeadline, s.logger)
	s.coordinators[code] = c
	return c
}

// coordinator 获取房间的回合协调器
func (s *GameService) coordinator(code string) *game.RoundCoordinator {
	s.coordMu.Lock()
	defer s.coordMu.Unlock()
	return s.coordinators[code]
}

// dropCoordinator 取消并移除房间的回合协调器
func (s *GameService) dropCoordinator(code string) {
	s.coordMu.Lock()
	c, exists := s.coordinators[code]
	delete(s.coordinators, code)
	s.coordMu.Unlock()

	if exists {
		c.Cancel()
	}
}

// Stop 停止服务，释放全部定时器
func (s *GameService) Stop() {
	s.coordMu.Lock()
	for code, c := range s.coordinators {
		c.Cancel()
		delete(s.coordinators, code)
	}
	s.coordMu.Unlock()

	s.presence.Stop()
}
