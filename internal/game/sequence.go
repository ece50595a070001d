package game

import (
	"time"

	"github.com/wfunc/color-party/internal/config"
	"go.uber.org/zap"
)

// SequencePlayerState 序列模式的玩家状态
type SequencePlayerState struct {
	PlayerID          string            `json:"player_id"`
	Status            PlayerStatus      `json:"status"`
	ProgressIndex     int               `json:"progress_index"`       // 本回合已正确推进到的位置
	EliminatedAtRound int               `json:"eliminated_at_round"`  // 被淘汰的回合号（0表示未淘汰）
	Reason            EliminationReason `json:"reason,omitempty"`     // 淘汰原因
	joinIndex         int               // 加入顺序，用于同回合淘汰的裁决
}

// SequenceGame 序列记忆游戏状态
// 不变式: len(sequence) == round；任何玩家的 ProgressIndex 不超过 len(sequence)
// 由所在房间的锁串行访问，内部不再加锁
type SequenceGame struct {
	phase    *PhaseMachine
	roomCode string
	round    int
	sequence []Color
	timeout  time.Duration
	players  map[string]*SequencePlayerState
	order    []string // 加入顺序
	winnerID string
	gen      *Generator
	cfg      config.SequenceConfig
	logger   *zap.Logger
}

// NewSequenceGame 创建序列游戏，回合1的序列立即生成
func NewSequenceGame(roomCode string, playerOrder []string, gen *Generator, cfg config.SequenceConfig, logger *zap.Logger) *SequenceGame {
	g := &SequenceGame{
		phase:    NewPhaseMachine(roomCode, PhaseShowingSequence, sequenceTransitions(), logger),
		roomCode: roomCode,
		round:    1,
		sequence: gen.GenerateSequence(1),
		timeout:  cfg.InitialTimeout,
		players:  make(map[string]*SequencePlayerState, len(playerOrder)),
		order:    append([]string(nil), playerOrder...),
		gen:      gen,
		cfg:      cfg,
		logger:   logger,
	}

	for i, id := range playerOrder {
		g.players[id] = &SequencePlayerState{
			PlayerID:  id,
			Status:    StatusPlaying,
			joinIndex: i,
		}
	}

	return g
}

// Mode 返回游戏模式
func (g *SequenceGame) Mode() Mode { return ModeSequence }

// Phase 返回当前阶段
func (g *SequenceGame) Phase() Phase { return g.phase.Current() }

// Round 返回当前回合号
func (g *SequenceGame) Round() int { return g.round }

// Finished 游戏是否已结束
func (g *SequenceGame) Finished() bool { return g.phase.Current() == PhaseFinished }

// WinnerID 返回胜者ID
func (g *SequenceGame) WinnerID() string { return g.winnerID }

// Sequence 返回当前序列的副本
func (g *SequenceGame) Sequence() []Color {
	return append([]Color(nil), g.sequence...)
}

// Timeout 返回当前回合的输入时限
func (g *SequenceGame) Timeout() time.Duration { return g.timeout }

// PlayerState 返回指定玩家的状态
func (g *SequenceGame) PlayerState(playerID string) (*SequencePlayerState, bool) {
	ps, ok := g.players[playerID]
	return ps, ok
}

// PlayerStates 返回全部玩家状态快照（按加入顺序）
func (g *SequenceGame) PlayerStates() []SequencePlayerState {
	states := make([]SequencePlayerState, 0, len(g.order))
	for _, id := range g.order {
		if ps, ok := g.players[id]; ok {
			states = append(states, *ps)
		}
	}
	return states
}

// PlayingCount 返回仍在游戏中的玩家数
func (g *SequenceGame) PlayingCount() int {
	count := 0
	for _, ps := range g.players {
		if ps.Status == StatusPlaying {
			count++
		}
	}
	return count
}

// ActiveCount 返回本回合需要答题的玩家数
func (g *SequenceGame) ActiveCount() int { return g.PlayingCount() }

// OpenInput 开放本回合输入
func (g *SequenceGame) OpenInput() error {
	return g.phase.Trigger(EventInputOpen)
}

// HandleInput 处理玩家的序列输入
// 仅当 index 等于玩家当前进度且颜色与序列匹配时接受；
// 重复或乱序的提交静默忽略，答错立即淘汰
func (g *SequenceGame) HandleInput(playerID string, value Color, index int) *InputResult {
	// 非输入阶段的提交视为过期提交，静默丢弃
	if g.phase.Current() != PhasePlayerInput {
		return &InputResult{}
	}

	ps, ok := g.players[playerID]
	if !ok || ps.Status != StatusPlaying {
		return &InputResult{}
	}

	// 已完成本回合的玩家不再接受输入
	if ps.ProgressIndex >= len(g.sequence) {
		return &InputResult{}
	}

	// 乱序或重复提交作为空操作忽略，客户端进度失步可自愈
	if index != ps.ProgressIndex {
		g.logger.Debug("忽略乱序输入",
			zap.String("room_code", g.roomCode),
			zap.String("player_id", playerID),
			zap.Int("index", index),
			zap.Int("progress", ps.ProgressIndex))
		return &InputResult{}
	}

	// 答错颜色，立即淘汰
	if value != g.sequence[index] {
		g.eliminate(ps, ReasonWrongColor)
		return &InputResult{
			Eliminated: true,
			Reason:     ReasonWrongColor,
			Index:      index,
		}
	}

	// 接受输入，推进进度
	ps.ProgressIndex++

	return &InputResult{
		Accepted:  true,
		Completed: ps.ProgressIndex == len(g.sequence),
		Index:     index,
	}
}

// eliminate 淘汰玩家
func (g *SequenceGame) eliminate(ps *SequencePlayerState, reason EliminationReason) {
	ps.Status = StatusEliminated
	ps.EliminatedAtRound = g.round
	ps.Reason = reason

	g.logger.Info("玩家被淘汰",
		zap.String("room_code", g.roomCode),
		zap.String("player_id", ps.PlayerID),
		zap.Int("round", g.round),
		zap.String("reason", string(reason)))
}

// RoundComplete 本回合是否已被所有在局玩家完成
func (g *SequenceGame) RoundComplete() bool {
	playing := 0
	for _, ps := range g.players {
		if ps.Status != StatusPlaying {
			continue
		}
		playing++
		if ps.ProgressIndex < len(g.sequence) {
			return false
		}
	}
	return playing > 0
}

// ShouldFinish 游戏是否满足结束条件
// 在局玩家降到1人及以下即结束；单人房间只有玩家被淘汰才结束
func (g *SequenceGame) ShouldFinish() bool {
	playing := g.PlayingCount()
	if playing == 0 {
		return true
	}
	return playing == 1 && len(g.players) > 1
}

// ResolveRound 结算当前回合
// timedOut 为真时，所有未完成的在局玩家按超时淘汰；
// 未结束则扩展序列进入下一回合，回合时限递减到下限为止
func (g *SequenceGame) ResolveRound(timedOut bool) (*RoundOutcome, error) {
	outcome := &RoundOutcome{Round: g.round}

	if timedOut {
		for _, id := range g.order {
			ps := g.players[id]
			if ps.Status == StatusPlaying && ps.ProgressIndex < len(g.sequence) {
				g.eliminate(ps, ReasonTimeout)
				outcome.Eliminated = append(outcome.Eliminated, Elimination{
					PlayerID: ps.PlayerID,
					Reason:   ReasonTimeout,
					Round:    g.round,
				})
			}
		}
	}

	if err := g.phase.Trigger(EventRoundDone); err != nil {
		return nil, err
	}

	if g.ShouldFinish() {
		g.winnerID = g.resolveWinner()
		outcome.Finished = true
		outcome.WinnerID = g.winnerID
		if err := g.phase.Trigger(EventGameOver); err != nil {
			return nil, err
		}

		g.logger.Info("游戏结束",
			zap.String("room_code", g.roomCode),
			zap.Int("round", g.round),
			zap.String("winner_id", g.winnerID))

		return outcome, nil
	}

	// 进入下一回合：序列加一、时限递减、进度清零
	g.sequence = g.gen.ExtendSequence(g.sequence)
	g.round++
	g.timeout = g.timeout - g.cfg.TimeoutStep
	if g.timeout < g.cfg.MinTimeout {
		g.timeout = g.cfg.MinTimeout
	}
	for _, ps := range g.players {
		if ps.Status == StatusPlaying {
			ps.ProgressIndex = 0
		}
	}

	outcome.NextRound = g.round
	if err := g.phase.Trigger(EventNextRound); err != nil {
		return nil, err
	}

	return outcome, nil
}

// resolveWinner 决出胜者
// 恰有一人在局时该玩家获胜；全部淘汰时取被淘汰回合最大者，
// 同回合淘汰按加入顺序取先者（固定策略，避免依赖遍历顺序）
func (g *SequenceGame) resolveWinner() string {
	var lastPlaying *SequencePlayerState
	for _, ps := range g.players {
		if ps.Status == StatusPlaying {
			lastPlaying = ps
		}
	}
	if lastPlaying != nil {
		return lastPlaying.PlayerID
	}

	var winner *SequencePlayerState
	for _, id := range g.order {
		ps := g.players[id]
		if winner == nil || ps.EliminatedAtRound > winner.EliminatedAtRound {
			winner = ps
		}
	}
	if winner == nil {
		return ""
	}
	return winner.PlayerID
}

// RemovePlayer 玩家离开房间
// 游戏中途离开按超时淘汰处理
func (g *SequenceGame) RemovePlayer(playerID string) {
	ps, ok := g.players[playerID]
	if !ok || ps.Status != StatusPlaying {
		return
	}
	g.eliminate(ps, ReasonTimeout)
}
