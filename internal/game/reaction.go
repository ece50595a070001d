package game

import (
	"time"

	"github.com/wfunc/color-party/internal/config"
	"go.uber.org/zap"
)

// ReactionPlayerState 反应模式的玩家状态
type ReactionPlayerState struct {
	PlayerID  string       `json:"player_id"`
	Status    PlayerStatus `json:"status"`
	Score     int          `json:"score"`
	joinIndex int          // 加入顺序，用于同分裁决
}

// ReactionGame 颜色反应游戏状态
// 固定回合数，每回合最快答对目标颜色的玩家得1分，没有淘汰
// 由所在房间的锁串行访问，内部不再加锁
type ReactionGame struct {
	phase         *PhaseMachine
	roomCode      string
	round         int
	totalRounds   int
	currentTarget Color
	players       map[string]*ReactionPlayerState
	order         []string // 加入顺序
	roundWinner   string   // 当前回合胜者
	winnerID      string
	gen           *Generator
	cfg           config.ReactionConfig
	logger        *zap.Logger
}

// NewReactionGame 创建反应游戏，回合1的目标颜色立即生成
func NewReactionGame(roomCode string, playerOrder []string, gen *Generator, cfg config.ReactionConfig, logger *zap.Logger) *ReactionGame {
	g := &ReactionGame{
		phase:         NewPhaseMachine(roomCode, PhaseShowingColor, reactionTransitions(), logger),
		roomCode:      roomCode,
		round:         1,
		totalRounds:   cfg.TotalRounds,
		currentTarget: gen.RandomColor(),
		players:       make(map[string]*ReactionPlayerState, len(playerOrder)),
		order:         append([]string(nil), playerOrder...),
		gen:           gen,
		cfg:           cfg,
		logger:        logger,
	}

	for i, id := range playerOrder {
		g.players[id] = &ReactionPlayerState{
			PlayerID:  id,
			Status:    StatusPlaying,
			joinIndex: i,
		}
	}

	return g
}

// Mode 返回游戏模式
func (g *ReactionGame) Mode() Mode { return ModeReaction }

// Phase 返回当前阶段
func (g *ReactionGame) Phase() Phase { return g.phase.Current() }

// Round 返回当前回合号
func (g *ReactionGame) Round() int { return g.round }

// TotalRounds 返回固定回合数
func (g *ReactionGame) TotalRounds() int { return g.totalRounds }

// Finished 游戏是否已结束
func (g *ReactionGame) Finished() bool { return g.phase.Current() == PhaseFinished }

// WinnerID 返回胜者ID
func (g *ReactionGame) WinnerID() string { return g.winnerID }

// CurrentTarget 返回当前回合的目标颜色
func (g *ReactionGame) CurrentTarget() Color { return g.currentTarget }

// RoundWinner 返回上一次结算的回合胜者
func (g *ReactionGame) RoundWinner() string { return g.roundWinner }

// Timeout 返回每回合的答题时限
func (g *ReactionGame) Timeout() time.Duration { return g.cfg.RoundTimeout }

// IsPlaying 判断玩家是否仍在作答
func (g *ReactionGame) IsPlaying(playerID string) bool {
	ps, ok := g.players[playerID]
	return ok && ps.Status == StatusPlaying
}

// ActiveCount 返回本回合需要答题的玩家数
func (g *ReactionGame) ActiveCount() int {
	count := 0
	for _, ps := range g.players {
		if ps.Status == StatusPlaying {
			count++
		}
	}
	return count
}

// PlayerStates 返回全部玩家状态快照（按加入顺序）
func (g *ReactionGame) PlayerStates() []ReactionPlayerState {
	states := make([]ReactionPlayerState, 0, len(g.order))
	for _, id := range g.order {
		if ps, ok := g.players[id]; ok {
			states = append(states, *ps)
		}
	}
	return states
}

// Scores 返回玩家得分表
func (g *ReactionGame) Scores() map[string]int {
	scores := make(map[string]int, len(g.players))
	for id, ps := range g.players {
		scores[id] = ps.Score
	}
	return scores
}

// ResolveRound 结算当前回合
// 在答对目标颜色的答案中取服务端时间戳最早者得1分；
// 时间戳完全相同按加入顺序取先者（固定策略，避免依赖收集顺序）
func (g *ReactionGame) ResolveRound(answers []PlayerAnswer) (*RoundOutcome, error) {
	if err := g.phase.Trigger(EventRoundDone); err != nil {
		return nil, err
	}

	outcome := &RoundOutcome{Round: g.round}

	// 显式比较折叠求最小时间戳，而不是依赖集合顺序
	var best *PlayerAnswer
	var bestIndex int
	for i := range answers {
		ans := &answers[i]
		if ans.Value != g.currentTarget {
			continue
		}
		ps, ok := g.players[ans.PlayerID]
		if !ok || ps.Status != StatusPlaying {
			continue
		}
		if best == nil ||
			ans.ReceivedAt.Before(best.ReceivedAt) ||
			(ans.ReceivedAt.Equal(best.ReceivedAt) && ps.joinIndex < bestIndex) {
			best = ans
			bestIndex = ps.joinIndex
		}
	}

	g.roundWinner = ""
	if best != nil {
		ps := g.players[best.PlayerID]
		ps.Score++
		g.roundWinner = best.PlayerID
		outcome.RoundWinner = best.PlayerID

		g.logger.Info("回合胜者",
			zap.String("room_code", g.roomCode),
			zap.Int("round", g.round),
			zap.String("player_id", best.PlayerID),
			zap.Int("score", ps.Score))
	}

	if g.round >= g.totalRounds {
		g.winnerID = g.resolveWinner()
		outcome.Finished = true
		outcome.WinnerID = g.winnerID
		if err := g.phase.Trigger(EventGameOver); err != nil {
			return nil, err
		}

		g.logger.Info("游戏结束",
			zap.String("room_code", g.roomCode),
			zap.Int("rounds", g.totalRounds),
			zap.String("winner_id", g.winnerID))

		return outcome, nil
	}

	// 进入下一回合，生成新的目标颜色
	g.round++
	g.currentTarget = g.gen.RandomColor()
	outcome.NextRound = g.round
	if err := g.phase.Trigger(EventNextRound); err != nil {
		return nil, err
	}

	return outcome, nil
}

// resolveWinner 决出最终胜者：最高分，平分按加入顺序取先者
func (g *ReactionGame) resolveWinner() string {
	var winner *ReactionPlayerState
	for _, id := range g.order {
		ps := g.players[id]
		if winner == nil || ps.Score > winner.Score {
			winner = ps
		}
	}
	if winner == nil {
		return ""
	}
	return winner.PlayerID
}

// RemovePlayer 玩家离开房间，转为观战，不再参与计分
func (g *ReactionGame) RemovePlayer(playerID string) {
	ps, ok := g.players[playerID]
	if !ok || ps.Status != StatusPlaying {
		return
	}
	ps.Status = StatusSpectating

	g.logger.Info("玩家转为观战",
		zap.String("room_code", g.roomCode),
		zap.String("player_id", playerID),
		zap.Int("round", g.round))
}
