package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/color-party/internal/config"
	"go.uber.org/zap"
)

// SequenceGameTestSuite 序列游戏测试套件
type SequenceGameTestSuite struct {
	suite.Suite
	cfg config.SequenceConfig
}

func (suite *SequenceGameTestSuite) SetupTest() {
	suite.cfg = config.SequenceConfig{
		InitialTimeout: 10 * time.Second,
		TimeoutStep:    500 * time.Millisecond,
		MinTimeout:     3 * time.Second,
		ShowDuration:   2 * time.Second,
	}
}

// newGame 创建固定种子的序列游戏
func (suite *SequenceGameTestSuite) newGame(players ...string) *SequenceGame {
	return NewSequenceGame("TEST01", players, NewGenerator(42), suite.cfg, zap.NewNop())
}

// replay 让玩家按序列正确复述完本回合
func (suite *SequenceGameTestSuite) replay(g *SequenceGame, playerID string) {
	seq := g.Sequence()
	for i, c := range seq {
		result := g.HandleInput(playerID, c, i)
		assert.True(suite.T(), result.Accepted)
		if i == len(seq)-1 {
			assert.True(suite.T(), result.Completed)
		}
	}
}

// TestSequenceGame_InitialState 测试初始状态
func (suite *SequenceGameTestSuite) TestSequenceGame_InitialState() {
	g := suite.newGame("p1", "p2")

	assert.Equal(suite.T(), ModeSequence, g.Mode())
	assert.Equal(suite.T(), PhaseShowingSequence, g.Phase())
	assert.Equal(suite.T(), 1, g.Round())
	assert.Len(suite.T(), g.Sequence(), 1)
	assert.Equal(suite.T(), 10*time.Second, g.Timeout())
	assert.Equal(suite.T(), 2, g.PlayingCount())
	assert.False(suite.T(), g.Finished())
}

// TestSequenceGame_CorrectReplay 测试正确复述推进到下一回合
func (suite *SequenceGameTestSuite) TestSequenceGame_CorrectReplay() {
	g := suite.newGame("p1", "p2")
	assert.NoError(suite.T(), g.OpenInput())

	suite.replay(g, "p1")
	suite.replay(g, "p2")
	assert.True(suite.T(), g.RoundComplete())

	outcome, err := g.ResolveRound(false)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), outcome.Finished)
	assert.Equal(suite.T(), 2, outcome.NextRound)

	// 序列加一，前缀不变，时限递减，进度清零
	assert.Equal(suite.T(), 2, g.Round())
	assert.Len(suite.T(), g.Sequence(), 2)
	assert.Equal(suite.T(), 9500*time.Millisecond, g.Timeout())
	assert.Equal(suite.T(), PhaseShowingSequence, g.Phase())

	ps, _ := g.PlayerState("p1")
	assert.Equal(suite.T(), 0, ps.ProgressIndex)
}

// TestSequenceGame_SequencePrefixStable 测试跨回合序列前缀不变
func (suite *SequenceGameTestSuite) TestSequenceGame_SequencePrefixStable() {
	g := suite.newGame("p1")

	prev := g.Sequence()
	for round := 1; round < 5; round++ {
		assert.NoError(suite.T(), g.OpenInput())
		suite.replay(g, "p1")
		_, err := g.ResolveRound(false)
		assert.NoError(suite.T(), err)

		cur := g.Sequence()
		assert.Len(suite.T(), cur, round+1)
		assert.Equal(suite.T(), prev, cur[:len(prev)], "回合%d序列前缀变化", round+1)
		prev = cur
	}
}

// TestSequenceGame_WrongColorEliminates 测试答错颜色立即淘汰
func (suite *SequenceGameTestSuite) TestSequenceGame_WrongColorEliminates() {
	g := suite.newGame("p1", "p2")
	assert.NoError(suite.T(), g.OpenInput())

	correct := g.Sequence()[0]
	var wrong Color
	for _, c := range Colors {
		if c != correct {
			wrong = c
			break
		}
	}

	result := g.HandleInput("p1", wrong, 0)
	assert.False(suite.T(), result.Accepted)
	assert.True(suite.T(), result.Eliminated)
	assert.Equal(suite.T(), ReasonWrongColor, result.Reason)

	ps, _ := g.PlayerState("p1")
	assert.Equal(suite.T(), StatusEliminated, ps.Status)
	assert.Equal(suite.T(), 1, ps.EliminatedAtRound)

	// 淘汰后输入被静默忽略
	again := g.HandleInput("p1", correct, 0)
	assert.False(suite.T(), again.Accepted)
	assert.False(suite.T(), again.Eliminated)
}

// TestSequenceGame_OutOfOrderInputIgnored 测试乱序和重复输入静默忽略
func (suite *SequenceGameTestSuite) TestSequenceGame_OutOfOrderInputIgnored() {
	g := suite.newGame("p1", "p2")
	assert.NoError(suite.T(), g.OpenInput())

	correct := g.Sequence()[0]

	// 超前的index
	result := g.HandleInput("p1", correct, 5)
	assert.False(suite.T(), result.Accepted)
	assert.False(suite.T(), result.Eliminated)

	// 正常推进
	result = g.HandleInput("p1", correct, 0)
	assert.True(suite.T(), result.Accepted)

	// 重复提交同一index（值错也不淘汰）
	result = g.HandleInput("p1", correct, 0)
	assert.False(suite.T(), result.Accepted)
	assert.False(suite.T(), result.Eliminated)

	ps, _ := g.PlayerState("p1")
	assert.Equal(suite.T(), StatusPlaying, ps.Status)
	assert.Equal(suite.T(), 1, ps.ProgressIndex)
}

// TestSequenceGame_InputOutsidePhaseIgnored 测试非输入阶段的提交被丢弃
func (suite *SequenceGameTestSuite) TestSequenceGame_InputOutsidePhaseIgnored() {
	g := suite.newGame("p1", "p2")

	// 展示阶段的提交
	result := g.HandleInput("p1", g.Sequence()[0], 0)
	assert.False(suite.T(), result.Accepted)
	assert.False(suite.T(), result.Eliminated)
}

// TestSequenceGame_TimeoutEliminatesLaggards 测试超时淘汰未完成玩家
func (suite *SequenceGameTestSuite) TestSequenceGame_TimeoutEliminatesLaggards() {
	g := suite.newGame("p1", "p2", "p3")
	assert.NoError(suite.T(), g.OpenInput())

	// 只有p1完成
	suite.replay(g, "p1")

	outcome, err := g.ResolveRound(true)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), outcome.Eliminated, 2)
	for _, e := range outcome.Eliminated {
		assert.Equal(suite.T(), ReasonTimeout, e.Reason)
		assert.Equal(suite.T(), 1, e.Round)
	}

	// 只剩p1在局，游戏结束，p1获胜
	assert.True(suite.T(), outcome.Finished)
	assert.Equal(suite.T(), "p1", outcome.WinnerID)
	assert.True(suite.T(), g.Finished())
	assert.Equal(suite.T(), "p1", g.WinnerID())
}

// TestSequenceGame_LastStandingWins 测试仅剩一人在局时立即获胜
func (suite *SequenceGameTestSuite) TestSequenceGame_LastStandingWins() {
	g := suite.newGame("p1", "p2")
	assert.NoError(suite.T(), g.OpenInput())

	correct := g.Sequence()[0]
	var wrong Color
	for _, c := range Colors {
		if c != correct {
			wrong = c
			break
		}
	}

	// p1答错被淘汰，p2完成，结算时只剩一人在局
	g.HandleInput("p1", wrong, 0)
	suite.replay(g, "p2")
	outcome, err := g.ResolveRound(false)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), outcome.Finished)
	assert.Equal(suite.T(), "p2", outcome.WinnerID)
}

// TestSequenceGame_AllEliminatedWinner 测试全员淘汰时取最后被淘汰者
func (suite *SequenceGameTestSuite) TestSequenceGame_AllEliminatedWinner() {
	g := suite.newGame("p1", "p2", "p3")
	assert.NoError(suite.T(), g.OpenInput())

	correct := g.Sequence()[0]
	var wrong Color
	for _, c := range Colors {
		if c != correct {
			wrong = c
			break
		}
	}

	// p1第1回合答错，p2和p3完成进入第2回合
	g.HandleInput("p1", wrong, 0)
	suite.replay(g, "p2")
	suite.replay(g, "p3")
	outcome, err := g.ResolveRound(false)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), outcome.Finished)

	// 第2回合p2和p3同时超时，全员淘汰
	// 淘汰回合最大者为p2/p3，同回合按加入顺序取p2
	assert.NoError(suite.T(), g.OpenInput())
	outcome, err = g.ResolveRound(true)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), outcome.Finished)
	assert.Equal(suite.T(), "p2", outcome.WinnerID)
}

// TestSequenceGame_SameRoundEliminationTieByJoinOrder 测试同回合全淘汰按加入顺序裁决
func (suite *SequenceGameTestSuite) TestSequenceGame_SameRoundEliminationTieByJoinOrder() {
	g := suite.newGame("p1", "p2")
	assert.NoError(suite.T(), g.OpenInput())

	// 双方都未完成，同回合超时淘汰
	outcome, err := g.ResolveRound(true)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), outcome.Finished)
	assert.Equal(suite.T(), "p1", outcome.WinnerID)
}

// TestSequenceGame_TimeoutFloor 测试时限递减到下限后不再降低
func (suite *SequenceGameTestSuite) TestSequenceGame_TimeoutFloor() {
	suite.cfg.InitialTimeout = 4 * time.Second
	suite.cfg.TimeoutStep = 1 * time.Second
	suite.cfg.MinTimeout = 3 * time.Second
	g := suite.newGame("p1")

	for i := 0; i < 4; i++ {
		assert.NoError(suite.T(), g.OpenInput())
		suite.replay(g, "p1")
		_, err := g.ResolveRound(false)
		assert.NoError(suite.T(), err)
	}

	assert.Equal(suite.T(), 3*time.Second, g.Timeout())
}

// TestSequenceGame_SinglePlayerContinues 测试单人房间持续到自己被淘汰
func (suite *SequenceGameTestSuite) TestSequenceGame_SinglePlayerContinues() {
	g := suite.newGame("p1")

	assert.NoError(suite.T(), g.OpenInput())
	suite.replay(g, "p1")
	outcome, err := g.ResolveRound(false)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), outcome.Finished, "单人房间完成回合后应继续")

	assert.NoError(suite.T(), g.OpenInput())
	outcome, err = g.ResolveRound(true)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), outcome.Finished)
	assert.Equal(suite.T(), "p1", outcome.WinnerID)
}

// TestSequenceGame_RemovePlayer 测试中途离开按超时淘汰
func (suite *SequenceGameTestSuite) TestSequenceGame_RemovePlayer() {
	g := suite.newGame("p1", "p2", "p3")

	g.RemovePlayer("p2")
	ps, _ := g.PlayerState("p2")
	assert.Equal(suite.T(), StatusEliminated, ps.Status)
	assert.Equal(suite.T(), ReasonTimeout, ps.Reason)
	assert.Equal(suite.T(), 2, g.PlayingCount())

	// 重复移除是空操作
	g.RemovePlayer("p2")
	assert.Equal(suite.T(), 2, g.PlayingCount())
}

func TestSequenceGameTestSuite(t *testing.T) {
	suite.Run(t, new(SequenceGameTestSuite))
}
