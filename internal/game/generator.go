package game

import (
	"math/rand"
	"sync"
	"time"
)

// Generator 颜色序列生成器
// 随机源通过构造注入，测试中可用固定种子获得确定性结果
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator 创建生成器
func NewGenerator(seed int64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// NewDefaultGenerator 创建以当前时间为种子的生成器
func NewDefaultGenerator() *Generator {
	return NewGenerator(time.Now().UnixNano())
}

// RandomColor 从四种颜色中均匀随机取一个
func (g *Generator) RandomColor() Color {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Colors[g.rng.Intn(len(Colors))]
}

// GenerateSequence 生成指定长度的随机颜色序列
func (g *Generator) GenerateSequence(length int) []Color {
	seq := make([]Color, 0, length)
	for i := 0; i < length; i++ {
		seq = append(seq, g.RandomColor())
	}
	return seq
}

// ExtendSequence 在序列末尾追加一个随机颜色
// 不改动前缀，调用方持有的旧序列保持不变
func (g *Generator) ExtendSequence(seq []Color) []Color {
	extended := make([]Color, len(seq), len(seq)+1)
	copy(extended, seq)
	return append(extended, g.RandomColor())
}
