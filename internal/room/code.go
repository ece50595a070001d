package room

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

// 房间号字符集，排除易混淆字符 0 O 1 I L
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// CodeGenerator 房间号生成器
type CodeGenerator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	length int
}

// NewCodeGenerator 创建房间号生成器
func NewCodeGenerator(length int, seed int64) *CodeGenerator {
	if length <= 0 {
		length = 6
	}
	return &CodeGenerator{
		rng:    rand.New(rand.NewSource(seed)),
		length: length,
	}
}

// NewDefaultCodeGenerator 创建以当前时间为种子的房间号生成器
func NewDefaultCodeGenerator(length int) *CodeGenerator {
	return NewCodeGenerator(length, time.Now().UnixNano())
}

// Generate 生成一个房间号（不保证唯一，由注册表查重）
func (g *CodeGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var builder strings.Builder
	builder.Grow(g.length)
	for i := 0; i < g.length; i++ {
		builder.WriteByte(codeAlphabet[g.rng.Intn(len(codeAlphabet))])
	}
	return builder.String()
}
