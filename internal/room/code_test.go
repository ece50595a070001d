package room

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestCodeGenerator_Length 测试房间号长度
func TestCodeGenerator_Length(t *testing.T) {
	gen := NewCodeGenerator(6, 42)

	for i := 0; i < 20; i++ {
		assert.Len(t, gen.Generate(), 6)
	}
}

// TestCodeGenerator_Alphabet 测试房间号不含易混淆字符
func TestCodeGenerator_Alphabet(t *testing.T) {
	gen := NewCodeGenerator(6, 42)

	for i := 0; i < 200; i++ {
		code := gen.Generate()
		for _, ch := range code {
			assert.Contains(t, codeAlphabet, string(ch))
		}
		// 0 O 1 I L 被排除
		assert.NotContains(t, code, "0")
		assert.NotContains(t, code, "O")
		assert.NotContains(t, code, "1")
		assert.NotContains(t, code, "I")
		assert.NotContains(t, code, "L")
	}
}

// TestCodeGenerator_Deterministic 测试相同种子产生相同房间号
func TestCodeGenerator_Deterministic(t *testing.T) {
	a := NewCodeGenerator(6, 7)
	b := NewCodeGenerator(6, 7)

	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Generate(), b.Generate())
	}
}

// TestCodeGenerator_UppercaseOnly 测试房间号全为大写字母或数字
func TestCodeGenerator_UppercaseOnly(t *testing.T) {
	gen := NewCodeGenerator(6, 42)

	code := gen.Generate()
	assert.Equal(t, strings.ToUpper(code), code)
}
