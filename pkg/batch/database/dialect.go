package database

import (
	"strconv"
	"strings"
)

// usesDollarPlaceholders は $1, $2 ... 形式のプレースホルダを使うデータベースタイプかどうかを返します。
func usesDollarPlaceholders(dbType string) bool {
	switch strings.ToLower(dbType) {
	case "postgres", "redshift":
		return true
	default:
		return false
	}
}

// Rebind は '?' プレースホルダで書かれたクエリを dbType に合わせて書き換えます。
// 文字列リテラル内の '?' は置換しません。
func Rebind(dbType, query string) string {
	if !usesDollarPlaceholders(dbType) || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inLiteral := false
	for _, r := range query {
		switch {
		case r == '\'':
			inLiteral = !inLiteral
			b.WriteRune(r)
		case r == '?' && !inLiteral:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
