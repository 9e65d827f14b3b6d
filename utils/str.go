package utils

import (
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// 取文件名前n个下划线分隔的字段作为ID，字段不足时取去扩展名的文件名
func GetTokenId(path string, n int) string {
	base := GetFilenameWithoutExt(path)
	tokens := strings.Split(base, "_")
	if len(tokens) < n {
		return base
	}
	return strings.Join(tokens[:n], "_")
}

// <id>_<row>_<col><ext>
func GetChipName(id string, row, col int, ext string) string {
	var b strings.Builder
	b.WriteString(id)
	b.WriteByte('_')
	b.WriteString(strconv.Itoa(row))
	b.WriteByte('_')
	b.WriteString(strconv.Itoa(col))
	b.WriteString(ext)
	return b.String()
}

// 标签名用于文件名前做NFC归一化，并替换路径分隔符及空白
func PurifyLabel(s string) string {
	s = strings.TrimSpace(norm.NFC.String(s))
	return strings.Map(func(r rune) rune {
		switch {
		case r == filepath.Separator, r == '/', r == '\\':
			return '-'
		case r == ' ', r == '\t', r == '\n':
			return '-'
		case r == 0:
			return -1
		}
		return r
	}, s)
}
