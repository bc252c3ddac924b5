package provision

import (
	"strings"
	"unicode/utf8"
)

// BuildDescription собирает описание пира для firewall:
// "jdoe" + "Jane Q Doe" -> "jdoe-JDoe", "jdoe" + "Cher" -> "jdoe-Cher", пустое имя -> "jdoe".
// Пустые токены (лишние пробелы) пропускаются, инициал берётся первой руной.
func BuildDescription(username, realName string) string {
	names := strings.Fields(realName)
	switch len(names) {
	case 0:
		return username
	case 1:
		return username + "-" + names[0]
	default:
		first, _ := utf8.DecodeRuneInString(names[0])
		return username + "-" + string(first) + names[len(names)-1]
	}
}
