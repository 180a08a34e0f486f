package repository

import "strings"

// LikeEscape is the escape character used with ContainsPattern.
const LikeEscape = `\`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern builds a LIKE pattern matching s literally anywhere in a value.
func ContainsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
