package db

import "strings"

// LikeEscapeChar must accompany every pattern built by EscapeLike: `LIKE ? ESCAPE '!'`.
const LikeEscapeChar = "!"

var likeEscaper = strings.NewReplacer(
	"!", "!!",
	"%", "!%",
	"_", "!_",
)

// EscapeLike quotes LIKE wildcards in s.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// PrefixPattern matches values starting with s literally.
func PrefixPattern(s string) string {
	return EscapeLike(s) + "%"
}

// ContainsPattern matches values containing s literally.
func ContainsPattern(s string) string {
	return "%" + EscapeLike(s) + "%"
}
