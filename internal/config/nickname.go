package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxNicknameLength is the longest nickname the server accepts, in characters.
const MaxNicknameLength = 10

// ErrInvalidNickname is returned for nicknames the server would reject.
var ErrInvalidNickname = errors.New("invalid nickname")

// NormalizeNickname trims and NFC-normalizes a nickname and checks its length.
func NormalizeNickname(s string) (string, error) {
	n := norm.NFC.String(strings.TrimSpace(s))
	if n == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidNickname)
	}
	if l := utf8.RuneCountInString(n); l > MaxNicknameLength {
		return "", fmt.Errorf("%w: %d characters, max %d", ErrInvalidNickname, l, MaxNicknameLength)
	}
	return n, nil
}
