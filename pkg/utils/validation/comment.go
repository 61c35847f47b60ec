package validation

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

const MaxCommentLength = 1000

var (
	ErrCommentEmpty   = errors.New("comment cannot be empty")
	ErrCommentTooLong = errors.New("comment must be at most 1000 characters")
	ErrCommentSpecial = errors.New("comment contains unsupported characters")
)

const commentPunctuation = ".,!?'\"-:;()@#&/%+"

// ValidateComment trims the body and checks its length and character set.
// Letters of any script are allowed.
func ValidateComment(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", ErrCommentEmpty
	}
	if utf8.RuneCountInString(body) > MaxCommentLength {
		return "", ErrCommentTooLong
	}
	for _, r := range body {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r), unicode.IsMark(r):
		case strings.ContainsRune(commentPunctuation, r):
		default:
			return "", ErrCommentSpecial
		}
	}
	return body, nil
}
