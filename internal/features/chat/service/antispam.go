package service

import (
	"regexp"
	"strings"
	"unicode"

	apperrors "github.com/Haiikyu/reveelbox-sub002/internal/common/errors"
)

const (
	maxIdenticalRepeats   = 3
	maxConsecutiveRunes   = 10
	maxConsecutiveUpper   = 20
	maxURLLikeSubstrings  = 3
	recentHistoryMessages = 10
)

var urlLikePattern = regexp.MustCompile(`(?i)(https?://|www\.)\S*`)

// sanitizeContent trims the content and strips ASCII control bytes
// (0x00-0x08, 0x0B-0x0C, 0x0E-0x1F, 0x7F). Tab, LF and CR survive.
func sanitizeContent(content string) string {
	content = strings.TrimSpace(content)
	var b strings.Builder
	b.Grow(len(content))
	for _, r := range content {
		if r == 0x7F {
			continue
		}
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// checkSpam applies the content heuristics. recent is the sender's latest
// message history, newest first. Heuristics are independent of rate limiting.
func checkSpam(content string, recent []string) error {
	identical := 0
	for _, prev := range recent {
		if prev == content {
			identical++
		}
	}
	// This message would be the Nth identical copy.
	if identical+1 >= maxIdenticalRepeats {
		return apperrors.NewSpamDetectedError("repeated identical content")
	}

	run := 0
	var last rune
	for i, r := range content {
		if i > 0 && r == last {
			run++
		} else {
			run = 1
		}
		if run >= maxConsecutiveRunes {
			return apperrors.NewSpamDetectedError("excessive character repetition")
		}
		last = r
	}

	upper := 0
	for _, r := range content {
		if unicode.IsUpper(r) {
			upper++
			if upper >= maxConsecutiveUpper {
				return apperrors.NewSpamDetectedError("excessive uppercase")
			}
		} else {
			upper = 0
		}
	}

	if len(urlLikePattern.FindAllStringIndex(content, -1)) >= maxURLLikeSubstrings {
		return apperrors.NewSpamDetectedError("too many links")
	}

	return nil
}
