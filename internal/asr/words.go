package asr

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Word is a whitespace-delimited run of tokens.
type Word struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// trailing punctuation glued to the preceding word even when the tokenizer
// emits it with a leading space
const appendPunct = "\"'.。,，!！?？:：”)]}、"

// languages written without spaces; each token is a word of its own
var unspacedLanguages = map[string]bool{
	"zh":  true,
	"ja":  true,
	"th":  true,
	"lo":  true,
	"my":  true,
	"yue": true,
}

// GroupWords folds a segment's tokens into words. A token beginning with
// whitespace opens a new word; everything else extends the current one, which
// also rebuilds multi-byte characters the tokenizer split across tokens.
// For languages without spaces every token becomes a word.
func GroupWords(tokens []Token, lang string) []Word {
	if unspacedLanguages[strings.ToLower(strings.TrimSpace(lang))] {
		return groupByToken(tokens)
	}
	var (
		words []Word
		cur   []byte
		start time.Duration
		end   time.Duration
		open  bool
	)
	flush := func() {
		if !open {
			return
		}
		text := strings.TrimSpace(strings.ToValidUTF8(string(cur), ""))
		if text != "" {
			words = append(words, Word{Text: text, Start: start, End: end})
		}
		cur = cur[:0]
		open = false
	}
	for _, t := range tokens {
		if t.Special || t.Text == "" {
			continue
		}
		if !open || (startsWithSpace(t.Text) && !isAppendPunct(t.Text)) {
			flush()
			start = t.Start
			open = true
		}
		cur = append(cur, t.Text...)
		end = t.End
	}
	flush()
	return words
}

// groupByToken emits one word per token, holding back tokens that end inside
// a multi-byte character until the rest arrives.
func groupByToken(tokens []Token) []Word {
	var (
		words []Word
		cur   []byte
		start time.Duration
		end   time.Duration
	)
	emit := func() {
		text := strings.TrimSpace(strings.ToValidUTF8(string(cur), ""))
		if text != "" {
			words = append(words, Word{Text: text, Start: start, End: end})
		}
		cur = cur[:0]
	}
	for _, t := range tokens {
		if t.Special || t.Text == "" {
			continue
		}
		if len(cur) == 0 {
			start = t.Start
		}
		cur = append(cur, t.Text...)
		end = t.End
		if utf8.Valid(cur) {
			emit()
		}
	}
	if len(cur) > 0 {
		emit()
	}
	return words
}

func startsWithSpace(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r != utf8.RuneError && unicode.IsSpace(r)
}

func isAppendPunct(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(appendPunct, r) {
			return false
		}
	}
	return true
}
