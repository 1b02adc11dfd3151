package processor

import (
	"strings"
	"unicode"
)

// defaultAbbreviations are expanded on whole words only.
var defaultAbbreviations = map[string]string{
	"u":    "you",
	"r":    "are",
	"2":    "to",
	"4":    "for",
	"ur":   "your",
	"pls":  "please",
	"plz":  "please",
	"thx":  "thanks",
	"b4":   "before",
	"msg":  "message",
	"tmrw": "tomorrow",
	"idk":  "I don't know",
	"btw":  "by the way",
}

const trailingPunctuation = ".,!?;:"

// Clean collapses whitespace runs, trims, and expands abbreviations on
// whole-word boundaries. Trailing punctuation on a word is preserved.
func Clean(body string, abbreviations map[string]string) string {
	words := strings.Fields(body)
	if len(abbreviations) == 0 {
		return strings.Join(words, " ")
	}
	for i, word := range words {
		core := strings.TrimRight(word, trailingPunctuation)
		if core == "" {
			continue
		}
		if expanded, ok := abbreviations[strings.ToLower(core)]; ok {
			words[i] = expanded + word[len(core):]
		}
	}
	return strings.Join(words, " ")
}

var positiveWords = map[string]struct{}{
	"good": {}, "great": {}, "thanks": {}, "thank": {}, "love": {}, "awesome": {},
	"happy": {}, "excellent": {}, "nice": {}, "perfect": {}, "appreciate": {}, "wonderful": {},
}

var negativeWords = map[string]struct{}{
	"bad": {}, "terrible": {}, "hate": {}, "awful": {}, "angry": {}, "sad": {},
	"problem": {}, "wrong": {}, "broken": {}, "worst": {}, "annoyed": {}, "upset": {},
}

func sentiment(words []string) string {
	pos, neg := 0, 0
	for _, w := range words {
		w = strings.ToLower(strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) }))
		if _, ok := positiveWords[w]; ok {
			pos++
		}
		if _, ok := negativeWords[w]; ok {
			neg++
		}
	}
	switch {
	case pos > neg:
		return SentimentPositive
	case neg > pos:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

func language(text string) string {
	for _, r := range text {
		if r > unicode.MaxASCII && unicode.IsLetter(r) {
			return LanguageLikelyNonEnglish
		}
	}
	return LanguageEnglish
}
