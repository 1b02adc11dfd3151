package processor

import "errors"

// SpamThreshold is the fixed decision boundary: a message is spam when its
// score is strictly greater than this value.
const SpamThreshold = 0.7

// ErrEmptyMessage is returned for empty or whitespace-only bodies.
var ErrEmptyMessage = errors.New("processor: empty message")

// Language guesses.
const (
	LanguageEnglish          = "english"
	LanguageLikelyNonEnglish = "likely_non_english"
)

// Sentiment labels.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Command is a recognized command invocation.
type Command struct {
	Name string `json:"name"`
	Args string `json:"args,omitempty"`
}

// Metadata is computed for every processed message.
type Metadata struct {
	Length     int    `json:"length"`
	WordCount  int    `json:"word_count"`
	Language   string `json:"language"`
	Sentiment  string `json:"sentiment"`
	Identified bool   `json:"identified"`
}

// Result is the outcome of processing one inbound body.
type Result struct {
	CleanedBody string   `json:"cleaned_body"`
	SpamScore   float64  `json:"spam_score"`
	IsSpam      bool     `json:"is_spam"`
	SpamSignals []string `json:"spam_signals,omitempty"`
	Command     *Command `json:"command,omitempty"`
	Metadata    Metadata `json:"metadata"`
}

// IsSpamScore applies the spam decision boundary.
func IsSpamScore(score float64) bool {
	return score > SpamThreshold
}
