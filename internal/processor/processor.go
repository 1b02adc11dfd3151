// Package processor cleans, scores and classifies inbound message text.
package processor

import (
	"strings"
	"unicode/utf8"

	"github.com/wolfman30/sms-router/internal/identity"
)

// Processor is stateless after construction and safe for concurrent use.
type Processor struct {
	scorer        SpamScorer
	parser        CommandParser
	abbreviations map[string]string
}

// Option customizes a Processor.
type Option func(*Processor)

// WithScorer swaps the spam classifier.
func WithScorer(s SpamScorer) Option {
	return func(p *Processor) {
		if s != nil {
			p.scorer = s
		}
	}
}

// WithParser swaps the command grammar.
func WithParser(c CommandParser) Option {
	return func(p *Processor) {
		if c != nil {
			p.parser = c
		}
	}
}

// WithAbbreviations replaces the expansion table. An empty table disables expansion.
func WithAbbreviations(table map[string]string) Option {
	return func(p *Processor) {
		p.abbreviations = table
	}
}

// New builds a Processor with the default heuristic scorer and prefix parser.
func New(opts ...Option) *Processor {
	p := &Processor{
		scorer:        MustHeuristicScorer(DefaultSpamPolicy()),
		parser:        NewPrefixParser(),
		abbreviations: defaultAbbreviations,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process classifies body. user may be nil for anonymous senders.
func (p *Processor) Process(body string, user *identity.UserIdentity) (Result, error) {
	if strings.TrimSpace(body) == "" {
		return Result{}, ErrEmptyMessage
	}

	// Spam is scored before abbreviation expansion so casing and
	// punctuation are judged as the sender wrote them.
	collapsed := strings.Join(strings.Fields(body), " ")
	verdict := p.scorer.Score(collapsed)
	score := clampScore(verdict.Score)

	cleaned := Clean(body, p.abbreviations)
	words := strings.Fields(cleaned)

	return Result{
		CleanedBody: cleaned,
		SpamScore:   score,
		IsSpam:      IsSpamScore(score),
		SpamSignals: verdict.Signals,
		Command:     p.parser.Parse(cleaned),
		Metadata: Metadata{
			Length:     utf8.RuneCountInString(cleaned),
			WordCount:  len(words),
			Language:   language(cleaned),
			Sentiment:  sentiment(words),
			Identified: user != nil,
		},
	}, nil
}

func clampScore(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}
