package processor

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

// SpamVerdict is a scorer's judgement of one message.
type SpamVerdict struct {
	Score   float64
	Signals []string
}

// SpamScorer scores text in [0,1]. Implementations must be safe for
// concurrent use and deterministic for a given input.
type SpamScorer interface {
	Score(text string) SpamVerdict
}

var linkPattern = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+|\b[a-z0-9-]+\.(?:com|net|org|ly|io|co|xyz|info|biz)\b`)

// HeuristicScorer sums fixed weights for each independent signal that fires
// and caps the total at 1.0.
type HeuristicScorer struct {
	policy   SpamPolicy
	triggers *regexp.Regexp
}

// NewHeuristicScorer compiles policy into a scorer.
func NewHeuristicScorer(policy SpamPolicy) (*HeuristicScorer, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &HeuristicScorer{
		policy:   policy,
		triggers: compileTriggers(policy.TriggerWords),
	}, nil
}

// MustHeuristicScorer is NewHeuristicScorer that panics on an invalid policy.
func MustHeuristicScorer(policy SpamPolicy) *HeuristicScorer {
	s, err := NewHeuristicScorer(policy)
	if err != nil {
		panic(err)
	}
	return s
}

// Score implements SpamScorer.
func (s *HeuristicScorer) Score(text string) SpamVerdict {
	var signals []string
	if s.triggers != nil && s.triggers.MatchString(text) {
		signals = append(signals, SignalTriggerWords)
	}
	if s.shouting(text) {
		signals = append(signals, SignalAllCaps)
	}
	if s.punctuationBurst(text) {
		signals = append(signals, SignalPunctuationBurst)
	}
	if linkPattern.MatchString(text) {
		signals = append(signals, SignalLink)
	}
	return SpamVerdict{Score: s.total(signals), Signals: signals}
}

// total sums signal weights, rounds away float noise (0.4+0.3 must equal
// 0.7, not exceed it) and caps at 1.0.
func (s *HeuristicScorer) total(signals []string) float64 {
	score := 0.0
	for _, signal := range signals {
		score += s.policy.Weights[signal]
	}
	score = math.Round(score*1e4) / 1e4
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func (s *HeuristicScorer) shouting(text string) bool {
	letters, upper := 0, 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if letters < s.policy.CapsMinLetters {
		return false
	}
	return float64(upper)/float64(letters) > s.policy.CapsRatioThreshold
}

// punctuationBurst fires on one run of !/? at least PunctuationRun long, or
// on two or more shorter doubled runs.
func (s *HeuristicScorer) punctuationBurst(text string) bool {
	run, doubled := 0, 0
	flush := func() bool {
		if run >= s.policy.PunctuationRun {
			return true
		}
		if run >= 2 {
			doubled++
		}
		run = 0
		return doubled >= 2
	}
	for _, r := range text {
		if r == '!' || r == '?' {
			run++
			continue
		}
		if flush() {
			return true
		}
	}
	return flush()
}

func compileTriggers(words []string) *regexp.Regexp {
	alternatives := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(strings.ToLower(w))
		if w == "" {
			continue
		}
		parts := strings.Fields(w)
		for i, p := range parts {
			parts[i] = regexp.QuoteMeta(p)
		}
		alternatives = append(alternatives, strings.Join(parts, `\s+`))
	}
	if len(alternatives) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(alternatives, "|") + `)\b`)
}
