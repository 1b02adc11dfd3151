package processor

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Signal names reported in Result.SpamSignals.
const (
	SignalTriggerWords     = "trigger_words"
	SignalAllCaps          = "all_caps"
	SignalPunctuationBurst = "punctuation_burst"
	SignalLink             = "link"
)

// SpamPolicy holds the tunable constants of HeuristicScorer. Only
// SpamThreshold is a hard contract; everything here may be recalibrated.
type SpamPolicy struct {
	TriggerWords       []string           `yaml:"trigger_words"`
	Weights            map[string]float64 `yaml:"weights"`
	CapsRatioThreshold float64            `yaml:"caps_ratio_threshold"`
	CapsMinLetters     int                `yaml:"caps_min_letters"`
	PunctuationRun     int                `yaml:"punctuation_run"`
}

// DefaultSpamPolicy returns the built-in calibration. No single signal can
// push a message over the threshold on its own.
func DefaultSpamPolicy() SpamPolicy {
	return SpamPolicy{
		TriggerWords: []string{
			"free", "money", "cash", "click", "winner", "won", "prize",
			"limited time", "act now", "urgent", "offer", "guaranteed",
			"credit", "loan", "buy now", "discount", "deal", "claim",
			"unsubscribe", "bitcoin", "crypto",
		},
		Weights: map[string]float64{
			SignalTriggerWords:     0.4,
			SignalAllCaps:          0.3,
			SignalPunctuationBurst: 0.3,
			SignalLink:             0.2,
		},
		CapsRatioThreshold: 0.6,
		CapsMinLetters:     4,
		PunctuationRun:     3,
	}
}

// LoadSpamPolicy reads a YAML policy. Fields left out keep their defaults.
func LoadSpamPolicy(path string) (SpamPolicy, error) {
	policy := DefaultSpamPolicy()
	data, err := os.ReadFile(path)
	if err != nil {
		return policy, fmt.Errorf("processor: read spam policy: %w", err)
	}
	var override SpamPolicy
	if err := yaml.Unmarshal(data, &override); err != nil {
		return policy, fmt.Errorf("processor: decode spam policy: %w", err)
	}
	if len(override.TriggerWords) > 0 {
		policy.TriggerWords = override.TriggerWords
	}
	for name, weight := range override.Weights {
		policy.Weights[name] = weight
	}
	if override.CapsRatioThreshold > 0 {
		policy.CapsRatioThreshold = override.CapsRatioThreshold
	}
	if override.CapsMinLetters > 0 {
		policy.CapsMinLetters = override.CapsMinLetters
	}
	if override.PunctuationRun > 0 {
		policy.PunctuationRun = override.PunctuationRun
	}
	if err := policy.Validate(); err != nil {
		return DefaultSpamPolicy(), err
	}
	return policy, nil
}

// Validate rejects negative weights, which would let a firing signal lower
// the score.
func (p SpamPolicy) Validate() error {
	for name, weight := range p.Weights {
		if weight < 0 {
			return fmt.Errorf("processor: spam weight %q must not be negative", name)
		}
	}
	if p.CapsRatioThreshold <= 0 || p.CapsRatioThreshold > 1 {
		return fmt.Errorf("processor: caps ratio threshold %.2f out of range", p.CapsRatioThreshold)
	}
	if p.PunctuationRun < 2 {
		return fmt.Errorf("processor: punctuation run must be at least 2")
	}
	return nil
}
