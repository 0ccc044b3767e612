// Package mood scores free text on a 1 (crisis) to 10 (excellent) scale
// using an ordered table of keyword tiers.
package mood

import (
	"fmt"
	"regexp"
	"strings"
)

// Score bounds
const (
	MinScore     = 1
	MaxScore     = 10
	NeutralScore = 5
)

// TierDef declares one severity tier. Each group is a regexp alternation
// matched case-insensitively on word boundaries.
type TierDef struct {
	Score  int
	Name   string
	Groups []string
}

// DefaultTiers is evaluated from most severe to most positive; the first
// tier with any matching group decides the score.
var DefaultTiers = []TierDef{
	{Score: 1, Name: "crisis", Groups: []string{
		`suicide|suicidal|kill myself|killing myself|end my life|want to die|going to die|overdose|jump off|hang(?:ing)? myself`,
		`raped|rape|sexual(?:ly)? assault(?:ed)?|molested|abused sexually`,
		`self[- ]?harm(?:ing)?|cut(?:ting)? myself|hurt(?:ing)? myself|burn(?:ing)? myself`,
		`can'?t take it anymore|don'?t want to live|no reason to live|can'?t go on`,
	}},
	{Score: 2, Name: "severe_distress", Groups: []string{
		`depressed|depression`,
		`hopeless|worthless|no hope|pointless|meaningless`,
		`give up|giving up|lost all hope`,
		`abuse|abused|abusive|domestic violence|violence|attacked|assault(?:ed)?`,
		`trauma|traumatic|traumatized|ptsd|flashbacks?|nightmares?`,
	}},
	{Score: 3, Name: "high_distress", Groups: []string{
		`terrible|awful|horrible|worst day|worst time|unbearable`,
		`hate myself|hate my life|hate everything`,
		`panic attacks?|severe anxiety|breakdown|breaking down`,
		`crying|sobbing|can'?t stop crying`,
	}},
	{Score: 4, Name: "moderate_distress", Groups: []string{
		`(?:very|really|so|extremely) (?:stressed|anxious)`,
		`worried|overthinking|can'?t sleep|insomnia`,
		`overwhelmed|too much|can'?t handle|can'?t cope`,
		`exhausted|burned out|burnt out|drained|worn out`,
	}},
	{Score: 5, Name: "mild_concern", Groups: []string{
		`stressed|stressful|anxious|nervous|uneasy`,
		`not (?:feeling )?(?:good|great|okay|ok|fine|well)`,
		`sad|down|blue|unhappy|low`,
		`lonely|alone|isolated|empty`,
		`bad day|rough day|tough day|struggling`,
		`tired|fatigued|weary`,
	}},
	{Score: 6, Name: "neutral", Groups: []string{
		`okay|ok|fine|alright|so-so`,
		`managing|coping|hanging in|getting by`,
		`meh|whatever|decent|not bad`,
	}},
	{Score: 7, Name: "improving", Groups: []string{
		`better|improved|improving`,
		`relieved|calmer|calm|peaceful`,
		`helped|helps|helping`,
	}},
	{Score: 8, Name: "good", Groups: []string{
		`good|great|wonderful|nice`,
		`happy|joyful|cheerful|content`,
		`excited|energized|motivated`,
		`pleased|satisfied|grateful|thankful|thanks?`,
	}},
	{Score: 9, Name: "very_good", Groups: []string{
		`amazing|awesome|fantastic|excellent`,
		`love|loving life|best day|brilliant`,
		`elated|ecstatic|overjoyed`,
	}},
	{Score: 10, Name: "excellent", Groups: []string{
		`perfect|incredible|phenomenal|outstanding`,
		`blessed|thriving|living my best|on top of the world`,
	}},
}

type tier struct {
	score    int
	name     string
	patterns []*regexp.Regexp
}

// Classifier maps text to a mood score. It is immutable and safe for
// concurrent use.
type Classifier struct {
	tiers []tier
}

// apostrophes normalizes typographic quotes so "can’t" matches "can't"
var apostrophes = strings.NewReplacer("’", "'", "‘", "'", "`", "'")

// New compiles a tier table. Tiers must be in strictly ascending score order
// within [MinScore, MaxScore].
func New(defs []TierDef) (*Classifier, error) {
	c := &Classifier{tiers: make([]tier, 0, len(defs))}
	prev := MinScore - 1
	for _, def := range defs {
		if def.Score < MinScore || def.Score > MaxScore {
			return nil, fmt.Errorf("tier %q: score %d out of range", def.Name, def.Score)
		}
		if def.Score <= prev {
			return nil, fmt.Errorf("tier %q: score %d not after %d", def.Name, def.Score, prev)
		}
		prev = def.Score

		t := tier{score: def.Score, name: def.Name}
		for _, group := range def.Groups {
			re, err := regexp.Compile(`(?i)\b(?:` + group + `)\b`)
			if err != nil {
				return nil, fmt.Errorf("tier %q: invalid pattern %q: %w", def.Name, group, err)
			}
			t.patterns = append(t.patterns, re)
		}
		c.tiers = append(c.tiers, t)
	}
	return c, nil
}

// MustNew is like New but panics on an invalid table
func MustNew(defs []TierDef) *Classifier {
	c, err := New(defs)
	if err != nil {
		panic(err)
	}
	return c
}

var defaultClassifier = MustNew(DefaultTiers)

// Default returns the classifier built from DefaultTiers
func Default() *Classifier {
	return defaultClassifier
}

// Analyze returns the score of the first matching tier, or NeutralScore.
func (c *Classifier) Analyze(text string) int {
	score, _ := c.Match(text)
	return score
}

// Match is Analyze that also reports the name of the winning tier, empty
// when nothing matched.
func (c *Classifier) Match(text string) (int, string) {
	if strings.TrimSpace(text) == "" {
		return NeutralScore, ""
	}
	text = apostrophes.Replace(text)
	for _, t := range c.tiers {
		for _, re := range t.patterns {
			if re.MatchString(text) {
				return t.score, t.name
			}
		}
	}
	return NeutralScore, ""
}

// Analyze scores text with the default classifier
func Analyze(text string) int {
	return defaultClassifier.Analyze(text)
}
