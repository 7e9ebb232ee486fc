package output

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/blackwell-systems/leechkit/internal/detector"
)

// Option is one row of the options table.
type Option struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Leech is one card classified as a leech.
type Leech struct {
	CardID         int64    `json:"card_id" yaml:"card_id"`
	NoteID         int64    `json:"note_id" yaml:"note_id"`
	Deck           string   `json:"deck" yaml:"deck"`
	Trials         int      `json:"trials" yaml:"trials"`
	Probability    *float64 `json:"p,omitempty" yaml:"p,omitempty"`
	Threshold      *float64 `json:"t,omitempty" yaml:"t,omitempty"`
	CrossoverCount *int     `json:"crossover_count,omitempty" yaml:"crossover_count,omitempty"`
}

// CardError is a card whose classification failed.
type CardError struct {
	CardID int64  `json:"card_id" yaml:"card_id"`
	Error  string `json:"error" yaml:"error"`
}

// Report is the result of one scan.
type Report struct {
	RunID   string      `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Options []Option    `json:"options" yaml:"options"`
	Checked int         `json:"checked" yaml:"checked"`
	Leeches []Leech     `json:"leeches" yaml:"leeches"`
	Errors  []CardError `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Step is one prefix of an explained card.
type Step struct {
	N               int     `json:"n" yaml:"n"`
	Date            string  `json:"date" yaml:"date"`
	ElapsedDays     float64 `json:"elapsed_days" yaml:"elapsed_days"`
	Stability       float64 `json:"stability" yaml:"stability"`
	Probability     float64 `json:"probability" yaml:"probability"`
	Succeeded       bool    `json:"succeeded" yaml:"succeeded"`
	TailProbability float64 `json:"p" yaml:"p"`
	Threshold       float64 `json:"t" yaml:"t"`
	Crossed         bool    `json:"crossed" yaml:"crossed"`
}

// Explanation is the serializable form of detector.Explanation.
type Explanation struct {
	CardID      int64          `json:"card_id" yaml:"card_id"`
	IsLeech     bool           `json:"is_leech" yaml:"is_leech"`
	Trials      int            `json:"trials" yaml:"trials"`
	Probability *float64       `json:"p,omitempty" yaml:"p,omitempty"`
	Threshold   *float64       `json:"t,omitempty" yaml:"t,omitempty"`
	Extra       map[string]any `json:"extra" yaml:"extra"`
	Steps       []Step         `json:"steps" yaml:"steps"`
}

// NewLeech builds a report row from a verdict.
func NewLeech(cardID, noteID int64, deck string, r *detector.Result) Leech {
	l := Leech{
		CardID:      cardID,
		NoteID:      noteID,
		Deck:        deck,
		Trials:      r.Trials,
		Probability: r.Probability,
		Threshold:   r.Threshold,
	}
	if n, ok := r.CrossoverCount(); ok {
		l.CrossoverCount = &n
	}
	return l
}

// NewExplanation converts an explanation for encoding.
func NewExplanation(cardID int64, ex *detector.Explanation) *Explanation {
	out := &Explanation{
		CardID:      cardID,
		IsLeech:     ex.Result.IsLeech,
		Trials:      ex.Result.Trials,
		Probability: ex.Result.Probability,
		Threshold:   ex.Result.Threshold,
		Extra:       ex.Result.Extra,
		Steps:       make([]Step, len(ex.Steps)),
	}
	for i, s := range ex.Steps {
		out.Steps[i] = Step{
			N:               s.N,
			Date:            s.Trial.Date.String(),
			ElapsedDays:     s.Trial.ElapsedDays,
			Stability:       s.Trial.Stability,
			Probability:     s.Trial.Probability,
			Succeeded:       s.Trial.Succeeded,
			TailProbability: s.TailProbability,
			Threshold:       s.Threshold,
			Crossed:         s.Crossed,
		}
	}
	return out
}

// Encode writes v to w as JSON or YAML.
func Encode(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}
