package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DiagnosticKind identifies the questionnaire a result was produced by.
type DiagnosticKind string

const (
	KindStress     DiagnosticKind = "stress"
	KindHolmesRahe DiagnosticKind = "holmes_rahe"
)

// Valid reports whether k is a known questionnaire.
func (k DiagnosticKind) Valid() bool {
	return k == KindStress || k == KindHolmesRahe
}

// RiskCategory is the Holmes-Rahe risk bucket.
type RiskCategory string

const (
	RiskLow      RiskCategory = "Faible"
	RiskModerate RiskCategory = "Moyen"
	RiskHigh     RiskCategory = "Élevé"
)

// Holmes-Rahe thresholds (life change units).
const (
	HolmesRaheModerateThreshold = 150
	HolmesRaheHighThreshold     = 300
)

// RiskCategoryFor buckets a Holmes-Rahe stress score.
func RiskCategoryFor(score int) RiskCategory {
	switch {
	case score >= HolmesRaheHighThreshold:
		return RiskHigh
	case score >= HolmesRaheModerateThreshold:
		return RiskModerate
	default:
		return RiskLow
	}
}

// Answer is one answered question (or selected event count for Holmes-Rahe).
type Answer struct {
	QuestionID string `json:"questionId"`
	Answer     int    `json:"answer"`
}

// Answers is always encoded as a list. On decode it also accepts the legacy
// object form {"q1": 3, "q2": true}, normalized to a list sorted by question id.
type Answers []Answer

// UnmarshalJSON implements json.Unmarshaler.
func (a *Answers) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = nil
		return nil
	}
	if data[0] == '[' {
		var list []Answer
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*a = list
		return nil
	}
	if data[0] != '{' {
		return fmt.Errorf("answers: expected list or object")
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Answers, 0, len(raw))
	for qid, v := range raw {
		n, err := answerValue(v)
		if err != nil {
			return fmt.Errorf("answers[%s]: %w", qid, err)
		}
		out = append(out, Answer{QuestionID: qid, Answer: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	*a = out
	return nil
}

func answerValue(v json.RawMessage) (int, error) {
	if len(v) > 0 && (v[0] == '-' || (v[0] >= '0' && v[0] <= '9')) {
		var n int
		if err := json.Unmarshal(v, &n); err != nil {
			return 0, fmt.Errorf("not a whole number: %s", string(v))
		}
		return n, nil
	}
	var b bool
	if err := json.Unmarshal(v, &b); err == nil {
		if b {
			return 1, nil
		}
		return 0, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", s)
		}
		return n, nil
	}
	return 0, fmt.Errorf("unsupported answer value %s", string(v))
}

// DiagnosticResult is a scored questionnaire submission.
// For KindHolmesRahe, StressScore and RiskCategory are set.
type DiagnosticResult struct {
	ID              string         `json:"id,omitempty"`
	UserID          string         `json:"userId,omitempty"`
	Kind            DiagnosticKind `json:"kind"`
	TotalScore      int            `json:"totalScore"`
	FeedbackTitle   string         `json:"feedbackTitle,omitempty"`
	FeedbackMessage string         `json:"feedbackMessage,omitempty"`
	Date            time.Time      `json:"date"`
	Answers         Answers        `json:"answers"`
	StressScore     *int           `json:"stressScore,omitempty"`
	RiskCategory    RiskCategory   `json:"riskCategory,omitempty"`
}

// HolmesRaheResult is the typed view of a holmes_rahe DiagnosticResult.
type HolmesRaheResult struct {
	DiagnosticResult
	StressScore  int          `json:"stressScore"`
	RiskCategory RiskCategory `json:"riskCategory"`
}

// AsHolmesRahe returns the typed view when r is a Holmes-Rahe result.
func (r *DiagnosticResult) AsHolmesRahe() (*HolmesRaheResult, bool) {
	if r == nil || r.Kind != KindHolmesRahe || r.StressScore == nil {
		return nil, false
	}
	return &HolmesRaheResult{
		DiagnosticResult: *r,
		StressScore:      *r.StressScore,
		RiskCategory:     r.RiskCategory,
	}, true
}

// StressQuestion is a catalog entry of the stress questionnaire.
type StressQuestion struct {
	ID      string `json:"id" yaml:"id"`
	Text    string `json:"text" yaml:"text"`
	Order   int    `json:"order" yaml:"order"`
	Reverse bool   `json:"reverse,omitempty" yaml:"reverse"`
	Min     int    `json:"min" yaml:"min"`
	Max     int    `json:"max" yaml:"max"`
}

// StressFeedback maps an inclusive score range to a message.
type StressFeedback struct {
	ID       string `json:"id" yaml:"id"`
	MinScore int    `json:"minScore" yaml:"min_score"`
	MaxScore int    `json:"maxScore" yaml:"max_score"`
	Title    string `json:"title" yaml:"title"`
	Message  string `json:"message" yaml:"message"`
}

// Contains reports whether score falls in the feedback range.
func (f StressFeedback) Contains(score int) bool {
	return score >= f.MinScore && score <= f.MaxScore
}

// HolmesRaheEvent is a life event of the Holmes-Rahe scale.
type HolmesRaheEvent struct {
	ID     string `json:"id" yaml:"id"`
	Label  string `json:"label" yaml:"label"`
	Points int    `json:"points" yaml:"points"`
}

// Catalog is the read-mostly questionnaire content.
type Catalog struct {
	Questions        []*StressQuestion  `json:"questions"`
	Feedback         []*StressFeedback  `json:"feedback"`
	HolmesRaheEvents []*HolmesRaheEvent `json:"holmesRaheEvents"`
}

// DiagnosticSubmission is the inbound payload of a questionnaire.
type DiagnosticSubmission struct {
	Answers Answers `json:"answers"`
}
