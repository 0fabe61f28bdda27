package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/wellness-hub/internal/models"
	"github.com/terra-clan/wellness-hub/internal/storage"
)

// Catalog is the read side of the diagnostic catalog loader.
type Catalog interface {
	Catalog() *models.Catalog
	Questions() []*models.StressQuestion
	Question(id string) *models.StressQuestion
	Event(id string) *models.HolmesRaheEvent
	FeedbackFor(score int) *models.StressFeedback
}

var riskFeedback = map[models.RiskCategory][2]string{
	models.RiskLow: {
		"Risque faible",
		"Les changements de vie récents vous exposent à un risque faible de problèmes de santé liés au stress.",
	},
	models.RiskModerate: {
		"Risque moyen",
		"Les changements de vie récents représentent une charge notable. Prenez soin de votre récupération.",
	},
	models.RiskHigh: {
		"Risque élevé",
		"Les changements de vie récents représentent une charge importante. Un accompagnement peut vous aider.",
	},
}

// DiagnosticService scores questionnaires and keeps the results history.
type DiagnosticService struct {
	repo    storage.Repository
	catalog Catalog
	now     func() time.Time
	idGen   func() string
}

func NewDiagnosticService(repo storage.Repository, catalog Catalog) *DiagnosticService {
	return &DiagnosticService{
		repo:    repo,
		catalog: catalog,
		now:     func() time.Time { return time.Now().UTC() },
		idGen:   uuid.NewString,
	}
}

func (s *DiagnosticService) Catalog() *models.Catalog {
	return s.catalog.Catalog()
}

// ScoreStress sums every answer, reversing reverse-scored questions. Every
// question must be answered exactly once within its range.
func (s *DiagnosticService) ScoreStress(answers models.Answers) (int, error) {
	seen := make(map[string]bool, len(answers))
	total := 0
	for _, a := range answers {
		q := s.catalog.Question(a.QuestionID)
		if q == nil {
			return 0, NewInvalidError(fmt.Sprintf("unknown question %q", a.QuestionID))
		}
		if seen[a.QuestionID] {
			return 0, NewInvalidError(fmt.Sprintf("question %q answered twice", a.QuestionID))
		}
		seen[a.QuestionID] = true
		if a.Answer < q.Min || a.Answer > q.Max {
			return 0, NewInvalidError(fmt.Sprintf("answer to %q must be between %d and %d", q.ID, q.Min, q.Max))
		}
		v := a.Answer
		if q.Reverse {
			v = q.Min + q.Max - a.Answer
		}
		total += v
	}
	for _, q := range s.catalog.Questions() {
		if !seen[q.ID] {
			return 0, NewInvalidError(fmt.Sprintf("question %q is not answered", q.ID))
		}
	}
	return total, nil
}

// ScoreHolmesRahe sums the points of the events answered 1. Events answered
// 0 or left out did not happen.
func (s *DiagnosticService) ScoreHolmesRahe(answers models.Answers) (int, error) {
	seen := make(map[string]bool, len(answers))
	total := 0
	for _, a := range answers {
		e := s.catalog.Event(a.QuestionID)
		if e == nil {
			return 0, NewInvalidError(fmt.Sprintf("unknown life event %q", a.QuestionID))
		}
		if seen[a.QuestionID] {
			return 0, NewInvalidError(fmt.Sprintf("life event %q answered twice", a.QuestionID))
		}
		seen[a.QuestionID] = true
		if a.Answer != 0 && a.Answer != 1 {
			return 0, NewInvalidError(fmt.Sprintf("answer to %q must be 0 or 1", a.QuestionID))
		}
		total += e.Points * a.Answer
	}
	return total, nil
}

// SubmitStress scores and stores a stress questionnaire. userID may be
// empty for anonymous visitors.
func (s *DiagnosticService) SubmitStress(ctx context.Context, userID string, answers models.Answers) (*models.DiagnosticResult, error) {
	score, err := s.ScoreStress(answers)
	if err != nil {
		return nil, err
	}
	result := &models.DiagnosticResult{
		ID:         s.idGen(),
		UserID:     userID,
		Kind:       models.KindStress,
		TotalScore: score,
		Date:       s.now(),
		Answers:    answers,
	}
	if fb := s.catalog.FeedbackFor(score); fb != nil {
		result.FeedbackTitle = fb.Title
		result.FeedbackMessage = fb.Message
	}
	if err := s.repo.CreateDiagnostic(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// SubmitHolmesRahe scores and stores a life events questionnaire.
func (s *DiagnosticService) SubmitHolmesRahe(ctx context.Context, userID string, answers models.Answers) (*models.HolmesRaheResult, error) {
	score, err := s.ScoreHolmesRahe(answers)
	if err != nil {
		return nil, err
	}
	risk := models.RiskCategoryFor(score)
	fb := riskFeedback[risk]
	result := &models.DiagnosticResult{
		ID:              s.idGen(),
		UserID:          userID,
		Kind:            models.KindHolmesRahe,
		TotalScore:      score,
		FeedbackTitle:   fb[0],
		FeedbackMessage: fb[1],
		Date:            s.now(),
		Answers:         answers,
		StressScore:     &score,
		RiskCategory:    risk,
	}
	if err := s.repo.CreateDiagnostic(ctx, result); err != nil {
		return nil, err
	}
	hr, _ := result.AsHolmesRahe()
	return hr, nil
}

// Get returns a result to its owner or an admin. Anonymous results are
// readable by id.
func (s *DiagnosticService) Get(ctx context.Context, id, viewerID string, isAdmin bool) (*models.DiagnosticResult, error) {
	d, err := s.repo.GetDiagnostic(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, NewNotFoundError("diagnostic not found")
	}
	if d.UserID != "" && d.UserID != viewerID && !isAdmin {
		return nil, NewNotFoundError("diagnostic not found")
	}
	return d, nil
}

func (s *DiagnosticService) History(ctx context.Context, userID string, limit int) ([]*models.DiagnosticResult, error) {
	if userID == "" {
		return nil, NewUnauthorizedError("sign in to see your history")
	}
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	return s.repo.ListDiagnosticsByUser(ctx, userID, limit)
}

// PurgeBefore deletes diagnostics dated before cutoff.
func (s *DiagnosticService) PurgeBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return s.repo.DeleteDiagnosticsBefore(ctx, cutoff)
}
