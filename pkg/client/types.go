package client

import "github.com/terra-clan/wellness-hub/internal/models"

// Wire types shared with the service. They are aliases so callers outside
// this module can build request values without importing internal packages.
type (
	User                 = models.User
	Resource             = models.Resource
	ResourceCategory     = models.ResourceCategory
	ResourceInput        = models.ResourceInput
	InfoPage             = models.InfoPage
	Section              = models.Section
	Answer               = models.Answer
	Answers              = models.Answers
	DiagnosticKind       = models.DiagnosticKind
	DiagnosticResult     = models.DiagnosticResult
	DiagnosticSubmission = models.DiagnosticSubmission
	HolmesRaheResult     = models.HolmesRaheResult
	RiskCategory         = models.RiskCategory
	StressQuestion       = models.StressQuestion
	StressFeedback       = models.StressFeedback
	HolmesRaheEvent      = models.HolmesRaheEvent
	Catalog              = models.Catalog
)

const (
	KindStress     = models.KindStress
	KindHolmesRahe = models.KindHolmesRahe

	RiskLow      = models.RiskLow
	RiskModerate = models.RiskModerate
	RiskHigh     = models.RiskHigh
)
