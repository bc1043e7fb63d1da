package schemes

import (
	"context"

	"go.uber.org/zap"

	"github.com/sakhihub/sakhi/internal/backend"
)

// Checker is the backend surface the service needs.
type Checker interface {
	CheckEligibility(ctx context.Context, req *backend.EligibilityRequest) (*backend.EligibilityResponse, error)
}

// Service answers eligibility checks, preferring the backend and degrading
// to the local rule table when it is unreachable.
type Service struct {
	backend Checker
	logger  *zap.Logger
}

// NewService creates a scheme eligibility service. backend may be nil for a
// fully offline deployment.
func NewService(b Checker, logger *zap.Logger) *Service {
	return &Service{backend: b, logger: logger.Named("schemes")}
}

// Check runs an eligibility check.
func (s *Service) Check(ctx context.Context, schemeName string, a Applicant) Verdict {
	if s.backend != nil {
		resp, err := s.backend.CheckEligibility(ctx, &backend.EligibilityRequest{
			SchemeName: schemeName,
			Age:        a.Age,
			Income:     a.Income,
			Residence:  a.Residence,
			Caste:      a.Caste,
		})
		if err == nil {
			return Verdict{SchemeName: schemeName, IsEligible: resp.IsEligible, Reason: resp.Reason}
		}
		s.logger.Warn("backend check failed, using local rules", zap.Error(err))
	}
	return Evaluate(schemeName, a)
}
