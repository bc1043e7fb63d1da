package schemes

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/sakhihub/sakhi/internal/backend"
)

func TestSukanyaAgeLimit(t *testing.T) {
	v := Evaluate("Sukanya Samriddhi Yojana", Applicant{Age: 12})
	if v.IsEligible {
		t.Error("age 12 must not be eligible for Sukanya (limit is 10)")
	}

	v = Evaluate("Sukanya Samriddhi Yojana", Applicant{Age: 8})
	if !v.IsEligible {
		t.Errorf("age 8 should be eligible, got %q", v.Reason)
	}
}

func TestIncomeCap(t *testing.T) {
	v := Evaluate("Ujjwala Yojana", Applicant{Age: 30, Income: 200000})
	if v.IsEligible {
		t.Error("income above cap must not be eligible")
	}
	v = Evaluate("Ujjwala Yojana", Applicant{Age: 30, Income: 100000})
	if !v.IsEligible {
		t.Errorf("income below cap should pass, got %q", v.Reason)
	}
}

func TestRuralResidence(t *testing.T) {
	v := Evaluate("National Rural Livelihoods Mission", Applicant{Age: 30, Residence: "urban"})
	if v.IsEligible {
		t.Error("urban resident must not pass a rural-only scheme")
	}
	v = Evaluate("National Rural Livelihoods Mission", Applicant{Age: 30, Residence: "Rural"})
	if !v.IsEligible {
		t.Errorf("rural resident should pass, got %q", v.Reason)
	}
}

func TestUnknownSchemePassesWithNotice(t *testing.T) {
	v := Evaluate("Some Future Scheme", Applicant{Age: 40})
	if !v.IsEligible {
		t.Error("unknown scheme should pass the preliminary check")
	}
}

type fakeChecker struct {
	resp *backend.EligibilityResponse
	err  error
}

func (f *fakeChecker) CheckEligibility(_ context.Context, _ *backend.EligibilityRequest) (*backend.EligibilityResponse, error) {
	return f.resp, f.err
}

func TestServicePrefersBackend(t *testing.T) {
	s := NewService(&fakeChecker{resp: &backend.EligibilityResponse{IsEligible: false, Reason: "Income limit is 1.5L"}}, zap.NewNop())

	// Locally this applicant would pass; the backend verdict wins.
	v := s.Check(context.Background(), "Stand Up India", Applicant{Age: 30})
	if v.IsEligible {
		t.Error("backend verdict should take precedence")
	}
	if v.Reason != "Income limit is 1.5L" {
		t.Errorf("reason = %q", v.Reason)
	}
}

func TestServiceFallsBackOffline(t *testing.T) {
	s := NewService(&fakeChecker{err: fmt.Errorf("connection refused")}, zap.NewNop())

	v := s.Check(context.Background(), "Sukanya Samriddhi Yojana", Applicant{Age: 12})
	if v.IsEligible {
		t.Error("local fallback should reject age 12 for Sukanya")
	}
}

func TestServiceWithoutBackend(t *testing.T) {
	s := NewService(nil, zap.NewNop())
	v := s.Check(context.Background(), "Sukanya Samriddhi Yojana", Applicant{Age: 5})
	if !v.IsEligible {
		t.Errorf("offline check should pass age 5, got %q", v.Reason)
	}
}
