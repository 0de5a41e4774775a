package prequal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreTiers(t *testing.T) {
	cases := []struct {
		name   string
		input  ScoringInput
		score  int
		status string
		max    int
		terms  []int
		rates  string
	}{
		{
			name:   "strong logistics business",
			input:  ScoringInput{AnnualRevenue: "10m+", BusinessAge: "5+", CreditRating: "excellent", Industry: "logistics"},
			score:  93, // 95*0.4 + 90*0.3 + 95*0.3 = 93.5, modifier 1.0
			status: "approved",
			max:    500000,
			terms:  []int{24, 36, 48},
			rates:  "5-7%",
		},
		{
			name:   "mid-tier agriculture",
			input:  ScoringInput{AnnualRevenue: "1m-5m", BusinessAge: "2-5", CreditRating: "fair", Industry: "agriculture"},
			score:  61, // (70*0.4 + 75*0.3 + 60*0.3) * 0.9 = 61.65
			status: "needs_review",
			max:    250000,
			terms:  []int{24, 36},
			rates:  "8-12%",
		},
		{
			name:   "young construction startup",
			input:  ScoringInput{AnnualRevenue: "0-500k", BusinessAge: "0-1", CreditRating: "poor", Industry: "construction"},
			score:  22, // (20*0.4 + 30*0.3 + 30*0.3) * 0.85 = 22.1
			status: "declined",
			max:    50000,
			terms:  []int{12, 24},
			rates:  "13-18%",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := Score(tc.input)

			assert.Equal(t, tc.score, result.FinancialScore)
			assert.Equal(t, tc.status, result.Status)
			assert.Equal(t, tc.max, result.MaxLeaseValue)
			assert.Equal(t, tc.terms, result.RecommendedTerms.LeaseTermsMonths)
			assert.Equal(t, tc.rates, result.RecommendedTerms.InterestRateRange)
		})
	}
}

func TestScoreUnknownRangesFallBackToNeutral(t *testing.T) {
	result := Score(ScoringInput{AnnualRevenue: "??", BusinessAge: "??", CreditRating: "??", Industry: "space-mining"})

	assert.Equal(t, 50, result.Breakdown.RevenueScore)
	assert.Equal(t, 50, result.Breakdown.AgeScore)
	assert.Equal(t, 50, result.Breakdown.CreditScore)
	assert.Equal(t, 1.0, result.Breakdown.IndustryModifier)
	assert.Equal(t, 50, result.FinancialScore)
	assert.Equal(t, "needs_review", result.Status)
}

func TestValidateRisk(t *testing.T) {
	t.Run("clean application passes", func(t *testing.T) {
		result := ValidateRisk(RiskInput{FinancialScore: 80, EquipmentValue: 100000, Industry: "logistics"})

		assert.Equal(t, "passed", result.ComplianceStatus)
		assert.Empty(t, result.Issues)
		assert.Empty(t, result.Warnings)
		assert.Len(t, result.RulesChecked, 4)
	})

	t.Run("low score fails", func(t *testing.T) {
		result := ValidateRisk(RiskInput{FinancialScore: 35, EquipmentValue: 50000, Industry: "logistics"})

		assert.Equal(t, "failed", result.ComplianceStatus)
		assert.Contains(t, result.RequiredActions, "Manual underwriting review required")
	})

	t.Run("high value equipment is conditional", func(t *testing.T) {
		result := ValidateRisk(RiskInput{FinancialScore: 90, EquipmentValue: 350000, Industry: "logistics"})

		assert.Equal(t, "conditional", result.ComplianceStatus)
		assert.Contains(t, result.RequiredActions, "Submit audited financial statements")
	})

	t.Run("construction needs due diligence", func(t *testing.T) {
		result := ValidateRisk(RiskInput{FinancialScore: 90, EquipmentValue: 100000, Industry: "construction"})

		assert.Equal(t, "conditional", result.ComplianceStatus)
	})

	t.Run("value exceeds score ratio", func(t *testing.T) {
		// 50 * 5000 = 250000 ceiling
		result := ValidateRisk(RiskInput{FinancialScore: 50, EquipmentValue: 260000, Industry: "logistics"})

		assert.Equal(t, "failed", result.ComplianceStatus)
	})
}

func validRequest() ApplicationRequest {
	return ApplicationRequest{
		BusinessName:      "Acme Logistics",
		BusinessType:      "llc",
		Industry:          "logistics",
		Email:             "ops@acme.example",
		Phone:             "4155550123",
		SelectedEquipment: []string{"r1"},
		Quantity:          "2-5",
		AnnualRevenue:     "1m-5m",
		BusinessAge:       "2-5",
		CreditRating:      "good",
		Consent:           true,
	}
}

func TestSubmitApplication(t *testing.T) {
	s := NewService()

	app, err := s.Submit(validRequest())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(app.ApplicationNumber, "YB-"))
	require.NotNil(t, app.Score)
	assert.Equal(t, app.Score.Status, app.Status)
	assert.False(t, app.EstimatedDecisionDate.IsZero())

	fetched, err := s.Get(app.ID)
	require.NoError(t, err)
	assert.Equal(t, app.ApplicationNumber, fetched.ApplicationNumber)

	_, err = s.Get("nope")
	assert.ErrorIs(t, err, ErrApplicationNotFound)
}

func TestSubmitApplicationValidation(t *testing.T) {
	s := NewService()

	mutations := map[string]func(*ApplicationRequest){
		"empty business name": func(r *ApplicationRequest) { r.BusinessName = " " },
		"bad business type":   func(r *ApplicationRequest) { r.BusinessType = "nonprofit" },
		"bad industry":        func(r *ApplicationRequest) { r.Industry = "aerospace" },
		"bad email":           func(r *ApplicationRequest) { r.Email = "not-an-email" },
		"short phone":         func(r *ApplicationRequest) { r.Phone = "555" },
		"no equipment":        func(r *ApplicationRequest) { r.SelectedEquipment = nil },
		"bad quantity":        func(r *ApplicationRequest) { r.Quantity = "100" },
		"bad revenue":         func(r *ApplicationRequest) { r.AnnualRevenue = "1b+" },
		"no consent":          func(r *ApplicationRequest) { r.Consent = false },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			req := validRequest()
			mutate(&req)

			_, err := s.Submit(req)
			assert.Error(t, err)
		})
	}
}
