package prequal

// Rule tables for lease eligibility scoring. Unknown ranges fall back to a
// neutral 50.
var (
	revenueScores = map[string]int{
		"0-500k":  20,
		"500k-1m": 40,
		"1m-5m":   70,
		"5m-10m":  85,
		"10m+":    95,
	}

	ageScores = map[string]int{
		"0-1": 30,
		"1-2": 50,
		"2-5": 75,
		"5+":  90,
	}

	creditScores = map[string]int{
		"excellent": 95,
		"good":      80,
		"fair":      60,
		"poor":      30,
	}

	industryModifiers = map[string]float64{
		"logistics":     1.0,
		"manufacturing": 1.0,
		"agriculture":   0.9,
		"delivery":      0.95,
		"construction":  0.85,
		"retail":        0.95,
	}
)

type ScoringInput struct {
	AnnualRevenue string `json:"annual_revenue"`
	BusinessAge   string `json:"business_age"`
	CreditRating  string `json:"credit_rating"`
	Industry      string `json:"industry"`
}

type ScoreBreakdown struct {
	RevenueScore     int     `json:"revenue_score"`
	AgeScore         int     `json:"age_score"`
	CreditScore      int     `json:"credit_score"`
	IndustryModifier float64 `json:"industry_modifier"`
}

type RecommendedTerms struct {
	LeaseTermsMonths  []int  `json:"lease_terms_months"`
	InterestRateRange string `json:"interest_rate_range"`
}

type ScoreResult struct {
	FinancialScore      int              `json:"financial_score"`
	Status              string           `json:"status"`
	ApprovalProbability string           `json:"approval_probability"`
	MaxLeaseValue       int              `json:"max_lease_value"`
	RecommendedTerms    RecommendedTerms `json:"recommended_terms"`
	Breakdown           ScoreBreakdown   `json:"breakdown"`
}

// Score blends revenue, business age, and credit rating 0.4/0.3/0.3, applies
// the industry risk modifier, and maps the result onto approval tiers.
func Score(input ScoringInput) ScoreResult {
	revenueScore := lookupScore(revenueScores, input.AnnualRevenue)
	ageScore := lookupScore(ageScores, input.BusinessAge)
	creditScore := lookupScore(creditScores, input.CreditRating)

	modifier, ok := industryModifiers[input.Industry]
	if !ok {
		modifier = 1.0
	}

	base := float64(revenueScore)*0.4 + float64(ageScore)*0.3 + float64(creditScore)*0.3
	final := int(base * modifier)

	result := ScoreResult{
		FinancialScore: final,
		Breakdown: ScoreBreakdown{
			RevenueScore:     revenueScore,
			AgeScore:         ageScore,
			CreditScore:      creditScore,
			IndustryModifier: modifier,
		},
	}

	switch {
	case final >= 70:
		result.Status = "approved"
		result.ApprovalProbability = "high"
		result.MaxLeaseValue = 500000
		result.RecommendedTerms = RecommendedTerms{
			LeaseTermsMonths:  []int{24, 36, 48},
			InterestRateRange: "5-7%",
		}
	case final >= 50:
		result.Status = "needs_review"
		result.ApprovalProbability = "medium"
		result.MaxLeaseValue = 250000
		result.RecommendedTerms = RecommendedTerms{
			LeaseTermsMonths:  []int{24, 36},
			InterestRateRange: "8-12%",
		}
	default:
		result.Status = "declined"
		result.ApprovalProbability = "low"
		result.MaxLeaseValue = 50000
		result.RecommendedTerms = RecommendedTerms{
			LeaseTermsMonths:  []int{12, 24},
			InterestRateRange: "13-18%",
		}
	}

	return result
}

func lookupScore(table map[string]int, key string) int {
	if score, ok := table[key]; ok {
		return score
	}
	return 50
}
