package prequal

import "fmt"

const (
	minimumFinancialScore = 40
	highValueThreshold    = 300000.0
	valuePerScorePoint    = 5000.0
)

var highRiskIndustries = map[string]bool{
	"construction": true,
}

type RiskInput struct {
	FinancialScore int     `json:"financial_score"`
	EquipmentValue float64 `json:"equipment_value"`
	Industry       string  `json:"industry"`
}

type RiskResult struct {
	ComplianceStatus string   `json:"compliance_status"`
	Issues           []string `json:"issues"`
	Warnings         []string `json:"warnings"`
	RequiredActions  []string `json:"required_actions"`
	RulesChecked     []string `json:"rules_checked"`
}

// ValidateRisk applies the compliance rules to a scored application. Issues
// fail the application outright; warnings make approval conditional.
func ValidateRisk(input RiskInput) RiskResult {
	result := RiskResult{
		Issues:          []string{},
		Warnings:        []string{},
		RequiredActions: []string{},
		RulesChecked: []string{
			"minimum_financial_score",
			"high_value_equipment",
			"industry_risk",
			"value_to_score_ratio",
		},
	}

	if input.FinancialScore < minimumFinancialScore {
		result.Issues = append(result.Issues, fmt.Sprintf("Financial score below minimum threshold (%d)", minimumFinancialScore))
		result.RequiredActions = append(result.RequiredActions, "Manual underwriting review required")
	}

	if input.EquipmentValue > highValueThreshold {
		result.Warnings = append(result.Warnings, "High value equipment requires additional documentation")
		result.RequiredActions = append(result.RequiredActions, "Submit audited financial statements")
	}

	if highRiskIndustries[input.Industry] {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Industry %q requires enhanced due diligence", input.Industry))
		result.RequiredActions = append(result.RequiredActions, "Provide industry-specific references")
	}

	if input.EquipmentValue > float64(input.FinancialScore)*valuePerScorePoint {
		result.Issues = append(result.Issues, "Equipment value exceeds recommended limit for financial score")
		result.RequiredActions = append(result.RequiredActions, "Consider reducing equipment value or co-signer")
	}

	switch {
	case len(result.Issues) > 0:
		result.ComplianceStatus = "failed"
	case len(result.Warnings) > 0:
		result.ComplianceStatus = "conditional"
	default:
		result.ComplianceStatus = "passed"
	}

	return result
}
