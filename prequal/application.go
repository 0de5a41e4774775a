package prequal

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Application statuses.
const (
	StatusPending     = "pending"
	StatusApproved    = "approved"
	StatusNeedsReview = "needs_review"
	StatusDeclined    = "declined"
)

var ErrApplicationNotFound = errors.New("prequalification application not found")

var (
	validBusinessTypes = map[string]bool{
		"llc": true, "corporation": true, "partnership": true, "sole-proprietor": true,
	}
	validIndustries = map[string]bool{
		"logistics": true, "agriculture": true, "manufacturing": true,
		"delivery": true, "construction": true, "retail": true,
	}
	validQuantities = map[string]bool{
		"1": true, "2-5": true, "6-10": true, "11-20": true, "20+": true,
	}
)

type ApplicationRequest struct {
	BusinessName      string   `json:"business_name"`
	BusinessType      string   `json:"business_type"`
	Industry          string   `json:"industry"`
	Email             string   `json:"email"`
	Phone             string   `json:"phone"`
	SelectedEquipment []string `json:"selected_equipment"`
	Quantity          string   `json:"quantity"`
	AnnualRevenue     string   `json:"annual_revenue"`
	BusinessAge       string   `json:"business_age"`
	CreditRating      string   `json:"credit_rating"`
	Consent           bool     `json:"consent"`
}

func (r ApplicationRequest) Validate() error {
	var problems []string

	if len(strings.TrimSpace(r.BusinessName)) == 0 {
		problems = append(problems, "business_name is required")
	}
	if !validBusinessTypes[r.BusinessType] {
		problems = append(problems, "business_type must be one of llc, corporation, partnership, sole-proprietor")
	}
	if !validIndustries[r.Industry] {
		problems = append(problems, "industry is not supported")
	}
	if !strings.Contains(r.Email, "@") {
		problems = append(problems, "email is invalid")
	}
	if len(r.Phone) < 10 {
		problems = append(problems, "phone is too short")
	}
	if len(r.SelectedEquipment) == 0 {
		problems = append(problems, "selected_equipment must not be empty")
	}
	if !validQuantities[r.Quantity] {
		problems = append(problems, "quantity is out of range")
	}
	if _, ok := revenueScores[r.AnnualRevenue]; !ok {
		problems = append(problems, "annual_revenue is out of range")
	}
	if _, ok := ageScores[r.BusinessAge]; !ok {
		problems = append(problems, "business_age is out of range")
	}
	if _, ok := creditScores[r.CreditRating]; !ok {
		problems = append(problems, "credit_rating is out of range")
	}
	if !r.Consent {
		problems = append(problems, "consent is required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid application: %s", strings.Join(problems, "; "))
	}

	return nil
}

type Application struct {
	ID                    string             `json:"id"`
	ApplicationNumber     string             `json:"application_number"`
	Request               ApplicationRequest `json:"request"`
	Status                string             `json:"status"`
	Score                 *ScoreResult       `json:"agent_analysis,omitempty"`
	Risk                  *RiskResult        `json:"risk_analysis,omitempty"`
	EstimatedDecisionDate time.Time          `json:"estimated_decision_date"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

// Service accepts and scores prequalification applications. Applications are
// held in process until they move into the relational store.
type Service struct {
	mu           sync.Mutex
	applications map[string]*Application
}

// Submit validates, stores, and immediately scores an application. The
// application number format matches what the sales side already tracks.
func (s *Service) Submit(req ApplicationRequest) (*Application, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	app := &Application{
		ID:                    uuid.New().String(),
		Request:               req,
		Status:                StatusPending,
		EstimatedDecisionDate: now.AddDate(0, 0, 2),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	app.ApplicationNumber = fmt.Sprintf("YB-%s-%s", now.Format("20060102"), strings.ToUpper(app.ID[:8]))

	score := Score(ScoringInput{
		AnnualRevenue: req.AnnualRevenue,
		BusinessAge:   req.BusinessAge,
		CreditRating:  req.CreditRating,
		Industry:      req.Industry,
	})
	app.Score = &score
	app.Status = score.Status

	s.mu.Lock()
	s.applications[app.ID] = app
	s.mu.Unlock()

	return app, nil
}

func (s *Service) Get(id string) (*Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.applications[id]
	if !ok {
		return nil, ErrApplicationNotFound
	}

	copied := *app
	return &copied, nil
}

func NewService() *Service {
	return &Service{
		applications: map[string]*Application{},
	}
}
