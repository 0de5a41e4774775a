package catalog

import (
	"errors"
	"strings"
)

var ErrRobotNotFound = errors.New("robot not found")

// Robot is one leasable equipment listing.
type Robot struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Manufacturer   string            `json:"manufacturer"`
	Category       string            `json:"category"`
	Description    string            `json:"description"`
	Payload        string            `json:"payload"`
	AutonomyLevel  string            `json:"autonomy_level"`
	LeaseFrom      string            `json:"lease_from"`
	UseCase        string            `json:"use_case"`
	Specifications map[string]string `json:"specifications,omitempty"`
	RelatedRobots  []string          `json:"related_robots,omitempty"`
}

// Dealer is an authorized distributor with zip-code coverage.
type Dealer struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Coverage    string   `json:"coverage"`
	Address     string   `json:"address"`
	Phone       string   `json:"phone"`
	Email       string   `json:"email"`
	Specialties []string `json:"specialties"`
	ZipCodes    []string `json:"zip_codes"`
}

// MatchedDealer is a dealer annotated with match quality for a lead.
type MatchedDealer struct {
	Dealer
	MatchScore            int    `json:"match_score"`
	EstimatedResponseTime string `json:"estimated_response_time"`
}

// Pagination describes one page of a filtered listing.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
}

type RobotQuery struct {
	Search   string
	Category string
	UseCase  string
	Page     int
	Limit    int
}

type DealerQuery struct {
	ZipCode   string
	Specialty string
	Page      int
	Limit     int
}

type MatchRequest struct {
	ZipCode       string            `json:"zip_code"`
	EquipmentType string            `json:"equipment_type"`
	Industry      string            `json:"industry"`
	ContactInfo   map[string]string `json:"contact_info"`
}

// Service serves the equipment and dealer catalog.
type Service struct {
	robots  []Robot
	dealers []Dealer
}

func (s *Service) ListRobots(q RobotQuery) ([]Robot, Pagination) {
	page, limit := normalizePage(q.Page, q.Limit)

	var robots []Robot
	for _, r := range s.robots {
		if len(q.Search) > 0 {
			needle := strings.ToLower(q.Search)
			if !strings.Contains(strings.ToLower(r.Name), needle) &&
				!strings.Contains(strings.ToLower(r.Description), needle) &&
				!strings.Contains(strings.ToLower(r.Manufacturer), needle) {
				continue
			}
		}
		if len(q.Category) > 0 && !strings.EqualFold(r.Category, q.Category) {
			continue
		}
		if len(q.UseCase) > 0 && !strings.EqualFold(r.UseCase, q.UseCase) {
			continue
		}
		robots = append(robots, r)
	}

	return paginate(robots, page, limit)
}

func (s *Service) GetRobot(id string) (*Robot, error) {
	for _, r := range s.robots {
		if r.ID != id {
			continue
		}

		found := r
		for _, other := range s.robots {
			if other.ID != id && other.Category == r.Category && len(found.RelatedRobots) < 3 {
				found.RelatedRobots = append(found.RelatedRobots, other.ID)
			}
		}

		return &found, nil
	}

	return nil, ErrRobotNotFound
}

func (s *Service) ListDealers(q DealerQuery) ([]Dealer, Pagination) {
	page, limit := normalizePage(q.Page, q.Limit)

	var dealers []Dealer
	for _, d := range s.dealers {
		if len(q.ZipCode) > 0 && !coversZip(d.ZipCodes, q.ZipCode) {
			continue
		}
		if len(q.Specialty) > 0 && !hasSpecialty(d.Specialties, q.Specialty) {
			continue
		}
		dealers = append(dealers, d)
	}

	return paginate(dealers, page, limit)
}

// MatchDealers pairs a lead with every dealer covering the lead's zip code.
func (s *Service) MatchDealers(req MatchRequest) []MatchedDealer {
	matched := []MatchedDealer{}
	for _, d := range s.dealers {
		if !coversZip(d.ZipCodes, req.ZipCode) {
			continue
		}

		matched = append(matched, MatchedDealer{
			Dealer:                d,
			MatchScore:            85,
			EstimatedResponseTime: "1-2 business days",
		})
	}

	return matched
}

// coversZip matches on the zip prefix (first three digits), the same coarse
// region matching the dealer network uses.
func coversZip(zipCodes []string, zip string) bool {
	prefix := zip
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	if len(prefix) == 0 {
		return false
	}

	for _, zc := range zipCodes {
		if strings.HasPrefix(zc, prefix) {
			return true
		}
	}

	return false
}

func hasSpecialty(specialties []string, specialty string) bool {
	needle := strings.ToLower(specialty)
	for _, s := range specialties {
		if strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

func paginate[T any](items []T, page, limit int) ([]T, Pagination) {
	total := len(items)

	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	pagination := Pagination{
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}

	return items[start:end], pagination
}

func NewService() *Service {
	return &Service{
		robots:  defaultRobots(),
		dealers: defaultDealers(),
	}
}
