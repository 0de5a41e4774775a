package supervisor

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ybryx/robolease/catalog"
	"github.com/ybryx/robolease/generator"
	"github.com/ybryx/robolease/prequal"
)

// FinancingSpecialist answers financing questions, grounding replies in the
// scoring rule tables when the message carries enough signal.
type FinancingSpecialist struct {
	Prequal   *prequal.Service
	Generator generator.Generator
}

func (f *FinancingSpecialist) Handle(ctx context.Context, turn Turn) (string, error) {
	var b strings.Builder

	b.WriteString("Financing specialist here. ")

	if len(turn.Industry) > 0 {
		score := prequal.Score(prequal.ScoringInput{Industry: turn.Industry})
		b.WriteString(fmt.Sprintf(
			"For a %s business we typically see %s terms in the %s range. ",
			turn.Industry,
			formatTerms(score.RecommendedTerms.LeaseTermsMonths),
			score.RecommendedTerms.InterestRateRange,
		))
	}

	b.WriteString("To prequalify I need your annual revenue range, business age, and estimated credit rating.")

	if f.Generator == nil {
		return b.String(), nil
	}

	reply, err := f.Generator.Generate(ctx, f.prompt(turn, b.String()))
	if err != nil {
		// the deterministic summary still answers the user
		return b.String(), nil
	}

	return reply, nil
}

func (f *FinancingSpecialist) prompt(turn Turn, grounding string) string {
	return fmt.Sprintf(
		"You are a robotics lease financing specialist.\nGrounding facts: %s\nUser: %s",
		grounding, turn.Message,
	)
}

// DealerSpecialist matches the user with authorized dealers.
type DealerSpecialist struct {
	Catalog *catalog.Service
}

func (d *DealerSpecialist) Handle(_ context.Context, turn Turn) (string, error) {
	zip := extractZip(turn.Message)
	if len(zip) == 0 {
		return "I can match you with an authorized dealer. What is your ZIP code?", nil
	}

	dealers, _ := d.Catalog.ListDealers(catalog.DealerQuery{ZipCode: zip})
	if len(dealers) == 0 {
		return fmt.Sprintf("No authorized dealers currently cover the %s area. We will notify you when coverage expands.", zip), nil
	}

	var b strings.Builder
	b.WriteString("Authorized dealers near you:\n")
	for _, dealer := range dealers {
		b.WriteString(fmt.Sprintf("- %s (%s) - %s\n", dealer.Name, dealer.Coverage, dealer.Phone))
	}

	return b.String(), nil
}

// KnowledgeSpecialist answers equipment questions from the catalog, with an
// optional model pass to phrase the reply.
type KnowledgeSpecialist struct {
	Catalog   *catalog.Service
	Generator generator.Generator
}

func (k *KnowledgeSpecialist) Handle(ctx context.Context, turn Turn) (string, error) {
	robots := k.searchCatalog(turn)

	var b strings.Builder
	if len(robots) == 0 {
		b.WriteString("We lease AMRs, AGVs, and agricultural drones. Tell me about your use case and I can recommend equipment.")
	} else {
		b.WriteString("Matching equipment:\n")
		for _, robot := range robots {
			b.WriteString(fmt.Sprintf("- %s by %s, from %s/month: %s\n",
				robot.Name, robot.Manufacturer, robot.LeaseFrom, robot.Description))
		}
	}

	if k.Generator == nil {
		return b.String(), nil
	}

	prompt := fmt.Sprintf(
		"You are a robotics equipment expert.\nCatalog facts:\n%s\nUser: %s",
		b.String(), turn.Message,
	)
	reply, err := k.Generator.Generate(ctx, prompt)
	if err != nil {
		return b.String(), nil
	}

	return reply, nil
}

// searchCatalog tries the message word by word against the catalog, then
// falls back to the detected industry.
func (k *KnowledgeSpecialist) searchCatalog(turn Turn) []catalog.Robot {
	seen := map[string]bool{}
	var robots []catalog.Robot

	for _, word := range strings.Fields(turn.Message) {
		word = strings.Trim(word, ".,!?")
		if len(word) < 3 {
			continue
		}

		found, _ := k.Catalog.ListRobots(catalog.RobotQuery{Search: word})
		for _, robot := range found {
			if !seen[robot.ID] {
				seen[robot.ID] = true
				robots = append(robots, robot)
			}
		}
	}

	if len(robots) == 0 && len(turn.Industry) > 0 {
		robots, _ = k.Catalog.ListRobots(catalog.RobotQuery{UseCase: turn.Industry})
	}

	return robots
}

func formatTerms(months []int) string {
	parts := make([]string, 0, len(months))
	for _, m := range months {
		parts = append(parts, fmt.Sprintf("%d", m))
	}
	return strings.Join(parts, "/") + " month"
}

var zipPattern = regexp.MustCompile(`\b\d{5}\b`)

// extractZip pulls the first standalone 5-digit run out of a message.
func extractZip(message string) string {
	return zipPattern.FindString(message)
}
