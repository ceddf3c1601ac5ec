package market

import (
	"fmt"
	"unicode/utf8"

	"salesintel/internal/domain"
)

const minDescriptionLen = 20

// Validate lists the empty sections and weak fields of a report.
func Validate(r *domain.MarketIntelligenceReport) domain.ReportValidation {
	var v domain.ReportValidation

	if r.IndustryContext == nil || r.IndustryContext.Industry == "" {
		v.Missing = append(v.Missing, "industryContext")
	} else if n := utf8.RuneCountInString(r.IndustryContext.Description); n < minDescriptionLen {
		v.QualityIssues = append(v.QualityIssues, domain.QualityIssue{
			Field: "industryContext.description",
			Issue: fmt.Sprintf("too short (%d chars), needs specific details", n),
		})
	}
	if len(r.Conditions) == 0 {
		v.Missing = append(v.Missing, "conditions")
	}
	if len(r.Trends) == 0 {
		v.Missing = append(v.Missing, "trends")
	}
	if len(r.Competitors) == 0 {
		v.Missing = append(v.Missing, "competitors")
	}
	for i, c := range r.Competitors {
		if c.Position == "" {
			v.QualityIssues = append(v.QualityIssues, domain.QualityIssue{
				Field: fmt.Sprintf("competitors[%d].position", i),
				Issue: fmt.Sprintf("no market position for %q", c.Name),
			})
		}
	}
	if len(r.Opportunities) == 0 {
		v.Missing = append(v.Missing, "opportunities")
	}
	if len(r.Risks) == 0 {
		v.Missing = append(v.Missing, "risks")
	}

	v.Valid = len(v.Missing) == 0 && len(v.QualityIssues) == 0
	return v
}
