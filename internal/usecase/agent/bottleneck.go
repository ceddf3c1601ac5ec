package agent

import (
	"fmt"
	"strings"

	"salesintel/internal/domain"
)

// BottleneckOptimizations returns one generic recommendation per bottleneck
// in the analysis, in order.
func BottleneckOptimizations(a domain.Analysis) []domain.Optimization {
	bottlenecks := a.Base().Bottlenecks
	opts := make([]domain.Optimization, 0, len(bottlenecks))
	for _, b := range bottlenecks {
		opts = append(opts, BottleneckOptimization(b))
	}
	return opts
}

// BottleneckOptimization is the generic recommendation for one bottleneck.
func BottleneckOptimization(bottleneck string) domain.Optimization {
	return domain.Optimization{
		ID:          "bottleneck-" + Slug(bottleneck),
		Type:        domain.OptimizationProcess,
		Title:       "Resolve " + bottleneck,
		Description: fmt.Sprintf("Remove %s as a constraint on throughput.", bottleneck),
		Impact:      domain.LevelMedium,
		Effort:      domain.LevelMedium,
		Implementation: []string{
			"Map the current workflow around " + bottleneck,
			"Identify the root cause with the owning team",
			"Pilot a fix with one team for two weeks",
			"Roll out and track the affected metric",
		},
		Target: domain.TargetAll,
	}
}

// Slug lowercases s and joins its alphanumeric runs with dashes.
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
