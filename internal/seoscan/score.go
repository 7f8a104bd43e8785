package seoscan

import "sort"

const (
	maxIssues     = 5
	maxQuickFixes = 4
)

// Grade maps a 0-100 score onto a letter.
func Grade(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// Score subtracts every penalty from 100 and clamps the result.
func Score(issues []Issue) int {
	score := 100
	for _, issue := range issues {
		score -= issue.penalty
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Rank orders issues by severity, keeping detection order within a severity,
// and returns the top issues with their quick fixes.
func Rank(issues []Issue) ([]Issue, []string) {
	ranked := make([]Issue, len(issues))
	copy(ranked, issues)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Severity < ranked[j].Severity
	})

	fixes := make([]string, 0, maxQuickFixes)
	for _, issue := range ranked {
		if len(fixes) == maxQuickFixes {
			break
		}
		if issue.fix != "" {
			fixes = append(fixes, issue.fix)
		}
	}
	if len(ranked) > maxIssues {
		ranked = ranked[:maxIssues]
	}
	return ranked, fixes
}
