package leads

import "strings"

// Qualification bands.
const (
	QualificationHot  = "Hot"
	QualificationWarm = "Warm"
	QualificationCold = "Cold"
)

// Priorities.
const (
	PriorityHigh   = "High"
	PriorityMedium = "Medium"
	PriorityLow    = "Low"
)

// Score rates a lead from 0 to 100 using contact completeness, the
// qualification fields found in the raw bag and urgency signals.
func Score(req *CreateLeadRequest) int {
	score := 0
	if req.Name != "" {
		score += 5
	}
	if req.Email != "" {
		score += 5
	}
	if req.Phone != "" {
		score += 10
	}

	raw := req.Raw
	if hasText(raw, "businessName", "organization", "company") {
		score += 10
	}
	if hasText(raw, "website", "url") {
		score += 10
	}
	if hasText(raw, "budget") {
		score += 10
	}
	if hasText(raw, "timeline") {
		score += 10
	}

	if isTrue(raw, "timelineUrgent") {
		score += 10
	}
	if isTrue(raw, "budgetApproved") {
		score += 10
	}

	requirements := req.Message
	if s, ok := raw["requirements"].(string); ok && len(s) > len(requirements) {
		requirements = s
	}
	if len(strings.TrimSpace(requirements)) > 50 {
		score += 10
	}
	if list, ok := raw["complianceNeeds"].([]any); ok && len(list) > 0 {
		score += 10
	}

	if score > 100 {
		score = 100
	}
	return score
}

// Qualify maps a score to its band.
func Qualify(score int) string {
	switch {
	case score >= 80:
		return QualificationHot
	case score >= 60:
		return QualificationWarm
	default:
		return QualificationCold
	}
}

// Prioritize ranks follow-up urgency.
func Prioritize(req *CreateLeadRequest) string {
	raw := req.Raw
	if isTrue(raw, "timelineUrgent") && isTrue(raw, "budgetApproved") {
		return PriorityHigh
	}
	if hasText(raw, "budget") && hasText(raw, "timeline") {
		return PriorityMedium
	}
	return PriorityLow
}

func hasText(raw map[string]any, keys ...string) bool {
	for _, k := range keys {
		if s, ok := raw[k].(string); ok && strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}

func isTrue(raw map[string]any, key string) bool {
	v, ok := raw[key].(bool)
	return ok && v
}
