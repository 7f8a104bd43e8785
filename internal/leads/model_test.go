package leads

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLeadRequest_UnknownKeysFoldIntoRaw(t *testing.T) {
	var req CreateLeadRequest
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Jane","email":"jane@example.com","budget":"5k","timelineUrgent":true}`), &req))

	assert.Equal(t, "Jane", req.Name)
	assert.Equal(t, map[string]any{"budget": "5k", "timelineUrgent": true}, req.Raw)
}

func TestCreateLeadRequest_ExplicitRawWins(t *testing.T) {
	var req CreateLeadRequest
	require.NoError(t, json.Unmarshal([]byte(`{"phone":"+1555","raw":{"url":"https://a.test"},"stray":"x"}`), &req))

	assert.Equal(t, map[string]any{"url": "https://a.test"}, req.Raw)
}

func TestCreateLeadRequest_Validate(t *testing.T) {
	tests := []struct {
		name string
		req  CreateLeadRequest
		want error
	}{
		{"nothing", CreateLeadRequest{Message: "hello"}, ErrMissingIdentifier},
		{"name only", CreateLeadRequest{Name: "Jane"}, ErrMissingContact},
		{"bad email", CreateLeadRequest{Email: "jane@"}, ErrInvalidEmail},
		{"phone only", CreateLeadRequest{Phone: "+911234567890"}, nil},
		{"email only", CreateLeadRequest{Email: " jane@example.com "}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreateLeadRequest_Defaults(t *testing.T) {
	req := CreateLeadRequest{Email: "jane@example.com"}
	require.NoError(t, req.Validate())
	assert.Equal(t, DefaultSource, req.Source)
	assert.Equal(t, DefaultLeadSource, req.LeadSource)
	assert.NotNil(t, req.Raw)
}

func TestScoreQualifyPrioritize(t *testing.T) {
	cold := &CreateLeadRequest{Email: "a@b.co", Raw: map[string]any{}}
	assert.Equal(t, 5, Score(cold))
	assert.Equal(t, QualificationCold, Qualify(Score(cold)))
	assert.Equal(t, PriorityLow, Prioritize(cold))

	hot := &CreateLeadRequest{
		Name:  "Jane",
		Email: "jane@example.com",
		Phone: "+15551234567",
		Raw: map[string]any{
			"businessName":   "Acme",
			"website":        "https://acme.test",
			"budget":         "$10k",
			"timeline":       "this month",
			"timelineUrgent": true,
			"budgetApproved": true,
		},
	}
	score := Score(hot)
	assert.Equal(t, 80, score)
	assert.Equal(t, QualificationHot, Qualify(score))
	assert.Equal(t, PriorityHigh, Prioritize(hot))

	warm := &CreateLeadRequest{Name: "Jane", Email: "jane@acme.test", Phone: "+1555", Raw: map[string]any{
		"company": "Acme", "budget": "5k", "timeline": "Q3", "url": "https://acme.test",
	}}
	assert.Equal(t, QualificationWarm, Qualify(Score(warm)))
	assert.Equal(t, PriorityMedium, Prioritize(warm))
}

func TestScoreIsCapped(t *testing.T) {
	req := &CreateLeadRequest{
		Name: "Jane", Email: "j@x.io", Phone: "1",
		Message: "We need a complete rebuild of our storefront with headless checkout and ERP sync.",
		Raw: map[string]any{
			"organization": "Acme", "website": "acme.test", "budget": "1", "timeline": "1",
			"timelineUrgent": true, "budgetApproved": true, "complianceNeeds": []any{"HIPAA"},
		},
	}
	assert.Equal(t, 100, Score(req))
}
