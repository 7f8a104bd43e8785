package contacts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSubmissionRequest_Validate(t *testing.T) {
	valid := func() CreateSubmissionRequest {
		return CreateSubmissionRequest{Name: "Dana", Email: "dana@example.com", Message: "Quote please"}
	}
	tests := []struct {
		name   string
		mutate func(r *CreateSubmissionRequest)
		want   error
	}{
		{"valid", func(r *CreateSubmissionRequest) {}, nil},
		{"blank name", func(r *CreateSubmissionRequest) { r.Name = "   " }, ErrInvalidName},
		{"missing email", func(r *CreateSubmissionRequest) { r.Email = "" }, ErrInvalidEmail},
		{"display name address", func(r *CreateSubmissionRequest) { r.Email = "Jane Doe <jane@acme.test>" }, ErrInvalidEmail},
		{"malformed email", func(r *CreateSubmissionRequest) { r.Email = "jane@" }, ErrInvalidEmail},
		{"blank message", func(r *CreateSubmissionRequest) { r.Message = "\n\t" }, ErrMissingMessage},
		{"oversized phone", func(r *CreateSubmissionRequest) { r.Phone = strings.Repeat("1", 41) }, ErrInvalidField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(&req)
			err := req.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreateSubmissionRequest_ValidateTrims(t *testing.T) {
	req := CreateSubmissionRequest{Name: " Dana ", Email: " dana@example.com ", Message: " hi "}
	require.NoError(t, req.Validate())
	assert.Equal(t, "Dana", req.Name)
	assert.Equal(t, "dana@example.com", req.Email)
	assert.Equal(t, "hi", req.Message)
}
