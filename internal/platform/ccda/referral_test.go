package ccda

import (
	"errors"
	"strings"
	"testing"
)

func TestReferralDetails_Validate(t *testing.T) {
	tests := []struct {
		name    string
		details ReferralDetails
		wantErr string
	}{
		{"minimal", ReferralDetails{Reason: "Follow-up"}, ""},
		{"full", ReferralDetails{
			Reason:            "Chest pain",
			Urgency:           "emergent",
			RequestedServices: []string{"ECG"},
			Recipient:         &Recipient{Organization: "Cardiology Associates"},
		}, ""},
		{"blank reason", ReferralDetails{Reason: "   "}, "Reason: notblank"},
		{"unknown urgency", ReferralDetails{Reason: "x", Urgency: "whenever"}, "Urgency: oneof"},
		{"blank service", ReferralDetails{Reason: "x", RequestedServices: []string{"ECG", ""}}, "RequestedServices[1]: notblank"},
		{"anonymous recipient", ReferralDetails{Reason: "x", Recipient: &Recipient{Identifier: "NPI-1"}}, "Recipient.Name: required_without"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.details.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected %q in %q", tt.wantErr, err.Error())
			}
		})
	}
}
