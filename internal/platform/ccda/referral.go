package ccda

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("notblank", validateNotBlank)
}

// ReferralDetails is the caller-supplied free text of a referral note.
type ReferralDetails struct {
	Reason            string     `json:"reason" validate:"notblank"`
	Urgency           string     `json:"urgency,omitempty" validate:"omitempty,oneof=routine urgent emergent"`
	ClinicalHistory   string     `json:"clinical_history,omitempty"`
	RequestedServices []string   `json:"requested_services,omitempty" validate:"dive,notblank"`
	Recipient         *Recipient `json:"recipient,omitempty"`
}

// Recipient is the provider a referral is addressed to. At least a name or
// an organization is required.
type Recipient struct {
	Name         string `json:"name,omitempty" validate:"required_without=Organization"`
	Organization string `json:"organization,omitempty" validate:"required_without=Name"`
	Identifier   string `json:"identifier,omitempty"`
}

// Validate checks the referral details. Failures wrap ErrValidation.
func (r ReferralDetails) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("ccda: referral details: %s: %w", describeValidation(err), ErrValidation)
	}
	return nil
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// describeValidation flattens validator errors into "field: tag" pairs.
func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Namespace()+": "+fe.Tag())
	}
	return strings.Join(parts, ", ")
}
