package chart

import (
	"time"

	"github.com/google/uuid"
)

// Observation categories stored in the observation table.
const (
	CategoryLaboratory    = "laboratory"
	CategoryVitalSigns    = "vital-signs"
	CategorySocialHistory = "social-history"
)

// Patient maps to the patient table.
type Patient struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	FHIRID           string     `db:"fhir_id" json:"fhir_id"`
	FirstName        string     `db:"first_name" json:"first_name"`
	MiddleName       *string    `db:"middle_name" json:"middle_name,omitempty"`
	LastName         string     `db:"last_name" json:"last_name"`
	Gender           *string    `db:"gender" json:"gender,omitempty"`
	BirthDate        *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	RaceCode         *string    `db:"race_code" json:"race_code,omitempty"`
	RaceDisplay      *string    `db:"race_display" json:"race_display,omitempty"`
	EthnicityCode    *string    `db:"ethnicity_code" json:"ethnicity_code,omitempty"`
	EthnicityDisplay *string    `db:"ethnicity_display" json:"ethnicity_display,omitempty"`
	PreferredLang    *string    `db:"preferred_language" json:"preferred_language,omitempty"`
	AddressLine1     *string    `db:"address_line1" json:"address_line1,omitempty"`
	AddressLine2     *string    `db:"address_line2" json:"address_line2,omitempty"`
	City             *string    `db:"city" json:"city,omitempty"`
	State            *string    `db:"state" json:"state,omitempty"`
	PostalCode       *string    `db:"postal_code" json:"postal_code,omitempty"`
	Country          *string    `db:"country" json:"country,omitempty"`
	PhoneHome        *string    `db:"phone_home" json:"phone_home,omitempty"`
}

// Identifier maps to the patient_identifier table.
type Identifier struct {
	System string `db:"system_uri" json:"system"`
	Value  string `db:"value" json:"value"`
}

// Allergy maps to the allergy_intolerance table. Reactions holds the stored
// JSON array of reaction codings.
type Allergy struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	FHIRID         string     `db:"fhir_id" json:"fhir_id"`
	CodeSystem     *string    `db:"code_system" json:"code_system,omitempty"`
	Code           *string    `db:"code" json:"code,omitempty"`
	Display        *string    `db:"code_display" json:"code_display,omitempty"`
	ClinicalStatus *string    `db:"clinical_status" json:"clinical_status,omitempty"`
	OnsetDateTime  *time.Time `db:"onset_datetime" json:"onset_datetime,omitempty"`
	Reactions      []byte     `db:"reactions" json:"reactions,omitempty"`
}

// Medication maps to the medication_statement table.
type Medication struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	FHIRID         string     `db:"fhir_id" json:"fhir_id"`
	CodeSystem     *string    `db:"code_system" json:"code_system,omitempty"`
	Code           *string    `db:"code" json:"code,omitempty"`
	Display        *string    `db:"code_display" json:"code_display,omitempty"`
	Status         string     `db:"status" json:"status"`
	RouteCode      *string    `db:"route_code" json:"route_code,omitempty"`
	RouteDisplay   *string    `db:"route_display" json:"route_display,omitempty"`
	EffectiveStart *time.Time `db:"effective_start" json:"effective_start,omitempty"`
	EffectiveEnd   *time.Time `db:"effective_end" json:"effective_end,omitempty"`
}

// Condition maps to the condition table.
type Condition struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	FHIRID            string     `db:"fhir_id" json:"fhir_id"`
	CodeSystem        *string    `db:"code_system" json:"code_system,omitempty"`
	Code              *string    `db:"code" json:"code,omitempty"`
	Display           *string    `db:"code_display" json:"code_display,omitempty"`
	ClinicalStatus    string     `db:"clinical_status" json:"clinical_status"`
	OnsetDateTime     *time.Time `db:"onset_datetime" json:"onset_datetime,omitempty"`
	AbatementDateTime *time.Time `db:"abatement_datetime" json:"abatement_datetime,omitempty"`
}

// Procedure maps to the procedure_record table.
type Procedure struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	FHIRID            string     `db:"fhir_id" json:"fhir_id"`
	CodeSystem        *string    `db:"code_system" json:"code_system,omitempty"`
	Code              *string    `db:"code" json:"code,omitempty"`
	Display           *string    `db:"code_display" json:"code_display,omitempty"`
	Status            string     `db:"status" json:"status"`
	PerformedDateTime *time.Time `db:"performed_datetime" json:"performed_datetime,omitempty"`
}

// Observation maps to the observation table. Category is one of the
// Category* constants.
type Observation struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	FHIRID             string     `db:"fhir_id" json:"fhir_id"`
	Category           string     `db:"category" json:"category"`
	CodeSystem         *string    `db:"code_system" json:"code_system,omitempty"`
	Code               *string    `db:"code" json:"code,omitempty"`
	Display            *string    `db:"code_display" json:"code_display,omitempty"`
	PanelCode          *string    `db:"panel_code" json:"panel_code,omitempty"`
	PanelDisplay       *string    `db:"panel_display" json:"panel_display,omitempty"`
	ValueQuantity      *float64   `db:"value_quantity" json:"value_quantity,omitempty"`
	ValueUnit          *string    `db:"value_unit" json:"value_unit,omitempty"`
	ValueString        *string    `db:"value_string" json:"value_string,omitempty"`
	InterpretationCode *string    `db:"interpretation_code" json:"interpretation_code,omitempty"`
	ReferenceRangeText *string    `db:"reference_range_text" json:"reference_range_text,omitempty"`
	EffectiveDateTime  *time.Time `db:"effective_datetime" json:"effective_datetime,omitempty"`
}

// Immunization maps to the immunization table.
type Immunization struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	FHIRID             string     `db:"fhir_id" json:"fhir_id"`
	VaccineCodeSystem  *string    `db:"vaccine_code_system" json:"vaccine_code_system,omitempty"`
	VaccineCode        *string    `db:"vaccine_code" json:"vaccine_code,omitempty"`
	VaccineDisplay     *string    `db:"vaccine_display" json:"vaccine_display,omitempty"`
	Status             string     `db:"status" json:"status"`
	OccurrenceDateTime *time.Time `db:"occurrence_datetime" json:"occurrence_datetime,omitempty"`
	LotNumber          *string    `db:"lot_number" json:"lot_number,omitempty"`
}

// CarePlan maps to the care_plan table. Activities holds the stored JSON
// array of planned activities.
type CarePlan struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	FHIRID     string     `db:"fhir_id" json:"fhir_id"`
	CodeSystem *string    `db:"code_system" json:"code_system,omitempty"`
	Code       *string    `db:"code" json:"code,omitempty"`
	Display    *string    `db:"code_display" json:"code_display,omitempty"`
	Status     string     `db:"status" json:"status"`
	Created    *time.Time `db:"created" json:"created,omitempty"`
	Activities []byte     `db:"activities" json:"activities,omitempty"`
}

// Encounter maps to the encounter table.
type Encounter struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	FHIRID       string     `db:"fhir_id" json:"fhir_id"`
	ClassCode    string     `db:"class_code" json:"class_code"`
	ClassDisplay *string    `db:"class_display" json:"class_display,omitempty"`
	PeriodStart  *time.Time `db:"period_start" json:"period_start,omitempty"`
	PeriodEnd    *time.Time `db:"period_end" json:"period_end,omitempty"`
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
