package ccda

import (
	"encoding/json"
	"time"
)

// Coding is a code, its code system OID, and a display name.
type Coding struct {
	Code    string `json:"code,omitempty"`
	System  string `json:"system,omitempty"`
	Display string `json:"display,omitempty"`
}

func (c Coding) empty() bool { return c.Code == "" && c.Display == "" }

// Identifier is a patient identifier: the assigning authority OID and the value.
type Identifier struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
}

// Address is a postal address.
type Address struct {
	Use        string   `json:"use,omitempty"`
	Lines      []string `json:"lines,omitempty"`
	City       string   `json:"city,omitempty"`
	State      string   `json:"state,omitempty"`
	PostalCode string   `json:"postal_code,omitempty"`
	Country    string   `json:"country,omitempty"`
}

// Patient holds the demographics carried in the record target.
type Patient struct {
	ID          string       `json:"id,omitempty"`
	GivenNames  []string     `json:"given_names,omitempty"`
	FamilyName  string       `json:"family_name,omitempty"`
	Gender      string       `json:"gender,omitempty"` // male, female, other, unknown
	BirthDate   *time.Time   `json:"birth_date,omitempty"`
	Race        *Coding      `json:"race,omitempty"`
	Ethnicity   *Coding      `json:"ethnicity,omitempty"`
	Language    string       `json:"language,omitempty"`
	Address     *Address     `json:"address,omitempty"`
	Phone       string       `json:"phone,omitempty"`
	Identifiers []Identifier `json:"identifiers,omitempty"`
}

// Reaction is a single manifestation of an allergy.
type Reaction struct {
	Coding
}

// Allergy is an allergy or intolerance to a substance.
type Allergy struct {
	ID string `json:"id,omitempty"`
	Coding
	Status    string     `json:"status,omitempty"`
	Onset     *time.Time `json:"onset,omitempty"`
	Reactions []Reaction `json:"reactions,omitempty"`
	// RawReactions is the stored JSON array of reactions. Elements that do
	// not decode are skipped when the allergy is rendered.
	RawReactions json.RawMessage `json:"-"`
}

// Medication is a medication statement.
type Medication struct {
	ID string `json:"id,omitempty"`
	Coding
	Status string     `json:"status,omitempty"`
	Route  *Coding    `json:"route,omitempty"`
	Start  *time.Time `json:"start,omitempty"`
	End    *time.Time `json:"end,omitempty"`
}

// Problem is a condition on the problem list.
type Problem struct {
	ID string `json:"id,omitempty"`
	Coding
	Status   string     `json:"status,omitempty"`
	Onset    *time.Time `json:"onset,omitempty"`
	Resolved *time.Time `json:"resolved,omitempty"`
}

type Procedure struct {
	ID string `json:"id,omitempty"`
	Coding
	Status    string     `json:"status,omitempty"`
	Performed *time.Time `json:"performed,omitempty"`
}

// Result is a laboratory result. Value is numeric when Unit is set and Value
// parses as a number; otherwise it is carried as text.
type Result struct {
	ID string `json:"id,omitempty"`
	Coding
	Panel          *Coding    `json:"panel,omitempty"`
	Value          string     `json:"value,omitempty"`
	Unit           string     `json:"unit,omitempty"`
	Date           *time.Time `json:"date,omitempty"`
	Interpretation string     `json:"interpretation,omitempty"`
	ReferenceRange string     `json:"reference_range,omitempty"`
}

type Vital struct {
	ID string `json:"id,omitempty"`
	Coding
	Value float64    `json:"value"`
	Unit  string     `json:"unit,omitempty"`
	Date  *time.Time `json:"date,omitempty"`
}

// ImmunizationNotDone is the status of a vaccine that was not administered.
const ImmunizationNotDone = "not-done"

type Immunization struct {
	ID string `json:"id,omitempty"`
	Coding
	Status    string     `json:"status,omitempty"`
	Date      *time.Time `json:"date,omitempty"`
	LotNumber string     `json:"lot_number,omitempty"`
}

type Encounter struct {
	ID string `json:"id,omitempty"`
	Coding
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// CarePlanActivity is one planned activity of a care plan.
type CarePlanActivity struct {
	Coding
	Status string `json:"status,omitempty"`
}

type CarePlan struct {
	ID string `json:"id,omitempty"`
	Coding
	Status     string             `json:"status,omitempty"`
	Date       *time.Time         `json:"date,omitempty"`
	Activities []CarePlanActivity `json:"activities,omitempty"`
	// RawActivities is the stored JSON array of activities.
	RawActivities json.RawMessage `json:"-"`
}

type SocialHistory struct {
	ID string `json:"id,omitempty"`
	Coding
	Value string     `json:"value,omitempty"`
	Date  *time.Time `json:"date,omitempty"`
}

// Warning records a value that could not be decoded and was left out.
type Warning struct {
	Category Category `json:"category,omitempty"`
	Field    string   `json:"field"`
	Raw      string   `json:"raw,omitempty"`
	Message  string   `json:"message"`
}

// ParsedDocument is the in-memory form of a clinical document. The Composer
// reads it and the Extractor produces it.
type ParsedDocument struct {
	Kind          DocumentKind `json:"kind,omitempty"`
	Title         string       `json:"title,omitempty"`
	DocumentID    string       `json:"document_id,omitempty"`
	EffectiveTime *time.Time   `json:"effective_time,omitempty"`

	Patient       Patient         `json:"patient"`
	Allergies     []Allergy       `json:"allergies"`
	Medications   []Medication    `json:"medications"`
	Problems      []Problem       `json:"problems"`
	Procedures    []Procedure     `json:"procedures"`
	Results       []Result        `json:"results"`
	Vitals        []Vital         `json:"vital_signs"`
	Immunizations []Immunization  `json:"immunizations"`
	SocialHistory []SocialHistory `json:"social_history"`
	CarePlans     []CarePlan      `json:"plan_of_care"`
	Encounters    []Encounter     `json:"encounters"`

	Warnings []Warning `json:"warnings,omitempty"`
}
