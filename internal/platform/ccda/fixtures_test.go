package ccda

import (
	"context"
	"encoding/xml"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const testOrgOID = "2.16.840.1.113883.3.1234"

// =========== Fakes ===========

// seqIDs returns an IDGenerator producing predictable UUID-shaped ids.
func seqIDs() IDGenerator {
	n := 0
	return func() (string, error) {
		n++
		return fmt.Sprintf("00000000-0000-4000-8000-%012d", n), nil
	}
}

func failingIDs(after int) IDGenerator {
	n := 0
	return func() (string, error) {
		n++
		if n > after {
			return "", fmt.Errorf("entropy exhausted")
		}
		return fmt.Sprintf("id-%d", n), nil
	}
}

type mockSource struct {
	patient    *Patient
	chart      *ParsedDocument
	encounters map[string]*Encounter
	err        error
	calls      int
}

func (m *mockSource) FetchPatient(ctx context.Context, patientID string) (*Patient, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.patient == nil || m.patient.ID != patientID {
		return nil, fmt.Errorf("patient %s: %w", patientID, ErrNotFound)
	}
	p := *m.patient
	return &p, nil
}

func (m *mockSource) FetchAllergies(ctx context.Context, patientID string) ([]Allergy, error) {
	m.calls++
	return m.chart.Allergies, nil
}

func (m *mockSource) FetchMedications(ctx context.Context, patientID string) ([]Medication, error) {
	m.calls++
	return m.chart.Medications, nil
}

func (m *mockSource) FetchConditions(ctx context.Context, patientID string) ([]Problem, error) {
	m.calls++
	return m.chart.Problems, nil
}

func (m *mockSource) FetchProcedures(ctx context.Context, patientID string) ([]Procedure, error) {
	m.calls++
	return m.chart.Procedures, nil
}

func (m *mockSource) FetchResults(ctx context.Context, patientID string) ([]Result, error) {
	m.calls++
	return m.chart.Results, nil
}

func (m *mockSource) FetchVitals(ctx context.Context, patientID string) ([]Vital, error) {
	m.calls++
	return m.chart.Vitals, nil
}

func (m *mockSource) FetchImmunizations(ctx context.Context, patientID string) ([]Immunization, error) {
	m.calls++
	return m.chart.Immunizations, nil
}

func (m *mockSource) FetchSocialHistory(ctx context.Context, patientID string) ([]SocialHistory, error) {
	m.calls++
	return m.chart.SocialHistory, nil
}

func (m *mockSource) FetchCarePlans(ctx context.Context, patientID string) ([]CarePlan, error) {
	m.calls++
	return m.chart.CarePlans, nil
}

func (m *mockSource) FetchEncounters(ctx context.Context, patientID string) ([]Encounter, error) {
	m.calls++
	return m.chart.Encounters, nil
}

func (m *mockSource) FetchEncounter(ctx context.Context, patientID, encounterID string) (*Encounter, error) {
	m.calls++
	e, ok := m.encounters[patientID+"/"+encounterID]
	if !ok {
		return nil, fmt.Errorf("encounter %s: %w", encounterID, ErrNotFound)
	}
	return e, nil
}

// =========== Fixtures ===========

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func testPatient() Patient {
	return Patient{
		ID:         "patient-123",
		GivenNames: []string{"John", "Q"},
		FamilyName: "Smith",
		Gender:     "male",
		BirthDate:  ts("1980-01-15T00:00:00Z"),
		Race:       &Coding{Code: "2106-3", System: OIDRaceEthnicity, Display: "White"},
		Ethnicity:  &Coding{Code: "2186-5", System: OIDRaceEthnicity, Display: "Not Hispanic or Latino"},
		Language:   "en",
		Address: &Address{
			Use:        "HP",
			Lines:      []string{"123 Main St"},
			City:       "Springfield",
			State:      "IL",
			PostalCode: "62701",
			Country:    "US",
		},
		Phone:       "+1-555-555-0100",
		Identifiers: []Identifier{{System: "2.16.840.1.113883.4.1", Value: "999-99-9999"}},
	}
}

func fullChart() *ParsedDocument {
	return &ParsedDocument{
		Patient: testPatient(),
		Allergies: []Allergy{
			{
				ID:     "allergy-1",
				Coding: Coding{Code: "7980", System: OIDRxNorm, Display: "Penicillin"},
				Status: "active",
				Onset:  ts("2020-05-01T10:00:00Z"),
				Reactions: []Reaction{
					{Coding: Coding{Code: "247472004", System: OIDSNOMED, Display: "Hives"}},
				},
			},
			{
				Coding: Coding{Code: "1191", System: OIDRxNorm, Display: "Aspirin"},
				Status: "inactive",
				Onset:  ts("2018-02-03T04:05:06Z"),
			},
		},
		Medications: []Medication{
			{
				ID:     "med-1",
				Coding: Coding{Code: "197361", System: OIDRxNorm, Display: "Amlodipine 5 MG Oral Tablet"},
				Status: "active",
				Route:  &Coding{Code: "C38288", System: OIDNCIThesaurus, Display: "Oral"},
				Start:  ts("2023-01-10T08:00:00Z"),
			},
			{
				Coding: Coding{Code: "860975", System: OIDRxNorm, Display: "Metformin 500 MG"},
				Status: "completed",
				Start:  ts("2021-06-01T00:00:00Z"),
				End:    ts("2022-06-01T00:00:00Z"),
			},
		},
		Problems: []Problem{
			{
				ID:     "cond-1",
				Coding: Coding{Code: "38341003", System: OIDSNOMED, Display: "Hypertension"},
				Status: "active",
				Onset:  ts("2019-03-15T00:00:00Z"),
			},
			{
				Coding:   Coding{Code: "195662009", System: OIDSNOMED, Display: "Acute viral pharyngitis"},
				Status:   "resolved",
				Onset:    ts("2022-11-01T00:00:00Z"),
				Resolved: ts("2022-11-14T00:00:00Z"),
			},
		},
		Procedures: []Procedure{
			{Coding: Coding{Code: "80146002", System: OIDSNOMED, Display: "Appendectomy"}, Status: "completed", Performed: ts("2015-07-04T12:00:00Z")},
		},
		Results: []Result{
			{
				Coding:         Coding{Code: "2345-7", System: OIDLOINC, Display: "Glucose"},
				Panel:          &Coding{Code: "24323-8", System: OIDLOINC, Display: "Comprehensive metabolic panel"},
				Value:          "95",
				Unit:           "mg/dL",
				Date:           ts("2024-01-15T09:30:00Z"),
				Interpretation: "N",
				ReferenceRange: "70-99 mg/dL",
			},
			{
				Coding: Coding{Code: "2160-0", System: OIDLOINC, Display: "Creatinine"},
				Panel:  &Coding{Code: "24323-8", System: OIDLOINC, Display: "Comprehensive metabolic panel"},
				Value:  "1.1",
				Unit:   "mg/dL",
				Date:   ts("2024-01-15T09:30:00Z"),
			},
			{
				Coding: Coding{Code: "5778-6", System: OIDLOINC, Display: "Color of Urine"},
				Value:  "Yellow",
				Date:   ts("2024-01-10T09:30:00Z"),
			},
			{
				Coding: Coding{Code: "8014-3", System: OIDLOINC, Display: "Rubella virus IgG Ab [Titer]"},
				Value:  "1:40",
				Unit:   "{titer}",
				Date:   ts("2024-01-08T08:00:00Z"),
			},
		},
		Vitals: []Vital{
			{Coding: Coding{Code: "8480-6", System: OIDLOINC, Display: "Systolic blood pressure"}, Value: 120, Unit: "mm[Hg]", Date: ts("2024-01-15T09:00:00Z")},
			{Coding: Coding{Code: "8462-4", System: OIDLOINC, Display: "Diastolic blood pressure"}, Value: 80, Unit: "mm[Hg]", Date: ts("2024-01-15T09:00:00Z")},
			{Coding: Coding{Code: "8310-5", System: OIDLOINC, Display: "Body temperature"}, Value: 36.8, Unit: "Cel", Date: ts("2024-01-10T09:00:00Z")},
		},
		Immunizations: []Immunization{
			{Coding: Coding{Code: "140", System: OIDCVX, Display: "Influenza, seasonal"}, Status: "completed", Date: ts("2023-10-01T10:00:00Z"), LotNumber: "LOT123"},
			{Coding: Coding{Code: "03", System: OIDCVX, Display: "MMR"}, Status: ImmunizationNotDone, Date: ts("2023-11-01T10:00:00Z")},
		},
		SocialHistory: []SocialHistory{
			{Coding: Coding{Code: "72166-2", System: OIDLOINC, Display: "Tobacco smoking status"}, Value: "Never smoker", Date: ts("2024-01-15T00:00:00Z")},
		},
		CarePlans: []CarePlan{
			{
				Coding: Coding{Code: "698360004", System: OIDSNOMED, Display: "Diabetes self management plan"},
				Status: "active",
				Date:   ts("2024-01-20T00:00:00Z"),
				Activities: []CarePlanActivity{
					{Coding: Coding{Code: "229065009", System: OIDSNOMED, Display: "Exercise therapy"}, Status: "active"},
				},
			},
		},
		Encounters: []Encounter{
			{ID: "enc-1", Coding: Coding{Code: "IMP", System: OIDActCode, Display: "inpatient encounter"}, Start: ts("2024-01-14T08:00:00Z"), End: ts("2024-01-16T12:00:00Z")},
		},
	}
}

func newTestBuilder() *Builder {
	return NewBuilder(seqIDs(), testOrgOID, zerolog.Nop())
}

func newTestComposer() *Composer {
	ids := seqIDs()
	c := NewComposer(NewBuilder(ids, testOrgOID, zerolog.Nop()), ids, OrgInfo{
		Name:         "Test Hospital",
		OID:          testOrgOID,
		SoftwareName: "clinicaldocs",
	})
	c.now = func() time.Time { return time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC) }
	return c
}

// unmarshalDocument decodes generated output with encoding/xml for structural
// assertions.
func unmarshalDocument(t *testing.T, data []byte) *ClinicalDocument {
	t.Helper()
	var doc ClinicalDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("generated document is not well-formed: %v", err)
	}
	return &doc
}

func sectionsOf(doc *ClinicalDocument) []*Section {
	if doc.Component == nil || doc.Component.StructuredBody == nil {
		return nil
	}
	var out []*Section
	for _, c := range doc.Component.StructuredBody.Components {
		out = append(out, c.Section)
	}
	return out
}
