package chart

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-test/deep"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/ehr/clinicaldocs/internal/platform/ccda"
)

// =========== Mock Repository ===========

type mockRepo struct {
	patients      map[string]*Patient
	identifiers   map[uuid.UUID][]*Identifier
	allergies     []*Allergy
	medications   []*Medication
	conditions    []*Condition
	procedures    []*Procedure
	observations  []*Observation
	immunizations []*Immunization
	carePlans     []*CarePlan
	encounters    map[string][]*Encounter
	err           error
}

func (m *mockRepo) GetPatient(_ context.Context, fhirID string) (*Patient, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.patients[fhirID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockRepo) ListIdentifiers(_ context.Context, patientID uuid.UUID) ([]*Identifier, error) {
	return m.identifiers[patientID], nil
}

func (m *mockRepo) ListAllergies(context.Context, string) ([]*Allergy, error) {
	return m.allergies, m.err
}

func (m *mockRepo) ListMedications(context.Context, string) ([]*Medication, error) {
	return m.medications, m.err
}

func (m *mockRepo) ListConditions(context.Context, string) ([]*Condition, error) {
	return m.conditions, m.err
}

func (m *mockRepo) ListProcedures(context.Context, string) ([]*Procedure, error) {
	return m.procedures, m.err
}

func (m *mockRepo) ListObservations(_ context.Context, _ string, category string) ([]*Observation, error) {
	var out []*Observation
	for _, o := range m.observations {
		if o.Category == category {
			out = append(out, o)
		}
	}
	return out, m.err
}

func (m *mockRepo) ListImmunizations(context.Context, string) ([]*Immunization, error) {
	return m.immunizations, m.err
}

func (m *mockRepo) ListCarePlans(context.Context, string) ([]*CarePlan, error) {
	return m.carePlans, m.err
}

func (m *mockRepo) ListEncounters(_ context.Context, patientFHIRID string) ([]*Encounter, error) {
	return m.encounters[patientFHIRID], m.err
}

func (m *mockRepo) GetEncounter(_ context.Context, patientFHIRID, encounterFHIRID string) (*Encounter, error) {
	for _, e := range m.encounters[patientFHIRID] {
		if e.FHIRID == encounterFHIRID {
			return e, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func ptr[T any](v T) *T { return &v }

// =========== Tests ===========

func TestSource_FetchPatient(t *testing.T) {
	id := uuid.New()
	birth := time.Date(1980, 1, 15, 0, 0, 0, 0, time.UTC)
	repo := &mockRepo{
		patients: map[string]*Patient{"patient-123": {
			ID:            id,
			FHIRID:        "patient-123",
			FirstName:     "John",
			MiddleName:    ptr("Q"),
			LastName:      "Smith",
			Gender:        ptr("male"),
			BirthDate:     &birth,
			RaceCode:      ptr("2106-3"),
			RaceDisplay:   ptr("White"),
			PreferredLang: ptr("en"),
			AddressLine1:  ptr("123 Main St"),
			City:          ptr("Springfield"),
			PhoneHome:     ptr("+1-555-555-0100"),
		}},
		identifiers: map[uuid.UUID][]*Identifier{id: {{System: "2.16.840.1.113883.4.1", Value: "999-99-9999"}}},
	}

	got, err := NewSource(repo).FetchPatient(context.Background(), "patient-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := &ccda.Patient{
		ID:          "patient-123",
		GivenNames:  []string{"John", "Q"},
		FamilyName:  "Smith",
		Gender:      "male",
		BirthDate:   &birth,
		Race:        &ccda.Coding{Code: "2106-3", System: ccda.OIDRaceEthnicity, Display: "White"},
		Language:    "en",
		Address:     &ccda.Address{Use: "HP", Lines: []string{"123 Main St"}, City: "Springfield"},
		Phone:       "+1-555-555-0100",
		Identifiers: []ccda.Identifier{{System: "2.16.840.1.113883.4.1", Value: "999-99-9999"}},
	}
	if diff := deep.Equal(got, want); diff != nil {
		t.Error(diff)
	}
}

func TestSource_FetchPatient_NoAddress(t *testing.T) {
	repo := &mockRepo{patients: map[string]*Patient{"p": {FHIRID: "p", LastName: "Doe"}}}
	got, err := NewSource(repo).FetchPatient(context.Background(), "p")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Address != nil {
		t.Errorf("expected no address, got %+v", got.Address)
	}
}

func TestSource_NotFoundMapping(t *testing.T) {
	src := NewSource(&mockRepo{})
	if _, err := src.FetchPatient(context.Background(), "nobody"); !errors.Is(err, ccda.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing patient, got %v", err)
	}
	if _, err := src.FetchEncounter(context.Background(), "nobody", "enc-1"); !errors.Is(err, ccda.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing encounter, got %v", err)
	}
}

func TestSource_OtherErrorsAreNotNotFound(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := NewSource(&mockRepo{err: boom}).FetchPatient(context.Background(), "p")
	if !errors.Is(err, boom) || errors.Is(err, ccda.ErrNotFound) {
		t.Errorf("expected the storage error, got %v", err)
	}
}

func TestSource_FetchEncounter_ScopedToPatient(t *testing.T) {
	repo := &mockRepo{encounters: map[string][]*Encounter{
		"patient-123": {{FHIRID: "enc-1", ClassCode: "IMP", ClassDisplay: ptr("inpatient encounter")}},
		"patient-456": {{FHIRID: "enc-9", ClassCode: "AMB"}},
	}}
	src := NewSource(repo)

	e, err := src.FetchEncounter(context.Background(), "patient-123", "enc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ID != "enc-1" || e.Code != "IMP" || e.System != ccda.OIDActCode || e.Display != "inpatient encounter" {
		t.Errorf("unexpected encounter %+v", e)
	}
	if _, err := src.FetchEncounter(context.Background(), "patient-123", "enc-9"); !errors.Is(err, ccda.ErrNotFound) {
		t.Errorf("expected ErrNotFound for another patient's encounter, got %v", err)
	}
}

func TestSource_FetchAllergies_CarriesStoredReactions(t *testing.T) {
	raw := json.RawMessage(`[{"code":"247472004","display":"Hives"}]`)
	repo := &mockRepo{allergies: []*Allergy{{
		FHIRID:         "allergy-1",
		Code:           ptr("7980"),
		CodeSystem:     ptr(ccda.OIDRxNorm),
		Display:        ptr("Penicillin"),
		ClinicalStatus: ptr("active"),
		Reactions:      raw,
	}}}
	got, err := NewSource(repo).FetchAllergies(context.Background(), "patient-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "allergy-1" || got[0].Status != "active" || string(got[0].RawReactions) != string(raw) {
		t.Errorf("unexpected allergies %+v", got)
	}
}

func TestSource_FetchMedications_Route(t *testing.T) {
	repo := &mockRepo{medications: []*Medication{
		{FHIRID: "m1", Code: ptr("197361"), Status: "active", RouteCode: ptr("C38288"), RouteDisplay: ptr("Oral")},
		{FHIRID: "m2", Code: ptr("860975"), Status: "completed"},
	}}
	got, err := NewSource(repo).FetchMedications(context.Background(), "p")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].Route == nil || got[0].Route.Code != "C38288" {
		t.Errorf("expected route C38288, got %+v", got[0].Route)
	}
	if got[1].Route != nil {
		t.Errorf("expected no route, got %+v", got[1].Route)
	}
}

func TestSource_Observations(t *testing.T) {
	at := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	repo := &mockRepo{observations: []*Observation{
		{FHIRID: "o1", Category: CategoryLaboratory, Code: ptr("2345-7"), Display: ptr("Glucose"),
			PanelCode: ptr("24323-8"), PanelDisplay: ptr("Metabolic panel"),
			ValueQuantity: ptr(95.0), ValueUnit: ptr("mg/dL"), InterpretationCode: ptr("N"), EffectiveDateTime: &at},
		{FHIRID: "o2", Category: CategoryLaboratory, Code: ptr("5778-6"), ValueString: ptr("Yellow")},
		{FHIRID: "v1", Category: CategoryVitalSigns, Code: ptr("8480-6"), ValueQuantity: ptr(120.0), ValueUnit: ptr("mm[Hg]")},
		{FHIRID: "v2", Category: CategoryVitalSigns, Code: ptr("8302-2")},
		{FHIRID: "s1", Category: CategorySocialHistory, Code: ptr("72166-2"), ValueString: ptr("Never smoker")},
		{FHIRID: "s2", Category: CategorySocialHistory, Code: ptr("11331-6"), ValueQuantity: ptr(2.0), ValueUnit: ptr("/d")},
	}}
	src := NewSource(repo)
	ctx := context.Background()

	results, err := src.FetchResults(ctx, "p")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantResults := []ccda.Result{
		{ID: "o1", Coding: ccda.Coding{Code: "2345-7", Display: "Glucose"},
			Panel: &ccda.Coding{Code: "24323-8", System: ccda.OIDLOINC, Display: "Metabolic panel"},
			Value: "95", Unit: "mg/dL", Interpretation: "N", Date: &at},
		{ID: "o2", Coding: ccda.Coding{Code: "5778-6"}, Value: "Yellow"},
	}
	if diff := deep.Equal(results, wantResults); diff != nil {
		t.Errorf("results: %v", diff)
	}

	vitals, err := src.FetchVitals(ctx, "p")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vitals) != 1 || vitals[0].Value != 120 || vitals[0].Unit != "mm[Hg]" {
		t.Errorf("expected only the valued vital, got %+v", vitals)
	}

	social, err := src.FetchSocialHistory(ctx, "p")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(social) != 2 || social[0].Value != "Never smoker" || social[1].Value != "2 /d" {
		t.Errorf("unexpected social history %+v", social)
	}
}

func TestSource_ListErrorsPropagate(t *testing.T) {
	boom := errors.New("timeout")
	src := NewSource(&mockRepo{err: boom})
	ctx := context.Background()

	if _, err := src.FetchConditions(ctx, "p"); !errors.Is(err, boom) {
		t.Errorf("conditions: expected %v, got %v", boom, err)
	}
	if _, err := src.FetchImmunizations(ctx, "p"); !errors.Is(err, boom) {
		t.Errorf("immunizations: expected %v, got %v", boom, err)
	}
	if _, err := src.FetchCarePlans(ctx, "p"); !errors.Is(err, boom) {
		t.Errorf("care plans: expected %v, got %v", boom, err)
	}
}

func TestSource_EndToEndDocument(t *testing.T) {
	id := uuid.New()
	onset := time.Date(2019, 3, 15, 0, 0, 0, 0, time.UTC)
	repo := &mockRepo{
		patients: map[string]*Patient{"patient-123": {ID: id, FHIRID: "patient-123", FirstName: "Jane", LastName: "Roe"}},
		conditions: []*Condition{
			{FHIRID: "cond-1", Code: ptr("38341003"), Display: ptr("Hypertension"), ClinicalStatus: "active", OnsetDateTime: &onset},
		},
		immunizations: []*Immunization{
			{FHIRID: "imm-1", VaccineCode: ptr("03"), VaccineDisplay: ptr("MMR"), Status: ccda.ImmunizationNotDone},
		},
		encounters: map[string][]*Encounter{"patient-123": {{FHIRID: "enc-1", ClassCode: "IMP"}}},
	}
	ids := ccda.IDGenerator(ccda.UUIDGenerator)
	composer := ccda.NewComposer(ccda.NewBuilder(ids, "2.16.840.1.113883.3.1234", zerolog.Nop()), ids,
		ccda.OrgInfo{Name: "Test Hospital", OID: "2.16.840.1.113883.3.1234"})
	svc := ccda.NewService(NewSource(repo), composer, ccda.NewExtractor(zerolog.Nop(), "2.16.840.1.113883.3.1234", true), zerolog.Nop())

	out, err := svc.GenerateDischargeSummary(context.Background(), "patient-123", "enc-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	doc, err := svc.ParseDocument(context.Background(), out)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(doc.Problems) != 1 || doc.Problems[0].ID != "cond-1" || doc.Problems[0].Status != "active" {
		t.Errorf("unexpected problems %+v", doc.Problems)
	}
	if len(doc.Immunizations) != 1 || doc.Immunizations[0].Status != ccda.ImmunizationNotDone {
		t.Errorf("unexpected immunizations %+v", doc.Immunizations)
	}
}
