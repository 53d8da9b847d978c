package chart

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/ehr/clinicaldocs/internal/platform/ccda"
)

// Source serves a chart Repository as a ccda.DataSource.
type Source struct {
	repo Repository
}

func NewSource(repo Repository) *Source {
	return &Source{repo: repo}
}

var _ ccda.DataSource = (*Source)(nil)

func notFound(kind, id string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, ccda.ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", kind, id, err)
}

func (s *Source) FetchPatient(ctx context.Context, patientID string) (*ccda.Patient, error) {
	row, err := s.repo.GetPatient(ctx, patientID)
	if err != nil {
		return nil, notFound("patient", patientID, err)
	}
	ids, err := s.repo.ListIdentifiers(ctx, row.ID)
	if err != nil {
		return nil, fmt.Errorf("patient %s identifiers: %w", patientID, err)
	}

	p := &ccda.Patient{
		ID:         row.FHIRID,
		FamilyName: row.LastName,
		Gender:     strVal(row.Gender),
		BirthDate:  row.BirthDate,
		Language:   strVal(row.PreferredLang),
		Phone:      strVal(row.PhoneHome),
		Address:    address(row),
	}
	if row.FirstName != "" {
		p.GivenNames = append(p.GivenNames, row.FirstName)
	}
	if m := strVal(row.MiddleName); m != "" {
		p.GivenNames = append(p.GivenNames, m)
	}
	if c := strVal(row.RaceCode); c != "" {
		p.Race = &ccda.Coding{Code: c, System: ccda.OIDRaceEthnicity, Display: strVal(row.RaceDisplay)}
	}
	if c := strVal(row.EthnicityCode); c != "" {
		p.Ethnicity = &ccda.Coding{Code: c, System: ccda.OIDRaceEthnicity, Display: strVal(row.EthnicityDisplay)}
	}
	for _, id := range ids {
		p.Identifiers = append(p.Identifiers, ccda.Identifier{System: id.System, Value: id.Value})
	}
	return p, nil
}

func address(row *Patient) *ccda.Address {
	a := ccda.Address{
		Use:        "HP",
		City:       strVal(row.City),
		State:      strVal(row.State),
		PostalCode: strVal(row.PostalCode),
		Country:    strVal(row.Country),
	}
	for _, l := range []*string{row.AddressLine1, row.AddressLine2} {
		if v := strVal(l); v != "" {
			a.Lines = append(a.Lines, v)
		}
	}
	if len(a.Lines) == 0 && a.City == "" && a.State == "" && a.PostalCode == "" && a.Country == "" {
		return nil
	}
	return &a
}

func coding(system, code, display *string) ccda.Coding {
	return ccda.Coding{Code: strVal(code), System: strVal(system), Display: strVal(display)}
}

func (s *Source) FetchAllergies(ctx context.Context, patientID string) ([]ccda.Allergy, error) {
	rows, err := s.repo.ListAllergies(ctx, patientID)
	if err != nil {
		return nil, err
	}
	out := make([]ccda.Allergy, 0, len(rows))
	for _, r := range rows {
		out = append(out, ccda.Allergy{
			ID:           r.FHIRID,
			Coding:       coding(r.CodeSystem, r.Code, r.Display),
			Status:       strVal(r.ClinicalStatus),
			Onset:        r.OnsetDateTime,
			RawReactions: r.Reactions,
		})
	}
	return out, nil
}

func (s *Source) FetchMedications(ctx context.Context, patientID string) ([]ccda.Medication, error) {
	rows, err := s.repo.ListMedications(ctx, patientID)
	if err != nil {
		return nil, err
	}
	out := make([]ccda.Medication, 0, len(rows))
	for _, r := range rows {
		m := ccda.Medication{
			ID:     r.FHIRID,
			Coding: coding(r.CodeSystem, r.Code, r.Display),
			Status: r.Status,
			Start:  r.EffectiveStart,
			End:    r.EffectiveEnd,
		}
		if r.RouteCode != nil || r.RouteDisplay != nil {
			route := coding(nil, r.RouteCode, r.RouteDisplay)
			m.Route = &route
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Source) FetchConditions(ctx context.Context, patientID string) ([]ccda.Problem, error) {
	rows, err := s.repo.ListConditions(ctx, patientID)
	if err != nil {
		return nil, err
	}
	out := make([]ccda.Problem, 0, len(rows))
	for _, r := range rows {
		out = append(out, ccda.Problem{
			ID:       r.FHIRID,
			Coding:   coding(r.CodeSystem, r.Code, r.Display),
			Status:   r.ClinicalStatus,
			Onset:    r.OnsetDateTime,
			Resolved: r.AbatementDateTime,
		})
	}
	return out, nil
}

func (s *Source) FetchProcedures(ctx context.Context, patientID string) ([]ccda.Procedure, error) {
	rows, err := s.repo.ListProcedures(ctx, patientID)
	if err != nil {
		return nil, err
	}
	out := make([]ccda.Procedure, 0, len(rows))
	for _, r := range rows {
		out = append(out, ccda.Procedure{
			ID:        r.FHIRID,
			Coding:    coding(r.CodeSystem, r.Code, r.Display),
			Status:    r.Status,
			Performed: r.PerformedDateTime,
		})
	}
	return out, nil
}

func (s *Source) FetchResults(ctx context.Context, patientID string) ([]ccda.Result, error) {
	rows, err := s.repo.ListObservations(ctx, patientID, CategoryLaboratory)
	if err != nil {
		return nil, err
	}
	out := make([]ccda.Result, 0, len(rows))
	for _, r := range rows {
		res := ccda.Result{
			ID:             r.FHIRID,
			Coding:         coding(r.CodeSystem, r.Code, r.Display),
			Date:           r.EffectiveDateTime,
			Interpretation: strVal(r.InterpretationCode),
			ReferenceRange: strVal(r.ReferenceRangeText),
		}
		if r.PanelCode != nil {
			res.Panel = &ccda.Coding{Code: *r.PanelCode, System: ccda.OIDLOINC, Display: strVal(r.PanelDisplay)}
		}
		res.Value, res.Unit = observationValue(r)
		out = append(out, res)
	}
	return out, nil
}

// FetchVitals skips readings without a numeric value.
func (s *Source) FetchVitals(ctx context.Context, patientID string) ([]ccda.Vital, error) {
	rows, err := s.repo.ListObservations(ctx, patientID, CategoryVitalSigns)
	if err != nil {
		return nil, err
	}
	out := make([]ccda.Vital, 0, len(rows))
	for _, r := range rows {
		if r.ValueQuantity == nil {
			continue
		}
		out = append(out, ccda.Vital{
			ID:     r.FHIRID,
			Coding: coding(r.CodeSystem, r.Code, r.Display),
			Value:  *r.ValueQuantity,
			Unit:   strVal(r.ValueUnit),
			Date:   r.EffectiveDateTime,
		})
	}
	return out, nil
}

func (s *Source) FetchSocialHistory(ctx context.Context, patientID string) ([]ccda.SocialHistory, error) {
	rows, err := s.repo.ListObservations(ctx, patientID, CategorySocialHistory)
	if err != nil {
		return nil, err
	}
	out := make([]ccda.SocialHistory, 0, len(rows))
	for _, r := range rows {
		value, unit := observationValue(r)
		if unit != "" {
			value += " " + unit
		}
		out = append(out, ccda.SocialHistory{
			ID:     r.FHIRID,
			Coding: coding(r.CodeSystem, r.Code, r.Display),
			Value:  value,
			Date:   r.EffectiveDateTime,
		})
	}
	return out, nil
}

// observationValue prefers the quantity over the string value.
func observationValue(r *Observation) (value, unit string) {
	if r.ValueQuantity != nil {
		return strconv.FormatFloat(*r.ValueQuantity, 'f', -1, 64), strVal(r.ValueUnit)
	}
	return strVal(r.ValueString), ""
}

func (s *Source) FetchImmunizations(ctx context.Context, patientID string) ([]ccda.Immunization, error) {
	rows, err := s.repo.ListImmunizations(ctx, patientID)
	if err != nil {
		return nil, err
	}
	out := make([]ccda.Immunization, 0, len(rows))
	for _, r := range rows {
		out = append(out, ccda.Immunization{
			ID:        r.FHIRID,
			Coding:    coding(r.VaccineCodeSystem, r.VaccineCode, r.VaccineDisplay),
			Status:    r.Status,
			Date:      r.OccurrenceDateTime,
			LotNumber: strVal(r.LotNumber),
		})
	}
	return out, nil
}

func (s *Source) FetchCarePlans(ctx context.Context, patientID string) ([]ccda.CarePlan, error) {
	rows, err := s.repo.ListCarePlans(ctx, patientID)
	if err != nil {
		return nil, err
	}
	out := make([]ccda.CarePlan, 0, len(rows))
	for _, r := range rows {
		out = append(out, ccda.CarePlan{
			ID:            r.FHIRID,
			Coding:        coding(r.CodeSystem, r.Code, r.Display),
			Status:        r.Status,
			Date:          r.Created,
			RawActivities: r.Activities,
		})
	}
	return out, nil
}

func (s *Source) FetchEncounters(ctx context.Context, patientID string) ([]ccda.Encounter, error) {
	rows, err := s.repo.ListEncounters(ctx, patientID)
	if err != nil {
		return nil, err
	}
	out := make([]ccda.Encounter, 0, len(rows))
	for _, r := range rows {
		out = append(out, encounter(r))
	}
	return out, nil
}

// FetchEncounter reports ccda.ErrNotFound both for unknown encounters and for
// encounters of another patient.
func (s *Source) FetchEncounter(ctx context.Context, patientID, encounterID string) (*ccda.Encounter, error) {
	row, err := s.repo.GetEncounter(ctx, patientID, encounterID)
	if err != nil {
		return nil, notFound("encounter", encounterID, err)
	}
	e := encounter(row)
	return &e, nil
}

func encounter(r *Encounter) ccda.Encounter {
	return ccda.Encounter{
		ID:     r.FHIRID,
		Coding: ccda.Coding{Code: r.ClassCode, System: ccda.OIDActCode, Display: strVal(r.ClassDisplay)},
		Start:  r.PeriodStart,
		End:    r.PeriodEnd,
	}
}
