package chart

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/clinicaldocs/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// conn prefers the snapshot transaction carried by ctx so that every read of
// one document sees the same chart.
func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, fhir_id, first_name, middle_name, last_name, gender, birth_date,
	race_code, race_display, ethnicity_code, ethnicity_display, preferred_language,
	address_line1, address_line2, city, state, postal_code, country, phone_home`

func (r *repoPG) GetPatient(ctx context.Context, fhirID string) (*Patient, error) {
	var p Patient
	err := r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE fhir_id = $1`, fhirID).Scan(
		&p.ID, &p.FHIRID, &p.FirstName, &p.MiddleName, &p.LastName, &p.Gender, &p.BirthDate,
		&p.RaceCode, &p.RaceDisplay, &p.EthnicityCode, &p.EthnicityDisplay, &p.PreferredLang,
		&p.AddressLine1, &p.AddressLine2, &p.City, &p.State, &p.PostalCode, &p.Country, &p.PhoneHome,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) ListIdentifiers(ctx context.Context, patientID uuid.UUID) ([]*Identifier, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT system_uri, value FROM patient_identifier WHERE patient_id = $1 ORDER BY created_at`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Identifier
	for rows.Next() {
		var id Identifier
		if err := rows.Scan(&id.System, &id.Value); err != nil {
			return nil, err
		}
		out = append(out, &id)
	}
	return out, rows.Err()
}

// byPatient restricts a child table to the patient with the given FHIR id.
const byPatient = ` JOIN patient p ON p.id = t.patient_id WHERE p.fhir_id = $1`

const allergyCols = `t.id, t.fhir_id, t.code_system, t.code, t.code_display, t.clinical_status,
	t.onset_datetime, t.reactions`

func (r *repoPG) ListAllergies(ctx context.Context, patientFHIRID string) ([]*Allergy, error) {
	return list(ctx, r.conn(ctx), `SELECT `+allergyCols+` FROM allergy_intolerance t`+byPatient+
		` ORDER BY t.onset_datetime DESC NULLS LAST, t.created_at DESC`,
		[]interface{}{patientFHIRID},
		func(row pgx.Row) (*Allergy, error) {
			var a Allergy
			err := row.Scan(&a.ID, &a.FHIRID, &a.CodeSystem, &a.Code, &a.Display, &a.ClinicalStatus,
				&a.OnsetDateTime, &a.Reactions)
			return &a, err
		})
}

const medicationCols = `t.id, t.fhir_id, t.code_system, t.code, t.code_display, t.status,
	t.route_code, t.route_display, t.effective_start, t.effective_end`

func (r *repoPG) ListMedications(ctx context.Context, patientFHIRID string) ([]*Medication, error) {
	return list(ctx, r.conn(ctx), `SELECT `+medicationCols+` FROM medication_statement t`+byPatient+
		` ORDER BY t.effective_start DESC NULLS LAST, t.created_at DESC`,
		[]interface{}{patientFHIRID},
		func(row pgx.Row) (*Medication, error) {
			var m Medication
			err := row.Scan(&m.ID, &m.FHIRID, &m.CodeSystem, &m.Code, &m.Display, &m.Status,
				&m.RouteCode, &m.RouteDisplay, &m.EffectiveStart, &m.EffectiveEnd)
			return &m, err
		})
}

const conditionCols = `t.id, t.fhir_id, t.code_system, t.code, t.code_display, t.clinical_status,
	t.onset_datetime, t.abatement_datetime`

func (r *repoPG) ListConditions(ctx context.Context, patientFHIRID string) ([]*Condition, error) {
	return list(ctx, r.conn(ctx), `SELECT `+conditionCols+` FROM condition t`+byPatient+
		` ORDER BY t.onset_datetime DESC NULLS LAST, t.created_at DESC`,
		[]interface{}{patientFHIRID},
		func(row pgx.Row) (*Condition, error) {
			var c Condition
			err := row.Scan(&c.ID, &c.FHIRID, &c.CodeSystem, &c.Code, &c.Display, &c.ClinicalStatus,
				&c.OnsetDateTime, &c.AbatementDateTime)
			return &c, err
		})
}

const procedureCols = `t.id, t.fhir_id, t.code_system, t.code, t.code_display, t.status, t.performed_datetime`

func (r *repoPG) ListProcedures(ctx context.Context, patientFHIRID string) ([]*Procedure, error) {
	return list(ctx, r.conn(ctx), `SELECT `+procedureCols+` FROM procedure_record t`+byPatient+
		` ORDER BY t.performed_datetime DESC NULLS LAST, t.created_at DESC`,
		[]interface{}{patientFHIRID},
		func(row pgx.Row) (*Procedure, error) {
			var p Procedure
			err := row.Scan(&p.ID, &p.FHIRID, &p.CodeSystem, &p.Code, &p.Display, &p.Status, &p.PerformedDateTime)
			return &p, err
		})
}

const observationCols = `t.id, t.fhir_id, t.category, t.code_system, t.code, t.code_display,
	t.panel_code, t.panel_display, t.value_quantity, t.value_unit, t.value_string,
	t.interpretation_code, t.reference_range_text, t.effective_datetime`

// ListObservations orders by time, then panel, so consecutive rows of one
// panel or one vital signs reading stay together.
func (r *repoPG) ListObservations(ctx context.Context, patientFHIRID, category string) ([]*Observation, error) {
	return list(ctx, r.conn(ctx), `SELECT `+observationCols+` FROM observation t`+byPatient+
		` AND t.category = $2 ORDER BY t.effective_datetime DESC NULLS LAST, t.panel_code NULLS LAST, t.created_at`,
		[]interface{}{patientFHIRID, category},
		func(row pgx.Row) (*Observation, error) {
			var o Observation
			err := row.Scan(&o.ID, &o.FHIRID, &o.Category, &o.CodeSystem, &o.Code, &o.Display,
				&o.PanelCode, &o.PanelDisplay, &o.ValueQuantity, &o.ValueUnit, &o.ValueString,
				&o.InterpretationCode, &o.ReferenceRangeText, &o.EffectiveDateTime)
			return &o, err
		})
}

const immunizationCols = `t.id, t.fhir_id, t.vaccine_code_system, t.vaccine_code, t.vaccine_display,
	t.status, t.occurrence_datetime, t.lot_number`

func (r *repoPG) ListImmunizations(ctx context.Context, patientFHIRID string) ([]*Immunization, error) {
	return list(ctx, r.conn(ctx), `SELECT `+immunizationCols+` FROM immunization t`+byPatient+
		` ORDER BY t.occurrence_datetime DESC NULLS LAST, t.created_at DESC`,
		[]interface{}{patientFHIRID},
		func(row pgx.Row) (*Immunization, error) {
			var im Immunization
			err := row.Scan(&im.ID, &im.FHIRID, &im.VaccineCodeSystem, &im.VaccineCode, &im.VaccineDisplay,
				&im.Status, &im.OccurrenceDateTime, &im.LotNumber)
			return &im, err
		})
}

const carePlanCols = `t.id, t.fhir_id, t.code_system, t.code, t.code_display, t.status, t.created, t.activities`

func (r *repoPG) ListCarePlans(ctx context.Context, patientFHIRID string) ([]*CarePlan, error) {
	return list(ctx, r.conn(ctx), `SELECT `+carePlanCols+` FROM care_plan t`+byPatient+
		` ORDER BY t.created DESC NULLS LAST, t.created_at DESC`,
		[]interface{}{patientFHIRID},
		func(row pgx.Row) (*CarePlan, error) {
			var cp CarePlan
			err := row.Scan(&cp.ID, &cp.FHIRID, &cp.CodeSystem, &cp.Code, &cp.Display, &cp.Status,
				&cp.Created, &cp.Activities)
			return &cp, err
		})
}

const encounterCols = `t.id, t.fhir_id, t.class_code, t.class_display, t.period_start, t.period_end`

func scanEncounter(row pgx.Row) (*Encounter, error) {
	var e Encounter
	if err := row.Scan(&e.ID, &e.FHIRID, &e.ClassCode, &e.ClassDisplay, &e.PeriodStart, &e.PeriodEnd); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repoPG) ListEncounters(ctx context.Context, patientFHIRID string) ([]*Encounter, error) {
	return list(ctx, r.conn(ctx), `SELECT `+encounterCols+` FROM encounter t`+byPatient+
		` ORDER BY t.period_start DESC NULLS LAST, t.created_at DESC`,
		[]interface{}{patientFHIRID}, scanEncounter)
}

func (r *repoPG) GetEncounter(ctx context.Context, patientFHIRID, encounterFHIRID string) (*Encounter, error) {
	return scanEncounter(r.conn(ctx).QueryRow(ctx,
		`SELECT `+encounterCols+` FROM encounter t`+byPatient+` AND t.fhir_id = $2`,
		patientFHIRID, encounterFHIRID))
}

func list[T any](ctx context.Context, q querier, sql string, args []interface{}, scan func(pgx.Row) (*T, error)) ([]*T, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
