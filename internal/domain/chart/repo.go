package chart

import (
	"context"

	"github.com/google/uuid"
)

// Repository reads a patient's chart. Patients and encounters are addressed
// by their FHIR ids; list reads return rows most-recent-first. Single-row
// reads return pgx.ErrNoRows when nothing matches.
type Repository interface {
	GetPatient(ctx context.Context, fhirID string) (*Patient, error)
	ListIdentifiers(ctx context.Context, patientID uuid.UUID) ([]*Identifier, error)

	ListAllergies(ctx context.Context, patientFHIRID string) ([]*Allergy, error)
	ListMedications(ctx context.Context, patientFHIRID string) ([]*Medication, error)
	ListConditions(ctx context.Context, patientFHIRID string) ([]*Condition, error)
	ListProcedures(ctx context.Context, patientFHIRID string) ([]*Procedure, error)
	ListObservations(ctx context.Context, patientFHIRID, category string) ([]*Observation, error)
	ListImmunizations(ctx context.Context, patientFHIRID string) ([]*Immunization, error)
	ListCarePlans(ctx context.Context, patientFHIRID string) ([]*CarePlan, error)
	ListEncounters(ctx context.Context, patientFHIRID string) ([]*Encounter, error)

	// GetEncounter returns the encounter only when it belongs to the patient.
	GetEncounter(ctx context.Context, patientFHIRID, encounterFHIRID string) (*Encounter, error)
}
