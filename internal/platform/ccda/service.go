package ccda

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DataSource supplies the on-file chart of a patient. List fetches return
// records most-recent-first. FetchPatient and FetchEncounter return an error
// wrapping ErrNotFound when the record does not exist; FetchEncounter also
// does so when the encounter belongs to another patient.
type DataSource interface {
	FetchPatient(ctx context.Context, patientID string) (*Patient, error)
	FetchAllergies(ctx context.Context, patientID string) ([]Allergy, error)
	FetchMedications(ctx context.Context, patientID string) ([]Medication, error)
	FetchConditions(ctx context.Context, patientID string) ([]Problem, error)
	FetchProcedures(ctx context.Context, patientID string) ([]Procedure, error)
	FetchResults(ctx context.Context, patientID string) ([]Result, error)
	FetchVitals(ctx context.Context, patientID string) ([]Vital, error)
	FetchImmunizations(ctx context.Context, patientID string) ([]Immunization, error)
	FetchSocialHistory(ctx context.Context, patientID string) ([]SocialHistory, error)
	FetchCarePlans(ctx context.Context, patientID string) ([]CarePlan, error)
	FetchEncounters(ctx context.Context, patientID string) ([]Encounter, error)
	FetchEncounter(ctx context.Context, patientID, encounterID string) (*Encounter, error)
}

// Service exposes document generation, parsing and reconciliation. All chart
// fetches complete before any document text is built.
type Service struct {
	source    DataSource
	composer  *Composer
	extractor *Extractor
	log       zerolog.Logger
	now       func() time.Time
}

// NewService creates a document service.
func NewService(source DataSource, composer *Composer, extractor *Extractor, log zerolog.Logger) *Service {
	return &Service{
		source:    source,
		composer:  composer,
		extractor: extractor,
		log:       log,
		now:       time.Now,
	}
}

// GenerateContinuityDocument renders the continuity-of-care document.
func (s *Service) GenerateContinuityDocument(ctx context.Context, patientID string) ([]byte, error) {
	return s.generate(ctx, KindContinuityOfCare, patientID, "", Extras{})
}

// GenerateReferralNote renders a referral note. The details are validated
// before anything is fetched.
func (s *Service) GenerateReferralNote(ctx context.Context, patientID string, details ReferralDetails) ([]byte, error) {
	if err := details.Validate(); err != nil {
		return nil, err
	}
	return s.generate(ctx, KindReferral, patientID, "", Extras{Referral: &details})
}

// GenerateDischargeSummary renders a discharge summary for an encounter of
// the patient.
func (s *Service) GenerateDischargeSummary(ctx context.Context, patientID, encounterID string) ([]byte, error) {
	return s.generate(ctx, KindDischarge, patientID, encounterID, Extras{})
}

// GenerateTransferSummary renders a transfer summary for an encounter of the
// patient.
func (s *Service) GenerateTransferSummary(ctx context.Context, patientID, encounterID string) ([]byte, error) {
	return s.generate(ctx, KindTransfer, patientID, encounterID, Extras{})
}

// ParseDocument extracts a ParsedDocument from a received document.
func (s *Service) ParseDocument(ctx context.Context, data []byte) (*ParsedDocument, error) {
	doc, err := s.extractor.Extract(data)
	if err != nil {
		return nil, err
	}
	s.log.Debug().
		Str("kind", string(doc.Kind)).
		Int("allergies", len(doc.Allergies)).
		Int("medications", len(doc.Medications)).
		Int("problems", len(doc.Problems)).
		Int("warnings", len(doc.Warnings)).
		Msg("parsed clinical document")
	return doc, nil
}

// Reconcile classifies the allergies, medications and problems of doc against
// the patient's records on file.
func (s *Service) Reconcile(ctx context.Context, patientID string, doc *ParsedDocument) (*ReconciliationResult, error) {
	if doc == nil {
		return nil, fmt.Errorf("ccda: nothing to reconcile: %w", ErrValidation)
	}
	if err := s.requirePatient(ctx, patientID); err != nil {
		return nil, err
	}
	return s.reconcile(ctx, patientID, doc)
}

// ReconcileDocument checks the patient exists, then parses data and
// reconciles it. An unknown patient is ErrNotFound whatever data holds.
func (s *Service) ReconcileDocument(ctx context.Context, patientID string, data []byte) (*ReconciliationResult, error) {
	if err := s.requirePatient(ctx, patientID); err != nil {
		return nil, err
	}
	doc, err := s.ParseDocument(ctx, data)
	if err != nil {
		return nil, err
	}
	return s.reconcile(ctx, patientID, doc)
}

func (s *Service) requirePatient(ctx context.Context, patientID string) error {
	p, err := s.source.FetchPatient(ctx, patientID)
	if err != nil {
		return fmt.Errorf("ccda: fetch patient %s: %w", patientID, err)
	}
	if p == nil {
		return fmt.Errorf("ccda: patient %s: %w", patientID, ErrNotFound)
	}
	return nil
}

func (s *Service) reconcile(ctx context.Context, patientID string, doc *ParsedDocument) (*ReconciliationResult, error) {
	var onFile OnFile
	var err error
	if onFile.Allergies, err = s.source.FetchAllergies(ctx, patientID); err != nil {
		return nil, fmt.Errorf("ccda: fetch allergies: %w", err)
	}
	if onFile.Medications, err = s.source.FetchMedications(ctx, patientID); err != nil {
		return nil, fmt.Errorf("ccda: fetch medications: %w", err)
	}
	if onFile.Problems, err = s.source.FetchConditions(ctx, patientID); err != nil {
		return nil, fmt.Errorf("ccda: fetch conditions: %w", err)
	}
	res := Reconcile(patientID, doc, onFile, s.now())
	return &res, nil
}

// generate fetches the patient, the encounter when the kind needs one, and
// every section category in order, then composes the document.
func (s *Service) generate(ctx context.Context, kind DocumentKind, patientID, encounterID string, extras Extras) ([]byte, error) {
	t, ok := kind.Template()
	if !ok {
		return nil, fmt.Errorf("ccda: unknown document kind %q: %w", kind, ErrValidation)
	}
	p, err := s.source.FetchPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("ccda: fetch patient %s: %w", patientID, err)
	}
	if p == nil {
		return nil, fmt.Errorf("ccda: patient %s: %w", patientID, ErrNotFound)
	}
	if t.NeedsEncounter {
		enc, err := s.source.FetchEncounter(ctx, patientID, encounterID)
		if err != nil {
			return nil, fmt.Errorf("ccda: fetch encounter %s: %w", encounterID, err)
		}
		if enc == nil {
			return nil, fmt.Errorf("ccda: encounter %s: %w", encounterID, ErrNotFound)
		}
		extras.Encounter = enc
	}

	doc := &ParsedDocument{Patient: *p}
	for _, c := range t.Sections {
		if err := s.fetch(ctx, c, patientID, doc); err != nil {
			return nil, fmt.Errorf("ccda: fetch %s: %w", c, err)
		}
	}

	out, err := s.composer.Compose(kind, doc, extras)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("kind", string(kind)).
		Str("patient_id", patientID).
		Int("bytes", len(out)).
		Msg("generated clinical document")
	return out, nil
}

func (s *Service) fetch(ctx context.Context, c Category, patientID string, doc *ParsedDocument) error {
	var err error
	switch c {
	case CategoryAllergies:
		doc.Allergies, err = s.source.FetchAllergies(ctx, patientID)
	case CategoryMedications:
		doc.Medications, err = s.source.FetchMedications(ctx, patientID)
	case CategoryProblems:
		doc.Problems, err = s.source.FetchConditions(ctx, patientID)
	case CategoryProcedures:
		doc.Procedures, err = s.source.FetchProcedures(ctx, patientID)
	case CategoryResults:
		doc.Results, err = s.source.FetchResults(ctx, patientID)
	case CategoryVitalSigns:
		doc.Vitals, err = s.source.FetchVitals(ctx, patientID)
	case CategoryImmunizations:
		doc.Immunizations, err = s.source.FetchImmunizations(ctx, patientID)
	case CategorySocialHistory:
		doc.SocialHistory, err = s.source.FetchSocialHistory(ctx, patientID)
	case CategoryPlanOfCare:
		doc.CarePlans, err = s.source.FetchCarePlans(ctx, patientID)
	case CategoryEncounters:
		doc.Encounters, err = s.source.FetchEncounters(ctx, patientID)
	default:
		err = fmt.Errorf("unknown category %q: %w", c, ErrValidation)
	}
	return err
}
