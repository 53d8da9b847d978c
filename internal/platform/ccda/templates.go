package ccda

// CDA namespaces and fixed header identifiers.
const (
	CDANamespace  = "urn:hl7-org:v3"
	XSINamespace  = "http://www.w3.org/2001/XMLSchema-instance"
	SDTCNamespace = "urn:hl7-org:sdtc"

	CDATypeIDRoot      = "2.16.840.1.113883.1.3"
	CDATypeIDExtension = "POCD_HD000040"
	OIDUSRealmHeader   = "2.16.840.1.113883.10.20.22.1.1"
)

// Code system OIDs.
const (
	OIDLOINC           = "2.16.840.1.113883.6.1"
	OIDSNOMED          = "2.16.840.1.113883.6.96"
	OIDRxNorm          = "2.16.840.1.113883.6.88"
	OIDICD10           = "2.16.840.1.113883.6.90"
	OIDCVX             = "2.16.840.1.113883.12.292"
	OIDAdminGender     = "2.16.840.1.113883.5.1"
	OIDActCode         = "2.16.840.1.113883.5.4"
	OIDActClass        = "2.16.840.1.113883.5.6"
	OIDConfidentiality = "2.16.840.1.113883.5.25"
	OIDInterpretation  = "2.16.840.1.113883.5.83"
	OIDRaceEthnicity   = "2.16.840.1.113883.6.238"
	OIDNCIThesaurus    = "2.16.840.1.113883.3.26.1.1"
)

// Entry-level template IDs that are nested inside the category entries.
const (
	OIDAllergyObservation       = "2.16.840.1.113883.10.20.22.4.7"
	OIDAllergyStatusObservation = "2.16.840.1.113883.10.20.22.4.28"
	OIDReactionObservation      = "2.16.840.1.113883.10.20.22.4.9"
	OIDProblemObservation       = "2.16.840.1.113883.10.20.22.4.4"
	OIDProblemStatusObservation = "2.16.840.1.113883.10.20.22.4.6"
	OIDResultObservation        = "2.16.840.1.113883.10.20.22.4.2"
	OIDVitalSignObservation     = "2.16.840.1.113883.10.20.22.4.27"
	OIDMedicationInformation    = "2.16.840.1.113883.10.20.22.4.23"
	OIDImmunizationInformation  = "2.16.840.1.113883.10.20.22.4.54"
	OIDPlannedActivity          = "2.16.840.1.113883.10.20.22.4.41"
)

// Document-specific sections that are not clinical categories.
const (
	OIDReasonForReferralSection  = "1.3.6.1.4.1.19376.1.5.3.1.3.1"
	OIDDischargeDiagnosisSection = "2.16.840.1.113883.10.20.22.2.24"
	OIDHospitalCourseSection     = "1.3.6.1.4.1.19376.1.5.3.1.3.5"
	OIDHospitalDischargeDxAct    = "2.16.840.1.113883.10.20.22.4.33"

	LOINCReasonForReferral  = "42349-1"
	LOINCDischargeDiagnosis = "11535-2"
	LOINCHospitalCourse     = "8648-8"

	HospitalCourseText = "Hospital course details are documented in the encounter notes."
)

// Status observation values.
const (
	SNOMEDActive   = "55561003"
	SNOMEDInactive = "73425007"
	SNOMEDResolved = "413322009"
)

// Category is one of the clinical categories a document section carries.
type Category string

const (
	CategoryAllergies     Category = "allergies"
	CategoryMedications   Category = "medications"
	CategoryProblems      Category = "problems"
	CategoryProcedures    Category = "procedures"
	CategoryResults       Category = "results"
	CategoryVitalSigns    Category = "vital_signs"
	CategoryImmunizations Category = "immunizations"
	CategorySocialHistory Category = "social_history"
	CategoryPlanOfCare    Category = "plan_of_care"
	CategoryEncounters    Category = "encounters"
)

// SectionTemplate holds the fixed identifiers and display text of a category section.
type SectionTemplate struct {
	SectionOID string
	EntryOID   string
	LOINC      string
	Title      string
	Headers    []string
	NoData     string
}

// sectionTemplates is the lookup table for every Category. These values are
// interoperability constants and must not change.
var sectionTemplates = map[Category]SectionTemplate{
	CategoryAllergies: {
		SectionOID: "2.16.840.1.113883.10.20.22.2.6.1",
		EntryOID:   "2.16.840.1.113883.10.20.22.4.30",
		LOINC:      "48765-2",
		Title:      "Allergies and Adverse Reactions",
		Headers:    []string{"Substance", "Reaction", "Status", "Onset"},
		NoData:     "No known allergies on file.",
	},
	CategoryMedications: {
		SectionOID: "2.16.840.1.113883.10.20.22.2.1.1",
		EntryOID:   "2.16.840.1.113883.10.20.22.4.16",
		LOINC:      "10160-0",
		Title:      "Medications",
		Headers:    []string{"Medication", "Route", "Status", "Start", "End"},
		NoData:     "No medications on file.",
	},
	CategoryProblems: {
		SectionOID: "2.16.840.1.113883.10.20.22.2.5.1",
		EntryOID:   "2.16.840.1.113883.10.20.22.4.3",
		LOINC:      "11450-4",
		Title:      "Problems",
		Headers:    []string{"Problem", "Status", "Onset", "Resolved"},
		NoData:     "No problems on file.",
	},
	CategoryProcedures: {
		SectionOID: "2.16.840.1.113883.10.20.22.2.7.1",
		EntryOID:   "2.16.840.1.113883.10.20.22.4.14",
		LOINC:      "47519-4",
		Title:      "Procedures",
		Headers:    []string{"Procedure", "Status", "Date"},
		NoData:     "No procedures on file.",
	},
	CategoryResults: {
		SectionOID: "2.16.840.1.113883.10.20.22.2.3.1",
		EntryOID:   "2.16.840.1.113883.10.20.22.4.1",
		LOINC:      "30954-2",
		Title:      "Results",
		Headers:    []string{"Test", "Value", "Interpretation", "Reference Range", "Date"},
		NoData:     "No results on file.",
	},
	CategoryVitalSigns: {
		SectionOID: "2.16.840.1.113883.10.20.22.2.4.1",
		EntryOID:   "2.16.840.1.113883.10.20.22.4.26",
		LOINC:      "8716-3",
		Title:      "Vital Signs",
		Headers:    []string{"Vital Sign", "Value", "Date"},
		NoData:     "No vital signs on file.",
	},
	CategoryImmunizations: {
		SectionOID: "2.16.840.1.113883.10.20.22.2.2.1",
		EntryOID:   "2.16.840.1.113883.10.20.22.4.52",
		LOINC:      "11369-6",
		Title:      "Immunizations",
		Headers:    []string{"Vaccine", "Status", "Date", "Lot Number"},
		NoData:     "No immunizations on file.",
	},
	CategorySocialHistory: {
		SectionOID: "2.16.840.1.113883.10.20.22.2.17",
		EntryOID:   "2.16.840.1.113883.10.20.22.4.38",
		LOINC:      "29762-2",
		Title:      "Social History",
		Headers:    []string{"Observation", "Value", "Date"},
		NoData:     "No social history on file.",
	},
	CategoryPlanOfCare: {
		SectionOID: "2.16.840.1.113883.10.20.22.2.10",
		EntryOID:   "2.16.840.1.113883.10.20.22.4.39",
		LOINC:      "18776-5",
		Title:      "Plan of Care",
		Headers:    []string{"Plan", "Status", "Date", "Activities"},
		NoData:     "No plan of care on file.",
	},
	CategoryEncounters: {
		SectionOID: "2.16.840.1.113883.10.20.22.2.22.1",
		EntryOID:   "2.16.840.1.113883.10.20.22.4.49",
		LOINC:      "46240-8",
		Title:      "Encounters",
		Headers:    []string{"Encounter", "Start", "End"},
		NoData:     "No encounters on file.",
	},
}

// Categories lists every category in continuity-of-care section order.
var Categories = []Category{
	CategoryAllergies,
	CategoryMedications,
	CategoryProblems,
	CategoryProcedures,
	CategoryResults,
	CategoryVitalSigns,
	CategoryImmunizations,
	CategorySocialHistory,
	CategoryPlanOfCare,
	CategoryEncounters,
}

// Template returns the section template of c. The second value is false for
// an unknown category.
func (c Category) Template() (SectionTemplate, bool) {
	t, ok := sectionTemplates[c]
	return t, ok
}

// CategoryForLOINC maps a LOINC section code back to its category.
func CategoryForLOINC(code string) (Category, bool) {
	for c, t := range sectionTemplates {
		if t.LOINC == code {
			return c, true
		}
	}
	return "", false
}

// DocumentKind identifies one of the supported document types.
type DocumentKind string

const (
	KindContinuityOfCare DocumentKind = "ccd"
	KindReferral         DocumentKind = "referral"
	KindDischarge        DocumentKind = "discharge"
	KindTransfer         DocumentKind = "transfer"
)

// DocumentTemplate is the identifier triad and section layout of a document kind.
type DocumentTemplate struct {
	TemplateOID string
	LOINC       string
	LOINCName   string
	Title       string
	Sections    []Category
	// NeedsEncounter marks kinds that carry an encompassing encounter.
	NeedsEncounter bool
}

var documentTemplates = map[DocumentKind]DocumentTemplate{
	KindContinuityOfCare: {
		TemplateOID: "2.16.840.1.113883.10.20.22.1.2",
		LOINC:       "34133-9",
		LOINCName:   "Summarization of Episode Note",
		Title:       "Continuity of Care Document",
		Sections:    Categories,
	},
	KindReferral: {
		TemplateOID: "2.16.840.1.113883.10.20.22.1.14",
		LOINC:       "57133-1",
		LOINCName:   "Referral note",
		Title:       "Referral Note",
		Sections: []Category{
			CategoryAllergies,
			CategoryMedications,
			CategoryProblems,
			CategoryResults,
			CategoryVitalSigns,
			CategoryImmunizations,
		},
	},
	KindDischarge: {
		TemplateOID: "2.16.840.1.113883.10.20.22.1.8",
		LOINC:       "18842-5",
		LOINCName:   "Discharge summary",
		Title:       "Discharge Summary",
		Sections: []Category{
			CategoryAllergies,
			CategoryMedications,
			CategoryProblems,
			CategoryProcedures,
			CategoryResults,
			CategoryVitalSigns,
			CategoryImmunizations,
			CategoryPlanOfCare,
		},
		NeedsEncounter: true,
	},
	KindTransfer: {
		TemplateOID:    "2.16.840.1.113883.10.20.22.1.13",
		LOINC:          "18761-7",
		LOINCName:      "Transfer summary note",
		Title:          "Transfer Summary",
		Sections:       Categories,
		NeedsEncounter: true,
	},
}

// Template returns the identifier triad and layout of k.
func (k DocumentKind) Template() (DocumentTemplate, bool) {
	t, ok := documentTemplates[k]
	return t, ok
}

// KindForTemplateOID maps a document-level template id back to its kind.
func KindForTemplateOID(oid string) (DocumentKind, bool) {
	for k, t := range documentTemplates {
		if t.TemplateOID == oid {
			return k, true
		}
	}
	return "", false
}

// ParseDocumentKind validates a kind name supplied by a caller.
func ParseDocumentKind(s string) (DocumentKind, bool) {
	k := DocumentKind(s)
	_, ok := documentTemplates[k]
	return k, ok
}
