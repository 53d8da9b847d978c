package ccda

import "encoding/xml"

// ClinicalDocument is the root element of a CDA R2 document. It is the typed
// document model the Composer fills in and encoding/xml renders; all free text
// is escaped exactly once, at marshal time.
type ClinicalDocument struct {
	XMLName              xml.Name              `xml:"urn:hl7-org:v3 ClinicalDocument"`
	XSI                  string                `xml:"xmlns:xsi,attr"`
	SDTC                 string                `xml:"xmlns:sdtc,attr,omitempty"`
	RealmCode            *Code                 `xml:"realmCode,omitempty"`
	TypeID               *TypeID               `xml:"typeId,omitempty"`
	TemplateIDs          []TemplateID          `xml:"templateId,omitempty"`
	ID                   *InstanceID           `xml:"id,omitempty"`
	Code                 *Code                 `xml:"code,omitempty"`
	Title                string                `xml:"title,omitempty"`
	EffectiveTime        *TimeValue            `xml:"effectiveTime,omitempty"`
	ConfidentialityCode  *Code                 `xml:"confidentialityCode,omitempty"`
	LanguageCode         *Code                 `xml:"languageCode,omitempty"`
	SetID                *InstanceID           `xml:"setId,omitempty"`
	VersionNumber        *IntValue             `xml:"versionNumber,omitempty"`
	RecordTarget         *RecordTarget         `xml:"recordTarget,omitempty"`
	Author               *Author               `xml:"author,omitempty"`
	Custodian            *Custodian            `xml:"custodian,omitempty"`
	InformationRecipient *InformationRecipient `xml:"informationRecipient,omitempty"`
	DocumentationOf      *DocumentationOf      `xml:"documentationOf,omitempty"`
	ComponentOf          *ComponentOf          `xml:"componentOf,omitempty"`
	Component            *Component            `xml:"component,omitempty"`
}

// TypeID identifies the CDA R2 schema.
type TypeID struct {
	Root      string `xml:"root,attr"`
	Extension string `xml:"extension,attr"`
}

// TemplateID specifies a template identifier with optional extension.
type TemplateID struct {
	Root      string `xml:"root,attr"`
	Extension string `xml:"extension,attr,omitempty"`
}

// InstanceID is a unique instance identifier.
type InstanceID struct {
	Root       string `xml:"root,attr,omitempty"`
	Extension  string `xml:"extension,attr,omitempty"`
	NullFlavor string `xml:"nullFlavor,attr,omitempty"`
}

// IntValue is an INT data type.
type IntValue struct {
	Value int `xml:"value,attr"`
}

// Code represents a coded value with optional code system.
type Code struct {
	Code           string `xml:"code,attr,omitempty"`
	CodeSystem     string `xml:"codeSystem,attr,omitempty"`
	CodeSystemName string `xml:"codeSystemName,attr,omitempty"`
	DisplayName    string `xml:"displayName,attr,omitempty"`
	NullFlavor     string `xml:"nullFlavor,attr,omitempty"`
}

// TimeValue holds a time stamp in HL7 format (YYYYMMDDHHmmss) or a null flavor.
type TimeValue struct {
	Value      string `xml:"value,attr,omitempty"`
	NullFlavor string `xml:"nullFlavor,attr,omitempty"`
}

// EffectiveTime is either a point in time (Value) or an interval (Low/High).
type EffectiveTime struct {
	Type       string     `xml:"xsi:type,attr,omitempty"`
	Value      string     `xml:"value,attr,omitempty"`
	NullFlavor string     `xml:"nullFlavor,attr,omitempty"`
	Low        *TimeValue `xml:"low,omitempty"`
	High       *TimeValue `xml:"high,omitempty"`
}

// RecordTarget holds the patient information in the CDA header.
type RecordTarget struct {
	PatientRole *PatientRole `xml:"patientRole,omitempty"`
}

// PatientRole contains patient identifiers and demographics.
type PatientRole struct {
	IDs     []InstanceID   `xml:"id,omitempty"`
	Addr    *PostalAddress `xml:"addr,omitempty"`
	Telecom *Telecom       `xml:"telecom,omitempty"`
	Patient *PatientNode   `xml:"patient,omitempty"`
}

// PatientNode holds patient demographic data.
type PatientNode struct {
	Name                     *Name                  `xml:"name,omitempty"`
	AdministrativeGenderCode *Code                  `xml:"administrativeGenderCode,omitempty"`
	BirthTime                *TimeValue             `xml:"birthTime,omitempty"`
	RaceCode                 *Code                  `xml:"raceCode,omitempty"`
	EthnicGroupCode          *Code                  `xml:"ethnicGroupCode,omitempty"`
	LanguageCommunication    *LanguageCommunication `xml:"languageCommunication,omitempty"`
}

// LanguageCommunication records the patient's preferred language.
type LanguageCommunication struct {
	LanguageCode *Code `xml:"languageCode,omitempty"`
}

// Name represents a person's name.
type Name struct {
	Use    string   `xml:"use,attr,omitempty"`
	Given  []string `xml:"given,omitempty"`
	Family string   `xml:"family,omitempty"`
}

// PostalAddress is the CDA addr element.
type PostalAddress struct {
	Use               string   `xml:"use,attr,omitempty"`
	StreetAddressLine []string `xml:"streetAddressLine,omitempty"`
	City              string   `xml:"city,omitempty"`
	State             string   `xml:"state,omitempty"`
	PostalCode        string   `xml:"postalCode,omitempty"`
	Country           string   `xml:"country,omitempty"`
}

// Telecom represents a contact point (phone, email, etc.).
type Telecom struct {
	Use   string `xml:"use,attr,omitempty"`
	Value string `xml:"value,attr,omitempty"`
}

// Author holds authoring information in the CDA header.
type Author struct {
	Time           *TimeValue      `xml:"time,omitempty"`
	AssignedAuthor *AssignedAuthor `xml:"assignedAuthor,omitempty"`
}

// AssignedAuthor identifies the author entity.
type AssignedAuthor struct {
	ID                      *InstanceID      `xml:"id,omitempty"`
	AssignedAuthoringDevice *AuthoringDevice `xml:"assignedAuthoringDevice,omitempty"`
	RepresentedOrganization *Organization    `xml:"representedOrganization,omitempty"`
}

// AuthoringDevice identifies a device as the author.
type AuthoringDevice struct {
	SoftwareName string `xml:"softwareName,omitempty"`
}

// Organization represents a healthcare organization.
type Organization struct {
	IDs   []InstanceID `xml:"id,omitempty"`
	Names []string     `xml:"name,omitempty"`
}

// Custodian holds the custodian organization in the CDA header.
type Custodian struct {
	AssignedCustodian *AssignedCustodian `xml:"assignedCustodian,omitempty"`
}

// AssignedCustodian contains the custodian organization.
type AssignedCustodian struct {
	RepresentedCustodianOrganization *Organization `xml:"representedCustodianOrganization,omitempty"`
}

// InformationRecipient names the provider a referral is addressed to.
type InformationRecipient struct {
	IntendedRecipient *IntendedRecipient `xml:"intendedRecipient,omitempty"`
}

// IntendedRecipient is the person and organization receiving the document.
type IntendedRecipient struct {
	IDs                  []InstanceID  `xml:"id,omitempty"`
	InformationRecipient *PersonName   `xml:"informationRecipient,omitempty"`
	ReceivedOrganization *Organization `xml:"receivedOrganization,omitempty"`
}

// PersonName wraps a free-text person name.
type PersonName struct {
	Name string `xml:"name,omitempty"`
}

// DocumentationOf records the service event documented.
type DocumentationOf struct {
	ServiceEvent *ServiceEvent `xml:"serviceEvent,omitempty"`
}

// ServiceEvent describes the clinical service documented.
type ServiceEvent struct {
	ClassCode     string         `xml:"classCode,attr,omitempty"`
	EffectiveTime *EffectiveTime `xml:"effectiveTime,omitempty"`
}

// ComponentOf links the document to the encounter it summarizes.
type ComponentOf struct {
	EncompassingEncounter *EncompassingEncounter `xml:"encompassingEncounter,omitempty"`
}

// EncompassingEncounter is the encounter a discharge or transfer document covers.
type EncompassingEncounter struct {
	IDs           []InstanceID   `xml:"id,omitempty"`
	Code          *Code          `xml:"code,omitempty"`
	EffectiveTime *EffectiveTime `xml:"effectiveTime,omitempty"`
}

// Component wraps the structured body of the CDA document.
type Component struct {
	StructuredBody *StructuredBody `xml:"structuredBody,omitempty"`
}

// StructuredBody holds the document sections.
type StructuredBody struct {
	Components []SectionComponent `xml:"component,omitempty"`
}

// SectionComponent wraps a single section.
type SectionComponent struct {
	Section *Section `xml:"section,omitempty"`
}

// Section represents a CDA section with template, code, narrative, and entries.
type Section struct {
	NullFlavor  string       `xml:"nullFlavor,attr,omitempty"`
	TemplateIDs []TemplateID `xml:"templateId,omitempty"`
	Code        *Code        `xml:"code,omitempty"`
	Title       string       `xml:"title,omitempty"`
	Text        *Narrative   `xml:"text,omitempty"`
	Entries     []Entry      `xml:"entry,omitempty"`
}

// Narrative holds the human-readable block for a section.
type Narrative struct {
	Paragraphs []string        `xml:"paragraph,omitempty"`
	Table      *NarrativeTable `xml:"table,omitempty"`
	List       *NarrativeList  `xml:"list,omitempty"`
}

// NarrativeTable is a simplified HTML table for section narratives.
type NarrativeTable struct {
	Border string          `xml:"border,attr,omitempty"`
	Thead  *NarrativeThead `xml:"thead,omitempty"`
	Tbody  *NarrativeTbody `xml:"tbody,omitempty"`
}

// NarrativeThead is a table header.
type NarrativeThead struct {
	Tr *NarrativeTr `xml:"tr,omitempty"`
}

// NarrativeTbody is a table body.
type NarrativeTbody struct {
	Trs []NarrativeTr `xml:"tr,omitempty"`
}

// NarrativeTr is a table row.
type NarrativeTr struct {
	Ths []string `xml:"th,omitempty"`
	Tds []string `xml:"td,omitempty"`
}

// NarrativeList is an unordered narrative list.
type NarrativeList struct {
	Items []string `xml:"item,omitempty"`
}

// Entry represents a CDA entry element containing clinical data.
type Entry struct {
	TypeCode                string                   `xml:"typeCode,attr,omitempty"`
	Act                     *Act                     `xml:"act,omitempty"`
	Organizer               *Organizer               `xml:"organizer,omitempty"`
	SubstanceAdministration *SubstanceAdministration `xml:"substanceAdministration,omitempty"`
	Procedure               *ProcedureEntry          `xml:"procedure,omitempty"`
	Encounter               *EncounterEntry          `xml:"encounter,omitempty"`
	Observation             *ObservationEntry        `xml:"observation,omitempty"`
}

// Act represents a CDA act element.
type Act struct {
	ClassCode          string              `xml:"classCode,attr,omitempty"`
	MoodCode           string              `xml:"moodCode,attr,omitempty"`
	TemplateIDs        []TemplateID        `xml:"templateId,omitempty"`
	IDs                []InstanceID        `xml:"id,omitempty"`
	Code               *Code               `xml:"code,omitempty"`
	Text               string              `xml:"text,omitempty"`
	StatusCode         *Code               `xml:"statusCode,omitempty"`
	EffectiveTime      *EffectiveTime      `xml:"effectiveTime,omitempty"`
	EntryRelationships []EntryRelationship `xml:"entryRelationship,omitempty"`
}

// EntryRelationship links entries together.
type EntryRelationship struct {
	TypeCode     string            `xml:"typeCode,attr,omitempty"`
	InversionInd string            `xml:"inversionInd,attr,omitempty"`
	Observation  *ObservationEntry `xml:"observation,omitempty"`
	Act          *Act              `xml:"act,omitempty"`
}

// ObservationEntry represents a CDA observation.
type ObservationEntry struct {
	ClassCode          string              `xml:"classCode,attr,omitempty"`
	MoodCode           string              `xml:"moodCode,attr,omitempty"`
	NegationInd        string              `xml:"negationInd,attr,omitempty"`
	TemplateIDs        []TemplateID        `xml:"templateId,omitempty"`
	IDs                []InstanceID        `xml:"id,omitempty"`
	Code               *Code               `xml:"code,omitempty"`
	Text               string              `xml:"text,omitempty"`
	StatusCode         *Code               `xml:"statusCode,omitempty"`
	EffectiveTime      *EffectiveTime      `xml:"effectiveTime,omitempty"`
	Value              *Value              `xml:"value,omitempty"`
	InterpretationCode *Code               `xml:"interpretationCode,omitempty"`
	Participant        *Participant        `xml:"participant,omitempty"`
	EntryRelationships []EntryRelationship `xml:"entryRelationship,omitempty"`
	ReferenceRange     *ReferenceRange     `xml:"referenceRange,omitempty"`
}

// Value represents a typed value (physical quantity, coded value, string).
type Value struct {
	Type        string `xml:"xsi:type,attr,omitempty"`
	Value       string `xml:"value,attr,omitempty"`
	Unit        string `xml:"unit,attr,omitempty"`
	Code        string `xml:"code,attr,omitempty"`
	CodeSystem  string `xml:"codeSystem,attr,omitempty"`
	DisplayName string `xml:"displayName,attr,omitempty"`
	NullFlavor  string `xml:"nullFlavor,attr,omitempty"`
	Text        string `xml:",chardata"`
}

// ReferenceRange carries the normal range of a result observation.
type ReferenceRange struct {
	ObservationRange *ObservationRange `xml:"observationRange,omitempty"`
}

// ObservationRange is the textual reference range.
type ObservationRange struct {
	Text string `xml:"text,omitempty"`
}

// Participant represents a participant in an entry.
type Participant struct {
	TypeCode        string           `xml:"typeCode,attr,omitempty"`
	ParticipantRole *ParticipantRole `xml:"participantRole,omitempty"`
}

// ParticipantRole holds participant role information.
type ParticipantRole struct {
	ClassCode     string         `xml:"classCode,attr,omitempty"`
	PlayingEntity *PlayingEntity `xml:"playingEntity,omitempty"`
}

// PlayingEntity holds an entity name and code.
type PlayingEntity struct {
	ClassCode string `xml:"classCode,attr,omitempty"`
	Code      *Code  `xml:"code,omitempty"`
	Name      string `xml:"name,omitempty"`
}

// SubstanceAdministration represents a medication or immunization entry.
type SubstanceAdministration struct {
	ClassCode     string         `xml:"classCode,attr,omitempty"`
	MoodCode      string         `xml:"moodCode,attr,omitempty"`
	NegationInd   string         `xml:"negationInd,attr,omitempty"`
	TemplateIDs   []TemplateID   `xml:"templateId,omitempty"`
	IDs           []InstanceID   `xml:"id,omitempty"`
	StatusCode    *Code          `xml:"statusCode,omitempty"`
	EffectiveTime *EffectiveTime `xml:"effectiveTime,omitempty"`
	RouteCode     *Code          `xml:"routeCode,omitempty"`
	Consumable    *Consumable    `xml:"consumable,omitempty"`
}

// Consumable wraps a manufactured product.
type Consumable struct {
	ManufacturedProduct *ManufacturedProduct `xml:"manufacturedProduct,omitempty"`
}

// ManufacturedProduct holds a medication or vaccine material.
type ManufacturedProduct struct {
	ClassCode            string                `xml:"classCode,attr,omitempty"`
	TemplateIDs          []TemplateID          `xml:"templateId,omitempty"`
	ManufacturedMaterial *ManufacturedMaterial `xml:"manufacturedMaterial,omitempty"`
}

// ManufacturedMaterial holds the product code and lot.
type ManufacturedMaterial struct {
	Code          *Code  `xml:"code,omitempty"`
	LotNumberText string `xml:"lotNumberText,omitempty"`
}

// Organizer groups related observations (lab panels, vital sign sets).
type Organizer struct {
	ClassCode     string               `xml:"classCode,attr,omitempty"`
	MoodCode      string               `xml:"moodCode,attr,omitempty"`
	TemplateIDs   []TemplateID         `xml:"templateId,omitempty"`
	IDs           []InstanceID         `xml:"id,omitempty"`
	Code          *Code                `xml:"code,omitempty"`
	StatusCode    *Code                `xml:"statusCode,omitempty"`
	EffectiveTime *EffectiveTime       `xml:"effectiveTime,omitempty"`
	Components    []OrganizerComponent `xml:"component,omitempty"`
}

// OrganizerComponent wraps an observation inside an organizer.
type OrganizerComponent struct {
	Observation *ObservationEntry `xml:"observation,omitempty"`
}

// ProcedureEntry represents a CDA procedure.
type ProcedureEntry struct {
	ClassCode     string         `xml:"classCode,attr,omitempty"`
	MoodCode      string         `xml:"moodCode,attr,omitempty"`
	TemplateIDs   []TemplateID   `xml:"templateId,omitempty"`
	IDs           []InstanceID   `xml:"id,omitempty"`
	Code          *Code          `xml:"code,omitempty"`
	StatusCode    *Code          `xml:"statusCode,omitempty"`
	EffectiveTime *EffectiveTime `xml:"effectiveTime,omitempty"`
}

// EncounterEntry represents a CDA encounter.
type EncounterEntry struct {
	ClassCode     string         `xml:"classCode,attr,omitempty"`
	MoodCode      string         `xml:"moodCode,attr,omitempty"`
	TemplateIDs   []TemplateID   `xml:"templateId,omitempty"`
	IDs           []InstanceID   `xml:"id,omitempty"`
	Code          *Code          `xml:"code,omitempty"`
	StatusCode    *Code          `xml:"statusCode,omitempty"`
	EffectiveTime *EffectiveTime `xml:"effectiveTime,omitempty"`
}
