package ccda

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

// OrgInfo identifies the authoring and custodian organization written into
// every document header.
type OrgInfo struct {
	Name         string
	OID          string
	SoftwareName string
}

// Extras carries the document-specific inputs of the referral, discharge and
// transfer kinds.
type Extras struct {
	Referral  *ReferralDetails
	Encounter *Encounter
}

// Composer assembles complete documents from a header and an ordered set of
// sections. It holds only immutable configuration and is safe for concurrent
// use.
type Composer struct {
	builder *Builder
	ids     IDGenerator
	org     OrgInfo
	now     func() time.Time
}

// NewComposer creates a document composer.
func NewComposer(builder *Builder, ids IDGenerator, org OrgInfo) *Composer {
	return &Composer{
		builder: builder,
		ids:     ids,
		org:     org,
		now:     time.Now,
	}
}

// Compose renders a document of the given kind. Section order is fixed by the
// kind. Nothing is rendered unless every section builds.
func (c *Composer) Compose(kind DocumentKind, doc *ParsedDocument, extras Extras) ([]byte, error) {
	t, ok := kind.Template()
	if !ok {
		return nil, fmt.Errorf("ccda: unknown document kind %q: %w", kind, ErrValidation)
	}
	if doc == nil {
		return nil, fmt.Errorf("ccda: document data is nil: %w", ErrValidation)
	}
	if t.NeedsEncounter && extras.Encounter == nil {
		return nil, fmt.Errorf("ccda: %s requires an encounter: %w", kind, ErrNotFound)
	}
	if kind == KindReferral {
		if extras.Referral == nil {
			return nil, fmt.Errorf("ccda: referral details are required: %w", ErrValidation)
		}
		if err := extras.Referral.Validate(); err != nil {
			return nil, err
		}
	}

	var sections []Section
	if kind == KindReferral {
		sections = append(sections, referralSection(*extras.Referral))
	}
	for _, cat := range t.Sections {
		s, err := c.builder.Build(cat, doc)
		if err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	if kind == KindDischarge {
		dx, err := c.dischargeDiagnosisSection(doc.Problems)
		if err != nil {
			return nil, err
		}
		sections = append(sections, dx, hospitalCourseSection())
	}

	docID, err := c.ids()
	if err != nil {
		return nil, fmt.Errorf("ccda: generate document id: %w", err)
	}
	now := c.now().UTC()

	cda := c.header(t, docID, now, doc.Patient)
	switch kind {
	case KindContinuityOfCare:
		cda.DocumentationOf = buildDocumentationOf(doc.Patient.BirthDate, now)
	case KindReferral:
		cda.InformationRecipient = buildInformationRecipient(extras.Referral.Recipient)
	case KindDischarge, KindTransfer:
		cda.ComponentOf = c.buildComponentOf(extras.Encounter)
	}

	components := make([]SectionComponent, len(sections))
	for i := range sections {
		components[i] = SectionComponent{Section: &sections[i]}
	}
	cda.Component = &Component{StructuredBody: &StructuredBody{Components: components}}

	return Render(cda)
}

// Render serializes a document with the XML declaration prepended. This is
// the only place text is escaped.
func Render(doc *ClinicalDocument) ([]byte, error) {
	output, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("ccda: failed to marshal XML: %w", err)
	}
	result := make([]byte, 0, len(xml.Header)+len(output))
	result = append(result, xml.Header...)
	return append(result, output...), nil
}

func (c *Composer) header(t DocumentTemplate, docID string, now time.Time, p Patient) *ClinicalDocument {
	return &ClinicalDocument{
		XSI:         XSINamespace,
		SDTC:        SDTCNamespace,
		RealmCode:   &Code{Code: "US"},
		TypeID:      &TypeID{Root: CDATypeIDRoot, Extension: CDATypeIDExtension},
		TemplateIDs: []TemplateID{{Root: OIDUSRealmHeader}, {Root: t.TemplateOID}},
		ID:          &InstanceID{Root: docID},
		Code: &Code{
			Code:           t.LOINC,
			CodeSystem:     OIDLOINC,
			CodeSystemName: "LOINC",
			DisplayName:    t.LOINCName,
		},
		Title:               t.Title,
		EffectiveTime:       &TimeValue{Value: FormatTime(now)},
		ConfidentialityCode: &Code{Code: "N", CodeSystem: OIDConfidentiality},
		LanguageCode:        &Code{Code: "en-US"},
		SetID:               &InstanceID{Root: docID},
		VersionNumber:       &IntValue{Value: 1},
		RecordTarget:        c.buildRecordTarget(p),
		Author:              c.buildAuthor(now),
		Custodian:           c.buildCustodian(),
	}
}

// buildRecordTarget constructs the patient header. The local patient id is
// written first under the organization root, then every declared identifier.
func (c *Composer) buildRecordTarget(p Patient) *RecordTarget {
	role := &PatientRole{}
	if p.ID != "" {
		role.IDs = append(role.IDs, InstanceID{Root: c.org.OID, Extension: p.ID})
	}
	for _, id := range p.Identifiers {
		role.IDs = append(role.IDs, InstanceID{Root: id.System, Extension: id.Value})
	}
	if len(role.IDs) == 0 {
		role.IDs = []InstanceID{{NullFlavor: nullNoInfo}}
	}

	if p.Address != nil {
		role.Addr = &PostalAddress{
			Use:               p.Address.Use,
			StreetAddressLine: p.Address.Lines,
			City:              p.Address.City,
			State:             p.Address.State,
			PostalCode:        p.Address.PostalCode,
			Country:           p.Address.Country,
		}
	}
	if p.Phone != "" {
		role.Telecom = &Telecom{Use: "HP", Value: "tel:" + p.Phone}
	}

	node := &PatientNode{
		Name:                     &Name{Use: "L", Given: p.GivenNames, Family: p.FamilyName},
		AdministrativeGenderCode: genderCode(p.Gender),
		BirthTime:                timeValue(p.BirthDate),
	}
	if p.Race != nil {
		node.RaceCode = codeOf(*p.Race, OIDRaceEthnicity)
	}
	if p.Ethnicity != nil {
		node.EthnicGroupCode = codeOf(*p.Ethnicity, OIDRaceEthnicity)
	}
	if p.Language != "" {
		node.LanguageCommunication = &LanguageCommunication{LanguageCode: &Code{Code: p.Language}}
	}
	role.Patient = node
	return &RecordTarget{PatientRole: role}
}

// buildAuthor creates the document author section.
func (c *Composer) buildAuthor(now time.Time) *Author {
	return &Author{
		Time: &TimeValue{Value: FormatTime(now)},
		AssignedAuthor: &AssignedAuthor{
			ID: &InstanceID{Root: c.org.OID},
			AssignedAuthoringDevice: &AuthoringDevice{
				SoftwareName: c.org.SoftwareName,
			},
			RepresentedOrganization: c.organization(),
		},
	}
}

// buildCustodian creates the custodian section.
func (c *Composer) buildCustodian() *Custodian {
	return &Custodian{
		AssignedCustodian: &AssignedCustodian{
			RepresentedCustodianOrganization: c.organization(),
		},
	}
}

func (c *Composer) organization() *Organization {
	return &Organization{
		IDs:   []InstanceID{{Root: c.org.OID}},
		Names: []string{c.org.Name},
	}
}

func (c *Composer) buildComponentOf(e *Encounter) *ComponentOf {
	id := InstanceID{Root: c.org.OID, Extension: e.ID}
	if e.ID == "" {
		id = InstanceID{NullFlavor: nullNoInfo}
	}
	return &ComponentOf{
		EncompassingEncounter: &EncompassingEncounter{
			IDs:           []InstanceID{id},
			Code:          codeOf(e.Coding, OIDActCode),
			EffectiveTime: interval(e.Start, e.End),
		},
	}
}

// buildDocumentationOf covers the patient's care from birth to now.
func buildDocumentationOf(birth *time.Time, now time.Time) *DocumentationOf {
	return &DocumentationOf{
		ServiceEvent: &ServiceEvent{
			ClassCode:     "PCPR",
			EffectiveTime: &EffectiveTime{Low: timeValue(birth), High: &TimeValue{Value: FormatTime(now)}},
		},
	}
}

func buildInformationRecipient(r *Recipient) *InformationRecipient {
	if r == nil {
		return nil
	}
	intended := &IntendedRecipient{}
	if r.Identifier != "" {
		intended.IDs = []InstanceID{{Extension: r.Identifier}}
	}
	if r.Name != "" {
		intended.InformationRecipient = &PersonName{Name: r.Name}
	}
	if r.Organization != "" {
		intended.ReceivedOrganization = &Organization{Names: []string{r.Organization}}
	}
	return &InformationRecipient{IntendedRecipient: intended}
}

func referralSection(r ReferralDetails) Section {
	s := newSection(OIDReasonForReferralSection, LOINCReasonForReferral, "Reason for Referral")
	text := &Narrative{Paragraphs: []string{"Reason: " + r.Reason}}
	if r.Urgency != "" {
		text.Paragraphs = append(text.Paragraphs, "Urgency: "+r.Urgency)
	}
	if r.ClinicalHistory != "" {
		text.Paragraphs = append(text.Paragraphs, "Clinical history: "+r.ClinicalHistory)
	}
	if len(r.RequestedServices) > 0 {
		text.Paragraphs = append(text.Paragraphs, "Requested services:")
		text.List = &NarrativeList{Items: r.RequestedServices}
	}
	s.Text = text
	return s
}

// dischargeDiagnosisSection lists the active problems at discharge.
func (c *Composer) dischargeDiagnosisSection(problems []Problem) (Section, error) {
	s := newSection(OIDDischargeDiagnosisSection, LOINCDischargeDiagnosis, "Hospital Discharge Diagnosis")
	var items []string
	var entries []Entry
	for _, p := range problems {
		if !strings.EqualFold(p.Status, "active") {
			continue
		}
		items = append(items, displayOr(p.Display))
		dx, err := c.builder.problemAct(p, entryOID(CategoryProblems))
		if err != nil {
			return Section{}, err
		}
		actID, err := c.builder.freshID()
		if err != nil {
			return Section{}, err
		}
		entries = append(entries, Entry{
			TypeCode: "DRIV",
			Act: &Act{
				ClassCode:          "ACT",
				MoodCode:           "EVN",
				TemplateIDs:        []TemplateID{{Root: OIDHospitalDischargeDxAct}},
				IDs:                []InstanceID{actID},
				Code:               &Code{Code: LOINCDischargeDiagnosis, CodeSystem: OIDLOINC, DisplayName: "Discharge diagnosis"},
				EntryRelationships: []EntryRelationship{{TypeCode: "SUBJ", Act: dx}},
			},
		})
	}
	if len(items) == 0 {
		s.NullFlavor = nullNoInfo
		s.Text = &Narrative{Paragraphs: []string{"No active problems at discharge."}}
		return s, nil
	}
	s.Text = &Narrative{List: &NarrativeList{Items: items}}
	s.Entries = entries
	return s, nil
}

func hospitalCourseSection() Section {
	s := newSection(OIDHospitalCourseSection, LOINCHospitalCourse, "Hospital Course")
	s.Text = &Narrative{Paragraphs: []string{HospitalCourseText}}
	return s
}

// genderCode maps a gender string to the CDA administrative gender code.
// Anything other than male, female or other is written as a null flavor.
func genderCode(gender string) *Code {
	var code string
	switch strings.ToLower(gender) {
	case "male":
		code = "M"
	case "female":
		code = "F"
	case "other":
		code = "UN"
	default:
		return &Code{NullFlavor: "UNK"}
	}
	return &Code{Code: code, CodeSystem: OIDAdminGender, DisplayName: gender}
}

// genderForCode is the inverse of genderCode. UNK and anything unmapped
// decode to "unknown".
func genderForCode(code string) string {
	switch strings.ToUpper(code) {
	case "M":
		return "male"
	case "F":
		return "female"
	case "UN":
		return "other"
	default:
		return "unknown"
	}
}
