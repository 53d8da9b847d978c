package ccda

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	unknownDisplay = "Unknown"
	noInformation  = "No information"
	nullNoInfo     = "NI"
)

// Builder renders one clinical category into a section: a narrative table
// plus one structured entry per record (grouped by organizer for results and
// vital signs). Builders never re-sort their input.
type Builder struct {
	ids    IDGenerator
	orgOID string
	log    zerolog.Logger
}

// NewBuilder creates a section builder. Natural record identifiers are written
// under orgOID; records without one get an identifier from ids.
func NewBuilder(ids IDGenerator, orgOID string, log zerolog.Logger) *Builder {
	return &Builder{ids: ids, orgOID: orgOID, log: log}
}

// Build renders the category c from doc.
func (b *Builder) Build(c Category, doc *ParsedDocument) (Section, error) {
	switch c {
	case CategoryAllergies:
		return b.Allergies(doc.Allergies)
	case CategoryMedications:
		return b.Medications(doc.Medications)
	case CategoryProblems:
		return b.Problems(doc.Problems)
	case CategoryProcedures:
		return b.Procedures(doc.Procedures)
	case CategoryResults:
		return b.Results(doc.Results)
	case CategoryVitalSigns:
		return b.Vitals(doc.Vitals)
	case CategoryImmunizations:
		return b.Immunizations(doc.Immunizations)
	case CategorySocialHistory:
		return b.SocialHistory(doc.SocialHistory)
	case CategoryPlanOfCare:
		return b.CarePlans(doc.CarePlans)
	case CategoryEncounters:
		return b.Encounters(doc.Encounters)
	}
	return Section{}, fmt.Errorf("ccda: unknown category %q: %w", c, ErrValidation)
}

// Allergies renders the allergies section. Each allergy becomes a concern act
// wrapping an allergy observation with its status and reactions.
func (b *Builder) Allergies(list []Allergy) (Section, error) {
	var rows []NarrativeTr
	var entries []Entry
	for _, a := range list {
		reactions := b.reactions(a)

		names := make([]string, 0, len(reactions))
		for _, r := range reactions {
			names = append(names, displayOr(r.Display))
		}
		reactionText := "None recorded"
		if len(names) > 0 {
			reactionText = strings.Join(names, ", ")
		}
		rows = append(rows, NarrativeTr{Tds: []string{
			displayOr(a.Display), reactionText, displayOr(a.Status), narrativeDate(a.Onset),
		}})

		actID, err := b.recordID(a.ID)
		if err != nil {
			return Section{}, err
		}
		obsID, err := b.freshID()
		if err != nil {
			return Section{}, err
		}

		obs := &ObservationEntry{
			ClassCode:     "OBS",
			MoodCode:      "EVN",
			TemplateIDs:   []TemplateID{{Root: OIDAllergyObservation}},
			IDs:           []InstanceID{obsID},
			Code:          &Code{Code: "ASSERTION", CodeSystem: OIDActCode},
			StatusCode:    &Code{Code: "completed"},
			EffectiveTime: interval(a.Onset, nil),
			Value: &Value{
				Type:        "CD",
				Code:        "419199007",
				CodeSystem:  OIDSNOMED,
				DisplayName: "Allergy to substance",
			},
			Participant: &Participant{
				TypeCode: "CSM",
				ParticipantRole: &ParticipantRole{
					ClassCode: "MANU",
					PlayingEntity: &PlayingEntity{
						ClassCode: "MMAT",
						Code:      codeOf(a.Coding, OIDRxNorm),
						Name:      a.Display,
					},
				},
			},
		}
		obs.EntryRelationships = append(obs.EntryRelationships, EntryRelationship{
			TypeCode: "SUBJ", InversionInd: "true",
			Observation: statusObservation(OIDAllergyStatusObservation, a.Status),
		})
		for _, r := range reactions {
			obs.EntryRelationships = append(obs.EntryRelationships, EntryRelationship{
				TypeCode:     "MFST",
				InversionInd: "true",
				Observation: &ObservationEntry{
					ClassCode:   "OBS",
					MoodCode:    "EVN",
					TemplateIDs: []TemplateID{{Root: OIDReactionObservation}},
					Code:        &Code{Code: "ASSERTION", CodeSystem: OIDActCode},
					StatusCode:  &Code{Code: "completed"},
					Value:       valueCD(r.Coding, OIDSNOMED),
				},
			})
		}

		entries = append(entries, Entry{
			TypeCode: "DRIV",
			Act: &Act{
				ClassCode:     "ACT",
				MoodCode:      "EVN",
				TemplateIDs:   []TemplateID{{Root: entryOID(CategoryAllergies)}},
				IDs:           []InstanceID{actID},
				Code:          &Code{Code: "CONC", CodeSystem: OIDActClass},
				StatusCode:    &Code{Code: concernStatus(a.Status)},
				EffectiveTime: interval(a.Onset, nil),
				EntryRelationships: []EntryRelationship{
					{TypeCode: "SUBJ", Observation: obs},
				},
			},
		})
	}
	return b.assemble(CategoryAllergies, rows, entries), nil
}

// reactions returns the decoded reactions of a followed by any stored ones.
// Stored elements that do not decode are skipped.
func (b *Builder) reactions(a Allergy) []Reaction {
	out := append([]Reaction(nil), a.Reactions...)
	if len(a.RawReactions) == 0 {
		return out
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(a.RawReactions, &raw); err != nil {
		b.log.Warn().Err(err).
			Str("category", string(CategoryAllergies)).
			Str("field", "reactions").
			Str("record_id", a.ID).
			Msg("skipping undecodable stored reactions")
		return out
	}
	for i, elem := range raw {
		var r Reaction
		if err := json.Unmarshal(elem, &r); err != nil || r.empty() {
			b.log.Warn().Err(err).
				Str("category", string(CategoryAllergies)).
				Str("field", "reactions").
				Str("record_id", a.ID).
				Int("index", i).
				Msg("skipping undecodable reaction")
			continue
		}
		out = append(out, r)
	}
	return out
}

// Medications renders the medications section.
func (b *Builder) Medications(list []Medication) (Section, error) {
	var rows []NarrativeTr
	var entries []Entry
	for _, m := range list {
		route := noInformation
		if m.Route != nil {
			route = displayOr(m.Route.Display)
		}
		rows = append(rows, NarrativeTr{Tds: []string{
			displayOr(m.Display), route, displayOr(m.Status), narrativeDate(m.Start), narrativeDate(m.End),
		}})

		id, err := b.recordID(m.ID)
		if err != nil {
			return Section{}, err
		}
		sa := &SubstanceAdministration{
			ClassCode:     "SBADM",
			MoodCode:      "EVN",
			TemplateIDs:   []TemplateID{{Root: entryOID(CategoryMedications)}},
			IDs:           []InstanceID{id},
			StatusCode:    statusCode(m.Status),
			EffectiveTime: interval(m.Start, m.End),
			Consumable: &Consumable{
				ManufacturedProduct: &ManufacturedProduct{
					ClassCode:   "MANU",
					TemplateIDs: []TemplateID{{Root: OIDMedicationInformation}},
					ManufacturedMaterial: &ManufacturedMaterial{
						Code: codeOf(m.Coding, OIDRxNorm),
					},
				},
			},
		}
		if m.Route != nil {
			sa.RouteCode = codeOf(*m.Route, OIDNCIThesaurus)
		}
		entries = append(entries, Entry{TypeCode: "DRIV", SubstanceAdministration: sa})
	}
	return b.assemble(CategoryMedications, rows, entries), nil
}

// Problems renders the problem list section as concern acts.
func (b *Builder) Problems(list []Problem) (Section, error) {
	var rows []NarrativeTr
	var entries []Entry
	for _, p := range list {
		rows = append(rows, NarrativeTr{Tds: []string{
			displayOr(p.Display), displayOr(p.Status), narrativeDate(p.Onset), narrativeDate(p.Resolved),
		}})
		act, err := b.problemAct(p, entryOID(CategoryProblems))
		if err != nil {
			return Section{}, err
		}
		entries = append(entries, Entry{TypeCode: "DRIV", Act: act})
	}
	return b.assemble(CategoryProblems, rows, entries), nil
}

// problemAct wraps a problem observation in a concern act with the given
// template. The discharge diagnosis section reuses it.
func (b *Builder) problemAct(p Problem, templateOID string) (*Act, error) {
	actID, err := b.recordID(p.ID)
	if err != nil {
		return nil, err
	}
	obsID, err := b.freshID()
	if err != nil {
		return nil, err
	}
	obs := &ObservationEntry{
		ClassCode:     "OBS",
		MoodCode:      "EVN",
		TemplateIDs:   []TemplateID{{Root: OIDProblemObservation}},
		IDs:           []InstanceID{obsID},
		Code:          &Code{Code: "55607006", CodeSystem: OIDSNOMED, DisplayName: "Problem"},
		StatusCode:    &Code{Code: "completed"},
		EffectiveTime: interval(p.Onset, p.Resolved),
		Value:         valueCD(p.Coding, OIDSNOMED),
	}
	obs.EntryRelationships = append(obs.EntryRelationships, EntryRelationship{
		TypeCode: "REFR", Observation: statusObservation(OIDProblemStatusObservation, p.Status),
	})
	return &Act{
		ClassCode:     "ACT",
		MoodCode:      "EVN",
		TemplateIDs:   []TemplateID{{Root: templateOID}},
		IDs:           []InstanceID{actID},
		Code:          &Code{Code: "CONC", CodeSystem: OIDActClass},
		StatusCode:    &Code{Code: concernStatus(p.Status)},
		EffectiveTime: interval(p.Onset, p.Resolved),
		EntryRelationships: []EntryRelationship{
			{TypeCode: "SUBJ", Observation: obs},
		},
	}, nil
}

func (b *Builder) Procedures(list []Procedure) (Section, error) {
	var rows []NarrativeTr
	var entries []Entry
	for _, p := range list {
		rows = append(rows, NarrativeTr{Tds: []string{
			displayOr(p.Display), displayOr(p.Status), narrativeDate(p.Performed),
		}})
		id, err := b.recordID(p.ID)
		if err != nil {
			return Section{}, err
		}
		entries = append(entries, Entry{
			TypeCode: "DRIV",
			Procedure: &ProcedureEntry{
				ClassCode:     "PROC",
				MoodCode:      "EVN",
				TemplateIDs:   []TemplateID{{Root: entryOID(CategoryProcedures)}},
				IDs:           []InstanceID{id},
				Code:          codeOf(p.Coding, OIDSNOMED),
				StatusCode:    statusCode(p.Status),
				EffectiveTime: point(p.Performed),
			},
		})
	}
	return b.assemble(CategoryProcedures, rows, entries), nil
}

// Results renders the results section. Consecutive results that share a
// panel code are grouped into one organizer; results without a panel get an
// organizer of their own.
func (b *Builder) Results(list []Result) (Section, error) {
	var rows []NarrativeTr
	var entries []Entry
	var current *Organizer
	currentPanel := ""

	for _, r := range list {
		rows = append(rows, NarrativeTr{Tds: []string{
			displayOr(r.Display), resultText(r), displayOr(r.Interpretation), displayOr(r.ReferenceRange), narrativeDate(r.Date),
		}})

		panel := ""
		if r.Panel != nil {
			panel = r.Panel.Code
		}
		if current == nil || panel == "" || panel != currentPanel {
			orgID, err := b.freshID()
			if err != nil {
				return Section{}, err
			}
			code := &Code{NullFlavor: "NA"}
			if r.Panel != nil {
				code = codeOf(*r.Panel, OIDLOINC)
			}
			entries = append(entries, Entry{
				TypeCode: "DRIV",
				Organizer: &Organizer{
					ClassCode:     "BATTERY",
					MoodCode:      "EVN",
					TemplateIDs:   []TemplateID{{Root: entryOID(CategoryResults)}},
					IDs:           []InstanceID{orgID},
					Code:          code,
					StatusCode:    &Code{Code: "completed"},
					EffectiveTime: point(r.Date),
				},
			})
			current = entries[len(entries)-1].Organizer
			currentPanel = panel
		}

		id, err := b.recordID(r.ID)
		if err != nil {
			return Section{}, err
		}
		obs := &ObservationEntry{
			ClassCode:     "OBS",
			MoodCode:      "EVN",
			TemplateIDs:   []TemplateID{{Root: OIDResultObservation}},
			IDs:           []InstanceID{id},
			Code:          codeOf(r.Coding, OIDLOINC),
			StatusCode:    &Code{Code: "completed"},
			EffectiveTime: point(r.Date),
			Value:         resultValue(r),
		}
		if r.Interpretation != "" {
			obs.InterpretationCode = &Code{Code: r.Interpretation, CodeSystem: OIDInterpretation}
		}
		if r.ReferenceRange != "" {
			obs.ReferenceRange = &ReferenceRange{ObservationRange: &ObservationRange{Text: r.ReferenceRange}}
		}
		current.Components = append(current.Components, OrganizerComponent{Observation: obs})
	}
	return b.assemble(CategoryResults, rows, entries), nil
}

// Vitals renders the vital signs section. Consecutive vitals taken at the
// same instant share one organizer.
func (b *Builder) Vitals(list []Vital) (Section, error) {
	var rows []NarrativeTr
	var entries []Entry
	var current *Organizer
	var currentTime *time.Time

	for _, v := range list {
		value := formatFloat(v.Value)
		if v.Unit != "" {
			value += " " + v.Unit
		}
		rows = append(rows, NarrativeTr{Tds: []string{displayOr(v.Display), value, narrativeDate(v.Date)}})

		if current == nil || !sameInstant(currentTime, v.Date) {
			orgID, err := b.freshID()
			if err != nil {
				return Section{}, err
			}
			entries = append(entries, Entry{
				TypeCode: "DRIV",
				Organizer: &Organizer{
					ClassCode:     "CLUSTER",
					MoodCode:      "EVN",
					TemplateIDs:   []TemplateID{{Root: entryOID(CategoryVitalSigns)}},
					IDs:           []InstanceID{orgID},
					Code:          &Code{Code: "46680005", CodeSystem: OIDSNOMED, DisplayName: "Vital signs"},
					StatusCode:    &Code{Code: "completed"},
					EffectiveTime: point(v.Date),
				},
			})
			current = entries[len(entries)-1].Organizer
			currentTime = v.Date
		}

		id, err := b.recordID(v.ID)
		if err != nil {
			return Section{}, err
		}
		unit := v.Unit
		if unit == "" {
			unit = "1"
		}
		current.Components = append(current.Components, OrganizerComponent{
			Observation: &ObservationEntry{
				ClassCode:     "OBS",
				MoodCode:      "EVN",
				TemplateIDs:   []TemplateID{{Root: OIDVitalSignObservation}},
				IDs:           []InstanceID{id},
				Code:          codeOf(v.Coding, OIDLOINC),
				StatusCode:    &Code{Code: "completed"},
				EffectiveTime: point(v.Date),
				Value:         &Value{Type: "PQ", Value: formatFloat(v.Value), Unit: unit},
			},
		})
	}
	return b.assemble(CategoryVitalSigns, rows, entries), nil
}

// Immunizations renders the immunizations section. A not-done immunization is
// written as a negated administration.
func (b *Builder) Immunizations(list []Immunization) (Section, error) {
	var rows []NarrativeTr
	var entries []Entry
	for _, im := range list {
		lot := im.LotNumber
		if lot == "" {
			lot = noInformation
		}
		rows = append(rows, NarrativeTr{Tds: []string{
			displayOr(im.Display), displayOr(im.Status), narrativeDate(im.Date), lot,
		}})

		id, err := b.recordID(im.ID)
		if err != nil {
			return Section{}, err
		}
		negated := strings.EqualFold(im.Status, ImmunizationNotDone)
		status := statusCode(im.Status)
		negation := "false"
		if negated {
			status = &Code{Code: "completed"}
			negation = "true"
		}
		entries = append(entries, Entry{
			TypeCode: "DRIV",
			SubstanceAdministration: &SubstanceAdministration{
				ClassCode:     "SBADM",
				MoodCode:      "EVN",
				NegationInd:   negation,
				TemplateIDs:   []TemplateID{{Root: entryOID(CategoryImmunizations)}},
				IDs:           []InstanceID{id},
				StatusCode:    status,
				EffectiveTime: point(im.Date),
				Consumable: &Consumable{
					ManufacturedProduct: &ManufacturedProduct{
						ClassCode:   "MANU",
						TemplateIDs: []TemplateID{{Root: OIDImmunizationInformation}},
						ManufacturedMaterial: &ManufacturedMaterial{
							Code:          codeOf(im.Coding, OIDCVX),
							LotNumberText: im.LotNumber,
						},
					},
				},
			},
		})
	}
	return b.assemble(CategoryImmunizations, rows, entries), nil
}

func (b *Builder) SocialHistory(list []SocialHistory) (Section, error) {
	var rows []NarrativeTr
	var entries []Entry
	for _, s := range list {
		rows = append(rows, NarrativeTr{Tds: []string{displayOr(s.Display), displayOr(s.Value), narrativeDate(s.Date)}})
		id, err := b.recordID(s.ID)
		if err != nil {
			return Section{}, err
		}
		obs := &ObservationEntry{
			ClassCode:     "OBS",
			MoodCode:      "EVN",
			TemplateIDs:   []TemplateID{{Root: entryOID(CategorySocialHistory)}},
			IDs:           []InstanceID{id},
			Code:          codeOf(s.Coding, OIDLOINC),
			StatusCode:    &Code{Code: "completed"},
			EffectiveTime: point(s.Date),
		}
		if s.Value != "" {
			obs.Value = &Value{Type: "ST", Text: s.Value}
		}
		entries = append(entries, Entry{TypeCode: "DRIV", Observation: obs})
	}
	return b.assemble(CategorySocialHistory, rows, entries), nil
}

// CarePlans renders the plan of care section. Each plan is a planned act with
// its activities as components.
func (b *Builder) CarePlans(list []CarePlan) (Section, error) {
	var rows []NarrativeTr
	var entries []Entry
	for _, cp := range list {
		activities := b.activities(cp)
		names := make([]string, 0, len(activities))
		for _, a := range activities {
			names = append(names, displayOr(a.Display))
		}
		activityText := "None recorded"
		if len(names) > 0 {
			activityText = strings.Join(names, ", ")
		}
		rows = append(rows, NarrativeTr{Tds: []string{
			displayOr(cp.Display), displayOr(cp.Status), narrativeDate(cp.Date), activityText,
		}})

		id, err := b.recordID(cp.ID)
		if err != nil {
			return Section{}, err
		}
		act := &Act{
			ClassCode:     "ACT",
			MoodCode:      "INT",
			TemplateIDs:   []TemplateID{{Root: entryOID(CategoryPlanOfCare)}},
			IDs:           []InstanceID{id},
			Code:          codeOf(cp.Coding, OIDSNOMED),
			StatusCode:    statusCode(cp.Status),
			EffectiveTime: point(cp.Date),
		}
		for _, a := range activities {
			act.EntryRelationships = append(act.EntryRelationships, EntryRelationship{
				TypeCode: "COMP",
				Act: &Act{
					ClassCode:   "ACT",
					MoodCode:    "INT",
					TemplateIDs: []TemplateID{{Root: OIDPlannedActivity}},
					Code:        codeOf(a.Coding, OIDSNOMED),
					StatusCode:  statusCode(a.Status),
				},
			})
		}
		entries = append(entries, Entry{TypeCode: "DRIV", Act: act})
	}
	return b.assemble(CategoryPlanOfCare, rows, entries), nil
}

func (b *Builder) activities(cp CarePlan) []CarePlanActivity {
	out := append([]CarePlanActivity(nil), cp.Activities...)
	if len(cp.RawActivities) == 0 {
		return out
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(cp.RawActivities, &raw); err != nil {
		b.log.Warn().Err(err).
			Str("category", string(CategoryPlanOfCare)).
			Str("field", "activities").
			Str("record_id", cp.ID).
			Msg("skipping undecodable stored activities")
		return out
	}
	for i, elem := range raw {
		var a CarePlanActivity
		if err := json.Unmarshal(elem, &a); err != nil || a.empty() {
			b.log.Warn().Err(err).
				Str("category", string(CategoryPlanOfCare)).
				Str("field", "activities").
				Str("record_id", cp.ID).
				Int("index", i).
				Msg("skipping undecodable activity")
			continue
		}
		out = append(out, a)
	}
	return out
}

func (b *Builder) Encounters(list []Encounter) (Section, error) {
	var rows []NarrativeTr
	var entries []Entry
	for _, e := range list {
		rows = append(rows, NarrativeTr{Tds: []string{displayOr(e.Display), narrativeDate(e.Start), narrativeDate(e.End)}})
		id, err := b.recordID(e.ID)
		if err != nil {
			return Section{}, err
		}
		entries = append(entries, Entry{
			TypeCode: "DRIV",
			Encounter: &EncounterEntry{
				ClassCode:     "ENC",
				MoodCode:      "EVN",
				TemplateIDs:   []TemplateID{{Root: entryOID(CategoryEncounters)}},
				IDs:           []InstanceID{id},
				Code:          codeOf(e.Coding, OIDActCode),
				EffectiveTime: interval(e.Start, e.End),
			},
		})
	}
	return b.assemble(CategoryEncounters, rows, entries), nil
}

// assemble wraps rows and entries in the section for c. An empty category
// still renders, with its no-data sentence and a null flavor.
func (b *Builder) assemble(c Category, rows []NarrativeTr, entries []Entry) Section {
	t, _ := c.Template()
	s := newSection(t.SectionOID, t.LOINC, t.Title)
	if len(rows) == 0 {
		s.NullFlavor = nullNoInfo
		s.Text = &Narrative{Paragraphs: []string{t.NoData}}
		return s
	}
	s.Text = buildNarrativeTable(t.Headers, rows)
	s.Entries = entries
	return s
}

// recordID returns the natural identifier of a record under the organization
// root, or a fresh one when the record has none.
func (b *Builder) recordID(natural string) (InstanceID, error) {
	if natural != "" {
		return InstanceID{Root: b.orgOID, Extension: natural}, nil
	}
	return b.freshID()
}

func (b *Builder) freshID() (InstanceID, error) {
	id, err := b.ids()
	if err != nil {
		return InstanceID{}, fmt.Errorf("ccda: generate entry id: %w", err)
	}
	return InstanceID{Root: id}, nil
}

// newSection creates a Section with standard template ID, code, and title.
func newSection(templateID, loincCode, title string) Section {
	return Section{
		TemplateIDs: []TemplateID{{Root: templateID}},
		Code: &Code{
			Code:           loincCode,
			CodeSystem:     OIDLOINC,
			CodeSystemName: "LOINC",
			DisplayName:    title,
		},
		Title: title,
	}
}

// buildNarrativeTable constructs a narrative table from headers and rows.
func buildNarrativeTable(headers []string, rows []NarrativeTr) *Narrative {
	return &Narrative{
		Table: &NarrativeTable{
			Border: "1",
			Thead:  &NarrativeThead{Tr: &NarrativeTr{Ths: headers}},
			Tbody:  &NarrativeTbody{Trs: rows},
		},
	}
}

func entryOID(c Category) string {
	t, _ := c.Template()
	return t.EntryOID
}

func displayOr(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknownDisplay
	}
	return s
}

func narrativeDate(t *time.Time) string {
	if t == nil {
		return noInformation
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

// codeOf converts a coding to a CDA code, defaulting the code system when a
// code is present without one. A coding with no code gets a null flavor.
func codeOf(c Coding, defaultSystem string) *Code {
	if c.Code == "" {
		return &Code{NullFlavor: nullNoInfo, DisplayName: c.Display}
	}
	system := c.System
	if system == "" {
		system = defaultSystem
	}
	return &Code{Code: c.Code, CodeSystem: system, DisplayName: c.Display}
}

func valueCD(c Coding, defaultSystem string) *Value {
	code := codeOf(c, defaultSystem)
	return &Value{
		Type:        "CD",
		Code:        code.Code,
		CodeSystem:  code.CodeSystem,
		DisplayName: code.DisplayName,
		NullFlavor:  code.NullFlavor,
	}
}

func statusCode(status string) *Code {
	if status == "" {
		return &Code{NullFlavor: nullNoInfo}
	}
	return &Code{Code: status}
}

// concernStatus derives the concern act status from a clinical status.
func concernStatus(status string) string {
	if strings.EqualFold(status, "active") {
		return "active"
	}
	return "completed"
}

// statusObservation carries a clinical status string verbatim in displayName,
// with the SNOMED code when the status is one of the known values. An empty
// status is written as a NI value so it is not read back from the concern act.
func statusObservation(templateOID, status string) *ObservationEntry {
	value := &Value{Type: "CD", NullFlavor: nullNoInfo}
	if status != "" {
		value = &Value{
			Type:        "CD",
			Code:        snomedStatus(status),
			CodeSystem:  OIDSNOMED,
			DisplayName: status,
		}
	}
	return &ObservationEntry{
		ClassCode:   "OBS",
		MoodCode:    "EVN",
		TemplateIDs: []TemplateID{{Root: templateOID}},
		Code:        &Code{Code: "33999-4", CodeSystem: OIDLOINC, DisplayName: "Status"},
		StatusCode:  &Code{Code: "completed"},
		Value:       value,
	}
}

func snomedStatus(status string) string {
	switch strings.ToLower(status) {
	case "active":
		return SNOMEDActive
	case "inactive":
		return SNOMEDInactive
	case "resolved":
		return SNOMEDResolved
	}
	return ""
}

func statusForSNOMED(code string) string {
	switch code {
	case SNOMEDActive:
		return "active"
	case SNOMEDInactive:
		return "inactive"
	case SNOMEDResolved:
		return "resolved"
	}
	return ""
}

func timeValue(t *time.Time) *TimeValue {
	if t == nil {
		return &TimeValue{NullFlavor: nullNoInfo}
	}
	return &TimeValue{Value: FormatTime(*t)}
}

func point(t *time.Time) *EffectiveTime {
	if t == nil {
		return &EffectiveTime{NullFlavor: nullNoInfo}
	}
	return &EffectiveTime{Value: FormatTime(*t)}
}

func interval(low, high *time.Time) *EffectiveTime {
	return &EffectiveTime{Type: "IVL_TS", Low: timeValue(low), High: timeValue(high)}
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// resultValue writes a physical quantity when the result is numeric with a
// unit, otherwise a string value. A string value keeps its unit in the unit
// attribute.
func resultValue(r Result) *Value {
	if r.Value == "" {
		return &Value{Type: "ST", NullFlavor: nullNoInfo}
	}
	if r.Unit != "" {
		if _, err := strconv.ParseFloat(r.Value, 64); err == nil {
			return &Value{Type: "PQ", Value: r.Value, Unit: r.Unit}
		}
	}
	return &Value{Type: "ST", Text: r.Value, Unit: r.Unit}
}

func resultText(r Result) string {
	if r.Value == "" {
		return noInformation
	}
	if r.Unit != "" {
		return r.Value + " " + r.Unit
	}
	return r.Value
}
