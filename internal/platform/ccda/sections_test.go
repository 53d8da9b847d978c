package ccda

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestBuilder_EmptyCategoriesRenderFallback(t *testing.T) {
	b := newTestBuilder()
	empty := &ParsedDocument{}

	for _, c := range Categories {
		t.Run(string(c), func(t *testing.T) {
			s, err := b.Build(c, empty)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tmpl, _ := c.Template()
			if len(s.TemplateIDs) != 1 || s.TemplateIDs[0].Root != tmpl.SectionOID {
				t.Errorf("expected section template %s, got %+v", tmpl.SectionOID, s.TemplateIDs)
			}
			if s.Code == nil || s.Code.Code != tmpl.LOINC {
				t.Errorf("expected LOINC %s, got %+v", tmpl.LOINC, s.Code)
			}
			if s.NullFlavor != "NI" {
				t.Errorf("expected nullFlavor NI, got %q", s.NullFlavor)
			}
			if s.Text == nil || len(s.Text.Paragraphs) != 1 || s.Text.Paragraphs[0] != tmpl.NoData {
				t.Errorf("expected no-data sentence %q, got %+v", tmpl.NoData, s.Text)
			}
			if len(s.Entries) != 0 {
				t.Errorf("expected no entries, got %d", len(s.Entries))
			}
		})
	}
}

func TestBuilder_UnknownCategory(t *testing.T) {
	b := newTestBuilder()
	if _, err := b.Build(Category("billing"), &ParsedDocument{}); err == nil {
		t.Fatal("expected error for unknown category")
	}
}

func TestBuilder_Allergies_MissingDisplayAndDate(t *testing.T) {
	b := newTestBuilder()
	s, err := b.Allergies([]Allergy{{Coding: Coding{Code: "7980"}, Status: "active"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.NullFlavor != "" {
		t.Errorf("populated section must not carry a null flavor, got %q", s.NullFlavor)
	}
	row := s.Text.Table.Tbody.Trs[0].Tds
	if row[0] != "Unknown" {
		t.Errorf("expected Unknown substance, got %q", row[0])
	}
	if row[3] != "No information" {
		t.Errorf("expected No information onset, got %q", row[3])
	}

	act := s.Entries[0].Act
	if act.EffectiveTime.Low == nil || act.EffectiveTime.Low.NullFlavor != "NI" {
		t.Errorf("expected low nullFlavor NI, got %+v", act.EffectiveTime.Low)
	}
	if act.StatusCode.Code != "active" {
		t.Errorf("expected concern status active, got %q", act.StatusCode.Code)
	}
	pe := act.EntryRelationships[0].Observation.Participant.ParticipantRole.PlayingEntity
	if pe.Code.Code != "7980" || pe.Code.CodeSystem != OIDRxNorm {
		t.Errorf("expected RxNorm 7980 with default system, got %+v", pe.Code)
	}
}

func TestBuilder_Allergies_RawReactionsSkipBadElements(t *testing.T) {
	b := newTestBuilder()
	a := Allergy{
		Coding:       Coding{Code: "7980", Display: "Penicillin"},
		Status:       "active",
		Reactions:    []Reaction{{Coding: Coding{Code: "247472004", Display: "Hives"}}},
		RawReactions: json.RawMessage(`[{"code":"422587007","display":"Nausea"}, 42, {}, {"display":"Rash"}]`),
	}
	s, err := b.Allergies([]Allergy{a})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Text.Table.Tbody.Trs[0].Tds[1]; got != "Hives, Nausea, Rash" {
		t.Errorf("expected three reactions in narrative, got %q", got)
	}

	obs := s.Entries[0].Act.EntryRelationships[0].Observation
	var manifestations int
	for _, er := range obs.EntryRelationships {
		if er.TypeCode == "MFST" {
			manifestations++
		}
	}
	if manifestations != 3 {
		t.Errorf("expected 3 reaction observations, got %d", manifestations)
	}
}

func TestBuilder_Allergies_UndecodableRawReactions(t *testing.T) {
	b := newTestBuilder()
	a := Allergy{
		Coding:       Coding{Code: "7980", Display: "Penicillin"},
		RawReactions: json.RawMessage(`{not json`),
	}
	s, err := b.Allergies([]Allergy{a})
	if err != nil {
		t.Fatalf("nested decode failure must not fail the section: %v", err)
	}
	if len(s.Entries) != 1 {
		t.Fatalf("expected allergy still rendered, got %d entries", len(s.Entries))
	}
	if got := s.Text.Table.Tbody.Trs[0].Tds[1]; got != "None recorded" {
		t.Errorf("expected None recorded, got %q", got)
	}
}

func TestBuilder_RecordIDs(t *testing.T) {
	b := newTestBuilder()
	s, err := b.Procedures([]Procedure{
		{ID: "proc-1", Coding: Coding{Code: "80146002", Display: "Appendectomy"}},
		{Coding: Coding{Code: "73761001", Display: "Colonoscopy"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	natural := s.Entries[0].Procedure.IDs[0]
	if natural.Root != testOrgOID || natural.Extension != "proc-1" {
		t.Errorf("expected natural id under org root, got %+v", natural)
	}
	fresh := s.Entries[1].Procedure.IDs[0]
	if fresh.Extension != "" || !strings.HasPrefix(fresh.Root, "00000000-0000-4000-8000-") {
		t.Errorf("expected generated id, got %+v", fresh)
	}
}

func TestBuilder_IDFailurePropagates(t *testing.T) {
	b := NewBuilder(failingIDs(0), testOrgOID, zerolog.Nop())
	_, err := b.Encounters([]Encounter{{Coding: Coding{Code: "AMB"}}})
	if err == nil {
		t.Fatal("expected id generation failure to propagate")
	}
}

func TestBuilder_Results_GroupsConsecutivePanels(t *testing.T) {
	b := newTestBuilder()
	s, err := b.Results(fullChart().Results)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Entries) != 3 {
		t.Fatalf("expected 3 organizers, got %d", len(s.Entries))
	}
	panel := s.Entries[0].Organizer
	if panel.Code.Code != "24323-8" || len(panel.Components) != 2 {
		t.Errorf("expected panel 24323-8 with 2 results, got %+v", panel)
	}
	single := s.Entries[1].Organizer
	if single.Code.NullFlavor != "NA" || len(single.Components) != 1 {
		t.Errorf("expected panel-less organizer with 1 result, got %+v", single)
	}

	glucose := panel.Components[0].Observation
	if glucose.Value.Type != "PQ" || glucose.Value.Value != "95" || glucose.Value.Unit != "mg/dL" {
		t.Errorf("expected PQ 95 mg/dL, got %+v", glucose.Value)
	}
	if glucose.InterpretationCode == nil || glucose.InterpretationCode.Code != "N" {
		t.Errorf("expected interpretation N, got %+v", glucose.InterpretationCode)
	}
	urine := single.Components[0].Observation
	if urine.Value.Type != "ST" || urine.Value.Text != "Yellow" || urine.Value.Unit != "" {
		t.Errorf("expected ST Yellow, got %+v", urine.Value)
	}
	titer := s.Entries[2].Organizer.Components[0].Observation
	if titer.Value.Type != "ST" || titer.Value.Text != "1:40" || titer.Value.Unit != "{titer}" {
		t.Errorf("expected ST 1:40 keeping its unit, got %+v", titer.Value)
	}
	if len(s.Text.Table.Tbody.Trs) != 4 {
		t.Errorf("expected one narrative row per result, got %d", len(s.Text.Table.Tbody.Trs))
	}
}

func TestBuilder_Vitals_GroupsByTimestamp(t *testing.T) {
	b := newTestBuilder()
	s, err := b.Vitals(fullChart().Vitals)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Entries) != 2 {
		t.Fatalf("expected 2 vital sign organizers, got %d", len(s.Entries))
	}
	if n := len(s.Entries[0].Organizer.Components); n != 2 {
		t.Errorf("expected blood pressure pair in one organizer, got %d", n)
	}
	temp := s.Entries[1].Organizer.Components[0].Observation.Value
	if temp.Value != "36.8" || temp.Unit != "Cel" {
		t.Errorf("expected 36.8 Cel, got %+v", temp)
	}
}

func TestBuilder_Immunizations_NotDone(t *testing.T) {
	b := newTestBuilder()
	s, err := b.Immunizations(fullChart().Immunizations)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	given := s.Entries[0].SubstanceAdministration
	if given.NegationInd != "false" || given.StatusCode.Code != "completed" {
		t.Errorf("expected administered immunization, got negation %q status %+v", given.NegationInd, given.StatusCode)
	}
	if given.Consumable.ManufacturedProduct.ManufacturedMaterial.LotNumberText != "LOT123" {
		t.Error("expected lot number LOT123")
	}
	refused := s.Entries[1].SubstanceAdministration
	if refused.NegationInd != "true" {
		t.Errorf("expected negationInd true for not-done, got %q", refused.NegationInd)
	}
	if got := s.Text.Table.Tbody.Trs[1].Tds[3]; got != "No information" {
		t.Errorf("expected missing lot to read No information, got %q", got)
	}
}

func TestBuilder_CarePlans_SkipsBadActivities(t *testing.T) {
	b := newTestBuilder()
	cp := CarePlan{
		Coding:        Coding{Code: "698360004", Display: "Diabetes plan"},
		Status:        "active",
		RawActivities: json.RawMessage(`[{"code":"229065009","display":"Exercise therapy","status":"active"},"garbage"]`),
	}
	s, err := b.CarePlans([]CarePlan{cp})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	act := s.Entries[0].Act
	if len(act.EntryRelationships) != 1 {
		t.Fatalf("expected 1 activity, got %d", len(act.EntryRelationships))
	}
	if act.EntryRelationships[0].Act.Code.Code != "229065009" {
		t.Errorf("unexpected activity %+v", act.EntryRelationships[0].Act.Code)
	}
}

func TestBuilder_PreservesInputOrder(t *testing.T) {
	b := newTestBuilder()
	s, err := b.Problems(fullChart().Problems)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows := s.Text.Table.Tbody.Trs
	if rows[0].Tds[0] != "Hypertension" || rows[1].Tds[0] != "Acute viral pharyngitis" {
		t.Errorf("expected caller order, got %q then %q", rows[0].Tds[0], rows[1].Tds[0])
	}
	resolved := s.Entries[1].Act
	if resolved.StatusCode.Code != "completed" {
		t.Errorf("expected completed concern for resolved problem, got %q", resolved.StatusCode.Code)
	}
}
