package ccda

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/rs/zerolog"
)

// Extractor decodes clinical documents into a ParsedDocument by walking an
// element tree. Sections are located by template id, so nested or reordered
// sections are never misattributed.
type Extractor struct {
	log         zerolog.Logger
	orgOID      string
	strictDates bool
}

// NewExtractor creates an Extractor. A patient id under orgOID is read back as
// the local Patient.ID. With strictDates an undecodable date fails the whole
// extraction; otherwise the date is dropped and a warning is recorded on the
// result.
func NewExtractor(log zerolog.Logger, orgOID string, strictDates bool) *Extractor {
	return &Extractor{log: log, orgOID: orgOID, strictDates: strictDates}
}

// Extract parses data. It fails with ErrValidation when data is not a
// ClinicalDocument in the HL7 v3 namespace. Absent sections yield empty lists.
func (x *Extractor) Extract(data []byte) (*ParsedDocument, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("ccda: empty document: %w", ErrValidation)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("ccda: malformed XML: %v: %w", err, ErrValidation)
	}
	root := doc.Root()
	if root == nil || root.Tag != "ClinicalDocument" || root.NamespaceURI() != CDANamespace {
		return nil, fmt.Errorf("ccda: root element is not an %s ClinicalDocument: %w", CDANamespace, ErrValidation)
	}

	d := &decoder{x: x, out: newParsedDocument()}
	d.header(root)
	d.patient(root)
	for _, c := range Categories {
		if sec := findSection(root, c); sec != nil {
			d.section(c, sec)
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.out, nil
}

func newParsedDocument() *ParsedDocument {
	return &ParsedDocument{
		Allergies:     []Allergy{},
		Medications:   []Medication{},
		Problems:      []Problem{},
		Procedures:    []Procedure{},
		Results:       []Result{},
		Vitals:        []Vital{},
		Immunizations: []Immunization{},
		SocialHistory: []SocialHistory{},
		CarePlans:     []CarePlan{},
		Encounters:    []Encounter{},
	}
}

// findSection locates the section of category c: first by the section
// template id, then the nearest section enclosing an entry with the entry
// template id, and last by the LOINC section code.
func findSection(root *etree.Element, c Category) *etree.Element {
	t, ok := c.Template()
	if !ok {
		return nil
	}
	sections := root.FindElements(".//section")
	for _, s := range sections {
		if hasTemplate(s, t.SectionOID) {
			return s
		}
	}
	for _, tid := range root.FindElements(".//templateId[@root='" + t.EntryOID + "']") {
		for p := tid.Parent(); p != nil; p = p.Parent() {
			if p.Tag == "section" {
				return p
			}
		}
	}
	for _, s := range sections {
		if code := s.SelectElement("code"); code != nil && code.SelectAttrValue("code", "") == t.LOINC {
			return s
		}
	}
	return nil
}

// decoder accumulates one extraction. err holds the first strict-mode failure.
type decoder struct {
	x   *Extractor
	out *ParsedDocument
	err error
}

func (d *decoder) header(root *etree.Element) {
	for _, tid := range root.SelectElements("templateId") {
		if k, ok := KindForTemplateOID(tid.SelectAttrValue("root", "")); ok {
			d.out.Kind = k
			break
		}
	}
	if title := root.SelectElement("title"); title != nil {
		d.out.Title = strings.TrimSpace(title.Text())
	}
	if id := root.SelectElement("id"); id != nil {
		d.out.DocumentID = id.SelectAttrValue("extension", "")
		if d.out.DocumentID == "" {
			d.out.DocumentID = id.SelectAttrValue("root", "")
		}
	}
	d.out.EffectiveTime = d.ts(root.SelectElement("effectiveTime"), "", "effective_time")
}

func (d *decoder) patient(root *etree.Element) {
	role := root.FindElement("recordTarget/patientRole")
	if role == nil {
		return
	}
	p := &d.out.Patient

	for _, id := range role.SelectElements("id") {
		if id.SelectAttrValue("nullFlavor", "") != "" {
			continue
		}
		root, ext := id.SelectAttrValue("root", ""), id.SelectAttrValue("extension", "")
		if p.ID == "" && ext != "" && d.x.orgOID != "" && root == d.x.orgOID {
			p.ID = ext
			continue
		}
		p.Identifiers = append(p.Identifiers, Identifier{System: root, Value: ext})
	}

	if addr := role.SelectElement("addr"); addr != nil {
		a := &Address{
			Use:        addr.SelectAttrValue("use", ""),
			City:       childText(addr, "city"),
			State:      childText(addr, "state"),
			PostalCode: childText(addr, "postalCode"),
			Country:    childText(addr, "country"),
		}
		for _, line := range addr.SelectElements("streetAddressLine") {
			a.Lines = append(a.Lines, strings.TrimSpace(line.Text()))
		}
		p.Address = a
	}

	for _, tel := range role.SelectElements("telecom") {
		if v := tel.SelectAttrValue("value", ""); strings.HasPrefix(v, "tel:") {
			p.Phone = strings.TrimPrefix(v, "tel:")
			break
		}
	}

	node := role.SelectElement("patient")
	if node == nil {
		return
	}
	if name := node.SelectElement("name"); name != nil {
		for _, g := range name.SelectElements("given") {
			p.GivenNames = append(p.GivenNames, strings.TrimSpace(g.Text()))
		}
		p.FamilyName = childText(name, "family")
	}
	if g := node.SelectElement("administrativeGenderCode"); g != nil {
		p.Gender = genderForCode(g.SelectAttrValue("code", ""))
	}
	p.BirthDate = d.ts(node.SelectElement("birthTime"), "", "patient.birth_time")
	if race := codingOf(node.SelectElement("raceCode")); !race.empty() {
		p.Race = &race
	}
	if eth := codingOf(node.SelectElement("ethnicGroupCode")); !eth.empty() {
		p.Ethnicity = &eth
	}
	if lang := node.FindElement("languageCommunication/languageCode"); lang != nil {
		p.Language = lang.SelectAttrValue("code", "")
	}
}

func (d *decoder) section(c Category, sec *etree.Element) {
	for _, entry := range sec.SelectElements("entry") {
		switch c {
		case CategoryAllergies:
			d.allergy(entry)
		case CategoryMedications:
			d.medication(entry)
		case CategoryProblems:
			d.problem(entry)
		case CategoryProcedures:
			d.procedure(entry)
		case CategoryResults:
			d.results(entry)
		case CategoryVitalSigns:
			d.vitals(entry)
		case CategoryImmunizations:
			d.immunization(entry)
		case CategorySocialHistory:
			d.social(entry)
		case CategoryPlanOfCare:
			d.carePlan(entry)
		case CategoryEncounters:
			d.encounter(entry)
		}
	}
}

func (d *decoder) allergy(entry *etree.Element) {
	act := entry.SelectElement("act")
	if act == nil {
		return
	}
	a := Allergy{ID: naturalID(act)}
	obs := relatedObservation(act, OIDAllergyObservation)
	timed := act
	statused := false
	if obs != nil {
		if pe := obs.FindElement("participant/participantRole/playingEntity"); pe != nil {
			a.Coding = codingOf(pe.SelectElement("code"))
			if a.Display == "" {
				a.Display = childText(pe, "name")
			}
		}
		a.Status, statused = statusObservationValue(obs, OIDAllergyStatusObservation)
		a.Reactions = d.reactions(obs)
		if obs.SelectElement("effectiveTime") != nil {
			timed = obs
		}
	}
	if !statused {
		a.Status = statusAttr(act)
	}
	a.Onset, _ = d.effective(timed, CategoryAllergies, "onset")
	if a.empty() {
		return
	}
	d.out.Allergies = append(d.out.Allergies, a)
}

// reactions decodes the manifestation observations of an allergy. A reaction
// without a code or display is skipped.
func (d *decoder) reactions(obs *etree.Element) []Reaction {
	var out []Reaction
	for _, er := range obs.SelectElements("entryRelationship") {
		o := er.SelectElement("observation")
		if o == nil {
			continue
		}
		if !hasTemplate(o, OIDReactionObservation) && er.SelectAttrValue("typeCode", "") != "MFST" {
			continue
		}
		r := Reaction{Coding: codingOf(o.SelectElement("value"))}
		if r.empty() {
			d.x.log.Warn().
				Str("category", string(CategoryAllergies)).
				Str("field", "reactions").
				Msg("skipping reaction without code or display")
			continue
		}
		out = append(out, r)
	}
	return out
}

func (d *decoder) medication(entry *etree.Element) {
	sa := entry.SelectElement("substanceAdministration")
	if sa == nil {
		return
	}
	m := Medication{
		ID:     naturalID(sa),
		Coding: codingOf(sa.FindElement("consumable/manufacturedProduct/manufacturedMaterial/code")),
		Status: statusAttr(sa),
	}
	if route := codingOf(sa.SelectElement("routeCode")); !route.empty() {
		m.Route = &route
	}
	m.Start, m.End = d.effective(sa, CategoryMedications, "effective_time")
	if m.empty() {
		return
	}
	d.out.Medications = append(d.out.Medications, m)
}

func (d *decoder) problem(entry *etree.Element) {
	act := entry.SelectElement("act")
	obs := entry.SelectElement("observation")
	if act != nil {
		obs = relatedObservation(act, OIDProblemObservation)
	}
	if obs == nil {
		return
	}
	p := Problem{Coding: codingOf(obs.SelectElement("value"))}
	status, statused := statusObservationValue(obs, OIDProblemStatusObservation)
	p.Status = status
	if act != nil {
		p.ID = naturalID(act)
		if !statused {
			p.Status = statusAttr(act)
		}
	} else {
		p.ID = naturalID(obs)
	}
	p.Onset, p.Resolved = d.effective(obs, CategoryProblems, "effective_time")
	if p.empty() {
		return
	}
	d.out.Problems = append(d.out.Problems, p)
}

func (d *decoder) procedure(entry *etree.Element) {
	el := firstChild(entry, "procedure", "act", "observation")
	if el == nil {
		return
	}
	p := Procedure{
		ID:        naturalID(el),
		Coding:    codingOf(el.SelectElement("code")),
		Status:    statusAttr(el),
		Performed: d.point(el, CategoryProcedures, "performed"),
	}
	if p.empty() {
		return
	}
	d.out.Procedures = append(d.out.Procedures, p)
}

// results walks a result organizer, or a bare observation entry.
func (d *decoder) results(entry *etree.Element) {
	org := entry.SelectElement("organizer")
	if org == nil {
		if o := entry.SelectElement("observation"); o != nil {
			d.result(o, nil, nil)
		}
		return
	}
	panel := codingOf(org.SelectElement("code"))
	for _, comp := range org.SelectElements("component") {
		o := comp.SelectElement("observation")
		if o == nil {
			continue
		}
		var p *Coding
		if !panel.empty() {
			pc := panel
			p = &pc
		}
		d.result(o, p, org)
	}
}

func (d *decoder) result(o *etree.Element, panel *Coding, org *etree.Element) {
	r := Result{
		ID:     naturalID(o),
		Coding: codingOf(o.SelectElement("code")),
		Panel:  panel,
	}
	if v := o.SelectElement("value"); v != nil && v.SelectAttrValue("nullFlavor", "") == "" {
		switch strings.ToUpper(xsiType(v)) {
		case "PQ":
			r.Value = v.SelectAttrValue("value", "")
			r.Unit = v.SelectAttrValue("unit", "")
		case "CD", "CE", "CO", "CV":
			c := codingOf(v)
			r.Value = c.Display
			if r.Value == "" {
				r.Value = c.Code
			}
		default:
			r.Value = strings.TrimSpace(v.Text())
			r.Unit = v.SelectAttrValue("unit", "")
		}
	}
	if ic := o.SelectElement("interpretationCode"); ic != nil {
		r.Interpretation = ic.SelectAttrValue("code", "")
	}
	if rr := o.FindElement("referenceRange/observationRange/text"); rr != nil {
		r.ReferenceRange = strings.TrimSpace(rr.Text())
	}
	timed := o
	if o.SelectElement("effectiveTime") == nil && org != nil {
		timed = org
	}
	r.Date = d.point(timed, CategoryResults, "date")
	if r.empty() {
		return
	}
	d.out.Results = append(d.out.Results, r)
}

func (d *decoder) vitals(entry *etree.Element) {
	org := entry.SelectElement("organizer")
	var observations []*etree.Element
	if org == nil {
		if o := entry.SelectElement("observation"); o != nil {
			observations = append(observations, o)
		}
	} else {
		for _, comp := range org.SelectElements("component") {
			if o := comp.SelectElement("observation"); o != nil {
				observations = append(observations, o)
			}
		}
	}
	for _, o := range observations {
		v := Vital{ID: naturalID(o), Coding: codingOf(o.SelectElement("code"))}
		if val := o.SelectElement("value"); val != nil && val.SelectAttrValue("nullFlavor", "") == "" {
			raw := val.SelectAttrValue("value", "")
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				d.warn(CategoryVitalSigns, "value", raw, err)
			}
			v.Value = f
			v.Unit = val.SelectAttrValue("unit", "")
			if v.Unit == "1" {
				v.Unit = ""
			}
		}
		timed := o
		if o.SelectElement("effectiveTime") == nil && org != nil {
			timed = org
		}
		v.Date = d.point(timed, CategoryVitalSigns, "date")
		if v.empty() {
			continue
		}
		d.out.Vitals = append(d.out.Vitals, v)
	}
}

func (d *decoder) immunization(entry *etree.Element) {
	sa := entry.SelectElement("substanceAdministration")
	if sa == nil {
		return
	}
	im := Immunization{
		ID:     naturalID(sa),
		Coding: codingOf(sa.FindElement("consumable/manufacturedProduct/manufacturedMaterial/code")),
		Status: statusAttr(sa),
		Date:   d.point(sa, CategoryImmunizations, "date"),
	}
	if strings.EqualFold(sa.SelectAttrValue("negationInd", ""), "true") {
		im.Status = ImmunizationNotDone
	}
	if lot := sa.FindElement("consumable/manufacturedProduct/manufacturedMaterial/lotNumberText"); lot != nil {
		im.LotNumber = strings.TrimSpace(lot.Text())
	}
	if im.empty() {
		return
	}
	d.out.Immunizations = append(d.out.Immunizations, im)
}

func (d *decoder) social(entry *etree.Element) {
	o := entry.SelectElement("observation")
	if o == nil {
		return
	}
	s := SocialHistory{
		ID:     naturalID(o),
		Coding: codingOf(o.SelectElement("code")),
		Date:   d.point(o, CategorySocialHistory, "date"),
	}
	if v := o.SelectElement("value"); v != nil && v.SelectAttrValue("nullFlavor", "") == "" {
		switch strings.ToUpper(xsiType(v)) {
		case "PQ":
			s.Value = strings.TrimSpace(v.SelectAttrValue("value", "") + " " + v.SelectAttrValue("unit", ""))
		case "CD", "CE", "CO", "CV":
			c := codingOf(v)
			s.Value = c.Display
			if s.Value == "" {
				s.Value = c.Code
			}
		default:
			s.Value = strings.TrimSpace(v.Text())
		}
	}
	if s.empty() {
		return
	}
	d.out.SocialHistory = append(d.out.SocialHistory, s)
}

func (d *decoder) carePlan(entry *etree.Element) {
	children := entry.ChildElements()
	if len(children) == 0 {
		return
	}
	el := children[0]
	cp := CarePlan{
		ID:     naturalID(el),
		Coding: codingOf(el.SelectElement("code")),
		Status: statusAttr(el),
		Date:   d.point(el, CategoryPlanOfCare, "date"),
	}
	for _, er := range el.SelectElements("entryRelationship") {
		inner := er.ChildElements()
		if len(inner) == 0 {
			continue
		}
		a := CarePlanActivity{
			Coding: codingOf(inner[0].SelectElement("code")),
			Status: statusAttr(inner[0]),
		}
		if a.empty() {
			d.x.log.Warn().
				Str("category", string(CategoryPlanOfCare)).
				Str("field", "activities").
				Msg("skipping activity without code or display")
			continue
		}
		cp.Activities = append(cp.Activities, a)
	}
	if cp.empty() {
		return
	}
	d.out.CarePlans = append(d.out.CarePlans, cp)
}

func (d *decoder) encounter(entry *etree.Element) {
	el := entry.SelectElement("encounter")
	if el == nil {
		return
	}
	e := Encounter{ID: naturalID(el), Coding: codingOf(el.SelectElement("code"))}
	e.Start, e.End = d.effective(el, CategoryEncounters, "effective_time")
	if e.empty() {
		return
	}
	d.out.Encounters = append(d.out.Encounters, e)
}

// ts decodes the value attribute of a TS element. Null flavors and missing
// values decode to nil without a warning.
func (d *decoder) ts(el *etree.Element, c Category, field string) *time.Time {
	if el == nil || el.SelectAttrValue("nullFlavor", "") != "" {
		return nil
	}
	raw := strings.TrimSpace(el.SelectAttrValue("value", ""))
	if raw == "" {
		return nil
	}
	t, err := ParseTime(raw)
	if err != nil {
		if d.x.strictDates {
			if d.err == nil {
				d.err = fmt.Errorf("ccda: %s: %w", strings.TrimPrefix(string(c)+"."+field, "."), err)
			}
			return nil
		}
		d.warn(c, field, raw, err)
		return nil
	}
	return &t
}

// effective decodes the first effectiveTime of el as an interval. A point
// value is returned as the low bound.
func (d *decoder) effective(el *etree.Element, c Category, field string) (low, high *time.Time) {
	et := el.SelectElement("effectiveTime")
	if et == nil {
		return nil, nil
	}
	if et.SelectAttrValue("value", "") != "" {
		return d.ts(et, c, field), nil
	}
	return d.ts(et.SelectElement("low"), c, field+".low"), d.ts(et.SelectElement("high"), c, field+".high")
}

// point decodes the first effectiveTime of el as a single instant, using the
// low bound of an interval.
func (d *decoder) point(el *etree.Element, c Category, field string) *time.Time {
	low, _ := d.effective(el, c, field)
	return low
}

func (d *decoder) warn(c Category, field, raw string, err error) {
	d.x.log.Warn().Err(err).
		Str("category", string(c)).
		Str("field", field).
		Str("raw", raw).
		Msg("undecodable value dropped")
	d.out.Warnings = append(d.out.Warnings, Warning{
		Category: c,
		Field:    field,
		Raw:      raw,
		Message:  err.Error(),
	})
}

func codingOf(el *etree.Element) Coding {
	if el == nil {
		return Coding{}
	}
	c := Coding{
		Code:    el.SelectAttrValue("code", ""),
		System:  el.SelectAttrValue("codeSystem", ""),
		Display: el.SelectAttrValue("displayName", ""),
	}
	if c.Display == "" {
		c.Display = childText(el, "originalText")
	}
	return c
}

func hasTemplate(el *etree.Element, oid string) bool {
	for _, t := range el.SelectElements("templateId") {
		if t.SelectAttrValue("root", "") == oid {
			return true
		}
	}
	return false
}

// relatedObservation returns the observation under el's entry relationships
// that carries oid, falling back to the first related observation.
func relatedObservation(el *etree.Element, oid string) *etree.Element {
	var first *etree.Element
	for _, er := range el.SelectElements("entryRelationship") {
		o := er.SelectElement("observation")
		if o == nil {
			continue
		}
		if hasTemplate(o, oid) {
			return o
		}
		if first == nil {
			first = o
		}
	}
	return first
}

// statusObservationValue reads the clinical status carried by the status
// observation with template oid under obs. ok reports whether a status
// observation was present; a NI value is an explicitly empty status.
func statusObservationValue(obs *etree.Element, oid string) (status string, ok bool) {
	for _, er := range obs.SelectElements("entryRelationship") {
		o := er.SelectElement("observation")
		if o == nil || !hasTemplate(o, oid) {
			continue
		}
		v := o.SelectElement("value")
		if v == nil {
			return "", false
		}
		if v.SelectAttrValue("nullFlavor", "") != "" {
			return "", true
		}
		if s := v.SelectAttrValue("displayName", ""); s != "" {
			return s, true
		}
		if s := statusForSNOMED(v.SelectAttrValue("code", "")); s != "" {
			return s, true
		}
		return "", false
	}
	return "", false
}

func statusAttr(el *etree.Element) string {
	if sc := el.SelectElement("statusCode"); sc != nil {
		return sc.SelectAttrValue("code", "")
	}
	return ""
}

func naturalID(el *etree.Element) string {
	if id := el.SelectElement("id"); id != nil {
		return id.SelectAttrValue("extension", "")
	}
	return ""
}

func childText(el *etree.Element, tag string) string {
	if c := el.SelectElement(tag); c != nil {
		return strings.TrimSpace(c.Text())
	}
	return ""
}

func firstChild(el *etree.Element, tags ...string) *etree.Element {
	for _, tag := range tags {
		if c := el.SelectElement(tag); c != nil {
			return c
		}
	}
	return nil
}

// xsiType returns the xsi:type of el whatever prefix the document bound the
// schema-instance namespace to.
func xsiType(el *etree.Element) string {
	for _, a := range el.Attr {
		if a.Key == "type" && a.Space != "" {
			return a.Value
		}
	}
	return ""
}
