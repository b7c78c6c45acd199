package note

import "errors"

// ErrSchemaMismatch is returned when a document contains zero recognized
// section headers, which signals the upstream formatter produced an
// unusable document. Callers report it; nothing is retried here.
var ErrSchemaMismatch = errors.New("document contains no recognized section headers")

// SectionName identifies a top-level block of a structured note. The set of
// names is closed; headers that match nothing in the schema are preserved
// under SectionUncategorized rather than dropped.
type SectionName string

const (
	SectionPatientInformation SectionName = "PATIENT INFORMATION"
	SectionMedicationSummary  SectionName = "MEDICATION SUMMARY"
	SectionSituation          SectionName = "SITUATION"
	SectionObjectiveFindings  SectionName = "OBJECTIVE FINDINGS"
	SectionAssessment         SectionName = "ASSESSMENT"
	SectionPlan               SectionName = "PLAN"
	SectionResultOutcome      SectionName = "RESULT/OUTCOME"
	SectionNotes              SectionName = "NOTES"
	SectionUncategorized      SectionName = "UNCATEGORIZED"
)

// schema lists every recognized section in canonical note order.
var schema = []SectionName{
	SectionPatientInformation,
	SectionMedicationSummary,
	SectionSituation,
	SectionObjectiveFindings,
	SectionAssessment,
	SectionPlan,
	SectionResultOutcome,
	SectionNotes,
}

// Schema returns the recognized section names in canonical note order.
func Schema() []SectionName {
	out := make([]SectionName, len(schema))
	copy(out, schema)
	return out
}

// Document is an ordered sequence of sections parsed from a structured note.
type Document struct {
	Sections []Section
}

// Section is a named block of the note. Header retains the original header
// text for traceability (uncategorized sections keep whatever the editor or
// formatter wrote). Fields is the ordered decomposition of Body.
type Section struct {
	Name   SectionName
	Header string
	Body   string
	Fields []Field
}

// Field is an atomic semantic unit within a section: either a labeled
// key-value pair ("Lisinopril: 20mg daily") or a free-text bullet/sentence.
// Key is the normalized join identity used for alignment.
type Field struct {
	Key      string
	Label    string
	Value    string
	Text     string
	KeyValue bool
}

// Section returns the section with the given name and whether it exists.
func (d *Document) Section(name SectionName) (*Section, bool) {
	for i := range d.Sections {
		if d.Sections[i].Name == name {
			return &d.Sections[i], true
		}
	}
	return nil, false
}
