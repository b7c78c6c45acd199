package formatter

import (
	"fmt"
	"strings"

	"github.com/clinscribe/revisor/internal/advisor"
)

const systemPrompt = `You are a clinical documentation specialist. You transform raw visit transcripts into concise, medically professional notes that meet outpatient legal-charting standards.`

const noteTemplate = `TRANSCRIPT:
%s

LEARNED FORMATTING PREFERENCES:
%s

FORMAT YOUR RESPONSE EXACTLY AS FOLLOWS
(use the headings verbatim; replace bracketed text with extracted or inferred content):

PATIENT INFORMATION:
- Patient Name: [Name]
- Practitioner: [Clinician's name & credential]
- Date: [Visit date if stated; else "Not specified"]

MEDICATION SUMMARY:
- [Drug name] [dosage] [route] [frequency] - [new / continued / discontinued / dose-changed]

SITUATION:
- Chief complaint in the patient's own words (in quotes).
- Brief, chronologic HPI covering onset, location, quality, severity, timing, modifying factors, and associated symptoms.

OBJECTIVE FINDINGS:
- Vital Signs: BP, HR, RR, Temp, SpO2 (all that appear).
- Physical Exam: concise, system-by-system bullet points.
- Diagnostics Ordered / Results: list any EKGs, labs, imaging.

ASSESSMENT:
1. Primary problem with differentials or stage.
2. Secondary problems.

PLAN:
- Diagnostics: what and when.
- Therapeutics / Medication Changes: drug, dose, frequency, start/stop.
- Disposition & Follow-up: monitoring, referrals, review timeline.
- Patient Education / Safety-netting: red-flag advice, emergency instructions.

RESULT/OUTCOME:
- Summary of decisions made, goals, and scheduled follow-up.

NOTES:
- Write in clear, professional language; preserve original medical terminology.
- Use concise bullet points or short sentences, not long paragraphs.
- Do not add clinical interpretations not present in the transcript.

PERSONALIZATION:
The learned formatting preferences above come from how this clinician edited
previous notes. Apply them wherever they are relevant and let them override
the default formatting guidelines.`

// buildPrompt renders the formatting request with learned rules injected as
// clinician preferences.
func buildPrompt(transcript string, advice []advisor.SectionAdvice) string {
	return fmt.Sprintf(noteTemplate, transcript, renderAdvice(advice))
}

// renderAdvice turns applicable rules into one instruction line each,
// grouped under their section headings.
func renderAdvice(advice []advisor.SectionAdvice) string {
	if len(advice) == 0 {
		return "(none yet)"
	}

	var b strings.Builder
	for _, section := range advice {
		fmt.Fprintf(&b, "%s:\n", section.SectionName)
		for _, a := range section.Advice {
			switch {
			case a.Transformation == "":
				fmt.Fprintf(&b, "- omit content matching %q (confidence %.2f)\n", a.Trigger, a.Confidence)
			default:
				fmt.Fprintf(&b, "- for %q prefer %q (confidence %.2f)\n", a.Trigger, a.Transformation, a.Confidence)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
