package bus

// NoteRevisedEvent is consumed from SubjectNoteRevised. Draft is the note as
// the upstream formatter produced it; Edited is the clinician's final
// version.
type NoteRevisedEvent struct {
	SessionRef string `json:"session_ref"`
	Draft      string `json:"draft"`
	Edited     string `json:"edited"`
}

// RuleUpdatedEvent is published on SubjectRuleUpdated for every rule a
// revision created, merged into, or promoted.
type RuleUpdatedEvent struct {
	RuleID         string  `json:"rule_id"`
	SessionRef     string  `json:"session_ref"`
	SectionName    string  `json:"section_name"`
	Category       string  `json:"category"`
	TriggerPattern string  `json:"trigger_pattern"`
	Status         string  `json:"status"`
	Confidence     float64 `json:"confidence"`
	SupportCount   int     `json:"support_count"`
}

// RuleConflictedEvent is published on SubjectRuleConflicted with every rule
// parked by one conflict.
type RuleConflictedEvent struct {
	SessionRef     string   `json:"session_ref"`
	SectionName    string   `json:"section_name"`
	TriggerPattern string   `json:"trigger_pattern"`
	RuleIDs        []string `json:"rule_ids"`
}

// AgentRegisteredEvent announces the revisor on startup.
type AgentRegisteredEvent struct {
	AgentID   string   `json:"agent_id"`
	Subjects  []string `json:"subjects"`
	StartedAt string   `json:"started_at"`
}
