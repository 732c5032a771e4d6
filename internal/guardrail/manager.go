package guardrail

// Category names the filter that blocked a query.
type Category string

const (
	CategoryNone      Category = ""
	CategoryEmergency Category = "emergency"
	CategoryDiagnosis Category = "diagnosis"
	CategoryOffTopic  Category = "off_topic"
)

// Decision is the outcome of pre-processing a query.
type Decision struct {
	Allowed  bool
	Message  string
	Category Category
}

// Manager applies the pre- and post-processing guardrails.
type Manager struct{}

// NewManager creates a guardrail manager.
func NewManager() *Manager {
	return &Manager{}
}

// PreProcess checks a query against the emergency, diagnosis and off-topic
// filters, in that order. The first match blocks the query with its fixed
// message; emergency always wins over the informational refusals.
func (m *Manager) PreProcess(query string) Decision {
	switch {
	case ContainsEmergencyRequest(query):
		return Decision{Message: EmergencyRedirect, Category: CategoryEmergency}
	case ContainsDiagnosisRequest(query):
		return Decision{Message: MedicalDisclaimer, Category: CategoryDiagnosis}
	case ContainsOffTopicRequest(query):
		return Decision{Message: OffTopicRefusal, Category: CategoryOffTopic}
	}
	return Decision{Allowed: true}
}

// PostProcess appends the general health disclaimer when needsDisclaimer is
// set. It is not idempotent: callers must invoke it once per response.
func (m *Manager) PostProcess(response string, needsDisclaimer bool) string {
	if needsDisclaimer {
		return AppendDisclaimer(response, GeneralHealthDisclaimer)
	}
	return response
}
