package guardrail

// Fixed advisory texts. They are never parameterized or localized.
const (
	MedicalDisclaimer = "Please note: I am an AI Health & Wellness Assistant and cannot provide medical " +
		"diagnoses, treatment advice, or emergency services. For any medical concerns, " +
		"always consult a qualified healthcare professional. In case of an emergency, " +
		"please contact emergency services immediately."

	GeneralHealthDisclaimer = "Disclaimer: The information provided is for general knowledge and informational " +
		"purposes only, and does not constitute medical advice. Always consult with a " +
		"qualified healthcare professional before making any decisions about your health or treatment."

	EmergencyRedirect = "I detect that your query might be related to a medical emergency. I cannot provide " +
		"emergency services. Please contact your local emergency services immediately " +
		"or go to the nearest emergency room."

	OffTopicRefusal = "I specialize in health, nutrition, workout, and biology information. " +
		"I cannot provide advice on topics like house construction, finance, or politics. " +
		"Please ask me a health-related question!"
)

// AppendDisclaimer joins a response and a disclaimer with a blank line.
func AppendDisclaimer(response, disclaimer string) string {
	return response + "\n\n" + disclaimer
}
