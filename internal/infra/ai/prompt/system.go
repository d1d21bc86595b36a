package prompt

// MatchSystemPrompt is sent as the system message for document matching.
func MatchSystemPrompt() string {
	return "You are a compliance analysis expert. Always respond with valid JSON only."
}

// GapSystemPrompt is sent as the system message for gap analysis.
func GapSystemPrompt() string {
	return "You are a compliance gap analysis expert. Always respond with valid JSON only."
}
