// Package model resolves which model each provider runs and how each kind of
// completion is tuned. Callers name a capability ("conversation", "ranking")
// instead of hardcoding temperatures and response formats.
package model

// Capability represents what a completion is used for.
type Capability string

const (
	// CapabilityConversation is for coaching replies and report drafting.
	CapabilityConversation Capability = "conversation"

	// CapabilityExtraction is for pulling structured issues out of a transcript.
	CapabilityExtraction Capability = "extraction"

	// CapabilityPlanning is for generating search queries.
	CapabilityPlanning Capability = "planning"

	// CapabilityRanking is for selecting recommendation candidates.
	CapabilityRanking Capability = "ranking"
)

// Conversational and structured temperature defaults.
const (
	ConversationTemperature = 0.7
	StructuredTemperature   = 0.3
)

// Profile is the completion tuning for a capability.
type Profile struct {
	Temperature float64
	JSON        bool
}

var profiles = map[Capability]Profile{
	CapabilityConversation: {Temperature: ConversationTemperature},
	CapabilityExtraction:   {Temperature: StructuredTemperature, JSON: true},
	CapabilityPlanning:     {Temperature: StructuredTemperature, JSON: true},
	CapabilityRanking:      {Temperature: StructuredTemperature, JSON: true},
}

// ProfileFor returns the tuning for c. Unknown capabilities get the
// conversational profile.
func ProfileFor(c Capability) Profile {
	if p, ok := profiles[c]; ok {
		return p
	}
	return profiles[CapabilityConversation]
}

// IsValid checks if a capability string is a known capability.
func (c Capability) IsValid() bool {
	_, ok := profiles[c]
	return ok
}

// String returns the string representation of the capability.
func (c Capability) String() string {
	return string(c)
}

// ParseCapability converts a string to a Capability, returning empty for invalid values.
func ParseCapability(s string) Capability {
	c := Capability(s)
	if c.IsValid() {
		return c
	}
	return ""
}
