package model

// Envelope is the response of the element endpoint. Every rejection and
// failure collapses to {"success": false}.
type Envelope struct {
	Success bool             `json:"success"`
	A       string           `json:"a,omitempty"`
	B       string           `json:"b,omitempty"`
	Element *EnvelopeElement `json:"element,omitempty"`
	IsNew   *bool            `json:"isNew,omitempty"`
}

type EnvelopeElement struct {
	Object  string `json:"object"`
	Emoji   string `json:"emoji"`
	Success bool   `json:"success"`
}

// NewEnvelope builds the response for the names a and b as they were requested
func NewEnvelope(a, b string, outcome *Outcome) *Envelope {
	if outcome == nil || !outcome.OK() {
		return &Envelope{Success: false}
	}

	isNew := outcome.IsNew
	return &Envelope{
		Success: true,
		A:       a,
		B:       b,
		Element: &EnvelopeElement{
			Object:  outcome.Combination.Name,
			Emoji:   outcome.Combination.Emoji,
			Success: true,
		},
		IsNew: &isNew,
	}
}
