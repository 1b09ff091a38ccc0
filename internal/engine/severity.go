package engine

import "github.com/your-org/sitewatch/internal/models"

// ObservedState is the input to severity classification for one detection.
type ObservedState struct {
	// MissingEquipment lists protective items judged absent.
	MissingEquipment []string
	// UnknownIdentity is true when identity resolution came back empty.
	UnknownIdentity bool
	// RestrictedArea is true when the detection came from a restricted
	// camera zone.
	RestrictedArea bool
}

// DefaultCriticalItem is the equipment item whose absence alone escalates an
// event to high severity.
const DefaultCriticalItem = "HeadProtection"

// Classifier maps observed state to a severity tier. Pure: same input, same
// output, independent of history and timing.
type Classifier struct {
	critical map[string]struct{}
}

// NewClassifier builds a classifier with the given critical equipment items.
// With none given, DefaultCriticalItem applies.
func NewClassifier(criticalItems ...string) *Classifier {
	if len(criticalItems) == 0 {
		criticalItems = []string{DefaultCriticalItem}
	}
	critical := make(map[string]struct{}, len(criticalItems))
	for _, item := range criticalItems {
		critical[item] = struct{}{}
	}
	return &Classifier{critical: critical}
}

// Classify evaluates the severity rules in order, first match wins. An
// unresolved identity inside a restricted area is high by policy regardless
// of equipment state, so that rule is checked before the equipment ladder.
func (c *Classifier) Classify(state ObservedState) models.Severity {
	if state.UnknownIdentity && state.RestrictedArea {
		return models.SeverityHigh
	}
	if len(state.MissingEquipment) == 0 {
		return models.SeverityLow
	}
	for _, item := range state.MissingEquipment {
		if _, ok := c.critical[item]; ok {
			return models.SeverityHigh
		}
	}
	if len(state.MissingEquipment) >= 2 {
		return models.SeverityHigh
	}
	return models.SeverityMedium
}
