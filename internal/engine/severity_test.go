package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/your-org/sitewatch/internal/models"
)

func TestClassifyEquipmentLadder(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name    string
		missing []string
		want    models.Severity
	}{
		{"nothing missing", nil, models.SeverityLow},
		{"critical item missing", []string{"HeadProtection"}, models.SeverityHigh},
		{"one non-critical item", []string{"Gloves"}, models.SeverityMedium},
		{"two non-critical items", []string{"Gloves", "Vest"}, models.SeverityHigh},
		{"critical among others", []string{"Gloves", "HeadProtection"}, models.SeverityHigh},
		{"three items", []string{"Gloves", "Vest", "Boots"}, models.SeverityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(ObservedState{MissingEquipment: tt.missing})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyUnknownInRestrictedAreaOverridesEquipment(t *testing.T) {
	c := NewClassifier()

	// High by policy regardless of equipment state, fully compliant included.
	assert.Equal(t, models.SeverityHigh, c.Classify(ObservedState{
		UnknownIdentity: true,
		RestrictedArea:  true,
	}))
	assert.Equal(t, models.SeverityHigh, c.Classify(ObservedState{
		UnknownIdentity:  true,
		RestrictedArea:   true,
		MissingEquipment: []string{"Gloves"},
	}))

	// Either flag alone falls through to the equipment ladder.
	assert.Equal(t, models.SeverityLow, c.Classify(ObservedState{UnknownIdentity: true}))
	assert.Equal(t, models.SeverityLow, c.Classify(ObservedState{RestrictedArea: true}))
}

func TestClassifyCustomCriticalItems(t *testing.T) {
	c := NewClassifier("Harness")

	assert.Equal(t, models.SeverityHigh, c.Classify(ObservedState{MissingEquipment: []string{"Harness"}}))
	assert.Equal(t, models.SeverityMedium, c.Classify(ObservedState{MissingEquipment: []string{"HeadProtection"}}))
}

func TestClassifyMonotoneInMissingItems(t *testing.T) {
	c := NewClassifier()
	rank := map[models.Severity]int{
		models.SeverityLow:    0,
		models.SeverityMedium: 1,
		models.SeverityHigh:   2,
	}
	items := []string{"Gloves", "Vest", "Boots", "HeadProtection", "Goggles"}

	// Adding items one by one must never decrease severity.
	prev := c.Classify(ObservedState{})
	for i := 1; i <= len(items); i++ {
		got := c.Classify(ObservedState{MissingEquipment: items[:i]})
		assert.GreaterOrEqual(t, rank[got], rank[prev], "items=%v", items[:i])
		prev = got
	}
}
