package building

import (
	"errors"
	"fmt"
)

// Domain validation errors. All construction gates are enforced server-side;
// client-side checks are advisory only.
var (
	ErrPointOutsideTerritory  = errors.New("location is outside the territory boundary")
	ErrMaxLevelReached        = errors.New("building is already at its maximum level")
	ErrInvalidStatus          = errors.New("building status does not allow this transition")
	ErrConcurrentModification = errors.New("building was modified concurrently")
)

// TemplateLimitError reports that a territory already holds the maximum
// number of buildings of a template.
type TemplateLimitError struct {
	TemplateID string
	Limit      int
}

func (e *TemplateLimitError) Error() string {
	return fmt.Sprintf("territory already has the maximum of %d %s buildings", e.Limit, e.TemplateID)
}

// InsufficientResourcesError carries the exact per-resource shortfall so the
// caller can show what is missing.
type InsufficientResourcesError struct {
	Missing map[string]int
}

func (e *InsufficientResourcesError) Error() string {
	return fmt.Sprintf("insufficient resources: missing %v", e.Missing)
}
