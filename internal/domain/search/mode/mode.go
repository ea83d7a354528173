package mode

// Mode selects what the index worker searches for.
type Mode string

// Search mode constants.
const (
	// Components runs a free-text search over the whole catalog.
	Components Mode = "components"
	// Instances runs a structured parent/sub-field filter over catalog items.
	Instances Mode = "instances"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Components || m == Instances
}

// Placeholder returns the input hint shown for the mode.
func (m Mode) Placeholder() string {
	if m == Instances {
		return "ClassName:Query"
	}
	return "Query"
}
