package organize

import "tagsortd/internal/config"

// OrganizerFactory creates an Organizer for a loaded configuration.
// This allows for dependency injection in tests
type OrganizerFactory func(cfg *config.Config) (Organizer, error)

// DefaultOrganizerFactory creates an Engine on the OS filesystem.
var DefaultOrganizerFactory OrganizerFactory = func(cfg *config.Config) (Organizer, error) {
	return NewWithConfig(cfg)
}

// CurrentOrganizerFactory is the currently active factory
// This can be swapped in tests
var CurrentOrganizerFactory = DefaultOrganizerFactory

// SetOrganizerFactory sets a custom organizer factory for dependency injection
func SetOrganizerFactory(factory OrganizerFactory) {
	CurrentOrganizerFactory = factory
}

// ResetOrganizerFactory resets to the default organizer factory
func ResetOrganizerFactory() {
	CurrentOrganizerFactory = DefaultOrganizerFactory
}
