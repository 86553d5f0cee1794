package events

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Event type names emitted by the platform, grouped by domain. The
// catalog is configuration data: webhook subscriptions match against
// these strings, but the engine itself attaches no meaning to them.
const (
	EventStudentCreated = "student.created"
	EventStudentUpdated = "student.updated"
	EventStudentDeleted = "student.deleted"

	EventPassIssued  = "pass.issued"
	EventPassRevoked = "pass.revoked"
	EventPassExpired = "pass.expired"

	EventEntryRecorded = "entry.recorded"
	EventExitRecorded  = "exit.recorded"

	EventSecurityAlert         = "security.alert"
	EventSecurityLockdownStart = "security.lockdown.started"
	EventSecurityLockdownEnd   = "security.lockdown.ended"

	EventDeviceRegistered = "device.registered"
	EventDeviceOnline     = "device.online"
	EventDeviceOffline    = "device.offline"

	EventSystemMaintenance = "system.maintenance"

	// EventWebhookTest is synthesized by the manual test-delivery path.
	EventWebhookTest = "webhook.test"
)

// Group is a named set of related event types.
type Group struct {
	Name   string   `yaml:"name" json:"name"`
	Events []string `yaml:"events" json:"events"`
}

// Catalog enumerates the event types available for webhook subscription.
type Catalog struct {
	Groups []Group `yaml:"groups" json:"groups"`

	index map[string]struct{}
}

// DefaultCatalog returns the built-in event type catalog.
func DefaultCatalog() *Catalog {
	c := &Catalog{
		Groups: []Group{
			{Name: "student", Events: []string{EventStudentCreated, EventStudentUpdated, EventStudentDeleted}},
			{Name: "pass", Events: []string{EventPassIssued, EventPassRevoked, EventPassExpired}},
			{Name: "movement", Events: []string{EventEntryRecorded, EventExitRecorded}},
			{Name: "security", Events: []string{EventSecurityAlert, EventSecurityLockdownStart, EventSecurityLockdownEnd}},
			{Name: "device", Events: []string{EventDeviceRegistered, EventDeviceOnline, EventDeviceOffline}},
			{Name: "system", Events: []string{EventSystemMaintenance, EventWebhookTest}},
		},
	}
	c.buildIndex()
	return c
}

// LoadCatalog reads a catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	if len(c.Groups) == 0 {
		return nil, fmt.Errorf("catalog file %s defines no event groups", path)
	}

	c.buildIndex()
	return &c, nil
}

// Contains reports whether the event type appears in the catalog.
func (c *Catalog) Contains(eventType string) bool {
	_, ok := c.index[eventType]
	return ok
}

// All returns every event type in the catalog, sorted.
func (c *Catalog) All() []string {
	all := make([]string, 0, len(c.index))
	for t := range c.index {
		all = append(all, t)
	}
	sort.Strings(all)
	return all
}

func (c *Catalog) buildIndex() {
	c.index = make(map[string]struct{})
	for _, g := range c.Groups {
		for _, t := range g.Events {
			c.index[t] = struct{}{}
		}
	}
}
