package device

import (
	"sort"

	"github.com/nerrad567/framehub-core/internal/hub"
)

// Group is one category bucket of devices. Groups are rebuilt on every
// change and never mutated in place.
type Group struct {
	Category Category `json:"category"`
	Devices  []Device `json:"devices"`
}

// Count returns the number of devices in the group.
func (g Group) Count() int {
	return len(g.Devices)
}

// BuildOption configures BuildGroups.
type BuildOption func(*buildOptions)

type buildOptions struct {
	detail bool
}

// WithDetail makes BuildGroups produce category-rich payloads (Light,
// Thermostat, Lock, Camera) instead of Generic ones.
func WithDetail() BuildOption {
	return func(o *buildOptions) { o.detail = true }
}

// BuildGroups buckets accessories by category.
//
// Empty categories are omitted. Groups are sorted by category display name,
// devices within a group by name then ID, so the output depends only on the
// set of accessories and not on their order.
func BuildGroups(accessories []hub.Accessory, classify Classifier, opts ...BuildOption) []Group {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}
	if classify == nil {
		classify = Classify
	}

	buckets := make(map[Category][]Device)
	for i := range accessories {
		a := accessories[i]
		category := classify(a)

		var d Device
		if o.detail {
			d = FromAccessory(a)
			d.Category = category
		} else {
			d = GenericFrom(a, category)
		}
		buckets[category] = append(buckets[category], d)
	}

	groups := make([]Group, 0, len(buckets))
	for category, devices := range buckets {
		sortDevices(devices)
		groups = append(groups, Group{Category: category, Devices: devices})
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Category.DisplayName() < groups[j].Category.DisplayName()
	})
	return groups
}

// CountByCategory returns the number of accessories in each non-empty category.
func CountByCategory(accessories []hub.Accessory, classify Classifier) map[Category]int {
	if classify == nil {
		classify = Classify
	}
	counts := make(map[Category]int)
	for i := range accessories {
		counts[classify(accessories[i])]++
	}
	return counts
}

func sortDevices(devices []Device) {
	sort.SliceStable(devices, func(i, j int) bool {
		if devices[i].Name != devices[j].Name {
			return devices[i].Name < devices[j].Name
		}
		return devices[i].ID < devices[j].ID
	})
}
