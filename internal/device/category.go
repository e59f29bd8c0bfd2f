package device

import "fmt"

// Category is the functional category an accessory is classified into.
type Category string

// Category constants, in classification precedence order.
const (
	CategoryLights          Category = "lights"
	CategoryThermostats     Category = "thermostats"
	CategoryLocks           Category = "locks"
	CategoryCameras         Category = "cameras"
	CategorySwitches        Category = "switches"
	CategoryOutlets         Category = "outlets"
	CategoryFans            Category = "fans"
	CategoryWindowCoverings Category = "windowCoverings"
	CategoryGarageDoors     Category = "garageDoors"
	CategorySensors         Category = "sensors"
	CategoryOther           Category = "other"
)

// AllCategories returns all categories in classification precedence order.
func AllCategories() []Category {
	return []Category{
		CategoryLights, CategoryThermostats, CategoryLocks, CategoryCameras,
		CategorySwitches, CategoryOutlets, CategoryFans, CategoryWindowCoverings,
		CategoryGarageDoors, CategorySensors, CategoryOther,
	}
}

type categoryInfo struct {
	displayName string
	icon        string
}

var categories = map[Category]categoryInfo{
	CategoryLights:          {"Lights", "lightbulb.fill"},
	CategoryThermostats:     {"Thermostats", "thermometer"},
	CategoryLocks:           {"Locks", "lock.fill"},
	CategoryCameras:         {"Cameras", "video.fill"},
	CategorySwitches:        {"Switches", "switch.2"},
	CategoryOutlets:         {"Outlets", "powerplug.fill"},
	CategoryFans:            {"Fans", "fan.fill"},
	CategoryWindowCoverings: {"Window Coverings", "blinds.vertical.closed"},
	CategoryGarageDoors:     {"Garage Doors", "garage"},
	CategorySensors:         {"Sensors", "sensor.fill"},
	CategoryOther:           {"Other", "questionmark.circle"},
}

// DisplayName returns the human-readable name, e.g. "Window Coverings".
func (c Category) DisplayName() string {
	if info, ok := categories[c]; ok {
		return info.displayName
	}
	return fmt.Sprintf("Category(%s)", string(c))
}

// Icon returns the stable icon key for the category.
func (c Category) Icon() string {
	if info, ok := categories[c]; ok {
		return info.icon
	}
	return categories[CategoryOther].icon
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

// ParseCategory parses a category name.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}
