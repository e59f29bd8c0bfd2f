package device

import "github.com/nerrad567/framehub-core/internal/hub"

// Classifier maps an accessory to exactly one category.
type Classifier func(a hub.Accessory) Category

// rule is one step of the precedence chain.
type rule struct {
	category Category
	match    func(a *hub.Accessory) bool
}

func hasAny(types ...hub.ServiceType) func(a *hub.Accessory) bool {
	return func(a *hub.Accessory) bool {
		for _, t := range types {
			if a.HasService(t) {
				return true
			}
		}
		return false
	}
}

// precedence is evaluated top to bottom; the first match wins. Accessories
// such as bridges expose overlapping services, so the order is significant.
var precedence = []rule{
	{CategoryLights, hasAny(hub.ServiceLightbulb)},
	{CategoryThermostats, hasAny(hub.ServiceThermostat)},
	{CategoryLocks, hasAny(hub.ServiceLockMechanism)},
	{CategoryCameras, func(a *hub.Accessory) bool { return a.Camera != nil }},
	{CategorySwitches, hasAny(hub.ServiceSwitch)},
	{CategoryOutlets, hasAny(hub.ServiceOutlet)},
	{CategoryFans, hasAny(hub.ServiceFan)},
	{CategoryWindowCoverings, hasAny(hub.ServiceWindowCovering, hub.ServiceWindow)},
	{CategoryGarageDoors, hasAny(hub.ServiceGarageDoorOpener)},
	{CategorySensors, hasAny(
		hub.ServiceMotionSensor,
		hub.ServiceTemperatureSensor,
		hub.ServiceHumiditySensor,
		hub.ServiceContactSensor,
		hub.ServiceLeakSensor,
		hub.ServiceSmokeSensor,
		hub.ServiceCarbonMonoxideSensor,
		hub.ServiceCarbonDioxideSensor,
	)},
}

// Classify returns the category of an accessory. It is total: accessories
// matching no rule are CategoryOther.
func Classify(a hub.Accessory) Category {
	for _, r := range precedence {
		if r.match(&a) {
			return r.category
		}
	}
	return CategoryOther
}
