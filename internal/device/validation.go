package device

import "fmt"

// ValidateBrightness checks a brightness percentage.
func ValidateBrightness(value int) error {
	if value < MinBrightness || value > MaxBrightness {
		return fmt.Errorf("%w: brightness %d outside %d-%d", ErrInvalidArgument, value, MinBrightness, MaxBrightness)
	}
	return nil
}

// ValidateColor checks a hue (degrees) and saturation (percent) pair.
func ValidateColor(hue, saturation int) error {
	if hue < MinHue || hue > MaxHue {
		return fmt.Errorf("%w: hue %d outside %d-%d", ErrInvalidArgument, hue, MinHue, MaxHue)
	}
	if saturation < MinSaturation || saturation > MaxSaturation {
		return fmt.Errorf("%w: saturation %d outside %d-%d", ErrInvalidArgument, saturation, MinSaturation, MaxSaturation)
	}
	return nil
}
