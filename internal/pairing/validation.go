package pairing

import (
	"fmt"
	"regexp"
	"strings"
)

// pinPattern is the exact shape of a pairing PIN: 6 ASCII digits.
var pinPattern = regexp.MustCompile(`^[0-9]{6}$`)

// IsValidPIN reports whether the string is exactly 6 ASCII digits.
func IsValidPIN(pin string) bool {
	return pinPattern.MatchString(pin)
}

// ValidDeviceTypes is the set of accepted device type values.
var ValidDeviceTypes = []string{"tablet", "phone", "desktop", "display", "other"}

// IsValidDeviceType reports whether the device type is in the accepted set.
func IsValidDeviceType(deviceType string) bool {
	for _, v := range ValidDeviceTypes {
		if deviceType == v {
			return true
		}
	}
	return false
}

// maxNameLength bounds client and device names.
const maxNameLength = 128

// validateName checks a client or device name for presence and length.
func validateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if len(trimmed) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}
