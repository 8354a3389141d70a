package enums

import "fmt"

// PackageType maps to the package_type enum in Postgres.
type PackageType string

const (
	PackageTypeSingle PackageType = "SINGLE"
	PackageTypeCombo  PackageType = "COMBO"
)

var validPackageTypes = []PackageType{
	PackageTypeSingle,
	PackageTypeCombo,
}

// IsValid reports whether the value matches the canonical package_type enum.
func (p PackageType) IsValid() bool {
	for _, candidate := range validPackageTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePackageType converts raw input into PackageType.
func ParsePackageType(value string) (PackageType, error) {
	for _, candidate := range validPackageTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid package type %q", value)
}
