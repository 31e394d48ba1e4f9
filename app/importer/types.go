package importer

import "fmt"

// ConflictPolicy decides what an import does when history already exists
type ConflictPolicy string

const (
	PolicyReject  ConflictPolicy = "reject"
	PolicyReplace ConflictPolicy = "replace"
)

func ParsePolicy(s string) (ConflictPolicy, error) {
	switch ConflictPolicy(s) {
	case PolicyReject, PolicyReplace:
		return ConflictPolicy(s), nil
	case "":
		return PolicyReject, nil
	default:
		return "", fmt.Errorf("unknown conflict policy: %q", s)
	}
}

type Result struct {
	Inserted int
	Replaced bool
}

type Status struct {
	HasData bool
}
