package types

import "fmt"

func errRequired(field string) error {
	return fmt.Errorf("%s is required", field)
}

// CountSelected returns how many resources are currently selected
func CountSelected(resources []Resource) int {
	count := 0
	for _, r := range resources {
		if r.Selected {
			count++
		}
	}
	return count
}

// CountExcluded returns how many resources carry an exclusion record
func CountExcluded(resources []Resource) int {
	count := 0
	for _, r := range resources {
		if r.Exclusion != nil {
			count++
		}
	}
	return count
}
