package analytics

import "fmt"

// Labels maps Freshservice status and priority codes to display labels.
type Labels struct {
	Status   map[int]string
	Priority map[int]string
}

// DefaultLabels returns the stock Freshservice ticket labels.
func DefaultLabels() Labels {
	return Labels{
		Status: map[int]string{
			2: "Open",
			3: "Pending",
			4: "Resolved",
			5: "Closed",
			6: "In Progress",
			7: "Pending Return",
		},
		Priority: map[int]string{
			1: "Low",
			2: "Medium",
			3: "High",
			4: "Urgent",
		},
	}
}

// StatusLabel returns the label for a status code, or Status-<code>.
func (l Labels) StatusLabel(code int) string {
	if s, ok := l.Status[code]; ok {
		return s
	}
	return fmt.Sprintf("Status-%d", code)
}

// PriorityLabel returns the label for a priority code, or Priority-<code>.
func (l Labels) PriorityLabel(code int) string {
	if s, ok := l.Priority[code]; ok {
		return s
	}
	return fmt.Sprintf("Priority-%d", code)
}
