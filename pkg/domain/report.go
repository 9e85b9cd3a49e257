package domain

import "strconv"

// Report is one student's submission record with a status per assignment.
type Report struct {
	ID          int64        `json:"id"`
	Assignments []Assignment `json:"assignments"`
}

// Assignment is a named unit of work scoped to one report.
type Assignment struct {
	Name   string `json:"name"`
	Status string `json:"status"` // free-form, rendered verbatim
}

// Status labels emitted by the report backend. Other labels are passed through.
const (
	StatusNotSubmitted = "NotSubmitted"
	StatusSubmitted    = "Submitted"
	StatusLate         = "Late"
)

// KnownStatus reports whether s is one of the backend's status labels.
func KnownStatus(s string) bool {
	switch s {
	case StatusNotSubmitted, StatusSubmitted, StatusLate:
		return true
	}
	return false
}

// Assignment returns the assignment with the given name, if present.
func (r Report) Assignment(name string) (Assignment, bool) {
	for _, a := range r.Assignments {
		if a.Name == name {
			return a, true
		}
	}
	return Assignment{}, false
}

// Label is the display id of the report.
func (r Report) Label() string {
	return strconv.FormatInt(r.ID, 10)
}
