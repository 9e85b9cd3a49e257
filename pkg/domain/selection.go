package domain

import "fmt"

// SelectionKind distinguishes a whole-report pick from an assignment pick.
type SelectionKind int

const (
	SelectReport SelectionKind = iota
	SelectAssignment
)

func (k SelectionKind) String() string {
	switch k {
	case SelectReport:
		return "report"
	case SelectAssignment:
		return "assignment"
	}
	return fmt.Sprintf("SelectionKind(%d)", int(k))
}

// Selection records what the user last picked in the report list.
// Assignment is only meaningful when Kind is SelectAssignment.
type Selection struct {
	ReportID   int64
	Kind       SelectionKind
	Assignment string
}

// ReportSelection builds a report-level selection.
func ReportSelection(reportID int64) Selection {
	return Selection{ReportID: reportID, Kind: SelectReport}
}

// AssignmentSelection builds an assignment-level selection.
func AssignmentSelection(reportID int64, name string) Selection {
	return Selection{ReportID: reportID, Kind: SelectAssignment, Assignment: name}
}

// Key returns a stable identity for the selection, suitable for logging and
// for comparing whether two selections target the same resource.
func (s Selection) Key() string {
	if s.Kind == SelectAssignment {
		return fmt.Sprintf("report/%d/assignment/%s", s.ReportID, s.Assignment)
	}
	return fmt.Sprintf("report/%d", s.ReportID)
}
