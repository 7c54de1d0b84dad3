package entities

import "strings"

// RequisitionStatus represents the lifecycle state of a requisition
type RequisitionStatus int

const (
	StatusInitiated RequisitionStatus = iota
	StatusSubmitted
	StatusAuthorized
	StatusInApproval
	StatusApproved
	StatusRejected
	StatusReleased
	StatusSkipped
)

var statusNames = map[RequisitionStatus]string{
	StatusInitiated:  "INITIATED",
	StatusSubmitted:  "SUBMITTED",
	StatusAuthorized: "AUTHORIZED",
	StatusInApproval: "IN_APPROVAL",
	StatusApproved:   "APPROVED",
	StatusRejected:   "REJECTED",
	StatusReleased:   "RELEASED",
	StatusSkipped:    "SKIPPED",
}

// String method for RequisitionStatus enum
func (s RequisitionStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseRequisitionStatus converts a status name such as "IN_APPROVAL"
func ParseRequisitionStatus(name string) (RequisitionStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	for status, statusName := range statusNames {
		if statusName == normalized {
			return status, nil
		}
	}
	return 0, newValidationError("status", "unknown requisition status %q", name)
}

// AllStatuses lists every status in lifecycle order
func AllStatuses() []RequisitionStatus {
	return []RequisitionStatus{
		StatusInitiated,
		StatusSubmitted,
		StatusAuthorized,
		StatusInApproval,
		StatusApproved,
		StatusRejected,
		StatusReleased,
		StatusSkipped,
	}
}

// IsSubmittable reports whether a requisition in this status may be submitted
func (s RequisitionStatus) IsSubmittable() bool {
	return s == StatusInitiated || s == StatusRejected
}

// IsApprovable reports whether a requisition in this status may be approved or rejected
func (s RequisitionStatus) IsApprovable() bool {
	return s == StatusAuthorized || s == StatusInApproval
}

// UpdatableStatuses lists the statuses in which line items may still be edited
func UpdatableStatuses() []RequisitionStatus {
	return []RequisitionStatus{StatusInitiated, StatusRejected, StatusSubmitted, StatusAuthorized, StatusInApproval}
}

// IsUpdatable reports whether line items may be edited in this status
func (s RequisitionStatus) IsUpdatable() bool {
	for _, updatable := range UpdatableStatuses() {
		if s == updatable {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s RequisitionStatus) IsTerminal() bool {
	return s == StatusReleased || s == StatusSkipped
}

// IsPreAuthorize reports whether the requisition has not yet been authorized
func (s RequisitionStatus) IsPreAuthorize() bool {
	return s == StatusInitiated || s == StatusSubmitted || s == StatusRejected
}

// MarshalText encodes the status by name
func (s RequisitionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name
func (s *RequisitionStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseRequisitionStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
