package projects

import (
	"errors"
	"strings"
	"time"
)

// DefaultStatus is the status a new project gets when the form leaves it blank.
const DefaultStatus = "In Progress"

var (
	// ErrNameRequired is returned when the project name is blank.
	ErrNameRequired = errors.New("project name is required")
	// ErrManagerRequired is returned when no manager is selected.
	ErrManagerRequired = errors.New("please select a manager")
	// ErrDeadlineInvalid is returned when the deadline is neither a date nor an RFC 3339 timestamp.
	ErrDeadlineInvalid = errors.New("deadline must be YYYY-MM-DD or RFC 3339")
)

// isoMillis matches the browser's Date.prototype.toISOString output.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// Form is the user-entered project form.
type Form struct {
	Name        string
	Description string
	TeamID      string
	ManagerID   string
	Status      string
	Deadline    string
}

// CreateRequest is the /projects POST payload.
type CreateRequest struct {
	ProjectName string  `json:"project_name"`
	Description string  `json:"description"`
	TeamID      string  `json:"team_id"`
	ManagerID   string  `json:"manager_id"`
	Status      string  `json:"status"`
	Deadline    *string `json:"deadline"`
}

// Validate checks the required fields in form order.
func (f Form) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrNameRequired
	}
	if f.ManagerID == "" {
		return ErrManagerRequired
	}
	return nil
}

// Request validates the form and builds the wire payload. An empty deadline is
// sent as null; a date is sent as midnight UTC in ISO-8601 with milliseconds.
func (f Form) Request() (CreateRequest, error) {
	if err := f.Validate(); err != nil {
		return CreateRequest{}, err
	}

	status := f.Status
	if status == "" {
		status = DefaultStatus
	}
	req := CreateRequest{
		ProjectName: f.Name,
		Description: f.Description,
		TeamID:      f.TeamID,
		ManagerID:   f.ManagerID,
		Status:      status,
	}

	if f.Deadline != "" {
		at, err := parseDeadline(f.Deadline)
		if err != nil {
			return CreateRequest{}, err
		}
		iso := at.UTC().Format(isoMillis)
		req.Deadline = &iso
	}
	return req, nil
}

func parseDeadline(raw string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, ErrDeadlineInvalid
}
