package session

import "encoding/json"

// Durable storage keys, one per [State] field.
const (
	KeyUser             = "user"
	KeyIsLoggedIn       = "isLoggedIn"
	KeyLoginTime        = "attendanceLoginTime"
	KeyAttendanceRecord = "attendanceRecord"
	KeyLogoutTime       = "attendanceLogoutTime"
)

// Keys lists every durable key owned by the store, in field order.
var Keys = []string{KeyUser, KeyIsLoggedIn, KeyLoginTime, KeyAttendanceRecord, KeyLogoutTime}

// ID is a backend identifier. Backends issue ids as JSON strings or numbers;
// both decode to the same textual form and always encode as a string.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// User is the logged-in principal as returned by the backend.
//
// Members the client does not model are kept in Extra so they survive a
// persist/hydrate cycle.
type User struct {
	ID           ID     `json:"id"`
	Role         string `json:"role"`
	EmployeeID   ID     `json:"employeeId,omitempty"`
	Name         string `json:"name,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var userFields = []string{"id", "role", "employeeId", "name", "profileImage"}

// MarshalJSON encodes the typed fields merged with Extra.
func (u User) MarshalJSON() ([]byte, error) {
	type plain User
	return marshalWithExtra(plain(u), u.Extra)
}

// UnmarshalJSON decodes the typed fields and keeps unknown members in Extra.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := extraMembers(data, userFields)
	if err != nil {
		return err
	}
	*u = User(p)
	u.Extra = extra
	return nil
}

// AttendanceRecord is the last attendance snapshot the backend returned for
// the user.
type AttendanceRecord struct {
	ID         ID     `json:"id,omitempty"`
	EmployeeID ID     `json:"employeeId,omitempty"`
	Date       string `json:"date,omitempty"`
	LoginTime  string `json:"loginTime,omitempty"`
	LogoutTime string `json:"logoutTime,omitempty"`
	Status     string `json:"status,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var attendanceFields = []string{"id", "employeeId", "date", "loginTime", "logoutTime", "status"}

// MarshalJSON encodes the typed fields merged with Extra.
func (r AttendanceRecord) MarshalJSON() ([]byte, error) {
	type plain AttendanceRecord
	return marshalWithExtra(plain(r), r.Extra)
}

// UnmarshalJSON decodes the typed fields and keeps unknown members in Extra.
func (r *AttendanceRecord) UnmarshalJSON(data []byte) error {
	type plain AttendanceRecord
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := extraMembers(data, attendanceFields)
	if err != nil {
		return err
	}
	*r = AttendanceRecord(p)
	r.Extra = extra
	return nil
}

// State is a snapshot of the session. The zero value is the logged-out state.
type State struct {
	User             *User
	IsLoggedIn       bool
	LoginTime        string
	AttendanceRecord *AttendanceRecord
	LogoutTime       string
}

// LoggedIn reports whether the state is LOGGED_IN: a user is present and the
// login flag is set.
func (s State) LoggedIn() bool {
	return s.IsLoggedIn && s.User != nil
}

// Role returns the user's role, or "" when no user is present.
func (s State) Role() string {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

// Clone returns a deep copy so callers cannot mutate store-owned records.
func (s State) Clone() State {
	out := s
	if s.User != nil {
		u := *s.User
		u.Extra = cloneExtra(s.User.Extra)
		out.User = &u
	}
	if s.AttendanceRecord != nil {
		r := *s.AttendanceRecord
		r.Extra = cloneExtra(s.AttendanceRecord.Extra)
		out.AttendanceRecord = &r
	}
	return out
}

func cloneExtra(in map[string]json.RawMessage) map[string]json.RawMessage {
	if in == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(in))
	for k, v := range in {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}
