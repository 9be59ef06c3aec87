package session

import (
	"encoding/json"
	"errors"
)

// ErrDecode matches every [DecodeError].
var ErrDecode = errors.New("session entry decode failed")

// DecodeError reports a durable entry that exists but is not valid encoded data.
type DecodeError struct {
	Key string
	Err error
}

func (e *DecodeError) Error() string {
	return "decode " + e.Key + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrDecode) match.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// absent reports whether a raw durable value stands for "no value". Browsers
// stringify undefined and null into these literals.
func absent(raw string) bool {
	switch raw {
	case "", "undefined", "null":
		return true
	default:
		return false
	}
}

// Decode parses a structured durable entry. Absent literals yield (nil, nil);
// anything that is not valid JSON for T yields a [*DecodeError].
func Decode[T any](key, raw string) (*T, error) {
	if absent(raw) {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, &DecodeError{Key: key, Err: err}
	}
	return &v, nil
}

// DecodeUser decodes the durable "user" entry.
func DecodeUser(raw string) (*User, error) {
	return Decode[User](KeyUser, raw)
}

// DecodeAttendanceRecord decodes the durable "attendanceRecord" entry.
func DecodeAttendanceRecord(raw string) (*AttendanceRecord, error) {
	return Decode[AttendanceRecord](KeyAttendanceRecord, raw)
}

// Encode returns the durable form of v.
func Encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeLoggedIn(raw string) bool {
	return raw == "true"
}

func marshalWithExtra(known any, extra map[string]json.RawMessage) ([]byte, error) {
	data, err := json.Marshal(known)
	if err != nil || len(extra) == 0 {
		return data, err
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, taken := members[k]; !taken {
			members[k] = v
		}
	}
	return json.Marshal(members)
}

func extraMembers(data []byte, known []string) (map[string]json.RawMessage, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(members, k)
	}
	if len(members) == 0 {
		return nil, nil
	}
	return members, nil
}
