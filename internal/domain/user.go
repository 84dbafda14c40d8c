// Package domain contains entity value types without logic, just meta-data.
package domain

import "errors"

const MaxUserNameLen = 36

var (
	ErrUserNameTooLong = errors.New("user name too long")
	ErrUserNameEmpty   = errors.New("user name empty")
)

// UserName is the display name a participant joins with. It travels in
// signaling payloads so remote peers can label incoming streams.
type UserName string

// NewUserName validates raw input from adapters; it is the only place
// names are checked, so every join path gets the same rules.
func NewUserName(raw string) (UserName, error) {
	if len(raw) == 0 {
		return "", ErrUserNameEmpty
	}
	if len(raw) > MaxUserNameLen {
		return "", ErrUserNameTooLong
	}
	return UserName(raw), nil
}
