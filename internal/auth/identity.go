// Package auth provides identities, the simulated login, bearer tokens and the
// HTTP middleware that resolves them.
package auth

import "github.com/google/uuid"

// User is an authenticated identity.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u User) IsAuthenticated() bool { return true }
func (u User) DisplayName() string   { return u.Name }
func (u User) Subject() string       { return "user:" + u.ID }

// Anonymous is an unauthenticated visitor, keyed by a device id so that
// usage still has a subject.
type Anonymous struct {
	DeviceID string `json:"device_id"`
}

// NewAnonymous returns an anonymous identity with a fresh device id.
func NewAnonymous() Anonymous {
	return Anonymous{DeviceID: uuid.NewString()}
}

func (a Anonymous) IsAuthenticated() bool { return false }
func (a Anonymous) DisplayName() string   { return "" }
func (a Anonymous) Subject() string       { return "device:" + a.DeviceID }
