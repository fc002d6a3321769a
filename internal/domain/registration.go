package domain

import "strings"

// Registration is the data carried by a customer badge.
type Registration struct {
	FirstName string
	LastName  string
}

// NewRegistration trims both names and requires them to be non-empty.
func NewRegistration(firstName, lastName string) (Registration, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" {
		return Registration{}, ValidationError{Field: "first_name", Message: "first name is required", Err: ErrInvalidName}
	}
	if lastName == "" {
		return Registration{}, ValidationError{Field: "last_name", Message: "last name is required", Err: ErrInvalidName}
	}
	return Registration{FirstName: firstName, LastName: lastName}, nil
}
