package member

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultRole is granted to every member at registration.
const DefaultRole = "ROLE_USER"

const (
	minLoginIDLen  = 5
	maxLoginIDLen  = 20
	minPasswordLen = 8
	maxPasswordLen = 20
)

// Login IDs become path segments of image keys, so they are limited to
// characters that never need escaping.
var loginIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

var (
	ErrNotFound         = errors.New("member not found")
	ErrDuplicateLoginID = errors.New("login id already registered")
	ErrInvalidMember    = errors.New("invalid member data")
)

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Member is one row of the members table.
type Member struct {
	ID           int64
	LoginID      string
	PasswordHash string
	Username     string
	Gender       Gender
	Age          int
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the public view of a member.
type Profile struct {
	LoginID  string `json:"loginId"`
	Username string `json:"username"`
	Gender   Gender `json:"gender"`
	Age      int    `json:"age"`
}

func (m *Member) Profile() Profile {
	return Profile{LoginID: m.LoginID, Username: m.Username, Gender: m.Gender, Age: m.Age}
}

// JoinRequest carries a registration.
type JoinRequest struct {
	LoginID  string `json:"loginId"`
	Password string `json:"password"`
	Username string `json:"username"`
	Gender   Gender `json:"gender"`
	Age      *int   `json:"age"`
}

func (r JoinRequest) Validate() error {
	if n := utf8.RuneCountInString(r.LoginID); strings.TrimSpace(r.LoginID) == "" || n < minLoginIDLen || n > maxLoginIDLen {
		return fmt.Errorf("%w: login id must be %d-%d characters", ErrInvalidMember, minLoginIDLen, maxLoginIDLen)
	}
	if !loginIDPattern.MatchString(r.LoginID) || r.LoginID == "." || r.LoginID == ".." {
		return fmt.Errorf("%w: login id may only contain letters, digits, '_', '.' and '-'", ErrInvalidMember)
	}
	if err := validatePassword(r.Password); err != nil {
		return err
	}
	if strings.TrimSpace(r.Username) == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidMember)
	}
	if !r.Gender.Valid() {
		return fmt.Errorf("%w: gender must be MALE or FEMALE", ErrInvalidMember)
	}
	if r.Age == nil || *r.Age < 0 {
		return fmt.Errorf("%w: age is required", ErrInvalidMember)
	}
	return nil
}

// UpdateRequest changes any non-nil field.
type UpdateRequest struct {
	Username    *string `json:"newName"`
	NewPassword *string `json:"newPassword"`
	Gender      *Gender `json:"gender"`
	Age         *int    `json:"age"`
}

func (r UpdateRequest) Validate() error {
	if r.Username != nil && strings.TrimSpace(*r.Username) == "" {
		return fmt.Errorf("%w: username must not be blank", ErrInvalidMember)
	}
	if r.NewPassword != nil && *r.NewPassword != "" {
		if err := validatePassword(*r.NewPassword); err != nil {
			return err
		}
	}
	if r.Gender != nil && !r.Gender.Valid() {
		return fmt.Errorf("%w: gender must be MALE or FEMALE", ErrInvalidMember)
	}
	if r.Age != nil && *r.Age < 0 {
		return fmt.Errorf("%w: age must be >= 0", ErrInvalidMember)
	}
	return nil
}

func validatePassword(p string) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidMember)
	}
	if n := utf8.RuneCountInString(p); n < minPasswordLen || n > maxPasswordLen {
		return fmt.Errorf("%w: password must be %d-%d characters", ErrInvalidMember, minPasswordLen, maxPasswordLen)
	}
	return nil
}
