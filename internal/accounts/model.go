// Package accounts stores students and staff and authenticates them.
package accounts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Account types persisted on every row and carried in session tokens.
const (
	TypeStaff   = "staff"
	TypeStudent = "student"
)

// Phone accepts either a JSON string or a JSON number.
type Phone string

func (p *Phone) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Phone(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("phone must be a string or number: %w", err)
	}
	*p = Phone(n.String())
	return nil
}

// Student is a student account.
type Student struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Phone        Phone      `json:"phone"`
	Dept         string     `json:"dept"`
	Batch        int        `json:"batch"`
	Sem          int        `json:"sem"`
	AccountType  string     `json:"account_type"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// Staff is a staff account. Admins are staff with IsAdmin set.
type Staff struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Phone        Phone      `json:"phone"`
	Dept         string     `json:"dept"`
	IsAdmin      bool       `json:"is_admin"`
	AccountType  string     `json:"account_type"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// StudentInput is the registration payload for a student.
type StudentInput struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Phone    Phone  `json:"phone" binding:"required"`
	Dept     string `json:"dept" binding:"required"`
	Batch    int    `json:"batch" binding:"required,gt=0"`
	Sem      int    `json:"sem" binding:"required,min=1,max=12"`
	Password string `json:"password" binding:"required,min=1"`
}

// StudentPatch is a partial student update. Nil fields are left alone.
type StudentPatch struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	Name     *string `json:"name" binding:"omitempty,min=1"`
	Phone    *Phone  `json:"phone"`
	Dept     *string `json:"dept" binding:"omitempty,min=1"`
	Batch    *int    `json:"batch" binding:"omitempty,gt=0"`
	Sem      *int    `json:"sem" binding:"omitempty,min=1,max=12"`
	Password *string `json:"password" binding:"omitempty,min=1"`
}

// StaffInput is the registration payload for a staff member.
type StaffInput struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Phone    Phone  `json:"phone" binding:"required"`
	Dept     string `json:"dept" binding:"required"`
	IsAdmin  bool   `json:"is_admin"`
	Password string `json:"password" binding:"required,min=1"`
}

// StaffPatch is a partial staff update. Nil fields are left alone.
type StaffPatch struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	Name     *string `json:"name" binding:"omitempty,min=1"`
	Phone    *Phone  `json:"phone"`
	Dept     *string `json:"dept" binding:"omitempty,min=1"`
	IsAdmin  *bool   `json:"is_admin"`
	Password *string `json:"password" binding:"omitempty,min=1"`
}

// Identity is the result of a successful login.
type Identity struct {
	ID          string
	AccountType string
}
