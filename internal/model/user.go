// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a registered campus account.
//
// The registration number is the external identity (unique, validated
// against the institute's issued ranges); ID is our own xid primary key.
// Password and security code are stored as bcrypt hashes only; the
// security code is a secondary credential used to authorize password
// resets without email infrastructure.
type User struct {
	ID                 string    `json:"id"                 db:"id"`
	RegistrationNumber string    `json:"registrationNumber" db:"registration_number"`
	Name               string    `json:"name"               db:"name"`
	PasswordHash       string    `json:"-"                  db:"password_hash"`
	SecurityCodeHash   string    `json:"-"                  db:"security_code_hash"`
	SecurityCodeHint   string    `json:"securityCodeHint"   db:"security_code_hint"`
	Email              string    `json:"email"              db:"email"`
	Phone              string    `json:"phone"              db:"phone"`
	ResetToken         string    `json:"-"                  db:"reset_token"`
	ResetTokenExpiry   time.Time `json:"-"                  db:"reset_token_expiry"`
	CreatedAt          time.Time `json:"createdAt"          db:"created_at"`
}

// Identity is the resolved caller attached to a request after auth.
// It carries the denormalized display fields that get frozen onto
// listings at creation time.
type Identity struct {
	ID                 string `json:"id"`
	RegistrationNumber string `json:"registrationNumber"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
}
