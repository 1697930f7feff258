package model

// Role is the capability class carried by an authenticated identity.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCollege Role = "college"
	RoleStudent Role = "student"
)
