package domain

import "time"

// Token is one unit of pool stock. AssignedTo is set at most once and never
// cleared afterwards.
type Token struct {
	ID         string
	Value      string
	AssignedTo *string
	AssignedAt *time.Time
	CreatedAt  time.Time
}
