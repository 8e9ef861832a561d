package asset

import "time"

// Asset is an owned item that can be allocated to agreement beneficiaries.
type Asset struct {
	ID             string
	OwnerID        string
	Name           string
	Category       string
	EstimatedValue float64
	Description    *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
