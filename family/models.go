package family

import "time"

// Member links the owning user to another registered user.
type Member struct {
	ID            string
	UserID        string
	RelatedUserID string
	Relationship  string
	CreatedAt     time.Time
}

// NonRegisteredMember is a family member without a platform account. The
// owner acts on their behalf during agreement signing.
type NonRegisteredMember struct {
	ID           string
	OwnerUserID  string
	FullName     string
	Relationship string
	Email        *string
	CreatedAt    time.Time
}
