package domain

import "time"

type User struct {
	ID          string    `json:"id" firestore:"-"`
	DisplayName string    `json:"display_name" firestore:"displayName"`
	Email       string    `json:"email" firestore:"email"`
	Phone       string    `json:"phone" firestore:"phone"`
	CreatedAt   time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt   time.Time `json:"updated_at" firestore:"updatedAt"`
}

// AdminRecord is the per-user admin document. A user without a record has no
// administrative authority.
type AdminRecord struct {
	UserID       string    `json:"user_id" firestore:"-"`
	IsAdmin      bool      `json:"is_admin" firestore:"isAdmin"`
	IsSuperAdmin bool      `json:"is_super_admin" firestore:"isSuperAdmin"`
	TempleID     string    `json:"temple_id,omitempty" firestore:"templeId,omitempty"`
	UpdatedAt    time.Time `json:"updated_at" firestore:"updatedAt"`
}
