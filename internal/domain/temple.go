package domain

import "time"

type Temple struct {
	ID           string    `json:"id" firestore:"-"`
	Name         string    `json:"name" firestore:"name"`
	Description  string    `json:"description" firestore:"description"`
	Address      string    `json:"address" firestore:"address"`
	ContactEmail string    `json:"contact_email" firestore:"contactEmail"`
	ContactPhone string    `json:"contact_phone" firestore:"contactPhone"`
	CreatedBy    string    `json:"created_by" firestore:"createdBy"`
	CreatedAt    time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt    time.Time `json:"updated_at" firestore:"updatedAt"`
}

// ServiceType is an entry of a temple's free-text service category catalogue.
type ServiceType struct {
	ID          string    `json:"id" firestore:"-"`
	TempleID    string    `json:"temple_id" firestore:"templeId"`
	Name        string    `json:"name" firestore:"name"`
	Description string    `json:"description" firestore:"description"`
	CreatedAt   time.Time `json:"created_at" firestore:"createdAt"`
}

type TempleMember struct {
	UserID      string    `json:"user_id" firestore:"userId"`
	TempleID    string    `json:"temple_id" firestore:"templeId"`
	DisplayName string    `json:"display_name" firestore:"displayName"`
	Email       string    `json:"email" firestore:"email"`
	JoinedAt    time.Time `json:"joined_at" firestore:"joinedAt"`
}
