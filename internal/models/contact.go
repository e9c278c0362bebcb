package models

// Contact is a customer or supplier the business deals with.
type Contact struct {
	ID          string `json:"id"`
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	CompanyName string `json:"company_name,omitempty"`
	Category    string `json:"category,omitempty"`
	Language    string `json:"language,omitempty"`
	Currency    string `json:"currency,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// ContactFields is the create/update payload for a contact.
type ContactFields struct {
	FullName    *string `json:"full_name,omitempty"`
	Email       *string `json:"email,omitempty"`
	CompanyName *string `json:"company_name,omitempty"`
	Category    *string `json:"category,omitempty"`
	Language    *string `json:"language,omitempty"`
	Currency    *string `json:"currency,omitempty"`
}
