package models

// TimeEntry records time worked on a given day.
type TimeEntry struct {
	ID          string `json:"id"`
	ContactID   string `json:"contact_id,omitempty"`
	Date        string `json:"date"`
	Hours       int64  `json:"hours"`
	Minutes     int64  `json:"minutes"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// TimeEntryFields is the create/update payload for a time entry.
type TimeEntryFields struct {
	ContactID   *string `json:"contact_id,omitempty"`
	Date        *string `json:"date,omitempty"`
	Hours       *int64  `json:"hours,omitempty"`
	Minutes     *int64  `json:"minutes,omitempty"`
	Description *string `json:"description,omitempty"`
}
