// Package models defines the domain models for nora.
//
// # Records
//
// Each stored kind has a read model that a storage.Record decodes into:
//   - User: a registered account (password holds the bcrypt hash)
//   - Contact: a customer or supplier
//   - Invoice: a bill sent to a contact, owning its LineItems
//   - Expense: money going out
//   - TimeEntry: hours worked, optionally for a contact
//
// # Write payloads
//
// Every kind also has a *Fields struct used for create and partial update.
// Its fields are pointers tagged omitempty, so only the values that were set
// reach the store; an unset pointer keeps the stored value on update.
//
// # Derived views
//
// CalendarEvent, CalendarFeed and Dashboard are computed by the reports
// package and never stored.
//
// # Design Principles
//
//  1. Field names in JSON tags match the storage schema exactly
//  2. Relationships are id strings (weak references, never enforced)
//  3. Ids are opaque strings regardless of backend
package models
