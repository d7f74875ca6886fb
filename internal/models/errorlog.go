package models

import (
	"encoding/json"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ErrorLog is a debugging write-up: the raw error, how it was solved, and where it happened.
type ErrorLog struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	Solution      string    `json:"solution"`
	StackTrace    string    `json:"stackTrace,omitempty"`
	File          string    `json:"file,omitempty"`
	Project       string    `json:"project,omitempty"`
	ScreenshotURL string    `json:"screenshotUrl,omitempty"`
	Tags          []string  `json:"tags"`
	CreatedAt     time.Time `json:"createdAt"`
}

// UnmarshalJSON accepts "error" as an alias for "message".
func (e *ErrorLog) UnmarshalJSON(data []byte) error {
	type plain ErrorLog
	aux := struct {
		*plain
		Error string `json:"error"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if e.Message == "" {
		e.Message = aux.Error
	}
	return nil
}

// RecordID returns the error log id.
func (e ErrorLog) RecordID() int64 { return e.ID }

// Created returns the creation time.
func (e ErrorLog) Created() time.Time { return e.CreatedAt }

// Stamped returns a copy of e carrying the given identity.
func (e ErrorLog) Stamped(id int64, createdAt time.Time) ErrorLog {
	e.ID = id
	e.CreatedAt = createdAt
	return e
}

// Normalized returns a copy of e with tags deduplicated.
func (e ErrorLog) Normalized() ErrorLog {
	e.Tags = NormalizeTags(e.Tags)
	return e
}

// Validate checks the fields an error log must carry before it reaches the store.
func (e ErrorLog) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Title, validation.Required.Error("title is required"), notBlank),
		validation.Field(&e.Message, validation.Required.Error("message is required"), notBlank),
	)
}

// SearchFields returns the text a free-text query is matched against.
func (e ErrorLog) SearchFields() []string {
	fields := make([]string, 0, 3+len(e.Tags))
	fields = append(fields, e.Title, e.Message, e.Solution)
	return append(fields, e.Tags...)
}
