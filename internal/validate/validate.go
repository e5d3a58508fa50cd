// Package validate enforces the note payload rules before any write reaches
// the service.
package validate

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Minimum lengths, counted in characters.
const (
	TitleMinLen   = 3
	ContentMinLen = 5
)

const (
	msgTitleRequired   = "Title is required"
	msgContentRequired = "Content is required"
	msgTitleLength     = "Title must be at least 3 characters long"
	msgContentLength   = "Content must be at least 5 characters long"
)

// FieldIssue is one rule violation on one payload field.
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error carries every field issue found in a payload.
type Error struct {
	Issues []FieldIssue
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = is.Field + ": " + is.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// fieldOrder fixes the order issues are reported in.
var fieldOrder = []string{"title", "content"}

// payload mirrors the request body; nil means the field was absent.
type payload struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// CreateNote requires both fields and checks their minimum lengths.
func CreateNote(title, content *string) error {
	p := payload{Title: title, Content: content}
	return collect(validation.ValidateStruct(&p,
		validation.Field(&p.Title,
			validation.Required.Error(msgTitleRequired),
			validation.RuneLength(TitleMinLen, 0).Error(msgTitleLength)),
		validation.Field(&p.Content,
			validation.Required.Error(msgContentRequired),
			validation.RuneLength(ContentMinLen, 0).Error(msgContentLength)),
	))
}

// UpdateNote accepts absent fields but holds present ones, including empty
// strings, to the same minimum lengths as CreateNote.
func UpdateNote(title, content *string) error {
	p := payload{Title: title, Content: content}
	return collect(validation.ValidateStruct(&p,
		validation.Field(&p.Title,
			validation.NilOrNotEmpty.Error(msgTitleLength),
			validation.RuneLength(TitleMinLen, 0).Error(msgTitleLength)),
		validation.Field(&p.Content,
			validation.NilOrNotEmpty.Error(msgContentLength),
			validation.RuneLength(ContentMinLen, 0).Error(msgContentLength)),
	))
}

// collect turns ozzo's field error map into a sorted issue list.
func collect(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	var issues []FieldIssue
	for _, field := range fieldOrder {
		if ferr := fieldErrs[field]; ferr != nil {
			issues = append(issues, FieldIssue{Field: field, Message: ferr.Error()})
		}
	}
	if len(issues) == 0 {
		return nil
	}
	return &Error{Issues: issues}
}
