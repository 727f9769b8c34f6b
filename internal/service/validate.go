package service

import (
	"fmt"
	"strings"
)

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var messages []string
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// Fields returns the names of the rejected fields in order.
func (e ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(e))
	for _, err := range e {
		fields = append(fields, err.Field)
	}
	return fields
}

// UploadRequest is a new unit file submitted for installation.
type UploadRequest struct {
	Level    string `json:"level" yaml:"level"`
	UnitName string `json:"unitName" yaml:"unitName"`
	Content  string `json:"content" yaml:"content"`
}

// Validate reports every blank field. Whitespace-only values count as blank.
func (r *UploadRequest) Validate() error {
	var errs ValidationErrors

	if strings.TrimSpace(r.Level) == "" {
		errs = append(errs, ValidationError{Field: "level", Message: "is required"})
	}
	if strings.TrimSpace(r.UnitName) == "" {
		errs = append(errs, ValidationError{Field: "unitName", Message: "is required"})
	}
	if strings.TrimSpace(r.Content) == "" {
		errs = append(errs, ValidationError{Field: "content", Message: "is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// OperationRequest asks for a systemctl verb to be applied to a unit.
type OperationRequest struct {
	Level     string `json:"level" yaml:"level"`
	Operation string `json:"operation" yaml:"operation"`
	UnitName  string `json:"unitName" yaml:"unitName"`
}
