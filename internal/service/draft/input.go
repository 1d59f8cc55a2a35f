package draft

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/quillshelf/backend/internal/domain"
)

const maxTitleLength = 500

// CreateInput holds the parameters for creating a draft.
type CreateInput struct {
	BookID   *uuid.UUID
	Title    *string
	Body     string
	Metadata json.RawMessage
}

// Validate checks structural constraints and collects all errors.
// Size limits come from configuration and are checked by the service.
func (i *CreateInput) Validate() error {
	var errs []domain.FieldError

	if i.Title != nil && len(*i.Title) > maxTitleLength {
		errs = append(errs, domain.FieldError{Field: "title", Message: "too long (max 500)"})
	}
	if len(i.Metadata) > 0 && !json.Valid(i.Metadata) {
		errs = append(errs, domain.FieldError{Field: "metadata", Message: "invalid JSON"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// AutosaveInput holds the parameters for an autosave update.
type AutosaveInput struct {
	DraftID         uuid.UUID
	ExpectedVersion int
	Patch           domain.DraftPatch
}

// Validate checks structural constraints and collects all errors.
func (i *AutosaveInput) Validate() error {
	var errs []domain.FieldError

	if i.DraftID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "draft_id", Message: "required"})
	}
	if i.ExpectedVersion < 1 {
		errs = append(errs, domain.FieldError{Field: "expected_version", Message: "must be positive"})
	}
	if i.Patch.Title != nil && len(*i.Patch.Title) > maxTitleLength {
		errs = append(errs, domain.FieldError{Field: "title", Message: "too long (max 500)"})
	}
	if i.Patch.Metadata != nil && !json.Valid(i.Patch.Metadata) {
		errs = append(errs, domain.FieldError{Field: "metadata", Message: "invalid JSON"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// ExtendInput holds the parameters for extending a draft's deadline.
type ExtendInput struct {
	DraftID uuid.UUID

	// Days is the new lifetime counted from now. Zero means the configured
	// default.
	Days int
}

const maxExtensionDays = 30

// Validate checks structural constraints and collects all errors.
func (i *ExtendInput) Validate() error {
	var errs []domain.FieldError

	if i.DraftID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "draft_id", Message: "required"})
	}
	if i.Days < 0 || i.Days > maxExtensionDays {
		errs = append(errs, domain.FieldError{Field: "days", Message: "out of range (max 30)"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}
