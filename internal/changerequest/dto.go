package changerequest

import (
	"github.com/frahmantamala/document-management/internal"
	"github.com/frahmantamala/document-management/internal/core/common/validation"
)

type CreateChangeRequestDTO struct {
	DocumentID  int64  `json:"document_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ContentHash string `json:"content_hash"`
}

func (d CreateChangeRequestDTO) Validate() error {
	if d.DocumentID <= 0 {
		return internal.NewValidationError("document_id is required", internal.ErrCodeValidationFailed)
	}
	if err := validation.ValidateDocumentTitle(d.Title); err != nil {
		return err
	}
	if err := validation.ValidateContentHash(d.ContentHash); err != nil {
		return err
	}
	return nil
}

type TransitionChangeRequestDTO struct {
	Action Action `json:"action"`
	Reason string `json:"reason,omitempty"`
}

func (d TransitionChangeRequestDTO) Validate() error {
	if !ValidAction(d.Action) {
		return internal.NewValidationError("unknown change request action", internal.ErrCodeValidationFailed)
	}
	if d.Action == ActionReject && d.Reason == "" {
		return internal.NewValidationError("reject requires a reason", internal.ErrCodeValidationFailed)
	}
	return nil
}
