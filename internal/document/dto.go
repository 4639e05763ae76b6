package document

import (
	"time"

	"github.com/frahmantamala/document-management/internal"
	"github.com/frahmantamala/document-management/internal/core/common/validation"
)

type CreateDocumentDTO struct {
	Title               string     `json:"title"`
	DirectoryID         *int64     `json:"directory_id,omitempty"`
	ContentHash         string     `json:"content_hash"`
	EffectiveDate       *time.Time `json:"effective_date,omitempty"`
	ReviewFrequencyDays *int       `json:"review_frequency_days,omitempty"`
}

func (d CreateDocumentDTO) Validate() error {
	if err := validation.ValidateDocumentTitle(d.Title); err != nil {
		return err
	}
	if err := validation.ValidateContentHash(d.ContentHash); err != nil {
		return err
	}
	if d.DirectoryID != nil && *d.DirectoryID <= 0 {
		return internal.NewValidationError("directory_id must be positive", internal.ErrCodeValidationFailed)
	}
	if d.ReviewFrequencyDays != nil {
		if err := validation.ValidateReviewFrequency(int64(*d.ReviewFrequencyDays)); err != nil {
			return err
		}
	}
	return nil
}

type UpdateDraftDTO struct {
	Title               *string    `json:"title,omitempty"`
	EffectiveDate       *time.Time `json:"effective_date,omitempty"`
	ReviewFrequencyDays *int       `json:"review_frequency_days,omitempty"`
}

func (d UpdateDraftDTO) Validate() error {
	if d.Title != nil {
		if err := validation.ValidateDocumentTitle(*d.Title); err != nil {
			return err
		}
	}
	if d.ReviewFrequencyDays != nil {
		if err := validation.ValidateReviewFrequency(int64(*d.ReviewFrequencyDays)); err != nil {
			return err
		}
	}
	return nil
}

type TransitionDTO struct {
	Action Action `json:"action"`
	Reason string `json:"reason,omitempty"`
}

func (d TransitionDTO) Validate() error {
	if !ValidAction(d.Action) {
		return internal.NewValidationError("unknown lifecycle action", internal.ErrCodeValidationFailed)
	}
	if d.Action == ActionReject && d.Reason == "" {
		return internal.NewValidationError("reject requires a reason", internal.ErrCodeValidationFailed)
	}
	return nil
}

type CreateVersionDTO struct {
	ContentHash string `json:"content_hash"`
}

func (d CreateVersionDTO) Validate() error {
	if err := validation.ValidateContentHash(d.ContentHash); err != nil {
		return err
	}
	return nil
}
