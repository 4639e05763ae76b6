package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeDocumentApproved = "document.approved"
	EventTypeDocumentRejected = "document.rejected"
	EventTypeReviewDue        = "document.review_due"
)

type DocumentApprovedEvent struct {
	BaseEvent
	DocumentID     int64      `json:"document_id"`
	ApprovedBy     int64      `json:"approved_by"`
	NextReviewDate *time.Time `json:"next_review_date,omitempty"`
}

func NewDocumentApprovedEvent(documentID, approvedBy int64, nextReviewDate *time.Time) *DocumentApprovedEvent {
	return &DocumentApprovedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeDocumentApproved,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"document_id":      documentID,
				"approved_by":      approvedBy,
				"next_review_date": nextReviewDate,
			},
		},
		DocumentID:     documentID,
		ApprovedBy:     approvedBy,
		NextReviewDate: nextReviewDate,
	}
}

type DocumentRejectedEvent struct {
	BaseEvent
	DocumentID int64  `json:"document_id"`
	RejectedBy int64  `json:"rejected_by"`
	Reason     string `json:"reason"`
}

func NewDocumentRejectedEvent(documentID, rejectedBy int64, reason string) *DocumentRejectedEvent {
	return &DocumentRejectedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeDocumentRejected,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"document_id": documentID,
				"rejected_by": rejectedBy,
				"reason":      reason,
			},
		},
		DocumentID: documentID,
		RejectedBy: rejectedBy,
		Reason:     reason,
	}
}

type ReviewDueEvent struct {
	BaseEvent
	DocumentID     int64     `json:"document_id"`
	OwnerID        int64     `json:"owner_id"`
	NextReviewDate time.Time `json:"next_review_date"`
}

func NewReviewDueEvent(documentID, ownerID int64, nextReviewDate time.Time) *ReviewDueEvent {
	return &ReviewDueEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeReviewDue,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"document_id":      documentID,
				"owner_id":         ownerID,
				"next_review_date": nextReviewDate,
			},
		},
		DocumentID:     documentID,
		OwnerID:        ownerID,
		NextReviewDate: nextReviewDate,
	}
}
