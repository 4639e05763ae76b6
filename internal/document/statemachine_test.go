package document_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/document-management/internal/document"
)

var _ = Describe("StateMachine", func() {
	// allowed is the complete lifecycle table; every (status, action) pair
	// absent from it must be rejected.
	allowed := map[document.Status]map[document.Action]document.Status{
		document.StatusDraft: {
			document.ActionSubmitForReview: document.StatusPendingReview,
			document.ActionArchive:         document.StatusArchived,
		},
		document.StatusPendingReview: {
			document.ActionSubmitForApproval: document.StatusPendingApproval,
			document.ActionReject:            document.StatusDraft,
		},
		document.StatusPendingApproval: {
			document.ActionApprove: document.StatusApproved,
			document.ActionReject:  document.StatusDraft,
		},
		document.StatusApproved: {
			document.ActionTriggerReview: document.StatusUnderReview,
			document.ActionArchive:       document.StatusArchived,
		},
		document.StatusUnderReview: {
			document.ActionCompleteReview: document.StatusApproved,
		},
	}

	Describe("NextState", func() {
		It("should accept exactly the pairs in the lifecycle table", func() {
			for _, status := range document.Statuses {
				for _, action := range document.Actions {
					next, ok := document.NextState(status, action)
					expected, want := allowed[status][action]
					Expect(ok).To(Equal(want),
						"status %s action %s", status, action)
					if want {
						Expect(next).To(Equal(expected),
							"status %s action %s", status, action)
					}
				}
			}
		})

		It("should treat archived as terminal", func() {
			for _, action := range document.Actions {
				_, ok := document.NextState(document.StatusArchived, action)
				Expect(ok).To(BeFalse(), "action %s", action)
			}
		})

		It("should not allow skipping review on the way to approval", func() {
			_, ok := document.NextState(document.StatusDraft, document.ActionSubmitForApproval)
			Expect(ok).To(BeFalse())
			_, ok = document.NextState(document.StatusDraft, document.ActionApprove)
			Expect(ok).To(BeFalse())
		})

		It("should send rejections back to draft from both gates", func() {
			next, ok := document.NextState(document.StatusPendingReview, document.ActionReject)
			Expect(ok).To(BeTrue())
			Expect(next).To(Equal(document.StatusDraft))

			next, ok = document.NextState(document.StatusPendingApproval, document.ActionReject)
			Expect(ok).To(BeTrue())
			Expect(next).To(Equal(document.StatusDraft))
		})

		It("should return approved documents to approved after a periodic review", func() {
			next, ok := document.NextState(document.StatusApproved, document.ActionTriggerReview)
			Expect(ok).To(BeTrue())
			Expect(next).To(Equal(document.StatusUnderReview))

			next, ok = document.NextState(document.StatusUnderReview, document.ActionCompleteReview)
			Expect(ok).To(BeTrue())
			Expect(next).To(Equal(document.StatusApproved))
		})
	})

	Describe("CanTransition", func() {
		It("should agree with NextState for every pair", func() {
			for _, status := range document.Statuses {
				for _, action := range document.Actions {
					_, ok := document.NextState(status, action)
					Expect(document.CanTransition(status, action)).To(Equal(ok))
				}
			}
		})
	})

	Describe("ValidAction", func() {
		It("should reject unknown actions", func() {
			Expect(document.ValidAction(document.Action("promote"))).To(BeFalse())
			Expect(document.ValidAction(document.ActionApprove)).To(BeTrue())
		})
	})

	Describe("ValidStatus", func() {
		It("should accept all six states and nothing else", func() {
			for _, status := range document.Statuses {
				Expect(document.ValidStatus(status)).To(BeTrue(), "status %s", status)
			}
			Expect(document.ValidStatus(document.Status("published"))).To(BeFalse())
		})
	})
})
