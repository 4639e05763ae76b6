package document

// Status is a document's lifecycle state.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusPendingReview   Status = "pending_review"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusUnderReview     Status = "under_review"
	StatusArchived        Status = "archived"
)

// Action is a lifecycle transition request.
type Action string

const (
	ActionSubmitForReview   Action = "submit_for_review"
	ActionSubmitForApproval Action = "submit_for_approval"
	ActionApprove           Action = "approve"
	ActionReject            Action = "reject"
	ActionTriggerReview     Action = "trigger_review"
	ActionCompleteReview    Action = "complete_review"
	ActionArchive           Action = "archive"
)

// Statuses lists every lifecycle state.
var Statuses = []Status{
	StatusDraft,
	StatusPendingReview,
	StatusPendingApproval,
	StatusApproved,
	StatusUnderReview,
	StatusArchived,
}

// Actions lists every lifecycle action.
var Actions = []Action{
	ActionSubmitForReview,
	ActionSubmitForApproval,
	ActionApprove,
	ActionReject,
	ActionTriggerReview,
	ActionCompleteReview,
	ActionArchive,
}

// transitions is the full lifecycle table. A missing pair is an invalid
// transition; archived has no row and is therefore terminal. Rejection at
// either gate returns to draft, never to an intermediate state, and review
// cannot be skipped on the way to approval.
var transitions = map[Status]map[Action]Status{
	StatusDraft: {
		ActionSubmitForReview: StatusPendingReview,
		ActionArchive:         StatusArchived,
	},
	StatusPendingReview: {
		ActionSubmitForApproval: StatusPendingApproval,
		ActionReject:            StatusDraft,
	},
	StatusPendingApproval: {
		ActionApprove: StatusApproved,
		ActionReject:  StatusDraft,
	},
	StatusApproved: {
		ActionTriggerReview: StatusUnderReview,
		ActionArchive:       StatusArchived,
	},
	StatusUnderReview: {
		ActionCompleteReview: StatusApproved,
	},
}

// CanTransition reports whether action is valid from the given state.
func CanTransition(from Status, action Action) bool {
	_, ok := transitions[from][action]
	return ok
}

// NextState returns the state action leads to from the given state, or
// ("", false) when the pair is not in the table.
func NextState(from Status, action Action) (Status, bool) {
	next, ok := transitions[from][action]
	return next, ok
}

// ValidStatus reports whether s is one of the six lifecycle states.
func ValidStatus(s Status) bool {
	if s == StatusArchived {
		return true
	}
	_, ok := transitions[s]
	return ok
}

// ValidAction reports whether a is one of the seven lifecycle actions.
func ValidAction(a Action) bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}
