package workflow_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/document-management/internal"
	"github.com/frahmantamala/document-management/internal/audit"
	"github.com/frahmantamala/document-management/internal/auth"
	"github.com/frahmantamala/document-management/internal/workflow"
)

func TestWorkflowService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Workflow Suite")
}

// Mock repository for testing
type mockWorkflowRepository struct {
	sets      map[int64]*workflow.DecisionSet
	decisions map[int64]*workflow.Decision
	nextID    int64

	// forceCompleteFail simulates another completion claiming the set first.
	forceCompleteFail bool

	createError error
	getError    error
}

func newMockWorkflowRepository() *mockWorkflowRepository {
	return &mockWorkflowRepository{
		sets:      make(map[int64]*workflow.DecisionSet),
		decisions: make(map[int64]*workflow.Decision),
		nextID:    1,
	}
}

func (m *mockWorkflowRepository) CreateSet(_ context.Context, set *workflow.DecisionSet, decisions []*workflow.Decision) error {
	if m.createError != nil {
		return m.createError
	}
	set.ID = m.nextID
	m.nextID++
	set.CreatedAt = time.Now()
	m.sets[set.ID] = set
	for _, d := range decisions {
		d.ID = m.nextID
		m.nextID++
		d.DecisionSetID = set.ID
		d.CreatedAt = time.Now()
		m.decisions[d.ID] = d
	}
	return nil
}

func (m *mockWorkflowRepository) GetSet(_ context.Context, id int64) (*workflow.DecisionSet, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	set, ok := m.sets[id]
	if !ok {
		return nil, nil
	}
	copied := *set
	return &copied, nil
}

func (m *mockWorkflowRepository) LatestSetForSubject(_ context.Context, kind workflow.SubjectKind, subjectID int64) (*workflow.DecisionSet, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	var latest *workflow.DecisionSet
	for _, set := range m.sets {
		if set.SubjectKind != kind || set.SubjectID != subjectID {
			continue
		}
		if latest == nil || set.ID > latest.ID {
			latest = set
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (m *mockWorkflowRepository) GetDecision(_ context.Context, id int64) (*workflow.Decision, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	d, ok := m.decisions[id]
	if !ok {
		return nil, nil
	}
	copied := *d
	return &copied, nil
}

func (m *mockWorkflowRepository) ListDecisions(_ context.Context, setID int64) ([]*workflow.Decision, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	var result []*workflow.Decision
	for _, d := range m.decisions {
		if d.DecisionSetID == setID {
			result = append(result, d)
		}
	}
	return result, nil
}

func (m *mockWorkflowRepository) UpdateDecisionIf(_ context.Context, id int64, next workflow.DecisionStatus, notes *string, decidedAt time.Time) (bool, error) {
	d, ok := m.decisions[id]
	if !ok || d.Status != workflow.DecisionPending {
		return false, nil
	}
	d.Status = next
	d.Notes = notes
	d.DecidedAt = &decidedAt
	return true, nil
}

func (m *mockWorkflowRepository) CompleteSetIf(_ context.Context, id int64, outcome workflow.Outcome, completedAt time.Time) (bool, error) {
	if m.forceCompleteFail {
		return false, nil
	}
	set, ok := m.sets[id]
	if !ok || set.Outcome != workflow.OutcomePending {
		return false, nil
	}
	set.Outcome = outcome
	set.CompletedAt = &completedAt
	return true, nil
}

// Spy transitioner records downstream outcome applications and reports the
// subject owner the service screens against
type spyTransitioner struct {
	owner    int64
	ownerErr error
	calls    int
	approved []bool
	err      error
}

func (s *spyTransitioner) SubjectOwner(_ context.Context, _ int64) (int64, error) {
	return s.owner, s.ownerErr
}

func (s *spyTransitioner) ApplyWorkflowOutcome(_ context.Context, _ *auth.User, _ int64, approved bool, _ string) error {
	s.calls++
	s.approved = append(s.approved, approved)
	return s.err
}

var _ = Describe("WorkflowService", func() {
	var (
		repo         *mockWorkflowRepository
		transitioner *spyTransitioner
		svc          *workflow.Service

		creator      *auth.User
		subjectOwner *auth.User
		approverA    *auth.User
		approverB    *auth.User
		approverC    *auth.User
	)

	BeforeEach(func() {
		repo = newMockWorkflowRepository()
		transitioner = &spyTransitioner{owner: 42}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		svc = workflow.NewService(repo, map[workflow.SubjectKind]workflow.SubjectTransitioner{
			workflow.SubjectDocument: transitioner,
		}, audit.NopEmitter{}, logger)

		creator = &auth.User{ID: 1, Role: auth.RoleManager}
		subjectOwner = &auth.User{ID: 42, Role: auth.RoleEmployee}
		approverA = &auth.User{ID: 10, Role: auth.RoleEmployee}
		approverB = &auth.User{ID: 11, Role: auth.RoleEmployee}
		approverC = &auth.User{ID: 12, Role: auth.RoleEmployee}
	})

	createSet := func(mode workflow.Mode, approverIDs ...int64) (*workflow.DecisionSet, []*workflow.Decision) {
		set, err := svc.CreateDecisionSet(context.Background(), creator, workflow.CreateDecisionSetDTO{
			SubjectKind: string(workflow.SubjectDocument),
			SubjectID:   100,
			Mode:        string(mode),
			ApproverIDs: approverIDs,
		})
		Expect(err).ToNot(HaveOccurred())
		decisions, err := repo.ListDecisions(context.Background(), set.ID)
		Expect(err).ToNot(HaveOccurred())
		return set, decisions
	}

	decisionFor := func(decisions []*workflow.Decision, approverID int64) *workflow.Decision {
		for _, d := range decisions {
			if d.ApproverID == approverID {
				return d
			}
		}
		Fail("no decision for approver")
		return nil
	}

	approve := func(actor *auth.User, decisionID int64) error {
		_, err := svc.RecordDecision(context.Background(), actor, decisionID, workflow.RecordDecisionDTO{
			Status: string(workflow.DecisionApproved),
		})
		return err
	}

	reject := func(actor *auth.User, decisionID int64) error {
		_, err := svc.RecordDecision(context.Background(), actor, decisionID, workflow.RecordDecisionDTO{
			Status: string(workflow.DecisionRejected),
			Notes:  "needs rework",
		})
		return err
	}

	Describe("Aggregate", func() {
		entry := func(statuses []workflow.DecisionStatus, wantComplete bool, wantOutcome workflow.Outcome) {
			decisions := make([]*workflow.Decision, len(statuses))
			for i, s := range statuses {
				decisions[i] = &workflow.Decision{Status: s}
			}
			complete, outcome := workflow.Aggregate(decisions)
			Expect(complete).To(Equal(wantComplete))
			Expect(outcome).To(Equal(wantOutcome))
		}

		It("should stay pending while any decision is pending", func() {
			entry([]workflow.DecisionStatus{workflow.DecisionApproved, workflow.DecisionPending}, false, workflow.OutcomePending)
			entry([]workflow.DecisionStatus{workflow.DecisionRejected, workflow.DecisionPending}, false, workflow.OutcomePending)
		})

		It("should require unanimity for approval", func() {
			entry([]workflow.DecisionStatus{workflow.DecisionApproved, workflow.DecisionApproved}, true, workflow.OutcomeApproved)
		})

		It("should reject the whole set on a single rejection", func() {
			entry([]workflow.DecisionStatus{workflow.DecisionApproved, workflow.DecisionRejected, workflow.DecisionApproved}, true, workflow.OutcomeRejected)
		})

		It("should treat a request for changes as a completed denial", func() {
			entry([]workflow.DecisionStatus{workflow.DecisionApproved, workflow.DecisionChangesRequested}, true, workflow.OutcomeRejected)
		})

		It("should treat an empty set as incomplete", func() {
			entry(nil, false, workflow.OutcomePending)
		})
	})

	Describe("CreateDecisionSet", func() {
		It("should assign sequential positions in DTO order", func() {
			_, decisions := createSet(workflow.ModeSequential, approverA.ID, approverB.ID, approverC.ID)
			Expect(decisionFor(decisions, approverA.ID).Position).To(Equal(1))
			Expect(decisionFor(decisions, approverB.ID).Position).To(Equal(2))
			Expect(decisionFor(decisions, approverC.ID).Position).To(Equal(3))
		})

		It("should refuse a second pending set for the same subject", func() {
			createSet(workflow.ModeParallel, approverA.ID)

			_, err := svc.CreateDecisionSet(context.Background(), creator, workflow.CreateDecisionSetDTO{
				SubjectKind: string(workflow.SubjectDocument),
				SubjectID:   100,
				Mode:        string(workflow.ModeParallel),
				ApproverIDs: []int64{approverB.ID},
			})
			Expect(err).To(HaveOccurred())
		})

		It("should allow a new set once the previous one completed", func() {
			_, decisions := createSet(workflow.ModeParallel, approverA.ID)
			Expect(approve(approverA, decisions[0].ID)).To(Succeed())

			_, err := svc.CreateDecisionSet(context.Background(), creator, workflow.CreateDecisionSetDTO{
				SubjectKind: string(workflow.SubjectDocument),
				SubjectID:   100,
				Mode:        string(workflow.ModeParallel),
				ApproverIDs: []int64{approverB.ID},
			})
			Expect(err).ToNot(HaveOccurred())
		})

		It("should reject duplicate approvers", func() {
			_, err := svc.CreateDecisionSet(context.Background(), creator, workflow.CreateDecisionSetDTO{
				SubjectKind: string(workflow.SubjectDocument),
				SubjectID:   100,
				Mode:        string(workflow.ModeParallel),
				ApproverIDs: []int64{approverA.ID, approverA.ID},
			})
			Expect(err).To(HaveOccurred())
		})

		It("should refuse a set that lists the subject owner as approver", func() {
			_, err := svc.CreateDecisionSet(context.Background(), creator, workflow.CreateDecisionSetDTO{
				SubjectKind: string(workflow.SubjectDocument),
				SubjectID:   100,
				Mode:        string(workflow.ModeParallel),
				ApproverIDs: []int64{subjectOwner.ID, approverA.ID},
			})
			Expect(errors.Is(err, internal.ErrSelfApproval)).To(BeTrue())
		})

		It("should record the capacity each approver decides in", func() {
			set, err := svc.CreateDecisionSet(context.Background(), creator, workflow.CreateDecisionSetDTO{
				SubjectKind: string(workflow.SubjectDocument),
				SubjectID:   100,
				Mode:        string(workflow.ModeSequential),
				ApproverIDs: []int64{approverA.ID, approverB.ID},
				Roles:       []string{workflow.DecisionRoleReviewer, workflow.DecisionRoleApprover},
			})
			Expect(err).ToNot(HaveOccurred())

			decisions, err := repo.ListDecisions(context.Background(), set.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(decisionFor(decisions, approverA.ID).DecisionRole).To(Equal(workflow.DecisionRoleReviewer))
			Expect(decisionFor(decisions, approverB.ID).DecisionRole).To(Equal(workflow.DecisionRoleApprover))
		})

		It("should default unnamed positions to the approver capacity", func() {
			_, decisions := createSet(workflow.ModeParallel, approverA.ID)
			Expect(decisions[0].DecisionRole).To(Equal(workflow.DecisionRoleApprover))
		})

		It("should reject roles that do not line up with the approvers", func() {
			_, err := svc.CreateDecisionSet(context.Background(), creator, workflow.CreateDecisionSetDTO{
				SubjectKind: string(workflow.SubjectDocument),
				SubjectID:   100,
				Mode:        string(workflow.ModeParallel),
				ApproverIDs: []int64{approverA.ID, approverB.ID},
				Roles:       []string{workflow.DecisionRoleReviewer},
			})
			Expect(err).To(HaveOccurred())

			_, err = svc.CreateDecisionSet(context.Background(), creator, workflow.CreateDecisionSetDTO{
				SubjectKind: string(workflow.SubjectDocument),
				SubjectID:   100,
				Mode:        string(workflow.ModeParallel),
				ApproverIDs: []int64{approverA.ID},
				Roles:       []string{"owner"},
			})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("RecordDecision", func() {
		It("should only accept the assigned approver", func() {
			_, decisions := createSet(workflow.ModeParallel, approverA.ID)

			err := approve(approverB, decisions[0].ID)
			Expect(errors.Is(err, internal.ErrAccessDenied)).To(BeTrue())
		})

		It("should reject a duplicate decision with AlreadyDecided", func() {
			_, decisions := createSet(workflow.ModeParallel, approverA.ID, approverB.ID)
			d := decisionFor(decisions, approverA.ID)

			Expect(approve(approverA, d.ID)).To(Succeed())
			err := approve(approverA, d.ID)
			Expect(errors.Is(err, internal.ErrAlreadyDecided)).To(BeTrue())
		})

		It("should return DecisionNotFound for an unknown decision", func() {
			err := approve(approverA, 9999)
			Expect(errors.Is(err, internal.ErrDecisionNotFound)).To(BeTrue())
		})

		It("should require notes on rejection", func() {
			_, decisions := createSet(workflow.ModeParallel, approverA.ID)
			_, err := svc.RecordDecision(context.Background(), approverA, decisions[0].ID, workflow.RecordDecisionDTO{
				Status: string(workflow.DecisionRejected),
			})
			Expect(err).To(HaveOccurred())
		})

		It("should require notes on a request for changes", func() {
			_, decisions := createSet(workflow.ModeParallel, approverA.ID)
			_, err := svc.RecordDecision(context.Background(), approverA, decisions[0].ID, workflow.RecordDecisionDTO{
				Status: string(workflow.DecisionChangesRequested),
			})
			Expect(err).To(HaveOccurred())
		})

		It("should refuse the subject owner's decision even on a pre-seeded set", func() {
			// A set can end up naming the owner, for example after an
			// ownership change. The owner still must not decide it.
			set := &workflow.DecisionSet{
				SubjectKind: workflow.SubjectDocument,
				SubjectID:   100,
				Mode:        workflow.ModeParallel,
				Outcome:     workflow.OutcomePending,
				CreatedBy:   creator.ID,
			}
			decisions := []*workflow.Decision{
				{ApproverID: subjectOwner.ID, DecisionRole: workflow.DecisionRoleApprover, Position: 1, Status: workflow.DecisionPending},
				{ApproverID: approverA.ID, DecisionRole: workflow.DecisionRoleApprover, Position: 2, Status: workflow.DecisionPending},
			}
			Expect(repo.CreateSet(context.Background(), set, decisions)).To(Succeed())

			err := approve(subjectOwner, decisions[0].ID)
			Expect(errors.Is(err, internal.ErrSelfApproval)).To(BeTrue())

			// The owner's answer was not recorded and nothing fired downstream.
			stored, _ := repo.GetDecision(context.Background(), decisions[0].ID)
			Expect(stored.Status).To(Equal(workflow.DecisionPending))
			Expect(transitioner.calls).To(Equal(0))
		})

		Context("sequential mode", func() {
			It("should reject decisions ahead of an unapproved predecessor", func() {
				_, decisions := createSet(workflow.ModeSequential, approverA.ID, approverB.ID)
				second := decisionFor(decisions, approverB.ID)

				err := approve(approverB, second.ID)
				Expect(errors.Is(err, internal.ErrOutOfOrderDecision)).To(BeTrue())
			})

			It("should accept decisions in order", func() {
				_, decisions := createSet(workflow.ModeSequential, approverA.ID, approverB.ID)

				Expect(approve(approverA, decisionFor(decisions, approverA.ID).ID)).To(Succeed())
				Expect(approve(approverB, decisionFor(decisions, approverB.ID).ID)).To(Succeed())
			})
		})

		Context("parallel mode", func() {
			It("should accept decisions in any order", func() {
				_, decisions := createSet(workflow.ModeParallel, approverA.ID, approverB.ID)

				Expect(approve(approverB, decisionFor(decisions, approverB.ID).ID)).To(Succeed())
				Expect(approve(approverA, decisionFor(decisions, approverA.ID).ID)).To(Succeed())
			})
		})
	})

	Describe("completion", func() {
		It("should fire the downstream transition once on unanimous approval", func() {
			_, decisions := createSet(workflow.ModeParallel, approverA.ID, approverB.ID)

			Expect(approve(approverA, decisionFor(decisions, approverA.ID).ID)).To(Succeed())
			Expect(transitioner.calls).To(Equal(0))

			Expect(approve(approverB, decisionFor(decisions, approverB.ID).ID)).To(Succeed())
			Expect(transitioner.calls).To(Equal(1))
			Expect(transitioner.approved[0]).To(BeTrue())
		})

		It("should apply a rejected outcome downstream", func() {
			_, decisions := createSet(workflow.ModeParallel, approverA.ID, approverB.ID)

			Expect(approve(approverA, decisionFor(decisions, approverA.ID).ID)).To(Succeed())
			Expect(reject(approverB, decisionFor(decisions, approverB.ID).ID)).To(Succeed())

			Expect(transitioner.calls).To(Equal(1))
			Expect(transitioner.approved[0]).To(BeFalse())
		})

		It("should complete a set as denied on a request for changes", func() {
			_, decisions := createSet(workflow.ModeParallel, approverA.ID, approverB.ID)

			Expect(approve(approverA, decisionFor(decisions, approverA.ID).ID)).To(Succeed())
			_, err := svc.RecordDecision(context.Background(), approverB, decisionFor(decisions, approverB.ID).ID, workflow.RecordDecisionDTO{
				Status: string(workflow.DecisionChangesRequested),
				Notes:  "tighten section 3",
			})
			Expect(err).ToNot(HaveOccurred())

			Expect(transitioner.calls).To(Equal(1))
			Expect(transitioner.approved[0]).To(BeFalse())
		})

		It("should not fire downstream when the completion claim is lost", func() {
			_, decisions := createSet(workflow.ModeParallel, approverA.ID)
			repo.forceCompleteFail = true

			Expect(approve(approverA, decisions[0].ID)).To(Succeed())
			Expect(transitioner.calls).To(Equal(0))
		})

		It("should record the outcome on the set", func() {
			set, decisions := createSet(workflow.ModeParallel, approverA.ID)
			Expect(approve(approverA, decisions[0].ID)).To(Succeed())

			stored, err := repo.GetSet(context.Background(), set.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(stored.Outcome).To(Equal(workflow.OutcomeApproved))
			Expect(stored.CompletedAt).ToNot(BeNil())
		})

		It("should refuse decisions on an already completed set", func() {
			_, decisions := createSet(workflow.ModeParallel, approverA.ID, approverB.ID)
			Expect(approve(approverA, decisionFor(decisions, approverA.ID).ID)).To(Succeed())
			Expect(reject(approverB, decisionFor(decisions, approverB.ID).ID)).To(Succeed())

			// Both decided, set rejected; nothing left to decide.
			err := approve(approverA, decisionFor(decisions, approverA.ID).ID)
			Expect(errors.Is(err, internal.ErrAlreadyDecided)).To(BeTrue())
		})
	})

	Describe("IsApproved", func() {
		It("should report unanimous approval of the latest set", func() {
			_, decisions := createSet(workflow.ModeParallel, approverA.ID)
			Expect(approve(approverA, decisions[0].ID)).To(Succeed())

			approved, err := svc.IsApproved(context.Background(), workflow.SubjectDocument, 100)
			Expect(err).ToNot(HaveOccurred())
			Expect(approved).To(BeTrue())
		})
	})
})
