package permission

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/document-management/internal"
	"github.com/frahmantamala/document-management/internal/audit"
	"github.com/frahmantamala/document-management/internal/auth"
)

type spyEmitter struct {
	actions []audit.Action
}

func (s *spyEmitter) Record(_ int64, action audit.Action, _ *int64, _ map[string]any) {
	s.actions = append(s.actions, action)
}

var _ = Describe("PermissionService", func() {
	var (
		store   *mockGrantStore
		cache   *Cache
		svc     *Service
		auditor *spyEmitter

		manager  *auth.User
		employee *auth.User
	)

	BeforeEach(func() {
		store = newMockGrantStore()
		cache = NewCache(5*time.Minute, 10*time.Minute, testLogger())
		auditor = &spyEmitter{}
		resolver := NewResolver(store, DefaultMaxDepth, testLogger())
		svc = NewService(store, resolver, cache, auditor, 3*time.Second, testLogger())

		manager = &auth.User{ID: 1, Email: "manager@example.com", Role: auth.RoleManager}
		employee = &auth.User{ID: 2, Email: "employee@example.com", Role: auth.RoleEmployee}

		store.dirParent[1] = nil
		store.docDirectory[100] = ptr(1)
	})

	Describe("Resolve", func() {
		It("should cache positive resolutions", func() {
			store.addGrant(KindDocument, 100, 10, FineRoleReviewer)

			role, found, err := svc.Resolve(context.Background(), KindDocument, 100, 10)
			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(role).To(Equal(FineRoleReviewer))

			callsAfterFirst := store.grantCalls
			_, _, err = svc.Resolve(context.Background(), KindDocument, 100, 10)
			Expect(err).ToNot(HaveOccurred())
			Expect(store.grantCalls).To(Equal(callsAfterFirst))
		})

		It("should cache negative resolutions so absent grants skip the walk", func() {
			_, found, err := svc.Resolve(context.Background(), KindDocument, 100, 10)
			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeFalse())

			callsAfterFirst := store.grantCalls
			_, found, err = svc.Resolve(context.Background(), KindDocument, 100, 10)
			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeFalse())
			Expect(store.grantCalls).To(Equal(callsAfterFirst))
		})

		It("should report store failures as ResolutionUnavailable and not cache them", func() {
			store.grantError = errors.New("connection refused")

			_, _, err := svc.Resolve(context.Background(), KindDocument, 100, 10)
			Expect(errors.Is(err, internal.ErrResolutionUnavailable)).To(BeTrue())
			Expect(cache.Len()).To(Equal(0))

			store.grantError = nil
			store.addGrant(KindDocument, 100, 10, FineRoleViewer)
			role, found, err := svc.Resolve(context.Background(), KindDocument, 100, 10)
			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(role).To(Equal(FineRoleViewer))
		})
	})

	Describe("HasAtLeast", func() {
		It("should honor the role order", func() {
			store.addGrant(KindDocument, 100, 10, FineRoleApprover)

			Expect(svc.HasAtLeast(context.Background(), KindDocument, 100, 10, FineRoleReviewer)).To(BeTrue())
			Expect(svc.HasAtLeast(context.Background(), KindDocument, 100, 10, FineRoleOwner)).To(BeFalse())
		})

		It("should fail closed when resolution is unavailable", func() {
			store.grantError = errors.New("connection refused")
			Expect(svc.HasAtLeast(context.Background(), KindDocument, 100, 10, FineRoleViewer)).To(BeFalse())
		})
	})

	Describe("Grant", func() {
		It("should let a manager grant and invalidate the cached entry", func() {
			// Prime a stale negative entry for the grantee.
			_, found, err := svc.Resolve(context.Background(), KindDocument, 100, 10)
			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeFalse())

			_, err = svc.Grant(context.Background(), manager, GrantDTO{
				ResourceKind: string(KindDocument),
				ResourceID:   100,
				UserID:       10,
				FineRole:     string(FineRoleReviewer),
			})
			Expect(err).ToNot(HaveOccurred())

			role, found, err := svc.Resolve(context.Background(), KindDocument, 100, 10)
			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(role).To(Equal(FineRoleReviewer))
			Expect(auditor.actions).To(ContainElement(audit.ActionPermissionGrant))
		})

		It("should clear the whole cache on a directory grant", func() {
			store.addGrant(KindDocument, 100, 10, FineRoleViewer)
			_, _, err := svc.Resolve(context.Background(), KindDocument, 100, 10)
			Expect(err).ToNot(HaveOccurred())
			Expect(cache.Len()).To(Equal(1))

			_, err = svc.Grant(context.Background(), manager, GrantDTO{
				ResourceKind: string(KindDirectory),
				ResourceID:   1,
				UserID:       11,
				FineRole:     string(FineRoleReviewer),
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(cache.Len()).To(Equal(0))
		})

		It("should let a resource owner grant without a coarse role", func() {
			store.addGrant(KindDocument, 100, employee.ID, FineRoleOwner)

			_, err := svc.Grant(context.Background(), employee, GrantDTO{
				ResourceKind: string(KindDocument),
				ResourceID:   100,
				UserID:       10,
				FineRole:     string(FineRoleViewer),
			})
			Expect(err).ToNot(HaveOccurred())
		})

		It("should deny anyone below manager without the owner fine role", func() {
			_, err := svc.Grant(context.Background(), employee, GrantDTO{
				ResourceKind: string(KindDocument),
				ResourceID:   100,
				UserID:       10,
				FineRole:     string(FineRoleViewer),
			})
			Expect(errors.Is(err, internal.ErrAccessDenied)).To(BeTrue())
		})

		It("should reject an unknown fine role", func() {
			_, err := svc.Grant(context.Background(), manager, GrantDTO{
				ResourceKind: string(KindDocument),
				ResourceID:   100,
				UserID:       10,
				FineRole:     "editor",
			})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Revoke", func() {
		It("should remove the grant and its cached entry", func() {
			store.addGrant(KindDocument, 100, 10, FineRoleReviewer)
			_, _, err := svc.Resolve(context.Background(), KindDocument, 100, 10)
			Expect(err).ToNot(HaveOccurred())

			err = svc.Revoke(context.Background(), manager, KindDocument, 100, 10)
			Expect(err).ToNot(HaveOccurred())

			_, found, err := svc.Resolve(context.Background(), KindDocument, 100, 10)
			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeFalse())
			Expect(auditor.actions).To(ContainElement(audit.ActionPermissionRevoke))
		})

		It("should treat revoking a missing grant as a no-op", func() {
			err := svc.Revoke(context.Background(), manager, KindDocument, 100, 99)
			Expect(err).ToNot(HaveOccurred())
		})
	})
})
