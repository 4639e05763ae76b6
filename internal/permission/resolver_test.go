package permission

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type grantKey struct {
	kind       ResourceKind
	resourceID int64
	userID     int64
}

// Mock grant store with an in-memory tree
type mockGrantStore struct {
	grants       map[grantKey]*Grant
	docDirectory map[int64]*int64
	dirParent    map[int64]*int64

	grantError error
	treeError  error
	grantCalls int
}

func newMockGrantStore() *mockGrantStore {
	return &mockGrantStore{
		grants:       make(map[grantKey]*Grant),
		docDirectory: make(map[int64]*int64),
		dirParent:    make(map[int64]*int64),
	}
}

func (m *mockGrantStore) addGrant(kind ResourceKind, resourceID, userID int64, role FineRole) {
	m.grants[grantKey{kind, resourceID, userID}] = &Grant{
		ResourceKind: kind,
		ResourceID:   resourceID,
		UserID:       userID,
		FineRole:     role,
	}
}

func (m *mockGrantStore) GetGrant(_ context.Context, kind ResourceKind, resourceID, userID int64) (*Grant, error) {
	m.grantCalls++
	if m.grantError != nil {
		return nil, m.grantError
	}
	return m.grants[grantKey{kind, resourceID, userID}], nil
}

func (m *mockGrantStore) UpsertGrant(_ context.Context, grant *Grant) error {
	if m.grantError != nil {
		return m.grantError
	}
	m.grants[grantKey{grant.ResourceKind, grant.ResourceID, grant.UserID}] = grant
	return nil
}

func (m *mockGrantStore) DeleteGrant(_ context.Context, kind ResourceKind, resourceID, userID int64) error {
	if m.grantError != nil {
		return m.grantError
	}
	delete(m.grants, grantKey{kind, resourceID, userID})
	return nil
}

func (m *mockGrantStore) ListGrantsForResource(_ context.Context, kind ResourceKind, resourceID int64) ([]*Grant, error) {
	if m.grantError != nil {
		return nil, m.grantError
	}
	var result []*Grant
	for key, g := range m.grants {
		if key.kind == kind && key.resourceID == resourceID {
			result = append(result, g)
		}
	}
	return result, nil
}

func (m *mockGrantStore) DocumentDirectory(_ context.Context, documentID int64) (*int64, error) {
	if m.treeError != nil {
		return nil, m.treeError
	}
	return m.docDirectory[documentID], nil
}

func (m *mockGrantStore) DirectoryParent(_ context.Context, directoryID int64) (*int64, error) {
	if m.treeError != nil {
		return nil, m.treeError
	}
	return m.dirParent[directoryID], nil
}

func ptr(v int64) *int64 { return &v }

var _ = Describe("Resolver", func() {
	var (
		store    *mockGrantStore
		resolver *Resolver
	)

	BeforeEach(func() {
		store = newMockGrantStore()
		resolver = NewResolver(store, DefaultMaxDepth, testLogger())

		// directory 3 -> directory 2 -> directory 1 (root), document 100 in 3
		store.dirParent[1] = nil
		store.dirParent[2] = ptr(1)
		store.dirParent[3] = ptr(2)
		store.docDirectory[100] = ptr(3)
	})

	Context("direct grants", func() {
		It("should return the direct grant on the document", func() {
			store.addGrant(KindDocument, 100, 10, FineRoleApprover)

			role, found, err := resolver.Resolve(context.Background(), KindDocument, 100, 10)
			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(role).To(Equal(FineRoleApprover))
		})

		It("should let a lower direct grant shadow a higher inherited one", func() {
			store.addGrant(KindDocument, 100, 10, FineRoleViewer)
			store.addGrant(KindDirectory, 1, 10, FineRoleOwner)

			role, found, err := resolver.Resolve(context.Background(), KindDocument, 100, 10)
			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(role).To(Equal(FineRoleViewer))
		})
	})

	Context("inherited grants", func() {
		It("should find a grant on the containing directory", func() {
			store.addGrant(KindDirectory, 3, 10, FineRoleReviewer)

			role, found, err := resolver.Resolve(context.Background(), KindDocument, 100, 10)
			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(role).To(Equal(FineRoleReviewer))
		})

		It("should walk all the way to the root", func() {
			store.addGrant(KindDirectory, 1, 10, FineRoleViewer)

			role, found, err := resolver.Resolve(context.Background(), KindDocument, 100, 10)
			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(role).To(Equal(FineRoleViewer))
		})

		It("should stop at the nearest directory holding a grant", func() {
			store.addGrant(KindDirectory, 2, 10, FineRoleApprover)
			store.addGrant(KindDirectory, 1, 10, FineRoleViewer)

			role, found, err := resolver.Resolve(context.Background(), KindDocument, 100, 10)
			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(role).To(Equal(FineRoleApprover))
		})

		It("should resolve directory resources through their own ancestry", func() {
			store.addGrant(KindDirectory, 1, 10, FineRoleReviewer)

			role, found, err := resolver.Resolve(context.Background(), KindDirectory, 3, 10)
			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(role).To(Equal(FineRoleReviewer))
		})
	})

	Context("no grant anywhere", func() {
		It("should report not found without error", func() {
			_, found, err := resolver.Resolve(context.Background(), KindDocument, 100, 10)
			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeFalse())
		})
	})

	Context("pathological trees", func() {
		It("should stop at the depth bound and report not found", func() {
			// Chain of 60 directories, document at the bottom, grant at the top.
			for i := int64(10); i < 70; i++ {
				store.dirParent[i+1] = ptr(i)
			}
			store.dirParent[10] = nil
			store.docDirectory[200] = ptr(70)
			store.addGrant(KindDirectory, 10, 10, FineRoleOwner)

			shallow := NewResolver(store, 50, testLogger())
			_, found, err := shallow.Resolve(context.Background(), KindDocument, 200, 10)
			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeFalse())
		})

		It("should detect ancestry cycles and report not found", func() {
			store.dirParent[8] = ptr(9)
			store.dirParent[9] = ptr(8)
			store.docDirectory[300] = ptr(8)

			_, found, err := resolver.Resolve(context.Background(), KindDocument, 300, 10)
			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeFalse())
		})
	})

	Context("store failures", func() {
		It("should surface lookup errors instead of silently denying", func() {
			store.grantError = errors.New("connection refused")

			_, _, err := resolver.Resolve(context.Background(), KindDocument, 100, 10)
			Expect(err).To(HaveOccurred())
		})

		It("should surface ancestry lookup errors", func() {
			store.treeError = errors.New("connection refused")

			_, _, err := resolver.Resolve(context.Background(), KindDocument, 100, 10)
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("FineRole", func() {
	It("should order owner above approver above reviewer above viewer", func() {
		Expect(FineRoleOwner.AtLeast(FineRoleApprover)).To(BeTrue())
		Expect(FineRoleApprover.AtLeast(FineRoleReviewer)).To(BeTrue())
		Expect(FineRoleReviewer.AtLeast(FineRoleViewer)).To(BeTrue())
		Expect(FineRoleViewer.AtLeast(FineRoleReviewer)).To(BeFalse())
		Expect(FineRoleReviewer.AtLeast(FineRoleApprover)).To(BeFalse())
	})

	It("should reject unknown role names", func() {
		Expect(FineRole("editor").Valid()).To(BeFalse())
		Expect(FineRoleOwner.Valid()).To(BeTrue())
	})
})
