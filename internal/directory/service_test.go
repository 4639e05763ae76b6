package directory_test

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
	"github.com/frahmantamala/document-management/internal/directory"
)

func TestDirectoryService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Directory Suite")
}

// Mock directory repository
type mockDirectoryRepository struct {
	dirs   map[int64]*directory.Directory
	nextID int64
}

func newMockDirectoryRepository() *mockDirectoryRepository {
	return &mockDirectoryRepository{
		dirs:   make(map[int64]*directory.Directory),
		nextID: 1,
	}
}

func (m *mockDirectoryRepository) Create(_ context.Context, dir *directory.Directory) error {
	dir.ID = m.nextID
	m.nextID++
	dir.CreatedAt = time.Now()
	dir.UpdatedAt = time.Now()
	copied := *dir
	m.dirs[dir.ID] = &copied
	return nil
}

func (m *mockDirectoryRepository) GetByID(_ context.Context, id int64) (*directory.Directory, error) {
	dir, ok := m.dirs[id]
	if !ok {
		return nil, nil
	}
	copied := *dir
	return &copied, nil
}

func (m *mockDirectoryRepository) SetParent(_ context.Context, id int64, parentID *int64) error {
	dir, ok := m.dirs[id]
	if !ok {
		return errors.New("directory not found")
	}
	dir.ParentID = parentID
	return nil
}

func (m *mockDirectoryRepository) ListChildren(_ context.Context, parentID *int64) ([]*directory.Directory, error) {
	var result []*directory.Directory
	for _, dir := range m.dirs {
		if parentID == nil && dir.ParentID == nil {
			result = append(result, dir)
		} else if parentID != nil && dir.ParentID != nil && *dir.ParentID == *parentID {
			result = append(result, dir)
		}
	}
	return result, nil
}

// Spy cache counts clears
type spyCache struct {
	clears int
}

func (s *spyCache) Clear() { s.clears++ }

var _ = Describe("DirectoryService", func() {
	var (
		repo  *mockDirectoryRepository
		cache *spyCache
		svc   *directory.Service

		manager  *auth.User
		employee *auth.User
	)

	BeforeEach(func() {
		repo = newMockDirectoryRepository()
		cache = &spyCache{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		svc = directory.NewService(repo, cache, audit.NopEmitter{}, logger)

		manager = &auth.User{ID: 1, Role: auth.RoleManager}
		employee = &auth.User{ID: 2, Role: auth.RoleEmployee}
	})

	create := func(name string, parentID *int64) *directory.Directory {
		dir, err := svc.Create(context.Background(), manager, directory.CreateDirectoryDTO{
			Name:     name,
			ParentID: parentID,
		})
		Expect(err).ToNot(HaveOccurred())
		return dir
	}

	Describe("Create", func() {
		It("should create a root directory and clear the permission cache", func() {
			dir := create("policies", nil)
			Expect(dir.ParentID).To(BeNil())
			Expect(cache.clears).To(Equal(1))
		})

		It("should create nested directories", func() {
			root := create("policies", nil)
			child := create("quality", &root.ID)
			Expect(*child.ParentID).To(Equal(root.ID))
		})

		It("should reject an unknown parent", func() {
			missing := int64(42)
			_, err := svc.Create(context.Background(), manager, directory.CreateDirectoryDTO{
				Name:     "orphan",
				ParentID: &missing,
			})
			Expect(errors.Is(err, internal.ErrDirectoryNotFound)).To(BeTrue())
		})

		It("should deny tree mutations below manager", func() {
			_, err := svc.Create(context.Background(), employee, directory.CreateDirectoryDTO{Name: "nope"})
			Expect(errors.Is(err, internal.ErrAccessDenied)).To(BeTrue())
		})
	})

	Describe("Move", func() {
		It("should re-parent a directory and clear the permission cache", func() {
			root := create("policies", nil)
			other := create("archive", nil)
			child := create("quality", &root.ID)

			clearsBefore := cache.clears
			moved, err := svc.Move(context.Background(), manager, child.ID, directory.MoveDirectoryDTO{ParentID: &other.ID})
			Expect(err).ToNot(HaveOccurred())
			Expect(*moved.ParentID).To(Equal(other.ID))
			Expect(cache.clears).To(Equal(clearsBefore + 1))
		})

		It("should allow moving to the root", func() {
			root := create("policies", nil)
			child := create("quality", &root.ID)

			moved, err := svc.Move(context.Background(), manager, child.ID, directory.MoveDirectoryDTO{ParentID: nil})
			Expect(err).ToNot(HaveOccurred())
			Expect(moved.ParentID).To(BeNil())
		})

		It("should reject making a directory its own parent", func() {
			root := create("policies", nil)
			_, err := svc.Move(context.Background(), manager, root.ID, directory.MoveDirectoryDTO{ParentID: &root.ID})
			Expect(errors.Is(err, internal.ErrCircularReference)).To(BeTrue())
		})

		It("should reject a move under the directory's own descendant", func() {
			root := create("policies", nil)
			child := create("quality", &root.ID)
			grandchild := create("calibration", &child.ID)

			_, err := svc.Move(context.Background(), manager, root.ID, directory.MoveDirectoryDTO{ParentID: &grandchild.ID})
			Expect(errors.Is(err, internal.ErrCircularReference)).To(BeTrue())
		})

		It("should leave the tree untouched when the move is rejected", func() {
			root := create("policies", nil)
			child := create("quality", &root.ID)

			_, err := svc.Move(context.Background(), manager, root.ID, directory.MoveDirectoryDTO{ParentID: &child.ID})
			Expect(errors.Is(err, internal.ErrCircularReference)).To(BeTrue())

			stored, err := svc.Get(context.Background(), manager, root.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(stored.ParentID).To(BeNil())
		})

		It("should deny moves below manager", func() {
			root := create("policies", nil)
			_, err := svc.Move(context.Background(), employee, root.ID, directory.MoveDirectoryDTO{})
			Expect(errors.Is(err, internal.ErrAccessDenied)).To(BeTrue())
		})
	})

	Describe("ListChildren", func() {
		It("should list direct children only", func() {
			root := create("policies", nil)
			create("quality", &root.ID)
			child := create("ops", &root.ID)
			create("calibration", &child.ID)

			children, err := svc.ListChildren(context.Background(), employee, &root.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(children).To(HaveLen(2))
		})
	})
})
