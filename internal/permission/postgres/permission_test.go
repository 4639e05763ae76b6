package permission

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	directoryDatamodel "github.com/frahmantamala/document-management/internal/core/datamodel/directory"
	documentDatamodel "github.com/frahmantamala/document-management/internal/core/datamodel/document"
	permissionDatamodel "github.com/frahmantamala/document-management/internal/core/datamodel/permission"
	"github.com/frahmantamala/document-management/internal/permission"
)

func TestPermissionRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "PermissionRepository Suite")
}

var _ = Describe("PermissionRepository", func() {
	var (
		db   *gorm.DB
		repo *Repository
		ctx  context.Context
	)

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(
			&permissionDatamodel.PermissionGrant{},
			&documentDatamodel.Document{},
			&directoryDatamodel.Directory{},
		)
		Expect(err).NotTo(HaveOccurred())

		repo = NewRepository(db)
		ctx = context.Background()
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	upsert := func(kind permission.ResourceKind, resourceID, userID int64, role permission.FineRole) *permission.Grant {
		grant := &permission.Grant{
			ResourceKind: kind,
			ResourceID:   resourceID,
			UserID:       userID,
			FineRole:     role,
			GrantedBy:    1,
		}
		Expect(repo.UpsertGrant(ctx, grant)).To(Succeed())
		return grant
	}

	Describe("GetGrant", func() {
		It("should return nil without error when no grant exists", func() {
			grant, err := repo.GetGrant(ctx, permission.KindDocument, 1, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(grant).To(BeNil())
		})

		It("should return the stored grant", func() {
			upsert(permission.KindDocument, 1, 10, permission.FineRoleReviewer)

			grant, err := repo.GetGrant(ctx, permission.KindDocument, 1, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(grant).NotTo(BeNil())
			Expect(grant.FineRole).To(Equal(permission.FineRoleReviewer))
		})
	})

	Describe("UpsertGrant", func() {
		It("should keep a single row per resource and user, last write wins", func() {
			upsert(permission.KindDocument, 1, 10, permission.FineRoleViewer)
			upsert(permission.KindDocument, 1, 10, permission.FineRoleApprover)

			var count int64
			Expect(db.Model(&permissionDatamodel.PermissionGrant{}).Count(&count).Error).To(Succeed())
			Expect(count).To(Equal(int64(1)))

			grant, err := repo.GetGrant(ctx, permission.KindDocument, 1, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(grant.FineRole).To(Equal(permission.FineRoleApprover))
		})

		It("should keep grants for different users separate", func() {
			upsert(permission.KindDocument, 1, 10, permission.FineRoleViewer)
			upsert(permission.KindDocument, 1, 11, permission.FineRoleOwner)

			grants, err := repo.ListGrantsForResource(ctx, permission.KindDocument, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(grants).To(HaveLen(2))
		})
	})

	Describe("DeleteGrant", func() {
		It("should remove the grant", func() {
			upsert(permission.KindDirectory, 5, 10, permission.FineRoleReviewer)

			Expect(repo.DeleteGrant(ctx, permission.KindDirectory, 5, 10)).To(Succeed())

			grant, err := repo.GetGrant(ctx, permission.KindDirectory, 5, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(grant).To(BeNil())
		})

		It("should tolerate deleting a missing grant", func() {
			Expect(repo.DeleteGrant(ctx, permission.KindDirectory, 5, 99)).To(Succeed())
		})
	})

	Describe("ancestry queries", func() {
		It("should return a document's directory", func() {
			dirID := int64(3)
			Expect(db.Create(&documentDatamodel.Document{
				Title: "Doc", Status: "draft", OwnerID: 1, DirectoryID: &dirID,
			}).Error).To(Succeed())

			var doc documentDatamodel.Document
			Expect(db.First(&doc).Error).To(Succeed())

			got, err := repo.DocumentDirectory(ctx, doc.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).NotTo(BeNil())
			Expect(*got).To(Equal(dirID))
		})

		It("should return nil for a root-level document", func() {
			Expect(db.Create(&documentDatamodel.Document{
				Title: "Root doc", Status: "draft", OwnerID: 1,
			}).Error).To(Succeed())

			var doc documentDatamodel.Document
			Expect(db.First(&doc).Error).To(Succeed())

			got, err := repo.DocumentDirectory(ctx, doc.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeNil())
		})

		It("should walk directory parents", func() {
			parent := directoryDatamodel.Directory{Name: "policies", CreatedBy: 1}
			Expect(db.Create(&parent).Error).To(Succeed())
			child := directoryDatamodel.Directory{Name: "quality", ParentID: &parent.ID, CreatedBy: 1}
			Expect(db.Create(&child).Error).To(Succeed())

			got, err := repo.DirectoryParent(ctx, child.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).NotTo(BeNil())
			Expect(*got).To(Equal(parent.ID))

			got, err = repo.DirectoryParent(ctx, parent.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeNil())
		})

		It("should error for a missing document", func() {
			_, err := repo.DocumentDirectory(ctx, 9999)
			Expect(err).To(HaveOccurred())
		})
	})
})
