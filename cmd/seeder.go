package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample users, directories, documents and grants for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		deps, err := initializeDependencies()
		if err != nil {
			log.Fatalf("failed to initialize dependencies: %v", err)
		}
		db := deps.GormDB

		if clearData {
			for _, table := range []string{
				"audit_entries", "decision_records", "decision_sets",
				"change_requests", "permission_grants", "document_versions",
				"documents", "directories", "users",
			} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear table %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		password := "password"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

		users := []struct {
			Email string
			Name  string
			Role  string
		}{
			{"owner@mail.com", "Olivia Owner", "employee"},
			{"reviewer@mail.com", "Rafi Reviewer", "employee"},
			{"approver@mail.com", "Ayu Approver", "employee"},
			{"manager@mail.com", "Maya Manager", "manager"},
			{"admin@mail.com", "Adi Admin", "admin"},
		}

		ids := make(map[string]int64, len(users))
		for _, u := range users {
			var id int64
			row := db.Raw("SELECT id FROM users WHERE email = ?", u.Email).Row()
			if err := row.Scan(&id); err == nil {
				ids[u.Email] = id
				fmt.Printf("user %s already exists\n", u.Email)
				continue
			}
			err := db.Exec(
				"INSERT INTO users (email, name, password_hash, role, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, true, now(), now())",
				u.Email, u.Name, string(hash), u.Role,
			).Error
			if err != nil {
				log.Fatalf("failed to insert user %s: %v", u.Email, err)
			}
			if err := db.Raw("SELECT id FROM users WHERE email = ?", u.Email).Row().Scan(&id); err != nil {
				log.Fatalf("failed to lookup user %s: %v", u.Email, err)
			}
			ids[u.Email] = id
			fmt.Printf("Seeded user: %s (%s)\n", u.Email, u.Role)
		}

		// A small tree: policies/ with a quality/ child.
		var rootDirID int64
		if err := db.Raw("SELECT id FROM directories WHERE name = ? AND parent_id IS NULL", "policies").Row().Scan(&rootDirID); err != nil {
			if err := db.Exec(
				"INSERT INTO directories (name, parent_id, created_by, created_at, updated_at) VALUES (?, NULL, ?, now(), now())",
				"policies", ids["admin@mail.com"],
			).Error; err != nil {
				log.Fatalf("failed to insert root directory: %v", err)
			}
			if err := db.Raw("SELECT id FROM directories WHERE name = ? AND parent_id IS NULL", "policies").Row().Scan(&rootDirID); err != nil {
				log.Fatalf("failed to lookup root directory: %v", err)
			}
			fmt.Println("Seeded directory: policies")
		}

		var qualityDirID int64
		if err := db.Raw("SELECT id FROM directories WHERE name = ? AND parent_id = ?", "quality", rootDirID).Row().Scan(&qualityDirID); err != nil {
			if err := db.Exec(
				"INSERT INTO directories (name, parent_id, created_by, created_at, updated_at) VALUES (?, ?, ?, now(), now())",
				"quality", rootDirID, ids["admin@mail.com"],
			).Error; err != nil {
				log.Fatalf("failed to insert quality directory: %v", err)
			}
			if err := db.Raw("SELECT id FROM directories WHERE name = ? AND parent_id = ?", "quality", rootDirID).Row().Scan(&qualityDirID); err != nil {
				log.Fatalf("failed to lookup quality directory: %v", err)
			}
			fmt.Println("Seeded directory: policies/quality")
		}

		// Directory-level grants exercise the inheritance path: reviewer and
		// approver standing on the whole subtree.
		grants := []struct {
			Kind       string
			ResourceID int64
			UserEmail  string
			FineRole   string
		}{
			{"directory", rootDirID, "reviewer@mail.com", "reviewer"},
			{"directory", rootDirID, "approver@mail.com", "approver"},
			{"directory", qualityDirID, "owner@mail.com", "viewer"},
		}
		for _, g := range grants {
			var exists int
			row := db.Raw(
				"SELECT 1 FROM permission_grants WHERE resource_kind = ? AND resource_id = ? AND user_id = ?",
				g.Kind, g.ResourceID, ids[g.UserEmail],
			).Row()
			if err := row.Scan(&exists); err == nil {
				continue
			}
			if err := db.Exec(
				"INSERT INTO permission_grants (resource_kind, resource_id, user_id, fine_role, granted_by, granted_at) VALUES (?, ?, ?, ?, ?, now())",
				g.Kind, g.ResourceID, ids[g.UserEmail], g.FineRole, ids["admin@mail.com"],
			).Error; err != nil {
				log.Fatalf("failed to insert grant for %s: %v", g.UserEmail, err)
			}
			fmt.Printf("Seeded grant: %s on %s/%d -> %s\n", g.FineRole, g.Kind, g.ResourceID, g.UserEmail)
		}

		var docID int64
		if err := db.Raw("SELECT id FROM documents WHERE title = ?", "Quality Manual").Row().Scan(&docID); err != nil {
			if err := db.Exec(
				"INSERT INTO documents (title, status, directory_id, owner_id, created_at, updated_at) VALUES (?, 'draft', ?, ?, now(), now())",
				"Quality Manual", qualityDirID, ids["owner@mail.com"],
			).Error; err != nil {
				log.Fatalf("failed to insert document: %v", err)
			}
			if err := db.Raw("SELECT id FROM documents WHERE title = ?", "Quality Manual").Row().Scan(&docID); err != nil {
				log.Fatalf("failed to lookup document: %v", err)
			}
			if err := db.Exec(
				"INSERT INTO document_versions (document_id, version_number, content_hash, created_by, created_at) VALUES (?, 1, ?, ?, now())",
				docID, "seed00000001", ids["owner@mail.com"],
			).Error; err != nil {
				log.Fatalf("failed to insert document version: %v", err)
			}
			if err := db.Exec(
				"UPDATE documents SET current_version_id = (SELECT id FROM document_versions WHERE document_id = ? AND version_number = 1) WHERE id = ?",
				docID, docID,
			).Error; err != nil {
				log.Fatalf("failed to point current version: %v", err)
			}
			fmt.Println("Seeded document: Quality Manual (draft, v1)")
		}

		fmt.Println("Seeding complete. All users share the password:", password)
	},
}
