// Copyright (c) 2026 Nexus. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # User Roles

// UserRole represents the organisation-wide role granted to an account.
type UserRole string

const (
	// Unrestricted system access
	RoleAdmin UserRole = "admin"

	// Owns projects and manages their membership
	RoleProjectManager UserRole = "project_manager"

	// Default role assigned at signup
	RoleDeveloper UserRole = "developer"

	// Files and verifies issues
	RoleTester UserRole = "tester"

	// Read-only access
	RoleViewer UserRole = "viewer"
)
