// Copyright (c) 2026 Nexus. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package uuid generates the primary keys of Nexus records.

Identifiers are UUID version 7: time-ordered, so new account rows land at the
end of the B-tree index, and stored in PostgreSQL's native uuid type.
*/
package uuid

import "github.com/google/uuid"

// New generates a new UUIDv7 string.
//
// An entropy failure is unrecoverable, so it panics.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("uuid: failed to generate UUIDv7: " + err.Error())
	}
	return id.String()
}

// Valid reports whether s parses as a UUID of any version.
func Valid(s string) bool {
	return uuid.Validate(s) == nil
}
