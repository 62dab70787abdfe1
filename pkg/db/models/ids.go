package models

import "github.com/google/uuid"

// ensureID assigns a fresh v4 id when the caller left it unset, so sqlite
// and postgres rows get ids without relying on gen_random_uuid().
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
