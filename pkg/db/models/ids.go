package models

import "github.com/google/uuid"

// ensureID assigns a random id when the caller left it zero. Postgres carries a
// gen_random_uuid() default as well, this keeps inserts portable to SQLite.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
