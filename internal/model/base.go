package model

import "github.com/google/uuid"

// ensureID проставляет UUID до INSERT. Генерация на стороне Go, а не
// через default:gen_random_uuid(), чтобы схема поднималась и на sqlite.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
