package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// ProductUnknown is the display sentinel for mentions whose product row is
// missing or unreadable.
const ProductUnknown = "Producto desconocido"

// ProductType is a catalog product tracked for mention extraction.
// Name is unique; uniqueness is checked before insert and backstopped by a
// unique index.
type ProductType struct {
	ID          surrealmodels.RecordID `json:"id"`
	Name        string                 `json:"name"`
	Description *string                `json:"description,omitempty"`
	Keywords    []string               `json:"keywords"`
	CreatedAt   time.Time              `json:"created_at"`
}

// ProductMention is a detected reference to a catalog product within a
// conversation message, with surrounding text context. Lifecycle is tied to
// message ingestion.
type ProductMention struct {
	ID           surrealmodels.RecordID `json:"id"`
	Product      surrealmodels.RecordID `json:"product"`
	Conversation surrealmodels.RecordID `json:"conversation"`
	Message      surrealmodels.RecordID `json:"message"`
	Context      string                 `json:"context"`
	CreatedAt    time.Time              `json:"created_at"`
}
