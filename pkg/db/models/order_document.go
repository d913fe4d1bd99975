package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderDocument references an uploaded manifest or delivery document. The
// upload pipeline itself lives outside this core; only the reference is kept.
type OrderDocument struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`

	Kind string `gorm:"column:kind;type:order_document_kind;not null"`
	URL  string `gorm:"column:url;not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (OrderDocument) TableName() string { return "order_documents" }

// Order document kinds.
const (
	OrderDocumentKindManifest = "manifest"
	OrderDocumentKindDelivery = "delivery"
)
