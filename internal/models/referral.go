package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// The five fixed referral teams. A conversation escalates to exactly one of
// these; the set is closed and seeded at schema init.
const (
	ReferralAsesorComercial   = "Asesor Comercial"
	ReferralAtencionCliente   = "Atención al Cliente"
	ReferralSoporteTecnico    = "Soporte Técnico"
	ReferralPresupuestos      = "Presupuestos"
	ReferralColaboraciones    = "Colaboraciones"
)

// ReferralTypeNames lists the closed set in seed order.
var ReferralTypeNames = []string{
	ReferralAsesorComercial,
	ReferralAtencionCliente,
	ReferralSoporteTecnico,
	ReferralPresupuestos,
	ReferralColaboraciones,
}

// ReferralType is one of the five escalation targets with its contact
// metadata.
type ReferralType struct {
	ID    surrealmodels.RecordID `json:"id"`
	Name  string                 `json:"name"`
	Email string                 `json:"email,omitempty"`
	Phone string                 `json:"phone,omitempty"`
}

// Referral records an escalation of a conversation to a human team. Rows are
// created by server-side triggers on message insert and are read-only here.
type Referral struct {
	ID           surrealmodels.RecordID `json:"id"`
	Conversation surrealmodels.RecordID `json:"conversation"`
	ReferralType surrealmodels.RecordID `json:"referral_type"`
	Notes        *string                `json:"notes,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}
