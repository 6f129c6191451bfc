package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase is a purchase record as reported by the backend.
type Purchase struct {
	ID            int64                 `json:"id_compra"`
	Destination   PurchaseDestination   `json:"destino"`
	Quantity      Quantity              `json:"cantidad"`
	Total         Amount                `json:"total"`
	CreatedAt     Date                  `json:"fecha_creacion"`
	PaymentMethod PurchasePaymentMethod `json:"id_metodoPago"`
}

type PurchaseDestination struct {
	Name  string `json:"nombre_Destino"`
	Image string `json:"image"`
}

type PurchasePaymentMethod struct {
	Name string `json:"nombrePago"`
}

// PurchaseView is one dashboard row, from the backend or the local ledger.
type PurchaseView struct {
	ID             string          `json:"id_compra"`
	Name           string          `json:"nombre_Destino"`
	Image          string          `json:"image"`
	Quantity       int             `json:"cantidad"`
	Total          decimal.Decimal `json:"total"`
	TotalFormatted string          `json:"totalFormateado"`
	CreatedAt      time.Time       `json:"fecha_creacion"`
	DateFormatted  string          `json:"fechaFormateada"`
	PaymentMethod  string          `json:"metodoPago"`
	IsLocal        bool            `json:"esLocal"`
}
