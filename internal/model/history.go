package model

import "time"

type PurchaseStatus string

const (
	StatusPending   PurchaseStatus = "pendiente"
	StatusCompleted PurchaseStatus = "completado"
	StatusCancelled PurchaseStatus = "cancelado"
)

// PurchasedItem is a line snapshot taken when the purchase went through.
type PurchasedItem struct {
	DestinationID int64     `json:"id_destino"`
	Quantity      Quantity  `json:"cantidad"`
	Name          string    `json:"nombre_Destino,omitempty"`
	Price         Amount    `json:"precio_Destino"`
	Image         string    `json:"image,omitempty"`
	DepartureDate Date      `json:"fecha_salida"`
	PurchasedAt   time.Time `json:"fecha"`
}

// PurchaseHistoryEntry is one locally recorded purchase. Entries are never
// edited after they are written.
type PurchaseHistoryEntry struct {
	Date            time.Time       `json:"fecha"`
	Items           []PurchasedItem `json:"items"`
	PaymentMethodID int64           `json:"metodoPagoId"`
	Status          PurchaseStatus  `json:"estado"`
}
