package model

import (
	"math"

	"github.com/shopspring/decimal"
)

// CartLineItem is one destination and quantity held in the server cart.
// Selected is a client-side annotation and is never sent back.
type CartLineItem struct {
	LineID        int64    `json:"id_compra"`
	DestinationID int64    `json:"id_destino"`
	Quantity      Quantity `json:"cantidad"`
	DepartureDate Date     `json:"fecha_salida"`

	Name        string `json:"nombre_Destino,omitempty"`
	Price       Amount `json:"precio_Destino"`
	Image       string `json:"image,omitempty"`
	Description string `json:"descripcion,omitempty"`

	Selected bool `json:"selected"`
}

// Subtotal is price times quantity, zero when either is unusable.
func (i CartLineItem) Subtotal() Amount {
	if !i.Price.Valid || i.Quantity <= 0 {
		return Amount{}
	}
	return NewAmount(i.Price.Value.Mul(decimal.NewFromInt(int64(i.Quantity))))
}

// Snapshot captures the display fields present at purchase time.
func (i CartLineItem) Snapshot() PurchasedItem {
	return PurchasedItem{
		DestinationID: i.DestinationID,
		Quantity:      i.Quantity,
		Name:          i.Name,
		Price:         i.Price,
		Image:         i.Image,
		DepartureDate: i.DepartureDate,
	}
}

// ClampQuantity maps any requested quantity to max(1, floor(q)).
func ClampQuantity(q float64) Quantity {
	if math.IsNaN(q) || q < 1 {
		return 1
	}
	if q > math.MaxInt32 {
		return math.MaxInt32
	}
	return Quantity(math.Floor(q))
}

type AddToCartRequest struct {
	DestinationID int64    `json:"id_destino"`
	Quantity      Quantity `json:"cantidad"`
	DepartureDate Date     `json:"fecha_salida"`
}

type CheckoutItem struct {
	DestinationID int64    `json:"id_destino"`
	Quantity      Quantity `json:"cantidad"`
}

type CheckoutRequest struct {
	PaymentMethodID int64          `json:"metodo_pago"`
	Items           []CheckoutItem `json:"items"`
}
