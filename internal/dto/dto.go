package dto

import (
	"bytes"
	"encoding/json"
	"strings"

	"travel-storefront/internal/model"
)

// FlexString accepts a JSON string or a bare number, as html selects send either.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	*f = FlexString(strings.TrimSpace(string(b)))
	return nil
}

type AddItemRequest struct {
	DestinationID int64   `json:"id_destino"`
	Quantity      float64 `json:"cantidad"`
	DepartureDate string  `json:"fecha_salida"`
}

type UpdateQuantityRequest struct {
	Quantity float64 `json:"cantidad"`
}

type UpdateDateRequest struct {
	DepartureDate string `json:"fecha_salida"`
}

type SelectRequest struct {
	Selected bool `json:"selected"`
}

type CheckoutRequest struct {
	PaymentMethod FlexString `json:"metodo_pago"`
	Batch         bool       `json:"batch"`
}

type BuyNowRequest struct {
	PaymentMethod FlexString `json:"metodo_pago"`
}

type LoginRequest struct {
	AccessToken string `json:"access_token"`
}

type CartResponse struct {
	Items       []model.CartLineItem `json:"items"`
	Total       string               `json:"total"`
	AllSelected bool                 `json:"allSelected"`
	Warning     string               `json:"warning,omitempty"`
}

type UpdateQuantityResponse struct {
	Changed bool               `json:"changed"`
	Item    model.CartLineItem `json:"item"`
	Total   string             `json:"total"`
}

type SessionResponse struct {
	LoggedIn bool `json:"loggedIn"`
}
