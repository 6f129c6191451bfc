package model

import "time"

type Destination struct {
	ID            int64    `json:"id_destino"`
	Name          string   `json:"nombre_Destino"`
	Description   string   `json:"descripcion"`
	Image         string   `json:"image"`
	Price         Amount   `json:"precio_Destino"`
	DepartureDate Date     `json:"fecha_salida"`
	Available     Quantity `json:"cantidad_Disponible"`

	// derived on fetch, nil when the departure date is missing
	IsCurrent   *bool `json:"estaVigente,omitempty"`
	HasCapacity *bool `json:"tieneCupo,omitempty"`
	ShowSoldOut *bool `json:"mostrarSoldOut,omitempty"`
}

// DeriveFlags fills the availability flags relative to now.
// A destination without a departure date is left untouched.
func (d *Destination) DeriveFlags(now time.Time) {
	if !d.DepartureDate.Valid() {
		return
	}
	current := d.DepartureDate.After(now)
	capacity := d.Available > 0
	soldOut := current && !capacity

	d.IsCurrent = &current
	d.HasCapacity = &capacity
	d.ShowSoldOut = &soldOut
}

func (d Destination) Current() bool {
	return d.IsCurrent != nil && *d.IsCurrent
}

func (d Destination) SoldOut() bool {
	return d.ShowSoldOut != nil && *d.ShowSoldOut
}

type PaymentMethod struct {
	ID   int64  `json:"id_metodoPago"`
	Name string `json:"nombrePago"`
}
