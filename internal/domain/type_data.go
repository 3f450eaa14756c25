package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// TypeData carries the attributes specific to a ticket type.
type TypeData interface {
	TicketType() TicketType
	Validate() error
}

// Location is a pickup or delivery point.
type Location struct {
	City       string `json:"city"`
	Province   string `json:"province,omitempty"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code,omitempty"`
}

// RFQData describes the shipment a quotation is requested for.
type RFQData struct {
	ServiceType   string   `json:"service_type"`
	CargoCategory string   `json:"cargo_category"`
	Commodity     string   `json:"commodity,omitempty"`
	Origin        Location `json:"origin"`
	Destination   Location `json:"destination"`
	WeightKg      float64  `json:"weight_kg"`
	VolumeCBM     float64  `json:"volume_cbm"`
	Quantity      int      `json:"quantity,omitempty"`
	Incoterm      string   `json:"incoterm,omitempty"`
	Scope         []string `json:"scope,omitempty"`
}

// TicketType implements TypeData.
func (RFQData) TicketType() TicketType { return TicketTypeRFQ }

// Validate checks required shipment attributes.
func (d RFQData) Validate() error {
	var problems []string
	if strings.TrimSpace(d.ServiceType) == "" {
		problems = append(problems, "service_type required")
	}
	if strings.TrimSpace(d.Origin.City) == "" || strings.TrimSpace(d.Destination.City) == "" {
		problems = append(problems, "origin and destination city required")
	}
	if d.WeightKg < 0 || d.VolumeCBM < 0 || d.Quantity < 0 {
		problems = append(problems, "weight, volume and quantity must not be negative")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// GenData describes a general inquiry.
type GenData struct {
	Category string `json:"category"`
	Subject  string `json:"subject,omitempty"`
}

// TicketType implements TypeData.
func (GenData) TicketType() TicketType { return TicketTypeGEN }

// Validate checks the inquiry category.
func (d GenData) Validate() error {
	if strings.TrimSpace(d.Category) == "" {
		return errors.New("category required")
	}
	return nil
}

type typeDataEnvelope struct {
	Kind TicketType      `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// MarshalTypeData encodes type data with a kind discriminator. A nil value encodes to nil.
func MarshalTypeData(data TypeData) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(typeDataEnvelope{Kind: data.TicketType(), Data: raw})
}

// UnmarshalTypeData decodes the output of MarshalTypeData.
func UnmarshalTypeData(raw []byte) (TypeData, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var env typeDataEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	switch env.Kind {
	case TicketTypeRFQ:
		var d RFQData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return nil, err
		}
		return d, nil
	case TicketTypeGEN:
		var d GenData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown type data kind %q", env.Kind)
	}
}
