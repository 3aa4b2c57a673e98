package models

import (
	"encoding/json"
	"strconv"
)

// EntityType distinguishes carriers from brokers.
type EntityType string

const (
	EntityCarrier EntityType = "CARRIER"
	EntityBroker  EntityType = "BROKER"
)

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	return t == EntityCarrier || t == EntityBroker
}

// StatusOutOfService is the operating status the chart is restricted to.
const StatusOutOfService = "OUT-OF-SERVICE"

// CarrierRecord is the typed view of a Record.
// Every field except ID and EntityType may be missing upstream, hence the pointers.
type CarrierRecord struct {
	ID                   int64      `json:"id"`
	EntityType           EntityType `json:"entity_type"`
	CreatedDT            *string    `json:"created_dt"`
	DataSourceModifiedDT *string    `json:"data_source_modified_dt"`
	OperatingStatus      *string    `json:"operating_status"`
	LegalName            *string    `json:"legal_name"`
	DBAName              *string    `json:"dba_name"`
	PhysicalAddress      *string    `json:"physical_address"`
	PStreet              *string    `json:"p_street"`
	PCity                *string    `json:"p_city"`
	PState               *string    `json:"p_state"`
	PZipCode             *string    `json:"p_zip_code"`
	Phone                *string    `json:"phone"`
	MailingAddress       *string    `json:"mailing_address"`
	MStreet              *string    `json:"m_street"`
	MCity                *string    `json:"m_city"`
	MState               *string    `json:"m_state"`
	MZipCode             *string    `json:"m_zip_code"`
	USDOTNumber          *int64     `json:"usdot_number"`
	MCMXFFNumber         *string    `json:"mc_mx_ff_number"`
	PowerUnits           *int64     `json:"power_units"`
	MCS150FormDate       *string    `json:"mcs_150_form_date"`
	OutOfServiceDate     *string    `json:"out_of_service_date"`
	StateCarrierIDNumber *string    `json:"state_carrier_id_number"`
	DUNSNumber           *string    `json:"duns_number"`
	Drivers              *int64     `json:"drivers"`
	MCS150MileageYear    *string    `json:"mcs_150_mileage_year"`
	CreditScore          *float64   `json:"credit_score"`
	RecordStatus         *string    `json:"record_status"`
}

// Carrier derives the typed view of r. Values of an unexpected JSON type are left nil
// rather than failing the whole record.
func (r Record) Carrier() CarrierRecord {
	c := CarrierRecord{
		EntityType: EntityType(r.Text("entity_type")),
	}
	if id, ok := int64Of(r, "id"); ok {
		c.ID = id
	}
	c.CreatedDT = stringOf(r, "created_dt")
	c.DataSourceModifiedDT = stringOf(r, "data_source_modified_dt")
	c.OperatingStatus = stringOf(r, "operating_status")
	c.LegalName = stringOf(r, "legal_name")
	c.DBAName = stringOf(r, "dba_name")
	c.PhysicalAddress = stringOf(r, "physical_address")
	c.PStreet = stringOf(r, "p_street")
	c.PCity = stringOf(r, "p_city")
	c.PState = stringOf(r, "p_state")
	c.PZipCode = stringOf(r, "p_zip_code")
	c.Phone = stringOf(r, "phone")
	c.MailingAddress = stringOf(r, "mailing_address")
	c.MStreet = stringOf(r, "m_street")
	c.MCity = stringOf(r, "m_city")
	c.MState = stringOf(r, "m_state")
	c.MZipCode = stringOf(r, "m_zip_code")
	c.MCMXFFNumber = stringOf(r, "mc_mx_ff_number")
	c.MCS150FormDate = stringOf(r, "mcs_150_form_date")
	c.OutOfServiceDate = stringOf(r, "out_of_service_date")
	c.StateCarrierIDNumber = stringOf(r, "state_carrier_id_number")
	c.DUNSNumber = stringOf(r, "duns_number")
	c.MCS150MileageYear = stringOf(r, "mcs_150_mileage_year")
	c.RecordStatus = stringOf(r, "record_status")
	if v, ok := int64Of(r, "usdot_number"); ok {
		c.USDOTNumber = &v
	}
	if v, ok := int64Of(r, "power_units"); ok {
		c.PowerUnits = &v
	}
	if v, ok := int64Of(r, "drivers"); ok {
		c.Drivers = &v
	}
	if v, ok := float64Of(r, "credit_score"); ok {
		c.CreditScore = &v
	}
	return c
}

func stringOf(r Record, key string) *string {
	v, ok := r.Get(key)
	if !ok || v == nil {
		return nil
	}
	s := TextOf(v)
	return &s
}

func int64Of(r Record, key string) (int64, bool) {
	v, ok := r.Get(key)
	if !ok || v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, true
		}
		if f, err := val.Float64(); err == nil {
			return int64(f), true
		}
	case string:
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

func float64Of(r Record, key string) (float64, bool) {
	v, ok := r.Get(key)
	if !ok || v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f, true
		}
	case string:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
