package models

import "time"

// Bucket is one month of the out-of-service chart.
type Bucket struct {
	Month   string `json:"month"`
	Carrier int    `json:"CARRIER"`
	Broker  int    `json:"BROKER"`
}

// Count returns the counter for the given entity type.
func (b Bucket) Count(t EntityType) int {
	switch t {
	case EntityCarrier:
		return b.Carrier
	case EntityBroker:
		return b.Broker
	}
	return 0
}

// SetCount overwrites the counter for the given entity type.
func (b *Bucket) SetCount(t EntityType, n int) {
	switch t {
	case EntityCarrier:
		b.Carrier = n
	case EntityBroker:
		b.Broker = n
	}
}

// Override is a manual replacement for one bucket counter.
type Override struct {
	ID         string     `json:"id" db:"id"`
	Month      string     `json:"month" db:"month"`
	EntityType EntityType `json:"entityType" db:"entity_type"`
	Count      int        `json:"count" db:"count"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time  `json:"updatedAt" db:"updated_at"`
}

// ChartPoint is a bucket as served to the UI, with the cells that came from overrides flagged.
type ChartPoint struct {
	Bucket
	Overridden []EntityType `json:"overridden,omitempty"`
}
