// Package testutil holds fixtures and fakes shared by package tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/carrier-dashboard/backend/internal/models"
)

// CarrierJSON is a small upstream payload: three out-of-service carriers in 2023-05,
// one out-of-service broker in 2023-06, one active carrier and one record with a null status.
const CarrierJSON = `[
  {"created_dt":"2023-05-02T10:00:00.000","data_source_modified_dt":"2023-05-03T00:00:00.000","entity_type":"CARRIER","operating_status":"OUT-OF-SERVICE","legal_name":"ACME TRUCKING","dba_name":null,"phone":"5551234","usdot_number":1001,"power_units":4,"drivers":5,"id":1},
  {"created_dt":"2023-05-15T08:30:00.000","data_source_modified_dt":"2023-05-16T00:00:00.000","entity_type":"CARRIER","operating_status":"OUT-OF-SERVICE","legal_name":"BETA FREIGHT","dba_name":"BETA","phone":"5552345","usdot_number":1002,"power_units":2,"drivers":2,"id":2},
  {"created_dt":"2023-05-30T23:00:00.000","data_source_modified_dt":"2023-06-01T00:00:00.000","entity_type":"CARRIER","operating_status":"OUT-OF-SERVICE","legal_name":"GAMMA LOGISTICS","dba_name":null,"phone":"5553456","usdot_number":1003,"power_units":10,"drivers":12,"id":3},
  {"created_dt":"2023-06-04T12:00:00.000","data_source_modified_dt":"2023-06-05T00:00:00.000","entity_type":"BROKER","operating_status":"OUT-OF-SERVICE","legal_name":"DELTA BROKERAGE","dba_name":null,"phone":"5554567","usdot_number":1004,"power_units":0,"drivers":0,"id":4},
  {"created_dt":"2023-06-10T12:00:00.000","data_source_modified_dt":"2023-06-11T00:00:00.000","entity_type":"CARRIER","operating_status":"AUTHORIZED","legal_name":"EPSILON HAUL","dba_name":null,"phone":"5555678","usdot_number":1005,"power_units":7,"drivers":8,"id":5},
  {"created_dt":"2023-07-01T00:00:00.000","data_source_modified_dt":null,"entity_type":"BROKER","operating_status":null,"legal_name":"ZETA AGENTS","dba_name":null,"phone":null,"usdot_number":1006,"power_units":null,"drivers":1,"id":6}
]`

// FieldsPerRecord is the key count of every CarrierJSON object.
const FieldsPerRecord = 11

// Record builds a record from alternating keys and values.
func Record(kv ...any) models.Record {
	if len(kv)%2 != 0 {
		panic("testutil.Record: odd number of arguments")
	}
	var r models.Record
	for i := 0; i < len(kv); i += 2 {
		r.Set(kv[i].(string), normalize(kv[i+1]))
	}
	return r
}

// Carrier builds a minimal carrier record for aggregation tests.
func Carrier(id int, entity, status, created string) models.Record {
	var st any
	if status != "" {
		st = status
	}
	return Record(
		"created_dt", created,
		"entity_type", entity,
		"operating_status", st,
		"drivers", id,
		"id", id,
	)
}

func normalize(v any) any {
	switch val := v.(type) {
	case int:
		return json.Number(fmt.Sprint(val))
	case int64:
		return json.Number(fmt.Sprint(val))
	case float64:
		return json.Number(fmt.Sprint(val))
	default:
		return v
	}
}

// Upstream is a fake carrier data endpoint.
type Upstream struct {
	*httptest.Server
	hits atomic.Int64
}

// Hits returns the number of requests served.
func (u *Upstream) Hits() int {
	return int(u.hits.Load())
}

// NewUpstream serves body with the given status code for every request.
func NewUpstream(t *testing.T, status int, body string) *Upstream {
	t.Helper()
	u := &Upstream{}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(u.Close)
	return u
}
