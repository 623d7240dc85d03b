package model

import (
	"strconv"
	"time"
)

// TimestampLayout is ISO-8601 with microsecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// RecordHeader names the fields of a persisted reading, in record order.
var RecordHeader = []string{"timestamp", "sensor_id", "sensor_type", "value", "unit"}

type Reading struct {
	Timestamp time.Time `json:"timestamp"`
	SensorID  string    `json:"sensor_id"`
	Kind      Kind      `json:"sensor_type"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
}

func NewReading(identity Identity, ts time.Time, value float64) Reading {
	return Reading{
		Timestamp: ts.UTC(),
		SensorID:  identity.ID,
		Kind:      identity.Kind,
		Value:     value,
		Unit:      identity.Unit(),
	}
}

// Record returns the reading's fields in RecordHeader order.
func (r Reading) Record() []string {
	return []string{
		r.Timestamp.UTC().Format(TimestampLayout),
		r.SensorID,
		string(r.Kind),
		strconv.FormatFloat(r.Value, 'f', -1, 64),
		r.Unit,
	}
}

// SensorInfo is the externally visible status of one unit.
type SensorInfo struct {
	SensorID   string  `json:"sensor_id"`
	SensorType Kind    `json:"sensor_type"`
	Status     State   `json:"status"`
	Interval   float64 `json:"interval"`
	Emitted    int64   `json:"emitted"`
	Error      string  `json:"error,omitempty"`
}
