package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement and schema for mirrored readings.
const (
	MeasurementReadings = "sensor_readings"

	tagDeviceID = "device_id"
	tagDataType = "data_type"
	fieldValue  = "value"
)

// WriteReading mirrors one telemetry reading.
//
// The write is non-blocking; points are batched and flushed asynchronously.
// Failures surface through the SetOnError callback.
//
// Parameters:
//   - deviceID: Device that reported the reading
//   - dataType: Sensor kind (e.g., "temp", "humidity")
//   - value: The measured value
//   - at: Receive time recorded by the ingestion pipeline
//
// Example:
//
//	client.WriteReading("d1", "temp", 21.5, time.Now())
func (c *Client) WriteReading(deviceID, dataType string, value float64, at time.Time) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(readingPoint(deviceID, dataType, value, at))
}

func readingPoint(deviceID, dataType string, value float64, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementReadings,
		map[string]string{
			tagDeviceID: deviceID,
			tagDataType: dataType,
		},
		map[string]interface{}{
			fieldValue: value,
		},
		at,
	)
}
