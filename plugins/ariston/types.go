package ariston

import "time"

// Plant identifies one controllable water heater, the vendor's term
// for a unit behind a cloud gateway.
type Plant struct {
	GatewayID string `json:"gw"`
	Name      string `json:"name"`
}

// PlantStatus is the polled state of one plant. Available is not part
// of the vendor body; it reflects whether the fetch succeeded.
type PlantStatus struct {
	Temperature          float64 `json:"temp"`
	RequestedTemperature float64 `json:"reqTemp"`
	On                   bool    `json:"on"`
	Eco                  bool    `json:"eco"`
	Mode                 int     `json:"mode"`
	Available            bool    `json:"available"`
}

// OperationMode is the mode surface exposed to callers.
type OperationMode string

const (
	ModeOff      OperationMode = "off"
	ModeManual   OperationMode = "manual"
	ModeSchedule OperationMode = "schedule"
	ModeEco      OperationMode = "eco"
)

// scheduleModeValue is the vendor mode integer meaning "timed program".
const scheduleModeValue = 5

// HeaterSnapshot is the serialized heater state for the API, the
// WebSocket stream, and the MQTT feed.
type HeaterSnapshot struct {
	GatewayID         string        `json:"gateway_id"`
	Name              string        `json:"name"`
	Available         bool          `json:"available"`
	On                bool          `json:"on"`
	Eco               bool          `json:"eco"`
	Mode              OperationMode `json:"mode"`
	Temperature       float64       `json:"temperature_celsius"`
	TargetTemperature float64       `json:"target_temperature_celsius"`
	UpdatedAt         time.Time     `json:"updated_at"`
}
