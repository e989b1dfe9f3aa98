package ariston

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// Velis temperature range, whole degrees Celsius.
const (
	MinTemperature = 40.0
	MaxTemperature = 80.0
)

// Heater adapts one plant into a stateful water-heater entity:
// availability, current/target temperature, and a derived operation
// mode.
type Heater struct {
	client *Client
	plant  Plant

	mu         sync.Mutex
	status     PlantStatus
	mode       OperationMode
	targetTemp float64
	updatedAt  time.Time
}

func NewHeater(client *Client, plant Plant) *Heater {
	return &Heater{
		client:     client,
		plant:      plant,
		mode:       ModeOff,
		targetTemp: MinTemperature,
	}
}

func (h *Heater) GatewayID() string { return h.plant.GatewayID }
func (h *Heater) Name() string      { return h.plant.Name }

// Update polls the plant. Availability follows the soft flag on the
// status fetch; a hard error (auth failure) also marks the heater
// unavailable before propagating.
func (h *Heater) Update(ctx context.Context) error {
	status, err := h.client.PlantStatus(ctx, h.plant.GatewayID)
	if err != nil {
		h.mu.Lock()
		h.status.Available = false
		h.updatedAt = time.Now().UTC()
		h.mu.Unlock()
		return err
	}

	h.mu.Lock()
	h.status = status
	h.mode = operationModeFor(status)
	if status.Available {
		h.targetTemp = status.RequestedTemperature
	}
	h.updatedAt = time.Now().UTC()
	h.mu.Unlock()
	return nil
}

func operationModeFor(status PlantStatus) OperationMode {
	if !status.On {
		return ModeOff
	}
	if status.Eco {
		return ModeEco
	}
	if status.Mode == scheduleModeValue {
		return ModeSchedule
	}
	return ModeManual
}

// SetTemperature sets the target, switching the heater on first when
// it is off. Values are rounded to whole degrees and must fall in the
// Velis range.
func (h *Heater) SetTemperature(ctx context.Context, temperature float64) error {
	temperature = math.Round(temperature)
	if temperature < MinTemperature || temperature > MaxTemperature {
		return fmt.Errorf("temperature %.0f out of range [%.0f, %.0f]", temperature, MinTemperature, MaxTemperature)
	}

	h.mu.Lock()
	eco := h.status.Eco
	wasOff := h.mode == ModeOff
	h.mu.Unlock()

	if wasOff {
		if err := h.client.SetPower(ctx, h.plant.GatewayID, true); err != nil {
			return err
		}
	}
	if err := h.client.SetTemperature(ctx, h.plant.GatewayID, temperature, eco); err != nil {
		return err
	}

	h.mu.Lock()
	if wasOff {
		h.mode = ModeManual
		h.status.On = true
	}
	h.targetTemp = temperature
	h.mu.Unlock()
	return nil
}

// SetOperationMode transitions between off, manual, schedule, and eco,
// switching the heater on first when leaving off.
func (h *Heater) SetOperationMode(ctx context.Context, mode OperationMode) error {
	h.mu.Lock()
	current := h.mode
	h.mu.Unlock()

	if current == mode {
		return nil
	}

	gw := h.plant.GatewayID
	if current == ModeOff && mode != ModeOff {
		if err := h.client.SetPower(ctx, gw, true); err != nil {
			return err
		}
	}

	var err error
	switch mode {
	case ModeEco:
		err = h.client.SetEco(ctx, gw, true)
	case ModeSchedule:
		err = h.client.SetScheduleMode(ctx, gw, true)
	case ModeManual:
		if current == ModeEco {
			err = h.client.SetEco(ctx, gw, false)
		} else {
			err = h.client.SetScheduleMode(ctx, gw, false)
		}
	case ModeOff:
		err = h.client.SetPower(ctx, gw, false)
	default:
		return fmt.Errorf("unknown operation mode %q", mode)
	}
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.mode = mode
	h.status.On = mode != ModeOff
	h.status.Eco = mode == ModeEco
	h.mu.Unlock()
	return nil
}

// Snapshot returns the heater state for serialization.
func (h *Heater) Snapshot() HeaterSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	return HeaterSnapshot{
		GatewayID:         h.plant.GatewayID,
		Name:              h.plant.Name,
		Available:         h.status.Available,
		On:                h.status.On,
		Eco:               h.status.Eco,
		Mode:              h.mode,
		Temperature:       h.status.Temperature,
		TargetTemperature: h.targetTemp,
		UpdatedAt:         h.updatedAt,
	}
}
