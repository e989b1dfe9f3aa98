package ariston

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/velishub/velishub/internal/core"
	"github.com/velishub/velishub/internal/history"
	"github.com/velishub/velishub/internal/logging"
)

const bootstrapTimeout = 45 * time.Second

// Service owns the heater set: it bootstraps the plant list, polls
// each heater, records history, feeds the MQTT publisher, and exposes
// the plugin HTTP API.
type Service struct {
	client    *Client
	cfg       Config
	log       *logging.Logger
	history   *history.Repo
	publisher *statusPublisher

	mu          sync.RWMutex
	heaters     map[string]*Heater
	order       []string
	bootErr     error
	lastPollErr error
}

func NewService(client *Client, cfg Config, repo *history.Repo, publisher *statusPublisher, log *logging.Logger) *Service {
	if log == nil {
		log = logging.Nop()
	}
	return &Service{
		client:    client,
		cfg:       cfg,
		log:       log,
		history:   repo,
		publisher: publisher,
		heaters:   make(map[string]*Heater),
	}
}

// Start bootstraps the plant list and launches the poll loop. A failed
// bootstrap is retried on the poll cadence.
func (s *Service) Start(ctx context.Context) {
	bootCtx, cancel := context.WithTimeout(ctx, bootstrapTimeout)
	s.bootstrap(bootCtx)
	cancel()

	go s.pollLoop(ctx)
}

func (s *Service) bootstrap(ctx context.Context) {
	if err := s.client.Authenticate(ctx); err != nil {
		s.setBootErr(err)
		s.log.Warnw("ariston bootstrap login failed", "err", err)
		s.appendEvent(ctx, "", history.TypeAuth, "login failed", map[string]any{"err": err.Error()})
		return
	}

	plants, err := s.client.Plants(ctx)
	if err != nil {
		s.setBootErr(err)
		s.log.Warnw("ariston plant listing failed", "err", err)
		return
	}

	s.mu.Lock()
	for _, plant := range plants {
		if _, ok := s.heaters[plant.GatewayID]; ok {
			continue
		}
		s.heaters[plant.GatewayID] = NewHeater(s.client, plant)
		s.order = append(s.order, plant.GatewayID)
	}
	s.bootErr = nil
	s.mu.Unlock()

	s.log.Infow("ariston bootstrap complete", "plants", len(plants))
}

func (s *Service) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollOnce(ctx)
		}
	}
}

func (s *Service) pollOnce(ctx context.Context) {
	if len(s.Heaters()) == 0 {
		bootCtx, cancel := context.WithTimeout(ctx, bootstrapTimeout)
		s.bootstrap(bootCtx)
		cancel()
	}

	var pollErr error
	for _, heater := range s.Heaters() {
		before := heater.Snapshot().Available
		if err := heater.Update(ctx); err != nil {
			pollErr = err
			s.log.Warnw("ariston poll failed", "gw", heater.GatewayID(), "err", err)
		}
		snapshot := heater.Snapshot()

		if snapshot.Available != before {
			desc := "went offline"
			if snapshot.Available {
				desc = "came online"
			}
			s.appendEvent(ctx, snapshot.GatewayID, history.TypeAvailability, desc, nil)
		}

		if s.publisher != nil && snapshot.Available {
			if err := s.publisher.publish(snapshot); err != nil {
				s.log.Warnw("ariston mqtt publish failed", "gw", snapshot.GatewayID, "err", err)
			}
		}
	}

	s.mu.Lock()
	s.lastPollErr = pollErr
	s.mu.Unlock()
}

func (s *Service) setBootErr(err error) {
	s.mu.Lock()
	s.bootErr = err
	s.mu.Unlock()
}

func (s *Service) appendEvent(ctx context.Context, gw, typ, desc string, meta any) {
	if s.history == nil {
		return
	}
	if err := s.history.Append(ctx, history.Event{
		GatewayID:   gw,
		Type:        typ,
		Description: desc,
		Metadata:    meta,
	}); err != nil {
		s.log.Warnw("ariston history append failed", "err", err)
	}
}

// Heaters returns the bootstrapped heater set in discovery order.
func (s *Service) Heaters() []*Heater {
	s.mu.RLock()
	defer s.mu.RUnlock()

	heaters := make([]*Heater, 0, len(s.order))
	for _, gw := range s.order {
		heaters = append(heaters, s.heaters[gw])
	}
	return heaters
}

func (s *Service) heater(gatewayID string) (*Heater, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.heaters[gatewayID]
	return h, ok
}

// Snapshots returns the current state of every heater.
func (s *Service) Snapshots() []HeaterSnapshot {
	heaters := s.Heaters()
	snapshots := make([]HeaterSnapshot, 0, len(heaters))
	for _, heater := range heaters {
		snapshots = append(snapshots, heater.Snapshot())
	}
	return snapshots
}

func (s *Service) Health() core.HealthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.bootErr != nil {
		return core.HealthError
	}
	if s.lastPollErr != nil {
		return core.HealthDegraded
	}
	return core.HealthHealthy
}

func (s *Service) HealthMessage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.bootErr != nil {
		return s.bootErr.Error()
	}
	if s.lastPollErr != nil {
		return s.lastPollErr.Error()
	}
	return ""
}

// RegisterHTTP mounts the plugin JSON API.
func (s *Service) RegisterHTTP(mux *http.ServeMux) {
	mux.HandleFunc("/api/ariston/plants", s.handlePlants)
	mux.HandleFunc("/api/ariston/plants/", s.handlePlant)
	mux.HandleFunc("/api/ariston/history", s.handleHistory)
}

func (s *Service) handlePlants(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	heaters := s.Heaters()
	plants := make([]Plant, 0, len(heaters))
	for _, heater := range heaters {
		plants = append(plants, Plant{GatewayID: heater.GatewayID(), Name: heater.Name()})
	}
	writeJSON(w, map[string]any{"plants": plants})
}

func (s *Service) handlePlant(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/ariston/plants/")
	gw, action, ok := strings.Cut(rest, "/")
	if !ok || gw == "" {
		http.NotFound(w, r)
		return
	}

	heater, found := s.heater(gw)
	if !found {
		http.NotFound(w, r)
		return
	}

	switch action {
	case "status":
		s.handleStatus(w, r, heater)
	case "temperature":
		s.handleTemperature(w, r, heater)
	case "power":
		s.handleToggle(w, r, heater, "power")
	case "eco":
		s.handleToggle(w, r, heater, "eco")
	case "schedule":
		s.handleToggle(w, r, heater, "schedule")
	case "stream":
		s.handleStream(w, r, heater)
	default:
		http.NotFound(w, r)
	}
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request, heater *Heater) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := heater.Update(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, heater.Snapshot())
}

func (s *Service) handleTemperature(w http.ResponseWriter, r *http.Request, heater *Heater) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		TemperatureCelsius float64 `json:"temperature_celsius"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := heater.SetTemperature(r.Context(), body.TemperatureCelsius); err != nil {
		s.writeError(w, err)
		return
	}

	s.appendEvent(r.Context(), heater.GatewayID(), history.TypeCommand, "set temperature",
		map[string]any{"temperature_celsius": body.TemperatureCelsius})
	writeJSON(w, map[string]any{"status": "ok", "state": heater.Snapshot()})
}

func (s *Service) handleToggle(w http.ResponseWriter, r *http.Request, heater *Heater, what string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		On bool `json:"on"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	gw := heater.GatewayID()
	var err error
	switch what {
	case "power":
		err = s.client.SetPower(ctx, gw, body.On)
	case "eco":
		err = s.client.SetEco(ctx, gw, body.On)
	case "schedule":
		err = s.client.SetScheduleMode(ctx, gw, body.On)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.appendEvent(ctx, gw, history.TypeCommand, "set "+what, map[string]any{"on": body.On})

	// re-poll so the cached mode catches up with the mutation
	if err := heater.Update(ctx); err != nil {
		s.log.Debugw("ariston refresh after command failed", "gw", gw, "err", err)
	}
	writeJSON(w, map[string]any{"status": "ok", "state": heater.Snapshot()})
}

func (s *Service) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.history == nil {
		http.Error(w, "history disabled", http.StatusNotFound)
		return
	}

	query := r.URL.Query()
	var from, to time.Time
	if raw := query.Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid from: "+err.Error(), http.StatusBadRequest)
			return
		}
		from = parsed
	}
	if raw := query.Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid to: "+err.Error(), http.StatusBadRequest)
			return
		}
		to = parsed
	}

	events, err := s.history.List(r.Context(), from, to, query.Get("gw"), query.Get("type"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"events": events})
}

func (s *Service) writeError(w http.ResponseWriter, err error) {
	var authErr *AuthError
	status := http.StatusInternalServerError
	if errors.As(err, &authErr) || errors.Is(err, ErrSessionExpired) {
		status = http.StatusBadGateway
	}
	http.Error(w, fmt.Sprintf("ariston: %v", err), status)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
