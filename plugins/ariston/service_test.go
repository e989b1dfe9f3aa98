package ariston

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestService(t *testing.T, fixture *heaterFixture) (*Service, func()) {
	t.Helper()
	var logins int
	backend := httptest.NewServer(fixture.handler(t, &logins))
	client := newTestClient(t, backend)

	service := NewService(client, Config{}, nil, nil, nil)
	heater := NewHeater(client, Plant{GatewayID: "gw-1", Name: "Bathroom"})
	service.heaters["gw-1"] = heater
	service.order = append(service.order, "gw-1")
	if err := heater.Update(context.Background()); err != nil {
		t.Fatalf("seed update: %v", err)
	}
	return service, backend.Close
}

func serveAPI(service *Service) *httptest.Server {
	mux := http.NewServeMux()
	service.RegisterHTTP(mux)
	return httptest.NewServer(mux)
}

func TestHandlePlantsListsHeaters(t *testing.T) {
	service, done := newTestService(t, &heaterFixture{status: PlantStatus{On: true}})
	defer done()
	api := serveAPI(service)
	defer api.Close()

	resp, err := http.Get(api.URL + "/api/ariston/plants")
	if err != nil {
		t.Fatalf("get plants: %v", err)
	}
	defer resp.Body.Close()

	var reply struct {
		Plants []Plant `json:"plants"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(reply.Plants) != 1 || reply.Plants[0].GatewayID != "gw-1" {
		t.Fatalf("unexpected plants: %+v", reply.Plants)
	}
}

func TestHandleStatusForcesFetch(t *testing.T) {
	service, done := newTestService(t, &heaterFixture{status: PlantStatus{On: true}})
	defer done()
	api := serveAPI(service)
	defer api.Close()

	resp, err := http.Get(api.URL + "/api/ariston/plants/gw-1/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer resp.Body.Close()

	var snap HeaterSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !snap.Available || snap.Temperature != 45.0 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestHandleTemperatureWritesThrough(t *testing.T) {
	fixture := &heaterFixture{status: PlantStatus{On: true}}
	service, done := newTestService(t, fixture)
	defer done()
	api := serveAPI(service)
	defer api.Close()

	resp, err := http.Post(api.URL+"/api/ariston/plants/gw-1/temperature",
		"application/json", strings.NewReader(`{"temperature_celsius":62}`))
	if err != nil {
		t.Fatalf("post temperature: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}

	found := false
	for _, write := range fixture.writes {
		if write == `temperature:{"eco":false,"new":62,"old":0}` {
			found = true
		}
	}
	if !found {
		t.Fatalf("setpoint write missing: %v", fixture.writes)
	}
}

func TestHandleTemperatureRejectsOutOfRange(t *testing.T) {
	service, done := newTestService(t, &heaterFixture{status: PlantStatus{On: true}})
	defer done()
	api := serveAPI(service)
	defer api.Close()

	resp, err := http.Post(api.URL+"/api/ariston/plants/gw-1/temperature",
		"application/json", strings.NewReader(`{"temperature_celsius":95}`))
	if err != nil {
		t.Fatalf("post temperature: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 for out of range, got %d", resp.StatusCode)
	}
}

func TestHandleToggleRoutes(t *testing.T) {
	fixture := &heaterFixture{status: PlantStatus{On: true}}
	service, done := newTestService(t, fixture)
	defer done()
	api := serveAPI(service)
	defer api.Close()

	for _, action := range []string{"power", "eco", "schedule"} {
		resp, err := http.Post(api.URL+"/api/ariston/plants/gw-1/"+action,
			"application/json", strings.NewReader(`{"on":true}`))
		if err != nil {
			t.Fatalf("post %s: %v", action, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s returned %d", action, resp.StatusCode)
		}
	}

	wantOps := map[string]bool{"switch": false, "switchEco": false, "mode": false}
	for _, write := range fixture.writes {
		op, _, _ := strings.Cut(write, ":")
		if _, ok := wantOps[op]; ok {
			wantOps[op] = true
		}
	}
	for op, seen := range wantOps {
		if !seen {
			t.Fatalf("no %s write recorded: %v", op, fixture.writes)
		}
	}
}

func TestHandlePlantUnknownGateway(t *testing.T) {
	service, done := newTestService(t, &heaterFixture{status: PlantStatus{On: true}})
	defer done()
	api := serveAPI(service)
	defer api.Close()

	resp, err := http.Get(api.URL + "/api/ariston/plants/gw-unknown/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestHandleHistoryDisabled(t *testing.T) {
	service, done := newTestService(t, &heaterFixture{status: PlantStatus{On: true}})
	defer done()
	api := serveAPI(service)
	defer api.Close()

	resp, err := http.Get(api.URL + "/api/ariston/history")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 when history is disabled, got %d", resp.StatusCode)
	}
}
