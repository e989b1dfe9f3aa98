package ariston

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/velishub/velishub/internal/session"
)

func writePasswordFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "password")
	if err := os.WriteFile(path, []byte("secret\n"), 0o600); err != nil {
		t.Fatalf("write password file: %v", err)
	}
	return path
}

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	cfg := Config{
		Host:         server.URL,
		Username:     "user@example.com",
		PasswordFile: writePasswordFile(t),
	}
	client, err := NewClient(cfg, nil, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func loginHandler(t *testing.T, logins *int, token string) func(http.ResponseWriter, *http.Request) {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		*logins++
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST login, got %s", r.Method)
		}
		var body struct {
			Usr      string `json:"usr"`
			Pwd      string `json:"pwd"`
			Imp      bool   `json:"imp"`
			NotTrack bool   `json:"notTrack"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode login body: %v", err)
		}
		if body.Usr != "user@example.com" || body.Pwd != "secret" {
			t.Fatalf("unexpected credentials: %+v", body)
		}
		if body.Imp || !body.NotTrack {
			t.Fatalf("unexpected login flags: %+v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"token":"`+token+`","act":"acct-1"}`)
	}
}

func TestAuthenticatePopulatesSession(t *testing.T) {
	var logins int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/accounts/login" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("appId") != "com.remotethermo.velis" {
			t.Fatalf("missing appId query, got %q", r.URL.RawQuery)
		}
		loginHandler(t, &logins, "token-1")(w, r)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	if err := client.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	sess := client.Session()
	if sess.Token != "token-1" || sess.Account != "acct-1" {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if logins != 1 {
		t.Fatalf("expected 1 login, got %d", logins)
	}
}

func TestAuthenticateRejectedCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	err := client.Authenticate(context.Background())

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Reason != "unexpected reply" {
		t.Fatalf("unexpected reason: %s", authErr.Reason)
	}
	if client.Session().Authenticated() {
		t.Fatalf("session should stay empty after rejected login")
	}
}

func TestAuthenticateUnreachableHost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	server.Close()

	client := newTestClient(t, server)
	err := client.Authenticate(context.Background())

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Reason != "connection failed" {
		t.Fatalf("unexpected reason: %s", authErr.Reason)
	}
}

func TestPlants(t *testing.T) {
	var logins int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/accounts/login":
			loginHandler(t, &logins, "token-1")(w, r)
		case "/api/v2/velis/plants":
			if r.Header.Get("ar.authToken") != "token-1" {
				t.Fatalf("missing auth token header")
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `[{"gw":"gw-1","name":"Bathroom"},{"gw":"gw-2","name":"Kitchen"}]`)
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server)
	plants, err := client.Plants(context.Background())
	if err != nil {
		t.Fatalf("Plants: %v", err)
	}
	if len(plants) != 2 {
		t.Fatalf("expected 2 plants, got %d", len(plants))
	}
	if plants[0].GatewayID != "gw-1" || plants[0].Name != "Bathroom" {
		t.Fatalf("unexpected plant: %+v", plants[0])
	}
}

func TestPlantStatusMarksAvailable(t *testing.T) {
	var logins int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/accounts/login":
			loginHandler(t, &logins, "token-1")(w, r)
		case "/api/v2/velis/medPlantData/gw-1":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"temp":48.5,"reqTemp":55.0,"on":true,"eco":false,"mode":1}`)
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server)
	status, err := client.PlantStatus(context.Background(), "gw-1")
	if err != nil {
		t.Fatalf("PlantStatus: %v", err)
	}
	if !status.Available {
		t.Fatalf("expected available status")
	}
	if status.Temperature != 48.5 || status.RequestedTemperature != 55.0 {
		t.Fatalf("unexpected temperatures: %+v", status)
	}
	if !status.On || status.Eco {
		t.Fatalf("unexpected flags: %+v", status)
	}
}

func TestPlantStatusDegradesOnServerError(t *testing.T) {
	var logins int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/accounts/login":
			loginHandler(t, &logins, "token-1")(w, r)
		case "/api/v2/velis/medPlantData/gw-1":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server)
	status, err := client.PlantStatus(context.Background(), "gw-1")
	if err != nil {
		t.Fatalf("PlantStatus: %v", err)
	}
	if status.Available {
		t.Fatalf("expected unavailable status on server error")
	}
}

func TestStaleSessionRenewsOnce(t *testing.T) {
	var logins, statusCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/accounts/login":
			loginHandler(t, &logins, "token-fresh")(w, r)
		case "/api/v2/velis/medPlantData/gw-1/switch":
			statusCalls++
			if statusCalls == 1 {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if r.Header.Get("ar.authToken") != "token-fresh" {
				t.Fatalf("retry should carry renewed token")
			}
			w.WriteHeader(http.StatusOK)
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server)
	client.session = Session{Token: "token-stale", Account: "acct-1"}

	if err := client.SetPower(context.Background(), "gw-1", true); err != nil {
		t.Fatalf("SetPower: %v", err)
	}
	if logins != 1 {
		t.Fatalf("expected exactly 1 renewal login, got %d", logins)
	}
	if statusCalls != 2 {
		t.Fatalf("expected exactly 1 retry, got %d calls", statusCalls)
	}
}

func TestStaleSessionAfterRenewalFails(t *testing.T) {
	var logins, switchCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/accounts/login":
			loginHandler(t, &logins, "token-fresh")(w, r)
		case "/api/v2/velis/medPlantData/gw-1/switch":
			switchCalls++
			w.WriteHeader(http.StatusMethodNotAllowed)
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server)
	client.session = Session{Token: "token-stale", Account: "acct-1"}

	err := client.SetPower(context.Background(), "gw-1", true)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if logins != 1 {
		t.Fatalf("expected a single renewal attempt, got %d logins", logins)
	}
	if switchCalls != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", switchCalls)
	}
}

func TestPlantStatusStaleSessionRenews(t *testing.T) {
	var logins, statusCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/accounts/login":
			loginHandler(t, &logins, "token-fresh")(w, r)
		case "/api/v2/velis/medPlantData/gw-1":
			statusCalls++
			if statusCalls == 1 {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"temp":42.0,"reqTemp":50.0,"on":true,"eco":true,"mode":1}`)
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server)
	client.session = Session{Token: "token-stale", Account: "acct-1"}

	status, err := client.PlantStatus(context.Background(), "gw-1")
	if err != nil {
		t.Fatalf("PlantStatus: %v", err)
	}
	if !status.Available {
		t.Fatalf("renewed status fetch should be available")
	}
	if logins != 1 {
		t.Fatalf("expected renewal on status path, got %d logins", logins)
	}
}

func TestSetTemperaturePayload(t *testing.T) {
	var logins int
	var captured string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/accounts/login":
			loginHandler(t, &logins, "token-1")(w, r)
		case "/api/v2/velis/medPlantData/gw-1/temperature":
			body, _ := io.ReadAll(r.Body)
			captured = string(body)
			w.WriteHeader(http.StatusOK)
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server)
	if err := client.SetTemperature(context.Background(), "gw-1", 55, true); err != nil {
		t.Fatalf("SetTemperature: %v", err)
	}
	if captured != `{"eco":true,"new":55,"old":0}` {
		t.Fatalf("unexpected temperature payload: %s", captured)
	}
}

func TestSetPowerAndEcoSendBareBooleans(t *testing.T) {
	var logins int
	bodies := map[string]string{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v2/accounts/login" {
			loginHandler(t, &logins, "token-1")(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		bodies[r.URL.Path] = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	ctx := context.Background()
	if err := client.SetPower(ctx, "gw-1", true); err != nil {
		t.Fatalf("SetPower: %v", err)
	}
	if err := client.SetEco(ctx, "gw-1", false); err != nil {
		t.Fatalf("SetEco: %v", err)
	}

	if bodies["/api/v2/velis/medPlantData/gw-1/switch"] != "true" {
		t.Fatalf("unexpected switch payload: %q", bodies["/api/v2/velis/medPlantData/gw-1/switch"])
	}
	if bodies["/api/v2/velis/medPlantData/gw-1/switchEco"] != "false" {
		t.Fatalf("unexpected switchEco payload: %q", bodies["/api/v2/velis/medPlantData/gw-1/switchEco"])
	}
}

func TestSetScheduleModePayloads(t *testing.T) {
	var logins int
	var payloads []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/accounts/login":
			loginHandler(t, &logins, "token-1")(w, r)
		case "/api/v2/velis/medPlantData/gw-1/mode":
			body, _ := io.ReadAll(r.Body)
			payloads = append(payloads, string(body))
			w.WriteHeader(http.StatusOK)
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server)
	ctx := context.Background()
	if err := client.SetScheduleMode(ctx, "gw-1", true); err != nil {
		t.Fatalf("SetScheduleMode on: %v", err)
	}
	if err := client.SetScheduleMode(ctx, "gw-1", false); err != nil {
		t.Fatalf("SetScheduleMode off: %v", err)
	}

	if payloads[0] != `{"new":5,"old":1}` {
		t.Fatalf("unexpected enable payload: %s", payloads[0])
	}
	if payloads[1] != `{"new":1,"old":5}` {
		t.Fatalf("unexpected disable payload: %s", payloads[1])
	}
}

func TestSessionPersistsAcrossClients(t *testing.T) {
	var logins int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/accounts/login" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		loginHandler(t, &logins, "token-cached")(w, r)
	}))
	defer server.Close()

	stateDir := t.TempDir()
	store, err := session.NewStore(stateDir, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	cfg := Config{
		Host:         server.URL,
		Username:     "user@example.com",
		PasswordFile: writePasswordFile(t),
	}

	first, err := NewClient(cfg, store, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := first.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	second, err := NewClient(cfg, store, nil)
	if err != nil {
		t.Fatalf("restarted client: %v", err)
	}
	sess := second.Session()
	if sess.Token != "token-cached" || sess.Account != "acct-1" {
		t.Fatalf("expected restored session, got %+v", sess)
	}
	if logins != 1 {
		t.Fatalf("restart should not trigger a login, got %d", logins)
	}
}
