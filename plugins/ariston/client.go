package ariston

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/velishub/velishub/internal/logging"
	"github.com/velishub/velishub/internal/session"
)

const (
	apiPrefix      = "/api/v2"
	appID          = "com.remotethermo.velis"
	requestTimeout = 15 * time.Second

	// The vendor signals a rejected session token with 405, not 401.
	staleSessionStatus = http.StatusMethodNotAllowed

	sessionProvider = "ariston"
)

// AuthError is fatal to the calling operation: bad credentials, an
// unreachable host, or a failed renewal. Callers surface it as
// "unavailable".
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ariston auth: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("ariston auth: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ErrSessionExpired is returned when the server still rejects the
// token after one renewal and the single retry has been spent.
var ErrSessionExpired = errors.New("ariston session rejected after renewal")

// HTTPStatusError surfaces non-success replies on mutation calls.
type HTTPStatusError struct {
	Status int
	Body   string
}

func (e HTTPStatusError) Error() string {
	return fmt.Sprintf("ariston api error %d: %s", e.Status, strings.TrimSpace(e.Body))
}

type loginReply struct {
	Token   string `json:"token"`
	Account string `json:"act"`
}

// Client talks to the Ariston Velis cloud API. It owns the session:
// every authenticated call carries the current token, and a stale
// session triggers exactly one silent re-login and one retry.
type Client struct {
	host       string
	username   string
	password   string
	httpClient *http.Client
	store      *session.Store
	log        *logging.Logger

	mu      sync.Mutex
	session Session
}

func NewClient(cfg Config, store *session.Store, log *logging.Logger) (*Client, error) {
	passwordBytes, err := os.ReadFile(cfg.PasswordFile)
	if err != nil {
		return nil, fmt.Errorf("read ariston password file: %w", err)
	}
	password := strings.TrimSpace(string(passwordBytes))
	if password == "" {
		return nil, fmt.Errorf("ariston password is empty")
	}

	host := strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	if host == "" {
		return nil, fmt.Errorf("ariston host is required")
	}
	if log == nil {
		log = logging.Nop()
	}

	c := &Client{
		host:       host,
		username:   cfg.Username,
		password:   password,
		httpClient: &http.Client{Timeout: requestTimeout},
		store:      store,
		log:        log,
	}
	c.seedSession()
	return c, nil
}

// seedSession restores a cached token so a restart does not force a
// fresh login. A stale cached token is healed by the renewal path.
func (c *Client) seedSession() {
	if c.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	state, err := c.store.Load(ctx, sessionProvider)
	if err != nil {
		if !errors.Is(err, session.ErrStateNotFound) {
			c.log.Warnw("ariston session cache load failed", "err", err)
		}
		return
	}
	c.session = Session{Token: state.Token, Account: state.Account}
	c.log.Debugw("ariston session restored from cache", "account", state.Account)
}

// Authenticate logs in with the configured credentials and stores the
// returned token and account id for subsequent calls.
func (c *Client) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loginLocked(ctx)
}

// Session returns a copy of the current session state.
func (c *Client) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Plants lists the controllable units on the account.
func (c *Client) Plants(ctx context.Context) ([]Plant, error) {
	resp, err := c.do(ctx, http.MethodGet, "/velis/plants", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, HTTPStatusError{Status: resp.StatusCode, Body: string(body)}
	}

	var plants []Plant
	if err := json.NewDecoder(resp.Body).Decode(&plants); err != nil {
		return nil, fmt.Errorf("decode plants: %w", err)
	}
	return plants, nil
}

// PlantStatus fetches one plant's state. A non-200 reply is not an
// error: it degrades to Available=false so pollers can mark the unit
// unavailable and move on. Unlike the mutation endpoints, the original
// vendor client never renewed on this path; here a stale session is
// renewed first, and only the post-renewal reply can degrade.
func (c *Client) PlantStatus(ctx context.Context, gatewayID string) (PlantStatus, error) {
	resp, err := c.do(ctx, http.MethodGet, "/velis/medPlantData/"+gatewayID, nil)
	if err != nil {
		return PlantStatus{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return PlantStatus{Available: false}, nil
	}

	var status PlantStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return PlantStatus{}, fmt.Errorf("decode plant status: %w", err)
	}
	status.Available = true
	return status, nil
}

// SetTemperature sets the target temperature. The old value is always
// sent as zero; the backend ignores it for temperature writes.
func (c *Client) SetTemperature(ctx context.Context, gatewayID string, temperature float64, eco bool) error {
	payload := struct {
		Eco bool    `json:"eco"`
		New float64 `json:"new"`
		Old float64 `json:"old"`
	}{Eco: eco, New: temperature, Old: 0.0}

	return c.post(ctx, "/velis/medPlantData/"+gatewayID+"/temperature", payload)
}

// SetPower switches the heater on or off. The body is a bare boolean.
func (c *Client) SetPower(ctx context.Context, gatewayID string, on bool) error {
	return c.post(ctx, "/velis/medPlantData/"+gatewayID+"/switch", on)
}

// SetEco toggles eco mode. The body is a bare boolean.
func (c *Client) SetEco(ctx context.Context, gatewayID string, on bool) error {
	return c.post(ctx, "/velis/medPlantData/"+gatewayID+"/switchEco", on)
}

// SetScheduleMode toggles the server-side timed program. The payload
// is the mode diff the backend expects: 5/1 when enabling, 1/5 when
// disabling.
func (c *Client) SetScheduleMode(ctx context.Context, gatewayID string, on bool) error {
	payload := struct {
		New int `json:"new"`
		Old int `json:"old"`
	}{New: 1, Old: scheduleModeValue}
	if on {
		payload.New = scheduleModeValue
		payload.Old = 1
	}

	return c.post(ctx, "/velis/medPlantData/"+gatewayID+"/mode", payload)
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	resp, err := c.do(ctx, http.MethodPost, path, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return HTTPStatusError{Status: resp.StatusCode, Body: string(body)}
	}
	return nil
}

// do issues one authenticated request, renewing the session at most
// once when the server reports it stale. A bounded loop, not
// recursion: a server stuck on 405 fails after the single retry.
func (c *Client) do(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	token, err := c.ensureSession(ctx, "")
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		resp, err := c.send(ctx, method, path, payload, token)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != staleSessionStatus {
			return resp, nil
		}
		resp.Body.Close()

		if attempt >= 1 {
			return nil, ErrSessionExpired
		}

		c.log.Infow("ariston session stale, renewing", "path", path)
		token, err = c.ensureSession(ctx, token)
		if err != nil {
			return nil, err
		}
	}
}

// ensureSession returns a usable token, logging in when the session is
// empty or still holds the stale token the caller saw. Renewals are
// serialized: a racing caller that arrives after a renewal reuses the
// fresh token instead of issuing a redundant login.
func (c *Client) ensureSession(ctx context.Context, stale string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.Authenticated() && c.session.Token != stale {
		return c.session.Token, nil
	}
	if stale != "" {
		c.session = c.session.expired()
	}
	if err := c.loginLocked(ctx); err != nil {
		if stale != "" && c.store != nil {
			if clearErr := c.store.Clear(sessionProvider); clearErr != nil {
				c.log.Warnw("ariston session cache clear failed", "err", clearErr)
			}
		}
		return "", err
	}
	return c.session.Token, nil
}

func (c *Client) loginLocked(ctx context.Context) error {
	payload := struct {
		Usr      string `json:"usr"`
		Pwd      string `json:"pwd"`
		Imp      bool   `json:"imp"`
		NotTrack bool   `json:"notTrack"`
	}{Usr: c.username, Pwd: c.password, Imp: false, NotTrack: true}

	resp, err := c.send(ctx, http.MethodPost, "/accounts/login", payload, c.session.Token)
	if err != nil {
		return &AuthError{Reason: "connection failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warnw("ariston login unexpected reply", "status", resp.StatusCode)
		return &AuthError{Reason: "unexpected reply"}
	}

	var reply loginReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return &AuthError{Reason: "malformed reply", Err: err}
	}

	c.session = c.session.renewed(reply)
	c.log.Infow("ariston login ok", "account", reply.Account)
	c.persistSessionLocked()
	return nil
}

func (c *Client) persistSessionLocked() {
	if c.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	state := session.State{
		SchemaVersion: session.SchemaVersion,
		Token:         c.session.Token,
		Account:       c.session.Account,
	}
	if err := c.store.Save(ctx, sessionProvider, state); err != nil {
		c.log.Warnw("ariston session cache save failed", "err", err)
	}
}

func (c *Client) send(ctx context.Context, method, path string, payload any, token string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.host+apiPrefix+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	query := req.URL.Query()
	query.Set("appId", appID)
	req.URL.RawQuery = query.Encode()

	if token != "" {
		req.Header.Set("ar.authToken", token)
	}
	if method == http.MethodPost {
		req.Header.Set("expect", "100-continue")
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return c.httpClient.Do(req)
}
