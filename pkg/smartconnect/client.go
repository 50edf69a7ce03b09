// Package smartconnect is a minimal Angel One SmartAPI client covering the
// surface this bot needs: TOTP login, session token handling, historical
// candle data, and logout.
package smartconnect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
)

const (
	defaultRoot    = "https://apiconnect.angelone.in"
	defaultTimeout = 7 * time.Second

	routeLogin   = "/rest/auth/angelbroking/user/v1/loginByPassword"
	routeLogout  = "/rest/secure/angelbroking/user/v1/logout"
	routeCandles = "/rest/secure/angelbroking/historical/v1/getCandleData"
)

// ErrSessionExpired is returned when the API rejects the access token.
var ErrSessionExpired = errors.New("smartconnect: session expired")

// Config configures the SmartAPI client.
type Config struct {
	APIKey     string
	ClientCode string
	Password   string
	TOTPSecret string

	RootURL string        // default: https://apiconnect.angelone.in
	Timeout time.Duration // default: 7s
}

// Client is an Angel One SmartAPI HTTP client. Not safe for concurrent use
// during GenerateSession; steady-state candle fetches are read-only.
type Client struct {
	cfg        Config
	rootURL    string
	httpClient *http.Client

	accessToken  string
	refreshToken string
	feedToken    string

	localIP  string
	publicIP string
	mac      string

	// SessionExpiryHook, when set, is invoked once whenever the API returns
	// an authorization failure, before ErrSessionExpired is returned.
	SessionExpiryHook func()
}

// New creates a SmartAPI client. No network calls are made until
// GenerateSession.
func New(cfg Config) *Client {
	if cfg.RootURL == "" {
		cfg.RootURL = defaultRoot
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:        cfg,
		rootURL:    strings.TrimRight(cfg.RootURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		localIP:    localIPFallback(),
		publicIP:   "106.193.147.98", // SmartAPI requires the header, value is not verified
		mac:        macFallback(),
	}
}

// apiEnvelope is the common SmartAPI response wrapper.
type apiEnvelope struct {
	Status    bool            `json:"status"`
	Message   string          `json:"message"`
	ErrorCode string          `json:"errorcode"`
	Data      json.RawMessage `json:"data"`
}

// GenerateSession logs in with the configured credentials, generating the
// one-time password from the TOTP secret at call time.
func (c *Client) GenerateSession(ctx context.Context) error {
	code, err := totp.GenerateCode(c.cfg.TOTPSecret, time.Now())
	if err != nil {
		return fmt.Errorf("smartconnect: totp: %w", err)
	}

	payload := map[string]string{
		"clientcode": c.cfg.ClientCode,
		"password":   c.cfg.Password,
		"totp":       code,
	}
	env, err := c.post(ctx, routeLogin, payload)
	if err != nil {
		return err
	}
	if !env.Status {
		return fmt.Errorf("smartconnect: login rejected: %s (%s)", env.Message, env.ErrorCode)
	}

	var tokens struct {
		JWTToken     string `json:"jwtToken"`
		RefreshToken string `json:"refreshToken"`
		FeedToken    string `json:"feedToken"`
	}
	if err := json.Unmarshal(env.Data, &tokens); err != nil {
		return fmt.Errorf("smartconnect: login response: %w", err)
	}
	c.accessToken = tokens.JWTToken
	c.refreshToken = tokens.RefreshToken
	c.feedToken = tokens.FeedToken
	return nil
}

// LoggedIn reports whether a session token is held.
func (c *Client) LoggedIn() bool { return c.accessToken != "" }

// CandleRequest identifies one historical candle query.
// FromDate/ToDate use SmartAPI's "yyyy-MM-dd HH:mm" format in IST.
type CandleRequest struct {
	Exchange    string // e.g. "NSE"
	SymbolToken string // e.g. "99926000" for Nifty 50
	Interval    string // e.g. "FIVE_MINUTE"
	FromDate    string
	ToDate      string
}

// Candle is one OHLCV row from the historical endpoint.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// CandleData fetches historical candles. Rows are returned in the order the
// API delivers them (oldest first).
func (c *Client) CandleData(ctx context.Context, req CandleRequest) ([]Candle, error) {
	payload := map[string]string{
		"exchange":    req.Exchange,
		"symboltoken": req.SymbolToken,
		"interval":    req.Interval,
		"fromdate":    req.FromDate,
		"todate":      req.ToDate,
	}
	env, err := c.post(ctx, routeCandles, payload)
	if err != nil {
		return nil, err
	}
	if !env.Status {
		return nil, fmt.Errorf("smartconnect: candle data: %s (%s)", env.Message, env.ErrorCode)
	}

	// Rows are [timestamp, open, high, low, close, volume] arrays.
	dec := json.NewDecoder(bytes.NewReader(env.Data))
	dec.UseNumber()
	var raw [][]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("smartconnect: candle rows: %w", err)
	}

	candles := make([]Candle, 0, len(raw))
	for i, row := range raw {
		if len(row) < 6 {
			return nil, fmt.Errorf("smartconnect: candle row %d: %d fields", i, len(row))
		}
		tsStr, ok := row[0].(string)
		if !ok {
			return nil, fmt.Errorf("smartconnect: candle row %d: non-string timestamp", i)
		}
		ts, err := time.Parse("2006-01-02T15:04:05-07:00", tsStr)
		if err != nil {
			return nil, fmt.Errorf("smartconnect: candle row %d: %w", i, err)
		}
		var vals [5]float64
		for j := 0; j < 5; j++ {
			n, ok := row[j+1].(json.Number)
			if !ok {
				return nil, fmt.Errorf("smartconnect: candle row %d: non-numeric field %d", i, j+1)
			}
			f, err := n.Float64()
			if err != nil {
				return nil, fmt.Errorf("smartconnect: candle row %d: %w", i, err)
			}
			vals[j] = f
		}
		candles = append(candles, Candle{
			Time: ts,
			Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4],
		})
	}
	return candles, nil
}

// Logout terminates the session server-side and clears held tokens.
func (c *Client) Logout(ctx context.Context) error {
	env, err := c.post(ctx, routeLogout, map[string]string{"clientcode": c.cfg.ClientCode})
	c.accessToken, c.refreshToken, c.feedToken = "", "", ""
	if err != nil {
		return err
	}
	if !env.Status {
		return fmt.Errorf("smartconnect: logout: %s", env.Message)
	}
	return nil
}

func (c *Client) post(ctx context.Context, route string, payload any) (*apiEnvelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("smartconnect: marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rootURL+route, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("smartconnect: request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("smartconnect: %s: %w", route, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		if c.SessionExpiryHook != nil {
			c.SessionExpiryHook()
		}
		return nil, ErrSessionExpired
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("smartconnect: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("smartconnect: %s: status %d: %s", route, resp.StatusCode, truncate(raw, 200))
	}

	var env apiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("smartconnect: decode %s: %w", route, err)
	}
	return &env, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-UserType", "USER")
	req.Header.Set("X-SourceID", "WEB")
	req.Header.Set("X-ClientLocalIP", c.localIP)
	req.Header.Set("X-ClientPublicIP", c.publicIP)
	req.Header.Set("X-MACAddress", c.mac)
	req.Header.Set("X-PrivateKey", c.cfg.APIKey)
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
}

func localIPFallback() string {
	addrs, err := net.InterfaceAddrs()
	if err == nil {
		for _, a := range addrs {
			if ipNet, ok := a.(*net.IPNet); ok && !ipNet.IP.IsLoopback() && ipNet.IP.To4() != nil {
				return ipNet.IP.String()
			}
		}
	}
	return "127.0.0.1"
}

func macFallback() string {
	ifs, _ := net.Interfaces()
	for _, ifc := range ifs {
		if len(ifc.HardwareAddr) > 0 {
			return ifc.HardwareAddr.String()
		}
	}
	return "00:11:22:33:44:55"
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
