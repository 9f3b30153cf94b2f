package renaper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/minsocial/celiaquia-backend/internal/config"
	pkgerrors "github.com/minsocial/celiaquia-backend/internal/pkg/errors"
	"github.com/minsocial/celiaquia-backend/internal/pkg/httpx"
	"github.com/minsocial/celiaquia-backend/internal/pkg/logger"
)

// Person is the subset of the registry answer the pipeline consumes. Raw
// keeps the full payload for the technician's screen.
type Person struct {
	Success         bool
	Fallecido       bool
	Surname         string
	Names           string
	FechaNacimiento string
	Address         string
	Raw             map[string]interface{}
}

// Client queries the national identity registry over HTTPS with a cached
// bearer. Failures map to pkg errors: network/5xx to ErrUnavailable, a clean
// 4xx answer to Success=false.
type Client interface {
	Query(ctx context.Context, dni string, sexo string) (Person, error)
}

type client struct {
	log         *logger.Logger
	baseURL     string
	username    string
	password    string
	tokenMargin time.Duration
	httpClient  *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time

	sf singleflight.Group
}

func NewClient(cfg config.Renaper, baseLog *logger.Logger) (Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("renaper base URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 || timeout > 10*time.Second {
		timeout = 10 * time.Second
	}
	return &client{
		log:         baseLog.With("client", "RenaperClient"),
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		username:    cfg.Username,
		password:    cfg.Password,
		tokenMargin: cfg.TokenMargin,
		httpClient:  &http.Client{Timeout: timeout},
	}, nil
}

type loginResponse struct {
	Token      string `json:"token"`
	Expiration string `json:"expiration"`
}

func (c *client) bearer(ctx context.Context, force bool) (string, error) {
	c.mu.Lock()
	if !force && c.token != "" && time.Now().Before(c.tokenExpiry.Add(-c.tokenMargin)) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	// Concurrent refreshes collapse into one login call.
	v, err, _ := c.sf.Do("login", func() (interface{}, error) {
		return c.login(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *client) login(ctx context.Context) (string, error) {
	body := strings.NewReader(fmt.Sprintf(`{"username":%q,"password":%q}`, c.username, c.password))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: renaper login: %v", pkgerrors.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: renaper login status %d", pkgerrors.ErrUnavailable, resp.StatusCode)
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return "", fmt.Errorf("%w: renaper login decode: %v", pkgerrors.ErrUnavailable, err)
	}
	if lr.Token == "" {
		return "", fmt.Errorf("%w: renaper login returned empty token", pkgerrors.ErrUnavailable)
	}

	expiry := parseExpiration(lr.Expiration)

	c.mu.Lock()
	c.token = lr.Token
	c.tokenExpiry = expiry
	c.mu.Unlock()

	return lr.Token, nil
}

func parseExpiration(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now().Add(30 * time.Minute)
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0)
	}
	return time.Now().Add(30 * time.Minute)
}

func (c *client) Query(ctx context.Context, dni string, sexo string) (Person, error) {
	person, status, err := c.doQuery(ctx, dni, sexo, false)
	if err != nil {
		return Person{}, err
	}
	if status == http.StatusUnauthorized {
		// One re-login, then give up.
		person, status, err = c.doQuery(ctx, dni, sexo, true)
		if err != nil {
			return Person{}, err
		}
		if status == http.StatusUnauthorized {
			return Person{}, fmt.Errorf("%w: renaper rejected credentials", pkgerrors.ErrUnavailable)
		}
	}
	return person, nil
}

func (c *client) doQuery(ctx context.Context, dni, sexo string, forceLogin bool) (Person, int, error) {
	token, err := c.bearer(ctx, forceLogin)
	if err != nil {
		return Person{}, 0, err
	}

	q := url.Values{}
	q.Set("dni", dni)
	q.Set("sexo", sexo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/consultarenaper?"+q.Encode(), nil)
	if err != nil {
		return Person{}, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Person{}, 0, fmt.Errorf("%w: renaper query: %v", pkgerrors.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body)
		return Person{}, http.StatusUnauthorized, nil
	}
	if httpx.IsRetryableHTTPStatus(resp.StatusCode) {
		return Person{}, resp.StatusCode, fmt.Errorf("%w: renaper status %d", pkgerrors.ErrUnavailable, resp.StatusCode)
	}

	var payload struct {
		IsSuccess bool                   `json:"isSuccess"`
		Result    map[string]interface{} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		// 4xx with an unreadable body is a no-match, not an outage.
		if resp.StatusCode >= 400 {
			return Person{Success: false}, resp.StatusCode, nil
		}
		return Person{}, resp.StatusCode, fmt.Errorf("%w: renaper decode: %v", pkgerrors.ErrUnavailable, err)
	}

	person := Person{
		Success: payload.IsSuccess && resp.StatusCode == http.StatusOK,
		Raw:     payload.Result,
	}
	if payload.Result != nil {
		person.Surname = asString(payload.Result["apellido"])
		person.Names = asString(payload.Result["nombres"])
		person.FechaNacimiento = asString(payload.Result["fechaNacimiento"])
		person.Address = asString(payload.Result["domicilio"])
		if strings.EqualFold(asString(payload.Result["mensaf"]), "FALLECIDO") {
			person.Fallecido = true
			person.Success = false
		}
	}
	return person, resp.StatusCode, nil
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}
