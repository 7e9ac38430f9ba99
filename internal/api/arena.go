package api

import (
	"context"
	"encoding/json"
	"fmt"
	"leekwars-tracker/internal/config"
	"leekwars-tracker/internal/constants"
	"leekwars-tracker/internal/domain"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
)

// ArenaClient downloads fight payloads from the LeekWars HTTP API.
type ArenaClient struct {
	baseURL     string
	token       string
	client      *fasthttp.Client
	rateLimitMu sync.RWMutex
	rateLimit   RateLimitInfo
}

type RateLimitInfo struct {
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`

	// seconds until reset
	Reset int `json:"reset"`

	UpdatedAt time.Time `json:"updated_at"`
}

func NewArenaClient(cfg *config.Config) *ArenaClient {
	return &ArenaClient{
		baseURL: strings.TrimRight(cfg.ArenaURL, "/"),
		token:   cfg.ArenaToken,
		client: &fasthttp.Client{
			MaxConnsPerHost:     16,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		rateLimit: RateLimitInfo{
			Limit:     -1,
			Remaining: -1,
			UpdatedAt: time.Now(),
		},
	}
}

func (c *ArenaClient) GetRateLimitInfo() RateLimitInfo {
	c.rateLimitMu.RLock()
	defer c.rateLimitMu.RUnlock()
	return c.rateLimit
}

func (c *ArenaClient) updateRateLimit(resp *fasthttp.Response) {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	if limit := string(resp.Header.Peek("X-Ratelimit-Limit")); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			c.rateLimit.Limit = val
		}
	}
	if remaining := string(resp.Header.Peek("X-Ratelimit-Remaining")); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			c.rateLimit.Remaining = val
		}
	}
	if reset := string(resp.Header.Peek("X-Ratelimit-Reset")); reset != "" {
		if val, err := strconv.Atoi(reset); err == nil {
			c.rateLimit.Reset = val
		}
	}
	c.rateLimit.UpdatedAt = time.Now()
}

// GetFight returns the raw body of fight/get/<id>.
func (c *ArenaClient) GetFight(ctx context.Context, fightID int64) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/fight/get/%d", c.baseURL, fightID)
	body, err := doRequest[json.RawMessage](ctx, c, url)
	if err != nil {
		return nil, fmt.Errorf("failed to get fight %d: %w", fightID, err)
	}
	return *body, nil
}

// GetFightLogs returns the raw body of fight/get-logs/<id>.
func (c *ArenaClient) GetFightLogs(ctx context.Context, fightID int64) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/fight/get-logs/%d", c.baseURL, fightID)
	body, err := doRequest[json.RawMessage](ctx, c, url)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs of fight %d: %w", fightID, err)
	}
	return *body, nil
}

func doRequest[T any](ctx context.Context, client *ArenaClient, url string) (*T, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	if client.token != "" {
		req.Header.Set("Authorization", "Bearer "+client.token)
	}

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrIO, err)
		}
	} else {
		if err := client.client.Do(req, resp); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrIO, err)
		}
	}

	client.updateRateLimit(resp)

	switch resp.StatusCode() {
	case fasthttp.StatusOK:
	case fasthttp.StatusNotFound:
		return nil, fmt.Errorf("API error: %d: %w", resp.StatusCode(), domain.ErrNotFound)
	default:
		return nil, fmt.Errorf("API error: %d: %w", resp.StatusCode(), domain.ErrIO)
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("invalid API response: %w: %w", domain.ErrCorruptPayload, err)
	}
	return &result, nil
}
