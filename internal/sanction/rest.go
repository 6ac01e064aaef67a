package sanction

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

const defaultAPIBase = "https://discord.com/api/v10"

// RESTExecutor applies sanctions directly against the Discord REST
// API over pooled fasthttp clients. It distinguishes 403 responses as
// ErrInsufficientAuthority so the escalator falls through the chain.
type RESTExecutor struct {
	pool    *httpPool
	limiter *rateLimiter
	token   string
	baseURL string
}

func NewRESTExecutor(token string, poolSize int) *RESTExecutor {
	return &RESTExecutor{
		pool:    newHTTPPool(poolSize),
		limiter: newRateLimiter(),
		token:   token,
		baseURL: defaultAPIBase,
	}
}

func (r *RESTExecutor) Ban(ctx context.Context, guildID, userID, reason string) error {
	url := fmt.Sprintf("%s/guilds/%s/bans/%s", r.baseURL, guildID, userID)
	body, _ := json.Marshal(map[string]int{"delete_message_seconds": 0})
	return r.do(ctx, "ban", guildID, fasthttp.MethodPut, url, reason, body)
}

func (r *RESTExecutor) Kick(ctx context.Context, guildID, userID, reason string) error {
	url := fmt.Sprintf("%s/guilds/%s/members/%s", r.baseURL, guildID, userID)
	return r.do(ctx, "kick", guildID, fasthttp.MethodDelete, url, reason, nil)
}

// RevokePrivileges strips every role except @everyone by replacing
// the member's role list with the empty set.
func (r *RESTExecutor) RevokePrivileges(ctx context.Context, guildID, userID, reason string) error {
	url := fmt.Sprintf("%s/guilds/%s/members/%s", r.baseURL, guildID, userID)
	body, _ := json.Marshal(map[string][]string{"roles": {}})
	return r.do(ctx, "revoke", guildID, fasthttp.MethodPatch, url, reason, body)
}

func (r *RESTExecutor) do(ctx context.Context, route, guildID, method, url, reason string, body []byte) error {
	if !r.limiter.canExecute(route, guildID) {
		return fmt.Errorf("%s: rate limited", route)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	req.Header.Set("Authorization", "Bot "+r.token)
	req.Header.Set("X-Audit-Log-Reason", reason)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.SetBody(body)
	}

	deadline := time.Now().Add(2 * time.Second)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}

	if err := r.pool.get().DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("%s request: %w", route, err)
	}

	r.limiter.update(resp, route, guildID)

	status := resp.StatusCode()
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == fasthttp.StatusForbidden:
		return fmt.Errorf("%s rejected (%d): %w", route, status, ErrInsufficientAuthority)
	default:
		return fmt.Errorf("%s failed: status %d", route, status)
	}
}
