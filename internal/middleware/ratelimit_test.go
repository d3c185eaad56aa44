package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/seat-pos/internal/config"
)

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/orders/A/pay", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.7")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/orders/:seat/pay")

	cfg := config.RateLimitConfig{Prefix: "pos-rl", KeyStrategy: "ip_user"}
	assert.Equal(t, "pos-rl:ip:10.0.0.7:user:anon", buildRateKey(cfg, c))

	c.Set("user_id", "staff")
	cfg.KeyStrategy = "user_route"
	assert.Equal(t, "pos-rl:user:staff:route:POST /v1/orders/:seat/pay", buildRateKey(cfg, c))
	cfg.KeyStrategy = "something-else"
	assert.Equal(t, "pos-rl:ip:10.0.0.7:user:staff:route:POST /v1/orders/:seat/pay", buildRateKey(cfg, c))
}

func TestNewTokenBucket_PassThroughWithoutRedis(t *testing.T) {
	code, _ := serve(t, "", NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, nil))
	assert.Equal(t, http.StatusNoContent, code)
}
