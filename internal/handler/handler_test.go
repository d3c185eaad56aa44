package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/seat-pos/internal/config"
	"github.com/iliyamo/seat-pos/internal/handler"
	"github.com/iliyamo/seat-pos/internal/middleware"
	"github.com/iliyamo/seat-pos/internal/repository"
	"github.com/iliyamo/seat-pos/internal/router"
	"github.com/iliyamo/seat-pos/internal/service"
	"github.com/iliyamo/seat-pos/internal/utils"
)

const secret = "test-secret"

type testServer struct {
	e     *echo.Echo
	sess  *service.Session
	staff string
	owner string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	local := repository.NewSQLiteLocalStore(db)
	require.NoError(t, local.EnsureSchema(context.Background()))

	sess := service.NewSession(service.Deps{
		Gateway: repository.NewGateway(nil, local),
		Clock:   service.SystemClock{Location: time.UTC, Override: "2024-02-09"},
	})
	sess.Bootstrap(context.Background())

	staffHash, err := utils.HashPIN("1111", bcrypt.MinCost)
	require.NoError(t, err)
	ownerHash, err := utils.HashPIN("9999", bcrypt.MinCost)
	require.NoError(t, err)
	cfg := config.Config{JWTSecret: secret, AccessTTLMin: 5, StaffPinHash: staffHash, OwnerPinHash: ownerHash}

	e := echo.New()
	h := router.Handlers{
		Health:   handler.NewHealthHandler(sess),
		Auth:     handler.NewAuthHandler(cfg),
		Business: handler.NewBusinessHandler(sess),
		Orders:   handler.NewOrderHandler(sess),
		Sales:    handler.NewSalesHandler(sess),
		Seats:    handler.NewSeatHandler(sess),
		Menus:    handler.NewMenuHandler(sess),
		Session:  handler.NewSessionHandler(sess),
	}
	router.RegisterRoutes(e, h.Health)
	router.RegisterAuth(e, h.Auth)
	router.RegisterPOS(e, h, secret, nil)

	staff, err := utils.NewAccessToken(secret, "staff", middleware.RoleStaff, 5)
	require.NoError(t, err)
	owner, err := utils.NewAccessToken(secret, "owner", middleware.RoleOwner, 5)
	require.NoError(t, err)
	return &testServer{e: e, sess: sess, staff: staff.Token, owner: owner.Token}
}

func (s *testServer) do(t *testing.T, method, path, token, body string) (int, map[string]interface{}) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	out := map[string]interface{}{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodPost, "/v1/auth/login", "", `{"pin":"9999"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, middleware.RoleOwner, body["role"])
	access := body["access"].(map[string]interface{})
	token := access["token"].(string)

	code, _ = s.do(t, http.MethodGet, "/v1/business", token, "")
	assert.Equal(t, http.StatusOK, code)

	code, body = s.do(t, http.MethodPost, "/v1/auth/login", "", `{"pin":"1111"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, middleware.RoleStaff, body["role"])

	code, _ = s.do(t, http.MethodPost, "/v1/auth/login", "", `{"pin":"0000"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = s.do(t, http.MethodPost, "/v1/auth/login", "", `{"pin":""}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLogin_NotConfigured(t *testing.T) {
	e := echo.New()
	router.RegisterAuth(e, handler.NewAuthHandler(config.Config{JWTSecret: secret}))
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"pin":"1234"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)
	code, _ := s.do(t, http.MethodGet, "/v1/orders", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = s.do(t, http.MethodGet, "/v1/orders", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodPut, "/v1/seats", s.staff, `{"seats":[{"name":"A1"}]}`)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodPost, "/v1/menus", s.staff, `{"name":"Tea","price":4500}`)
	assert.Equal(t, http.StatusForbidden, code)

	code, body := s.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "2024-02-09", body["date"])
	assert.Equal(t, true, body["local_mode"])
}

func TestOrderFlow(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodPut, "/v1/seats", s.owner, `{"seats":[{"id":"A","name":"Window"}]}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", body["storage"], "no remote store configured")

	code, body = s.do(t, http.MethodPost, "/v1/menus", s.owner, `{"name":"Coffee","price":5000,"category":"drinks"}`)
	require.Equal(t, http.StatusCreated, code)
	menuID := body["menu"].(map[string]interface{})["id"].(string)

	// day still closed
	code, _ = s.do(t, http.MethodPost, "/v1/orders/A/items", s.staff, `{"menu_id":"`+menuID+`"}`)
	assert.Equal(t, http.StatusConflict, code)

	code, body = s.do(t, http.MethodPost, "/v1/business/start", s.staff, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "open", body["business"].(map[string]interface{})["status"])

	code, _ = s.do(t, http.MethodPost, "/v1/orders/Z/items", s.staff, `{"menu_id":"`+menuID+`"}`)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = s.do(t, http.MethodPost, "/v1/orders/A/items", s.staff, `{"menu_id":"menu_missing"}`)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = s.do(t, http.MethodPost, "/v1/orders/A/items", s.staff, `{"menu_id":"`+menuID+`","quantity":0}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.do(t, http.MethodPost, "/v1/orders/A/items", s.staff, `{"menu_id":"`+menuID+`","quantity":2}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(10000), body["order"].(map[string]interface{})["totalPrice"])

	code, body = s.do(t, http.MethodGet, "/v1/business", s.staff, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(10000), body["pending_total"])

	code, body = s.do(t, http.MethodPost, "/v1/orders/A/pay", s.staff, "")
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, float64(10000), body["payment"].(map[string]interface{})["totalPrice"])

	code, _ = s.do(t, http.MethodGet, "/v1/orders/A", s.staff, "")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = s.do(t, http.MethodPost, "/v1/orders/A/pay", s.staff, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, body = s.do(t, http.MethodGet, "/v1/business/items", s.staff, "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["items"], 1)
}

func TestEndRequiresConfirmation(t *testing.T) {
	s := newTestServer(t)
	code, body := s.do(t, http.MethodPost, "/v1/menus", s.owner, `{"name":"Cake","price":3000}`)
	require.Equal(t, http.StatusCreated, code)
	menuID := body["menu"].(map[string]interface{})["id"].(string)

	code, _ = s.do(t, http.MethodPost, "/v1/business/end", s.staff, "")
	assert.Equal(t, http.StatusConflict, code, "cannot end a closed day")

	s.do(t, http.MethodPost, "/v1/business/start", s.staff, "")
	code, _ = s.do(t, http.MethodPost, "/v1/orders/B/items", s.staff, `{"menu_id":"`+menuID+`"}`)
	require.Equal(t, http.StatusOK, code)

	code, body = s.do(t, http.MethodPost, "/v1/business/end", s.staff, `{"confirm":false}`)
	require.Equal(t, http.StatusConflict, code)
	assert.Equal(t, true, body["confirm_required"])
	assert.Equal(t, float64(3000), body["pending_total"])

	code, body = s.do(t, http.MethodPost, "/v1/business/end", s.staff, `{"confirm":true}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "settled", body["business"].(map[string]interface{})["status"])

	code, body = s.do(t, http.MethodGet, "/v1/orders", s.staff, "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["orders"])

	code, _ = s.do(t, http.MethodGet, "/v1/sales/2024-02-09", s.staff, "")
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, "/v1/sales/not-a-date", s.staff, "")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodDelete, "/v1/sales/2024-02-09", s.staff, "")
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodDelete, "/v1/sales/2024-02-09", s.owner, "")
	assert.Equal(t, http.StatusOK, code)

	code, body = s.do(t, http.MethodPost, "/v1/business/restart", s.staff, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "open", body["business"].(map[string]interface{})["status"])
}

func TestSalesMonthValidation(t *testing.T) {
	s := newTestServer(t)
	code, _ := s.do(t, http.MethodGet, "/v1/sales?year=2024&month=13", s.staff, "")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodGet, "/v1/sales?year=2024&month=2", s.staff, "")
	assert.Equal(t, http.StatusOK, code)
}
