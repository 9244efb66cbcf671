package server

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"github.com/workfolio/workfolio/internal/billing/chain"
	billingdomain "github.com/workfolio/workfolio/internal/billing/domain"
	billingrepository "github.com/workfolio/workfolio/internal/billing/repository"
	billingservice "github.com/workfolio/workfolio/internal/billing/service"
	"github.com/workfolio/workfolio/internal/clock"
	"github.com/workfolio/workfolio/internal/config"
	"github.com/workfolio/workfolio/internal/ratelimit"
	teamdomain "github.com/workfolio/workfolio/internal/team/domain"
	teamrepository "github.com/workfolio/workfolio/internal/team/repository"
	teamservice "github.com/workfolio/workfolio/internal/team/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testWebhookSecret = "whsec_http_test"

type fakeFetcher struct {
	raw json.RawMessage
	err error
}

func (f *fakeFetcher) FetchCharge(ctx context.Context, chargeID string) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.raw, nil
}

type fakeChain struct {
	receipt chain.Receipt
	err     error
}

func (f *fakeChain) PaySubscription(ctx context.Context, teamID snowflake.ID, planKey billingdomain.PlanKey) (chain.Receipt, error) {
	if f.err != nil {
		return chain.Receipt{}, f.err
	}
	return f.receipt, nil
}

type testServer struct {
	engine  *gin.Engine
	db      *gorm.DB
	fetcher *fakeFetcher
	chain   *fakeChain
	clock   *clock.FakeClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&teamdomain.Team{}, &billingdomain.EventRecord{}))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	cfg := config.Config{CommerceWebhookSecret: testWebhookSecret}
	fake := clock.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	fetcher := &fakeFetcher{}
	signer := &fakeChain{}

	teamRepo := teamrepository.Provide()
	teamSvc := teamservice.NewService(teamservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  teamRepo,
	})

	billingSvc := billingservice.NewService(billingservice.Params{
		DB:       db,
		Log:      zap.NewNop(),
		Cfg:      cfg,
		Clock:    fake,
		GenID:    node,
		Teams:    teamRepo,
		Events:   billingrepository.Provide(),
		Commerce: fetcher,
		Chain:    signer,
	})

	plans, err := config.NewPlanCatalogHolder(config.Config{PlanConfigDir: t.TempDir()})
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	NewServer(ServerParams{
		Gin:         engine,
		Cfg:         cfg,
		DB:          db,
		TeamSvc:     teamSvc,
		BillingSvc:  billingSvc,
		SyncLimiter: &ratelimit.SyncLimiter{},
		Plans:       plans,
	})

	return &testServer{engine: engine, db: db, fetcher: fetcher, chain: signer, clock: fake}
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

func (ts *testServer) createTeam(t *testing.T) (teamID int64, token string) {
	t.Helper()
	w := ts.do(http.MethodPost, "/api/teams", "", gin.H{
		"name":       "Acme Corp",
		"ownerEmail": "owner@acme.test",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		TeamID   string `json:"teamId"`
		Slug     string `json:"slug"`
		APIToken string `json:"apiToken"`
		PlanName string `json:"planName"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, strings.HasPrefix(resp.APIToken, "wk_"))
	require.Equal(t, "free", resp.PlanName)

	id, err := strconv.ParseInt(resp.TeamID, 10, 64)
	require.NoError(t, err)
	return id, resp.APIToken
}

func signWebhook(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookEndpoint(t *testing.T) {
	ts := newTestServer(t)
	teamID, token := ts.createTeam(t)

	body, err := json.Marshal(gin.H{
		"id":   "evt_1",
		"type": "charge:confirmed",
		"data": gin.H{
			"id":       "ch_1",
			"timeline": []gin.H{{"status": "CONFIRMED"}},
			"pricing":  gin.H{"local": gin.H{"currency": "USDC"}},
			"metadata": gin.H{"planKey": 1, "teamId": teamID},
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/commerce", bytes.NewReader(body))
	req.Header.Set("X-CC-Webhook-Signature", signWebhook(body))
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	sub := ts.do(http.MethodGet, "/api/subscription", token, nil)
	require.Equal(t, http.StatusOK, sub.Code)
	require.Contains(t, sub.Body.String(), `"planName":"base"`)
}

func TestWebhookEndpointBadSignature(t *testing.T) {
	ts := newTestServer(t)

	body := []byte(`{"id":"evt_1","type":"charge:confirmed","data":{"id":"ch_1"}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/commerce", bytes.NewReader(body))
	req.Header.Set("X-CC-Webhook-Signature", "deadbeef")
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "invalid_signature")
}

func TestWebhookLiveness(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodGet, "/webhooks/commerce", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/subscription", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodGet, "/api/subscription", "wk_does_not_exist", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateTeamValidation(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/teams", "", gin.H{"ownerEmail": "owner@acme.test"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "validation_error")
}

func TestSubscriptionSyncEth(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.createTeam(t)

	w := ts.do(http.MethodPost, "/api/subscription/sync", token, gin.H{
		"planKey": 1,
		"method":  "eth",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.JSONEq(t, `{"ok":true}`, w.Body.String())

	// eth is acknowledged without touching the plan record.
	sub := ts.do(http.MethodGet, "/api/subscription", token, nil)
	require.Contains(t, sub.Body.String(), `"planName":"free"`)
}

func TestSubscriptionSyncCommerce(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.createTeam(t)

	ts.fetcher.raw = json.RawMessage(`{
		"id": "ch_1",
		"timeline": [{"status": "CONFIRMED"}],
		"pricing": {"local": {"currency": "USDC"}}
	}`)

	w := ts.do(http.MethodPost, "/api/subscription/sync", token, gin.H{
		"planKey":  2,
		"method":   "commerce",
		"chargeId": "ch_1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	sub := ts.do(http.MethodGet, "/api/subscription", token, nil)
	require.Contains(t, sub.Body.String(), `"planName":"plus"`)
}

func TestSubscriptionSyncErrors(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.createTeam(t)

	w := ts.do(http.MethodPost, "/api/subscription/sync", token, gin.H{
		"planKey": 1,
		"method":  "paypal",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, "/api/subscription/sync", token, gin.H{
		"planKey": 7,
		"method":  "commerce",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "invalid_plan_key")

	ts.fetcher.err = billingdomain.ErrUpstreamUnavailable
	w = ts.do(http.MethodPost, "/api/subscription/sync", token, gin.H{
		"planKey":  1,
		"method":   "commerce",
		"chargeId": "ch_1",
	})
	require.Equal(t, http.StatusBadGateway, w.Code)
}

func TestOnChainPayment(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.createTeam(t)

	paidUntil := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	ts.chain.receipt = chain.Receipt{TxHash: "0xfeed", PaidUntil: paidUntil}

	w := ts.do(http.MethodPost, "/api/subscription/onchain", token, gin.H{"planKey": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"txHash":"0xfeed"`)

	sub := ts.do(http.MethodGet, "/api/subscription", token, nil)
	require.Contains(t, sub.Body.String(), `"planName":"plus"`)
	require.Contains(t, sub.Body.String(), "2026-06-01T00:00:00Z")
}

func TestOnChainPaymentUnresolved(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.createTeam(t)
	ts.chain.err = billingdomain.ErrPaymentUnresolved

	w := ts.do(http.MethodPost, "/api/subscription/onchain", token, gin.H{"planKey": 1})
	require.Equal(t, http.StatusGatewayTimeout, w.Code)

	sub := ts.do(http.MethodGet, "/api/subscription", token, nil)
	require.Contains(t, sub.Body.String(), `"planName":"free"`)
}

func TestListPlans(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.createTeam(t)

	w := ts.do(http.MethodGet, "/api/plans", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"base"`)
	require.Contains(t, w.Body.String(), `"plus"`)
}
