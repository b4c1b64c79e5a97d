package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"marketready/internal/config"
	"marketready/internal/hub"
	"marketready/internal/mailer"
	"marketready/internal/middleware"
	"marketready/internal/storage"
	"marketready/internal/store"
)

type mapEnv map[string]string

func (m mapEnv) Getenv(key string) string { return m[key] }

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.LoadConfigFromEnv(mapEnv{
		"DATABASE_URL":   "postgres://unused",
		"SESSION_SECRET": "secret",
		"SITE_URL":       "http://localhost:3000",
		"PRODUCT_NAME":   "MarketReady",
		"EMAIL_SENDER":   "noreply@example.com",
		"WEBHOOK_SECRET": "hook-secret",
	})
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	return cfg
}

type recordingMailer struct {
	sent []mailer.Message
}

func (m *recordingMailer) SendEmail(ctx context.Context, msg mailer.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

type routerFixture struct {
	router *gin.Engine
	store  *store.Store
	mailer *recordingMailer
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	st, err := store.New(db)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	m := &recordingMailer{}
	r := NewRouter(Deps{
		Store:    st,
		Config:   testConfig(t),
		Mailer:   m,
		Pictures: storage.DisabledPictures{},
		Hub:      hub.New(),
		Logger:   zap.NewNop(),
	})
	return &routerFixture{router: r, store: st, mailer: m}
}

// do issues a JSON request. Mutating requests are marked as server actions
// so they pass the CSRF check the way form submissions do in production.
func (f *routerFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if method != http.MethodGet {
		req.Header.Set(middleware.ActionHeader, "1")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return resp
}

func (f *routerFixture) signUp(t *testing.T, name, email string) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/v1/auth/sign-up", "", map[string]any{
		"name": name, "email": email, "password": "correct-horse-battery",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("sign up: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	return decode(t, w)["token"].(string)
}

func TestSignUpAndOnboardingFlow(t *testing.T) {
	f := newRouterFixture(t)
	token := f.signUp(t, "Jane Agent", "jane@example.com")

	w := f.do(t, http.MethodGet, "/v1/account", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("account: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if onboarded := decode(t, w)["onboarded"]; onboarded != false {
		t.Fatalf("expected onboarded false, got %v", onboarded)
	}

	w = f.do(t, http.MethodPost, "/v1/onboarding/next", token, map[string]any{
		"values": map[string]string{"firstName": "Jane", "lastName": "Agent", "agency": "Acme Realty"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("onboarding next: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if idx := decode(t, w)["stepIndex"]; idx != float64(1) {
		t.Fatalf("expected step 1, got %v", idx)
	}

	w = f.do(t, http.MethodPost, "/v1/onboarding/submit", token, map[string]any{
		"values": map[string]string{"propertyType": "Residential", "state": "QLD"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("onboarding submit: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if redirect := decode(t, w)["redirectTo"]; redirect != "/home" {
		t.Fatalf("expected redirect to /home, got %v", redirect)
	}

	w = f.do(t, http.MethodGet, "/v1/account", token, nil)
	if onboarded := decode(t, w)["onboarded"]; onboarded != true {
		t.Fatalf("expected onboarded true, got %v", onboarded)
	}
}

func TestOnboardingSubmitRejectsIncompleteRecord(t *testing.T) {
	f := newRouterFixture(t)
	token := f.signUp(t, "Jane Agent", "jane@example.com")

	w := f.do(t, http.MethodPost, "/v1/onboarding/submit", token, map[string]any{
		"values": map[string]string{"propertyType": "Residential", "state": "QLD"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestInvitationLifecycleOverHTTP(t *testing.T) {
	f := newRouterFixture(t)
	ownerToken := f.signUp(t, "Owner", "owner@example.com")

	w := f.do(t, http.MethodPost, "/v1/teams", ownerToken, map[string]any{
		"name": "Acme Realty", "slug": "acme",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("create team: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	teamID := decode(t, w)["accountId"].(string)

	w = f.do(t, http.MethodPost, "/v1/team/acme/invitations", ownerToken, map[string]any{
		"invitations": []map[string]string{{"email": "new@example.com", "role": "member"}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("send invitations: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(f.mailer.sent) != 1 {
		t.Fatalf("expected 1 invite email, got %d", len(f.mailer.sent))
	}
	if f.mailer.sent[0].To != "new@example.com" {
		t.Fatalf("invite email sent to %s", f.mailer.sent[0].To)
	}

	// inviting the same address again conflicts
	w = f.do(t, http.MethodPost, "/v1/team/acme/invitations", ownerToken, map[string]any{
		"invitations": []map[string]string{{"email": "new@example.com", "role": "member"}},
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate invite: expected 409, got %d: %s", w.Code, w.Body.String())
	}

	rows, err := f.store.ListInvitations(context.Background(), teamID)
	if err != nil || len(rows) != 1 {
		t.Fatalf("ListInvitations: %v (%d rows)", err, len(rows))
	}

	inviteeToken := f.signUp(t, "New Member", "new@example.com")
	w = f.do(t, http.MethodPost, "/v1/invitations/accept", inviteeToken, map[string]any{
		"inviteToken": rows[0].InviteToken,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("accept: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["accountId"] != teamID || resp["role"] != "member" {
		t.Fatalf("unexpected accept response: %v", resp)
	}

	// token is single use
	w = f.do(t, http.MethodPost, "/v1/invitations/accept", inviteeToken, map[string]any{
		"inviteToken": rows[0].InviteToken,
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("reuse: expected 404, got %d: %s", w.Code, w.Body.String())
	}

	w = f.do(t, http.MethodGet, "/v1/team/acme", inviteeToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("team get: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	members := decode(t, w)["members"].([]any)
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
}

func TestInvitationSendRequiresMembership(t *testing.T) {
	f := newRouterFixture(t)
	f.signUp(t, "Owner", "owner@example.com")
	outsiderToken := f.signUp(t, "Outsider", "outsider@example.com")

	ownerToken := f.signUp(t, "Another", "another@example.com")
	w := f.do(t, http.MethodPost, "/v1/teams", ownerToken, map[string]any{
		"name": "Acme Realty", "slug": "acme",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("create team: expected 200, got %d", w.Code)
	}

	w = f.do(t, http.MethodPost, "/v1/team/acme/invitations", outsiderToken, map[string]any{
		"invitations": []map[string]string{{"email": "x@example.com", "role": "member"}},
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestWebhookEndpointRequiresSecret(t *testing.T) {
	f := newRouterFixture(t)

	body, _ := json.Marshal(map[string]any{
		"type": "INSERT", "table": "invitations", "record": map[string]any{"id": 1},
	})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/invitations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ActionHeader, "1")
	req.Header.Set("X-Webhook-Secret", "wrong")

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCSRFBlocksUnmarkedMutation(t *testing.T) {
	f := newRouterFixture(t)

	body, _ := json.Marshal(map[string]any{"email": "a@b.co", "password": "pw"})
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/sign-in", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 from csrf check, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSignInReportsMFARequirement(t *testing.T) {
	f := newRouterFixture(t)
	f.signUp(t, "Jane", "jane@example.com")

	w := f.do(t, http.MethodPost, "/v1/auth/sign-in", "", map[string]any{
		"email": "jane@example.com", "password": "correct-horse-battery",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("sign in: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["requiresMfa"] != false {
		t.Fatalf("expected requiresMfa false, got %v", resp["requiresMfa"])
	}
	if resp["redirectTo"] != "/home" {
		t.Fatalf("expected redirect to /home, got %v", resp["redirectTo"])
	}
}

func TestAccountDeletionRequiresConfirmationToken(t *testing.T) {
	f := newRouterFixture(t)
	token := f.signUp(t, "Jane", "jane@example.com")

	w := f.do(t, http.MethodPost, "/v1/account/deletion/confirm", token, map[string]any{
		"token": "not-a-real-token",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bogus token, got %d: %s", w.Code, w.Body.String())
	}

	w = f.do(t, http.MethodPost, "/v1/account/deletion/request", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("deletion request: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(f.mailer.sent) != 1 {
		t.Fatalf("expected confirmation email, got %d messages", len(f.mailer.sent))
	}

	// pull the minted token straight from the store; the email only
	// carries it for the user
	user, err := f.store.FindUserByEmail(context.Background(), "jane@example.com")
	if err != nil {
		t.Fatalf("FindUserByEmail: %v", err)
	}
	nonces, err := f.store.ListNoncesForUser(context.Background(), user.ID)
	if err != nil || len(nonces) != 1 {
		t.Fatalf("ListNoncesForUser: %v (%d rows)", err, len(nonces))
	}

	w = f.do(t, http.MethodPost, "/v1/account/deletion/confirm", token, map[string]any{
		"token": nonces[0].ClientToken,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("deletion confirm: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	if _, err := f.store.FindUserByEmail(context.Background(), "jane@example.com"); err == nil {
		t.Fatal("expected user to be deleted")
	}
}

func TestHealthEndpoint(t *testing.T) {
	f := newRouterFixture(t)
	w := f.do(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
