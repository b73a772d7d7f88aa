package httpapi

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"setka/internal/account"
	"setka/internal/domain"
	"setka/internal/generation"
	"setka/internal/http/handlers"
	"setka/internal/infra"
	"setka/internal/middleware"
	"setka/internal/providers/image"
	"setka/internal/storage"
)

const testSecret = "test-secret"

type memUsers struct {
	mu    sync.Mutex
	users map[string]*domain.User
	seq   int
}

func newMemUsers() *memUsers { return &memUsers{users: map[string]*domain.User{}} }

func (m *memUsers) Create(ctx context.Context, username string, credits int) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			return nil, domain.ErrUsernameTaken
		}
	}
	m.seq++
	u := &domain.User{ID: fmt.Sprintf("u%d", m.seq), Username: username, Role: domain.UserRoleUser, Credits: credits, PaymentMode: domain.PaymentCredits}
	m.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUsers) UpdatePayment(ctx context.Context, id string, mode domain.PaymentMode, apiKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.PaymentMode, u.APIKey = mode, apiKey
	return nil
}

func (m *memUsers) AddCredits(ctx context.Context, id string, amount int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	u.Credits += amount
	return u.Credits, nil
}

func (m *memUsers) ChargeCredits(ctx context.Context, id string, amount int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if u.Credits < amount {
		return 0, domain.ErrInsufficientCredits
	}
	u.Credits -= amount
	return u.Credits, nil
}

func (m *memUsers) Update(ctx context.Context, id string, changes domain.UserChanges) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if changes.Username != nil {
		for _, other := range m.users {
			if other.ID != id && strings.EqualFold(other.Username, *changes.Username) {
				return nil, domain.ErrUsernameTaken
			}
		}
		u.Username = *changes.Username
	}
	if changes.Credits != nil {
		u.Credits = *changes.Credits
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memUsers) setRole(id string, role domain.UserRole) {
	m.mu.Lock()
	m.users[id].Role = role
	m.mu.Unlock()
}

type memPromos struct {
	users *memUsers
	codes map[string]*domain.PromoCode
}

func (m *memPromos) Create(ctx context.Context, name string, credits int) (*domain.PromoCode, error) {
	code := fmt.Sprintf("CODE%d", len(m.codes)+1)
	p := &domain.PromoCode{Code: code, Name: name, TotalCredits: credits}
	m.codes[code] = p
	return p, nil
}

func (m *memPromos) List(ctx context.Context) ([]domain.PromoCode, error) {
	var out []domain.PromoCode
	for _, p := range m.codes {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memPromos) Delete(ctx context.Context, code string) error {
	code = domain.NormalizePromoCode(code)
	if _, ok := m.codes[code]; !ok {
		return domain.ErrPromoNotFound
	}
	delete(m.codes, code)
	return nil
}

func (m *memPromos) Redeem(ctx context.Context, code, userID string) (int, error) {
	p, ok := m.codes[domain.NormalizePromoCode(code)]
	if !ok {
		return 0, domain.ErrPromoNotFound
	}
	if p.UsedByUser(userID) {
		return 0, domain.ErrPromoAlreadyUsed
	}
	p.UsedBy = append(p.UsedBy, userID)
	if _, err := m.users.AddCredits(ctx, userID, p.TotalCredits); err != nil {
		return 0, err
	}
	return p.TotalCredits, nil
}

type memFavorites struct {
	mu      sync.Mutex
	folders map[string]*domain.FavoritesFolder
	root    map[domain.FavoritesCategory][]string
	seq     int
}

func newMemFavorites() *memFavorites {
	return &memFavorites{folders: map[string]*domain.FavoritesFolder{}, root: map[domain.FavoritesCategory][]string{}}
}

func (m *memFavorites) Load(ctx context.Context, userID string) (*domain.Favorites, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fav := &domain.Favorites{}
	for _, c := range []domain.FavoritesCategory{domain.CategoryPhotos, domain.CategoryAvatars} {
		fav.Shelf(c).Root = append([]string(nil), m.root[c]...)
	}
	for _, f := range m.folders {
		shelf := fav.Shelf(f.Category)
		shelf.Folders = append(shelf.Folders, *f)
	}
	return fav, nil
}

func (m *memFavorites) CreateFolder(ctx context.Context, userID string, category domain.FavoritesCategory, name string) (*domain.FavoritesFolder, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", domain.ErrInvalidSelection, category)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	f := &domain.FavoritesFolder{ID: fmt.Sprintf("f%d", m.seq), Category: category, Name: name}
	m.folders[f.ID] = f
	return f, nil
}

func (m *memFavorites) RenameFolder(ctx context.Context, userID, folderID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.folders[folderID]
	if !ok {
		return domain.ErrNotFound
	}
	f.Name = name
	return nil
}

func (m *memFavorites) DeleteFolder(ctx context.Context, userID, folderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.folders[folderID]; !ok {
		return domain.ErrNotFound
	}
	delete(m.folders, folderID)
	return nil
}

func (m *memFavorites) AddImage(ctx context.Context, userID string, category domain.FavoritesCategory, folderID, imageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if folderID == "" || folderID == domain.RootFolderID {
		m.root[category] = append(m.root[category], imageID)
		return nil
	}
	f, ok := m.folders[folderID]
	if !ok {
		return domain.ErrNotFound
	}
	f.Images = append(f.Images, imageID)
	return nil
}

func (m *memFavorites) RemoveImage(ctx context.Context, userID, imageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for c, ids := range m.root {
		m.root[c] = without(ids, imageID)
	}
	for _, f := range m.folders {
		f.Images = without(f.Images, imageID)
	}
	return nil
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

type memHistory struct {
	mu      sync.Mutex
	entries []domain.HistoryEntry
}

func (m *memHistory) Insert(ctx context.Context, e *domain.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.CreatedAt = time.Now()
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memHistory) Get(ctx context.Context, userID, id string) (*domain.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id && e.UserID == userID {
			cp := e
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memHistory) ListByUser(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.HistoryEntry
	for _, e := range m.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memHistory) Delete(ctx context.Context, userID, id string) (*domain.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.entries {
		if e.ID == id && e.UserID == userID {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return &e, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memBlobs struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memBlobs) Write(ctx context.Context, key string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	return key, nil
}

func (m *memBlobs) Read(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (m *memBlobs) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type noTokens struct{}

func (noTokens) Token(ctx context.Context, provider string) (string, error) { return "", nil }

// stubProvider answers every request with the prompt as image bytes.
type stubProvider struct {
	name    string
	variant image.Variant
	caps    image.Capabilities
}

func (p *stubProvider) Name() string                     { return p.name }
func (p *stubProvider) Variant() image.Variant           { return p.variant }
func (p *stubProvider) Capabilities() image.Capabilities { return p.caps }
func (p *stubProvider) Generate(ctx context.Context, req image.Request, credential string) ([]image.Asset, error) {
	return []image.Asset{{Data: []byte(req.Prompt), MIMEType: "image/png"}}, nil
}

type server struct {
	t       *testing.T
	handler http.Handler
	app     *handlers.App
	users   *memUsers
	history *memHistory
}

func newServer(t *testing.T) *server {
	t.Helper()
	users := newMemUsers()
	providers := image.NewRegistry(
		&stubProvider{name: "stub-text", variant: image.VariantTextToImage, caps: image.Capabilities{
			MaxBatchSize: 4, AspectRatios: domain.AllAspectRatios, CostPerImage: 1,
		}},
		&stubProvider{name: "stub-image", variant: image.VariantImageToImage, caps: image.Capabilities{
			SupportsImageInput: true, MaxBatchSize: 10, AspectRatios: domain.AllAspectRatios, CostPerImage: 1,
		}},
	)
	gate := account.NewGate(users, noTokens{}, nil)
	orch := generation.New(generation.Options{
		Providers:   providers,
		Charger:     gate,
		Credentials: gate,
		PacingDelay: -1,
	})
	hist := &memHistory{}
	app := &handlers.App{
		Config: &infra.Config{
			JWTSecret:       testSecret,
			DefaultLocale:   "en",
			RateLimitPerMin: 1000,
			ImagenModel:     "stub-text",
			GeminiModel:     "stub-image",
		},
		Accounts:  account.NewService(users, &memPromos{users: users, codes: map[string]*domain.PromoCode{}}, nil),
		Favorites: newMemFavorites(),
		History:   hist,
		Blobs:     &memBlobs{data: map[string][]byte{}},
		Providers: providers,
		Batches:   generation.NewRegistry(orch),
	}
	return &server{t: t, handler: NewRouter(app, nil), app: app, users: users, history: hist}
}

// user registers username with credits and returns its id and token.
func (s *server) user(username string, credits int) (string, string) {
	s.t.Helper()
	u, err := s.users.Create(context.Background(), username, credits)
	if err != nil {
		s.t.Fatalf("create user: %v", err)
	}
	token, err := middleware.IssueToken(testSecret, u.ID, string(u.Role), "", time.Hour)
	if err != nil {
		s.t.Fatalf("issue token: %v", err)
	}
	return u.ID, token
}

func (s *server) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

type batchBody struct {
	ID    string `json:"id"`
	State string `json:"state"`
	Items []struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		Prompt   string `json:"prompt"`
		ImageURL string `json:"image_url"`
	} `json:"items"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *server) waitBatch(id string) {
	s.t.Helper()
	run, ok := s.app.Batches.Get(id)
	if !ok {
		s.t.Fatalf("batch %s not tracked", id)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := run.Wait(ctx); err != nil {
		s.t.Fatalf("batch %s did not finish: %v", id, err)
	}
}

func TestPublicRoutes(t *testing.T) {
	s := newServer(t)
	if rr := s.do(http.MethodGet, "/v1/healthz", "", nil); rr.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rr.Code)
	}
	rr := s.do(http.MethodGet, "/v1/models", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("models status = %d", rr.Code)
	}
	models := decodeBody[struct {
		Models []struct {
			ID string `json:"id"`
		} `json:"models"`
	}](t, rr)
	if len(models.Models) != 2 || models.Models[0].ID != "stub-text" {
		t.Fatalf("models = %+v", models.Models)
	}
	if rr := s.do(http.MethodGet, "/v1/me", "", nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("me without token status = %d", rr.Code)
	}
}

func TestPromptPreviewNeedsNoUpload(t *testing.T) {
	s := newServer(t)
	rr := s.do(http.MethodPost, "/v1/prompts/preview", "", map[string]any{
		"mode":     "portrait",
		"count":    3,
		"portrait": map[string]any{"mode": "expressions"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("preview status = %d body=%s", rr.Code, rr.Body)
	}
	body := decodeBody[struct {
		Items []struct {
			ID     string `json:"id"`
			Prompt string `json:"prompt"`
		} `json:"items"`
	}](t, rr)
	if len(body.Items) != 3 || body.Items[0].ID != "expr_1" {
		t.Fatalf("preview items = %+v", body.Items)
	}
	if !strings.Contains(body.Items[1].Prompt, "wide, joyful smile") {
		t.Fatalf("second prompt = %q", body.Items[1].Prompt)
	}
}

func TestBatchLifecycle(t *testing.T) {
	s := newServer(t)
	userID, token := s.user("anna", 5)

	rr := s.do(http.MethodPost, "/v1/batches", token, map[string]any{
		"mode":   "expert",
		"count":  2,
		"expert": map[string]any{"prompt": "a red fox in snow"},
	})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d body=%s", rr.Code, rr.Body)
	}
	submitted := decodeBody[batchBody](t, rr)
	if len(submitted.Items) != 2 || submitted.Items[0].Status != "pending" {
		t.Fatalf("placeholders = %+v", submitted.Items)
	}
	s.waitBatch(submitted.ID)

	rr = s.do(http.MethodGet, "/v1/batches/"+submitted.ID, token, nil)
	got := decodeBody[batchBody](t, rr)
	if got.State != string(generation.StateCompleted) {
		t.Fatalf("state = %q", got.State)
	}
	for _, item := range got.Items {
		if item.Status != "success" || item.ImageURL == "" {
			t.Fatalf("item = %+v", item)
		}
	}

	me := decodeBody[struct {
		Credits int `json:"credits"`
	}](t, s.do(http.MethodGet, "/v1/me", token, nil))
	if me.Credits != 3 {
		t.Fatalf("credits = %d, want 3 after charging 2", me.Credits)
	}

	rr = s.do(http.MethodGet, got.Items[0].ImageURL, token, nil)
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("item image status = %d type=%q", rr.Code, rr.Header().Get("Content-Type"))
	}
	if rr.Body.String() != got.Items[0].Prompt {
		t.Fatalf("item image = %q", rr.Body.String())
	}

	rr = s.do(http.MethodGet, "/v1/batches/"+submitted.ID+"/archive", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("archive status = %d", rr.Code)
	}
	zr, err := zip.NewReader(bytes.NewReader(rr.Body.Bytes()), int64(rr.Body.Len()))
	if err != nil || len(zr.File) != 2 {
		t.Fatalf("archive files = %v, err = %v", zr, err)
	}

	history := decodeBody[struct {
		Items []struct {
			ID       string `json:"id"`
			ImageURL string `json:"image_url"`
		} `json:"items"`
	}](t, s.do(http.MethodGet, "/v1/history", token, nil))
	if len(history.Items) != 2 {
		t.Fatalf("history has %d entries for %s", len(history.Items), userID)
	}
	if rr := s.do(http.MethodGet, history.Items[0].ImageURL, token, nil); rr.Code != http.StatusOK {
		t.Fatalf("history image status = %d", rr.Code)
	}

	_, other := s.user("boris", 5)
	if rr := s.do(http.MethodGet, "/v1/batches/"+submitted.ID, other, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("foreign batch status = %d", rr.Code)
	}
}

func TestBatchRegenerateChargesOneItem(t *testing.T) {
	s := newServer(t)
	_, token := s.user("anna", 3)
	png := []byte{0x89, 'P', 'N', 'G'}
	rr := s.do(http.MethodPost, "/v1/batches", token, map[string]any{
		"mode":      "variation",
		"count":     2,
		"variation": map[string]any{"prompt": "autumn", "strength": 7},
		"images":    []map[string]any{{"role": "base", "mime_type": "image/png", "data": png}},
	})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d body=%s", rr.Code, rr.Body)
	}
	first := decodeBody[batchBody](t, rr)
	s.waitBatch(first.ID)

	rr = s.do(http.MethodPost, fmt.Sprintf("/v1/batches/%s/items/%s/regenerate", first.ID, first.Items[1].ID), token, nil)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("regenerate status = %d body=%s", rr.Code, rr.Body)
	}
	again := decodeBody[batchBody](t, rr)
	if len(again.Items) != 1 || again.Items[0].ID != first.Items[1].ID {
		t.Fatalf("regenerated items = %+v", again.Items)
	}
	s.waitBatch(again.ID)

	me := decodeBody[struct {
		Credits int `json:"credits"`
	}](t, s.do(http.MethodGet, "/v1/me", token, nil))
	if me.Credits != 0 {
		t.Fatalf("credits = %d, want 0", me.Credits)
	}
}

func TestBatchPreconditions(t *testing.T) {
	s := newServer(t)
	_, token := s.user("anna", 1)

	rr := s.do(http.MethodPost, "/v1/batches", token, map[string]any{
		"mode": "expert", "count": 3, "expert": map[string]any{"prompt": "fox"},
	}, "X-Locale", "ru")
	if rr.Code != http.StatusPaymentRequired {
		t.Fatalf("short balance status = %d", rr.Code)
	}
	env := decodeBody[errorEnvelope](t, rr)
	if env.Error.Code != "insufficient_balance" || env.Error.Message != "Недостаточно кредитов." {
		t.Fatalf("error = %+v", env.Error)
	}

	rr = s.do(http.MethodPost, "/v1/batches", token, map[string]any{
		"mode": "expert", "provider": "stub-text", "expert": map[string]any{"prompt": "fox", "style_enabled": true, "style": "upload"},
		"images": []map[string]any{{"role": "style", "data": []byte{1}}},
	})
	if rr.Code != http.StatusBadRequest || decodeBody[errorEnvelope](t, rr).Error.Code != "incompatible_request" {
		t.Fatalf("reference on text model: status = %d body=%s", rr.Code, rr.Body)
	}

	rr = s.do(http.MethodPost, "/v1/batches", token, map[string]any{"mode": "portrait"})
	if rr.Code != http.StatusBadRequest || decodeBody[errorEnvelope](t, rr).Error.Code != "invalid_selection" {
		t.Fatalf("portrait without upload: status = %d body=%s", rr.Code, rr.Body)
	}
	if len(s.history.entries) != 0 {
		t.Fatal("rejected batches must not record history")
	}
}

func TestAccountRoutes(t *testing.T) {
	s := newServer(t)
	adminID, adminToken := s.user("admin", 0)
	s.users.setRole(adminID, domain.UserRoleAdmin)
	_, token := s.user("anna", 0)

	if rr := s.do(http.MethodGet, "/v1/admin/promos", token, nil); rr.Code != http.StatusForbidden {
		t.Fatalf("non-admin status = %d", rr.Code)
	}
	rr := s.do(http.MethodPost, "/v1/admin/promos", adminToken, map[string]any{"name": "launch", "credits": 50})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create promo status = %d", rr.Code)
	}
	promo := decodeBody[struct {
		Code string `json:"code"`
	}](t, rr)

	rr = s.do(http.MethodPost, "/v1/me/promo", token, map[string]string{"code": strings.ToLower(promo.Code)})
	if rr.Code != http.StatusOK {
		t.Fatalf("redeem status = %d body=%s", rr.Code, rr.Body)
	}
	if got := decodeBody[map[string]int](t, rr); got["granted"] != 50 || got["credits"] != 50 {
		t.Fatalf("redeem body = %v", got)
	}
	if rr := s.do(http.MethodPost, "/v1/me/promo", token, map[string]string{"code": promo.Code}); rr.Code != http.StatusConflict {
		t.Fatalf("second redeem status = %d", rr.Code)
	}

	if rr := s.do(http.MethodPut, "/v1/me/payment", token, map[string]string{"mode": "apiKey"}); rr.Code != http.StatusBadRequest {
		t.Fatalf("own key without key status = %d", rr.Code)
	}
	rr = s.do(http.MethodPut, "/v1/me/payment", token, map[string]string{"mode": "apiKey", "api_key": "k-1"})
	profile := decodeBody[map[string]any](t, rr)
	if profile["payment_mode"] != "apiKey" || profile["has_api_key"] != true {
		t.Fatalf("profile = %v", profile)
	}
	if _, leaked := profile["api_key"]; leaked {
		t.Fatal("profile must not echo the key")
	}

	rr = s.do(http.MethodPost, "/v1/admin/users", adminToken, map[string]any{"username": "vera", "credits": 7})
	if rr.Code != http.StatusCreated {
		t.Fatalf("admin create user status = %d", rr.Code)
	}
	created := decodeBody[struct {
		Token string `json:"token"`
	}](t, rr)
	me := decodeBody[map[string]any](t, s.do(http.MethodGet, "/v1/me", created.Token, nil))
	if me["username"] != "vera" || me["credits"] != float64(7) {
		t.Fatalf("new user profile = %v", me)
	}
	if rr := s.do(http.MethodPost, "/v1/admin/users", adminToken, map[string]any{"username": "VERA"}); rr.Code != http.StatusConflict {
		t.Fatalf("duplicate username status = %d", rr.Code)
	}
	rr = s.do(http.MethodPost, "/v1/admin/users/vera/credits", adminToken, map[string]int{"amount": 3})
	if got := decodeBody[map[string]int](t, rr); got["credits"] != 10 {
		t.Fatalf("grant body = %v", got)
	}
}

func TestAdminAccessFollowsStoredRole(t *testing.T) {
	s := newServer(t)
	adminID, adminToken := s.user("admin", 0)
	s.users.setRole(adminID, domain.UserRoleAdmin)
	userID, token := s.user("anna", 0)

	if rr := s.do(http.MethodGet, "/v1/admin/promos", adminToken, nil); rr.Code != http.StatusOK {
		t.Fatalf("admin status = %d", rr.Code)
	}
	s.users.setRole(adminID, domain.UserRoleUser)
	rr := s.do(http.MethodGet, "/v1/admin/promos", adminToken, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("demoted admin status = %d", rr.Code)
	}
	if got := decodeBody[errorEnvelope](t, rr); got.Error.Code != "forbidden" {
		t.Fatalf("error = %+v", got.Error)
	}

	s.users.setRole(userID, domain.UserRoleAdmin)
	if rr := s.do(http.MethodGet, "/v1/admin/promos", token, nil); rr.Code != http.StatusOK {
		t.Fatalf("promoted user status = %d", rr.Code)
	}

	forged, err := middleware.IssueToken(testSecret, "ghost", string(domain.UserRoleAdmin), "", time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if rr := s.do(http.MethodGet, "/v1/admin/promos", forged, nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("unknown account status = %d", rr.Code)
	}
}

func TestAdminUpdateAndDeleteUser(t *testing.T) {
	s := newServer(t)
	adminID, adminToken := s.user("admin", 0)
	s.users.setRole(adminID, domain.UserRoleAdmin)
	veraID, veraToken := s.user("vera", 5)
	s.user("boris", 0)

	rr := s.do(http.MethodPatch, "/v1/admin/users/vera", adminToken, map[string]any{"username": "vera.k", "credits": 40})
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d body=%s", rr.Code, rr.Body)
	}
	if got := decodeBody[map[string]any](t, rr); got["username"] != "vera.k" || got["credits"] != float64(40) {
		t.Fatalf("updated profile = %v", got)
	}
	if rr := s.do(http.MethodPatch, "/v1/admin/users/"+veraID, adminToken, map[string]any{}); rr.Code != http.StatusBadRequest {
		t.Fatalf("empty update status = %d", rr.Code)
	}
	if rr := s.do(http.MethodPatch, "/v1/admin/users/"+veraID, adminToken, map[string]any{"username": "Boris"}); rr.Code != http.StatusConflict {
		t.Fatalf("taken username status = %d", rr.Code)
	}
	if rr := s.do(http.MethodPatch, "/v1/admin/users/"+veraID, adminToken, map[string]any{"credits": -1}); rr.Code != http.StatusBadRequest {
		t.Fatalf("negative credits status = %d", rr.Code)
	}

	rr = s.do(http.MethodPost, "/v1/batches", veraToken, map[string]any{
		"mode":   "expert",
		"expert": map[string]any{"prompt": "a lighthouse"},
	})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d body=%s", rr.Code, rr.Body)
	}
	s.waitBatch(decodeBody[batchBody](t, rr).ID)
	blobs := s.app.Blobs.(*memBlobs)
	if len(blobs.data) != 1 {
		t.Fatalf("stored images = %d", len(blobs.data))
	}

	if rr := s.do(http.MethodDelete, "/v1/admin/users/admin", adminToken, nil); rr.Code != http.StatusForbidden {
		t.Fatalf("delete admin status = %d", rr.Code)
	}
	if rr := s.do(http.MethodDelete, "/v1/admin/users/vera.k", adminToken, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d body=%s", rr.Code, rr.Body)
	}
	if len(blobs.data) != 0 {
		t.Fatalf("images left after delete: %d", len(blobs.data))
	}
	if rr := s.do(http.MethodGet, "/v1/admin/users/"+veraID, adminToken, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("deleted user status = %d", rr.Code)
	}
}

func TestHistoryDelete(t *testing.T) {
	s := newServer(t)
	_, token := s.user("anna", 5)
	_, other := s.user("boris", 0)

	rr := s.do(http.MethodPost, "/v1/batches", token, map[string]any{
		"mode":   "expert",
		"count":  2,
		"expert": map[string]any{"prompt": "a red fox"},
	})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d body=%s", rr.Code, rr.Body)
	}
	s.waitBatch(decodeBody[batchBody](t, rr).ID)

	type historyBody struct {
		Items []struct {
			ID       string `json:"id"`
			ImageURL string `json:"image_url"`
		} `json:"items"`
	}
	history := decodeBody[historyBody](t, s.do(http.MethodGet, "/v1/history", token, nil))
	if len(history.Items) != 2 {
		t.Fatalf("history has %d entries", len(history.Items))
	}
	gone := history.Items[0]
	if rr := s.do(http.MethodPost, "/v1/favorites/images", token, map[string]string{"category": "photos", "image_id": gone.ID}); rr.Code != http.StatusNoContent {
		t.Fatalf("favorite status = %d", rr.Code)
	}

	if rr := s.do(http.MethodDelete, "/v1/history/"+gone.ID, other, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("foreign delete status = %d", rr.Code)
	}
	if rr := s.do(http.MethodDelete, "/v1/history/"+gone.ID, token, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d body=%s", rr.Code, rr.Body)
	}
	if rr := s.do(http.MethodDelete, "/v1/history/"+gone.ID, token, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", rr.Code)
	}
	if rr := s.do(http.MethodGet, gone.ImageURL, token, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("deleted image status = %d", rr.Code)
	}

	history = decodeBody[historyBody](t, s.do(http.MethodGet, "/v1/history", token, nil))
	if len(history.Items) != 1 || history.Items[0].ID == gone.ID {
		t.Fatalf("history after delete = %+v", history.Items)
	}
	if blobs := s.app.Blobs.(*memBlobs); len(blobs.data) != 1 {
		t.Fatalf("stored images = %d, want 1", len(blobs.data))
	}
	fav := decodeBody[struct {
		Photos struct {
			Root []string `json:"root"`
		} `json:"photos"`
	}](t, s.do(http.MethodGet, "/v1/favorites", token, nil))
	if len(fav.Photos.Root) != 0 {
		t.Fatalf("favorites still list %v", fav.Photos.Root)
	}
}

func TestFavoritesRoutes(t *testing.T) {
	s := newServer(t)
	_, token := s.user("anna", 0)

	rr := s.do(http.MethodPost, "/v1/favorites/folders", token, map[string]string{"category": "avatars", "name": "Work"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create folder status = %d body=%s", rr.Code, rr.Body)
	}
	folder := decodeBody[struct {
		ID string `json:"id"`
	}](t, rr)

	if rr := s.do(http.MethodPost, "/v1/favorites/folders", token, map[string]string{"category": "videos", "name": "x"}); rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown category status = %d", rr.Code)
	}
	if rr := s.do(http.MethodPost, "/v1/favorites/images", token, map[string]string{"category": "avatars", "folder_id": folder.ID, "image_id": "img-1"}); rr.Code != http.StatusNoContent {
		t.Fatalf("add image status = %d", rr.Code)
	}
	if rr := s.do(http.MethodPatch, "/v1/favorites/folders/"+folder.ID, token, map[string]string{"name": "Office"}); rr.Code != http.StatusNoContent {
		t.Fatalf("rename status = %d", rr.Code)
	}

	fav := decodeBody[struct {
		Avatars struct {
			Folders []struct {
				Name   string   `json:"name"`
				Images []string `json:"images"`
			} `json:"folders"`
		} `json:"avatars"`
	}](t, s.do(http.MethodGet, "/v1/favorites", token, nil))
	if len(fav.Avatars.Folders) != 1 || fav.Avatars.Folders[0].Name != "Office" || len(fav.Avatars.Folders[0].Images) != 1 {
		t.Fatalf("favorites = %+v", fav)
	}

	if rr := s.do(http.MethodDelete, "/v1/favorites/images/img-1", token, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("remove image status = %d", rr.Code)
	}
	if rr := s.do(http.MethodDelete, "/v1/favorites/folders/missing", token, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("delete missing folder status = %d", rr.Code)
	}
}
