package suggestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"seo-assistant/internal/domain/content"
	"seo-assistant/internal/infra/model/openai"
	"seo-assistant/internal/repository"
	settingssvc "seo-assistant/internal/service/settings"
)

func setupSuggestionService(t *testing.T, dsn string) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&content.Post{}, &content.PostMeta{}, &content.Setting{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { sqlDB.Close() })

	postRepo := repository.NewPostRepository(db)
	settingsService := settingssvc.NewService(repository.NewSettingsRepository(db))
	return NewService(postRepo, settingsService), db
}

type stubHook struct {
	bundle *Bundle
	err    error
	calls  int
}

func (h *stubHook) Generate(ctx context.Context, model string, payload GenerationPayload) (*Bundle, error) {
	h.calls++
	return h.bundle, h.err
}

func TestBuildHeuristicModel(t *testing.T) {
	t.Setenv("SEO_ASSISTANT_MODEL", "heuristic")
	service, _ := setupSuggestionService(t, "file:suggest-heuristic?mode=memory&cache=shared")

	bundle, err := service.Build(context.Background(), GenerationPayload{
		PostID:  1,
		Title:   "Home",
		Content: "Acme ships enterprise widgets. Learn more about pricing.",
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if bundle.ModelUsed != settingssvc.ModelHeuristic {
		t.Fatalf("unexpected model label: %q", bundle.ModelUsed)
	}
	if bundle.MetaDescription != "Acme ships enterprise widgets." {
		t.Fatalf("unexpected description: %q", bundle.MetaDescription)
	}
}

func TestBuildHookTakesPrecedence(t *testing.T) {
	t.Setenv("SEO_ASSISTANT_MODEL", "openai")
	service, _ := setupSuggestionService(t, "file:suggest-hook?mode=memory&cache=shared")

	failing := &stubHook{err: errors.New("hook unavailable")}
	winning := &stubHook{bundle: &Bundle{MetaTitle: "Hooked Title", ModelUsed: "custom"}}
	service.RegisterHook(failing)
	service.RegisterHook(winning)

	bundle, err := service.Build(context.Background(), GenerationPayload{
		PostID:  1,
		Title:   "Home",
		Content: "Acme ships enterprise widgets. Learn more about pricing.",
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if failing.calls != 1 || winning.calls != 1 {
		t.Fatalf("hooks should be consulted in order: %d/%d", failing.calls, winning.calls)
	}
	if bundle.MetaTitle != "Hooked Title" {
		t.Fatalf("hook field should win: %q", bundle.MetaTitle)
	}
	if bundle.MetaDescription != "Acme ships enterprise widgets." {
		t.Fatalf("heuristic field should fill gaps: %q", bundle.MetaDescription)
	}
	if bundle.ModelUsed != "custom" {
		t.Fatalf("hook model label should survive: %q", bundle.ModelUsed)
	}
}

func TestBuildHeuristicModelSkipsHooks(t *testing.T) {
	t.Setenv("SEO_ASSISTANT_MODEL", "heuristic")
	service, _ := setupSuggestionService(t, "file:suggest-hook-skip?mode=memory&cache=shared")

	hook := &stubHook{bundle: &Bundle{MetaTitle: "Hooked Title", ModelUsed: "custom"}}
	service.RegisterHook(hook)

	bundle, err := service.Build(context.Background(), GenerationPayload{
		PostID:  1,
		Title:   "Home",
		Content: "Acme ships enterprise widgets. Learn more about pricing.",
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if hook.calls != 0 {
		t.Fatalf("hooks must not run for the heuristic model, consulted %d times", hook.calls)
	}
	if bundle.MetaTitle == "Hooked Title" {
		t.Fatalf("heuristic result should be returned untouched: %+v", bundle)
	}
	if bundle.ModelUsed != settingssvc.ModelHeuristic {
		t.Fatalf("unexpected model label: %q", bundle.ModelUsed)
	}
}

func TestBuildOpenAISuccessMergesOverHeuristic(t *testing.T) {
	payload := map[string]string{
		"meta_title":       "AI Title",
		"meta_description": "AI description.",
	}
	reply, _ := json.Marshal(payload)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer token")
		}
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.MaxTokens != 250 || req.Temperature != 0.4 {
			t.Errorf("unexpected sampling params: %+v", req)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
			t.Errorf("expected json_object response format")
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q}}],"usage":{"prompt_tokens":10,"completion_tokens":20,"total_tokens":30}}`, string(reply))
	}))
	defer server.Close()

	t.Setenv("SEO_ASSISTANT_MODEL", "openai")
	t.Setenv("SEO_ASSISTANT_OPENAI_KEY", "test-key")
	t.Setenv("SEO_ASSISTANT_OPENAI_BASE_URL", server.URL)
	service, _ := setupSuggestionService(t, "file:suggest-openai?mode=memory&cache=shared")

	bundle, err := service.Build(context.Background(), GenerationPayload{
		PostID:  1,
		Title:   "Home",
		Content: "Acme ships enterprise widgets. Learn more about pricing.",
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if bundle.MetaTitle != "AI Title" || bundle.MetaDescription != "AI description." {
		t.Fatalf("provider fields should win: %+v", bundle)
	}
	if bundle.OpenGraphDescription != "Acme ships enterprise widgets." {
		t.Fatalf("heuristic should fill fields the provider left empty: %q", bundle.OpenGraphDescription)
	}
	if len(bundle.Keywords) == 0 {
		t.Fatalf("heuristic keywords should survive the merge")
	}
	if bundle.ModelUsed != settingssvc.ModelOpenAI {
		t.Fatalf("unexpected model label: %q", bundle.ModelUsed)
	}
}

func TestBuildOpenAIToleratesExtraReplyKeys(t *testing.T) {
	reply := `{"meta_title":"AI Title","meta_description":"AI description.","keywords":["a","b"],"confidence":0.9}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q}}]}`, reply)
	}))
	defer server.Close()

	t.Setenv("SEO_ASSISTANT_MODEL", "openai")
	t.Setenv("SEO_ASSISTANT_OPENAI_KEY", "test-key")
	t.Setenv("SEO_ASSISTANT_OPENAI_BASE_URL", server.URL)
	service, _ := setupSuggestionService(t, "file:suggest-extra-keys?mode=memory&cache=shared")

	bundle, err := service.Build(context.Background(), GenerationPayload{
		PostID:  1,
		Title:   "Home",
		Content: "Acme ships enterprise widgets.",
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if bundle.MetaTitle != "AI Title" || bundle.MetaDescription != "AI description." {
		t.Fatalf("recognized string fields should be mapped: %+v", bundle)
	}
}

func TestBuildOpenAIServerErrorFailsLoud(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"upstream exploded","type":"server_error"}}`)
	}))
	defer server.Close()

	t.Setenv("SEO_ASSISTANT_MODEL", "openai")
	t.Setenv("SEO_ASSISTANT_OPENAI_KEY", "test-key")
	t.Setenv("SEO_ASSISTANT_OPENAI_BASE_URL", server.URL)
	service, _ := setupSuggestionService(t, "file:suggest-500?mode=memory&cache=shared")

	_, err := service.Build(context.Background(), GenerationPayload{
		PostID:  1,
		Title:   "Home",
		Content: "Acme ships enterprise widgets.",
	})
	if err == nil {
		t.Fatalf("expected provider failure to surface")
	}
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", apiErr.StatusCode)
	}
}

func TestBuildOpenAIMissingKeySkipsHTTP(t *testing.T) {
	var requests int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
	}))
	defer server.Close()

	t.Setenv("SEO_ASSISTANT_MODEL", "openai")
	t.Setenv("SEO_ASSISTANT_OPENAI_KEY", "")
	t.Setenv("SEO_ASSISTANT_OPENAI_BASE_URL", server.URL)
	service, _ := setupSuggestionService(t, "file:suggest-nokey?mode=memory&cache=shared")

	_, err := service.Build(context.Background(), GenerationPayload{
		PostID:  1,
		Title:   "Home",
		Content: "Acme ships enterprise widgets.",
	})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if atomic.LoadInt64(&requests) != 0 {
		t.Fatalf("no HTTP call expected without an api key, saw %d", requests)
	}
}

func TestBuildUnknownModelFallsBackToHeuristic(t *testing.T) {
	t.Setenv("SEO_ASSISTANT_MODEL", "quantum")
	service, _ := setupSuggestionService(t, "file:suggest-unknown?mode=memory&cache=shared")

	bundle, err := service.Build(context.Background(), GenerationPayload{
		PostID:  1,
		Title:   "Home",
		Content: "Acme ships enterprise widgets.",
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if bundle.ModelUsed != "quantum" {
		t.Fatalf("fallback should keep the configured label: %q", bundle.ModelUsed)
	}
	if bundle.MetaDescription != "Acme ships enterprise widgets." {
		t.Fatalf("fallback should carry heuristic output: %q", bundle.MetaDescription)
	}
}

func TestBuildInputLoadsPostWhenEmpty(t *testing.T) {
	t.Setenv("SEO_ASSISTANT_MODEL", "heuristic")
	service, db := setupSuggestionService(t, "file:suggest-load?mode=memory&cache=shared")

	post := content.Post{AuthorID: 1, Title: "Stored Title", Content: "Stored body text here. Second sentence."}
	if err := db.Create(&post).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}

	bundle, err := service.Build(context.Background(), GenerationPayload{PostID: post.ID})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if bundle.MetaDescription != "Stored body text here." {
		t.Fatalf("expected description from stored content: %q", bundle.MetaDescription)
	}

	_, err = service.Build(context.Background(), GenerationPayload{PostID: 9999})
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
}
