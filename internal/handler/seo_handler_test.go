package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"seo-assistant/internal/domain/content"
	response "seo-assistant/internal/infra/common"
	"seo-assistant/internal/repository"
	settingssvc "seo-assistant/internal/service/settings"
	"seo-assistant/internal/service/socialimage"
	suggestionsvc "seo-assistant/internal/service/suggestion"
)

func newTestSeoHandler(t *testing.T) (*SeoHandler, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&content.Post{}, &content.PostMeta{}, &content.Setting{}, &content.Attachment{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	postRepo := repository.NewPostRepository(db)
	settingsService := settingssvc.NewService(repository.NewSettingsRepository(db))
	suggestionService := suggestionsvc.NewService(postRepo, settingsService)
	socialService := socialimage.NewService(postRepo, repository.NewAttachmentRepository(db))

	return NewSeoHandler(suggestionService, socialService, settingsService, postRepo, nil, SeoRateLimit{}), db
}

func newSeoRouter(h *SeoHandler, userID uint, admin bool) *gin.Engine {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if userID != 0 {
			c.Set("userID", userID)
			c.Set("isAdmin", admin)
		}
		c.Next()
	})
	router.POST("/suggest", h.Suggest)
	router.POST("/apply", h.Apply)
	router.GET("/settings", h.GetSettings)
	router.PUT("/settings", h.UpdateSettings)
	return router
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, w.Body.String())
	}
	return resp
}

func TestSuggestRejectsMissingPostID(t *testing.T) {
	t.Setenv("SEO_ASSISTANT_MODEL", "heuristic")
	h, _ := newTestSeoHandler(t)
	router := newSeoRouter(h, 1, false)

	w := doJSON(router, http.MethodPost, "/suggest", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	resp := decodeResponse(t, w)
	if resp.Error == nil || resp.Error.Code != response.ErrInvalidPostID {
		t.Fatalf("expected INVALID_POST_ID, got %+v", resp.Error)
	}
}

func TestSuggestRequiresAuthentication(t *testing.T) {
	h, _ := newTestSeoHandler(t)
	router := newSeoRouter(h, 0, false)

	w := doJSON(router, http.MethodPost, "/suggest", `{"post_id":1}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", w.Code)
	}
}

func TestSuggestForbiddenForOtherAuthor(t *testing.T) {
	t.Setenv("SEO_ASSISTANT_MODEL", "heuristic")
	h, db := newTestSeoHandler(t)

	post := content.Post{AuthorID: 7, Title: "Home", Content: "Body text here."}
	if err := db.Create(&post).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}

	router := newSeoRouter(h, 2, false)
	w := doJSON(router, http.MethodPost, "/suggest", `{"post_id":1}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d (%s)", w.Code, w.Body.String())
	}
}

func TestSuggestAdminBypassesOwnership(t *testing.T) {
	t.Setenv("SEO_ASSISTANT_MODEL", "heuristic")
	h, db := newTestSeoHandler(t)

	post := content.Post{AuthorID: 7, Title: "Home", Content: "Acme ships enterprise widgets. More text."}
	if err := db.Create(&post).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}

	router := newSeoRouter(h, 2, true)
	w := doJSON(router, http.MethodPost, "/suggest", `{"post_id":1}`)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d (%s)", w.Code, w.Body.String())
	}
	resp := decodeResponse(t, w)
	data, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("unexpected data shape: %T", resp.Data)
	}
	if _, ok := data["suggestions"]; !ok {
		t.Fatalf("suggestions missing from payload: %v", data)
	}
	if _, ok := data["current_meta"]; !ok {
		t.Fatalf("current_meta missing from payload: %v", data)
	}
}

func TestSuggestUnknownPostReturnsNotFound(t *testing.T) {
	t.Setenv("SEO_ASSISTANT_MODEL", "heuristic")
	h, _ := newTestSeoHandler(t)
	router := newSeoRouter(h, 1, false)

	w := doJSON(router, http.MethodPost, "/suggest", `{"post_id":404}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d (%s)", w.Code, w.Body.String())
	}
}

func TestApplyEndpointWritesMeta(t *testing.T) {
	t.Setenv("SEO_ASSISTANT_PLUGIN", "tsf")
	h, db := newTestSeoHandler(t)

	post := content.Post{AuthorID: 1, Title: "Home", Content: "Body"}
	if err := db.Create(&post).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}

	router := newSeoRouter(h, 1, false)
	w := doJSON(router, http.MethodPost, "/apply",
		`{"post_id":1,"meta_title":"New Title","meta_description":"Desc","apply":{"meta_description":false}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d (%s)", w.Code, w.Body.String())
	}
	resp := decodeResponse(t, w)
	data, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("unexpected data shape: %T", resp.Data)
	}
	keys, ok := data["updated_keys"].([]any)
	if !ok || len(keys) != 1 || keys[0] != "_genesis_title" {
		t.Fatalf("unexpected updated keys: %v", data["updated_keys"])
	}

	var count int64
	if err := db.Model(&content.PostMeta{}).Where("post_id = ? AND meta_key = ?", post.ID, "_genesis_description").Count(&count).Error; err != nil {
		t.Fatalf("count meta: %v", err)
	}
	if count != 0 {
		t.Fatalf("flagged-off field must not be written")
	}
}

func TestApplyEndpointRejectsWhenTSFInactive(t *testing.T) {
	t.Setenv("SEO_ASSISTANT_TSF_ACTIVE", "0")
	h, db := newTestSeoHandler(t)

	post := content.Post{AuthorID: 1, Title: "Home", Content: "Body"}
	if err := db.Create(&post).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}

	router := newSeoRouter(h, 1, false)
	w := doJSON(router, http.MethodPost, "/apply", `{"post_id":1,"meta_title":"New Title"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("unexpected status: %d (%s)", w.Code, w.Body.String())
	}
	resp := decodeResponse(t, w)
	if resp.Error == nil || resp.Error.Code != response.ErrTSFInactive {
		t.Fatalf("expected TSF_INACTIVE, got %+v", resp.Error)
	}
}

func TestSuggestRejectsWhenTSFInactive(t *testing.T) {
	t.Setenv("SEO_ASSISTANT_TSF_ACTIVE", "false")
	h, db := newTestSeoHandler(t)

	post := content.Post{AuthorID: 1, Title: "Home", Content: "Body"}
	if err := db.Create(&post).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}

	router := newSeoRouter(h, 1, false)
	w := doJSON(router, http.MethodPost, "/suggest", `{"post_id":1}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("unexpected status: %d (%s)", w.Code, w.Body.String())
	}
	resp := decodeResponse(t, w)
	if resp.Error == nil || resp.Error.Code != response.ErrTSFInactive {
		t.Fatalf("expected TSF_INACTIVE, got %+v", resp.Error)
	}
}

func TestSettingsEndpointsRequireAdmin(t *testing.T) {
	h, _ := newTestSeoHandler(t)
	router := newSeoRouter(h, 1, false)

	w := doJSON(router, http.MethodGet, "/settings", "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("get settings should require admin: %d", w.Code)
	}
	w = doJSON(router, http.MethodPut, "/settings", `{"ai_model":"openai"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("update settings should require admin: %d", w.Code)
	}
}

func TestSettingsUpdateAndReadBack(t *testing.T) {
	h, _ := newTestSeoHandler(t)
	router := newSeoRouter(h, 1, true)

	w := doJSON(router, http.MethodPut, "/settings", `{"ai_model":"openai","openai_api_key":"sk-secret"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d (%s)", w.Code, w.Body.String())
	}

	w = doJSON(router, http.MethodGet, "/settings", "")
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d (%s)", w.Code, w.Body.String())
	}
	resp := decodeResponse(t, w)
	data, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("unexpected data shape: %T", resp.Data)
	}
	if data["ai_model"] != "openai" {
		t.Fatalf("saved model should read back: %v", data)
	}
	if data["openai_key_set"] != true {
		t.Fatalf("key presence flag expected: %v", data)
	}
	if _, leaked := data["openai_api_key"]; leaked {
		t.Fatalf("api key must not be exposed: %v", data)
	}
	if strings.Contains(w.Body.String(), "sk-secret") {
		t.Fatalf("plaintext key leaked in response")
	}
}

func TestSettingsUpdateRejectsUnknownPlugin(t *testing.T) {
	h, _ := newTestSeoHandler(t)
	router := newSeoRouter(h, 1, true)

	w := doJSON(router, http.MethodPut, "/settings", `{"seo_plugin":"rankmath"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status: %d (%s)", w.Code, w.Body.String())
	}
	resp := decodeResponse(t, w)
	if resp.Error == nil || resp.Error.Code != response.ErrSeoPluginUnsupported {
		t.Fatalf("expected SEO_PLUGIN_UNSUPPORTED, got %+v", resp.Error)
	}
}
