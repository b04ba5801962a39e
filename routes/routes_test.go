package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-content-platform/internal/ai"
	"social-content-platform/internal/analytics"
	"social-content-platform/internal/instagram"
	"social-content-platform/middleware"
	"social-content-platform/models"
	"social-content-platform/services"
	"social-content-platform/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testUser = primitive.NewObjectID()

// newTestRouter authenticates every request as testUser.
func newTestRouter(setup func(g *gin.RouterGroup)) *gin.Engine {
	r := gin.New()
	g := r.Group("")
	g.Use(func(c *gin.Context) {
		if c.GetHeader("X-Anonymous") == "" {
			middleware.SetUserID(c, testUser)
		}
		c.Next()
	})
	setup(g)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body utils.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.ErrorCode
}

type fakeSuggestionAPI struct {
	gotSource models.Source
	gotID     primitive.ObjectID
	err       error
}

func (f *fakeSuggestionAPI) GetOrGenerate(_ context.Context, userID primitive.ObjectID, source models.Source) ([]models.ContentSuggestion, error) {
	f.gotSource = source
	if f.err != nil {
		return nil, f.err
	}
	return []models.ContentSuggestion{{ID: primitive.NewObjectID(), UserID: userID, Title: "One", Source: source, ImageURLs: []string{}}}, nil
}

func (f *fakeSuggestionAPI) RefreshOne(_ context.Context, userID, id primitive.ObjectID) (*models.ContentSuggestion, error) {
	f.gotID = id
	if f.err != nil {
		return nil, f.err
	}
	return &models.ContentSuggestion{ID: id, UserID: userID, Refreshed: true}, nil
}

type fakeExporter struct{}

func (fakeExporter) Export(_ context.Context, _ primitive.ObjectID, source models.Source, format string) (*services.ExportFile, error) {
	if format != services.ExportFormatJSON && format != services.ExportFormatExcel {
		return nil, fmt.Errorf("%w: %q", services.ErrUnsupportedFormat, format)
	}
	return &services.ExportFile{Filename: "s." + format, ContentType: "application/json", Data: []byte("[]"), Records: 0}, nil
}

func suggestionRouter(api *fakeSuggestionAPI) *gin.Engine {
	return newTestRouter(func(g *gin.RouterGroup) {
		SetupSuggestionRoutes(g, api, fakeExporter{})
	})
}

func TestGetSuggestions(t *testing.T) {
	api := &fakeSuggestionAPI{}
	r := suggestionRouter(api)

	w := do(r, http.MethodGet, "/ai/suggestions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.SourceProfile, api.gotSource)

	var got []models.ContentSuggestion
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got, 1)

	w = do(r, http.MethodGet, "/ai/suggestions?source=instagramProfile", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.SourceInstagram, api.gotSource)
}

func TestGetSuggestionsErrors(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		err    error
		status int
		code   string
	}{
		{"unknown source", "?source=tiktok", nil, http.StatusBadRequest, "bad_request"},
		{"no profile", "", services.ErrProfileNotFound, http.StatusNotFound, "not_found"},
		{"malformed output", "", fmt.Errorf("parse: %w", ai.ErrMalformedResponse), http.StatusInternalServerError, "generation_failed"},
		{"rate limited", "", fmt.Errorf("text generation: %w", ai.ErrRateLimited), http.StatusInternalServerError, "generation_failed"},
		{"store down", "", errors.New("mongo timeout"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := suggestionRouter(&fakeSuggestionAPI{err: tt.err})
			w := do(r, http.MethodGet, "/ai/suggestions"+tt.query, "")
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}
}

func TestGetSuggestionsRequiresUser(t *testing.T) {
	r := suggestionRouter(&fakeSuggestionAPI{})
	req := httptest.NewRequest(http.MethodGet, "/ai/suggestions", nil)
	req.Header.Set("X-Anonymous", "1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshSuggestion(t *testing.T) {
	api := &fakeSuggestionAPI{}
	r := suggestionRouter(api)
	id := primitive.NewObjectID()

	w := do(r, http.MethodPut, "/ai/suggestions/"+id.Hex()+"/refresh", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, api.gotID)

	var got models.ContentSuggestion
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.Refreshed)

	w = do(r, http.MethodPut, "/ai/suggestions/not-an-id/refresh", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	r = suggestionRouter(&fakeSuggestionAPI{err: services.ErrSuggestionNotFound})
	w = do(r, http.MethodPut, "/ai/suggestions/"+id.Hex()+"/refresh", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportSuggestions(t *testing.T) {
	r := suggestionRouter(&fakeSuggestionAPI{})

	w := do(r, http.MethodGet, "/ai/suggestions/export?format=json", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "s.json")
	assert.Equal(t, "0", w.Header().Get("X-Record-Count"))

	w = do(r, http.MethodGet, "/ai/suggestions/export?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type fakeProfileAPI struct {
	stored *models.BusinessProfile
}

func (f *fakeProfileAPI) GetByUser(context.Context, primitive.ObjectID) (*models.BusinessProfile, error) {
	if f.stored == nil {
		return nil, services.ErrProfileNotFound
	}
	return f.stored, nil
}

func (f *fakeProfileAPI) Upsert(_ context.Context, p *models.BusinessProfile) (*models.BusinessProfile, error) {
	f.stored = p
	return p, nil
}

func TestBusinessProfileRoutes(t *testing.T) {
	api := &fakeProfileAPI{}
	r := newTestRouter(func(g *gin.RouterGroup) { SetupBusinessProfileRoutes(g, api) })

	w := do(r, http.MethodGet, "/business-profile", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPut, "/business-profile", `{"business_name":"Crumbs","business_type":"Bakery","platforms":["Instagram"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, api.stored)
	assert.Equal(t, testUser, api.stored.UserID)
	assert.Equal(t, models.ToneFriendly, api.stored.ToneOfVoice)
	assert.True(t, api.stored.EmojisAllowed)

	w = do(r, http.MethodGet, "/business-profile", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPut, "/business-profile", `{"business_name":"Crumbs","business_type":"Bakery","tone_of_voice":"Sarcastic"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPut, "/business-profile", `{"business_type":"Bakery"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type fakeInstagramAPI struct {
	connected  *models.InstagramConnectRequest
	syncCalls  int
	limit      int
	publishErr error
}

func (f *fakeInstagramAPI) Connect(_ context.Context, _ primitive.ObjectID, req *models.InstagramConnectRequest) error {
	f.connected = req
	return nil
}

func (f *fakeInstagramAPI) SyncUser(context.Context, primitive.ObjectID) (int, error) {
	f.syncCalls++
	return 7, nil
}

func (f *fakeInstagramAPI) TopPosts(_ context.Context, _ primitive.ObjectID, limit int) ([]models.InstagramPost, error) {
	f.limit = limit
	return []models.InstagramPost{}, nil
}

func (f *fakeInstagramAPI) Publish(context.Context, primitive.ObjectID, primitive.ObjectID) (string, error) {
	if f.publishErr != nil {
		return "", f.publishErr
	}
	return "media-1", nil
}

type fakeQueue struct {
	err   error
	calls int
}

func (f *fakeQueue) EnqueueSync(context.Context, primitive.ObjectID, string) error {
	f.calls++
	return f.err
}

func TestInstagramConnectAndTopPosts(t *testing.T) {
	api := &fakeInstagramAPI{}
	r := newTestRouter(func(g *gin.RouterGroup) { SetupInstagramRoutes(g, api, nil) })

	w := do(r, http.MethodPut, "/instagram/connect", `{"instagram_user_id":"1784","access_token":"tok"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1784", api.connected.InstagramUserID)
	assert.NotContains(t, w.Body.String(), "tok")

	w = do(r, http.MethodPut, "/instagram/connect", `{"instagram_user_id":"1784"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/instagram/posts/top", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ai.TopPostsInPrompt, api.limit)

	w = do(r, http.MethodGet, "/instagram/posts/top?limit=10", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, api.limit)

	w = do(r, http.MethodGet, "/instagram/posts/top?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInstagramSync(t *testing.T) {
	api := &fakeInstagramAPI{}
	q := &fakeQueue{}
	r := newTestRouter(func(g *gin.RouterGroup) { SetupInstagramRoutes(g, api, q) })

	w := do(r, http.MethodPost, "/instagram/sync", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, q.calls)
	assert.Zero(t, api.syncCalls)

	q.err = errors.New("redis down")
	w = do(r, http.MethodPost, "/instagram/sync", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, api.syncCalls)

	inline := newTestRouter(func(g *gin.RouterGroup) { SetupInstagramRoutes(g, api, nil) })
	w = do(inline, http.MethodPost, "/instagram/sync", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, api.syncCalls)
}

func TestInstagramPublish(t *testing.T) {
	api := &fakeInstagramAPI{}
	r := newTestRouter(func(g *gin.RouterGroup) { SetupInstagramRoutes(g, api, nil) })
	id := primitive.NewObjectID().Hex()

	w := do(r, http.MethodPost, "/instagram/publish", `{"suggestion_id":"`+id+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "media-1")

	w = do(r, http.MethodPost, "/instagram/publish", `{"suggestion_id":"xyz"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	api.publishErr = services.ErrInstagramNotConnected
	w = do(r, http.MethodPost, "/instagram/publish", `{"suggestion_id":"`+id+`"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "instagram_not_connected", errorCode(t, w))

	api.publishErr = fmt.Errorf("publish: %w", &instagram.APIError{StatusCode: 400, Message: "bad image"})
	w = do(r, http.MethodPost, "/instagram/publish", `{"suggestion_id":"`+id+`"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

type fakeVisits struct{ err error }

func (f fakeVisits) YesterdayVisits(context.Context) (*analytics.SiteVisits, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &analytics.SiteVisits{PropertyID: "1", ActiveUsers: 12, DateRange: "yesterday"}, nil
}

type fakeInsights struct{}

func (fakeInsights) Insights(context.Context, primitive.ObjectID) (*services.InstagramInsights, error) {
	return &services.InstagramInsights{Posts: 2, TotalLikes: 10, AverageLikes: 5}, nil
}

func TestAnalyticsRoutes(t *testing.T) {
	r := newTestRouter(func(g *gin.RouterGroup) { SetupAnalyticsRoutes(g, fakeVisits{}, fakeInsights{}) })

	w := do(r, http.MethodGet, "/analytics/site-visits", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"active_users":12`)

	w = do(r, http.MethodGet, "/analytics/instagram", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"average_likes":5`)

	unconfigured := newTestRouter(func(g *gin.RouterGroup) { SetupAnalyticsRoutes(g, nil, fakeInsights{}) })
	w = do(unconfigured, http.MethodGet, "/analytics/site-visits", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
