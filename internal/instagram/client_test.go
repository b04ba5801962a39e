package instagram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchMediaFollowsPaging(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/media", r.URL.Path)
		assert.Equal(t, "tok", r.URL.Query().Get("access_token"))

		switch r.URL.Query().Get("after") {
		case "":
			assert.Equal(t, mediaFields, r.URL.Query().Get("fields"))
			fmt.Fprintf(w, `{"data":[
				{"id":"1","caption":"first #sun","media_type":"IMAGE","media_url":"https://cdn/1.jpg","timestamp":"2024-05-01T10:00:00+0000","like_count":10,"comments_count":2},
				{"id":"2","caption":"second","media_type":"VIDEO","timestamp":"2024-05-02T10:00:00+0000","like_count":3}
			],"paging":{"next":"%s/me/media?access_token=tok&after=p2"}}`, srv.URL)
		case "p2":
			_, _ = w.Write([]byte(`{"data":[{"id":"2","caption":"dup"},{"id":"3","caption":"third"}],"paging":{}}`))
		}
	}))
	defer srv.Close()

	c := NewClient(Config{GraphURL: srv.URL, RequestsPerSecond: 1000})
	media, err := c.FetchMedia(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, media, 3)

	assert.Equal(t, "1", media[0].ID)
	assert.Equal(t, 10, media[0].LikeCount)
	assert.Equal(t, 2024, media[0].Timestamp.Year())
	assert.Equal(t, "second", media[1].Caption)
	assert.Equal(t, "3", media[2].ID)
}

func TestFetchMediaPageCap(t *testing.T) {
	calls := 0
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprintf(w, `{"data":[{"id":"%d"}],"paging":{"next":"%s/me/media?after=%d"}}`, calls, srv.URL, calls)
	}))
	defer srv.Close()

	c := NewClient(Config{GraphURL: srv.URL, PageCap: 3, RequestsPerSecond: 1000})
	media, err := c.FetchMedia(context.Background(), "tok")
	require.NoError(t, err)
	assert.Len(t, media, 3)
	assert.Equal(t, 3, calls)
}

func TestFetchMediaAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","code":190}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{GraphURL: srv.URL, RequestsPerSecond: 1000})
	_, err := c.FetchMedia(context.Background(), "bad")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Invalid OAuth access token", apiErr.Message)
}

func TestPublish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "tok", r.PostForm.Get("access_token"))

		switch r.URL.Path {
		case "/1784/media":
			assert.Equal(t, "https://cdn/img.png", r.PostForm.Get("image_url"))
			assert.Equal(t, "Hello #bakery", r.PostForm.Get("caption"))
			_, _ = w.Write([]byte(`{"id":"container-1"}`))
		case "/1784/media_publish":
			assert.Equal(t, "container-1", r.PostForm.Get("creation_id"))
			_, _ = w.Write([]byte(`{"id":"media-9"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(Config{FacebookURL: srv.URL, RequestsPerSecond: 1000})
	id, err := c.Publish(context.Background(), "1784", "tok", "https://cdn/img.png", "Hello #bakery")
	require.NoError(t, err)
	assert.Equal(t, "media-9", id)
}

func TestPublishRequiresImage(t *testing.T) {
	c := NewClient(Config{})
	_, err := c.Publish(context.Background(), "1", "tok", "", "caption")
	assert.ErrorIs(t, err, ErrNoImage)
}
