package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/client"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/models"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/storage"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	oldGrant = `{"success":true,"data":{"user":{"email":"a@b.com","role":"user"},"token":"old-token","refresh_token":"r1","expires_in":600}}`
	newGrant = `{"success":true,"data":{"user":{"email":"a@b.com","role":"user"},"token":"new-token","refresh_token":"r2","expires_in":600}}`
)

func TestConcurrentRejectionsShareOneRefresh(t *testing.T) {
	const n = 5

	var (
		refreshCalls atomic.Int32
		replays      atomic.Int32
		rejected     atomic.Int32
		allRejected  = make(chan struct{})
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, oldGrant)
	})
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		_, _ = io.WriteString(w, newGrant)
	})
	mux.HandleFunc("/api/things", func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get(common.AuthorizationHeaderName) {
		case "Bearer old-token":
			// hold every stale request until all of them are in flight
			if rejected.Add(1) == n {
				close(allRejected)
			}
			<-allRejected
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"success":false,"error":"Token expired"}`)
		case "Bearer new-token":
			replays.Add(1)
			_, _ = io.WriteString(w, `{"success":true,"data":{"ok":true}}`)
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	api := client.NewHTTPClient(srv.URL + "/api")
	ctl := NewSessionController(api, storage.New(metadata.NewMemoryRepository(), "test"))

	_, err := ctl.Login(context.Background(), models.LoginRequest{Email: "a@b.com", Password: "Secret1!"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var out struct {
				OK bool `json:"ok"`
			}
			errs[i] = ctl.Do(context.Background(), http.MethodGet, "/things", nil, &out)
			if errs[i] == nil && !out.OK {
				errs[i] = assert.AnError
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoErrorf(t, err, "request %d", i)
	}
	assert.EqualValues(t, 1, refreshCalls.Load())
	assert.EqualValues(t, n, replays.Load())
	assert.Equal(t, "new-token", ctl.AccessToken())
	assert.Equal(t, "r2", ctl.State().RefreshToken)
}
