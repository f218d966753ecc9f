// Package test provides a fake provider and a wired engine for handler tests.
package test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"witweb-studio/config"
	"witweb-studio/internal/database"
	"witweb-studio/internal/provider"
	"witweb-studio/internal/services"
)

// FakeProvider serves the provider API with scripted task states
type FakeProvider struct {
	Server *httptest.Server

	mu         sync.Mutex
	nextID     string
	submitCode int
	submits    []map[string]interface{}
	results    map[string]string
	downloads  int
}

func NewFakeProvider(t *testing.T) *FakeProvider {
	t.Helper()
	fp := &FakeProvider{nextID: "task-1", results: map[string]string{}}
	fp.Server = httptest.NewServer(http.HandlerFunc(fp.serve))
	t.Cleanup(fp.Server.Close)
	return fp
}

func (fp *FakeProvider) serve(w http.ResponseWriter, r *http.Request) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	switch r.URL.Path {
	case provider.CreateVideoPath, provider.UploadCharacterPath, provider.CreateCharacterPath:
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		fp.submits = append(fp.submits, body)
		if fp.submitCode != 0 {
			fmt.Fprintf(w, `{"code":%d,"msg":"rejected"}`, fp.submitCode)
			return
		}
		fmt.Fprintf(w, `{"code":0,"msg":"ok","data":{"id":%q}}`, fp.nextID)
	case provider.ResultPath:
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		data, ok := fp.results[body["id"]]
		if !ok {
			fmt.Fprint(w, `{"code":-1,"msg":"task not found"}`)
			return
		}
		fmt.Fprintf(w, `{"code":0,"msg":"ok","data":%s}`, data)
	case provider.CreditsPath:
		fmt.Fprint(w, `{"code":0,"data":{"credits":100}}`)
	case provider.ModelStatusPath:
		fmt.Fprintf(w, `{"code":0,"data":{"model":%q,"status":true}}`, r.URL.Query().Get("model"))
	case "/video.mp4":
		fp.downloads++
		w.Write([]byte("fake mp4 bytes"))
	default:
		http.NotFound(w, r)
	}
}

// SetNextID sets the id returned by the next submissions
func (fp *FakeProvider) SetNextID(id string) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.nextID = id
}

// RejectSubmits makes create calls answer with a non-zero code
func (fp *FakeProvider) RejectSubmits(code int) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.submitCode = code
}

func (fp *FakeProvider) SetRunning(id string, progress int) {
	fp.set(id, fmt.Sprintf(`{"id":%q,"status":"running","progress":%d}`, id, progress))
}

func (fp *FakeProvider) SetSucceeded(id string) {
	fp.set(id, fmt.Sprintf(`{"id":%q,"status":"succeeded","progress":100,"results":[{"url":%q,"removeWatermark":true,"pid":"p-1"}]}`, id, fp.Server.URL+"/video.mp4"))
}

func (fp *FakeProvider) SetCharacter(id, characterID string) {
	fp.set(id, fmt.Sprintf(`{"id":%q,"status":"succeeded","progress":100,"results":[{"character_id":%q}]}`, id, characterID))
}

func (fp *FakeProvider) SetFailed(id, reason string) {
	fp.set(id, fmt.Sprintf(`{"id":%q,"status":"failed","progress":0,"failure_reason":%q}`, id, reason))
}

func (fp *FakeProvider) set(id, data string) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.results[id] = data
}

// Submits returns the create payloads received so far
func (fp *FakeProvider) Submits() []map[string]interface{} {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return append([]map[string]interface{}(nil), fp.submits...)
}

func (fp *FakeProvider) Downloads() int {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.downloads
}

// Env is an engine wired to a FakeProvider, sqlite and miniredis
type Env struct {
	Provider *FakeProvider
	Engine   *services.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	Config   *config.Config
}

func NewEnv(t *testing.T) *Env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	fp := NewFakeProvider(t)
	cfg := &config.Config{
		JWTSecret:               "test_secret",
		ProviderDomesticHost:    fp.Server.URL,
		ProviderOverseasHost:    fp.Server.URL,
		ProviderAPIKey:          "sk-test",
		ProviderHostMode:        "domestic",
		ProviderTimeout:         5 * time.Second,
		ProviderAttemptsPerHost: 1,
		DownloadDir:             filepath.Join(t.TempDir(), "downloads"),
		PollInterval:            time.Millisecond,
	}

	return &Env{
		Provider: fp,
		Engine:   services.NewEngine(cfg, db, rdb),
		DB:       db,
		Redis:    rdb,
		Config:   cfg,
	}
}
