package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"witweb-studio/internal/database"
	"witweb-studio/internal/models"
	"witweb-studio/internal/provider"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now().Truncate(time.Second)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeProvider serves the provider API and the produced assets
type fakeProvider struct {
	srv *httptest.Server

	mu           sync.Mutex
	nextID       string
	submits      []map[string]interface{}
	submitPaths  []string
	results      map[string]string
	resultCalls  int
	resultStatus int
	downloads    int
	downloadCode int
	creditCalls  int
	video        []byte
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	fp := &fakeProvider{
		nextID:       "abc123",
		results:      map[string]string{},
		resultStatus: http.StatusOK,
		downloadCode: http.StatusOK,
		video:        []byte("fake mp4 bytes"),
	}
	fp.srv = httptest.NewServer(http.HandlerFunc(fp.serve))
	t.Cleanup(fp.srv.Close)
	return fp
}

func (fp *fakeProvider) serve(w http.ResponseWriter, r *http.Request) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	switch r.URL.Path {
	case provider.CreateVideoPath, provider.UploadCharacterPath, provider.CreateCharacterPath:
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		fp.submits = append(fp.submits, body)
		fp.submitPaths = append(fp.submitPaths, r.URL.Path)
		if fp.nextID == "" {
			fmt.Fprint(w, `{"code":0,"msg":"ok","data":{}}`)
			return
		}
		fmt.Fprintf(w, `{"code":0,"msg":"ok","data":{"id":%q}}`, fp.nextID)
	case provider.ResultPath:
		fp.resultCalls++
		if fp.resultStatus != http.StatusOK {
			w.WriteHeader(fp.resultStatus)
			return
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		data, ok := fp.results[body["id"]]
		if !ok {
			fmt.Fprint(w, `{"code":-1,"msg":"task not found"}`)
			return
		}
		fmt.Fprintf(w, `{"code":0,"msg":"ok","data":%s}`, data)
	case provider.CreditsPath:
		fp.creditCalls++
		fmt.Fprint(w, `{"code":0,"data":{"credits":100}}`)
	case provider.APIKeyCreditsPath:
		fmt.Fprint(w, `{"code":0,"data":{"credits":7}}`)
	case provider.CreateAPIKeyPath:
		fmt.Fprint(w, `{"code":0,"data":{"apiKey":"sk-new"}}`)
	case provider.ModelStatusPath:
		fmt.Fprintf(w, `{"code":0,"data":{"model":%q,"status":true}}`, r.URL.Query().Get("model"))
	case "/video.mp4":
		fp.downloads++
		if fp.downloadCode != http.StatusOK {
			w.WriteHeader(fp.downloadCode)
			return
		}
		w.Write(fp.video)
	default:
		http.NotFound(w, r)
	}
}

func (fp *fakeProvider) videoURL() string {
	return fp.srv.URL + "/video.mp4"
}

func (fp *fakeProvider) setRunning(id string, progress int) {
	fp.set(id, fmt.Sprintf(`{"id":%q,"status":"running","progress":%d}`, id, progress))
}

func (fp *fakeProvider) setSucceeded(id string) {
	fp.set(id, fmt.Sprintf(`{"id":%q,"status":"succeeded","progress":100,"results":[{"url":%q,"removeWatermark":true,"pid":"p-1"}]}`, id, fp.videoURL()))
}

func (fp *fakeProvider) setFailed(id, reason string) {
	fp.set(id, fmt.Sprintf(`{"id":%q,"status":"failed","progress":0,"failure_reason":%q}`, id, reason))
}

func (fp *fakeProvider) set(id, data string) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.results[id] = data
}

func (fp *fakeProvider) setNextID(id string) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.nextID = id
}

func (fp *fakeProvider) setResultStatus(code int) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.resultStatus = code
}

func (fp *fakeProvider) setDownloadStatus(code int) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.downloadCode = code
}

func (fp *fakeProvider) submitted() ([]string, []map[string]interface{}) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return append([]string(nil), fp.submitPaths...), append([]map[string]interface{}(nil), fp.submits...)
}

func (fp *fakeProvider) counts() (results, downloads int) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.resultCalls, fp.downloads
}

type testEngine struct {
	db        *gorm.DB
	fp        *fakeProvider
	clock     *fakeClock
	config    *ConfigStore
	client    *provider.Client
	registry  *ActiveTaskRegistry
	tasks     *TaskService
	poller    *Poller
	store     *ArtifactStore
	finalizer *Finalizer
	history   *HistoryService
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	db := setupTestDB(t)
	fp := newFakeProvider(t)
	clock := newFakeClock()

	config := NewConfigStore(db, "sk-test", models.HostModeDomestic)
	client := provider.NewClient(provider.Options{
		Hosts:           provider.Hosts{Domestic: fp.srv.URL, Overseas: fp.srv.URL},
		Settings:        config,
		HTTPClient:      fp.srv.Client(),
		AttemptsPerHost: 1,
	})

	registry := NewActiveTaskRegistry(db)
	registry.now = clock.Now
	tasks := NewTaskService(db, client, registry)
	tasks.now = clock.Now
	poller := NewPoller(db, client, time.Millisecond)
	store := NewArtifactStore(filepath.Join(t.TempDir(), "downloads"), fp.srv.Client())
	store.now = clock.Now
	finalizer := NewFinalizer(db, poller, store, nil)
	finalizer.now = clock.Now

	return &testEngine{
		db:        db,
		fp:        fp,
		clock:     clock,
		config:    config,
		client:    client,
		registry:  registry,
		tasks:     tasks,
		poller:    poller,
		store:     store,
		finalizer: finalizer,
		history:   NewHistoryService(db, store),
	}
}

// storedFiles lists the completed assets in the download directory
func (e *testEngine) storedFiles(t *testing.T) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(e.store.Dir(), "*"))
	require.NoError(t, err)
	var names []string
	for _, m := range matches {
		if !strings.HasPrefix(filepath.Base(m), ".tmp-") {
			names = append(names, filepath.Base(m))
		}
	}
	return names
}
