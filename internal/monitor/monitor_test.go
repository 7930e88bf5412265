package monitor

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/law-makers/reviewwatch/internal/browser"
	"github.com/law-makers/reviewwatch/internal/fingerprint"
	"github.com/law-makers/reviewwatch/pkg/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	state      models.PageState
	loginOK    bool
	waitOK     bool
	calls      []string
	loginCreds models.Credentials
}

func (r *fakeReader) ReachTarget(context.Context) models.PageState {
	r.calls = append(r.calls, "reach")
	return r.state
}

func (r *fakeReader) Login(_ context.Context, creds models.Credentials) bool {
	r.calls = append(r.calls, "login")
	r.loginCreds = creds
	return r.loginOK
}

func (r *fakeReader) WaitTarget(context.Context) bool {
	r.calls = append(r.calls, "wait")
	return r.waitOK
}

func (r *fakeReader) Navigate(context.Context) error {
	r.calls = append(r.calls, "navigate")
	return nil
}

type extraction struct {
	snap  *models.Snapshot
	err   error
	panic bool
}

type fakeExtractor struct {
	results []extraction
	calls   int
}

func (e *fakeExtractor) Extract(context.Context) (*models.Snapshot, error) {
	i := e.calls
	e.calls++
	if i >= len(e.results) {
		i = len(e.results) - 1
	}
	r := e.results[i]
	if r.panic {
		panic("page exploded")
	}
	return r.snap, r.err
}

type fakeStore struct {
	snap    *models.Snapshot
	hash    string
	saveErr error
	saves   int
}

func (s *fakeStore) Load(context.Context) (*models.Snapshot, string) { return s.snap, s.hash }

func (s *fakeStore) Save(_ context.Context, snap *models.Snapshot, hash string) error {
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.snap, s.hash = snap, hash
	return nil
}

type fakeSink struct {
	ok     bool
	titles []string
	bodies []string
}

func (s *fakeSink) Name() string { return "fake" }

func (s *fakeSink) Notify(_ context.Context, title, body string) bool {
	s.titles = append(s.titles, title)
	s.bodies = append(s.bodies, body)
	return s.ok
}

func snapshot(results ...string) *models.Snapshot {
	s := &models.Snapshot{FinalResult: "通过", ExtractTime: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	for i, r := range results {
		s.Reviews = append(s.Reviews, models.ReviewRecord{
			ExpertName:        "专家" + string(rune('A'+i)),
			ReviewTime:        "2024-05-01",
			OverallEvaluation: "良好",
			ReviewResult:      r,
		})
	}
	return s
}

type harness struct {
	reader    *fakeReader
	extractor *fakeExtractor
	store     *fakeStore
	sink      *fakeSink
	reports   int
	monitor   *Monitor
}

func newHarness(results ...extraction) *harness {
	h := &harness{
		reader:    &fakeReader{state: models.PageOnTarget, loginOK: true, waitOK: true},
		extractor: &fakeExtractor{results: results},
		store:     &fakeStore{},
		sink:      &fakeSink{ok: true},
	}
	h.monitor = New(h.reader, h.extractor, h.store, h.sink, Options{
		Credentials: models.Credentials{Account: "u", Password: "p"},
		Title:       "盲审结果更新",
		Report:      func(*models.Snapshot) { h.reports++ },
	})
	return h
}

func TestRun_FirstResultsNotifyAndPersist(t *testing.T) {
	snap := snapshot("同意答辩")
	h := newHarness(extraction{snap: snap})

	out, err := h.monitor.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusChanged, out.Status)
	assert.True(t, out.Notified)
	assert.True(t, out.Persisted)
	assert.Empty(t, out.PreviousFingerprint)
	assert.Equal(t, fingerprint.Of(snap), out.Fingerprint)

	require.Len(t, h.sink.bodies, 1)
	assert.Equal(t, "盲审结果更新", h.sink.titles[0])
	assert.Equal(t, "1: 良好(同意答辩)\n通过", h.sink.bodies[0])
	assert.Equal(t, fingerprint.Of(snap), h.store.hash)
	assert.Same(t, snap, h.store.snap)
	assert.Equal(t, 1, h.reports)
}

func TestRun_UnchangedDoesNothing(t *testing.T) {
	previous := snapshot("同意答辩")
	current := snapshot("同意答辩")
	current.ExtractTime = previous.ExtractTime.Add(time.Hour)

	h := newHarness(extraction{snap: current})
	h.store.snap, h.store.hash = previous, fingerprint.Of(previous)

	out, err := h.monitor.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusUnchanged, out.Status)
	assert.Empty(t, h.sink.bodies)
	assert.Zero(t, h.store.saves)
	assert.Same(t, previous, h.store.snap)
}

func TestRun_ChangedReplacesState(t *testing.T) {
	previous := snapshot("同意答辩")
	current := snapshot("同意答辩", "修改后答辩")

	h := newHarness(extraction{snap: current})
	h.store.snap, h.store.hash = previous, fingerprint.Of(previous)

	out, err := h.monitor.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusChanged, out.Status)
	assert.Equal(t, fingerprint.Of(previous), out.PreviousFingerprint)
	assert.Len(t, h.sink.bodies, 1)
	assert.Equal(t, fingerprint.Of(current), h.store.hash)
}

func TestRun_NotificationFailureStillPersists(t *testing.T) {
	h := newHarness(extraction{snap: snapshot("同意答辩")})
	h.sink.ok = false

	out, err := h.monitor.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, out.Notified)
	assert.True(t, out.Persisted)
	assert.Len(t, h.sink.bodies, 1)
	assert.Equal(t, 1, h.store.saves)
}

func TestRun_SaveFailureIsNotFatal(t *testing.T) {
	h := newHarness(extraction{snap: snapshot("同意答辩")})
	h.store.saveErr = errors.New("disk full")

	out, err := h.monitor.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusChanged, out.Status)
	assert.True(t, out.Notified)
	assert.False(t, out.Persisted)
}

func TestRun_LoginFlow(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		h := newHarness(extraction{snap: snapshot("同意答辩")})
		h.reader.state = models.PageNeedsLogin

		_, err := h.monitor.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, []string{"reach", "login", "wait"}, h.reader.calls)
		assert.Equal(t, models.Credentials{Account: "u", Password: "p"}, h.reader.loginCreds)
	})

	t.Run("failure renavigates and continues", func(t *testing.T) {
		h := newHarness(extraction{snap: snapshot("同意答辩")})
		h.reader.state = models.PageNeedsLogin
		h.reader.loginOK = false

		out, err := h.monitor.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, []string{"reach", "login", "navigate", "wait"}, h.reader.calls)
		assert.Equal(t, StatusChanged, out.Status)
	})
}

func TestRun_WaitTimeoutRenavigatesOnce(t *testing.T) {
	h := newHarness(extraction{snap: snapshot("同意答辩")})
	h.reader.waitOK = false

	out, err := h.monitor.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"reach", "wait", "navigate"}, h.reader.calls)
	assert.Equal(t, StatusChanged, out.Status)
}

func TestRun_ExtractionRetry(t *testing.T) {
	t.Run("empty then results", func(t *testing.T) {
		snap := snapshot("同意答辩")
		h := newHarness(extraction{err: errors.New("table not found")}, extraction{snap: snap})

		out, err := h.monitor.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 2, h.extractor.calls)
		assert.Equal(t, []string{"reach", "wait", "navigate"}, h.reader.calls)
		assert.Equal(t, StatusChanged, out.Status)
		assert.Same(t, snap, out.Snapshot)
	})

	t.Run("empty twice leaves state untouched", func(t *testing.T) {
		previous := snapshot("同意答辩")
		h := newHarness(extraction{}, extraction{})
		h.store.snap, h.store.hash = previous, fingerprint.Of(previous)

		out, err := h.monitor.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, StatusExtractFailed, out.Status)
		assert.Equal(t, 2, h.extractor.calls)
		assert.Empty(t, h.sink.bodies)
		assert.Zero(t, h.store.saves)
		assert.Same(t, previous, h.store.snap)
		assert.Zero(t, h.reports)
	})

	t.Run("zero reviews twice is compared", func(t *testing.T) {
		empty := snapshot()
		h := newHarness(extraction{snap: empty}, extraction{snap: empty})

		out, err := h.monitor.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 2, h.extractor.calls)
		assert.Equal(t, StatusChanged, out.Status)
		assert.Equal(t, fingerprint.Of(empty), h.store.hash)
		assert.Equal(t, []string{"通过"}, h.sink.bodies)
	})

	t.Run("zero reviews then nothing fails", func(t *testing.T) {
		h := newHarness(extraction{snap: snapshot()}, extraction{})

		out, err := h.monitor.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, StatusExtractFailed, out.Status)
		assert.Zero(t, h.store.saves)
	})
}

// captureLogs redirects the global logger into a buffer for one test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	saved := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = saved })
	return &buf
}

func TestRun_PanicBecomesFatal(t *testing.T) {
	logs := captureLogs(t)
	h := newHarness(extraction{panic: true})

	_, err := h.monitor.Run(context.Background())
	require.Error(t, err)

	assert.True(t, IsCode(err, CodeFatal))
	assert.Contains(t, err.Error(), "page exploded")
	assert.Zero(t, h.store.saves)

	var me *MonitorError
	require.ErrorAs(t, err, &me)
	assert.NotEmpty(t, me.Details["run_id"])
	assert.Contains(t, logs.String(), "Cycle aborted")
	assert.Contains(t, logs.String(), `"stack":"goroutine`)
	assert.Contains(t, logs.String(), `"run_id":"`+me.Details["run_id"].(string)+`"`)
}

func TestRun_NotificationFailureLogsSink(t *testing.T) {
	logs := captureLogs(t)
	h := newHarness(extraction{snap: snapshot("同意答辩")})
	h.sink.ok = false

	_, err := h.monitor.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, logs.String(), `"sink":"fake"`)
}

func TestRun_ExtractFailureWarnsAboutVanishedResults(t *testing.T) {
	logs := captureLogs(t)
	h := newHarness(extraction{}, extraction{})

	out, err := h.monitor.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusExtractFailed, out.Status)
	assert.Contains(t, logs.String(), "never reported as a change")
}

func TestRun_ClosedBrowserIsNotRetried(t *testing.T) {
	h := newHarness(extraction{err: browser.ErrClosed}, extraction{snap: snapshot("同意答辩")})

	out, err := h.monitor.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusExtractFailed, out.Status)
	assert.Equal(t, 1, h.extractor.calls)
	assert.NotContains(t, h.reader.calls, "navigate")
	assert.Zero(t, h.store.saves)
}

func TestRun_CancelledContext(t *testing.T) {
	h := newHarness(extraction{snap: snapshot("同意答辩")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.monitor.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, h.extractor.calls)
	assert.Empty(t, h.sink.bodies)
}

func TestMonitorError(t *testing.T) {
	base := errors.New("boom")
	err := NewMonitorError(CodePersistence, "save", base).WithDetail("path", "x.json")

	assert.ErrorIs(t, err, base)
	assert.ErrorIs(t, err, &MonitorError{Code: CodePersistence})
	assert.NotErrorIs(t, err, &MonitorError{Code: CodeFatal})
	assert.Equal(t, "PERSISTENCE: save: boom", err.Error())
	assert.Equal(t, "x.json", err.Details["path"])
	assert.False(t, err.Retry)
	assert.False(t, err.Retryable())
	assert.True(t, err.WithRetry().Retryable())
}
