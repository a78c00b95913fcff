package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillxpress/skillxpress/internal/skills"
	"github.com/skillxpress/skillxpress/internal/types"
)

var testNow = time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

type memStore struct {
	mu        sync.Mutex
	profiles  map[uuid.UUID]*types.Profile
	snapshots map[uuid.UUID]*types.SkillSnapshot
	uploads   map[uuid.UUID][]types.UploadedDocument
	saves     int
	listErr   error
}

func newMemStore() *memStore {
	return &memStore{
		profiles:  map[uuid.UUID]*types.Profile{},
		snapshots: map[uuid.UUID]*types.SkillSnapshot{},
		uploads:   map[uuid.UUID][]types.UploadedDocument{},
	}
}

func (m *memStore) GetProfile(_ context.Context, id uuid.UUID) (*types.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profiles[id], nil
}

func (m *memStore) GetSkillSnapshot(_ context.Context, id uuid.UUID) (*types.SkillSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshots[id], nil
}

func (m *memStore) ListUploads(_ context.Context, id uuid.UUID) ([]types.UploadedDocument, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.uploads[id], nil
}

func (m *memStore) SaveSkillSnapshot(_ context.Context, id uuid.UUID, s types.SkillScoreMap, at time.Time, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.snapshots[id]; ok && cur.UpdatedAt.After(at.Add(-window)) {
		return false, nil
	}
	m.snapshots[id] = &types.SkillSnapshot{UserID: id, Skills: s, UpdatedAt: at}
	m.saves++
	return true, nil
}

type fakeSignals struct {
	mu       sync.Mutex
	repos    []types.RepositorySignal
	err      error
	calls    int
	lastUser string
	gate     chan struct{}
}

func (f *fakeSignals) CollectSignals(_ context.Context, username string) ([]types.RepositorySignal, error) {
	f.mu.Lock()
	f.calls++
	f.lastUser = username
	f.mu.Unlock()
	if f.gate != nil {
		<-f.gate
	}
	return f.repos, f.err
}

type fakeDocs struct {
	files map[string][]byte
}

func (f *fakeDocs) Download(_ context.Context, _ string, key string) ([]byte, error) {
	data, ok := f.files[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

type fakeExtractor struct{}

func (fakeExtractor) Extract(_ context.Context, path string, data []byte) (string, error) {
	if string(data) == "corrupt" {
		return "", &types.ExtractionFailedError{Path: path}
	}
	return string(data), nil
}

type recordingPublisher struct {
	keys []string
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, key string, _ any) error {
	p.keys = append(p.keys, key)
	return p.err
}

func newTestScorer(store Store, signals SignalSource, options ...Option) *Scorer {
	options = append([]Option{WithClock(func() time.Time { return testNow })}, options...)
	return NewScorer(skills.NewEngine(skills.DefaultWeights(), nil), store, signals, Options{UploadsBucket: "uploads"}, nil, options...)
}

func seedUser(store *memStore) uuid.UUID {
	id := uuid.New()
	store.profiles[id] = &types.Profile{UserID: id, GitHubUsername: "octo", Interests: []string{"Backend Developer"}}
	return id
}

func TestRefresh_PersistsSnapshot(t *testing.T) {
	store := newMemStore()
	id := seedUser(store)
	signals := &fakeSignals{repos: []types.RepositorySignal{{
		Name: "octo/api", LastPush: testNow.Add(-24 * time.Hour), Languages: map[string]int64{"Go": 100},
	}}}
	pub := &recordingPublisher{}

	snap, err := newTestScorer(store, signals, WithPublisher(pub)).Refresh(context.Background(), id, "")
	require.NoError(t, err)

	assert.Equal(t, "octo", signals.lastUser)
	assert.Equal(t, testNow, snap.UpdatedAt)
	assert.InDelta(t, 15.0, snap.Skills["Go"], 1e-9)
	assert.Equal(t, snap.Skills, store.snapshots[id].Skills)
	assert.Equal(t, []string{SkillsScoredEvent}, pub.keys)
}

func TestRefresh_UsernameOverride(t *testing.T) {
	store := newMemStore()
	id := seedUser(store)
	signals := &fakeSignals{}

	_, err := newTestScorer(store, signals).Refresh(context.Background(), id, "other")
	require.NoError(t, err)
	assert.Equal(t, "other", signals.lastUser)
}

func TestRefresh_TooSoonInsideWindow(t *testing.T) {
	store := newMemStore()
	id := seedUser(store)
	store.snapshots[id] = &types.SkillSnapshot{UserID: id, Skills: types.SkillScoreMap{"Go": 1}, UpdatedAt: testNow.Add(-48 * time.Hour)}
	signals := &fakeSignals{}

	_, err := newTestScorer(store, signals).Refresh(context.Background(), id, "")
	var tooSoon *types.TooSoonError
	require.ErrorAs(t, err, &tooSoon)
	assert.Equal(t, 5*24*time.Hour, tooSoon.Remaining)
	assert.Zero(t, signals.calls, "no upstream call inside the window")
	assert.Equal(t, 1.0, store.snapshots[id].Skills["Go"])
}

func TestRefresh_AllowedAtWindowBoundary(t *testing.T) {
	store := newMemStore()
	id := seedUser(store)
	store.snapshots[id] = &types.SkillSnapshot{UserID: id, UpdatedAt: testNow.Add(-7 * 24 * time.Hour)}

	_, err := newTestScorer(store, &fakeSignals{}).Refresh(context.Background(), id, "")
	require.NoError(t, err)
	assert.Equal(t, 1, store.saves)
}

func TestRefresh_ConcurrentProducesOneSnapshot(t *testing.T) {
	store := newMemStore()
	id := seedUser(store)
	signals := &fakeSignals{gate: make(chan struct{})}
	scorer := newTestScorer(store, signals)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = scorer.Refresh(context.Background(), id, "")
		}()
	}
	// Both runs pass the window check before either saves.
	require.Eventually(t, func() bool {
		signals.mu.Lock()
		defer signals.mu.Unlock()
		return signals.calls == 2
	}, time.Second, time.Millisecond)
	close(signals.gate)
	wg.Wait()

	assert.Equal(t, 1, store.saves)
	var tooSoon *types.TooSoonError
	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.ErrorAs(t, err, &tooSoon)
	}
	assert.Equal(t, 1, successes)
}

func TestRefresh_UpstreamFailureLeavesSnapshot(t *testing.T) {
	store := newMemStore()
	id := seedUser(store)
	signals := &fakeSignals{err: &types.UpstreamUnavailableError{Service: "code hosting", Message: "not a list"}}

	_, err := newTestScorer(store, signals).Refresh(context.Background(), id, "")
	var ue *types.UpstreamUnavailableError
	require.ErrorAs(t, err, &ue)
	assert.Zero(t, store.saves)
}

func TestRefresh_MissingProfile(t *testing.T) {
	_, err := newTestScorer(newMemStore(), &fakeSignals{}).Refresh(context.Background(), uuid.New(), "")
	var ip *types.IncompleteProfileError
	assert.ErrorAs(t, err, &ip)
}

func TestRefresh_UploadListFailure(t *testing.T) {
	store := newMemStore()
	id := seedUser(store)
	store.listErr = errors.New("connection reset")

	_, err := newTestScorer(store, &fakeSignals{}).Refresh(context.Background(), id, "")
	var ue *types.UpstreamUnavailableError
	assert.ErrorAs(t, err, &ue)
}

func TestRefresh_PublishFailureIsNotFatal(t *testing.T) {
	store := newMemStore()
	id := seedUser(store)
	pub := &recordingPublisher{err: errors.New("broker down")}

	_, err := newTestScorer(store, &fakeSignals{}, WithPublisher(pub)).Refresh(context.Background(), id, "")
	require.NoError(t, err)
	assert.Equal(t, 1, store.saves)
}

func TestCompute_SkipsFailedDocuments(t *testing.T) {
	docs := &fakeDocs{files: map[string][]byte{
		"u/resume.pdf": []byte("Python and Docker"),
		"u/cert.pdf":   []byte("corrupt"),
	}}
	scorer := newTestScorer(nil, &fakeSignals{}, WithDocuments(docs, fakeExtractor{}))

	scores, err := scorer.Compute(context.Background(), "", []types.UploadedDocument{
		{Type: types.DocumentResume, FilePath: "u/resume.pdf"},
		{Type: types.DocumentCertificate, FilePath: "u/cert.pdf"},
		{Type: types.DocumentCertificate, FilePath: "u/missing.pdf"},
		{Type: types.DocumentProject, Description: "A React dashboard"},
	})
	require.NoError(t, err)

	assert.Equal(t, 5.0, scores["Python"])
	assert.Equal(t, 5.0, scores["Docker"])
	assert.Equal(t, 10.0, scores["React"])
	assert.Equal(t, 15.0, scores[skills.ReadinessSkill])
	_, hasLearning := scores[skills.LearningSkill]
	assert.False(t, hasLearning, "failed certificates get no generic credit")
}

func TestCompute_DescriptionOnlyDocuments(t *testing.T) {
	scorer := newTestScorer(nil, &fakeSignals{})

	scores, err := scorer.Compute(context.Background(), "", []types.UploadedDocument{
		{Type: types.DocumentCertificate, Description: "AWS cloud practitioner"},
		{Type: "video", Description: "Python"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3.0, scores["AWS"])
	assert.Equal(t, 3.0, scores["Cloud"])
	assert.Equal(t, 10.0, scores[skills.LearningSkill])
	_, hasPython := scores["Python"]
	assert.False(t, hasPython)
}

func TestCompute_EmptyInputs(t *testing.T) {
	signals := &fakeSignals{}
	scores, err := newTestScorer(nil, signals).Compute(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Empty(t, scores)
	assert.Zero(t, signals.calls)
}

func TestCompute_ReportsProgress(t *testing.T) {
	var steps []string
	scorer := NewScorer(skills.NewEngine(skills.DefaultWeights(), nil), nil, &fakeSignals{}, Options{
		OnProgress: func(e ProgressEvent) { steps = append(steps, e.Step) },
	}, nil)

	_, err := scorer.Compute(context.Background(), "octo", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{StepSignals, StepDocuments, StepScoring, StepScoring}, steps)
}
