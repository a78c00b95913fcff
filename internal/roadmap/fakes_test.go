package roadmap

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skillxpress/skillxpress/internal/llm"
	"github.com/skillxpress/skillxpress/internal/types"
)

type memStore struct {
	mu        sync.Mutex
	profile   *types.Profile
	snapshot  *types.SkillSnapshot
	state     *types.RoadmapState
	pdfs      map[int]string
	commitErr error
}

func (s *memStore) GetProfile(_ context.Context, _ uuid.UUID) (*types.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return nil, nil
	}
	cp := *s.profile
	cp.Interests = append([]string(nil), s.profile.Interests...)
	return &cp, nil
}

func (s *memStore) setInterests(interests []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile.Interests = interests
}

func (s *memStore) GetSkillSnapshot(_ context.Context, _ uuid.UUID) (*types.SkillSnapshot, error) {
	return s.snapshot, nil
}

func (s *memStore) GetRoadmapState(_ context.Context, _ uuid.UUID) (*types.RoadmapState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil, nil
	}
	cp := *s.state
	return &cp, nil
}

func (s *memStore) CommitRoadmapMonth(_ context.Context, userID uuid.UUID, expected int64, month types.RoadmapMonth, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commitErr != nil {
		return false, s.commitErr
	}
	if s.state == nil {
		s.state = types.NewRoadmapState(userID)
	}
	if s.state.Version != expected {
		return false, nil
	}
	months := make(map[int]types.RoadmapMonth, len(s.state.Months)+1)
	for k, v := range s.state.Months {
		months[k] = v
	}
	months[month.MonthIndex] = month
	s.state = &types.RoadmapState{
		UserID:            userID,
		CurrentMonthIndex: month.MonthIndex + 1,
		LastGeneratedAt:   &at,
		Months:            months,
		Version:           expected + 1,
	}
	return true, nil
}

func (s *memStore) AttachRoadmapPDF(_ context.Context, _ uuid.UUID, monthIndex int, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pdfs == nil {
		s.pdfs = map[int]string{}
	}
	s.pdfs[monthIndex] = ref
	return nil
}

type staticRoles map[string]types.Role

func (r staticRoles) Resolve(names []string) (types.Role, error) {
	role, ok := r[strings.Join(names, "|")]
	if !ok {
		return types.Role{}, &types.UnknownRoleError{Role: strings.Join(names, ", ")}
	}
	return role, nil
}

type scriptedLLM struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
	onCall    func()
}

func (l *scriptedLLM) Generate(_ context.Context, prompt string, _ llm.GenerateOptions) (string, error) {
	if l.onCall != nil {
		l.onCall()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompts = append(l.prompts, prompt)
	if l.err != nil {
		return "", l.err
	}
	if len(l.responses) == 0 {
		return "", nil
	}
	r := l.responses[0]
	if len(l.responses) > 1 {
		l.responses = l.responses[1:]
	}
	return r, nil
}

func (l *scriptedLLM) Close() error { return nil }

func (l *scriptedLLM) calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prompts)
}

type fakeRenderer struct{ err error }

func (r fakeRenderer) RenderMonth(month types.RoadmapMonth) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-" + month.Phase), nil
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (o *fakeObjects) Upload(_ context.Context, bucket, key string, data []byte, _ string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.objects == nil {
		o.objects = map[string][]byte{}
	}
	o.objects[bucket+"/"+key] = data
	return nil
}

func (o *fakeObjects) SignedURL(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	return "https://storage.test/" + bucket + "/" + key + "?sig=1", nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, routingKey)
	return p.err
}

var errProvider = errors.New("provider exploded")
