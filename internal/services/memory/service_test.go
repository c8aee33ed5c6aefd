package memory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/admin/astro-agent/internal/adapters/secondary/embeddings"
	"github.com/admin/astro-agent/internal/adapters/secondary/storage/inmemory"
	"github.com/admin/astro-agent/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.MemoryEvent
}

func (p *recordingPublisher) PublishMemoryEvent(_ context.Context, e domain.MemoryEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []domain.MemoryEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.MemoryEventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type fakeExports struct {
	files map[string][]byte
}

func (f *fakeExports) GetFile(_ context.Context, path string) ([]byte, error) {
	return f.files[path], nil
}

func (f *fakeExports) PutFile(_ context.Context, path string, data []byte, _ string) error {
	f.files[path] = data
	return nil
}

func (f *fakeExports) ListFiles(context.Context, string) ([]string, error) {
	return nil, nil
}

func (f *fakeExports) GetPresignedURL(_ context.Context, path string, _ time.Duration) (string, error) {
	return "https://files.example.com/" + path + "?sig=abc", nil
}

type stubExtractor struct {
	found []domain.ExtractedMemory
	calls chan []domain.Message
}

func (s *stubExtractor) Extract(_ context.Context, messages []domain.Message) ([]domain.ExtractedMemory, error) {
	if s.calls != nil {
		s.calls <- messages
	}
	return s.found, nil
}

// gatedExtractor сообщает о старте и ждёт release, пока извлечение в полёте
type gatedExtractor struct {
	found   []domain.ExtractedMemory
	started chan struct{}
	release chan struct{}
}

func (g *gatedExtractor) Extract(context.Context, []domain.Message) ([]domain.ExtractedMemory, error) {
	close(g.started)
	<-g.release
	return g.found, nil
}

type fixture struct {
	svc      *Service
	repo     *inmemory.MemoryStore
	profiles *inmemory.ProfileStore
	usage    *inmemory.UsageStore
	events   *recordingPublisher
	exports  *fakeExports
}

func newFixture(t *testing.T, extractor Extractor) *fixture {
	t.Helper()
	f := &fixture{
		repo:     inmemory.NewMemoryStore(),
		profiles: inmemory.NewProfileStore(),
		usage:    inmemory.NewUsageStore(),
		events:   &recordingPublisher{},
		exports:  &fakeExports{files: map[string][]byte{}},
	}
	if extractor == nil {
		extractor = NewLLMExtractor(nil, discardLogger())
	}
	f.svc = New(Deps{
		Repo:      f.repo,
		Embedder:  embeddings.NewHashingEmbedder(256),
		Extractor: extractor,
		Profiles:  f.profiles,
		Usage:     f.usage,
		Events:    f.events,
		Exports:   f.exports,
	}, &Config{MinConfidence: 0.5, ExportPrefix: "exports"}, discardLogger())
	t.Cleanup(f.svc.Close)
	return f
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStoreAndSearch(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	m, err := f.svc.Store(ctx, "u1", "User works as a nurse at a children's hospital", domain.MemorySemantic,
		domain.Metadata{"conversation_id": "conv-1"})
	require.NoError(t, err)
	require.NotNil(t, m.SourceConversationID)
	assert.Equal(t, "conv-1", *m.SourceConversationID)
	_, err = f.svc.Store(ctx, "u1", "User prefers short readings", "", nil)
	require.NoError(t, err)

	results, err := f.svc.Search(ctx, "u1", "nurse hospital job", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "User works as a nurse at a children's hospital", results[0].Memory.Content)
	assert.Equal(t, domain.MemoryProcedural, results[1].Memory.Type)
	assert.GreaterOrEqual(t, results[0].Relevance, results[1].Relevance)

	assert.Equal(t, []domain.MemoryEventType{domain.MemoryEventStored, domain.MemoryEventStored}, f.events.types())

	_, err = f.svc.Store(ctx, "u1", "   ", domain.MemorySemantic, nil)
	var parseErr *domain.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestSearch_IsolatedPerUser(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Store(ctx, "alice", "Alice is worried about her career change", domain.MemoryEpisodic, nil)
	require.NoError(t, err)
	_, err = f.svc.Store(ctx, "bob", "Bob is worried about his career change", domain.MemoryEpisodic, nil)
	require.NoError(t, err)

	for _, user := range []string{"alice", "bob"} {
		results, err := f.svc.Search(ctx, user, "career change worries", 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, user, results[0].Memory.UserID)
	}

	results, err := f.svc.Search(ctx, "carol", "career", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestScheduleExtraction_StoresConfidentFindings(t *testing.T) {
	calls := make(chan []domain.Message, 2)
	f := newFixture(t, &stubExtractor{
		calls: calls,
		found: []domain.ExtractedMemory{
			{Content: "User is moving to Lisbon", Type: domain.MemorySemantic, Confidence: 0.9},
			{Content: "User might like tarot", Type: domain.MemoryProcedural, Confidence: 0.3},
		},
	})

	first := []domain.Message{{Role: domain.RoleUser, Content: "hi"}}
	second := []domain.Message{{Role: domain.RoleUser, Content: "I'm moving to Lisbon"}}
	f.svc.ScheduleExtraction("u1", "conv-1", first, 40*time.Millisecond)
	f.svc.ScheduleExtraction("u1", "conv-1", second, 40*time.Millisecond)

	select {
	case window := <-calls:
		assert.Equal(t, second, window)
	case <-time.After(2 * time.Second):
		t.Fatal("extraction did not run")
	}

	require.Eventually(t, func() bool {
		stats, err := f.svc.Stats(context.Background(), "u1")
		return err == nil && stats.Total == 1
	}, time.Second, 10*time.Millisecond)

	memories, err := f.repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, memories, 1)
	assert.Equal(t, "extraction", memories[0].Metadata["source"])
	assert.Equal(t, 0.9, memories[0].Confidence)
	assert.Len(t, calls, 0)
}

func TestFlushExtraction(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.svc.ScheduleExtraction("u1", "conv-1", []domain.Message{
		{Role: domain.RoleUser, Content: "My boss keeps piling on work. I'm so stressed lately."},
		{Role: domain.RoleAssistant, Content: "With Saturn transiting your 10th house, my job is to help."},
	}, time.Hour)

	stats, err := f.svc.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PendingExtractions)

	assert.True(t, f.svc.FlushExtraction(ctx, "u1"))
	assert.False(t, f.svc.FlushExtraction(ctx, "u1"))

	stats, err = f.svc.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.PendingExtractions)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.ByType[domain.MemorySemantic])
	assert.Equal(t, 1, stats.ByType[domain.MemoryEpisodic])
}

func TestConsolidate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	contents := []string{
		"User works as a nurse in Boston",
		"User works as a nurse in Boston now",
		"User enjoys hiking on weekends",
		"user works as a nurse in boston",
	}
	for i, c := range contents {
		at := base.Add(time.Duration(i) * time.Hour)
		f.svc.now = func() time.Time { return at }
		_, err := f.svc.Store(ctx, "u1", c, domain.MemorySemantic, nil)
		require.NoError(t, err)
	}

	removed, err := f.svc.Consolidate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	memories, err := f.repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	var left []string
	for _, m := range memories {
		left = append(left, m.Content)
	}
	assert.Equal(t, []string{"user works as a nurse in boston", "User enjoys hiking on weekends"}, left)

	removed, err = f.svc.Consolidate(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Contains(t, f.events.types(), domain.MemoryEventConsolidated)
}

func TestConsolidateAll(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	for _, user := range []string{"u1", "u2"} {
		for i := 0; i < 2; i++ {
			_, err := f.svc.Store(ctx, user, "User loves astrology podcasts", domain.MemoryProcedural, nil)
			require.NoError(t, err)
		}
	}

	removed, err := f.svc.ConsolidateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
}

func TestStoreConversationSummary(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.svc.now = func() time.Time { return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC) }

	require.NoError(t, f.svc.StoreConversationSummary(ctx, "u1", "conv-9", nil))

	err := f.svc.StoreConversationSummary(ctx, "u1", "conv-9", []domain.Message{
		{Role: domain.RoleUser, Content: "What are my transits today?"},
		{Role: domain.RoleAssistant, Content: "Saturn is squaring your Sun."},
		{Role: domain.RoleUser, Content: "Is my partner compatible with me?"},
	})
	require.NoError(t, err)

	memories, err := f.repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, memories, 1)
	assert.Equal(t, domain.MemoryEpisodic, memories[0].Type)
	assert.Equal(t, "Conversation on 2024-06-01 with 3 messages about: transit, relationship, saturn return", memories[0].Content)
	assert.Equal(t, "conv-9", *memories[0].SourceConversationID)
}

func TestExportAndErase(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.profiles.Create(ctx, domain.NewUserProfile("u1", time.Now())))
	_, err := f.svc.Store(ctx, "u1", "User is a Leo sun who loves theatre", domain.MemorySemantic, nil)
	require.NoError(t, err)
	require.NoError(t, f.usage.Add(ctx, &domain.UsageRecord{ID: "r1", UserID: "u1", CostUSD: 0.01, CreatedAt: time.Now()}))

	url, err := f.svc.Export(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://files.example.com/exports/u1/"))
	require.Len(t, f.exports.files, 1)
	for _, data := range f.exports.files {
		assert.Contains(t, string(data), "loves theatre")
		assert.Contains(t, string(data), `"id": "u1"`)
	}

	f.svc.ScheduleExtraction("u1", "conv-1", []domain.Message{{Role: domain.RoleUser, Content: "my job"}}, time.Hour)
	require.NoError(t, f.svc.Erase(ctx, "u1"))

	_, err = f.profiles.Get(ctx, "u1")
	assert.True(t, errors.Is(err, domain.ErrProfileNotFound))
	stats, err := f.svc.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.PendingExtractions)
	cost, err := f.usage.CostSince(ctx, "u1", time.Time{})
	require.NoError(t, err)
	assert.Zero(t, cost)
	assert.Contains(t, f.events.types(), domain.MemoryEventErased)
}

func TestErase_WaitsForRunningExtraction(t *testing.T) {
	gate := &gatedExtractor{
		found:   []domain.ExtractedMemory{{Content: "User works as a nurse in Denver", Type: domain.MemorySemantic, Confidence: 0.9}},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	f := newFixture(t, gate)
	ctx := context.Background()

	f.svc.ScheduleExtraction("u1", "conv-1", []domain.Message{{Role: domain.RoleUser, Content: "I work as a nurse in Denver"}}, time.Millisecond)
	select {
	case <-gate.started:
	case <-time.After(2 * time.Second):
		t.Fatal("extraction did not start")
	}

	erased := make(chan error, 1)
	go func() { erased <- f.svc.Erase(ctx, "u1") }()

	select {
	case err := <-erased:
		t.Fatalf("erase returned while extraction was running: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(gate.release)
	select {
	case err := <-erased:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("erase did not finish")
	}

	memories, err := f.repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, memories)
}

func TestErase_GivesUpWhenContextEnds(t *testing.T) {
	gate := &gatedExtractor{started: make(chan struct{}), release: make(chan struct{})}
	f := newFixture(t, gate)
	defer close(gate.release)

	f.svc.ScheduleExtraction("u1", "conv-1", []domain.Message{{Role: domain.RoleUser, Content: "hello"}}, time.Millisecond)
	<-gate.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := f.svc.Erase(ctx, "u1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExport_Disabled(t *testing.T) {
	svc := New(Deps{
		Repo:      inmemory.NewMemoryStore(),
		Embedder:  embeddings.NewHashingEmbedder(64),
		Extractor: NewLLMExtractor(nil, discardLogger()),
	}, nil, discardLogger())
	defer svc.Close()

	_, err := svc.Export(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrExportDisabled)
}
