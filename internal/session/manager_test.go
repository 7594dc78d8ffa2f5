package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/momimo-cort/dubula-chatbot-dp6-rag-chatbot/internal/chat"
	"github.com/momimo-cort/dubula-chatbot-dp6-rag-chatbot/internal/rag"
)

type noopRetriever struct{}

func (noopRetriever) Retrieve(_ context.Context, _ string) ([]rag.Passage, error) {
	return nil, nil
}

type failingRetriever struct{}

func (failingRetriever) Retrieve(_ context.Context, _ string) ([]rag.Passage, error) {
	return nil, errors.New("index unreachable")
}

func testFactory(t *testing.T) ComposerFactory {
	t.Helper()
	return func() (*chat.Composer, error) {
		history := chat.NewHistory(100, chat.WordCounter{})
		return chat.NewComposer(noopRetriever{}, chat.NewMockLLM("answer"), history, chat.ComposerConfig{})
	}
}

func TestManagerCreateAndGet(t *testing.T) {
	m := NewManager(testFactory(t), time.Minute)

	s, err := m.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if s.ID == "" || s.Status != StatusActive || s.TurnCount != 0 {
		t.Errorf("unexpected new session: %+v", s)
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID != s.ID {
		t.Errorf("Get returned wrong session: %s", got.ID)
	}

	if _, err := m.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestManagerAskCreatesSessionWhenIDEmpty(t *testing.T) {
	m := NewManager(testFactory(t), time.Minute)

	answer, sess, err := m.Ask(context.Background(), "", "how do I polish glasses?")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if answer != "answer" {
		t.Errorf("unexpected answer %q", answer)
	}
	if sess.ID == "" {
		t.Fatal("expected an implicit session")
	}
	if sess.TurnCount != 1 {
		t.Errorf("expected turn count 1, got %d", sess.TurnCount)
	}
	if m.ActiveCount() != 1 {
		t.Errorf("expected 1 active session, got %d", m.ActiveCount())
	}
}

func TestManagerAskRoutesToExistingSession(t *testing.T) {
	m := NewManager(testFactory(t), time.Minute)

	s, err := m.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, after1, err := m.Ask(context.Background(), s.ID, "q1")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	_, after2, err := m.Ask(context.Background(), s.ID, "q2")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if after1.TurnCount != 1 || after2.TurnCount != 2 {
		t.Errorf("turn counts wrong: %d then %d", after1.TurnCount, after2.TurnCount)
	}
	if m.ActiveCount() != 1 {
		t.Errorf("expected 1 session, got %d", m.ActiveCount())
	}
}

func TestManagerAskUnknownSession(t *testing.T) {
	m := NewManager(testFactory(t), time.Minute)
	if _, _, err := m.Ask(context.Background(), "missing", "q"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestManagerFailedTurnDoesNotCount(t *testing.T) {
	m := NewManager(testFactory(t), time.Minute)
	s, err := m.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, sess, err := m.Ask(context.Background(), s.ID, "   ")
	if !errors.Is(err, chat.ErrEmptyQuestion) {
		t.Fatalf("expected ErrEmptyQuestion, got %v", err)
	}
	if sess.TurnCount != 0 {
		t.Errorf("failed turn must not increment turn count, got %d", sess.TurnCount)
	}
}

func TestManagerEnd(t *testing.T) {
	m := NewManager(testFactory(t), time.Minute)
	s, err := m.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	ended, err := m.End(s.ID)
	if err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if ended.Status != StatusEnded {
		t.Errorf("expected ended status, got %s", ended.Status)
	}
	if m.ActiveCount() != 0 {
		t.Errorf("expected no active sessions, got %d", m.ActiveCount())
	}
	if _, _, err := m.Ask(context.Background(), s.ID, "q"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ended session should reject turns, got %v", err)
	}
	if _, err := m.End(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("double End should report ErrNotFound, got %v", err)
	}
}

func TestManagerExpiresInactiveSessions(t *testing.T) {
	m := NewManager(testFactory(t), 10*time.Millisecond)

	var expired []*Session
	m.SetExpireHook(func(s *Session) { expired = append(expired, s) })

	s, err := m.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	m.expireInactive()

	if m.ActiveCount() != 0 {
		t.Errorf("expected session expired, %d still active", m.ActiveCount())
	}
	if len(expired) != 1 || expired[0].ID != s.ID {
		t.Errorf("expire hook not invoked for %s: %+v", s.ID, expired)
	}
	if expired[0].Status != StatusEnded {
		t.Errorf("expired session should be ended, got %s", expired[0].Status)
	}
}

// Failed turns return a session snapshot while the janitor may be expiring
// the same session; run both paths concurrently so the race detector can
// check the snapshot is taken under the lock.
func TestManagerAskErrorPathDuringExpiry(t *testing.T) {
	factory := func() (*chat.Composer, error) {
		history := chat.NewHistory(100, chat.WordCounter{})
		return chat.NewComposer(failingRetriever{}, chat.NewMockLLM("unused"), history, chat.ComposerConfig{})
	}
	m := NewManager(factory, time.Nanosecond)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			s, err := m.Create()
			if err != nil {
				t.Errorf("Create failed: %v", err)
				return
			}
			_, sess, err := m.Ask(context.Background(), s.ID, "q")
			if err == nil {
				t.Error("expected the turn to fail")
				return
			}
			if sess != nil && sess.ID == "" {
				t.Error("snapshot missing its session id")
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			m.expireInactive()
		}
	}()
	wg.Wait()
}

func TestManagerSessionsAreIsolated(t *testing.T) {
	m := NewManager(testFactory(t), time.Minute)

	s1, err := m.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	s2, err := m.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, _, err := m.Ask(context.Background(), s1.ID, "only for s1"); err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	got2, err := m.Get(s2.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got2.TurnCount != 0 {
		t.Errorf("turn leaked across sessions: %+v", got2)
	}
}
