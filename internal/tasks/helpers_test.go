package tasks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/newsdesk/internal/database"
)

type mockPipeline struct {
	mu        sync.Mutex
	topicRuns []int64
	allRuns   int
	cleanups  int
	err       error
	calls     chan string
}

func newMockPipeline() *mockPipeline {
	return &mockPipeline{calls: make(chan string, 64)}
}

func (m *mockPipeline) RunTopic(ctx context.Context, topic database.Topic) (int, error) {
	m.mu.Lock()
	m.topicRuns = append(m.topicRuns, topic.ID)
	m.mu.Unlock()
	m.signal("topic")
	return 2, m.err
}

func (m *mockPipeline) RunAll(ctx context.Context) (int, error) {
	m.mu.Lock()
	m.allRuns++
	m.mu.Unlock()
	m.signal("all")
	return 5, m.err
}

func (m *mockPipeline) Cleanup(ctx context.Context) (int, error) {
	m.mu.Lock()
	m.cleanups++
	m.mu.Unlock()
	m.signal("cleanup")
	return 1, m.err
}

func (m *mockPipeline) signal(kind string) {
	select {
	case m.calls <- kind:
	default:
	}
}

func (m *mockPipeline) topicRunCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.topicRuns)
}

func waitFor(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-ch:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("Timed out waiting for %q", want)
		}
	}
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(database.MemoryPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func createTopic(t *testing.T, repo database.TopicRepository, topic database.Topic) int64 {
	t.Helper()
	id, err := repo.CreateTopic(context.Background(), topic)
	if err != nil {
		t.Fatalf("Failed to create topic: %v", err)
	}
	return id
}
