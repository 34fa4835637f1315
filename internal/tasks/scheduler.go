package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/lysyi3m/newsdesk/internal/database"
)

const (
	DefaultCoreInterval    = 15 * time.Minute
	DefaultRegularInterval = 60 * time.Minute
	DefaultCleanupInterval = 6 * time.Hour

	CleanupJobID = "cleanup"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Options struct {
	CoreInterval    time.Duration
	RegularInterval time.Duration
	CleanupInterval time.Duration
	WorkerCount     int
	QueueSize       int
	// RunOnStart enqueues one fetch of every topic when the scheduler starts.
	RunOnStart bool
	// NewExtractTask, when set, builds a content extraction task that runs after each successful topic fetch.
	NewExtractTask func() TaskInterface
}

type JobInfo struct {
	ID       string        `json:"id"`
	Interval time.Duration `json:"interval"`
	TopicID  int64         `json:"topic_id,omitempty"`
}

type job struct {
	info    JobInfo
	newTask func() TaskInterface
	cancel  context.CancelFunc
}

// Scheduler keeps one ticker per enabled topic plus an independent cleanup ticker.
// Ticks only enqueue tasks; a fixed worker pool executes them.
type Scheduler struct {
	pipeline  Pipeline
	topicRepo database.TopicRepository
	opts      Options
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	taskQueue chan TaskInterface

	mu      sync.Mutex
	jobs    map[string]*job
	started bool
	stopped bool
}

func NewScheduler(pipeline Pipeline, topicRepo database.TopicRepository, opts Options) *Scheduler {
	if opts.CoreInterval <= 0 {
		opts.CoreInterval = DefaultCoreInterval
	}
	if opts.RegularInterval <= 0 {
		opts.RegularInterval = DefaultRegularInterval
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = DefaultCleanupInterval
	}
	if opts.WorkerCount <= 0 {
		opts.WorkerCount = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 300
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		pipeline:  pipeline,
		topicRepo: topicRepo,
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		taskQueue: make(chan TaskInterface, opts.QueueSize),
		jobs:      make(map[string]*job),
	}

	s.jobs[CleanupJobID] = &job{
		info: JobInfo{ID: CleanupJobID, Interval: opts.CleanupInterval},
		newTask: func() TaskInterface {
			return NewCleanupTask(pipeline)
		},
	}

	return s
}

func topicJobID(topicID int64) string {
	return fmt.Sprintf("topic-%d", topicID)
}

// Rebuild replaces every topic job with one per enabled topic in the given list.
// The cleanup job is left untouched.
func (s *Scheduler) Rebuild(topics []database.Topic) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, j := range s.jobs {
		if id == CleanupJobID {
			continue
		}
		if j.cancel != nil {
			j.cancel()
		}
		delete(s.jobs, id)
	}

	for _, topic := range topics {
		if !topic.Enabled {
			continue
		}

		interval := s.opts.RegularInterval
		if topic.IsCore {
			interval = s.opts.CoreInterval
		}

		topicID, topicName := topic.ID, topic.Name
		j := &job{
			info: JobInfo{ID: topicJobID(topicID), Interval: interval, TopicID: topicID},
			newTask: func() TaskInterface {
				return NewFetchTopicTask(topicID, topicName, s.pipeline, s.topicRepo)
			},
		}
		s.jobs[j.info.ID] = j

		if s.started && !s.stopped {
			s.startJob(j)
		}
	}

	slog.Info("Schedule rebuilt", "jobs", len(s.jobs))
}

// Reload rebuilds the schedule from the enabled topics in the database.
func (s *Scheduler) Reload(ctx context.Context) error {
	topics, err := s.topicRepo.ListEnabledTopics(ctx)
	if err != nil {
		return fmt.Errorf("failed to list enabled topics: %w", err)
	}

	s.Rebuild(topics)
	return nil
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.stopped {
		return
	}
	s.started = true

	for i := 0; i < s.opts.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	for _, j := range s.jobs {
		s.startJob(j)
	}

	if s.opts.RunOnStart {
		if err := s.EnqueueTask(NewFetchAllTask(s.pipeline)); err != nil {
			slog.Warn("Failed to enqueue startup FetchAllTask", "error", err)
		}
	}
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

// startJob must be called with s.mu held.
func (s *Scheduler) startJob(j *job) {
	ctx, cancel := context.WithCancel(s.ctx)
	j.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(j.info.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.EnqueueTask(j.newTask()); err != nil {
					slog.Warn("Failed to enqueue scheduled task, dropping tick", "job", j.info.ID, "error", err)
				}
			}
		}
	}()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}

	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// TriggerFetchAll queues an immediate fetch of every enabled topic.
func (s *Scheduler) TriggerFetchAll() error {
	return s.EnqueueTask(NewFetchAllTask(s.pipeline))
}

func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j.info)
	}
	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].ID < jobs[k].ID
	})
	return jobs
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

// executeTask runs a task once. Failed runs are logged and picked up again on the next tick.
func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	err := task.Execute(s.ctx)
	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "target", task.GetTarget(), "id", task.GetID(), "error", err)
		return
	}

	if task.GetType() == TaskTypeFetchTopic && s.opts.NewExtractTask != nil {
		if err := s.EnqueueTask(s.opts.NewExtractTask()); err != nil {
			slog.Warn("Failed to enqueue ExtractContentTask", "topic", task.GetTarget(), "error", err)
		}
	}
}
