package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avaldes/ragdocs/internal/config"
	"github.com/avaldes/ragdocs/internal/domain/jobModel"
	"github.com/avaldes/ragdocs/internal/job"
	"github.com/avaldes/ragdocs/pkg/logx"
)

// MockRagService to track if jobs are executed
type MockRagService struct {
	ProcessedCount int32
	OnIngest       func(ctx context.Context, j jobModel.Job) jobModel.Job
}

func (m *MockRagService) ProcessRequest(ctx context.Context, j jobModel.Job, hist []string) jobModel.Job {
	atomic.AddInt32(&m.ProcessedCount, 1)
	return j
}

func (m *MockRagService) IngestDocument(ctx context.Context, j jobModel.Job) jobModel.Job {
	atomic.AddInt32(&m.ProcessedCount, 1)
	if m.OnIngest != nil {
		return m.OnIngest(ctx, j)
	}
	return j
}

type MockJobStore struct {
	OnSaveJob func(ctx context.Context, job jobModel.Job) error
}

func (m *MockJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	return jobModel.Job{}, false
}

func (m *MockJobStore) DeleteJob(ctx context.Context, jobID string) {}

func (m *MockJobStore) SaveJob(ctx context.Context, j jobModel.Job) error {
	if m.OnSaveJob != nil {
		return m.OnSaveJob(ctx, j)
	}
	return nil
}

// MockMessageStore handles chat history
type MockMessageStore struct {
	OnGetHistory func(ctx context.Context, chatId string) (error, []string)
	OnSaveChat   func(ctx context.Context, chatId string, payload jobModel.JobPayload) error
}

func (m *MockMessageStore) ValidateChatId(ctx context.Context, id string) bool {
	return true
}

func (m *MockMessageStore) InitNewChat(ctx context.Context, id string) error {
	return nil
}

func (m *MockMessageStore) GetMessageHistory(ctx context.Context, id string) (error, []string) {
	if m.OnGetHistory != nil {
		return m.OnGetHistory(ctx, id)
	}
	return nil, []string{}
}
func (m *MockMessageStore) TrySaveChat(ctx context.Context, id string, p jobModel.JobPayload) error {
	if m.OnSaveChat != nil {
		return m.OnSaveChat(ctx, id, p)
	}
	return nil
}

func TestWorkerPool_Flow(t *testing.T) {
	// 1. Setup
	jobSvc := &job.Service{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 10),
		JobStore:          &MockJobStore{},
		MessageStore:      &MockMessageStore{},
	}
	mockRag := &MockRagService{}
	stopChan := make(chan bool)
	wg := &sync.WaitGroup{}

	InitServices(jobSvc, mockRag)
	InitWorkerPool(stopChan, wg)

	// Reset global state for test
	atomic.StoreInt64(&currentWorkerCount, 0)

	t.Run("Dispatcher creates worker on signal", func(t *testing.T) {
		// Signal dispatcher to create a worker
		jobSvc.DispatcherChannel <- true

		// Give it a millisecond to spawn
		time.Sleep(50 * time.Millisecond)

		count := atomic.LoadInt64(&currentWorkerCount)
		if count < 1 {
			t.Errorf("Expected at least 1 worker, got %d", count)
		}
	})

	t.Run("Worker processes a job", func(t *testing.T) {
		testJob := jobModel.Job{Id: "test-1"}
		jobSvc.JobChannel <- testJob

		// Wait for worker to pick up and process
		time.Sleep(50 * time.Millisecond)

		processed := atomic.LoadInt32(&mockRag.ProcessedCount)
		if processed != 1 {
			t.Errorf("Expected 1 job processed, got %d", processed)
		}
	})

	t.Run("Stop signal retires workers", func(t *testing.T) {
		// Send stop signal
		close(stopChan)

		// Wait for workers to exit
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			// Success
		case <-time.After(2 * time.Second):
			t.Error("Workers did not stop within timeout")
		}
	})
}

func TestExecuteJob_TerminalStates(t *testing.T) {
	logger = logx.NewLogger("TestWorkerPool")

	tests := []struct {
		name       string
		job        jobModel.Job
		ingest     func(ctx context.Context, j jobModel.Job) jobModel.Job
		wantStatus jobModel.JobStatus
	}{
		{
			name:       "Query job completes",
			job:        jobModel.Job{Id: "q-1", JobType: jobModel.JobTypeQuery},
			wantStatus: jobModel.JobStatusComplete,
		},
		{
			name: "Ingest failure stays failed",
			job:  jobModel.Job{Id: "i-1", JobType: jobModel.JobTypeIngest},
			ingest: func(ctx context.Context, j jobModel.Job) jobModel.Job {
				j.Status = jobModel.JobStatusError
				return j
			},
			wantStatus: jobModel.JobStatusError,
		},
		{
			name: "Ingest success keeps chunk counts",
			job:  jobModel.Job{Id: "i-2", JobType: jobModel.JobTypeIngest},
			ingest: func(ctx context.Context, j jobModel.Job) jobModel.Job {
				j.Status = jobModel.JobStatusComplete
				j.JobPayload.IndexedChunks = 7
				j.JobPayload.SkippedChunks = 2
				return j
			},
			wantStatus: jobModel.JobStatusComplete,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var lastSaved jobModel.Job
			jobSvc := &job.Service{
				JobStore: &MockJobStore{
					OnSaveJob: func(ctx context.Context, j jobModel.Job) error {
						lastSaved = j
						return nil
					},
				},
				MessageStore: &MockMessageStore{},
			}
			InitServices(jobSvc, &MockRagService{OnIngest: tt.ingest})

			executeJob(tt.job)

			if lastSaved.Status != tt.wantStatus {
				t.Errorf("Final status got %v, want %v", lastSaved.Status, tt.wantStatus)
			}
			if tt.job.Id == "i-2" && (lastSaved.JobPayload.IndexedChunks != 7 || lastSaved.JobPayload.SkippedChunks != 2) {
				t.Errorf("Chunk counts lost: %+v", lastSaved.JobPayload)
			}
		})
	}
}

func TestWorker_IdleTimeout(t *testing.T) {
	// Temporarily override config/globals for test
	atomic.StoreInt64(&currentWorkerCount, 0)
	logger = logx.NewLogger("TestWorkerPool")
	jobSvc := &job.Service{
		JobChannel: make(chan jobModel.Job),
	}
	InitServices(jobSvc, &MockRagService{})

	wg := &sync.WaitGroup{}
	stopChan := make(chan bool)
	workerWaitGroup = wg
	stopWorkerChannel = stopChan

	// Two idle workers, staggered so their timeouts do not fire together.
	createWorker()
	time.Sleep(200 * time.Millisecond)
	createWorker()

	time.Sleep(config.IdleWorkerTimeout)
	time.Sleep(500 * time.Millisecond)

	count := atomic.LoadInt64(&currentWorkerCount)
	if count != config.MinWorkerCount {
		t.Errorf("Assertion Failed: idle pool should shrink to %d worker(s), but count is %d", config.MinWorkerCount, count)
	}

	close(stopChan)
	wg.Wait()
}
