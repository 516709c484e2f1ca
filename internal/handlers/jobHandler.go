package handlers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avaldes/ragdocs/internal/adapter/utils"
	"github.com/avaldes/ragdocs/internal/api"
	"github.com/avaldes/ragdocs/internal/config"
	"github.com/avaldes/ragdocs/internal/domain/jobModel"
	"github.com/avaldes/ragdocs/internal/job"
	"github.com/avaldes/ragdocs/internal/metrics"
	"github.com/avaldes/ragdocs/pkg/logx"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           *logx.Logger
)

type JobHandler struct {
	service *job.Service
}

func InitJobHandler(jobService *job.Service) {
	once.Do(func() {
		handlerInstance = &JobHandler{service: jobService}

		logJH = logx.NewLogger("JobHandler")
		logRH = logx.NewLogger("RequestHandler")
		logJH.Info("Starting job handler")
	})
}

func CreateNewJob(newJob newJobData) {
	logJH.Info("To create new job", "traceId", newJob.traceId, "job id", newJob.id)
	handlerInstance.pushToJobChannel(newJob)
	if newJob.isNewChat {
		logJH.Info("Create new chat")
		handlerInstance.initNewChat(newJob.chatId, newJob.traceId)
	}
}

// SubmitQuery queues a query job outside the HTTP path (the MCP tools use
// this) and returns the job id to poll.
func SubmitQuery(message string, chatId string, namespace string, traceId string) string {
	newJob := newJobData{
		id:        utils.GetNewUUID(),
		chatId:    chatId,
		message:   message,
		namespace: namespace,
		isNewChat: chatId == "",
		traceId:   traceId,
	}
	if newJob.isNewChat {
		newJob.chatId = utils.GetNewUUID()
	}
	CreateNewJob(newJob)
	return newJob.id
}

// EnqueueIngest queues an ingestion job for an already-staged file. The
// startup auto-scan feeds this.
func EnqueueIngest(docName string, docPath string, namespace string) string {
	newJob := newJobData{
		id:               utils.GetNewUUID(),
		traceId:          utils.GetNewUUID(),
		isDocumentIngest: true,
		documentName:     docName,
		documentSource:   docPath,
		namespace:        namespace,
	}
	CreateNewJob(newJob)
	return newJob.id
}

func GetJobStatus(id string, traceId string) (result jobModel.Job, isFound bool) {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	if handlerInstance != nil {
		return handlerInstance.service.JobStore.GetJob(ctxC, id)
	}
	return result, false
}

func ValidateChatRequest(chatReq api.ChatRequest) bool {
	if handlerInstance == nil {
		return false
	}
	logJH.Debug("Validating chat id", "chatId", chatReq.ChatID)
	if chatReq.Message == "" {
		return false
	}
	if chatReq.ChatID == "" {
		return true
	}
	return handlerInstance.service.MessageStore.ValidateChatId(context.Background(), chatReq.ChatID)
}

// private methods
func (h *JobHandler) pushToJobChannel(newJob newJobData) {

	_job := jobModel.Job{}
	_job.Id = newJob.id
	_job.CreatedTime = time.Now()
	_job.TraceId = newJob.traceId
	_job.Status = jobModel.JobStatusQueued
	_job.JobPayload.Namespace = newJob.namespace

	if newJob.isDocumentIngest {
		_job.CurrentStep = jobModel.IngestInit
		_job.JobType = jobModel.JobTypeIngest
		_job.JobPayload.IngestFileName = newJob.documentName
		_job.JobPayload.IngestURL = newJob.documentSource
	} else {
		_job.JobType = jobModel.JobTypeQuery
		_job.ChatId = newJob.chatId
		_job.JobPayload.Question = newJob.message
		_job.CurrentStep = jobModel.UserQueryInit
	}

	//metrics
	metrics.IncrementJobsInQueue()

	h.service.JobChannel <- _job //blocking send to prevent the system from being overwhelmed
	logJH.Info("Created new job")

	//a new worker is signalled every N requests, and always for ingestion:
	//ingestion involves slow external batch calls, and idle workers retire on
	//their own, so the pool stays small at rest
	accurateCount := atomic.AddInt64(&h.service.RequestCount, 1)
	if accurateCount%config.RequestsPerNewWorkerCount == 0 || _job.JobType == jobModel.JobTypeIngest {
		metrics.StartDispatcherSignalCount() //metrics
		logJH.Debug("Worker count", "requests", accurateCount)
		h.service.DispatcherChannel <- true
	}
}

func (h *JobHandler) initNewChat(chatId string, traceId string) {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	err := h.service.MessageStore.InitNewChat(ctxC, chatId)
	if err != nil {
		logJH.Error("Error initiating new chat", "chatId", chatId, "error", err)
		return
	}
}
