package mcpserver

import (
	"context"
	"errors"
	"time"

	"github.com/avaldes/ragdocs/internal/adapter/utils"
	"github.com/avaldes/ragdocs/internal/domain/jobModel"
	"github.com/avaldes/ragdocs/internal/handlers"
	"github.com/avaldes/ragdocs/pkg/logx"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// The MCP surface reuses the job pipeline: a tool call queues a job exactly
// like the HTTP handlers do and polls the job store for the result.

var logger *logx.Logger

type queryInput struct {
	Question  string `json:"question" jsonschema:"the natural-language question to answer from the indexed documents"`
	Namespace string `json:"namespace,omitempty" jsonschema:"optional namespace to search in"`
}

type queryOutput struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources,omitempty"`
}

type statusInput struct {
	JobId string `json:"job_id" jsonschema:"the job id returned by a previous operation"`
}

type statusOutput struct {
	Status      string `json:"status"`
	CurrentStep string `json:"current_step"`
	Answer      string `json:"answer,omitempty"`
}

// Run serves the tools over stdio until ctx is cancelled.
func Run(ctx context.Context) error {
	logger = logx.NewLogger("MCP")

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "ragdocs",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_documents",
		Description: "Answer a question from the ingested documents using retrieval-augmented generation",
	}, queryDocuments)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "job_status",
		Description: "Look up the state of a background job by its id",
	}, jobStatus)

	logger.Info("MCP server listening on stdio")
	return server.Run(ctx, &mcp.StdioTransport{})
}

func queryDocuments(ctx context.Context, req *mcp.CallToolRequest, in queryInput) (*mcp.CallToolResult, queryOutput, error) {
	if in.Question == "" {
		return nil, queryOutput{}, errors.New("question is required")
	}

	traceId := utils.GetNewUUID()
	jobId := handlers.SubmitQuery(in.Question, "", in.Namespace, traceId)
	logger.Debug("Queued query job", "jobId", jobId, "traceId", traceId)

	job, err := waitForJob(ctx, jobId, traceId)
	if err != nil {
		return nil, queryOutput{}, err
	}
	if job.Status == jobModel.JobStatusError {
		return nil, queryOutput{}, errors.New("query failed: " + job.Error.Message)
	}

	return nil, queryOutput{
		Answer:  job.JobPayload.Answer,
		Sources: job.JobPayload.Sources,
	}, nil
}

func jobStatus(ctx context.Context, req *mcp.CallToolRequest, in statusInput) (*mcp.CallToolResult, statusOutput, error) {
	if in.JobId == "" {
		return nil, statusOutput{}, errors.New("job_id is required")
	}

	job, found := handlers.GetJobStatus(in.JobId, utils.GetNewUUID())
	if !found {
		return nil, statusOutput{}, errors.New("job not found")
	}
	return nil, statusOutput{
		Status:      string(job.Status),
		CurrentStep: string(job.CurrentStep),
		Answer:      job.JobPayload.Answer,
	}, nil
}

func waitForJob(ctx context.Context, jobId string, traceId string) (jobModel.Job, error) {
	deadline, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline.Done():
			return jobModel.Job{}, deadline.Err()
		case <-ticker.C:
			job, found := handlers.GetJobStatus(jobId, traceId)
			if !found {
				continue
			}
			if job.Status == jobModel.JobStatusComplete || job.Status == jobModel.JobStatusError {
				return job, nil
			}
		}
	}
}
