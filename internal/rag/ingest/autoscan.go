package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avaldes/ragdocs/internal/config"
	"github.com/avaldes/ragdocs/internal/domain/jobModel"
	"github.com/avaldes/ragdocs/pkg/logx"
)

// ScanResult reports what a startup scan did.
type ScanResult struct {
	Scanned int
	Queued  int
	Indexed int
}

// EnqueueFunc queues one ingest job for a staged file and returns its job id.
type EnqueueFunc func(docName string, docPath string, namespace string) string

// StatusFunc looks up the current state of a queued job.
type StatusFunc func(jobId string) (jobModel.JobStatus, bool)

type pendingScan struct {
	name  string
	mtime int64
	jobId string
}

const scanCompletionWait = 10 * time.Minute

// ScanAndQueue walks dir for PDFs that are new or changed since the last run
// and queues them into the default namespace. Ingest jobs delete the file
// they are given, so each document is staged into stageDir first and the
// originals stay put. A file's mtime goes into the state file only once its
// job completes, so a failed ingest is picked up again on the next scan.
func ScanAndQueue(dir string, stageDir string, enqueue EnqueueFunc, status StatusFunc) (ScanResult, error) {
	log := logx.NewLogger("AutoIngest")
	res := ScanResult{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return res, fmt.Errorf("reading scan dir: %w", err)
	}

	statePath := filepath.Join(dir, config.AutoIngestStateFile)
	state := loadScanState(statePath)
	var pending []pendingScan

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		res.Scanned++

		info, err := entry.Info()
		if err != nil {
			log.Error("Skipping unreadable file", "file", entry.Name(), "error", err)
			continue
		}
		mtime := info.ModTime().Unix()
		if state[entry.Name()] == mtime {
			continue
		}

		staged, err := stageFile(filepath.Join(dir, entry.Name()), stageDir)
		if err != nil {
			log.Error("Could not stage file", "file", entry.Name(), "error", err)
			continue
		}

		log.Info("Queueing document", "file", entry.Name(), "namespace", config.DefaultNamespace)
		jobId := enqueue(entry.Name(), staged, config.DefaultNamespace)
		pending = append(pending, pendingScan{name: entry.Name(), mtime: mtime, jobId: jobId})
		res.Queued++
	}

	if len(pending) == 0 {
		return res, nil
	}

	// Wait for the queued jobs and remember only the ones that finished.
	done := awaitCompletion(pending, status, log)
	res.Indexed = len(done)
	if len(done) > 0 {
		for name, mtime := range done {
			state[name] = mtime
		}
		if err := saveScanState(statePath, state); err != nil {
			log.Error("Could not persist scan state", "error", err)
		}
	}
	return res, nil
}

// awaitCompletion polls the queued jobs until every one reaches a terminal
// state or the wait budget runs out. Jobs that errored, vanished, or timed
// out are left out of the result so the next scan retries them.
func awaitCompletion(pending []pendingScan, status StatusFunc, log *logx.Logger) map[string]int64 {
	done := make(map[string]int64)
	deadline := time.Now().Add(scanCompletionWait)

	for len(pending) > 0 && time.Now().Before(deadline) {
		var unresolved []pendingScan
		for _, p := range pending {
			jobStatus, found := status(p.jobId)
			if !found {
				log.Error("Queued job disappeared, will rescan", "file", p.name, "jobId", p.jobId)
				continue
			}
			switch jobStatus {
			case jobModel.JobStatusComplete:
				done[p.name] = p.mtime
			case jobModel.JobStatusError:
				log.Error("Ingest failed, will rescan", "file", p.name, "jobId", p.jobId)
			default:
				unresolved = append(unresolved, p)
			}
		}
		pending = unresolved
		if len(pending) > 0 {
			time.Sleep(time.Second)
		}
	}

	for _, p := range pending {
		log.Error("Ingest did not finish in time, will rescan", "file", p.name, "jobId", p.jobId)
	}
	return done
}

func stageFile(src string, stageDir string) (string, error) {
	if err := os.MkdirAll(stageDir, 0750); err != nil {
		return "", err
	}

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	dst := filepath.Join(stageDir, fmt.Sprintf("%d-%s", time.Now().UnixNano(), filepath.Base(src)))
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		os.Remove(dst)
		return "", err
	}
	return dst, nil
}

func loadScanState(path string) map[string]int64 {
	state := make(map[string]int64)
	data, err := os.ReadFile(path)
	if err != nil {
		return state
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return make(map[string]int64)
	}
	return state
}

func saveScanState(path string, state map[string]int64) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
