package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/avaldes/ragdocs/internal/domain/jobModel"
)

func completedStatus(jobId string) (jobModel.JobStatus, bool) {
	return jobModel.JobStatusComplete, true
}

func TestScanAndQueue(t *testing.T) {
	scanDir := t.TempDir()
	stageDir := t.TempDir()

	os.WriteFile(filepath.Join(scanDir, "report.pdf"), []byte("%PDF-1.4 fake"), 0644)
	os.WriteFile(filepath.Join(scanDir, "notes.txt"), []byte("not a pdf"), 0644)

	var queued []string
	enqueue := func(docName string, docPath string, namespace string) string {
		queued = append(queued, docName)
		if _, err := os.Stat(docPath); err != nil {
			t.Errorf("Staged file missing: %v", err)
		}
		if namespace == "" {
			t.Error("Expected a namespace on queued documents")
		}
		return "job-" + docName
	}

	res, err := ScanAndQueue(scanDir, stageDir, enqueue, completedStatus)
	if err != nil {
		t.Fatalf("ScanAndQueue failed: %v", err)
	}
	if res.Scanned != 1 || res.Queued != 1 || res.Indexed != 1 {
		t.Errorf("Result got %+v, want Scanned=1 Queued=1 Indexed=1", res)
	}
	if len(queued) != 1 || queued[0] != "report.pdf" {
		t.Errorf("Queued got %v, want [report.pdf]", queued)
	}

	// Original must survive staging, the ingest job deletes only its copy.
	if _, err := os.Stat(filepath.Join(scanDir, "report.pdf")); err != nil {
		t.Errorf("Original file should not be touched: %v", err)
	}

	// Second scan with no changes queues nothing.
	queued = nil
	res, err = ScanAndQueue(scanDir, stageDir, enqueue, completedStatus)
	if err != nil {
		t.Fatalf("ScanAndQueue (rescan) failed: %v", err)
	}
	if res.Queued != 0 || len(queued) != 0 {
		t.Errorf("Expected unchanged files to be skipped, got %+v", res)
	}
}

func TestScanAndQueue_FailedIngestIsRetried(t *testing.T) {
	scanDir := t.TempDir()
	stageDir := t.TempDir()
	os.WriteFile(filepath.Join(scanDir, "doc.pdf"), []byte("%PDF"), 0644)

	count := 0
	enqueue := func(docName string, docPath string, namespace string) string {
		count++
		return "job-1"
	}

	// First pass: the job errors out (embedding outage, bad file, anything).
	failed := func(jobId string) (jobModel.JobStatus, bool) {
		return jobModel.JobStatusError, true
	}
	res, err := ScanAndQueue(scanDir, stageDir, enqueue, failed)
	if err != nil {
		t.Fatalf("ScanAndQueue failed: %v", err)
	}
	if res.Queued != 1 || res.Indexed != 0 {
		t.Fatalf("Result got %+v, want Queued=1 Indexed=0", res)
	}

	// The failed document must not be remembered as done.
	res, err = ScanAndQueue(scanDir, stageDir, enqueue, completedStatus)
	if err != nil {
		t.Fatalf("ScanAndQueue (retry) failed: %v", err)
	}
	if res.Queued != 1 || count != 2 {
		t.Errorf("Expected the failed document to be requeued, got %+v after %d enqueues", res, count)
	}

	// Once it succeeds, it stays done.
	res, _ = ScanAndQueue(scanDir, stageDir, enqueue, completedStatus)
	if res.Queued != 0 {
		t.Errorf("Expected the indexed document to be skipped, got %+v", res)
	}
}

func TestScanAndQueue_RequeuesModifiedFile(t *testing.T) {
	scanDir := t.TempDir()
	stageDir := t.TempDir()
	target := filepath.Join(scanDir, "handbook.pdf")

	os.WriteFile(target, []byte("v1"), 0644)

	count := 0
	enqueue := func(docName string, docPath string, namespace string) string {
		count++
		return "job-1"
	}

	if _, err := ScanAndQueue(scanDir, stageDir, enqueue, completedStatus); err != nil {
		t.Fatalf("ScanAndQueue failed: %v", err)
	}

	// Bump the mtime past the recorded one.
	os.WriteFile(target, []byte("v2"), 0644)
	future := time.Now().Add(2 * time.Second)
	os.Chtimes(target, future, future)

	if _, err := ScanAndQueue(scanDir, stageDir, enqueue, completedStatus); err != nil {
		t.Fatalf("ScanAndQueue (rescan) failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected the modified file to be requeued, enqueue count = %d", count)
	}
}

func TestScanAndQueue_MissingDir(t *testing.T) {
	_, err := ScanAndQueue(filepath.Join(t.TempDir(), "nope"), t.TempDir(),
		func(string, string, string) string { return "" }, completedStatus)
	if err == nil {
		t.Error("Expected an error for a missing scan directory")
	}
}

func TestScanStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".ingest_state.json")

	if got := loadScanState(path); len(got) != 0 {
		t.Errorf("Expected empty state for missing file, got %v", got)
	}

	state := map[string]int64{"a.pdf": 100, "b.pdf": 200}
	if err := saveScanState(path, state); err != nil {
		t.Fatalf("saveScanState failed: %v", err)
	}

	got := loadScanState(path)
	if got["a.pdf"] != 100 || got["b.pdf"] != 200 {
		t.Errorf("Round trip mismatch: %v", got)
	}

	// Corrupt state resets instead of failing the scan.
	os.WriteFile(path, []byte("{not json"), 0644)
	if got := loadScanState(path); len(got) != 0 {
		t.Errorf("Expected corrupt state to reset, got %v", got)
	}
}
