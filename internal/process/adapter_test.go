package process

import (
	"errors"
	"testing"
)

func TestNewJobCapturesInput(t *testing.T) {
	payload := map[string]string{"key": "dev/photo.jpg"}
	job := NewJob("thumbnail", "run-1", payload)

	if job.Kind != "thumbnail" || job.ID != "run-1" {
		t.Fatalf("unexpected job identity: %+v", job)
	}
	if job.Status != JobStatusPending {
		t.Fatalf("new job should be pending, got %v", job.Status)
	}

	got, ok := job.Input.(map[string]string)
	if !ok {
		t.Fatalf("job input type mismatch: %#v", job.Input)
	}
	if got["key"] != "dev/photo.jpg" {
		t.Fatalf("job input not preserved: %#v", got)
	}
}

func TestMarkFailedSetsStatusAndError(t *testing.T) {
	job := NewJob("thumbnail", "run-2", nil)
	MarkRunning(job)
	MarkStage(job, "upload")
	MarkFailed(job, errors.New("boom"))

	if job.Status != JobStatusFailed {
		t.Fatalf("job status not failed: %v", job.Status)
	}
	if job.Error == "" {
		t.Fatal("job error not recorded")
	}
	if job.Stage != "upload" {
		t.Fatalf("stage not preserved: %q", job.Stage)
	}
	if !job.Terminal() {
		t.Fatal("failed job should be terminal")
	}
}

func TestMarkFailedDoesNotOverwriteErrorWhenNil(t *testing.T) {
	job := NewJob("thumbnail", "run-3", nil)
	MarkFailed(job, nil)

	if job.Status != JobStatusFailed {
		t.Fatalf("job status not failed: %v", job.Status)
	}
	if job.Error != "" {
		t.Fatalf("expected empty error string, got %q", job.Error)
	}
}

func TestTerminalStates(t *testing.T) {
	tests := []struct {
		status JobStatus
		want   bool
	}{
		{JobStatusPending, false},
		{JobStatusRunning, false},
		{JobStatusSkipped, true},
		{JobStatusSucceeded, true},
		{JobStatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			job := &Job{Status: tt.status}
			if got := job.Terminal(); got != tt.want {
				t.Errorf("Terminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMarkSkippedKeepsReason(t *testing.T) {
	job := NewJob("thumbnail", "run-4", nil)
	MarkSkipped(job, "non-image key")

	if job.Status != JobStatusSkipped || job.Error != "non-image key" {
		t.Fatalf("unexpected skipped job: %+v", job)
	}
}
