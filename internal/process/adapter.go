// internal/process/adapter.go
package process

// JobStatus represents the lifecycle state of a thumbnail run.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusSkipped   JobStatus = "skipped"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Job captures the minimal metadata tracked for one run.
type Job struct {
	ID     string
	Kind   string
	Input  any
	Status JobStatus
	Stage  string
	Error  string
}

func NewJob(kind, id string, input any) *Job {
	return &Job{
		ID:     id,
		Kind:   kind,
		Input:  input,
		Status: JobStatusPending,
	}
}

func MarkRunning(j *Job)   { j.Status = JobStatusRunning }
func MarkSucceeded(j *Job) { j.Status = JobStatusSucceeded }

// MarkStage records the stage the run is currently in.
func MarkStage(j *Job, stage string) { j.Stage = stage }

// MarkSkipped ends a run that had nothing to do. reason is kept in Error so
// the terminal log line can show it.
func MarkSkipped(j *Job, reason string) {
	j.Status = JobStatusSkipped
	j.Error = reason
}

func MarkFailed(j *Job, err error) {
	j.Status = JobStatusFailed
	if err != nil {
		j.Error = err.Error()
	}
}

// Terminal reports whether the job has reached an end state.
func (j *Job) Terminal() bool {
	switch j.Status {
	case JobStatusSkipped, JobStatusSucceeded, JobStatusFailed:
		return true
	}
	return false
}
