package constants

// RecordStatus is the per-file outcome reported back to the caller.
type RecordStatus string

const (
	RecordSuccess RecordStatus = "success"
	RecordError   RecordStatus = "error"
)

// JobStatus is the canonical status for rows in conversion_job.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusRunning   JobStatus = "RUNNING"   // in progress
	JobStatusConverted JobStatus = "CONVERTED" // output file written
	JobStatusFailed    JobStatus = "FAILED"    // terminal failure
)

// Stage names recorded on failed jobs.
const (
	StageExtract   = "extract"
	StageChunk     = "chunk"
	StageConvert   = "convert"
	StageCombine   = "combine"
	StageSerialize = "serialize"
)
