package transcode

import "context"

// SubmitJobInput describes one transcode job: where the raw upload lives
// and which video it belongs to. The video ID travels as job metadata so
// the completion event can be correlated back to the record.
type SubmitJobInput struct {
	SourceLocation string // s3://<bucket>/<key>
	VideoID        string
}

// Engine submits transcode jobs to the external engine. Submission is
// fire-and-forget: completion arrives later as a separate notification.
type Engine interface {
	SubmitJob(ctx context.Context, input SubmitJobInput) (jobID string, err error)
}
