package transcode

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert/types"
	"go.uber.org/zap"
)

// MediaConvertConfig holds job submission settings.
type MediaConvertConfig struct {
	RoleARN       string
	JobTemplate   string
	Endpoint      string // optional account-specific endpoint
	OutputsBucket string
}

// MediaConvertEngine submits HLS transcode jobs to AWS MediaConvert.
type MediaConvertEngine struct {
	client *mediaconvert.Client
	cfg    MediaConvertConfig
	logger *zap.Logger
}

// NewMediaConvertEngine creates the MediaConvert client.
func NewMediaConvertEngine(awsCfg aws.Config, cfg MediaConvertConfig, logger *zap.Logger) *MediaConvertEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := mediaconvert.NewFromConfig(awsCfg, func(o *mediaconvert.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &MediaConvertEngine{client: client, cfg: cfg, logger: logger}
}

// SubmitJob creates one transcode job from the uploaded object to the HLS
// destination s3://<outputs>/<videoId>/index. The video ID is attached as
// user metadata for completion-event correlation.
func (e *MediaConvertEngine) SubmitJob(ctx context.Context, input SubmitJobInput) (string, error) {
	destination := fmt.Sprintf("s3://%s/%s/index", e.cfg.OutputsBucket, input.VideoID)

	out, err := e.client.CreateJob(ctx, &mediaconvert.CreateJobInput{
		Role:         aws.String(e.cfg.RoleARN),
		JobTemplate:  aws.String(e.cfg.JobTemplate),
		UserMetadata: map[string]string{"videoId": input.VideoID},
		Settings: &types.JobSettings{
			Inputs: []types.Input{
				{
					FileInput: aws.String(input.SourceLocation),
					AudioSelectors: map[string]types.AudioSelector{
						"Audio Selector 1": {DefaultSelection: types.AudioDefaultSelectionDefault},
					},
				},
			},
			OutputGroups: []types.OutputGroup{
				{
					OutputGroupSettings: &types.OutputGroupSettings{
						Type: types.OutputGroupTypeHlsGroupSettings,
						HlsGroupSettings: &types.HlsGroupSettings{
							Destination: aws.String(destination),
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}

	jobID := ""
	if out.Job != nil && out.Job.Id != nil {
		jobID = *out.Job.Id
	}
	e.logger.Info("transcode job submitted",
		zap.String("video_id", input.VideoID),
		zap.String("job_id", jobID),
		zap.String("source", input.SourceLocation),
	)
	return jobID, nil
}
