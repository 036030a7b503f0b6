package pipeline

import (
	"context"
	"fmt"

	"github.com/alonePlayerr1/MAI-Bot/internal/domain/eventbus"
	"github.com/alonePlayerr1/MAI-Bot/internal/domain/session"
	"github.com/alonePlayerr1/MAI-Bot/internal/platform/errors"
	"github.com/alonePlayerr1/MAI-Bot/internal/platform/logging"
)

// Runner executes the ordered stages of a run. Stages are never retried;
// one failed stage terminates the run with a StageFailure.
type Runner struct {
	fetcher     Fetcher
	normalizer  Normalizer
	uploader    Uploader
	transcriber Transcriber
	analyzer    Analyzer
	reporter    ReportWriter
	deliverer   Deliverer
	bus         *eventbus.Bus
	logger      *logging.Logger
}

// Deps bundles the runner collaborators.
type Deps struct {
	Fetcher     Fetcher
	Normalizer  Normalizer
	Uploader    Uploader
	Transcriber Transcriber
	Analyzer    Analyzer
	Reporter    ReportWriter
	Deliverer   Deliverer
	Bus         *eventbus.Bus
	Logger      *logging.Logger
}

// NewRunner wires a runner from its collaborators.
func NewRunner(deps Deps) *Runner {
	return &Runner{
		fetcher:     deps.Fetcher,
		normalizer:  deps.Normalizer,
		uploader:    deps.Uploader,
		transcriber: deps.Transcriber,
		analyzer:    deps.Analyzer,
		reporter:    deps.Reporter,
		deliverer:   deps.Deliverer,
		bus:         deps.Bus,
		logger:      deps.Logger,
	}
}

// Run executes the pipeline for one request. Every exit path drains the
// temp accumulator; panics are recovered at this boundary and converted to
// a fatal result.
func (r *Runner) Run(ctx context.Context, req Request) (result Result) {
	result = Result{RunID: req.RunID, ChatID: req.ChatID, Status: StatusSuccess}

	temps := &tempAccumulator{}
	defer temps.drain(r.logger)

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorTag("PIPE", "run %s panicked: %v", req.RunID, rec)
			result.Status = StatusFatal
			result.Err = errors.New(errors.KindPipeline, "pipeline.run",
				fmt.Sprintf("unexpected failure: %v", rec))
		}
		r.publishRunFinished(result)
	}()

	transcript := req.Fields.Transcript

	if req.Mode == session.ModeRegistration {
		sourcePath, failed := r.fetchStage(ctx, req, temps)
		if failed != nil {
			return *failed
		}

		normalizedPath, sampleRate, failed := r.normalizeStage(ctx, req, sourcePath, temps)
		if failed != nil {
			return *failed
		}

		uri, failed := r.uploadStage(ctx, req, normalizedPath)
		if failed != nil {
			return *failed
		}

		transcript, failed = r.transcribeStage(ctx, req, uri, sampleRate)
		if failed != nil {
			return *failed
		}
	}

	r.stageStarted(req, StageAnalyze)
	analysis, err := r.analyzer.Analyze(ctx, transcript)
	if err != nil {
		return r.stageFailed(req, StageAnalyze, err)
	}
	r.stageFinished(req, StageAnalyze, nil)

	// The report stage never fails the run; a missing report is delivered
	// as a completion message without an attachment.
	r.stageStarted(req, StageReport)
	reportPath, err := r.reporter.Write(req.Fields, analysis, transcript)
	if err != nil {
		r.logger.WarnTag("PIPE", "run %s: report generation failed: %v", req.RunID, err)
		reportPath = ""
	}
	temps.add(reportPath)
	r.stageFinished(req, StageReport, err)

	r.stageStarted(req, StageDeliver)
	if err := r.deliverer.Deliver(ctx, req.ChatID, reportPath); err != nil {
		return r.stageFailed(req, StageDeliver, err)
	}
	r.stageFinished(req, StageDeliver, nil)

	result.ReportPath = reportPath
	return result
}

func (r *Runner) fetchStage(ctx context.Context, req Request, temps *tempAccumulator) (string, *Result) {
	r.stageStarted(req, StageFetch)
	if err := ctx.Err(); err != nil {
		f := r.stageFailed(req, StageFetch, err)
		return "", &f
	}

	path, err := r.fetcher.Fetch(ctx, req.Fields.SourceRef)
	temps.add(path)
	if err != nil {
		f := r.stageFailed(req, StageFetch, err)
		return "", &f
	}
	if path == "" {
		f := r.stageFailed(req, StageFetch,
			errors.New(errors.KindStage, "pipeline.fetch", "fetcher returned no file"))
		return "", &f
	}
	r.stageFinished(req, StageFetch, nil)
	return path, nil
}

func (r *Runner) normalizeStage(ctx context.Context, req Request, sourcePath string, temps *tempAccumulator) (string, int, *Result) {
	r.stageStarted(req, StageNormalize)
	if err := ctx.Err(); err != nil {
		f := r.stageFailed(req, StageNormalize, err)
		return "", 0, &f
	}

	path, sampleRate, err := r.normalizer.Normalize(sourcePath)
	temps.add(path)
	if err != nil {
		f := r.stageFailed(req, StageNormalize, err)
		return "", 0, &f
	}
	if sampleRate <= 0 {
		f := r.stageFailed(req, StageNormalize,
			errors.New(errors.KindStage, "pipeline.normalize",
				fmt.Sprintf("invalid sample rate: %d", sampleRate)))
		return "", 0, &f
	}
	r.stageFinished(req, StageNormalize, nil)
	return path, sampleRate, nil
}

func (r *Runner) uploadStage(ctx context.Context, req Request, normalizedPath string) (string, *Result) {
	r.stageStarted(req, StageUpload)
	if err := ctx.Err(); err != nil {
		f := r.stageFailed(req, StageUpload, err)
		return "", &f
	}

	objectName := BuildArtifactName(req.Fields, "", ".ogg")
	uri, err := r.uploader.Upload(ctx, normalizedPath, objectName)
	if err != nil {
		f := r.stageFailed(req, StageUpload, err)
		return "", &f
	}
	if uri == "" {
		f := r.stageFailed(req, StageUpload,
			errors.New(errors.KindStage, "pipeline.upload", "uploader returned no uri"))
		return "", &f
	}
	r.stageFinished(req, StageUpload, nil)
	return uri, nil
}

func (r *Runner) transcribeStage(ctx context.Context, req Request, uri string, sampleRate int) (string, *Result) {
	r.stageStarted(req, StageTranscribe)
	if err := ctx.Err(); err != nil {
		f := r.stageFailed(req, StageTranscribe, err)
		return "", &f
	}

	transcript, err := r.transcriber.Transcribe(ctx, uri, sampleRate)
	if err != nil {
		f := r.stageFailed(req, StageTranscribe, err)
		return "", &f
	}
	r.stageFinished(req, StageTranscribe, nil)
	return transcript, nil
}

func (r *Runner) stageFailed(req Request, stage Stage, err error) Result {
	r.logger.ErrorTag("PIPE", "run %s: stage %s failed: %v", req.RunID, stage, err)
	r.stageFinished(req, stage, err)
	return Result{
		RunID:  req.RunID,
		ChatID: req.ChatID,
		Status: StatusStageFailure,
		Stage:  stage,
		Err:    err,
	}
}

func (r *Runner) stageStarted(req Request, stage Stage) {
	r.logger.InfoTag("PIPE", "run %s: stage %s started", req.RunID, stage)
	if r.bus != nil {
		r.bus.Publish(eventbus.TopicStageStarted, eventbus.StageEvent{
			RunID:  req.RunID,
			ChatID: req.ChatID,
			Stage:  string(stage),
		})
	}
}

func (r *Runner) stageFinished(req Request, stage Stage, err error) {
	if r.bus != nil {
		r.bus.Publish(eventbus.TopicStageFinished, eventbus.StageEvent{
			RunID:  req.RunID,
			ChatID: req.ChatID,
			Stage:  string(stage),
			Err:    err,
		})
	}
}

func (r *Runner) publishRunFinished(result Result) {
	if r.bus != nil {
		r.bus.Publish(eventbus.TopicRunFinished, result)
	}
}
