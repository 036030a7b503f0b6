package pipeline

import (
	"context"

	"github.com/alonePlayerr1/MAI-Bot/internal/domain/analyze"
	"github.com/alonePlayerr1/MAI-Bot/internal/domain/session"
)

// Stage identifies one step of a run.
type Stage string

const (
	StageFetch      Stage = "fetch"
	StageNormalize  Stage = "normalize"
	StageUpload     Stage = "upload"
	StageTranscribe Stage = "transcribe"
	StageAnalyze    Stage = "analyze"
	StageReport     Stage = "report"
	StageDeliver    Stage = "deliver"
)

// Status classifies the outcome of a run.
type Status int

const (
	StatusSuccess Status = iota
	StatusStageFailure
	StatusFatal
)

// Request describes one pipeline run.
type Request struct {
	RunID  string
	ChatID string
	Mode   session.Mode
	Fields session.Fields
}

// Result is the terminal outcome of a run.
type Result struct {
	RunID      string
	ChatID     string
	Status     Status
	Stage      Stage
	ReportPath string
	Err        error
}

// Collaborator ports. Each has a production implementation and a test fake.

// Fetcher resolves a share link into a local file.
type Fetcher interface {
	Fetch(ctx context.Context, link string) (string, error)
}

// Normalizer converts a recording to the transcription contract.
type Normalizer interface {
	Normalize(inputPath string) (outputPath string, sampleRate int, err error)
}

// Uploader places a file into object storage.
type Uploader interface {
	Upload(ctx context.Context, localPath, objectName string) (string, error)
}

// Transcriber turns an uploaded recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, uri string, sampleRate int) (string, error)
}

// Analyzer produces the report sections from a transcript.
type Analyzer interface {
	Analyze(ctx context.Context, transcript string) (analyze.Result, error)
}

// ReportWriter renders the report file.
type ReportWriter interface {
	Write(fields session.Fields, analysis analyze.Result, transcript string) (string, error)
}

// Deliverer hands the finished report back to the chat. An empty reportPath
// means the report could not be rendered and only the completion message is
// sent.
type Deliverer interface {
	Deliver(ctx context.Context, chatID, reportPath string) error
}
