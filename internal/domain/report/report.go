package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/alonePlayerr1/MAI-Bot/internal/domain/analyze"
	"github.com/alonePlayerr1/MAI-Bot/internal/domain/session"
	"github.com/alonePlayerr1/MAI-Bot/internal/platform/errors"
)

const missingSection = "Нет данных."

// Writer renders the lecture report into the scratch directory.
type Writer struct {
	scratchDir string
}

// NewWriter builds a report writer.
func NewWriter(scratchDir string) *Writer {
	return &Writer{scratchDir: scratchDir}
}

// Write renders a markdown report with metadata, both summaries, keywords
// and the full transcript. The returned path lives in the scratch dir.
func (w *Writer) Write(fields session.Fields, analysis analyze.Result, transcript string) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# Отчет по лекции\n\n")
	fmt.Fprintf(&b, "- Дисциплина: %s\n", orPlaceholder(fields.Discipline))
	fmt.Fprintf(&b, "- Преподаватель: %s\n", orPlaceholder(fields.Teacher))
	fmt.Fprintf(&b, "- Дата: %s\n", orPlaceholder(fields.LectureDate))
	fmt.Fprintf(&b, "- Время: %s\n\n", orPlaceholder(fields.LectureTime))

	fmt.Fprintf(&b, "## Конспект для преподавателя\n\n%s\n\n", orPlaceholder(analysis.TeacherSummary))
	fmt.Fprintf(&b, "## Конспект для студента\n\n%s\n\n", orPlaceholder(analysis.StudentSummary))
	fmt.Fprintf(&b, "## Ключевые слова\n\n%s\n\n", orPlaceholder(analysis.Keywords))
	fmt.Fprintf(&b, "## Полный транскрипт\n\n%s\n", orPlaceholder(transcript))

	name := fmt.Sprintf("report_%s_%s.md", sanitize(fields.Discipline), uuid.NewString()[:8])
	path := filepath.Join(w.scratchDir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", errors.Wrap(errors.KindStage, "report.write", "failed to write report file", err)
	}
	return path, nil
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return missingSection
	}
	return s
}

func sanitize(s string) string {
	if s == "" {
		return "lecture"
	}
	return strings.NewReplacer(" ", "_", "/", "-", "\\", "-").Replace(s)
}
