package pipeline

import (
	"strings"
	"time"

	"github.com/alonePlayerr1/MAI-Bot/internal/domain/session"
)

const (
	metadataSeparator = "_"
	artifactTag       = "audio"
	maxArtifactLen    = 200
	fallbackTailLen   = 50
)

var artifactSanitizer = strings.NewReplacer(" ", "_", "/", "-", "\\", "-")

// BuildArtifactName derives a storage object name from collected metadata.
// Missing fields are replaced with placeholders; the result is always usable
// as a filename and never exceeds 200 characters.
func BuildArtifactName(fields session.Fields, originalName, ext string) string {
	discipline := fields.Discipline
	if discipline == "" {
		discipline = "UnknownDiscipline"
	}
	teacher := fields.Teacher
	if teacher == "" {
		teacher = "UnknownTeacher"
	}
	date := fields.LectureDate
	if date == "" {
		date = "UnknownDate"
	}
	lectureTime := fields.LectureTime
	if lectureTime == "" {
		lectureTime = "UnknownTime"
	}

	if ext == "" {
		return fallbackArtifactName(originalName, ext)
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	name := strings.Join([]string{
		artifactSanitizer.Replace(discipline),
		artifactSanitizer.Replace(teacher),
		date,
		strings.ReplaceAll(lectureTime, ":", "-"),
		artifactTag,
	}, metadataSeparator) + ext

	if runes := []rune(name); len(runes) > maxArtifactLen {
		name = string(runes[:maxArtifactLen-len(ext)]) + ext
	}
	return name
}

func fallbackArtifactName(originalName, ext string) string {
	timestamp := time.Now().Format("20060102_150405")
	safe := artifactTag
	if originalName != "" {
		safe = artifactSanitizer.Replace(originalName)
	}
	if runes := []rune(safe); len(runes) > fallbackTailLen {
		safe = string(runes[len(runes)-fallbackTailLen:])
	}
	if ext == "" {
		ext = ".ogg"
	}
	return "fallback_" + timestamp + "_" + safe + ext
}
