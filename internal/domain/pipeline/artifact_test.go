package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alonePlayerr1/MAI-Bot/internal/domain/session"
)

func TestBuildArtifactName(t *testing.T) {
	cases := []struct {
		name   string
		fields session.Fields
		want   string
	}{
		{
			name: "full metadata",
			fields: session.Fields{
				Discipline:  "Матанализ",
				Teacher:     "Иванов",
				LectureDate: "01.09.2025",
				LectureTime: "10:15",
			},
			want: "Матанализ_Иванов_01.09.2025_10-15_audio.ogg",
		},
		{
			name: "spaces and slashes sanitized",
			fields: session.Fields{
				Discipline:  "Теория вероятностей",
				Teacher:     "Петров/Сидоров",
				LectureDate: "02.09.2025",
				LectureTime: "12:00",
			},
			want: "Теория_вероятностей_Петров-Сидоров_02.09.2025_12-00_audio.ogg",
		},
		{
			name:   "all fields missing",
			fields: session.Fields{},
			want:   "UnknownDiscipline_UnknownTeacher_UnknownDate_UnknownTime_audio.ogg",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := BuildArtifactName(tc.fields, "lecture.mp3", ".ogg")
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBuildArtifactNameDeterministic(t *testing.T) {
	fields := session.Fields{Discipline: "Физика", Teacher: "Кузнецов", LectureDate: "03.09.2025", LectureTime: "14:30"}
	first := BuildArtifactName(fields, "a.mp3", ".ogg")
	second := BuildArtifactName(fields, "a.mp3", ".ogg")
	assert.Equal(t, first, second)
}

func TestBuildArtifactNameCapsLength(t *testing.T) {
	fields := session.Fields{
		Discipline:  strings.Repeat("Длинная", 40),
		Teacher:     "Иванов",
		LectureDate: "01.09.2025",
		LectureTime: "10:15",
	}
	got := BuildArtifactName(fields, "x.mp3", ".ogg")
	assert.LessOrEqual(t, len([]rune(got)), 200)
	assert.True(t, strings.HasSuffix(got, ".ogg"))
}

func TestBuildArtifactNameExtWithoutDot(t *testing.T) {
	got := BuildArtifactName(session.Fields{}, "", "ogg")
	assert.True(t, strings.HasSuffix(got, ".ogg"))
}

func TestFallbackArtifactName(t *testing.T) {
	long := strings.Repeat("много_букв_", 20) + "original.mp3"
	got := fallbackArtifactName(long, ".ogg")
	assert.True(t, strings.HasPrefix(got, "fallback_"))
	assert.True(t, strings.HasSuffix(got, ".ogg"))
	assert.Contains(t, got, "original.mp3")
}
