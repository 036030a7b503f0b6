package analyze

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionBody = `{"choices":[{"message":{"role":"assistant","content":"раздел готов"}}]}`

func newAnalyzerWithServer(t *testing.T, handler http.HandlerFunc) Analyzer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	a, err := NewOpenAI(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)
	return a
}

func TestAnalyzeIssuesThreePrompts(t *testing.T) {
	var calls int64
	a := newAnalyzerWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody))
	})

	res, err := a.Analyze(context.Background(), "текст лекции про интегралы")
	require.NoError(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt64(&calls))
	assert.Equal(t, "раздел готов", res.TeacherSummary)
	assert.Equal(t, "раздел готов", res.StudentSummary)
	assert.Equal(t, "раздел готов", res.Keywords)
}

func TestAnalyzeBlankTranscriptSkipsBackend(t *testing.T) {
	var calls int64
	a := newAnalyzerWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
	})

	res, err := a.Analyze(context.Background(), "   \n\t ")
	require.NoError(t, err)
	assert.EqualValues(t, 0, atomic.LoadInt64(&calls))
	assert.Equal(t, Result{}, res)
}

func TestAnalyzeFallsBackPerSection(t *testing.T) {
	a := newAnalyzerWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusInternalServerError)
	})

	res, err := a.Analyze(context.Background(), "текст")
	require.NoError(t, err)
	assert.Equal(t, fallbackTeacher, res.TeacherSummary)
	assert.Equal(t, fallbackStudent, res.StudentSummary)
	assert.Equal(t, fallbackKeyword, res.Keywords)
}

func TestAnalyzeTruncatesLongTranscript(t *testing.T) {
	var maxBody int64
	a := newAnalyzerWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if n := int64(len(body)); n > atomic.LoadInt64(&maxBody) {
			atomic.StoreInt64(&maxBody, n)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody))
	})

	long := strings.Repeat("а", maxTranscriptChars+5000)
	_, err := a.Analyze(context.Background(), long)
	require.NoError(t, err)

	// Cyrillic is two bytes per rune; the prompt prefix adds a bounded amount.
	assert.Less(t, atomic.LoadInt64(&maxBody), int64(maxTranscriptChars*2+2048))
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	_, err := NewOpenAI(Config{})
	require.Error(t, err)
}
