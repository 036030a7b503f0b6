package dialog

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alonePlayerr1/MAI-Bot/internal/domain/session"
	"github.com/alonePlayerr1/MAI-Bot/internal/domain/session/store"
	"github.com/alonePlayerr1/MAI-Bot/internal/platform/logging"
)

type fakeDocs struct {
	content string
	err     error
}

func (d *fakeDocs) ReadDocument(context.Context, string) (string, error) {
	return d.content, d.err
}

type fixture struct {
	engine *Engine
	store  store.Store
	docs   *fakeDocs
	ctx    context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, err := logging.New(logging.Config{Dir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })

	st := store.NewMemory(store.Config{TTL: time.Hour})
	t.Cleanup(func() { st.Close(context.Background()) })

	docs := &fakeDocs{content: "транскрипт"}
	return &fixture{
		engine: NewEngine(st, docs, logger),
		store:  st,
		docs:   docs,
		ctx:    context.Background(),
	}
}

func (f *fixture) text(t *testing.T, chatID, text string) Action {
	t.Helper()
	act, err := f.engine.Handle(f.ctx, Event{ChatID: chatID, Text: text})
	require.NoError(t, err)
	return act
}

func (f *fixture) doc(t *testing.T, chatID, name, mime string) Action {
	t.Helper()
	act, err := f.engine.Handle(f.ctx, Event{
		ChatID:   chatID,
		Document: &Document{FileID: "file-1", FileName: name, MimeType: mime},
	})
	require.NoError(t, err)
	return act
}

func TestStartEntersRegistrationFlow(t *testing.T) {
	f := newFixture(t)

	act := f.text(t, "c1", "/start")
	require.NotNil(t, act.Session)
	assert.Equal(t, session.StateWaitingDiscipline, act.Session.State)
	assert.Equal(t, session.ModeRegistration, act.Session.Mode)
	assert.Contains(t, act.Replies, msgAskDiscipline)
}

func TestRegistrationHappyPathToRun(t *testing.T) {
	f := newFixture(t)

	f.text(t, "c1", "/start")
	f.text(t, "c1", "Матанализ")
	f.text(t, "c1", "ИвановИИ")
	f.text(t, "c1", "10:15-01.09.2025")

	act := f.text(t, "c1", "https://drive.google.com/file/d/abc123/view")
	assert.True(t, act.StartRun)
	require.NotNil(t, act.Session)
	assert.Equal(t, session.StateProcessing, act.Session.State)
	assert.Equal(t, "Матанализ", act.Session.Fields.Discipline)
	assert.Equal(t, "ИвановИИ", act.Session.Fields.Teacher)
	assert.Equal(t, "10:15", act.Session.Fields.LectureTime)
	assert.Equal(t, "01.09.2025", act.Session.Fields.LectureDate)
	assert.Contains(t, act.Replies, msgLinkAccepted)
}

func TestTeacherNameWithSpaceRejected(t *testing.T) {
	f := newFixture(t)

	f.text(t, "c1", "/start")
	f.text(t, "c1", "Физика")

	act := f.text(t, "c1", "Иванов ИИ")
	assert.Contains(t, act.Replies, msgTeacherSpaces)
	require.NotNil(t, act.Session)
	assert.Equal(t, session.StateWaitingTeacher, act.Session.State)
	assert.Empty(t, act.Session.Fields.Teacher)
}

func TestMalformedDateTimeReprompts(t *testing.T) {
	f := newFixture(t)

	cases := []string{
		"10:15",
		"10:15 01.09.2025",
		"25:00-01.09.2025",
		"10:15-32.13.2025",
		"10:15-01.09.2025-extra",
		"вчера",
	}

	f.text(t, "c1", "/start")
	f.text(t, "c1", "Матанализ")
	f.text(t, "c1", "ИвановИИ")

	for _, input := range cases {
		act := f.text(t, "c1", input)
		assert.Contains(t, act.Replies, msgBadDateTime, "input %q", input)
		require.NotNil(t, act.Session, "input %q", input)
		assert.Equal(t, session.StateWaitingDateTime, act.Session.State, "input %q", input)
	}
}

func TestDateIsReformattedTimeKeptVerbatim(t *testing.T) {
	f := newFixture(t)

	f.text(t, "c1", "/start")
	f.text(t, "c1", "Матанализ")
	f.text(t, "c1", "ИвановИИ")

	act := f.text(t, "c1", "09:05-1.9.2025")
	require.NotNil(t, act.Session)
	assert.Equal(t, "09:05", act.Session.Fields.LectureTime)
	assert.Equal(t, "01.09.2025", act.Session.Fields.LectureDate)
}

func TestBadDriveLinkDoesNotAdvance(t *testing.T) {
	f := newFixture(t)

	f.text(t, "c1", "/start")
	f.text(t, "c1", "Матанализ")
	f.text(t, "c1", "ИвановИИ")
	f.text(t, "c1", "10:15-01.09.2025")

	act := f.text(t, "c1", "https://example.com/whatever")
	assert.False(t, act.StartRun)
	assert.Contains(t, act.Replies, msgBadDriveLink)
	require.NotNil(t, act.Session)
	assert.Equal(t, session.StateWaitingSource, act.Session.State)
}

func TestResetClearsSession(t *testing.T) {
	f := newFixture(t)

	f.text(t, "c1", "/start")
	act := f.text(t, "c1", "/reset")
	assert.Contains(t, act.Replies, msgResetDone)

	_, found, err := f.store.Get(f.ctx, "c1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestResetWithoutSession(t *testing.T) {
	f := newFixture(t)
	act := f.text(t, "c1", "/reset")
	assert.Contains(t, act.Replies, msgResetNothing)
}

func TestResetDuringProcessingCancelsRun(t *testing.T) {
	f := newFixture(t)

	sess := session.New("c1", session.ModeRegistration)
	sess.Advance(session.StateProcessing)
	require.NoError(t, f.store.Put(f.ctx, *sess))

	act := f.text(t, "c1", "/reset")
	assert.True(t, act.CancelRun)
	assert.Contains(t, act.Replies, msgResetDone)
}

func TestEventsDuringProcessingRejected(t *testing.T) {
	f := newFixture(t)

	sess := session.New("c1", session.ModeRegistration)
	sess.Advance(session.StateProcessing)
	require.NoError(t, f.store.Put(f.ctx, *sess))

	act := f.text(t, "c1", "ещё одна лекция")
	assert.Contains(t, act.Replies, msgBusyProcessing)

	act = f.text(t, "c1", "/start")
	assert.Contains(t, act.Replies, msgBusyProcessing)
}

func TestDevFlowAcceptsTxt(t *testing.T) {
	f := newFixture(t)

	f.text(t, "c1", "/dev_process_txt")
	f.text(t, "c1", "Физика")
	f.text(t, "c1", "ПетровПП")
	f.text(t, "c1", "12:00-02.09.2025")

	act := f.doc(t, "c1", "transcript.txt", "text/plain")
	assert.True(t, act.StartRun)
	require.NotNil(t, act.Session)
	assert.Equal(t, session.StateProcessing, act.Session.State)
	assert.Equal(t, "транскрипт", act.Session.Fields.Transcript)
}

func TestDevFlowRejectsWrongDocument(t *testing.T) {
	f := newFixture(t)

	f.text(t, "c1", "/dev_process_txt")
	f.text(t, "c1", "Физика")
	f.text(t, "c1", "ПетровПП")
	f.text(t, "c1", "12:00-02.09.2025")

	for _, tc := range []struct{ name, mime string }{
		{"audio.mp3", "audio/mpeg"},
		{"notes.txt", "application/pdf"},
		{"notes.pdf", "text/plain"},
	} {
		act := f.doc(t, "c1", tc.name, tc.mime)
		assert.False(t, act.StartRun, "%s/%s", tc.name, tc.mime)
		assert.Contains(t, act.Replies, msgBadTxtFile)
		require.NotNil(t, act.Session)
		assert.Equal(t, session.StateWaitingTranscript, act.Session.State)
	}
}

func TestDevFlowEmptyTxtClearsSession(t *testing.T) {
	f := newFixture(t)
	f.docs.content = "   \n "

	f.text(t, "c1", "/dev_process_txt")
	f.text(t, "c1", "Физика")
	f.text(t, "c1", "ПетровПП")
	f.text(t, "c1", "12:00-02.09.2025")

	act := f.doc(t, "c1", "transcript.txt", "text/plain")
	assert.False(t, act.StartRun)
	assert.Contains(t, act.Replies, msgEmptyTxtFile)

	_, found, err := f.store.Get(f.ctx, "c1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDevFlowDownloadFailureClearsSession(t *testing.T) {
	f := newFixture(t)
	f.docs.err = fmt.Errorf("network down")

	f.text(t, "c1", "/dev_process_txt")
	f.text(t, "c1", "Физика")
	f.text(t, "c1", "ПетровПП")
	f.text(t, "c1", "12:00-02.09.2025")

	act := f.doc(t, "c1", "transcript.txt", "text/plain")
	assert.Contains(t, act.Replies, msgTxtReadFailed)

	_, found, err := f.store.Get(f.ctx, "c1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIdleChatGetsHint(t *testing.T) {
	f := newFixture(t)
	act := f.text(t, "c1", "привет")
	assert.Contains(t, act.Replies, msgUnknown)
}

func TestHelpKeepsState(t *testing.T) {
	f := newFixture(t)

	f.text(t, "c1", "/start")
	act := f.text(t, "c1", "/help")
	assert.Contains(t, act.Replies, msgHelp)
	require.NotNil(t, act.Session)
	assert.Equal(t, session.StateWaitingDiscipline, act.Session.State)
}

func TestWrongInputTypeGuidance(t *testing.T) {
	f := newFixture(t)

	f.text(t, "c1", "/start")
	act := f.doc(t, "c1", "audio.mp3", "audio/mpeg")
	assert.Contains(t, act.Replies, msgTypeDiscipline)
	require.NotNil(t, act.Session)
	assert.Equal(t, session.StateWaitingDiscipline, act.Session.State)
}
