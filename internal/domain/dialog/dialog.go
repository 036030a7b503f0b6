package dialog

import (
	"context"
	"strings"
	"time"

	"github.com/alonePlayerr1/MAI-Bot/internal/domain/fetch"
	"github.com/alonePlayerr1/MAI-Bot/internal/domain/session"
	"github.com/alonePlayerr1/MAI-Bot/internal/domain/session/store"
	"github.com/alonePlayerr1/MAI-Bot/internal/platform/errors"
	"github.com/alonePlayerr1/MAI-Bot/internal/platform/logging"
)

// Date and time formats accepted in the datetime turn. The token is split
// once on '-' into time then date.
const (
	DateFormat        = "02.01.2006"
	TimeFormat        = "15:04"
	dateTimeSplitChar = "-"
)

// Document describes an uploaded file attached to an event.
type Document struct {
	FileID   string
	FileName string
	MimeType string
	Size     int64
}

// Event is one inbound chat update, normalized by the transport.
type Event struct {
	ChatID   string
	Text     string
	Document *Document
}

// Action tells the bot service what to do after a turn: which replies to
// send, and whether to start or cancel a pipeline run.
type Action struct {
	Replies   []string
	StartRun  bool
	CancelRun bool
	Session   *session.Session
}

// DocumentReader downloads an uploaded document's content.
type DocumentReader interface {
	ReadDocument(ctx context.Context, fileID string) (string, error)
}

// Engine drives the conversation state machine over the session store.
type Engine struct {
	store  store.Store
	docs   DocumentReader
	logger *logging.Logger
}

// NewEngine wires the FSM.
func NewEngine(st store.Store, docs DocumentReader, logger *logging.Logger) *Engine {
	return &Engine{store: st, docs: docs, logger: logger}
}

// Handle processes one event against the chat's session and returns the
// resulting action. Store failures are returned as errors; everything else
// is expressed through replies.
func (e *Engine) Handle(ctx context.Context, ev Event) (Action, error) {
	sess, found, err := e.store.Get(ctx, ev.ChatID)
	if err != nil {
		return Action{}, errors.Wrap(errors.KindDialog, "dialog.handle", "session lookup failed", err)
	}

	if cmd, ok := command(ev.Text); ok {
		return e.handleCommand(ctx, ev, cmd, sess, found)
	}

	if !found {
		return Action{Replies: []string{msgUnknown}}, nil
	}
	if sess.Processing() {
		return Action{Replies: []string{msgBusyProcessing}, Session: &sess}, nil
	}

	switch sess.State {
	case session.StateWaitingDiscipline, session.StateWaitingDevDiscipline:
		return e.handleDiscipline(ctx, ev, sess)
	case session.StateWaitingTeacher, session.StateWaitingDevTeacher:
		return e.handleTeacher(ctx, ev, sess)
	case session.StateWaitingDateTime, session.StateWaitingDevDateTime:
		return e.handleDateTime(ctx, ev, sess)
	case session.StateWaitingSource:
		return e.handleSource(ctx, ev, sess)
	case session.StateWaitingTranscript:
		return e.handleTranscript(ctx, ev, sess)
	default:
		return Action{Replies: []string{msgUnknown}, Session: &sess}, nil
	}
}

func command(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	cmd := strings.Fields(text)[0]
	// Telegram appends the bot name in groups: /start@mai_bot.
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	return strings.TrimPrefix(cmd, "/"), true
}

func (e *Engine) handleCommand(ctx context.Context, ev Event, cmd string, sess session.Session, found bool) (Action, error) {
	switch cmd {
	case "start", "dev_process_txt":
		if found && sess.Processing() {
			return Action{Replies: []string{msgBusyProcessing}, Session: &sess}, nil
		}
		mode := session.ModeRegistration
		greeting := []string{msgStartGreeting, msgAskDiscipline}
		if cmd == "dev_process_txt" {
			mode = session.ModeDevTesting
			greeting = []string{msgDevStart}
		}
		fresh := session.New(ev.ChatID, mode)
		if err := e.store.Put(ctx, *fresh); err != nil {
			return Action{}, errors.Wrap(errors.KindDialog, "dialog.start", "session save failed", err)
		}
		e.logger.InfoTag("FSM", "chat %s entered %s flow", ev.ChatID, mode)
		return Action{Replies: greeting, Session: fresh}, nil

	case "reset":
		if !found {
			return Action{Replies: []string{msgResetNothing}}, nil
		}
		if err := e.store.Delete(ctx, ev.ChatID); err != nil {
			return Action{}, errors.Wrap(errors.KindDialog, "dialog.reset", "session delete failed", err)
		}
		e.logger.InfoTag("FSM", "chat %s reset from state %s", ev.ChatID, sess.State)
		return Action{Replies: []string{msgResetDone}, CancelRun: sess.Processing()}, nil

	case "help":
		act := Action{Replies: []string{msgHelp}}
		if found {
			act.Session = &sess
		}
		return act, nil

	default:
		if !found {
			return Action{Replies: []string{msgUnknown}}, nil
		}
		return Action{Replies: []string{stateGuidance(string(sess.State))}, Session: &sess}, nil
	}
}

func (e *Engine) handleDiscipline(ctx context.Context, ev Event, sess session.Session) (Action, error) {
	dev := sess.Mode == session.ModeDevTesting
	if ev.Text == "" {
		return Action{Replies: []string{stateGuidance(string(sess.State))}, Session: &sess}, nil
	}
	name := strings.TrimSpace(ev.Text)
	if name == "" {
		return Action{Replies: []string{msgEmptyDiscipline}, Session: &sess}, nil
	}

	sess.Fields.Discipline = name
	next := session.StateWaitingTeacher
	reply := msgDisciplineAccepted(name)
	if dev {
		next = session.StateWaitingDevTeacher
		reply = msgDevDisciplineAccepted(name)
	}
	return e.advance(ctx, sess, next, reply)
}

func (e *Engine) handleTeacher(ctx context.Context, ev Event, sess session.Session) (Action, error) {
	dev := sess.Mode == session.ModeDevTesting
	if ev.Text == "" {
		return Action{Replies: []string{stateGuidance(string(sess.State))}, Session: &sess}, nil
	}
	name := strings.TrimSpace(ev.Text)
	if name == "" {
		return Action{Replies: []string{msgEmptyTeacher}, Session: &sess}, nil
	}
	if strings.Contains(name, " ") {
		reply := msgTeacherSpaces
		if dev {
			reply = "DEV: " + msgTeacherSpaces
		}
		return Action{Replies: []string{reply}, Session: &sess}, nil
	}

	sess.Fields.Teacher = name
	next := session.StateWaitingDateTime
	reply := msgTeacherAccepted(name)
	if dev {
		next = session.StateWaitingDevDateTime
		reply = msgDevTeacherAccepted(name)
	}
	return e.advance(ctx, sess, next, reply)
}

func (e *Engine) handleDateTime(ctx context.Context, ev Event, sess session.Session) (Action, error) {
	dev := sess.Mode == session.ModeDevTesting
	if ev.Text == "" {
		return Action{Replies: []string{stateGuidance(string(sess.State))}, Session: &sess}, nil
	}
	input := strings.TrimSpace(ev.Text)
	if input == "" {
		return Action{Replies: []string{msgEmptyDateTime}, Session: &sess}, nil
	}

	timeStr, dateStr, ok := parseDateTime(input)
	if !ok {
		reply := msgBadDateTime
		if dev {
			reply = "DEV: " + msgBadDateTime
		}
		return Action{Replies: []string{reply}, Session: &sess}, nil
	}

	sess.Fields.LectureTime = timeStr
	sess.Fields.LectureDate = dateStr
	if dev {
		return e.advance(ctx, sess, session.StateWaitingTranscript, msgDevMetadataDone)
	}
	return e.advance(ctx, sess, session.StateWaitingSource, msgDateTimeAccepted(timeStr, dateStr))
}

// parseDateTime splits "ЧЧ:ММ-ДД.ММ.ГГГГ" into its parts. The time is kept
// verbatim; the date is re-rendered through the canonical format.
func parseDateTime(input string) (timeStr, dateStr string, ok bool) {
	parts := strings.Split(input, dateTimeSplitChar)
	if len(parts) != 2 {
		return "", "", false
	}
	timeStr = parts[0]
	if _, err := time.Parse(TimeFormat, timeStr); err != nil {
		return "", "", false
	}
	parsed, err := time.Parse(DateFormat, parts[1])
	if err != nil {
		return "", "", false
	}
	return timeStr, parsed.Format(DateFormat), true
}

func (e *Engine) handleSource(ctx context.Context, ev Event, sess session.Session) (Action, error) {
	if ev.Text == "" {
		return Action{Replies: []string{stateGuidance(string(sess.State))}, Session: &sess}, nil
	}
	link := strings.TrimSpace(ev.Text)
	if !fetch.IsShareLink(link) {
		e.logger.WarnTag("FSM", "chat %s sent unrecognized share link", ev.ChatID)
		return Action{Replies: []string{msgBadDriveLink}, Session: &sess}, nil
	}

	sess.Fields.SourceRef = link
	act, err := e.advance(ctx, sess, session.StateProcessing, msgLinkAccepted)
	if err != nil {
		return Action{}, err
	}
	act.StartRun = true
	return act, nil
}

func (e *Engine) handleTranscript(ctx context.Context, ev Event, sess session.Session) (Action, error) {
	doc := ev.Document
	if doc == nil {
		return Action{Replies: []string{stateGuidance(string(sess.State))}, Session: &sess}, nil
	}
	if !strings.HasSuffix(strings.ToLower(doc.FileName), ".txt") || doc.MimeType != "text/plain" {
		return Action{Replies: []string{msgBadTxtFile}, Session: &sess}, nil
	}

	content, err := e.docs.ReadDocument(ctx, doc.FileID)
	if err != nil {
		e.logger.ErrorTag("FSM", "chat %s: transcript download failed: %v", ev.ChatID, err)
		if delErr := e.store.Delete(ctx, ev.ChatID); delErr != nil {
			return Action{}, errors.Wrap(errors.KindDialog, "dialog.transcript", "session delete failed", delErr)
		}
		return Action{Replies: []string{msgTxtReadFailed}}, nil
	}
	if strings.TrimSpace(content) == "" {
		if delErr := e.store.Delete(ctx, ev.ChatID); delErr != nil {
			return Action{}, errors.Wrap(errors.KindDialog, "dialog.transcript", "session delete failed", delErr)
		}
		return Action{Replies: []string{msgEmptyTxtFile}}, nil
	}

	sess.Fields.Transcript = content
	act, err := e.advance(ctx, sess, session.StateProcessing, msgDevTxtAccepted(doc.FileName))
	if err != nil {
		return Action{}, err
	}
	act.StartRun = true
	return act, nil
}

func (e *Engine) advance(ctx context.Context, sess session.Session, next session.State, reply string) (Action, error) {
	sess.Advance(next)
	if err := e.store.Put(ctx, sess); err != nil {
		return Action{}, errors.Wrap(errors.KindDialog, "dialog.advance", "session save failed", err)
	}
	return Action{Replies: []string{reply}, Session: &sess}, nil
}
