package telegram

import (
	"context"
	"fmt"
	"html"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dvloznov/cashflow-bot/internal/jobs"
	"github.com/dvloznov/cashflow-bot/internal/logger"
	"github.com/dvloznov/cashflow-bot/internal/report"
)

const (
	textMenu       = "Выберите режим получения отчёта:"
	textPickDay    = "Выберите день:"
	textPickFrom   = "Выберите начальную дату периода:"
	textPickTo     = "Выберите конечную дату периода:"
	textQueued     = "Формирую отчёт…"
	textQueueError = "Не удалось поставить отчёт в очередь, попробуйте позже."
	textFailed     = "Не удалось сформировать отчёт. Попробуйте позже."
	textTooLong    = "Отчёт не помещается в сообщение, см. вложенный файл."
)

// Generator builds a report.
type Generator interface {
	Generate(ctx context.Context, req report.Request) (*report.Report, error)
}

// Bot routes chat updates. Report requests are handed to a publisher so
// the update loop never waits on the back office.
type Bot struct {
	api       API
	publisher jobs.Publisher
	periods   *PeriodState
	now       func() time.Time
}

// BotOption configures a Bot.
type BotOption func(*Bot)

// WithNow sets the clock used for "today".
func WithNow(now func() time.Time) BotOption {
	return func(b *Bot) { b.now = now }
}

// NewBot creates a Bot.
func NewBot(api API, publisher jobs.Publisher, opts ...BotOption) *Bot {
	b := &Bot{
		api:       api,
		publisher: publisher,
		periods:   NewPeriodState(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run handles updates until ctx is done or the channel closes.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, u)
		}
	}
}

// HandleUpdate processes a single update.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	switch {
	case u.CallbackQuery != nil:
		b.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil && u.Message.IsCommand():
		b.handleCommand(ctx, u.Message)
	}
}

func (b *Bot) today() time.Time {
	y, m, d := b.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (b *Bot) handleCommand(ctx context.Context, m *tgbotapi.Message) {
	switch m.Command() {
	case "start", "menu":
		if m.From != nil {
			b.periods.Clear(m.From.ID)
		}
		msg := tgbotapi.NewMessage(m.Chat.ID, textMenu)
		msg.ReplyMarkup = MainMenu()
		if _, err := b.api.Send(msg); err != nil {
			log := logger.FromContext(ctx)
			log.Warn().Err(err).Int64("chat_id", m.Chat.ID).Msg("failed to send menu")
		}
	}
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.Message == nil || q.Message.Chat == nil {
		b.answer(ctx, q.ID, "")
		return
	}
	var user int64
	if q.From != nil {
		user = q.From.ID
	}
	chatID, msgID := q.Message.Chat.ID, q.Message.MessageID
	today := b.today()
	cb := ParseCallback(q.Data, today)

	switch cb.Action {
	case ActionToday:
		b.answer(ctx, q.ID, textQueued)
		b.enqueue(ctx, chatID, report.DayRequest(today))
	case ActionDay:
		b.answer(ctx, q.ID, "")
		b.edit(ctx, chatID, msgID, textPickDay, Calendar(today, ModeDay))
	case ActionPeriod:
		b.answer(ctx, q.ID, "")
		b.periods.Clear(user)
		b.edit(ctx, chatID, msgID, textPickFrom, Calendar(today, ModePeriodFrom))
	case ActionBack:
		b.answer(ctx, q.ID, "")
		b.periods.Clear(user)
		b.edit(ctx, chatID, msgID, textMenu, MainMenu())
	case ActionPrev, ActionNext:
		b.answer(ctx, q.ID, "")
		b.edit(ctx, chatID, msgID, pickText(cb.Mode), Calendar(cb.Target(), cb.Mode))
	case ActionSet:
		b.handleSet(ctx, q.ID, user, chatID, msgID, cb)
	default:
		b.answer(ctx, q.ID, "")
	}
}

func (b *Bot) handleSet(ctx context.Context, queryID string, user, chatID int64, msgID int, cb Callback) {
	switch cb.Mode {
	case ModePeriodFrom:
		b.answer(ctx, queryID, "")
		b.periods.SetFrom(user, cb.Date)
		b.edit(ctx, chatID, msgID, textPickTo, Calendar(cb.Date, ModePeriodTo))
		return
	case ModePeriodTo:
		req := report.DayRequest(cb.Date)
		if from, ok := b.periods.Take(user); ok {
			req = report.PeriodRequest(from, cb.Date)
		}
		b.answer(ctx, queryID, textQueued)
		b.enqueue(ctx, chatID, req)
	default:
		b.answer(ctx, queryID, textQueued)
		b.enqueue(ctx, chatID, report.DayRequest(cb.Date))
	}
	b.edit(ctx, chatID, msgID, textMenu, MainMenu())
}

func pickText(m Mode) string {
	switch m {
	case ModePeriodFrom:
		return textPickFrom
	case ModePeriodTo:
		return textPickTo
	default:
		return textPickDay
	}
}

func (b *Bot) enqueue(ctx context.Context, chatID int64, req report.Request) {
	job := &jobs.ReportJob{
		ChatID:   chatID,
		Kind:     string(req.Kind),
		DateFrom: req.From.Format(report.DateLayout),
		DateTo:   req.To.Format(report.DateLayout),
	}
	if err := b.publisher.PublishReport(ctx, job); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to enqueue report")
		if _, err := b.api.Send(tgbotapi.NewMessage(chatID, textQueueError)); err != nil {
			log.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to send queue error")
		}
	}
}

func (b *Bot) answer(ctx context.Context, id, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		log := logger.FromContext(ctx)
		log.Debug().Err(err).Msg("failed to answer callback")
	}
}

func (b *Bot) edit(ctx context.Context, chatID int64, msgID int, text string, markup tgbotapi.InlineKeyboardMarkup) {
	if _, err := b.api.Request(tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, text, markup)); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to edit message")
	}
}

// RequestOf rebuilds the report request carried by job.
func RequestOf(job *jobs.ReportJob, today time.Time) report.Request {
	if job.Kind == string(report.KindPeriod) {
		return report.ParseRange(job.DateFrom, job.DateTo, today)
	}
	return report.DayRequest(report.ParseDay(job.DateFrom, today))
}

// MessageText is the chat text for rep, replaced by a short notice when
// the rendered table exceeds the message limit.
func MessageText(rep *report.Report) string {
	if utf8.RuneCountInString(rep.Text) <= MaxMessageLength {
		return rep.Text
	}
	return fmt.Sprintf("<b>%s</b>\n%s", html.EscapeString(rep.Request.Caption()), textTooLong)
}

// NewReportHandler returns the job handler that generates a report and
// delivers the text and the workbook to the job's chat.
func NewReportHandler(gen Generator, d *Deliverer) jobs.JobHandler {
	return func(ctx context.Context, job *jobs.ReportJob) error {
		req := RequestOf(job, time.Now().UTC())

		rep, err := gen.Generate(ctx, req)
		if err != nil {
			if serr := d.SendText(ctx, job.ChatID, textFailed); serr != nil {
				log := logger.FromContext(ctx)
				log.Warn().Err(serr).Msg("failed to send failure notice")
			}
			return fmt.Errorf("generate report: %w", err)
		}

		if err := d.SendText(ctx, job.ChatID, MessageText(rep)); err != nil {
			return fmt.Errorf("deliver report: %w", err)
		}
		if err := d.SendDocument(ctx, job.ChatID, rep.Filename, rep.Workbook, req.Caption()); err != nil {
			if serr := d.SendText(ctx, job.ChatID, textFailed); serr != nil {
				log := logger.FromContext(ctx)
				log.Warn().Err(serr).Msg("failed to send failure notice")
			}
			return fmt.Errorf("deliver report: %w", err)
		}

		job.ResultPath = rep.Path
		return nil
	}
}
