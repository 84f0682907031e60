package telegram

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/mjunaidjbr/salawat-tally-bot/internal/config"
	"golang.org/x/sync/errgroup"
)

// Telegram holds a long poll open for the poll timeout; the HTTP client
// needs headroom beyond it.
const pollHeadroom = 10 * time.Second

// Runner long-polls Telegram and hands each update to the Handler, with at
// most cfg.Workers updates in flight.
type Runner struct {
	handler *Handler
	group   *errgroup.Group
	bot     *bot.Bot
}

func NewRunner(cfg *config.BotConfig, handler *Handler) (*Runner, error) {
	r := &Runner{handler: handler, group: newWorkerGroup(cfg.Workers)}

	opts := []bot.Option{
		bot.WithDefaultHandler(r.dispatch),
		// dispatch must run on the polling goroutine so a full worker
		// group holds back the next update.
		bot.WithNotAsyncHandlers(),
	}
	if client := pollClient(cfg.PollTimeout); client != nil {
		opts = append(opts, bot.WithHTTPClient(cfg.PollTimeout, client))
	}

	b, err := bot.New(cfg.Token, opts...)
	if err != nil {
		return nil, err
	}
	r.bot = b
	return r, nil
}

// pollClient returns nil when the library default poll timeout should be kept.
func pollClient(pollTimeout time.Duration) *http.Client {
	if pollTimeout <= 0 {
		return nil
	}
	return &http.Client{Timeout: pollTimeout + pollHeadroom}
}

func newWorkerGroup(workers int) *errgroup.Group {
	group := &errgroup.Group{}
	if workers < 1 {
		workers = 1
	}
	group.SetLimit(workers)
	return group
}

// dispatch blocks while all workers are busy.
func (r *Runner) dispatch(ctx context.Context, b *bot.Bot, update *models.Update) {
	r.submit(ctx, b, update)
}

func (r *Runner) submit(ctx context.Context, s Sender, update *models.Update) {
	// Updates already accepted finish even when shutdown cancels ctx.
	work := context.WithoutCancel(ctx)
	r.group.Go(func() error {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[BOT] Panic handling update %d: %v", update.ID, rec)
			}
		}()
		r.handler.HandleUpdate(work, s, update)
		return nil
	})
}

// Run polls until ctx is cancelled. Start returns only after the polling
// goroutine, and with it every dispatch call, has stopped; Run then waits
// for the updates still being handled.
func (r *Runner) Run(ctx context.Context) {
	log.Println("[BOT] Bot is running...")
	r.bot.Start(ctx)
	r.group.Wait()
	log.Println("[BOT] Stopped")
}
