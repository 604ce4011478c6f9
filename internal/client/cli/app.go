package cli

import (
	"bufio"
	"context"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophrelief/internal/client/models"
	"github.com/dmitrijs2005/gophrelief/internal/client/services"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// Records is the record service surface the CLI drives.
type Records interface {
	Create(ctx context.Context, d models.Draft) (*services.CreateResult, error)
	Refresh(ctx context.Context) ([]models.Record, error)
	Get(ctx context.Context, id string) (*models.Record, error)
	Search(ctx context.Context, query string) ([]models.Record, error)
	Stats(ctx context.Context) (models.Stats, error)
	History(ctx context.Context, recordID string, limit int) ([]models.TxStatus, error)
	RequestDecryption(ctx context.Context, id string) models.Outcome
	CheckAvailability(ctx context.Context) bool
}

type App struct {
	records Records
	address string
	reader  *bufio.Reader
	out     io.Writer

	modeMu sync.Mutex
	mode   Mode
}

// NewApp builds the REPL. address is the wallet address shown in the prompt.
// reader must be the only reader of the terminal input, since approval
// prompts read from it too.
func NewApp(records Records, address string, reader *bufio.Reader, out io.Writer) *App {
	return &App{records: records, address: address, reader: reader, out: out}
}

func (a *App) Mode() Mode {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.modeMu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.modeMu.Unlock()

	if changed {
		printlnFn("Switched to", mode, "mode")
	}
}

// Run starts the availability watcher and the REPL, and blocks until the
// user exits or input ends.
func (a *App) Run(ctx context.Context, checkInterval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.probe(ctx)
	go a.StartOnlineStatusWatcher(ctx, checkInterval)

	printlnFn("Welcome to the relief CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) getStatus() string {
	s := a.address
	if m := a.Mode(); m != "" {
		s = s + " " + string(m)
	}
	return "(" + s + ")"
}

func (a *App) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if a.records.CheckAvailability(ctx) {
		a.setMode(ModeOnline)
	} else {
		a.setMode(ModeOffline)
	}
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}
