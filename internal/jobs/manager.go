package job

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

type Runner interface {
	Run(ctx context.Context)
}

// Manager runs periodic jobs on a cron schedule. A run that is still going
// when its next tick fires is skipped.
type Manager struct {
	cron *cron.Cron
	ctx  context.Context
}

func NewManager(ctx context.Context) *Manager {
	logger := cron.VerbosePrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelInfo))
	return &Manager{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(logger), cron.Recover(logger))),
		ctx:  ctx,
	}
}

func (m *Manager) Add(spec, name string, r Runner) error {
	_, err := m.cron.AddFunc(spec, func() {
		slog.Debug("running job", "job", name)
		r.Run(m.ctx)
	})
	return err
}

func (m *Manager) Start() {
	m.cron.Start()
}

// Stop waits for running jobs to finish.
func (m *Manager) Stop() {
	<-m.cron.Stop().Done()
}
