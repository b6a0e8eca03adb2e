package payment

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ReconcileJob is one stale transaction to re-check against the gateway.
type ReconcileJob struct {
	TransactionID    int64
	OrderID          int64
	HostedCheckoutID string
}

type pollerWorker struct {
	id         int
	workerPool chan chan ReconcileJob
	jobChannel chan ReconcileJob
	logger     *slog.Logger
}

func newPollerWorker(id int, workerPool chan chan ReconcileJob, logger *slog.Logger) *pollerWorker {
	return &pollerWorker{
		id:         id,
		workerPool: workerPool,
		jobChannel: make(chan ReconcileJob),
		logger:     logger,
	}
}

func (w *pollerWorker) start(ctx context.Context, wg *sync.WaitGroup, processFunc func(ReconcileJob)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			w.workerPool <- w.jobChannel

			select {
			case job := <-w.jobChannel:
				w.logger.Debug("worker reconciling transaction",
					"worker_id", w.id,
					"transaction_id", job.TransactionID)
				processFunc(job)
			case <-ctx.Done():
				w.logger.Debug("worker shutting down", "worker_id", w.id)
				return
			}
		}
	}()
}

type PollerConfig struct {
	PollInterval time.Duration
	StaleAfter   time.Duration
	BatchSize    int
	MaxWorkers   int
}

// Poller periodically sweeps pending transactions whose shopper never came
// back and reconciles them against the gateway. Webhooks normally make this
// redundant; the sweep catches the deliveries that never arrived.
type Poller struct {
	service *PaymentService
	config  PollerConfig
	logger  *slog.Logger

	jobQueue   chan ReconcileJob
	workerPool chan chan ReconcileJob
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

func NewPoller(service *PaymentService, config PollerConfig, logger *slog.Logger) *Poller {
	if config.PollInterval <= 0 {
		config.PollInterval = time.Minute
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = 10 * time.Minute
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = 4
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Poller{
		service:    service,
		config:     config,
		logger:     logger,
		jobQueue:   make(chan ReconcileJob, config.BatchSize*2),
		workerPool: make(chan chan ReconcileJob, config.MaxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start launches the workers, the dispatcher and the sweep ticker.
func (p *Poller) Start() {
	p.once.Do(func() {
		for i := 0; i < p.config.MaxWorkers; i++ {
			worker := newPollerWorker(i, p.workerPool, p.logger)
			worker.start(p.ctx, &p.wg, p.processJob)
		}

		p.wg.Add(2)
		go p.dispatch()
		go p.sweepLoop()

		p.logger.Info("reconciliation poller started",
			"max_workers", p.config.MaxWorkers,
			"poll_interval", p.config.PollInterval,
			"stale_after", p.config.StaleAfter)
	})
}

func (p *Poller) dispatch() {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobQueue:
			select {
			case jobChannel := <-p.workerPool:
				select {
				case jobChannel <- job:
				case <-p.ctx.Done():
					return
				}
			case <-p.ctx.Done():
				return
			}
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Poller) sweepLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.sweep()
		case <-p.ctx.Done():
			p.logger.Info("poller sweep loop shutting down")
			return
		}
	}
}

func (p *Poller) sweep() {
	olderThanMinutes := int(p.config.StaleAfter.Minutes())
	stale, err := p.service.repo.GetStalePending(olderThanMinutes, p.config.BatchSize)
	if err != nil {
		p.logger.Error("stale transaction sweep failed", "error", err)
		return
	}

	if len(stale) == 0 {
		return
	}

	p.logger.Info("sweeping stale pending transactions", "count", len(stale))

	for _, tx := range stale {
		if tx.HostedCheckoutID == nil {
			continue
		}

		job := ReconcileJob{
			TransactionID:    tx.ID,
			OrderID:          tx.OrderID,
			HostedCheckoutID: *tx.HostedCheckoutID,
		}

		select {
		case p.jobQueue <- job:
		default:
			p.logger.Warn("poller job queue full, deferring to next sweep",
				"transaction_id", tx.ID)
			return
		}
	}
}

func (p *Poller) processJob(job ReconcileJob) {
	ctx, cancel := context.WithTimeout(p.ctx, 30*time.Second)
	defer cancel()

	result, err := p.service.ReconcileFromPoll(ctx, job.HostedCheckoutID)
	if err != nil {
		p.logger.Warn("background reconciliation failed",
			"transaction_id", job.TransactionID,
			"hosted_checkout_id", job.HostedCheckoutID,
			"error", err)
		return
	}

	if result.IsPaid {
		if err := p.service.ConfirmPayment(ctx, job.OrderID, result.PaymentID); err != nil {
			p.logger.Error("order confirmation from poller failed",
				"order_id", job.OrderID,
				"error", err)
		}
	}
}

func (p *Poller) Shutdown() {
	p.logger.Info("shutting down reconciliation poller")
	p.cancel()
	p.wg.Wait()
	p.logger.Info("reconciliation poller shutdown complete")
}
