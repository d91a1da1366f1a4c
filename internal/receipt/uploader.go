package receipt

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/liquidation-portal/internal/auth"
	"github.com/frahmantamala/liquidation-portal/internal/core/events"
)

// ObjectStore is where receipt bytes end up.
type ObjectStore interface {
	NewObjectPath(filename string, now time.Time) string
	Upload(ctx context.Context, objectPath string, r io.Reader, contentType string) (string, error)
}

// CompletionHook runs after a file is stored. A returned error marks the
// upload failed.
type CompletionHook func(ctx context.Context, actor *auth.User, itemID, url string) error

// AccessCheck decides whether actor may attach a receipt to itemID. It runs
// before the upload is queued.
type AccessCheck func(ctx context.Context, actor *auth.User, itemID string) error

type Job struct {
	Actor       *auth.User
	ItemID      string
	Filename    string
	ContentType string
	Content     []byte
}

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				w.Logger.Debug("receipt worker shutting down", "worker_id", w.ID)
				return
			}

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("receipt worker processing job", "worker_id", w.ID, "item_id", job.ItemID)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("receipt worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type Config struct {
	MaxWorkers  int
	QueueSize   int
	MaxFileSize int64
}

type Uploader struct {
	store   ObjectStore
	bus     *events.EventBus
	logger  *slog.Logger
	maxSize int64
	now     func() time.Time

	mu      sync.RWMutex
	uploads map[uploadKey]*Upload
	hook    CompletionHook
	check   AccessCheck

	jobQueue   chan Job
	workerPool chan chan Job
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

// NewUploader starts the worker pool. bus may be nil.
func NewUploader(config Config, store ObjectStore, bus *events.EventBus, logger *slog.Logger) *Uploader {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}
	maxSize := config.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	u := &Uploader{
		store:   store,
		bus:     bus,
		logger:  logger,
		maxSize: maxSize,
		now:     time.Now,
		uploads: make(map[uploadKey]*Upload),

		maxWorkers: maxWorkers,
		jobQueue:   make(chan Job, queueSize),
		workerPool: make(chan chan Job, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}

	u.startWorkerPool()

	return u
}

// OnComplete sets the hook run after each stored file.
func (u *Uploader) OnComplete(hook CompletionHook) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.hook = hook
}

// Guard sets the access check run by Submit.
func (u *Uploader) Guard(check AccessCheck) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.check = check
}

func (u *Uploader) startWorkerPool() {
	u.once.Do(func() {
		for i := 0; i < u.maxWorkers; i++ {
			worker := NewWorker(i, u.workerPool, u.logger)
			worker.Start(u.ctx, &u.wg, u.process)
		}

		u.wg.Add(1)
		go u.dispatch()

		u.logger.Info("receipt uploader started",
			"max_workers", u.maxWorkers,
			"queue_size", cap(u.jobQueue))
	})
}

func (u *Uploader) dispatch() {
	defer u.wg.Done()

	for {
		select {
		case job := <-u.jobQueue:
			select {
			case jobChannel := <-u.workerPool:
				select {
				case jobChannel <- job:
				case <-u.ctx.Done():
					u.logger.Info("receipt dispatcher shutting down")
					return
				}
			case <-u.ctx.Done():
				u.logger.Info("receipt dispatcher shutting down")
				return
			}
		case <-u.ctx.Done():
			u.logger.Info("receipt dispatcher shutting down")
			return
		}
	}
}

// Submit validates the file, checks the actor may attach to the item, marks
// the upload pending and queues it. Uploads are tracked per submitter; a newer
// submission by the same user for the same item replaces the tracked state.
func (u *Uploader) Submit(ctx context.Context, actor *auth.User, itemID, filename string, content []byte) (*Upload, error) {
	if actor == nil {
		return nil, auth.ErrForbidden
	}
	if itemID == "" {
		return nil, ErrItemRequired
	}
	contentType, err := ContentType(filename)
	if err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(content)) > u.maxSize {
		return nil, ErrFileTooLarge
	}
	if u.ctx.Err() != nil {
		return nil, ErrShuttingDown
	}

	u.mu.RLock()
	check := u.check
	u.mu.RUnlock()
	if check != nil {
		if err := check(ctx, actor, itemID); err != nil {
			u.logger.Warn("receipt upload denied", "item_id", itemID, "user_id", actor.ID, "error", err)
			return nil, err
		}
	}

	job := Job{Actor: actor, ItemID: itemID, Filename: filename, ContentType: contentType, Content: content}
	state := u.set(job.upload(StatusPending, "", ""))

	select {
	case u.jobQueue <- job:
		u.logger.Info("receipt upload queued", "item_id", itemID, "user_id", actor.ID, "queue_length", len(u.jobQueue))
	default:
		u.logger.Warn("receipt queue full, rejecting upload", "item_id", itemID, "queue_capacity", cap(u.jobQueue))
		u.set(job.upload(StatusFailed, "", ErrQueueFull.Error()))
		return nil, ErrQueueFull
	}

	return &state, nil
}

func (u *Uploader) MaxFileSize() int64 {
	return u.maxSize
}

// Status returns a copy of the actor's upload state for the item. Uploads
// made by other users are reported as missing.
func (u *Uploader) Status(actor *auth.User, itemID string) (*Upload, error) {
	if actor == nil {
		return nil, ErrUploadNotFound
	}
	u.mu.RLock()
	defer u.mu.RUnlock()
	state, ok := u.uploads[uploadKey{userID: actor.ID, itemID: itemID}]
	if !ok {
		return nil, ErrUploadNotFound
	}
	cp := *state
	return &cp, nil
}

func (u *Uploader) process(job Job) {
	objectPath := u.store.NewObjectPath(job.Filename, u.now())
	url, err := u.store.Upload(u.ctx, objectPath, bytes.NewReader(job.Content), job.ContentType)
	if err != nil {
		u.logger.Error("receipt upload failed", "item_id", job.ItemID, "error", err)
		u.set(job.upload(StatusFailed, "", err.Error()))
		return
	}

	u.mu.RLock()
	hook := u.hook
	u.mu.RUnlock()
	if hook != nil {
		if err := hook(u.ctx, job.Actor, job.ItemID, url); err != nil {
			u.logger.Error("receipt completion hook failed", "item_id", job.ItemID, "error", err)
			u.set(job.upload(StatusFailed, url, err.Error()))
			return
		}
	}

	u.set(job.upload(StatusDone, url, ""))
	u.logger.Info("receipt uploaded", "item_id", job.ItemID, "url", url)

	if u.bus != nil {
		if err := u.bus.Publish(u.ctx, events.NewReceiptUploadedEvent(job.ItemID, url)); err != nil {
			u.logger.Error("failed to publish receipt event", "item_id", job.ItemID, "error", err)
		}
	}
}

type uploadKey struct {
	userID string
	itemID string
}

func (j Job) upload(status Status, url, errMsg string) Upload {
	return Upload{ItemID: j.ItemID, SubmittedBy: j.Actor.ID, Filename: j.Filename, Status: status, URL: url, Error: errMsg}
}

func (u *Uploader) set(state Upload) Upload {
	state.UpdatedAt = u.now()
	u.mu.Lock()
	u.uploads[uploadKey{userID: state.SubmittedBy, itemID: state.ItemID}] = &state
	u.mu.Unlock()
	return state
}

// Shutdown stops accepting work and waits for the workers to exit. Jobs still
// queued are dropped and marked failed.
func (u *Uploader) Shutdown() {
	u.logger.Info("shutting down receipt uploader")
	u.cancel()
	u.wg.Wait()

	for {
		select {
		case job := <-u.jobQueue:
			u.set(job.upload(StatusFailed, "", ErrShuttingDown.Error()))
		default:
			u.logger.Info("receipt uploader shutdown complete")
			return
		}
	}
}
