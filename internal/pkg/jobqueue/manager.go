package jobqueue

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/subfoxapp/SubFox/app/repository"
	"github.com/subfoxapp/SubFox/internal/pkg/env"
	"github.com/subfoxapp/SubFox/internal/pkg/statistics"
)

// Manager manages the global job queue and background tasks
type Manager struct {
	queue         *Queue
	reminderTick  *time.Ticker
	billingTick   *time.Ticker
	statsTick     *time.Ticker
	stopCh        chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	running       bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		workerCount := 5
		if v, err := strconv.Atoi(env.GetEnv("JOBQUEUE_WORKERS", "5")); err == nil && v > 0 {
			workerCount = v
		}

		globalManager = &Manager{
			queue:  NewQueue(workerCount),
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	// Start the job queue
	m.queue.Start()

	reminderInterval := envMinutes("REMINDER_SCAN_INTERVAL", 60)
	billingInterval := envMinutes("BILLING_SCAN_INTERVAL", 30)

	// Reminder scanner - enqueues mails for charges inside the lead window
	m.reminderTick = time.NewTicker(reminderInterval)
	m.wg.Add(1)
	go m.reminderWorker()

	// Billing scanner - rolls due subscriptions forward
	m.billingTick = time.NewTicker(billingInterval)
	m.wg.Add(1)
	go m.billingWorker()

	// Statistics refresh worker
	m.statsTick = time.NewTicker(5 * time.Minute)
	m.wg.Add(1)
	go m.statsWorker()

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.reminderTick != nil {
		m.reminderTick.Stop()
	}
	if m.billingTick != nil {
		m.billingTick.Stop()
	}
	if m.statsTick != nil {
		m.statsTick.Stop()
	}

	// Signal workers to stop
	close(m.stopCh)
	m.stopCh = nil
	m.running = false

	// Wait for background workers to finish
	m.wg.Wait()

	// Stop the job queue
	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// reminderWorker periodically scans for subscriptions that bill inside the
// reminder lead window and enqueues one reminder job each
func (m *Manager) reminderWorker() {
	defer m.wg.Done()
	log.Info("[JobQueue Manager] Started reminder scanner")

	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Reminder scanner stopping")
			return
		case <-m.reminderTick.C:
			if err := m.scanForReminders(); err != nil {
				log.Errorf("[JobQueue Manager] Reminder scan error: %v", err)
			}
		}
	}
}

// billingWorker periodically scans for subscriptions that are due and
// enqueues billing advance jobs
func (m *Manager) billingWorker() {
	defer m.wg.Done()
	log.Info("[JobQueue Manager] Started billing scanner")

	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Billing scanner stopping")
			return
		case <-m.billingTick.C:
			if err := m.scanForDueBilling(); err != nil {
				log.Errorf("[JobQueue Manager] Billing scan error: %v", err)
			}
		}
	}
}

// statsWorker keeps the public statistics cache warm
func (m *Manager) statsWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Statistics worker stopping")
			return
		case <-m.statsTick.C:
			if err := statistics.UpdateStatisticsCache(); err != nil {
				log.Errorf("[JobQueue Manager] Statistics refresh error: %v", err)
			}
		}
	}
}

// scanForReminders enqueues reminder jobs for subscriptions billing within
// the maximum lead window. Per-user reminder preferences are honored by the
// job processor, not here.
func (m *Manager) scanForReminders() error {
	ctx := context.Background()
	leadDays := 7
	if v, err := strconv.Atoi(env.GetEnv("REMINDER_MAX_LEAD_DAYS", "7")); err == nil && v > 0 {
		leadDays = v
	}

	repo := repository.GetGlobalFactory().GetSubscriptionRepository()
	due, err := repo.DueBy(ctx, time.Now().AddDate(0, 0, leadDays))
	if err != nil {
		return err
	}

	for i := range due {
		sub := &due[i]
		payload := RenewalReminderJobPayload{
			UserID:           sub.UserID,
			SubscriptionUUID: sub.UUID,
			DueDate:          sub.EffectiveBillingDate().Format("2006-01-02"),
		}
		if _, err := m.queue.EnqueueJob(JobTypeRenewalReminder, payload.ToMap()); err != nil {
			log.Errorf("[JobQueue Manager] Failed to enqueue reminder for %s: %v", sub.UUID, err)
		}
	}

	if len(due) > 0 {
		log.Debugf("[JobQueue Manager] Enqueued %d reminder jobs", len(due))
	}
	return nil
}

// scanForDueBilling enqueues billing advance jobs for subscriptions whose
// charge date has passed
func (m *Manager) scanForDueBilling() error {
	ctx := context.Background()

	repo := repository.GetGlobalFactory().GetSubscriptionRepository()
	due, err := repo.DueBy(ctx, time.Now())
	if err != nil {
		return err
	}

	for i := range due {
		sub := &due[i]
		payload := BillingAdvanceJobPayload{
			UserID:           sub.UserID,
			SubscriptionUUID: sub.UUID,
		}
		if _, err := m.queue.EnqueueJob(JobTypeBillingAdvance, payload.ToMap()); err != nil {
			log.Errorf("[JobQueue Manager] Failed to enqueue billing advance for %s: %v", sub.UUID, err)
		}
	}

	if len(due) > 0 {
		log.Debugf("[JobQueue Manager] Enqueued %d billing advance jobs", len(due))
	}
	return nil
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func envMinutes(key string, def int) time.Duration {
	v, err := strconv.Atoi(env.GetEnv(key, strconv.Itoa(def)))
	if err != nil || v <= 0 {
		v = def
	}
	return time.Duration(v) * time.Minute
}
