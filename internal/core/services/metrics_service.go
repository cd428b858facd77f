package services

import (
	"sync"
	"time"

	"mirrorbot/internal/core/domain"
	"mirrorbot/internal/core/ports"
)

// MetricsSnapshot is a point-in-time copy of the in-process counters.
type MetricsSnapshot struct {
	Grants            map[domain.Unit]int `json:"grants"`
	Transfers         int                 `json:"transfers"`
	Removals          map[string]int      `json:"removals"`
	NotificationsSent int                 `json:"notifications_sent"`
	NotificationsLost int                 `json:"notifications_failed"`
	Sweeps            int                 `json:"sweeps"`
	LastSweepAt       time.Time           `json:"last_sweep_at"`
	LastSweepDuration time.Duration       `json:"last_sweep_duration"`
	LastSweepRemoved  int                 `json:"last_sweep_removed"`
	LastSweepActive   int                 `json:"last_sweep_active"`
	Commands          map[string]int      `json:"commands"`
	CommandErrors     int                 `json:"command_errors"`
	Mirrored          int                 `json:"mirrored"`
}

// MetricsService keeps counters in memory for the health endpoint.
type MetricsService struct {
	mu sync.RWMutex

	grants        map[domain.Unit]int
	transfers     int
	removals      map[string]int
	notifySent    int
	notifyFailed  int
	sweeps        int
	lastSweepAt   time.Time
	lastSweepTook time.Duration
	lastRemoved   int
	lastActive    int
	commands      map[string]int
	commandErrors int
	mirrored      int
}

func NewMetricsService() *MetricsService {
	return &MetricsService{
		grants:   make(map[domain.Unit]int),
		removals: make(map[string]int),
		commands: make(map[string]int),
	}
}

func (m *MetricsService) RecordGrant(unit domain.Unit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grants[unit]++
}

func (m *MetricsService) RecordTransfer() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transfers++
}

func (m *MetricsService) RecordRemoval(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removals[reason]++
}

func (m *MetricsService) RecordNotification(_ string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.notifyFailed++
		return
	}
	m.notifySent++
}

func (m *MetricsService) RecordSweep(duration time.Duration, report *domain.SweepReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweeps++
	m.lastSweepTook = duration
	if report != nil {
		m.lastSweepAt = report.FinishedAt
		m.lastRemoved = len(report.Removed)
		m.lastActive = len(report.StillActive)
	}
}

func (m *MetricsService) RecordCommand(command string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands[command]++
	if err != nil {
		m.commandErrors++
	}
}

func (m *MetricsService) RecordMirror(_ string, err error) {
	if err != nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mirrored++
}

func (m *MetricsService) RecordStoreCall(string, time.Duration, error) {}

// Snapshot copies the current counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := MetricsSnapshot{
		Grants:            make(map[domain.Unit]int, len(m.grants)),
		Transfers:         m.transfers,
		Removals:          make(map[string]int, len(m.removals)),
		NotificationsSent: m.notifySent,
		NotificationsLost: m.notifyFailed,
		Sweeps:            m.sweeps,
		LastSweepAt:       m.lastSweepAt,
		LastSweepDuration: m.lastSweepTook,
		LastSweepRemoved:  m.lastRemoved,
		LastSweepActive:   m.lastActive,
		Commands:          make(map[string]int, len(m.commands)),
		CommandErrors:     m.commandErrors,
		Mirrored:          m.mirrored,
	}
	for k, v := range m.grants {
		s.Grants[k] = v
	}
	for k, v := range m.removals {
		s.Removals[k] = v
	}
	for k, v := range m.commands {
		s.Commands[k] = v
	}
	return s
}

// multiRecorder fans every observation out to several recorders.
type multiRecorder []ports.MetricsRecorder

// NewMultiRecorder combines recorders; nil entries are skipped.
func NewMultiRecorder(recorders ...ports.MetricsRecorder) ports.MetricsRecorder {
	out := make(multiRecorder, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (m multiRecorder) RecordGrant(unit domain.Unit) {
	for _, r := range m {
		r.RecordGrant(unit)
	}
}

func (m multiRecorder) RecordTransfer() {
	for _, r := range m {
		r.RecordTransfer()
	}
}

func (m multiRecorder) RecordRemoval(reason string) {
	for _, r := range m {
		r.RecordRemoval(reason)
	}
}

func (m multiRecorder) RecordNotification(kind string, err error) {
	for _, r := range m {
		r.RecordNotification(kind, err)
	}
}

func (m multiRecorder) RecordSweep(d time.Duration, report *domain.SweepReport) {
	for _, r := range m {
		r.RecordSweep(d, report)
	}
}

func (m multiRecorder) RecordCommand(command string, d time.Duration, err error) {
	for _, r := range m {
		r.RecordCommand(command, d, err)
	}
}

func (m multiRecorder) RecordMirror(kind string, err error) {
	for _, r := range m {
		r.RecordMirror(kind, err)
	}
}

func (m multiRecorder) RecordStoreCall(op string, d time.Duration, err error) {
	for _, r := range m {
		r.RecordStoreCall(op, d, err)
	}
}
