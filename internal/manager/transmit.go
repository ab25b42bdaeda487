package manager

import (
	"firestige.xyz/strix/internal/core"
	"firestige.xyz/strix/internal/iface"
	"firestige.xyz/strix/internal/log"
	"firestige.xyz/strix/internal/metrics"
)

// transmitLoop owns the transmit handle. Each pass re-offers every queued
// frame in order: repeat frames stay queued for the next pass, once frames
// leave the queue after a successful send. When the queue is empty the
// loop idle-waits instead of spinning. The deferred close runs on every
// exit path, so the handle is released exactly once per run.
func (m *Manager) transmitLoop(handle iface.Handle, ifaceName string) {
	logger := log.GetLogger().WithField("interface", ifaceName)
	defer close(m.transmitDone)
	defer func() {
		if err := handle.Close(); err != nil {
			logger.WithError(err).Warn("transmit handle close failed")
		}
	}()

	logger.Info("transmit loop started")

	for {
		if m.stopFlag.Load() {
			logger.Info("transmit loop stopped")
			return
		}

		entries := m.queue.Snapshot()
		if len(entries) == 0 {
			m.queue.AwaitFrames(m.cfg.PollInterval)
			continue
		}

		var sent []uint64
		for _, e := range entries {
			// Stop starting new sends once shutdown is requested.
			if m.stopFlag.Load() {
				break
			}
			if err := handle.Send(e.frame); err != nil {
				m.sendErrors.Add(1)
				metrics.SendErrorsTotal.WithLabelValues(ifaceName).Inc()
				logger.WithError(err).Warn("frame send failed")
				continue
			}
			m.framesSent.Add(1)
			metrics.FramesSentTotal.WithLabelValues(ifaceName).Inc()
			if e.frame.Policy == core.TransmitOnce {
				sent = append(sent, e.seq)
			}
		}
		if len(sent) > 0 {
			m.queue.Remove(sent)
		}
		metrics.OutboundQueueDepth.Set(float64(m.queue.Len()))
	}
}
