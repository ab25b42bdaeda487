package manager

import (
	"errors"

	"firestige.xyz/strix/internal/core"
	"firestige.xyz/strix/internal/iface"
	"firestige.xyz/strix/internal/log"
	"firestige.xyz/strix/internal/metrics"
)

// captureLoop owns the capture handle: it reads one frame at a time, fans
// each out to the loaded extensions, and closes the handle on the way out.
func (m *Manager) captureLoop(handle iface.Handle, ifaceName string) {
	logger := log.GetLogger().WithField("interface", ifaceName)
	defer close(m.captureDone)
	defer func() {
		if err := handle.Close(); err != nil {
			logger.WithError(err).Warn("capture handle close failed")
		}
	}()

	logger.Info("capture loop started")

	for {
		if m.stopFlag.Load() {
			logger.Info("capture loop stopped")
			return
		}

		frame, err := handle.CaptureOne(m.stopFlag.Load)
		if errors.Is(err, core.ErrCaptureStopped) {
			logger.Info("capture loop stopped")
			return
		}
		if err != nil {
			if m.stopFlag.Load() {
				// Read failures during shutdown are expected; the
				// handle may already be half torn down.
				logger.WithError(err).Debug("capture read failed during shutdown")
				return
			}
			m.mu.Lock()
			m.failure = err
			m.setState(StateFailed)
			m.mu.Unlock()
			metrics.CaptureFailuresTotal.WithLabelValues(ifaceName).Inc()
			logger.WithError(err).Error("capture failed, terminating capture loop")
			return
		}

		m.framesCaptured.Add(1)
		metrics.FramesCapturedTotal.WithLabelValues(ifaceName).Inc()
		if logger.IsDebugEnabled() {
			logger.Debugf("captured frame, %d bytes", len(frame.Data))
		}
		m.dispatch(frame)
	}
}

// dispatch offers the frame to every extension in registration order and
// queues whatever they return. Queue order is extension-then-result: all
// frames from an earlier extension precede those from a later one, and a
// single extension's frames keep their returned order. One failing
// extension does not keep the others from seeing the frame.
func (m *Manager) dispatch(frame *core.Frame) {
	for _, le := range m.exts {
		produced, err := le.ext.Ingest(frame)
		if err != nil {
			m.ingestErrors.Add(1)
			metrics.IngestErrorsTotal.WithLabelValues(le.name).Inc()
			log.GetLogger().WithField("extension", le.name).WithError(err).Warn("extension ingest failed")
			continue
		}
		if len(produced) == 0 {
			continue
		}
		m.framesProduced.Add(uint64(len(produced)))
		metrics.FramesProducedTotal.WithLabelValues(le.name).Add(float64(len(produced)))
		m.queue.Append(produced...)
	}
	metrics.OutboundQueueDepth.Set(float64(m.queue.Len()))
}
