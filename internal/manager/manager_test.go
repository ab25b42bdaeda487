package manager

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/strix/internal/core"
	"firestige.xyz/strix/internal/iface"
	"firestige.xyz/strix/pkg/extension"
)

func firstIndex(frames []*core.Frame, target *core.Frame) int {
	for i, f := range frames {
		if f == target {
			return i
		}
	}
	return -1
}

func countFrame(frames []*core.Frame, target *core.Frame) int {
	n := 0
	for _, f := range frames {
		if f == target {
			n++
		}
	}
	return n
}

func TestDispatchFansOutInRegistrationOrder(t *testing.T) {
	f1 := core.NewFrame([]byte{0xf1}, time.Now())
	g1 := core.NewOutboundFrame([]byte{0x01}, core.TransmitRepeat)
	g2 := core.NewOutboundFrame([]byte{0x02}, core.TransmitRepeat)
	g3 := core.NewOutboundFrame([]byte{0x03}, core.TransmitRepeat)

	extA := newMockExtension([]*core.Frame{g1, g2})
	extB := newMockExtension([]*core.Frame{g3})
	nameA := registerMock(t, "order-a", extA)
	nameB := registerMock(t, "order-b", extB)

	capture := newMockHandle(f1)
	transmit := newMockHandle()
	m := newTestManager(capture, transmit)
	m.SetInterface("wlan0test")
	require.NoError(t, m.LoadExtensions([]string{nameA, nameB}, extension.SharedData{}))
	require.NoError(t, m.Start())

	require.Eventually(t, func() bool {
		sent := transmit.Sent()
		return countFrame(sent, g1) >= 1 && countFrame(sent, g2) >= 1 && countFrame(sent, g3) >= 1
	}, time.Second, time.Millisecond)

	m.RequestStop()
	require.NoError(t, m.Join(time.Second))

	// Both extensions saw the captured frame.
	require.Len(t, extA.Ingested(), 1)
	assert.Same(t, f1, extA.Ingested()[0])
	require.Len(t, extB.Ingested(), 1)
	assert.Same(t, f1, extB.Ingested()[0])

	// Queue order is extension-then-result: extA's frames reach the air
	// before extB's, and extA's keep their returned order.
	sent := transmit.Sent()
	i1, i2, i3 := firstIndex(sent, g1), firstIndex(sent, g2), firstIndex(sent, g3)
	assert.Equal(t, 0, i1)
	assert.Less(t, i1, i2)
	assert.Less(t, i2, i3)

	assert.Equal(t, uint64(1), m.Stats().FramesCaptured)
	assert.Equal(t, uint64(3), m.Stats().FramesProduced)
	assert.Equal(t, 1, capture.CloseCalls())
	assert.Equal(t, 1, transmit.CloseCalls())
}

func TestIngestErrorDoesNotStopOtherExtensions(t *testing.T) {
	f1 := core.NewFrame([]byte{0xf1}, time.Now())
	g1 := core.NewOutboundFrame([]byte{0x01}, core.TransmitRepeat)

	broken := newMockExtension()
	broken.SetIngestError(errors.New("parse blew up"))
	healthy := newMockExtension([]*core.Frame{g1})
	nameBroken := registerMock(t, "broken", broken)
	nameHealthy := registerMock(t, "healthy", healthy)

	capture := newMockHandle(f1)
	transmit := newMockHandle()
	m := newTestManager(capture, transmit)
	m.SetInterface("wlan0test")
	require.NoError(t, m.LoadExtensions([]string{nameBroken, nameHealthy}, extension.SharedData{}))
	require.NoError(t, m.Start())

	require.Eventually(t, func() bool {
		return transmit.SentCount() >= 1
	}, time.Second, time.Millisecond)

	m.RequestStop()
	require.NoError(t, m.Join(time.Second))

	assert.Same(t, g1, transmit.Sent()[0])
	assert.Equal(t, 1, healthy.IngestedCount())
	assert.GreaterOrEqual(t, m.Stats().IngestErrors, uint64(1))
	assert.Nil(t, m.Err())
}

func TestStopClosesBothHandlesOnce(t *testing.T) {
	capture := newMockHandle()
	transmit := newMockHandle()
	m := newTestManager(capture, transmit)
	m.SetInterface("wlan0test")
	require.NoError(t, m.Start())

	require.Eventually(t, func() bool {
		return capture.CaptureCalls() >= 1
	}, time.Second, time.Millisecond)

	m.RequestStop()
	m.RequestStop() // idempotent
	require.NoError(t, m.Join(time.Second))

	// The queue was empty for the whole run; the transmit handle still
	// gets closed exactly once.
	assert.Equal(t, 1, capture.CloseCalls())
	assert.Equal(t, 1, transmit.CloseCalls())
	assert.Equal(t, StateStopped, m.State())

	// Join after completion stays clean.
	require.NoError(t, m.Join(time.Millisecond))
}

func TestJoinTimeoutNamesStuckLoop(t *testing.T) {
	capture := newMockHandle()
	capture.blockOn = make(chan struct{})
	transmit := newMockHandle()
	m := newTestManager(capture, transmit)
	m.SetInterface("wlan0test")
	require.NoError(t, m.Start())

	require.Eventually(t, func() bool {
		return capture.CaptureCalls() >= 1
	}, time.Second, time.Millisecond)

	m.RequestStop()

	// Let the transmit loop finish so only capture can be pending.
	require.Eventually(t, func() bool {
		return transmit.CloseCalls() == 1
	}, time.Second, time.Millisecond)

	err := m.Join(50 * time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrShutdownTimeout)
	assert.Contains(t, err.Error(), "capture")
	assert.NotContains(t, err.Error(), "transmit")

	// Unstick the capture read; a later join succeeds.
	close(capture.blockOn)
	require.NoError(t, m.Join(time.Second))
	assert.Equal(t, StateStopped, m.State())
	assert.Equal(t, 1, capture.CloseCalls())
}

func TestCaptureFailureSurfaced(t *testing.T) {
	capture := newMockHandle()
	capture.SetCaptureError(errors.New("radio unplugged"))
	transmit := newMockHandle()
	m := newTestManager(capture, transmit)
	m.SetInterface("wlan0test")
	require.NoError(t, m.Start())

	require.Eventually(t, func() bool {
		return m.Err() != nil
	}, time.Second, time.Millisecond)
	assert.Contains(t, m.Err().Error(), "radio unplugged")
	assert.Equal(t, StateFailed, m.State())

	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Fatal("capture loop did not exit after failure")
	}
	assert.Equal(t, 1, capture.CloseCalls())

	// The transmit loop keeps running until a stop is requested.
	m.RequestStop()
	require.NoError(t, m.Join(time.Second))
	assert.Equal(t, StateFailed, m.State())
	assert.Equal(t, 1, transmit.CloseCalls())
}

func TestCaptureErrorAfterStopSuppressed(t *testing.T) {
	capture := newMockHandle()
	capture.SetErrorOnStop(errors.New("socket closed under us"))
	transmit := newMockHandle()
	m := newTestManager(capture, transmit)
	m.SetInterface("wlan0test")
	require.NoError(t, m.Start())

	require.Eventually(t, func() bool {
		return capture.CaptureCalls() >= 1
	}, time.Second, time.Millisecond)

	m.RequestStop()
	require.NoError(t, m.Join(time.Second))

	assert.Nil(t, m.Err())
	assert.Equal(t, StateStopped, m.State())
}

func TestTransmitOnceLeavesQueueAfterSend(t *testing.T) {
	f1 := core.NewFrame([]byte{0xf1}, time.Now())
	oneShot := core.NewOutboundFrame([]byte{0x0a}, core.TransmitOnce)
	repeat := core.NewOutboundFrame([]byte{0x0b}, core.TransmitRepeat)

	ext := newMockExtension([]*core.Frame{oneShot, repeat})
	name := registerMock(t, "policy", ext)

	capture := newMockHandle(f1)
	transmit := newMockHandle()
	m := newTestManager(capture, transmit)
	m.SetInterface("wlan0test")
	require.NoError(t, m.LoadExtensions([]string{name}, extension.SharedData{}))
	require.NoError(t, m.Start())

	require.Eventually(t, func() bool {
		return countFrame(transmit.Sent(), repeat) >= 3
	}, time.Second, time.Millisecond)

	m.RequestStop()
	require.NoError(t, m.Join(time.Second))

	assert.Equal(t, 1, countFrame(transmit.Sent(), oneShot))
	assert.Equal(t, 1, m.Stats().QueueDepth)
}

func TestOnceFrameStaysQueuedAfterFailedSend(t *testing.T) {
	f1 := core.NewFrame([]byte{0xf1}, time.Now())
	oneShot := core.NewOutboundFrame([]byte{0x0a}, core.TransmitOnce)

	ext := newMockExtension([]*core.Frame{oneShot})
	name := registerMock(t, "retry", ext)

	capture := newMockHandle(f1)
	transmit := newMockHandle()
	transmit.SetSendFailures(1)
	m := newTestManager(capture, transmit)
	m.SetInterface("wlan0test")
	require.NoError(t, m.LoadExtensions([]string{name}, extension.SharedData{}))
	require.NoError(t, m.Start())

	// The failed first send leaves the frame queued; the retry drains it.
	require.Eventually(t, func() bool {
		return transmit.SentCount() == 1 && m.Stats().QueueDepth == 0
	}, time.Second, time.Millisecond)
	assert.GreaterOrEqual(t, m.Stats().SendErrors, uint64(1))

	// Nothing left to send.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, transmit.SentCount())

	m.RequestStop()
	require.NoError(t, m.Join(time.Second))
}

func TestSendFailureContinuesWithNextFrame(t *testing.T) {
	f1 := core.NewFrame([]byte{0xf1}, time.Now())
	g1 := core.NewOutboundFrame([]byte{0x01}, core.TransmitRepeat)
	g2 := core.NewOutboundFrame([]byte{0x02}, core.TransmitRepeat)

	ext := newMockExtension([]*core.Frame{g1, g2})
	name := registerMock(t, "senderr", ext)

	capture := newMockHandle(f1)
	transmit := newMockHandle()
	transmit.SetSendFailures(1)
	m := newTestManager(capture, transmit)
	m.SetInterface("wlan0test")
	require.NoError(t, m.LoadExtensions([]string{name}, extension.SharedData{}))
	require.NoError(t, m.Start())

	require.Eventually(t, func() bool {
		sent := transmit.Sent()
		return countFrame(sent, g1) >= 1 && countFrame(sent, g2) >= 1
	}, time.Second, time.Millisecond)

	m.RequestStop()
	require.NoError(t, m.Join(time.Second))

	// g1's first send failed, so g2 reached the interface first.
	assert.Same(t, g2, transmit.Sent()[0])
	assert.GreaterOrEqual(t, m.Stats().SendErrors, uint64(1))
}

func TestLoadExtensionsUnknownNameLoadsNothing(t *testing.T) {
	good := newMockExtension()
	goodName := registerMock(t, "known", good)
	missing := uniqueName("missing")

	m := newTestManager(newMockHandle(), newMockHandle())
	err := m.LoadExtensions([]string{goodName, missing}, extension.SharedData{})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrExtensionNotFound)
	assert.Contains(t, err.Error(), missing)
	assert.Empty(t, m.Extensions())
}

func TestLoadExtensionsResolvesAllNamesBeforeConstructing(t *testing.T) {
	var constructed atomic.Int32
	name := uniqueName("eager")
	extension.Register(name, func(extension.SharedData) (extension.Extension, error) {
		constructed.Add(1)
		return newMockExtension(), nil
	})
	missing := uniqueName("missing")

	m := newTestManager(newMockHandle(), newMockHandle())
	err := m.LoadExtensions([]string{name, missing}, extension.SharedData{})
	require.Error(t, err)
	assert.Equal(t, int32(0), constructed.Load())
}

func TestLoadExtensionsFactoryFailureLoadsNothing(t *testing.T) {
	good := newMockExtension()
	goodName := registerMock(t, "good", good)

	badName := uniqueName("bad")
	extension.Register(badName, func(extension.SharedData) (extension.Extension, error) {
		return nil, errors.New("missing required setting")
	})

	m := newTestManager(newMockHandle(), newMockHandle())
	err := m.LoadExtensions([]string{goodName, badName}, extension.SharedData{})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrExtensionInit)
	assert.Contains(t, err.Error(), badName)
	assert.Contains(t, err.Error(), "missing required setting")
	assert.Empty(t, m.Extensions())
}

func TestLoadExtensionsClonesSharedData(t *testing.T) {
	var got extension.SharedData
	name := uniqueName("clone")
	extension.Register(name, func(data extension.SharedData) (extension.Extension, error) {
		got = data
		return newMockExtension(), nil
	})

	settings := map[string]string{"key": "original"}
	m := newTestManager(newMockHandle(), newMockHandle())
	require.NoError(t, m.LoadExtensions([]string{name}, extension.SharedData{Settings: settings}))

	settings["key"] = "mutated"
	assert.Equal(t, "original", got.Settings["key"])
}

func TestLoadExtensionsAfterStartRejected(t *testing.T) {
	m := newTestManager(newMockHandle(), newMockHandle())
	m.SetInterface("wlan0test")
	require.NoError(t, m.Start())
	defer func() {
		m.RequestStop()
		m.Join(time.Second)
	}()

	err := m.LoadExtensions([]string{"anything"}, extension.SharedData{})
	assert.ErrorIs(t, err, core.ErrManagerState)
}

func TestStartWithoutInterface(t *testing.T) {
	m := newTestManager(newMockHandle(), newMockHandle())
	assert.ErrorIs(t, m.Start(), core.ErrNoInterface)
	assert.Equal(t, StateIdle, m.State())
}

func TestStartTwiceRejected(t *testing.T) {
	m := newTestManager(newMockHandle(), newMockHandle())
	m.SetInterface("wlan0test")
	require.NoError(t, m.Start())
	defer func() {
		m.RequestStop()
		m.Join(time.Second)
	}()

	assert.ErrorIs(t, m.Start(), core.ErrManagerState)
}

func TestStartClosesCaptureHandleWhenTransmitOpenFails(t *testing.T) {
	capture := newMockHandle()
	m := New(Config{
		HandleKind: "mock",
		OpenHandle: func(kind string, opts iface.Options) (iface.Handle, error) {
			if opts.Role == iface.RoleCapture {
				return capture, nil
			}
			return nil, errors.New("no such device")
		},
	})
	m.SetInterface("wlan0test")

	err := m.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such device")
	assert.Equal(t, 1, capture.CloseCalls())
	assert.Equal(t, StateIdle, m.State())
}

func TestCollectOutputPreservesOrderAndIsolatesFailures(t *testing.T) {
	first := newMockExtension()
	first.SetDrainLines("a1", "a2")
	faulty := newMockExtension()
	faulty.SetDrainError(errors.New("buffer torn"))
	last := newMockExtension()
	last.SetDrainLines("c1")

	names := []string{
		registerMock(t, "drain-a", first),
		registerMock(t, "drain-b", faulty),
		registerMock(t, "drain-c", last),
	}

	m := newTestManager(newMockHandle(), newMockHandle())
	require.NoError(t, m.LoadExtensions(names, extension.SharedData{}))

	assert.Equal(t, []string{"a1", "a2", "c1"}, m.CollectOutput())

	// Drained lines do not reappear.
	assert.Empty(t, m.CollectOutput())
}

func TestRequestStopBeforeStart(t *testing.T) {
	m := newTestManager(newMockHandle(), newMockHandle())
	m.RequestStop()
	assert.Equal(t, StateIdle, m.State())
	assert.NoError(t, m.Join(time.Second))
}
