package audio

import (
	"encoding/hex"
	"runtime"
	"strings"
	"sync"
	"unsafe"

	"github.com/gen2brain/malgo"

	"github.com/aviaudio/perch/internal/conf"
	"github.com/aviaudio/perch/internal/errors"
	"github.com/aviaudio/perch/internal/logger"
)

// DeviceInfo describes an available capture device.
type DeviceInfo struct {
	Index int
	Name  string
	ID    string
}

// Capture owns a miniaudio capture device that feeds the ring buffer. The
// device callback runs on an audio thread; it must not block, so it only
// converts samples, writes the ring and does a non-blocking level send.
type Capture struct {
	settings *conf.Settings
	ring     *RingBuffer
	levelCh  chan LevelData

	mu      sync.Mutex
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	started bool
}

// NewCapture prepares a capture bound to the given ring buffer. levelCh may
// be nil if the caller does not want metering.
func NewCapture(settings *conf.Settings, ring *RingBuffer, levelCh chan LevelData) *Capture {
	return &Capture{settings: settings, ring: ring, levelCh: levelCh}
}

// ListDevices enumerates available capture devices.
func ListDevices() ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(defaultBackends(), malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, errors.New(err).
			Component("audio").
			Category(errors.CategoryAudioSource).
			Context("operation", "init_context").
			Build()
	}
	defer func() { _ = ctx.Uninit() }()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, errors.New(err).
			Component("audio").
			Category(errors.CategoryAudioSource).
			Context("operation", "enumerate").
			Build()
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for i, info := range infos {
		id, err := hexToASCII(info.ID.String())
		if err != nil {
			continue
		}
		devices = append(devices, DeviceInfo{Index: i, Name: info.Name(), ID: id})
	}
	return devices, nil
}

// Start acquires the configured device and begins feeding the ring buffer.
// Failure leaves the capture stopped, so the caller can fall back to Idle.
func (c *Capture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return nil
	}

	log := getLogger()

	mctx, err := malgo.InitContext(defaultBackends(), malgo.ContextConfig{}, func(message string) {
		if c.settings.Debug {
			log.Debug("miniaudio", logger.String("message", strings.TrimSpace(message)))
		}
	})
	if err != nil {
		return errors.New(err).
			Component("audio").
			Category(errors.CategoryAudioSource).
			Context("operation", "init_context").
			Build()
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = conf.NumChannels
	deviceConfig.SampleRate = conf.SampleRate
	deviceConfig.Alsa.NoMMap = 1

	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		_ = mctx.Uninit()
		return errors.New(err).
			Component("audio").
			Category(errors.CategoryAudioSource).
			Context("operation", "enumerate").
			Build()
	}

	source, err := selectDevice(infos, c.settings.Realtime.Audio.Source)
	if err != nil {
		_ = mctx.Uninit()
		return err
	}
	if source.pointer != nil {
		deviceConfig.Capture.DeviceID = source.pointer
	}

	onReceiveFrames := func(_, pSamples []byte, _ uint32) {
		samples := s16ToFloat32(pSamples)
		c.ring.Write(samples)

		if c.levelCh == nil {
			return
		}
		select {
		case c.levelCh <- calculateLevel(samples):
		default:
			// Meter consumer is behind; stale levels are worthless.
		}
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onReceiveFrames,
	})
	if err != nil {
		_ = mctx.Uninit()
		return errors.New(err).
			Component("audio").
			Category(errors.CategoryAudioSource).
			Context("device", source.name).
			Context("operation", "init_device").
			Build()
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = mctx.Uninit()
		return errors.New(err).
			Component("audio").
			Category(errors.CategoryAudioSource).
			Context("device", source.name).
			Context("operation", "start_device").
			Build()
	}

	c.ctx = mctx
	c.device = device
	c.started = true

	log.Info("capture started",
		logger.String("device", source.name),
		logger.Int("sample_rate", conf.SampleRate),
		logger.Int("channels", conf.NumChannels))
	return nil
}

// Stop tears down the device and context. Safe to call when not started.
func (c *Capture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return
	}
	_ = c.device.Stop()
	c.device.Uninit()
	_ = c.ctx.Uninit()
	c.device = nil
	c.ctx = nil
	c.started = false

	getLogger().Info("capture stopped")
}

type selectedDevice struct {
	name    string
	id      string
	pointer unsafe.Pointer
}

// selectDevice picks the capture device matching the configured source by
// decoded id or name substring. "sysdefault" on Windows maps to the backend
// default device since no device carries that name there.
func selectDevice(infos []malgo.DeviceInfo, source string) (selectedDevice, error) {
	for _, info := range infos {
		id, err := hexToASCII(info.ID.String())
		if err != nil {
			continue
		}
		if matchesDevice(id, info, source) {
			return selectedDevice{name: info.Name(), id: id, pointer: info.ID.Pointer()}, nil
		}
	}
	return selectedDevice{}, errors.Newf("no capture device matches source %q", source).
		Component("audio").
		Category(errors.CategoryAudioSource).
		Context("source", source).
		Context("device_count", len(infos)).
		Build()
}

func matchesDevice(decodedID string, info malgo.DeviceInfo, source string) bool {
	if runtime.GOOS == "windows" && source == "sysdefault" {
		return info.IsDefault == 1
	}
	return decodedID == source || strings.Contains(info.Name(), source)
}

func defaultBackends() []malgo.Backend {
	switch runtime.GOOS {
	case "linux":
		return []malgo.Backend{malgo.BackendAlsa}
	case "windows":
		return []malgo.Backend{malgo.BackendWasapi}
	case "darwin":
		return []malgo.Backend{malgo.BackendCoreaudio}
	default:
		return nil
	}
}

// hexToASCII converts a hexadecimal device id string to ASCII.
func hexToASCII(hexStr string) (string, error) {
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
