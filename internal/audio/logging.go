package audio

import (
	"sync"

	"github.com/aviaudio/perch/internal/logger"
)

var (
	serviceLogger logger.Logger
	initOnce      sync.Once
)

// getLogger returns the audio package logger scoped to the audio module.
func getLogger() logger.Logger {
	initOnce.Do(func() {
		serviceLogger = logger.Global().Module("audio")
	})
	return serviceLogger
}
