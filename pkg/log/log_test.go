package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggingBeforeInit(t *testing.T) {
	// 包级默认 logger 必须可用：Init 之前的任何日志调用都不允许 panic
	assert.NotPanics(t, func() {
		Info("boot")
		Infof("boot step %d", 1)
		Infow("boot", "step", 1)
		Debugf("debug %s", "detail")
		Warnf("warn %s", "detail")
		Errorf("error %v", assert.AnError)
		Error("error", assert.AnError)
		Sync()
	})
}

func TestInitReplacesDefaultLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		Init("debug", "console", "")
		Infof("initialized %s", "ok")
	})
}
