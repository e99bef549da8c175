package stickerkit

import (
	logxi "github.com/mgutz/logxi/v1"
)

var logger = logxi.New("stickerkit")

// SetLogger replaces the package logger, e.g. with one at debug level.
func SetLogger(l logxi.Logger) {
	if l != nil {
		logger = l
	}
}
