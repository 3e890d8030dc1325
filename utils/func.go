package utils

import (
	"os"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"
)

// GoWithRecover runs handler in a goroutine. A panic is logged and, when
// recoverHandler is set, passed to it on a fresh goroutine.
func GoWithRecover(handler func(), recoverHandler func(r interface{})) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logrus.Errorf("goroutine panic: %v\n%s", r, debug.Stack())
				if recoverHandler != nil {
					go func() {
						defer func() {
							if p := recover(); p != nil {
								logrus.Errorf("recover goroutine panic: %v\n%s", p, debug.Stack())
							}
						}()
						recoverHandler(r)
					}()
				}
			}
		}()
		handler()
	}()
}

var (
	hostnameOnce sync.Once
	_hostname    string
)

func GetHostname() string {
	hostnameOnce.Do(func() {
		if h, err := os.Hostname(); err == nil {
			_hostname = h
		}
	})
	return _hostname
}
