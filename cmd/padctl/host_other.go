//go:build !linux

package main

import (
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/padctl/padctl/ble"
)

func newHost(_ *logrus.Logger) (ble.Host, error) {
	return nil, fmt.Errorf("no BLE host support on %s", runtime.GOOS)
}
