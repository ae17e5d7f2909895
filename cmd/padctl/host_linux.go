//go:build linux

package main

import (
	"github.com/sirupsen/logrus"

	"github.com/padctl/padctl/ble"
	"github.com/padctl/padctl/ble/goble"
)

func newHost(logger *logrus.Logger) (ble.Host, error) {
	return goble.NewHost(logger), nil
}
