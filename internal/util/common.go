package util

import (
	"github.com/krobus00/price-relay/internal/config"
	"github.com/sirupsen/logrus"
)

// ContinueOrFatal exits the process on startup errors.
func ContinueOrFatal(err error) {
	if err != nil {
		logrus.WithField("service", config.ServiceName).Fatal(err)
	}
}
