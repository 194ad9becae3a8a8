// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package log

import "github.com/sirupsen/logrus"

// Setup configures logger's formatter and level from the given log type
// ("quiet", "basic", "fancy" or "json") and level name, falling back to
// BASIC/info on unrecognised input.
func Setup(logger *logrus.Logger, logType, level string) {
	switch LoggerTypeFromString(logType) {
	case QUIET:
		logger.Formatter = new(logrus.TextFormatter)

	case JSON:
		formatter := new(logrus.JSONFormatter)
		formatter.DisableTimestamp = false
		logger.Formatter = formatter

	default: // BASIC, FANCY
		formatter := new(TextFormatter)
		formatter.FullTimestamp = true
		logger.Formatter = formatter
	}

	if lvl, ok := Levels()[level]; ok {
		logger.Level = lvl
	} else {
		logger.Level = logrus.InfoLevel
	}
}
