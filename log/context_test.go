// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package log

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestWithLoggerAndFromContextRoundTrip(t *testing.T) {
	logger := logrus.New()
	ctx := WithLogger(context.Background(), logger)

	if got := FromContext(ctx); got != logger {
		t.Errorf("FromContext returned %p, want %p", got, logger)
	}
	if got := G(ctx); got != logger {
		t.Errorf("G returned %p, want %p", got, logger)
	}
}

func TestFromContextFallsBackToGlobalLogger(t *testing.T) {
	if got := FromContext(context.Background()); got != L {
		t.Errorf("FromContext on an empty context = %p, want global logger %p", got, L)
	}
}
