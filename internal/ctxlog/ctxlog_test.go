package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))
}

func TestWithAddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := With(WithLogger(context.Background(), logger), "node", "GibbsUn@1234")

	FromContext(ctx).Info("hello")
	assert.Contains(t, buf.String(), "node=GibbsUn@1234")
	assert.Contains(t, buf.String(), "msg=hello")
}
