package logger

import (
	"testing"

	"github.com/gookit/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitFallsBackToInfo(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	Init("")
	_, ok := Log.(*slog.Logger)
	require.True(t, ok)

	Init(" DEBUG ")
	assert.NotNil(t, Log)
}

func TestWithServiceNameKeepsExplicitValue(t *testing.T) {
	f := withServiceName(nil)
	assert.Equal(t, ServiceName, f["service_name"])

	f = withServiceName(Fields{"service_name": "worker", "k": 1})
	assert.Equal(t, "worker", f["service_name"])
	assert.Equal(t, 1, f["k"])
}
