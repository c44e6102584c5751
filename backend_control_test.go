package lgr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendStart_IsIdempotent(t *testing.T) {
	require.NoError(t, BackendStart(BackendConfig{}))
	w1 := currentWorker()
	require.NoError(t, BackendStart(BackendConfig{BatchSize: 512}))
	w2 := currentWorker()

	assert.Same(t, w1, w2)
	BackendStop()
}

func TestBackendStop_IsIdempotent(t *testing.T) {
	require.NoError(t, BackendStart(BackendConfig{}))
	BackendStop()
	assert.NotPanics(t, BackendStop)
	assert.Nil(t, currentWorker())
}
