package instance

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetIDPrefersWorkerID(t *testing.T) {
	t.Setenv("LISTINGZ_WORKER_ID", "cron-7")
	require.Equal(t, "cron-7", GetID())
}

func TestGetIDFallsBack(t *testing.T) {
	t.Setenv("LISTINGZ_WORKER_ID", "")
	t.Setenv("POD_NAME", "")
	require.NotEmpty(t, GetID())
}

func TestGetIDUsesPodName(t *testing.T) {
	t.Setenv("LISTINGZ_WORKER_ID", " ")
	t.Setenv("POD_NAME", "cron-worker-abc12")
	require.Equal(t, "cron-worker-abc12", GetID())
}
