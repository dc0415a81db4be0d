package tracking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sushi-system/internal/common/logger"
	"sushi-system/internal/config"
)

func TestDisabledSinksConnectNothing(t *testing.T) {
	cfg := config.Default()
	c, err := Connect(context.Background(), &cfg, logger.Nop())
	require.NoError(t, err)
	assert.Empty(t, c.Observers)
	assert.Nil(t, c.Tracker)
	assert.NotPanics(t, c.Close)

	var nilCollab *Collaborators
	assert.NotPanics(t, nilCollab.Close)
}
