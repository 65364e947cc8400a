// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package discovery

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrapSynthesizesInitiatorNameOnce(t *testing.T) {
	ctx := context.Background()
	c, _, _, _ := newTestCoordinator(t)

	require.NoError(t, Bootstrap(ctx, c, false))
	init, _, err := c.Props(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(init.Name, "iqn.1986-03.com.sun:01:"))
	assert.Equal(t, init.Name, init.ChapUser)
	assert.NotEmpty(t, init.ChapSecret)
	first := init.Name
	firstSecret := init.ChapSecret

	// A second Bootstrap call, even with restart=true, must not
	// clobber the identity or CHAP credentials it already set.
	require.NoError(t, Bootstrap(ctx, c, true))
	init, _, err = c.Props(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, init.Name)
	assert.Equal(t, firstSecret, init.ChapSecret)
}
