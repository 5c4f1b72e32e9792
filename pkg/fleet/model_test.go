// Copyright 2025 Fleetplan Authors
// SPDX-License-Identifier: Apache-2.0

package fleet

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFleet_ServerAZ(t *testing.T) {
	t.Parallel()

	f, err := FromConfig(&Config{
		NumShards: 1,
		Servers: []ServerConfig{
			metaServer("m1", "r1", "az1"),
			storageServer("s1", "r2", "az2"),
		},
	})
	require.NoError(t, err)

	az, ok := f.ServerAZ("m1")
	require.True(t, ok)
	assert.Equal(t, "az1", az)

	az, ok = f.ServerAZ("s1")
	require.True(t, ok)
	assert.Equal(t, "az2", az)

	_, ok = f.ServerAZ("nope")
	assert.False(t, ok)
}

func TestFleet_ServersInAZ(t *testing.T) {
	t.Parallel()

	f, err := FromConfig(&Config{
		NumShards: 1,
		Servers: []ServerConfig{
			metaServer("m1", "r1", "az1"),
			metaServer("m2", "r2", "az2"),
			metaServer("m3", "r1", "az1"),
			storageServer("s1", "r1", "az1"),
		},
	})
	require.NoError(t, err)

	// Discovery order is preserved within the AZ.
	assert.Equal(t, []string{"m1", "m3"}, f.ServersInAZ("az1", ServerTypeMetadata))
	assert.Equal(t, []string{"m2"}, f.ServersInAZ("az2", ServerTypeMetadata))
	assert.Equal(t, []string{"s1"}, f.ServersInAZ("az1", ServerTypeStorage))
	assert.Empty(t, f.ServersInAZ("az2", ServerTypeStorage))
}

func TestFleet_TotalMemoryGB(t *testing.T) {
	t.Parallel()

	f, err := FromConfig(&Config{
		NumShards: 1,
		Servers: []ServerConfig{
			{Type: "metadata", UUID: "m1", Memory: 32},
			{Type: "metadata", UUID: "m2", Memory: 64},
			{Type: "storage", UUID: "s1", Memory: 256},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 96, f.TotalMemoryGB(ServerTypeMetadata))
	assert.Equal(t, 256, f.TotalMemoryGB(ServerTypeStorage))
}

func TestServiceRoles_SortedAndClosed(t *testing.T) {
	t.Parallel()

	roles := ServiceRoles()
	assert.True(t, sort.StringsAreSorted(roles))
	assert.Len(t, roles, 8)

	for _, role := range roles {
		assert.True(t, IsServiceRole(role))
	}
	assert.False(t, IsServiceRole("nosuchrole"))
}

func TestDefaultImages_ReturnsCopy(t *testing.T) {
	t.Parallel()

	images := DefaultImages()
	images[RoleManager] = "mutated"

	fresh := DefaultImages()
	assert.NotEqual(t, "mutated", fresh[RoleManager])
}
