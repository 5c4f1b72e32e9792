// Copyright 2025 Fleetplan Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import (
	"testing"

	"github.com/LeeDigitalWorks/fleetplan/pkg/fleet"

	"github.com/stretchr/testify/require"
)

func testFleet(t *testing.T, nshards int, servers ...fleet.ServerConfig) *fleet.Fleet {
	t.Helper()

	f, err := fleet.FromConfig(&fleet.Config{NumShards: nshards, Servers: servers})
	require.NoError(t, err)
	return f
}

func meta(id, rack, az string) fleet.ServerConfig {
	return fleet.ServerConfig{Type: "metadata", UUID: id, Memory: 64, Rack: rack, AZ: az}
}

func stor(id, rack, az string) fleet.ServerConfig {
	return fleet.ServerConfig{Type: "storage", UUID: id, Memory: 64, Rack: rack, AZ: az}
}

func storMem(id, rack, az string, memGB int) fleet.ServerConfig {
	return fleet.ServerConfig{Type: "storage", UUID: id, Memory: memGB, Rack: rack, AZ: az}
}

// threeAZFleet is a balanced triple-AZ fleet: one rack per AZ, two metadata
// and one storage server per rack.
func threeAZFleet(t *testing.T, nshards int) *fleet.Fleet {
	t.Helper()

	return testFleet(t, nshards,
		meta("m1", "a1", "az1"), meta("m2", "a1", "az1"), stor("s1", "a1", "az1"),
		meta("m3", "b1", "az2"), meta("m4", "b1", "az2"), stor("s2", "b1", "az2"),
		meta("m5", "c1", "az3"), meta("m6", "c1", "az3"), stor("s3", "c1", "az3"),
	)
}
