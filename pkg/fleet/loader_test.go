// Copyright 2025 Fleetplan Authors
// SPDX-License-Identifier: Apache-2.0

package fleet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func metaServer(id, rack, az string) ServerConfig {
	return ServerConfig{Type: "metadata", UUID: id, Memory: 64, Rack: rack, AZ: az}
}

func storageServer(id, rack, az string) ServerConfig {
	return ServerConfig{Type: "storage", UUID: id, Memory: 64, Rack: rack, AZ: az}
}

// ============================================================================
// Schema Validation Tests
// ============================================================================

func TestFromConfig_Valid(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		NumShards: 2,
		Servers: []ServerConfig{
			metaServer("m1", "r1", "az1"),
			metaServer("m2", "r1", "az1"),
			storageServer("s1", "r1", "az1"),
		},
	}

	f, err := FromConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, 2, f.NumShards)
	assert.Equal(t, []string{"az1"}, f.AZNames)
	assert.Equal(t, []string{"r1"}, f.RackNames)
	assert.Equal(t, []string{"m1", "m2", "s1"}, f.ServerNames)
	assert.Equal(t, []string{"m1", "m2"}, f.MetadataServers)
	assert.Equal(t, []string{"s1"}, f.StorageServers)
	assert.Equal(t, 2, f.AZs["az1"].MetadataCount)
	assert.Equal(t, 1, f.AZs["az1"].StorageCount)
}

func TestFromConfig_NshardsOutOfRange(t *testing.T) {
	t.Parallel()

	for _, nshards := range []int{0, -1, 1025} {
		cfg := &Config{
			NumShards: nshards,
			Servers:   []ServerConfig{metaServer("m1", "r1", "az1")},
		}
		_, err := FromConfig(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nshards")
	}
}

func TestFromConfig_UnknownImageRole(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		NumShards: 1,
		Images:    map[string]string{"nosuchrole": "img:1"},
		Servers:   []ServerConfig{metaServer("m1", "r1", "az1")},
	}

	_, err := FromConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nosuchrole")
}

func TestFromConfig_NoServers(t *testing.T) {
	t.Parallel()

	_, err := FromConfig(&Config{NumShards: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no servers")
}

func TestFromConfig_BadServerType(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		NumShards: 1,
		Servers:   []ServerConfig{{Type: "compute", UUID: "m1", Memory: 64}},
	}

	_, err := FromConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type")
}

func TestFromConfig_EmptyUUID(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		NumShards: 1,
		Servers:   []ServerConfig{{Type: "metadata", UUID: "", Memory: 64}},
	}

	_, err := FromConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uuid")
}

func TestFromConfig_MemoryOutOfRange(t *testing.T) {
	t.Parallel()

	for _, mem := range []int{0, -5, 2048} {
		cfg := &Config{
			NumShards: 1,
			Servers:   []ServerConfig{{Type: "metadata", UUID: "m1", Memory: mem}},
		}
		_, err := FromConfig(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "memory")
	}
}

// ============================================================================
// Structural Validation Tests
// ============================================================================

func TestFromConfig_DuplicateUUID(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		NumShards: 1,
		Servers: []ServerConfig{
			metaServer("m1", "r1", "az1"),
			storageServer("m1", "r1", "az1"),
		},
	}

	_, err := FromConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate server uuid "m1"`)
}

func TestFromConfig_RackReusedAcrossAZs(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		NumShards: 1,
		Servers: []ServerConfig{
			metaServer("m1", "r1", "az1"),
			metaServer("m2", "r1", "az2"),
		},
	}

	_, err := FromConfig(cfg)
	require.Error(t, err)
	// The error must name both the rack's original AZ and the conflicting one.
	assert.Contains(t, err.Error(), "az1")
	assert.Contains(t, err.Error(), "az2")
	assert.Contains(t, err.Error(), `rack "r1"`)
}

func TestFromConfig_SchemaErrorBeatsStructuralError(t *testing.T) {
	t.Parallel()

	// Bad memory on the last server and a duplicate uuid earlier in the
	// list: the schema pass runs over the whole document first, so the
	// memory error is the one reported.
	cfg := &Config{
		NumShards: 1,
		Servers: []ServerConfig{
			metaServer("m1", "r1", "az1"),
			metaServer("m1", "r1", "az1"),
			{Type: "metadata", UUID: "m2", Memory: 0, Rack: "r1", AZ: "az1"},
		},
	}

	_, err := FromConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memory")
}

func TestFromConfig_FirstStructuralErrorWins(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		NumShards: 1,
		Servers: []ServerConfig{
			metaServer("m1", "r1", "az1"),
			metaServer("m1", "r2", "az1"), // duplicate uuid, seen first
			metaServer("m2", "r1", "az2"), // rack conflict, never reached
		},
	}

	_, err := FromConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate server uuid")
}

// ============================================================================
// Defaults and Derived Values
// ============================================================================

func TestFromConfig_DefaultRackAndAZ(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		NumShards: 1,
		Servers: []ServerConfig{
			{Type: "metadata", UUID: "m1", Memory: 64},
			{Type: "storage", UUID: "s1", Memory: 64},
		},
	}

	f, err := FromConfig(cfg)
	require.NoError(t, err)

	// Servers without topology info collapse into one sentinel rack in one
	// sentinel AZ.
	assert.Equal(t, []string{DefaultAZName}, f.AZNames)
	assert.Equal(t, []string{DefaultRackName}, f.RackNames)
	assert.Equal(t, DefaultAZName, f.Racks[DefaultRackName].AZ)
}

func TestFromConfig_RackStriping(t *testing.T) {
	t.Parallel()

	// Racks arrive out of lexical order; az2 has one extra rack. The global
	// order must sort racks per AZ, then interleave one rack per AZ cycling
	// AZs in discovery order, skipping az1 and az3 once exhausted.
	cfg := &Config{
		NumShards: 1,
		Servers: []ServerConfig{
			metaServer("m1", "a1-r2", "az1"),
			metaServer("m2", "a2-r1", "az2"),
			metaServer("m3", "a3-r1", "az3"),
			metaServer("m4", "a1-r1", "az1"),
			metaServer("m5", "a2-r3", "az2"),
			metaServer("m6", "a2-r2", "az2"),
			metaServer("m7", "a3-r2", "az3"),
		},
	}

	f, err := FromConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"az1", "az2", "az3"}, f.AZNames)
	assert.Equal(t,
		[]string{"a1-r1", "a2-r1", "a3-r1", "a1-r2", "a2-r2", "a3-r2", "a2-r3"},
		f.RackNames)
}

func TestFromConfig_MinPerAZCounts(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		NumShards: 1,
		Servers: []ServerConfig{
			metaServer("m1", "r1", "az1"),
			metaServer("m2", "r1", "az1"),
			storageServer("s1", "r1", "az1"),
			metaServer("m3", "r2", "az2"),
			storageServer("s2", "r2", "az2"),
			storageServer("s3", "r2", "az2"),
		},
	}

	f, err := FromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, f.MinMetadataPerAZ)
	assert.Equal(t, 1, f.MinStoragePerAZ)
}

func TestFromConfig_KeepsImageOverrides(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		NumShards: 1,
		Images:    map[string]string{RolePostgres: "postgres:17"},
		Servers:   []ServerConfig{metaServer("m1", "r1", "az1")},
	}

	f, err := FromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{RolePostgres: "postgres:17"}, f.Images)
}

// ============================================================================
// File and Bytes Loading
// ============================================================================

func TestLoad_YAMLFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fleet.yaml")
	data := `nshards: 4
servers:
  - type: metadata
    uuid: m1
    memory: 64
    rack: r1
    az: az1
  - type: storage
    uuid: s1
    memory: 128
    rack: r1
    az: az1
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, f.NumShards)
	assert.Equal(t, 128, f.Servers["s1"].MemoryGB)
}

func TestLoad_JSONFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fleet.json")
	data := `{
  "nshards": 2,
  "servers": [
    {"type": "metadata", "uuid": "m1", "memory": 64, "rack": "r1", "az": "az1"},
    {"type": "storage", "uuid": "s1", "memory": 64, "rack": "r1", "az": "az1"}
  ]
}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, f.NumShards)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read fleet config")
}

func TestParse_AcceptsJSON(t *testing.T) {
	t.Parallel()

	// YAML is a superset of JSON, so Parse takes either encoding.
	f, err := Parse([]byte(`{"nshards": 1, "servers": [{"type": "metadata", "uuid": "m1", "memory": 64}]}`))
	require.NoError(t, err)
	assert.Equal(t, 1, f.NumShards)
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("nshards: [not a number"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse fleet config")
}
