// Copyright 2025 Fleetplan Authors
// SPDX-License-Identifier: Apache-2.0

package fleet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Shard count and per-server memory bounds accepted by the loader.
const (
	MinShards = 1
	MaxShards = 1024

	MinMemoryGB = 1
	MaxMemoryGB = 1024
)

// Sentinel rack and AZ names assigned to servers whose descriptors omit
// them. All such servers share the same sentinel, so a config with no
// topology information at all collapses into a single rack in a single AZ.
const (
	DefaultRackName = "default-rack"
	DefaultAZName   = "default-az"
)

// Config is the raw, unvalidated fleet description as it appears on disk.
type Config struct {
	NumShards int               `json:"nshards" yaml:"nshards"`
	Images    map[string]string `json:"images,omitempty" yaml:"images,omitempty"`
	Servers   []ServerConfig    `json:"servers" yaml:"servers"`
}

// ServerConfig describes one compute node in the raw config.
type ServerConfig struct {
	Type   string `json:"type" yaml:"type"`
	UUID   string `json:"uuid" yaml:"uuid"`
	Memory int    `json:"memory" yaml:"memory"` // usable memory in GiB
	Rack   string `json:"rack,omitempty" yaml:"rack,omitempty"`
	AZ     string `json:"az,omitempty" yaml:"az,omitempty"`
}

// Load reads a fleet config file and validates it into a Fleet. The codec
// is chosen by extension: .json parses as JSON, everything else as YAML.
func Load(path string) (*Fleet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fleet config: %w", err)
	}

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse fleet config: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse fleet config: %w", err)
		}
	}

	return FromConfig(&cfg)
}

// Parse validates an in-memory config document into a Fleet. YAML is a
// superset of JSON, so both encodings are accepted.
func Parse(data []byte) (*Fleet, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse fleet config: %w", err)
	}
	return FromConfig(&cfg)
}

// FromConfig validates a raw config into a Fleet. Validation is strictly
// ordered and stops at the first problem, so a failed load reports exactly
// one error: schema checks over the whole document first, then structural
// checks server by server, then derived-value computation. cfg is not
// mutated.
func FromConfig(cfg *Config) (*Fleet, error) {
	if err := checkSchema(cfg); err != nil {
		return nil, err
	}

	f := &Fleet{
		AZs:       make(map[string]*AZ),
		Racks:     make(map[string]*Rack),
		Servers:   make(map[string]*Server),
		NumShards: cfg.NumShards,
		Images:    make(map[string]string, len(cfg.Images)),
	}
	for role, image := range cfg.Images {
		f.Images[role] = image
	}

	for _, sc := range cfg.Servers {
		if err := f.addServer(sc); err != nil {
			return nil, err
		}
	}

	if err := f.finalize(); err != nil {
		return nil, err
	}
	return f, nil
}

// checkSchema validates field-level constraints across the raw document.
// Runs before any structural check so that schema errors always win.
func checkSchema(cfg *Config) error {
	if cfg.NumShards < MinShards || cfg.NumShards > MaxShards {
		return fmt.Errorf("nshards must be between %d and %d, got %d", MinShards, MaxShards, cfg.NumShards)
	}

	// Image override keys are checked in sorted order so the reported
	// error does not depend on map iteration order.
	roles := make([]string, 0, len(cfg.Images))
	for role := range cfg.Images {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	for _, role := range roles {
		if !IsServiceRole(role) {
			return fmt.Errorf("images: unknown service role %q", role)
		}
	}

	if len(cfg.Servers) == 0 {
		return fmt.Errorf("fleet config lists no servers")
	}

	for i, sc := range cfg.Servers {
		switch ServerType(sc.Type) {
		case ServerTypeMetadata, ServerTypeStorage:
		default:
			return fmt.Errorf("server %d: type must be %q or %q, got %q", i, ServerTypeMetadata, ServerTypeStorage, sc.Type)
		}
		if sc.UUID == "" {
			return fmt.Errorf("server %d: uuid must not be empty", i)
		}
		if sc.Memory < MinMemoryGB || sc.Memory > MaxMemoryGB {
			return fmt.Errorf("server %s: memory must be between %d and %d GiB, got %d", sc.UUID, MinMemoryGB, MaxMemoryGB, sc.Memory)
		}
	}
	return nil
}

// addServer registers one server, creating its rack and AZ records on first
// sight and enforcing fleet-wide uniqueness invariants.
func (f *Fleet) addServer(sc ServerConfig) error {
	if _, exists := f.Servers[sc.UUID]; exists {
		return fmt.Errorf("duplicate server uuid %q", sc.UUID)
	}

	rackName := sc.Rack
	if rackName == "" {
		rackName = DefaultRackName
	}
	azName := sc.AZ
	if azName == "" {
		azName = DefaultAZName
	}

	az, ok := f.AZs[azName]
	if !ok {
		az = &AZ{Name: azName}
		f.AZs[azName] = az
		f.AZNames = append(f.AZNames, azName)
	}

	rack, ok := f.Racks[rackName]
	if !ok {
		rack = &Rack{Name: rackName, AZ: azName}
		f.Racks[rackName] = rack
		az.RackNames = append(az.RackNames, rackName)
	} else if rack.AZ != azName {
		return fmt.Errorf("rack %q is in az %q, but server %q places it in az %q", rackName, rack.AZ, sc.UUID, azName)
	}

	srv := &Server{
		ID:       sc.UUID,
		Rack:     rackName,
		Type:     ServerType(sc.Type),
		MemoryGB: sc.Memory,
	}
	f.Servers[srv.ID] = srv
	f.ServerNames = append(f.ServerNames, srv.ID)

	switch srv.Type {
	case ServerTypeMetadata:
		rack.MetadataServers = append(rack.MetadataServers, srv.ID)
		az.MetadataCount++
		f.MetadataServers = append(f.MetadataServers, srv.ID)
	case ServerTypeStorage:
		rack.StorageServers = append(rack.StorageServers, srv.ID)
		az.StorageCount++
		f.StorageServers = append(f.StorageServers, srv.ID)
	}
	return nil
}

// finalize computes derived values once all servers are registered: per-AZ
// rack ordering, the global AZ-striped rack order, per-AZ minimum counts,
// and internal index consistency. Assumes schema and structural checks
// already passed.
func (f *Fleet) finalize() error {
	for _, az := range f.AZs {
		sort.Strings(az.RackNames)
	}
	f.RackNames = stripeRacks(f.AZNames, f.AZs)

	f.MinMetadataPerAZ = -1
	f.MinStoragePerAZ = -1
	for _, name := range f.AZNames {
		az := f.AZs[name]
		if f.MinMetadataPerAZ < 0 || az.MetadataCount < f.MinMetadataPerAZ {
			f.MinMetadataPerAZ = az.MetadataCount
		}
		if f.MinStoragePerAZ < 0 || az.StorageCount < f.MinStoragePerAZ {
			f.MinStoragePerAZ = az.StorageCount
		}
	}

	return f.checkConsistency()
}

// checkConsistency cross-checks the derived indexes against the record
// maps. These can only fire on a loader bug, never on bad input.
func (f *Fleet) checkConsistency() error {
	if len(f.RackNames) != len(f.Racks) {
		return fmt.Errorf("fleet inconsistency: %d racks indexed, %d striped", len(f.Racks), len(f.RackNames))
	}
	if len(f.ServerNames) != len(f.Servers) {
		return fmt.Errorf("fleet inconsistency: %d servers indexed, %d listed", len(f.Servers), len(f.ServerNames))
	}
	for _, rack := range f.Racks {
		if _, ok := f.AZs[rack.AZ]; !ok {
			return fmt.Errorf("fleet inconsistency: rack %q references unknown az %q", rack.Name, rack.AZ)
		}
	}
	for _, srv := range f.Servers {
		if _, ok := f.Racks[srv.Rack]; !ok {
			return fmt.Errorf("fleet inconsistency: server %q references unknown rack %q", srv.ID, srv.Rack)
		}
	}

	var metadataTotal, storageTotal int
	for _, az := range f.AZs {
		metadataTotal += az.MetadataCount
		storageTotal += az.StorageCount
	}
	if metadataTotal != len(f.MetadataServers) || storageTotal != len(f.StorageServers) {
		return fmt.Errorf("fleet inconsistency: az counts %d+%d do not match server lists %d+%d",
			metadataTotal, storageTotal, len(f.MetadataServers), len(f.StorageServers))
	}
	return nil
}

// stripeRacks interleaves the per-AZ sorted rack lists one rack per AZ,
// cycling AZs in discovery order and skipping AZs once exhausted.
func stripeRacks(azNames []string, azs map[string]*AZ) []string {
	var total int
	for _, name := range azNames {
		total += len(azs[name].RackNames)
	}

	striped := make([]string, 0, total)
	next := make(map[string]int, len(azNames))
	for len(striped) < total {
		for _, name := range azNames {
			az := azs[name]
			if next[name] < len(az.RackNames) {
				striped = append(striped, az.RackNames[next[name]])
				next[name]++
			}
		}
	}
	return striped
}
