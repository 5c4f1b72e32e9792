// Copyright 2025 Fleetplan Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import (
	"encoding/json"
	"fmt"

	"github.com/LeeDigitalWorks/fleetplan/pkg/fleet"
)

// InstanceGroup is one bucket of identical service instances: the same
// image and the same shard (0 for unsharded roles), repeated Count times.
// Identical instances collapse into a single group instead of appearing
// once per instance.
type InstanceGroup struct {
	Image string `json:"image"`
	Shard int    `json:"shard,omitempty"`
	Count int    `json:"count"`
}

// ServiceConfig is the multiset of instance groups planned for one service
// role within some scope: a single server, one AZ, or the whole region.
type ServiceConfig struct {
	Groups []*InstanceGroup
}

// add merges one instance into the group with identical properties, or
// appends a new group. Groups keep their first-placement order.
func (sc *ServiceConfig) add(image string, shard int) {
	for _, g := range sc.Groups {
		if g.Image == image && g.Shard == shard {
			g.Count++
			return
		}
	}
	sc.Groups = append(sc.Groups, &InstanceGroup{Image: image, Shard: shard, Count: 1})
}

// Total returns the number of instances across all groups.
func (sc *ServiceConfig) Total() int {
	var n int
	for _, g := range sc.Groups {
		n += g.Count
	}
	return n
}

// TotalForShard returns the number of instances tagged with the given
// shard index.
func (sc *ServiceConfig) TotalForShard(shard int) int {
	var n int
	for _, g := range sc.Groups {
		if g.Shard == shard {
			n += g.Count
		}
	}
	return n
}

// sharded reports whether any group carries a shard tag.
func (sc *ServiceConfig) sharded() bool {
	for _, g := range sc.Groups {
		if g.Shard != 0 {
			return true
		}
	}
	return false
}

// Layout accumulates every placement decision of one generation run into
// three aggregate views, plus the run's fatal errors and warnings. A
// Layout is built by Generate and read-only afterwards; a layout carrying
// fatal errors refuses to serialize.
type Layout struct {
	fleet *fleet.Fleet

	perServer  map[string]map[string]*ServiceConfig // server id → role
	perAZ      map[string]map[string]*ServiceConfig // role → az
	perService map[string]*ServiceConfig            // role, region-wide

	errors   []string
	warnings []string
}

func newLayout(f *fleet.Fleet) *Layout {
	return &Layout{
		fleet:      f,
		perServer:  make(map[string]map[string]*ServiceConfig),
		perAZ:      make(map[string]map[string]*ServiceConfig),
		perService: make(map[string]*ServiceConfig),
	}
}

// record books one instance of role onto the given server in all three
// views. The server's AZ is derived through its rack.
func (l *Layout) record(serverID, role, image string, shard int) {
	az, ok := l.fleet.ServerAZ(serverID)
	if !ok {
		l.fatalf("place %s: server %q is not part of the fleet", role, serverID)
		return
	}

	services, ok := l.perServer[serverID]
	if !ok {
		services = make(map[string]*ServiceConfig)
		l.perServer[serverID] = services
	}
	serverSC, ok := services[role]
	if !ok {
		serverSC = &ServiceConfig{}
		services[role] = serverSC
	}
	serverSC.add(image, shard)

	azs, ok := l.perAZ[role]
	if !ok {
		azs = make(map[string]*ServiceConfig)
		l.perAZ[role] = azs
	}
	azSC, ok := azs[az]
	if !ok {
		azSC = &ServiceConfig{}
		azs[az] = azSC
	}
	azSC.add(image, shard)

	regionSC, ok := l.perService[role]
	if !ok {
		regionSC = &ServiceConfig{}
		l.perService[role] = regionSC
	}
	regionSC.add(image, shard)
}

func (l *Layout) fatalf(format string, args ...any) {
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
}

func (l *Layout) warnf(format string, args ...any) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

// Errors returns the fatal errors recorded during generation, in order.
func (l *Layout) Errors() []string {
	return append([]string(nil), l.errors...)
}

// Warnings returns the non-fatal diagnostics recorded during generation,
// in order.
func (l *Layout) Warnings() []string {
	return append([]string(nil), l.warnings...)
}

// NumErrors returns the number of fatal errors.
func (l *Layout) NumErrors() int { return len(l.errors) }

// NumWarnings returns the number of warnings.
func (l *Layout) NumWarnings() int { return len(l.warnings) }

// ServerServices returns the planned instance groups for one server, keyed
// by role. The result is nil for a server with no placements.
func (l *Layout) ServerServices(serverID string) map[string]*ServiceConfig {
	return l.perServer[serverID]
}

// ServiceByAZ returns the per-AZ instance groups for one role.
func (l *Layout) ServiceByAZ(role string) map[string]*ServiceConfig {
	return l.perAZ[role]
}

// Service returns the region-wide instance groups for one role.
func (l *Layout) Service(role string) *ServiceConfig {
	return l.perService[role]
}

type serverEntry struct {
	Server   string                      `json:"server"`
	Rack     string                      `json:"rack"`
	Type     fleet.ServerType            `json:"type"`
	Services map[string][]*InstanceGroup `json:"services"`
}

type azDocument struct {
	AZ      string        `json:"az"`
	Servers []serverEntry `json:"servers"`
}

// Serialize renders the placement for one AZ as an indented JSON document:
// every server in the AZ, metadata-class servers before storage-class, each
// with its planned instance groups per role. Output is byte-identical
// across runs for identical input. Serialization is refused while any
// fatal error is recorded.
func (l *Layout) Serialize(az string) ([]byte, error) {
	if n := len(l.errors); n > 0 {
		return nil, fmt.Errorf("layout has %d fatal errors, refusing to serialize", n)
	}
	if _, ok := l.fleet.AZs[az]; !ok {
		return nil, fmt.Errorf("unknown az %q", az)
	}

	doc := azDocument{AZ: az, Servers: []serverEntry{}}
	for _, t := range []fleet.ServerType{fleet.ServerTypeMetadata, fleet.ServerTypeStorage} {
		for _, id := range l.fleet.ServersInAZ(az, t) {
			entry := serverEntry{
				Server:   id,
				Rack:     l.fleet.Servers[id].Rack,
				Type:     t,
				Services: make(map[string][]*InstanceGroup),
			}
			for role, sc := range l.perServer[id] {
				entry.Services[role] = sc.Groups
			}
			doc.Servers = append(doc.Servers, entry)
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal az layout: %w", err)
	}
	return data, nil
}
