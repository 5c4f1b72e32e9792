// Copyright 2025 Fleetplan Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import (
	"sort"
	"strconv"
	"strings"

	"github.com/LeeDigitalWorks/fleetplan/pkg/fleet"

	"github.com/rs/zerolog/log"
)

// Allocation classes shared between roles. Per-shard roles use their own
// role name as class instead, so their cursors advance in lockstep and the
// K-th replica of every per-shard role for a given shard lands on the same
// server.
const (
	classSmall     = "small"
	classFrontdoor = "frontdoor"
)

const (
	// ReplicaFactor is the number of instances placed per shard for
	// per-shard roles.
	ReplicaFactor = 3

	// maxRatio is the denominator for front-door instance counts: a role
	// with ratio R gets ceil(R × metadataServers / maxRatio) instances,
	// at least frontDoorMinCount, at most the metadata server count.
	maxRatio          = 16
	frontDoorMinCount = 2

	// Capacity-derived placement gives every storage server
	// floor(memoryGB × share / footprint) instances, at least the floor
	// count, so even the smallest node runs one.
	capacityMinPerNode  = 1
	capacityMemoryShare = 0.5
	capacityFootprintGB = 16
)

type policyKind int

const (
	policyFixed policyKind = iota
	policyFrontDoor
	policyPerShard
	policyPerStorageNode
	policyCapacity
)

// rolePolicy holds the placement parameters for one service role. The
// policy set is closed and mirrors fleet.ServiceRoles.
type rolePolicy struct {
	kind  policyKind
	count int // policyFixed: instances to place
	ratio int // policyFrontDoor: numerator over maxRatio
}

var rolePolicies = map[string]rolePolicy{
	fleet.RoleManager:    {kind: policyFixed, count: 3},
	fleet.RoleBackup:     {kind: policyFixed, count: 0},
	fleet.RoleGateway:    {kind: policyFrontDoor, ratio: 4},
	fleet.RoleConsole:    {kind: policyFrontDoor, ratio: 1},
	fleet.RoleMetadata:   {kind: policyPerShard},
	fleet.RolePostgres:   {kind: policyPerShard},
	fleet.RoleFileserver: {kind: policyPerStorageNode},
	fleet.RoleTaskworker: {kind: policyCapacity},
}

type engine struct {
	fleet   *fleet.Fleet
	layout  *Layout
	striper *striper
}

// Generate plans service placement for the fleet. defaults supplies the
// image for every role that should be deployed; explicit overrides from
// the fleet config take precedence over it. Generate itself never fails:
// unrecoverable conditions are recorded on the returned Layout, which then
// refuses to serialize.
func Generate(f *fleet.Fleet, defaults map[string]string) *Layout {
	l := newLayout(f)

	// Structural preconditions, checked in order, first match wins.
	if len(f.MetadataServers) == 0 || len(f.StorageServers) == 0 {
		l.fatalf("fleet needs at least one metadata and one storage server, got %d metadata and %d storage",
			len(f.MetadataServers), len(f.StorageServers))
		return l
	}
	if n := len(f.AZNames); n != 1 && n != 3 {
		l.fatalf("unsupported topology: %d azs (placement supports single-az and triple-az fleets)", n)
		return l
	}

	e := &engine{fleet: f, layout: l, striper: newStriper(f)}
	e.checkShape()

	images := resolveImages(f, defaults)
	for _, role := range sortedRoles(images) {
		policy, ok := rolePolicies[role]
		if !ok {
			l.fatalf("unknown service role %q in image map", role)
			return l
		}

		placed := e.place(role, images[role], policy)
		log.Debug().
			Str("role", role).
			Str("image", images[role]).
			Int("instances", placed).
			Msg("placed service role")
	}
	return l
}

// resolveImages overlays the fleet's explicit per-role images onto the
// caller-supplied defaults.
func resolveImages(f *fleet.Fleet, defaults map[string]string) map[string]string {
	images := make(map[string]string, len(defaults)+len(f.Images))
	for role, image := range defaults {
		images[role] = image
	}
	for role, image := range f.Images {
		images[role] = image
	}
	return images
}

func sortedRoles(images map[string]string) []string {
	roles := make([]string, 0, len(images))
	for role := range images {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

func (e *engine) place(role, image string, p rolePolicy) int {
	switch p.kind {
	case policyFixed:
		return e.placeFixed(role, image, p.count)
	case policyFrontDoor:
		return e.placeFrontDoor(role, image, p.ratio)
	case policyPerShard:
		return e.placePerShard(role, image)
	case policyPerStorageNode:
		return e.placePerStorageNode(role, image)
	case policyCapacity:
		return e.placeCapacity(role, image)
	}
	return 0
}

// placeFixed places a hardcoded number of instances under the shared
// "small" class. A zero count leaves the role defined but undeployed.
func (e *engine) placeFixed(role, image string, count int) int {
	for i := 0; i < count; i++ {
		e.layout.record(e.striper.next(classSmall), role, image, 0)
	}
	return count
}

// placeFrontDoor scales the instance count with fleet size. All front-door
// roles share one allocation class so their per-server counts stay
// balanced against each other.
func (e *engine) placeFrontDoor(role, image string, ratio int) int {
	m := len(e.fleet.MetadataServers)
	count := (ratio*m + maxRatio - 1) / maxRatio
	if count < frontDoorMinCount {
		count = frontDoorMinCount
	}
	if count > m {
		count = m
	}

	for i := 0; i < count; i++ {
		e.layout.record(e.striper.next(classFrontdoor), role, image, 0)
	}
	return count
}

// placePerShard places ReplicaFactor instances per shard, tagged with the
// shard index. The allocation class is the role's own name: per-shard
// roles progress identical private cursors, which colocates the K-th
// replica of every per-shard role for a given shard on one server.
func (e *engine) placePerShard(role, image string) int {
	for shard := 1; shard <= e.fleet.NumShards; shard++ {
		for r := 0; r < ReplicaFactor; r++ {
			e.layout.record(e.striper.next(role), role, image, shard)
		}
	}
	return e.fleet.NumShards * ReplicaFactor
}

// placePerStorageNode puts exactly one instance on every storage server.
// No cursor is involved; the server itself is the placement target.
func (e *engine) placePerStorageNode(role, image string) int {
	for _, id := range e.fleet.StorageServers {
		e.layout.record(id, role, image, 0)
	}
	return len(e.fleet.StorageServers)
}

// placeCapacity derives a per-node instance count from the node's usable
// memory and places that many instances directly on it.
func (e *engine) placeCapacity(role, image string) int {
	var placed int
	for _, id := range e.fleet.StorageServers {
		srv := e.fleet.Servers[id]
		count := int(float64(srv.MemoryGB) * capacityMemoryShare / capacityFootprintGB)
		if count < capacityMinPerNode {
			count = capacityMinPerNode
		}
		for i := 0; i < count; i++ {
			e.layout.record(id, role, image, 0)
		}
		placed += count
	}
	return placed
}

// checkShape records the fleet-shape warnings. All checks are independent;
// none stop generation.
func (e *engine) checkShape() {
	f := e.fleet
	l := e.layout

	if unevenByAZ(f, fleet.ServerTypeMetadata) {
		l.warnf("metadata servers are spread unevenly across azs (%s); az failures will have asymmetric impact",
			countsByAZ(f, fleet.ServerTypeMetadata))
	}
	if unevenByAZ(f, fleet.ServerTypeStorage) {
		l.warnf("storage servers are spread unevenly across azs (%s); az failures will have asymmetric impact",
			countsByAZ(f, fleet.ServerTypeStorage))
	}
	if f.NumShards > f.MinMetadataPerAZ {
		l.warnf("nshards %d exceeds the minimum metadata servers per az (%d); multiple shard primaries will share a server",
			f.NumShards, f.MinMetadataPerAZ)
	}
	if f.NumShards*ReplicaFactor > len(f.AZNames)*f.MinMetadataPerAZ {
		l.warnf("nshards %d at replica factor %d exceeds minimum metadata capacity (%d az x %d servers); shard replicas will share servers",
			f.NumShards, ReplicaFactor, len(f.AZNames), f.MinMetadataPerAZ)
	}
	if len(f.Racks) < ReplicaFactor {
		l.warnf("only %d racks for replica factor %d; one rack failure can take down multiple replicas of a shard",
			len(f.Racks), ReplicaFactor)
	}
}

func unevenByAZ(f *fleet.Fleet, t fleet.ServerType) bool {
	first := -1
	for _, name := range f.AZNames {
		count := f.AZs[name].MetadataCount
		if t == fleet.ServerTypeStorage {
			count = f.AZs[name].StorageCount
		}
		if first < 0 {
			first = count
		} else if count != first {
			return true
		}
	}
	return false
}

func countsByAZ(f *fleet.Fleet, t fleet.ServerType) string {
	var b strings.Builder
	for i, name := range f.AZNames {
		if i > 0 {
			b.WriteString(", ")
		}
		count := f.AZs[name].MetadataCount
		if t == fleet.ServerTypeStorage {
			count = f.AZs[name].StorageCount
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strconv.Itoa(count))
	}
	return b.String()
}
