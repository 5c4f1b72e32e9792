// Copyright 2025 Fleetplan Authors
// SPDX-License-Identifier: Apache-2.0

package fleet

import "sort"

// Service roles the planner knows how to place. The set is closed:
// placement policy parameters live in the layout package, keyed by these
// names, and config image overrides are validated against this list.
const (
	RoleManager    = "manager"    // cluster coordination quorum
	RoleBackup     = "backup"     // backup coordinator, defined but not deployed by default
	RoleGateway    = "gateway"    // object API front door
	RoleConsole    = "console"    // operator UI
	RoleMetadata   = "metadata"   // sharded metadata service
	RolePostgres   = "postgres"   // per-shard metadata database
	RoleFileserver = "fileserver" // one per storage node
	RoleTaskworker = "taskworker" // background workers, scaled by node memory
)

// defaultImages maps every known role to the image deployed when neither
// the fleet config nor the caller overrides it.
var defaultImages = map[string]string{
	RoleManager:    "fleet/manager:latest",
	RoleBackup:     "fleet/backup:latest",
	RoleGateway:    "fleet/gateway:latest",
	RoleConsole:    "fleet/console:latest",
	RoleMetadata:   "fleet/metadata:latest",
	RolePostgres:   "postgres:16",
	RoleFileserver: "fleet/fileserver:latest",
	RoleTaskworker: "fleet/taskworker:latest",
}

// ServiceRoles returns all known role names, sorted lexically.
func ServiceRoles() []string {
	roles := make([]string, 0, len(defaultImages))
	for role := range defaultImages {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

// IsServiceRole reports whether name is a known service role.
func IsServiceRole(name string) bool {
	_, ok := defaultImages[name]
	return ok
}

// DefaultImages returns a fresh copy of the default role-to-image map.
func DefaultImages() map[string]string {
	images := make(map[string]string, len(defaultImages))
	for role, image := range defaultImages {
		images[role] = image
	}
	return images
}
