// Copyright 2025 Fleetplan Authors
// SPDX-License-Identifier: Apache-2.0

package fleet

// ServerType identifies the hardware class of a compute node
type ServerType string

const (
	ServerTypeMetadata ServerType = "metadata" // metadata plane and front-door services
	ServerTypeStorage  ServerType = "storage"  // file servers and capacity-scaled workers
)

// AZ is an availability zone, the top-level fault-isolation domain.
// Rack name lists are sorted lexically once loading completes.
type AZ struct {
	Name          string
	RackNames     []string
	MetadataCount int
	StorageCount  int
}

// Rack groups servers within an AZ. Rack names are unique across the whole
// fleet, not just within their AZ: the same rack name appearing under two
// AZs is a load error.
type Rack struct {
	Name            string
	AZ              string
	MetadataServers []string // server ids in discovery order
	StorageServers  []string // server ids in discovery order
}

// Server is a single compute node
type Server struct {
	ID       string
	Rack     string
	Type     ServerType
	MemoryGB int // usable memory in GiB
}

// Fleet is the validated description of the hardware the planner places
// services onto. It is built once by Load/Parse/FromConfig and treated as
// immutable afterwards; the layout engine only ever reads it.
type Fleet struct {
	AZs     map[string]*AZ
	Racks   map[string]*Rack
	Servers map[string]*Server

	// AZNames preserves AZ discovery order. RackNames is the global
	// AZ-striped rack order: per-AZ racks sorted lexically, then
	// interleaved one rack per AZ cycling in AZNames order, so that
	// walking RackNames also walks AZs. ServerNames preserves server
	// discovery order.
	AZNames     []string
	RackNames   []string
	ServerNames []string

	MetadataServers []string // ids of metadata-class servers, discovery order
	StorageServers  []string // ids of storage-class servers, discovery order

	NumShards int
	Images    map[string]string // per-role image overrides from the config

	// Minimum per-AZ server counts, used by the layout engine to detect
	// shard-to-capacity mismatches.
	MinMetadataPerAZ int
	MinStoragePerAZ  int
}

// ServerAZ resolves the AZ a server lives in via its rack.
func (f *Fleet) ServerAZ(id string) (string, bool) {
	srv, ok := f.Servers[id]
	if !ok {
		return "", false
	}
	rack, ok := f.Racks[srv.Rack]
	if !ok {
		return "", false
	}
	return rack.AZ, true
}

// ServersInAZ returns the ids of all servers of the given type in the given
// AZ, in fleet discovery order.
func (f *Fleet) ServersInAZ(az string, t ServerType) []string {
	ids := f.MetadataServers
	if t == ServerTypeStorage {
		ids = f.StorageServers
	}

	var result []string
	for _, id := range ids {
		if serverAZ, ok := f.ServerAZ(id); ok && serverAZ == az {
			result = append(result, id)
		}
	}
	return result
}

// TotalMemoryGB sums usable memory across all servers of the given type.
func (f *Fleet) TotalMemoryGB(t ServerType) int {
	var total int
	for _, srv := range f.Servers {
		if srv.Type == t {
			total += srv.MemoryGB
		}
	}
	return total
}
