// Copyright 2025 Fleetplan Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import (
	"github.com/LeeDigitalWorks/fleetplan/pkg/fleet"
)

// striper hands out metadata-class servers for placement, spreading
// consecutive picks across racks and AZs before any server repeats.
//
// The server list is precomputed once per generation run as a stripe of
// stripes: the fleet's rack order is already AZ-striped, and the racks'
// metadata-server lists are interleaved by position (the first server of
// every rack, then the second of every rack, and so on, skipping racks
// that have run out). Walking the list front to back therefore cycles
// AZs fastest, then racks, then individual servers.
type striper struct {
	servers []string
	cursors map[string]int // independent cursor per allocation class
}

// newStriper precomputes the striped server list for a fleet. The fleet
// must have at least one metadata-class server.
func newStriper(f *fleet.Fleet) *striper {
	lists := make([][]string, 0, len(f.RackNames))
	var total int
	for _, rack := range f.RackNames {
		servers := f.Racks[rack].MetadataServers
		lists = append(lists, servers)
		total += len(servers)
	}

	striped := make([]string, 0, total)
	for pos := 0; len(striped) < total; pos++ {
		for _, list := range lists {
			if pos < len(list) {
				striped = append(striped, list[pos])
			}
		}
	}

	return &striper{
		servers: striped,
		cursors: make(map[string]int),
	}
}

// next returns the server the given allocation class places onto and
// advances that class's cursor. A class seen for the first time starts at
// the head of the striped list; distinct classes never share cursor state.
func (s *striper) next(class string) string {
	cursor := s.cursors[class]
	s.cursors[class] = cursor + 1
	return s.servers[cursor%len(s.servers)]
}
