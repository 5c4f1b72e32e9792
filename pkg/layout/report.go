// Copyright 2025 Fleetplan Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
)

// WriteSummary renders the region-wide placement as a table: one row per
// non-sharded role, one row per shard per sharded role (numeric shard
// order), with a count column per AZ plus a total. Roles with zero planned
// instances do not appear.
func (l *Layout) WriteSummary(out io.Writer) {
	roles := make([]string, 0, len(l.perService))
	for role := range l.perService {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprint(w, "SERVICE")
	for _, az := range l.fleet.AZNames {
		fmt.Fprintf(w, "\t%s", az)
	}
	fmt.Fprintln(w, "\tTOTAL")

	for _, role := range roles {
		sc := l.perService[role]
		if sc.sharded() {
			for shard := 1; shard <= l.fleet.NumShards; shard++ {
				l.writeSummaryRow(w, fmt.Sprintf("%s/%d", role, shard), role, shard)
			}
			continue
		}
		l.writeSummaryRow(w, role, role, 0)
	}
	w.Flush()
}

func (l *Layout) writeSummaryRow(w io.Writer, label, role string, shard int) {
	fmt.Fprint(w, label)
	var total int
	for _, az := range l.fleet.AZNames {
		var n int
		if sc := l.perAZ[role][az]; sc != nil {
			n = sc.TotalForShard(shard)
		}
		total += n
		fmt.Fprintf(w, "\t%d", n)
	}
	fmt.Fprintf(w, "\t%d\n", total)
}

// WriteIssues prints the run's fatal errors followed by its warnings, one
// per line. Nothing is written for a clean run.
func (l *Layout) WriteIssues(out io.Writer) {
	for _, msg := range l.errors {
		fmt.Fprintf(out, "ERROR: %s\n", msg)
	}
	for _, msg := range l.warnings {
		fmt.Fprintf(out, "WARNING: %s\n", msg)
	}
}
