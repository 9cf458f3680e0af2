package domain

// SourceSnapshot is what one source produced in a crawl run. Err is set when the source failed;
// Items is then empty.
type SourceSnapshot struct {
	Source Source
	Items  []Candidate
	Err    error
}

// GroupSnapshot aggregates every member source of a group, failed ones included.
type GroupSnapshot struct {
	Group   Group
	Sources []SourceSnapshot
}

// Candidates flattens successful snapshots in source order.
func (g GroupSnapshot) Candidates() []Candidate {
	var all []Candidate
	for _, snap := range g.Sources {
		if snap.Err == nil {
			all = append(all, snap.Items...)
		}
	}
	return all
}

// Failed lists the snapshots whose crawl failed.
func (g GroupSnapshot) Failed() []SourceSnapshot {
	var failed []SourceSnapshot
	for _, snap := range g.Sources {
		if snap.Err != nil {
			failed = append(failed, snap)
		}
	}
	return failed
}
