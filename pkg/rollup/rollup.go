// Package rollup aggregates a numeric field across a record relation
// graph, such as summing votes over a bug's duplicates and the duplicates
// of those duplicates.
//
// The traversal is breadth-first from a root record and is safe on
// arbitrary relation graphs: cycles terminate and records reachable via
// several paths are counted once, at the level of first discovery.
package rollup

// Record is one entry in a rollup index: the ids it relates to and the
// numeric value contributed when the record is visited.
type Record[K comparable] struct {
	Related []K
	Value   int
}

// Levels holds the collected values grouped by traversal depth.
// Levels[0] are the values of the root's direct relations, Levels[1] the
// values one hop further, and so on. Values stay unsummed so callers can
// report per-level breakdowns.
type Levels [][]int

// Total returns the sum of every value across all levels.
func (l Levels) Total() int {
	sum := 0
	for _, level := range l {
		for _, v := range level {
			sum += v
		}
	}
	return sum
}

// Counts returns the number of records visited at each level.
func (l Levels) Counts() []int {
	counts := make([]int, len(l))
	for i, level := range l {
		counts[i] = len(level)
	}
	return counts
}

// ByLevel walks the relation graph from root and collects the value of
// every reachable record, grouped by depth.
//
// Ids that do not appear in index are skipped silently; partial snapshots
// are normal when an API page was truncated. A single seen set spans the
// whole traversal, so each record, the root included, contributes at most
// once no matter how many paths reach it. A root missing from index
// yields nil.
func ByLevel[K comparable](root K, index map[K]Record[K]) Levels {
	rootRec, ok := index[root]
	if !ok {
		return nil
	}

	seen := map[K]bool{root: true}
	frontier := make([]K, 0, len(rootRec.Related))
	for _, id := range rootRec.Related {
		if _, ok := index[id]; ok && !seen[id] {
			seen[id] = true
			frontier = append(frontier, id)
		}
	}

	var levels Levels
	for len(frontier) > 0 {
		values := make([]int, 0, len(frontier))
		var next []K
		for _, id := range frontier {
			rec := index[id]
			values = append(values, rec.Value)
			for _, rel := range rec.Related {
				if _, ok := index[rel]; ok && !seen[rel] {
					seen[rel] = true
					next = append(next, rel)
				}
			}
		}
		levels = append(levels, values)
		frontier = next
	}
	return levels
}
