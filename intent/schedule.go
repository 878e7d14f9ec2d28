package intent

import "github.com/synapsed-labs/swarmkit/scope"

// NextStep returns the next Step that should be accepted, in declared
// order: the first Step that is neither succeeded nor cancelled. A
// failed Step is returned as well, so it blocks every Step after it.
// Returns nil once every Step has succeeded or been cancelled.
func (in *Intent) NextStep() *Step {
	for _, step := range in.Steps {
		if step.Status == StatusSucceeded || step.Status == StatusCancelled {
			continue
		}
		return step
	}
	return nil
}

// StepsDone reports whether every declared Step has reached
// StatusSucceeded. Steps that were never reached because an earlier
// one failed do not count as done.
func (in *Intent) StepsDone() bool {
	for _, step := range in.Steps {
		if step.Status != StatusSucceeded {
			return false
		}
	}
	return true
}

// ParallelGroup is a set of sibling sub-Intents that may execute
// concurrently because their Context allow-lists are pairwise
// disjoint (§4.2).
type ParallelGroup struct {
	Indices []int
}

// ParallelGroups partitions in.Children into groups that may run
// concurrently. Within a group every pair of members has disjoint
// allow-lists; a child that is not disjoint from any not-yet-grouped
// sibling starts its own group. Groups themselves must still run in
// the order returned — this only identifies which siblings may overlap
// in time, not a global schedule across groups.
func (in *Intent) ParallelGroups() []ParallelGroup {
	n := len(in.Children)
	placed := make([]bool, n)
	var groups []ParallelGroup

	for i := 0; i < n; i++ {
		if placed[i] {
			continue
		}
		group := ParallelGroup{Indices: []int{i}}
		placed[i] = true
		for j := i + 1; j < n; j++ {
			if placed[j] {
				continue
			}
			if canJoin(in, group, j) {
				group.Indices = append(group.Indices, j)
				placed[j] = true
			}
		}
		groups = append(groups, group)
	}
	return groups
}

// canJoin reports whether child j's allow-list is disjoint from every
// allow-list already in the group, so adding it keeps the whole group
// pairwise disjoint.
func canJoin(in *Intent, group ParallelGroup, j int) bool {
	candidate := in.Children[j].Ctx.AllowList()
	for _, i := range group.Indices {
		member := in.Children[i].Ctx.AllowList()
		if !scope.Disjoint(candidate, member) {
			return false
		}
	}
	return true
}
