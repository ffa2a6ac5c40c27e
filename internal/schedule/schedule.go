// Package schedule implements the cursor-driven selection of probe prompts.
// A schedule is an ordered list of prompt groups consumed in declaration
// order, each with a uniform quota of probes. The persisted cursor is the
// sole source of truth for which group and rotation slot comes next.
package schedule

import (
	"errors"
	"fmt"
)

// ErrExhausted signals that the cursor has consumed every slot in the
// schedule. It is the terminal state of a study, not a failure.
var ErrExhausted = errors.New("schedule exhausted")

// Group is an ordered set of prompt variants sharing one condition.
type Group struct {
	Name    string
	Prompts []string
}

// Schedule is an ordered sequence of groups with a uniform per-group quota.
type Schedule struct {
	groups []Group
	quota  int
}

// Selection is the result of resolving a cursor position.
type Selection struct {
	GroupIndex int
	Group      string
	Rotation   int
	Prompt     string
	NextCursor int
}

// New validates and builds a schedule.
func New(groups []Group, quota int) (*Schedule, error) {
	if len(groups) == 0 {
		return nil, fmt.Errorf("schedule: at least one group is required")
	}
	if quota < 1 {
		return nil, fmt.Errorf("schedule: quota must be at least 1, got %d", quota)
	}
	for i, g := range groups {
		if g.Name == "" {
			return nil, fmt.Errorf("schedule: group %d has no name", i)
		}
		if len(g.Prompts) == 0 {
			return nil, fmt.Errorf("schedule: group %q has no prompt variants", g.Name)
		}
	}
	return &Schedule{groups: groups, quota: quota}, nil
}

// Total returns the number of probe slots in the schedule.
func (s *Schedule) Total() int {
	return len(s.groups) * s.quota
}

// Quota returns the uniform per-group quota.
func (s *Schedule) Quota() int {
	return s.quota
}

// Groups returns the ordered group list.
func (s *Schedule) Groups() []Group {
	return s.groups
}

// Select resolves a cursor to a concrete group, rotation slot and prompt.
// It is a pure function of (schedule, cursor); persisting the advanced
// cursor is the caller's responsibility. A cursor at or past Total returns
// ErrExhausted. The rotation index may exceed the number of prompt variants
// in a group, in which case variants cycle, so a quota larger than the
// variant count repeats prompts deliberately.
func (s *Schedule) Select(cursor int) (Selection, error) {
	if cursor < 0 {
		return Selection{}, fmt.Errorf("schedule: cursor must be non-negative, got %d", cursor)
	}
	if cursor >= s.Total() {
		return Selection{}, ErrExhausted
	}

	gi := cursor / s.quota
	rot := cursor % s.quota
	g := s.groups[gi]

	return Selection{
		GroupIndex: gi,
		Group:      g.Name,
		Rotation:   rot,
		Prompt:     g.Prompts[rot%len(g.Prompts)],
		NextCursor: cursor + 1,
	}, nil
}
