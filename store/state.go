package store

import (
	"fmt"

	"github.com/samber/lo"

	"studygroup/models"
)

// State 存储的完整快照，由宿主负责持久化
type State struct {
	Groups []models.Group
	NextID models.GroupID
}

// Snapshot 返回当前状态的深拷贝
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return State{
		Groups: lo.Map(s.groups, func(g *models.Group, _ int) models.Group {
			return g.Clone()
		}),
		NextID: s.nextID,
	}
}

// Restore 用宿主保存的状态替换当前内容。
// 状态不满足不变量时返回错误且不修改存储。
func (s *Store) Restore(state State) error {
	nextID := state.NextID
	byID := make(map[models.GroupID]*models.Group, len(state.Groups))
	groups := make([]*models.Group, 0, len(state.Groups))

	var prev models.GroupID
	for _, g := range state.Groups {
		if g.ID == 0 || g.ID <= prev {
			return fmt.Errorf("restore: group ids must be positive and increasing, got %d after %d", g.ID, prev)
		}
		if err := checkGroup(g); err != nil {
			return fmt.Errorf("restore: group %d: %w", g.ID, err)
		}
		prev = g.ID
		clone := g.Clone()
		groups = append(groups, &clone)
		byID[g.ID] = &clone
	}
	if nextID <= prev {
		nextID = prev + 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = groups
	s.byID = byID
	s.nextID = nextID
	return nil
}

func checkGroup(g models.Group) error {
	if len(g.Members) == 0 || g.Members[0] != g.Creator {
		return fmt.Errorf("creator %q must be the first member", g.Creator)
	}
	if len(g.Members) > MaxMembers {
		return fmt.Errorf("%d members exceeds limit of %d", len(g.Members), MaxMembers)
	}
	if dup := lo.FindDuplicates(g.Members); len(dup) > 0 {
		return fmt.Errorf("duplicate members %v", dup)
	}
	for i := 1; i < len(g.Messages); i++ {
		if g.Messages[i].Timestamp < g.Messages[i-1].Timestamp {
			return fmt.Errorf("message %d timestamp regresses", i)
		}
	}
	return nil
}
