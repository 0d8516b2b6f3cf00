package store

import (
	"fmt"

	"studygroup/models"
)

// GetGroupDiscussions 返回 messages[skip : skip+limit]。
// 结果是副本，之后追加的消息不会出现在已返回的切片中。
func (s *Store) GetGroupDiscussions(id models.GroupID, skip, limit int) ([]models.Message, error) {
	if skip < 0 || limit < 0 {
		return nil, fmt.Errorf("%w: skip and limit must be non-negative", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	group, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return window(group.Messages, skip, limit), nil
}

func window(messages []models.Message, skip, limit int) []models.Message {
	if skip >= len(messages) {
		return []models.Message{}
	}
	end := len(messages)
	if limit < end-skip {
		end = skip + limit
	}
	page := make([]models.Message, end-skip)
	copy(page, messages[skip:end])
	return page
}
