package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"studygroup/models"
	"studygroup/store"
)

type recordingRepository struct {
	groups    []models.Group
	nextIDs   []models.GroupID
	members   []models.Principal
	positions []int
	messages  []models.Message
	err       error
}

func (r *recordingRepository) Load(context.Context) (store.State, error) {
	return store.State{Groups: r.groups}, r.err
}

func (r *recordingRepository) ReserveGroupID(_ context.Context, nextID models.GroupID) error {
	r.nextIDs = append(r.nextIDs, nextID)
	return r.err
}

func (r *recordingRepository) SaveGroup(_ context.Context, group models.Group) error {
	r.groups = append(r.groups, group)
	return r.err
}

func (r *recordingRepository) AddMember(_ context.Context, _ models.GroupID, principal models.Principal, position int) error {
	r.members = append(r.members, principal)
	r.positions = append(r.positions, position)
	return r.err
}

func (r *recordingRepository) AppendMessage(_ context.Context, _ models.GroupID, message models.Message) error {
	r.messages = append(r.messages, message)
	return r.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.GroupEvent
	err    error
}

func (p *recordingPublisher) PublishGroupEvent(evt models.GroupEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func TestGroupService_WritesThroughAndPublishes(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := &recordingRepository{}
	publisher := &recordingPublisher{}
	svc := NewGroupService(store.New(), repo, publisher, nil)

	id, err := svc.CreateGroup(ctx, " Databases ", "indexes", "alice")
	req.NoError(err)
	req.Len(repo.groups, 1)
	req.Equal("Databases", repo.groups[0].Name)
	req.Equal([]models.GroupID{2}, repo.nextIDs)

	status, err := svc.JoinGroup(ctx, id, "bob")
	req.NoError(err)
	req.Equal(store.StatusJoined, status)

	status, err = svc.JoinGroup(ctx, id, "bob")
	req.NoError(err)
	req.Equal(store.StatusAlreadyMember, status)
	req.Equal([]models.Principal{"bob"}, repo.members)
	req.Equal([]int{1}, repo.positions)

	message, err := svc.PostMessage(ctx, id, " b-trees ", "bob")
	req.NoError(err)
	req.Equal("b-trees", message.Content)
	req.Equal([]models.Message{message}, repo.messages)

	req.Len(publisher.events, 3)
	req.Equal(models.EventGroupCreated, publisher.events[0].Type)
	req.Equal("Databases", publisher.events[0].Name)
	req.Equal(models.EventMemberJoined, publisher.events[1].Type)
	req.Equal(models.Principal("bob"), publisher.events[1].Principal)
	req.Equal(models.EventMessagePosted, publisher.events[2].Type)
	req.Equal(&message, publisher.events[2].Message)
	for _, evt := range publisher.events {
		req.Equal(id, evt.GroupID)
		req.NotZero(evt.Timestamp)
	}
}

func TestGroupService_FailuresDoNotPersistOrPublish(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := &recordingRepository{}
	publisher := &recordingPublisher{}
	svc := NewGroupService(store.New(), repo, publisher, nil)

	_, err := svc.CreateGroup(ctx, "ab", "too short", "alice")
	req.ErrorIs(err, store.ErrValidation)
	_, err = svc.JoinGroup(ctx, 1, "bob")
	req.ErrorIs(err, store.ErrNotFound)
	_, err = svc.PostMessage(ctx, 1, "hello", "bob")
	req.ErrorIs(err, store.ErrNotFound)

	req.Empty(repo.groups)
	req.Empty(repo.members)
	req.Empty(repo.messages)
	req.Empty(publisher.events)
}

func TestGroupService_InfrastructureErrorsAreNotDomainErrors(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := &recordingRepository{err: errors.New("disk full")}
	publisher := &recordingPublisher{err: errors.New("broker down")}
	svc := NewGroupService(store.New(), repo, publisher, nil)

	id, err := svc.CreateGroup(ctx, "Resilient", "keeps going", "alice")
	req.NoError(err)
	_, err = svc.PostMessage(ctx, id, "still accepted", "alice")
	req.NoError(err)

	messages, err := svc.GetGroupDiscussions(id, 0, 10)
	req.NoError(err)
	req.Len(messages, 1)
}

func TestGroupService_RestoreError(t *testing.T) {
	req := require.New(t)
	svc := NewGroupService(store.New(), &recordingRepository{err: errors.New("connection refused")}, nil, nil)
	req.Error(svc.Restore(context.Background()))

	req.NoError(NewGroupService(store.New(), nil, nil, nil).Restore(context.Background()))
}

func TestGroupService_BroadcastsToGroupSubscribers(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	hub := NewWebSocketManager(10)
	svc := NewGroupService(store.New(), nil, nil, hub)

	id, err := svc.CreateGroup(ctx, "Live", "feed", "alice")
	req.NoError(err)
	other, err := svc.CreateGroup(ctx, "Other", "feed", "alice")
	req.NoError(err)

	subscriber := NewClient("alice", id, nil, 4)
	bystander := NewClient("alice", other, nil, 4)
	req.True(hub.RegisterClient(subscriber))
	req.True(hub.RegisterClient(bystander))

	_, err = svc.PostMessage(ctx, id, "live update", "alice")
	req.NoError(err)

	req.Len(subscriber.Send, 1)
	req.Empty(bystander.Send)

	var evt models.GroupEvent
	req.NoError(json.Unmarshal(<-subscriber.Send, &evt))
	req.Equal(models.EventMessagePosted, evt.Type)
	req.Equal("live update", evt.Message.Content)
}

func TestGroupService_Summaries(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	svc := NewGroupService(store.New(), nil, nil, nil)

	id, err := svc.CreateGroup(ctx, "Summary", "projection", "alice")
	req.NoError(err)
	_, err = svc.JoinGroup(ctx, id, "bob")
	req.NoError(err)
	_, err = svc.PostMessage(ctx, id, "one", "bob")
	req.NoError(err)

	req.Equal([]models.GroupSummary{{
		ID:           id,
		Name:         "Summary",
		Description:  "projection",
		Creator:      "alice",
		MemberCount:  2,
		MessageCount: 1,
	}}, svc.ListGroupSummaries())
	req.Equal(GroupStats{Groups: 1, Members: 2, Messages: 1, NextID: 2}, svc.Stats())
}

// 并发发送的消息，事件顺序与消息日志顺序一致
func TestGroupService_EventsFollowMessageOrder(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	publisher := &recordingPublisher{}
	svc := NewGroupService(store.New(), nil, publisher, nil)

	id, err := svc.CreateGroup(ctx, "Ordered", "log order", "alice")
	req.NoError(err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = svc.PostMessage(ctx, id, fmt.Sprintf("message %d", i), "alice")
		}(i)
	}
	wg.Wait()

	messages, err := svc.GetGroupDiscussions(id, 0, 100)
	req.NoError(err)
	req.Len(messages, 50)

	var published []models.Message
	for _, evt := range publisher.events {
		if evt.Type == models.EventMessagePosted {
			published = append(published, *evt.Message)
		}
	}
	req.Equal(messages, published)
}
