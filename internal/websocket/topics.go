// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package websocket

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/medibook/internal/logging"
	"github.com/tomtom215/medibook/internal/metrics"
)

// Topic families
const (
	RoleTopicPrefix        = "role:"
	UserTopicPrefix        = "user:"
	ChatTopicPrefix        = "chat:"
	AppointmentTopicPrefix = "appointment:"
)

// RoleAdmin is the role whose topic observes every appointment event.
const RoleAdmin = "admin"

// MaxRoomNameLength bounds client-chosen topic names.
const MaxRoomNameLength = 128

// Delivery failure reasons
const (
	DeliveryQueueFull = "queue_full"
	DeliveryClosed    = "closed"
)

var (
	// ErrEmptyRoom is returned for a blank room name.
	ErrEmptyRoom = errors.New("room name is required")

	// ErrRoomTooLong is returned for room names over MaxRoomNameLength.
	ErrRoomTooLong = errors.New("room name too long")

	// ErrReservedRoom is returned when a client names a server-managed topic.
	ErrReservedRoom = errors.New("room is managed by the server")
)

// RoleTopic returns the default topic shared by every connection with role.
func RoleTopic(role string) string { return RoleTopicPrefix + role }

// UserTopic returns the default topic of a single user.
func UserTopic(userID string) string { return UserTopicPrefix + userID }

// ChatTopic returns the topic of a chat room.
func ChatTopic(roomID string) string { return ChatTopicPrefix + roomID }

// AppointmentTopic returns the topic of per-appointment subscribers.
func AppointmentTopic(appointmentID string) string { return AppointmentTopicPrefix + appointmentID }

// ValidateRoomName checks a topic name supplied by a client.
// role: and user: topics are joined and left only by the server.
func ValidateRoomName(room string) error {
	switch {
	case strings.TrimSpace(room) == "":
		return ErrEmptyRoom
	case len(room) > MaxRoomNameLength:
		return ErrRoomTooLong
	case strings.HasPrefix(room, RoleTopicPrefix), strings.HasPrefix(room, UserTopicPrefix):
		return ErrReservedRoom
	}
	return nil
}

// TopicRouter maintains named sets of connection handles and fans envelopes
// out to them. Topics exist only while they have members.
type TopicRouter struct {
	mu       sync.RWMutex
	topics   map[string]map[*Client]struct{}
	byClient map[*Client]map[string]struct{}
	log      zerolog.Logger
}

// NewTopicRouter creates an empty router.
func NewTopicRouter() *TopicRouter {
	return &TopicRouter{
		topics:   make(map[string]map[*Client]struct{}),
		byClient: make(map[*Client]map[string]struct{}),
		log:      logging.WithComponent("topic-router"),
	}
}

// JoinDefaultTopics adds the record's handle to its role and user topics.
func (t *TopicRouter) JoinDefaultTopics(rec ConnectionRecord) {
	t.mu.Lock()
	t.joinLocked(RoleTopic(rec.Role), rec.Handle)
	t.joinLocked(UserTopic(rec.UserID), rec.Handle)
	n := len(t.topics)
	t.mu.Unlock()

	metrics.SetTopicCount(n)
}

// LeaveAllTopics removes handle from every topic it belongs to, including
// default topics, and drops topics left empty.
func (t *TopicRouter) LeaveAllTopics(handle *Client) {
	t.mu.Lock()
	for topic := range t.byClient[handle] {
		t.leaveLocked(topic, handle)
	}
	delete(t.byClient, handle)
	n := len(t.topics)
	t.mu.Unlock()

	metrics.SetTopicCount(n)
}

// Join adds handle to topic, creating the topic if needed. Idempotent.
func (t *TopicRouter) Join(topic string, handle *Client) {
	t.mu.Lock()
	t.joinLocked(topic, handle)
	n := len(t.topics)
	t.mu.Unlock()

	metrics.SetTopicCount(n)
}

// Leave removes handle from topic. Idempotent.
func (t *TopicRouter) Leave(topic string, handle *Client) {
	t.mu.Lock()
	t.leaveLocked(topic, handle)
	n := len(t.topics)
	t.mu.Unlock()

	metrics.SetTopicCount(n)
}

func (t *TopicRouter) joinLocked(topic string, handle *Client) {
	members, ok := t.topics[topic]
	if !ok {
		members = make(map[*Client]struct{})
		t.topics[topic] = members
	}
	members[handle] = struct{}{}

	joined, ok := t.byClient[handle]
	if !ok {
		joined = make(map[string]struct{})
		t.byClient[handle] = joined
	}
	joined[topic] = struct{}{}
}

func (t *TopicRouter) leaveLocked(topic string, handle *Client) {
	if members, ok := t.topics[topic]; ok {
		delete(members, handle)
		if len(members) == 0 {
			delete(t.topics, topic)
		}
	}
	if joined, ok := t.byClient[handle]; ok {
		delete(joined, topic)
		if len(joined) == 0 {
			delete(t.byClient, handle)
		}
	}
}

// Publish enqueues msg to every current member of topic and returns the
// number of members that accepted it. A publish to an absent topic is a
// silent no-op. A full or closed member queue is logged and counted but
// never stops delivery to the others.
func (t *TopicRouter) Publish(topic string, msg Message) int {
	return t.publish(topic, msg, "")
}

// PublishExcluding is Publish without delivering to connections owned by
// excludeUserID.
func (t *TopicRouter) PublishExcluding(topic string, msg Message, excludeUserID string) int {
	return t.publish(topic, msg, excludeUserID)
}

func (t *TopicRouter) publish(topic string, msg Message, excludeUserID string) int {
	recipients := t.snapshot(topic)

	delivered := 0
	for _, client := range recipients {
		if excludeUserID != "" && client.UserID() == excludeUserID {
			continue
		}
		if err := client.Enqueue(msg); err != nil {
			reason := deliveryFailureReason(err)
			metrics.RecordDeliveryFailure(reason)
			t.log.Warn().
				Str("topic", topic).
				Str("message_type", msg.Type).
				Str("user_id", client.UserID()).
				Str("connection_id", client.ConnectionID()).
				Str("reason", reason).
				Msg("dropping message for recipient")
			continue
		}
		metrics.RecordMessageSent(msg.Type)
		delivered++
	}
	return delivered
}

func deliveryFailureReason(err error) string {
	if errors.Is(err, ErrClientClosed) {
		return DeliveryClosed
	}
	return DeliveryQueueFull
}

// snapshot copies the topic's members, ordered by client ID, so fan-out runs
// without holding the lock.
func (t *TopicRouter) snapshot(topic string) []*Client {
	t.mu.RLock()
	members := t.topics[topic]
	clients := make([]*Client, 0, len(members))
	for client := range members {
		clients = append(clients, client)
	}
	t.mu.RUnlock()

	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// Members returns the number of handles in topic.
func (t *TopicRouter) Members(topic string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.topics[topic])
}

// HasTopic reports whether topic currently exists.
func (t *TopicRouter) HasTopic(topic string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.topics[topic]
	return ok
}

// TopicsOf returns the sorted topics handle belongs to.
func (t *TopicRouter) TopicsOf(handle *Client) []string {
	t.mu.RLock()
	joined := t.byClient[handle]
	topics := make([]string, 0, len(joined))
	for topic := range joined {
		topics = append(topics, topic)
	}
	t.mu.RUnlock()

	sort.Strings(topics)
	return topics
}

// TopicCount returns the number of live topics.
func (t *TopicRouter) TopicCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.topics)
}
