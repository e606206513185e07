package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"voxchat/models"
	"voxchat/pipeline"
	"voxchat/storage"
)

// session tracks the active stored conversation and persists entries into it.
type session struct {
	logger *slog.Logger
	repo   storage.ConversationHistory
	mu     sync.Mutex
	active *models.Conversation
}

func newSession(logger *slog.Logger, repo storage.ConversationHistory) *session {
	return &session{logger: logger, repo: repo}
}

func (s *session) AppendEntry(ctx context.Context, e models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		conv, err := s.repo.CreateConversation("")
		if err != nil {
			return err
		}
		s.active = conv
	}
	_, err := s.repo.AppendEntry(s.active.ID, e)
	return err
}

func (s *session) activeName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return "new"
	}
	return s.active.Name
}

// loadOldConversationOrGetNew resumes the most recent conversation. A fresh
// one is created lazily on the first appended entry.
func (s *session) loadOldConversationOrGetNew() []models.Entry {
	conv, err := s.repo.LastConversation()
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("failed to load last conversation", "error", err)
		}
		return nil
	}
	rows, err := s.repo.GetEntries(conv.ID)
	if err != nil {
		s.logger.Warn("failed to load conversation entries", "error", err, "conversation", conv.ID)
		return nil
	}
	s.mu.Lock()
	s.active = conv
	s.mu.Unlock()
	s.logger.Info("resumed conversation", "name", conv.Name, "entries", len(rows))
	return models.RowsToEntries(rows)
}

// startNew makes the next appended entry go into a new conversation.
func (s *session) startNew() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = nil
}

func (s *session) setActive(conv *models.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = conv
}

func (s *session) isActive(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil && s.active.ID == id
}

func (s *session) conversations() ([]models.Conversation, error) {
	return s.repo.ListConversations()
}

// newConversation clears the log and detaches the stored conversation.
func newConversation(c *pipeline.Controller, s *session) error {
	if err := c.Reset(); err != nil {
		return fmt.Errorf("cannot start a new conversation: %w", err)
	}
	s.startNew()
	return nil
}

// openConversation puts a stored conversation into the log and appends
// further turns to it.
func openConversation(c *pipeline.Controller, s *session, id string) (*models.Conversation, error) {
	conv, err := s.repo.GetConversation(id)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.GetEntries(id)
	if err != nil {
		return nil, err
	}
	if err := c.Load(models.RowsToEntries(rows)); err != nil {
		return nil, fmt.Errorf("cannot load conversation: %w", err)
	}
	s.setActive(conv)
	s.logger.Info("loaded conversation", "name", conv.Name, "entries", len(rows))
	return conv, nil
}

// removeConversation deletes a stored conversation; removing the active one
// also clears the log.
func removeConversation(c *pipeline.Controller, s *session, id string) error {
	if s.isActive(id) {
		if err := newConversation(c, s); err != nil {
			return err
		}
	}
	if err := s.repo.RemoveConversation(id); err != nil {
		return err
	}
	s.logger.Info("removed conversation", "id", id)
	return nil
}
