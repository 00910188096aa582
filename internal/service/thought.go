package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nhanzalone1/echo-app-sub000/internal"
	"github.com/nhanzalone1/echo-app-sub000/internal/storage"
)

type ThoughtRequest struct {
	Content  string `json:"content" validate:"required,max=4000"`
	GoalID   string `json:"goal_id,omitempty"`
	MediaURL string `json:"media_url,omitempty" validate:"omitempty,url"`
}

func CreateThought(ctx context.Context, repo storage.ThoughtRepository, user *internal.User, req *ThoughtRequest) (*internal.Thought, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	t := &internal.Thought{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		GoalID:    req.GoalID,
		Content:   req.Content,
		MediaURL:  req.MediaURL,
		CreatedAt: time.Now(),
	}
	if err := repo.CreateThought(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}
