package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nhanzalone1/echo-app-sub000/internal"
	"github.com/nhanzalone1/echo-app-sub000/internal/storage"
)

type GoalRequest struct {
	Title       string `json:"title" validate:"required,max=120"`
	Description string `json:"description,omitempty" validate:"max=2000"`
	Color       string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

func CreateGoal(ctx context.Context, goalRepo storage.GoalRepository, user *internal.User, req *GoalRequest) (*internal.Goal, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	goal := &internal.Goal{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		Title:       req.Title,
		Description: req.Description,
		Color:       req.Color,
		CreatedAt:   time.Now(),
	}
	if err := goalRepo.CreateGoal(ctx, goal); err != nil {
		return nil, err
	}
	return goal, nil
}
