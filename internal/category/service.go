package category

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrValidation = errors.New("invalid category mapping")

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=category
type Repository interface {
	FindMapping(ctx context.Context, history string) (string, error)
	CreateMapping(ctx context.Context, rawPattern, category string) error
}

type Service struct {
	repo  Repository
	rules *RuleSet
}

func NewService(repo Repository, rules *RuleSet) *Service {
	return &Service{repo: repo, rules: rules}
}

// Categorize prefers a learned mapping and falls back to the keyword rules.
// When the lookup fails the rule-based category is still returned along with
// the error.
func (s *Service) Categorize(ctx context.Context, history string) (string, error) {
	if strings.TrimSpace(history) == "" {
		return s.rules.Default, nil
	}

	learned, err := s.repo.FindMapping(ctx, history)
	if err != nil {
		return s.rules.Match(history), fmt.Errorf("finding learned category: %w", err)
	}

	if learned != "" {
		return learned, nil
	}

	return s.rules.Match(history), nil
}

// Learn remembers that histories containing rawPattern belong to category.
func (s *Service) Learn(ctx context.Context, rawPattern, category string) error {
	rawPattern = strings.ToLower(strings.TrimSpace(rawPattern))
	category = strings.TrimSpace(category)

	if rawPattern == "" || category == "" {
		return fmt.Errorf("%w: pattern and category are required", ErrValidation)
	}

	return s.repo.CreateMapping(ctx, rawPattern, category)
}
