package catalog

import "context"

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetExam(ctx context.Context, examID string) (*Exam, error) {
	return s.repo.GetExamByID(ctx, examID)
}

func (s *Service) ListExamsByIDs(ctx context.Context, examIDs []string) ([]Exam, error) {
	if len(examIDs) == 0 {
		return []Exam{}, nil
	}
	return s.repo.ListExamsByIDs(ctx, examIDs)
}
