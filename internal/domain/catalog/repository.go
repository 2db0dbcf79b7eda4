package catalog

import "context"

type Repository interface {
	GetExamByID(ctx context.Context, examID string) (*Exam, error)
	ExamExists(ctx context.Context, examID string) (bool, error)
	ListExams(ctx context.Context) ([]Exam, error)
	ListExamsByIDs(ctx context.Context, examIDs []string) ([]Exam, error)
	ListExamIDs(ctx context.Context) ([]string, error)
	ListPublicExamIDs(ctx context.Context) ([]string, error)
}
