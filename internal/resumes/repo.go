package resumes

import "context"

// Repo defines persistence operations for resumes.
type Repo interface {
	Create(ctx context.Context, r Resume) error
	Get(ctx context.Context, id string) (Resume, error)
}
