package store

import (
	"context"

	"github.com/JoshUrdnb/Billed/bill"
)

// Local serves one employee's bills straight from the repository.
type Local struct {
	repo  bill.Repository
	email string
}

func NewLocal(repo bill.Repository, email string) *Local {
	return &Local{repo: repo, email: email}
}

func (l *Local) List(ctx context.Context) ([]bill.Bill, error) {
	bills, err := l.repo.ListByEmail(ctx, l.email)
	if err != nil {
		return nil, remote(err)
	}
	return bills, nil
}

func (l *Local) Create(ctx context.Context, file bill.UploadedFile, b bill.Bill) (*CreatedBill, error) {
	b.Email = l.email
	b.Status = bill.StatusPending
	b.CommentAdmin = ""
	created, key, err := l.repo.Create(ctx, b, file)
	if err != nil {
		return nil, remote(err)
	}
	return &CreatedBill{Key: key, Bill: *created}, nil
}

func (l *Local) Update(ctx context.Context, b bill.Bill) (*bill.Bill, error) {
	current, err := l.repo.GetByID(ctx, b.ID)
	if err != nil {
		return nil, remote(err)
	}
	if current.Email != l.email {
		return nil, remote(bill.ErrNotFound)
	}
	b.Status = current.Status
	b.CommentAdmin = current.CommentAdmin
	updated, err := l.repo.Update(ctx, b)
	if err != nil {
		return nil, remote(err)
	}
	return updated, nil
}
