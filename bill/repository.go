package bill

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var billColumns = []string{
	"id",
	"email",
	"type",
	"name",
	"to_char(date, 'YYYY-MM-DD')",
	"amount",
	"vat",
	"pct",
	"commentary",
	"file_url",
	"file_name",
	"status",
	"COALESCE(comment_admin, '')",
}

type Repository interface {
	ListByEmail(ctx context.Context, email string) ([]Bill, error)
	GetByID(ctx context.Context, id string) (*Bill, error)
	Create(ctx context.Context, b Bill, file UploadedFile) (*Bill, string, error)
	Update(ctx context.Context, b Bill) (*Bill, error)
	Receipt(ctx context.Context, key string) (*UploadedFile, error)
}

type repository struct {
	db         *sql.DB
	receiptURL string
}

// NewRepository stores bills in postgres. receiptURL is the public prefix a
// receipt key is appended to when building a bill's fileUrl.
func NewRepository(db *sql.DB, receiptURL string) *repository {
	return &repository{db: db, receiptURL: strings.TrimSuffix(receiptURL, "/")}
}

func (r *repository) ListByEmail(ctx context.Context, email string) ([]Bill, error) {
	query, args, err := psql.Select(billColumns...).
		From("bills").
		Where(sq.Eq{"email": email}).
		OrderBy("date DESC", "created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying bills: %w", err)
	}
	defer rows.Close()

	bills := make([]Bill, 0)
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, *b)
	}

	return bills, rows.Err()
}

func (r *repository) GetByID(ctx context.Context, id string) (*Bill, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	query, args, err := psql.Select(billColumns...).
		From("bills").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building get query: %w", err)
	}

	b, err := scanBill(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// Create stores the receipt and the bill in one transaction and returns the
// stored bill together with the receipt key.
func (r *repository) Create(ctx context.Context, b Bill, file UploadedFile) (*Bill, string, error) {
	if err := file.CheckReceipt(); err != nil {
		return nil, "", err
	}

	key := uuid.New()
	b.ID = uuid.NewString()
	b.FileName = file.BaseName()
	b.FileURL = r.receiptURL + "/" + key.String()
	if b.Status == "" {
		b.Status = StatusPending
	}
	if err := b.Validate(); err != nil {
		return nil, "", err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", err
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	insertReceipt, args, err := psql.Insert("receipts").
		Columns("key", "file_name", "content_type", "data", "created_at").
		Values(key, b.FileName, file.MediaType(), file.Data, now).
		ToSql()
	if err != nil {
		return nil, "", fmt.Errorf("building receipt insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insertReceipt, args...); err != nil {
		return nil, "", fmt.Errorf("inserting receipt: %w", err)
	}

	insertBill, args, err := psql.Insert("bills").
		Columns("id", "email", "type", "name", "date", "amount", "vat", "pct", "commentary",
			"file_url", "file_name", "file_key", "status", "comment_admin", "created_at").
		Values(b.ID, b.Email, b.Type, b.Name, b.Date, b.Amount, b.VAT, b.Pct, b.Commentary,
			b.FileURL, b.FileName, key, b.Status, nullIfEmpty(b.CommentAdmin), now).
		ToSql()
	if err != nil {
		return nil, "", fmt.Errorf("building bill insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insertBill, args...); err != nil {
		return nil, "", fmt.Errorf("inserting bill: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, "", err
	}
	return &b, key.String(), nil
}

// Update rewrites the fields an employee may edit. Owner, receipt, status
// and the admin comment always keep their stored values.
func (r *repository) Update(ctx context.Context, b Bill) (*Bill, error) {
	current, err := r.GetByID(ctx, b.ID)
	if err != nil {
		return nil, err
	}

	b.Email = current.Email
	b.FileURL = current.FileURL
	b.FileName = current.FileName
	b.Status = current.Status
	b.CommentAdmin = current.CommentAdmin
	if err := b.Validate(); err != nil {
		return nil, err
	}

	query, args, err := psql.Update("bills").
		Set("type", b.Type).
		Set("name", b.Name).
		Set("date", b.Date).
		Set("amount", b.Amount).
		Set("vat", b.VAT).
		Set("pct", b.Pct).
		Set("commentary", b.Commentary).
		Where(sq.Eq{"id": b.ID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building update: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("updating bill: %w", err)
	}
	return &b, nil
}

func (r *repository) Receipt(ctx context.Context, key string) (*UploadedFile, error) {
	if _, err := uuid.Parse(key); err != nil {
		return nil, ErrNotFound
	}

	query, args, err := psql.Select("file_name", "content_type", "data").
		From("receipts").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building receipt query: %w", err)
	}

	var f UploadedFile
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&f.Name, &f.ContentType, &f.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying receipt: %w", err)
	}
	return &f, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBill(s scanner) (*Bill, error) {
	var b Bill
	err := s.Scan(
		&b.ID,
		&b.Email,
		&b.Type,
		&b.Name,
		&b.Date,
		&b.Amount,
		&b.VAT,
		&b.Pct,
		&b.Commentary,
		&b.FileURL,
		&b.FileName,
		&b.Status,
		&b.CommentAdmin,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
