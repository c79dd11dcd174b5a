// Package billtest provides bill fixtures and in-memory fakes shared by the
// package tests.
package billtest

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/JoshUrdnb/Billed/bill"
	"github.com/google/uuid"
)

// Bills returns four bills for employee a@a, deliberately out of date order.
func Bills() []bill.Bill {
	return []bill.Bill{
		{
			ID:           "47qAXb6fIm2zOKkLzMro",
			Email:        "a@a",
			Type:         bill.TypeHotel,
			Name:         "encore",
			Date:         "2004-04-04",
			Amount:       400,
			VAT:          "80",
			Pct:          20,
			Commentary:   "séminaire billed",
			FileURL:      "https://receipts.example.com/47qAXb6fIm2zOKkLzMro.jpg",
			FileName:     "preview-facture-free-201801-pdf-1.jpg",
			Status:       bill.StatusPending,
			CommentAdmin: "ok",
		},
		{
			ID:           "BeKy5Mo4jkmdfPGYpTxZ",
			Email:        "a@a",
			Type:         bill.TypeTransports,
			Name:         "test1",
			Date:         "2001-01-01",
			Amount:       100,
			VAT:          "",
			Pct:          20,
			Commentary:   "plop",
			FileURL:      "https://receipts.example.com/BeKy5Mo4jkmdfPGYpTxZ.jpeg",
			FileName:     "1592770761.jpeg",
			Status:       bill.StatusRefused,
			CommentAdmin: "en fait non",
		},
		{
			ID:           "UIUZtnPQvnbFnB0ozvJh",
			Email:        "a@a",
			Type:         bill.TypeOnline,
			Name:         "test3",
			Date:         "2003-03-03",
			Amount:       300,
			VAT:          "60",
			Pct:          20,
			FileURL:      "https://receipts.example.com/UIUZtnPQvnbFnB0ozvJh.png",
			FileName:     "facture-client-php-exportee-dans-document-pdf-enregistre-sur-disque-dur.png",
			Status:       bill.StatusAccepted,
			CommentAdmin: "bon bah d'accord",
		},
		{
			ID:           "qcCK3SzECmaZAGRrHjaC",
			Email:        "a@a",
			Type:         bill.TypeRestaurants,
			Name:         "test2",
			Date:         "2002-02-02",
			Amount:       200,
			VAT:          "40",
			Pct:          20,
			Commentary:   "test2",
			FileURL:      "https://receipts.example.com/qcCK3SzECmaZAGRrHjaC.jpg",
			FileName:     "preview-facture-free-201801-pdf-1.jpg",
			Status:       bill.StatusRefused,
			CommentAdmin: "pas la bonne facture",
		},
	}
}

// Repository is an in-memory bill.Repository.
type Repository struct {
	mu       sync.Mutex
	bills    []bill.Bill
	receipts map[string]bill.UploadedFile
	Err      error
}

func NewRepository(bills ...bill.Bill) *Repository {
	return &Repository{
		bills:    slices.Clone(bills),
		receipts: make(map[string]bill.UploadedFile),
	}
}

func (r *Repository) ListByEmail(_ context.Context, email string) ([]bill.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	out := make([]bill.Bill, 0)
	for _, b := range r.bills {
		if b.Email == email {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *Repository) GetByID(_ context.Context, id string) (*bill.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	for _, b := range r.bills {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, bill.ErrNotFound
}

func (r *Repository) Create(_ context.Context, b bill.Bill, file bill.UploadedFile) (*bill.Bill, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, "", r.Err
	}
	if err := file.CheckReceipt(); err != nil {
		return nil, "", err
	}
	key := uuid.NewString()
	b.ID = uuid.NewString()
	b.FileName = file.BaseName()
	b.FileURL = fmt.Sprintf("/api/receipts/%s", key)
	if b.Status == "" {
		b.Status = bill.StatusPending
	}
	if err := b.Validate(); err != nil {
		return nil, "", err
	}
	r.bills = append(r.bills, b)
	r.receipts[key] = file
	return &b, key, nil
}

func (r *Repository) Update(_ context.Context, b bill.Bill) (*bill.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	for i, cur := range r.bills {
		if cur.ID != b.ID {
			continue
		}
		b.Email = cur.Email
		b.FileURL = cur.FileURL
		b.FileName = cur.FileName
		b.Status = cur.Status
		b.CommentAdmin = cur.CommentAdmin
		if err := b.Validate(); err != nil {
			return nil, err
		}
		r.bills[i] = b
		return &b, nil
	}
	return nil, bill.ErrNotFound
}

func (r *Repository) Receipt(_ context.Context, key string) (*bill.UploadedFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.receipts[key]
	if !ok {
		return nil, bill.ErrNotFound
	}
	return &f, nil
}

// PNG is a minimal receipt upload.
func PNG(name string) bill.UploadedFile {
	return bill.UploadedFile{Name: name, ContentType: "image/png", Data: []byte("(file content)")}
}
