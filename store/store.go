// Package store is the front end's view of the bills backend. Controllers
// only see the Bills interface; whether the bills come from the JSON API or
// straight from the repository is decided when the server wires a request.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/JoshUrdnb/Billed/bill"
)

type Bills interface {
	List(ctx context.Context) ([]bill.Bill, error)
	Create(ctx context.Context, file bill.UploadedFile, b bill.Bill) (*CreatedBill, error)
	Update(ctx context.Context, b bill.Bill) (*bill.Bill, error)
}

// CreatedBill is a stored bill together with the key of its receipt.
type CreatedBill struct {
	Key string `json:"key"`
	bill.Bill
}

// RemoteError is a failed call to the bills backend. Its message is the one
// shown to employees, e.g. "Erreur 404".
type RemoteError struct {
	Status int
	Detail string
	Err    error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("Erreur %d", e.Status)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// StatusOf maps a backend failure to the HTTP status that describes it.
func StatusOf(err error) int {
	var remote *RemoteError
	var perr *bill.ParseError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &remote):
		return remote.Status
	case errors.Is(err, bill.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, bill.ErrReceiptFormat):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &perr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func remote(err error) error {
	if err == nil {
		return nil
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return err
	}
	return &RemoteError{Status: StatusOf(err), Detail: err.Error(), Err: err}
}
