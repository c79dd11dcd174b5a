// Package routes names the screens of the application.
package routes

const (
	Login   = "/"
	Bills   = "/employee/bills"
	NewBill = "/employee/bill/new"
)

// Receipt is the address that opens the receipt modal for one bill.
func Receipt(billID string) string {
	return Bills + "/" + billID + "/receipt"
}

const Export = Bills + "/export.xlsx"
