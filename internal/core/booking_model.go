package core

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// CreateBookingRequest is the payload for booking a new Lorry Receipt.
// Leave ManualLRNumber empty to have the next number allocated from the branch counter.
type CreateBookingRequest struct {
	CompanyCode    string      `json:"company_code" validate:"required,excludes=/" jsonschema_description:"Company code the booking belongs to (e.g. 'CONAG')"`
	BranchCode     string      `json:"branch_code" validate:"required,excludes=/" jsonschema_description:"Booking branch code (e.g. 'HO')"`
	BookingDate    string      `json:"booking_date,omitempty" validate:"omitempty,datetime=2006-01-02" jsonschema_description:"Booking date in YYYY-MM-DD format. Defaults to today. Decides the financial year."`
	ManualLRNumber string      `json:"manual_lr_number,omitempty" validate:"omitempty,max=64" jsonschema_description:"Hand-written LR number. Checked for uniqueness within the company instead of allocating one."`
	Consignor      string      `json:"consignor" validate:"required,max=200" jsonschema_description:"Sender of the goods"`
	Consignee      string      `json:"consignee" validate:"required,max=200" jsonschema_description:"Receiver of the goods"`
	FromLocation   string      `json:"from_location" validate:"required,max=100" jsonschema_description:"Origin station"`
	ToLocation     string      `json:"to_location" validate:"required,max=100" jsonschema_description:"Destination station"`
	Packages       int         `json:"packages" validate:"gte=0" jsonschema_description:"Number of packages"`
	Weight         string      `json:"weight,omitempty" jsonschema_description:"Actual weight in kg as a decimal string"`
	Freight        string      `json:"freight,omitempty" jsonschema_description:"Freight amount as a decimal string (e.g. '1500.00')"`
	PaymentMode    PaymentMode `json:"payment_mode" validate:"required,oneof=PAID TO_PAY TO_BE_BILLED" jsonschema:"enum=PAID,enum=TO_PAY,enum=TO_BE_BILLED" jsonschema_description:"Who pays the freight"`
}

var bookingValidate = validator.New(validator.WithRequiredStructEnabled())

// Normalize trims free-text fields and fills defaults for empty amounts.
func (r *CreateBookingRequest) Normalize() {
	r.CompanyCode = CanonicalCode(r.CompanyCode)
	r.BranchCode = CanonicalCode(r.BranchCode)
	r.BookingDate = strings.TrimSpace(r.BookingDate)
	r.ManualLRNumber = strings.TrimSpace(r.ManualLRNumber)
	r.Consignor = strings.TrimSpace(r.Consignor)
	r.Consignee = strings.TrimSpace(r.Consignee)
	r.FromLocation = strings.TrimSpace(r.FromLocation)
	r.ToLocation = strings.TrimSpace(r.ToLocation)
	r.PaymentMode = PaymentMode(strings.ToUpper(strings.TrimSpace(string(r.PaymentMode))))

	if strings.TrimSpace(r.Weight) == "" {
		r.Weight = "0"
	}
	if strings.TrimSpace(r.Freight) == "" {
		r.Freight = "0"
	}
}

// Validate checks struct tags and the decimal amounts.
func (r *CreateBookingRequest) Validate() error {
	if err := bookingValidate.Struct(r); err != nil {
		return WithKind(ErrInvalidBooking, err, "booking request")
	}
	if _, err := parseAmount("weight", r.Weight); err != nil {
		return err
	}
	if _, err := parseAmount("freight", r.Freight); err != nil {
		return err
	}
	return nil
}

// date returns the booking date, or now when none was given.
func (r *CreateBookingRequest) date(now time.Time) (time.Time, error) {
	if r.BookingDate == "" {
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01-02", r.BookingDate)
	if err != nil {
		return time.Time{}, WithKind(ErrInvalidBooking, err, "booking date %q", r.BookingDate)
	}
	return t, nil
}

func parseAmount(field, s string) (decimal.Decimal, error) {
	amt, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, WithKind(ErrInvalidBooking, err, "invalid %s %q", field, s)
	}
	if amt.IsNegative() {
		return decimal.Zero, errors.Wrapf(ErrInvalidBooking, "%s cannot be negative", field)
	}
	return amt, nil
}
