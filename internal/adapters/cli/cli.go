// Package cli is the lrctl command tree. Commands print plain text by default and
// indented JSON with --json.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"transwise/internal/app"
	"transwise/internal/auth"
	"transwise/internal/core"
)

// Backend is what the commands need from the process. Service and Tokens are
// only called by commands that use them, so "fy" runs without any store configured.
type Backend interface {
	Service(ctx context.Context) (app.ApplicationService, error)
	Tokens() (*auth.JWTService, error)
	Migrate(ctx context.Context) error
}

type runner struct {
	backend Backend
	asJSON  bool
}

// NewRootCommand builds the lrctl command tree over backend.
func NewRootCommand(backend Backend) *cobra.Command {
	r := &runner{backend: backend}

	root := &cobra.Command{
		Use:   "lrctl",
		Short: "Allocate and inspect Lorry Receipt numbers",
		Long: `lrctl drives the LR numbering service from the command line.

LR numbers look like COMPANY/BRANCH/2024-25/0001. Each (company, branch,
financial year) has its own counter; the financial year starts on 1 April.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&r.asJSON, "json", false, "print results as JSON")

	root.AddCommand(
		r.fyCmd(),
		r.allocateCmd(),
		r.currentCmd(),
		r.checkCmd(),
		r.bookCmd(),
		r.bookingsCmd(),
		r.lookupCmd(),
		r.countersCmd(),
		r.auditCmd(),
		r.tokenCmd(),
		r.migrateCmd(),
	)
	return root
}

func (r *runner) fyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fy [YYYY-MM-DD]",
		Short: "Print the financial year of a date (default today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date := ""
			if len(args) == 1 {
				date = args[0]
			}
			fy, err := core.ParseFinancialYearDate(date)
			if err != nil {
				return err
			}
			return r.print(cmd, app.FinancialYearResult{Date: date, FinancialYear: fy}, func(w io.Writer) {
				fmt.Fprintln(w, fy)
			})
		},
	}
}

func (r *runner) allocateCmd() *cobra.Command {
	var req app.AllocateRequest
	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Allocate the next LR number of a branch",
		Example: `  lrctl allocate --company CONAG --branch HO
  lrctl allocate --company CONAG --branch HO --fy 2024-25`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := r.backend.Service(cmd.Context())
			if err != nil {
				return err
			}
			result, err := svc.AllocateLRNumber(cmd.Context(), req)
			if err != nil {
				return err
			}
			return r.print(cmd, result, func(w io.Writer) {
				fmt.Fprintln(w, result.LRNumber)
			})
		},
	}
	cmd.Flags().StringVar(&req.CompanyCode, "company", "", "company code (required)")
	cmd.Flags().StringVar(&req.BranchCode, "branch", "", "branch code (required)")
	cmd.Flags().StringVar(&req.FinancialYear, "fy", "", "financial year label, e.g. 2024-25 (default current)")
	_ = cmd.MarkFlagRequired("company")
	_ = cmd.MarkFlagRequired("branch")
	return cmd
}

func (r *runner) currentCmd() *cobra.Command {
	var scope core.ScopeKey
	cmd := &cobra.Command{
		Use:   "current",
		Short: "Show the last allocated serial of a counter (may be stale)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if scope.FinancialYear == "" {
				scope.FinancialYear = core.ResolveFinancialYearNow()
			}
			svc, err := r.backend.Service(cmd.Context())
			if err != nil {
				return err
			}
			result, err := svc.GetCurrentSerial(cmd.Context(), scope)
			if err != nil {
				return err
			}
			return r.print(cmd, result, func(w io.Writer) {
				fmt.Fprintf(w, "%s\t%d\n", result.Scope, result.CurrentSerial)
			})
		},
	}
	cmd.Flags().StringVar(&scope.CompanyCode, "company", "", "company code (required)")
	cmd.Flags().StringVar(&scope.BranchCode, "branch", "", "branch code (required)")
	cmd.Flags().StringVar(&scope.FinancialYear, "fy", "", "financial year label (default current)")
	_ = cmd.MarkFlagRequired("company")
	_ = cmd.MarkFlagRequired("branch")
	return cmd
}

func (r *runner) checkCmd() *cobra.Command {
	var company string
	cmd := &cobra.Command{
		Use:   "check LR_NUMBER",
		Short: "Check whether a manual LR number is still free in a company (advisory)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := r.backend.Service(cmd.Context())
			if err != nil {
				return err
			}
			result, err := svc.CheckLRNumber(cmd.Context(), company, args[0])
			if err != nil {
				return err
			}
			return r.print(cmd, result, func(w io.Writer) {
				if result.Unique {
					fmt.Fprintf(w, "%s is free\n", result.LRNumber)
				} else {
					fmt.Fprintf(w, "%s is already used\n", result.LRNumber)
				}
			})
		},
	}
	cmd.Flags().StringVar(&company, "company", "", "company code (required)")
	_ = cmd.MarkFlagRequired("company")
	return cmd
}

func (r *runner) bookCmd() *cobra.Command {
	var (
		req  core.CreateBookingRequest
		file string
	)
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Create a booking, allocating its LR number unless --manual is given",
		Long: `Create a booking from flags, or from a JSON payload with --file
(use "-" for stdin). Flags given on the command line override the payload.
See GET /api/schemas/booking for the payload schema.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file != "" {
				payload := req
				if err := readJSON(cmd, file, &payload); err != nil {
					return err
				}
				cmd.Flags().Visit(func(f *pflag.Flag) { overrideBookingField(&payload, req, f.Name) })
				req = payload
			}
			svc, err := r.backend.Service(cmd.Context())
			if err != nil {
				return err
			}
			result, err := svc.CreateBooking(cmd.Context(), req)
			if err != nil {
				return err
			}
			return r.print(cmd, result, func(w io.Writer) {
				fmt.Fprintln(w, result.Booking.LRNumber)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&file, "file", "", "read the booking payload from a JSON file (- for stdin)")
	f.StringVar(&req.CompanyCode, "company", "", "company code")
	f.StringVar(&req.BranchCode, "branch", "", "branch code")
	f.StringVar(&req.BookingDate, "date", "", "booking date YYYY-MM-DD (default today)")
	f.StringVar(&req.ManualLRNumber, "manual", "", "manually entered LR number")
	f.StringVar(&req.Consignor, "consignor", "", "consignor name")
	f.StringVar(&req.Consignee, "consignee", "", "consignee name")
	f.StringVar(&req.FromLocation, "from", "", "origin station")
	f.StringVar(&req.ToLocation, "to", "", "destination station")
	f.IntVar(&req.Packages, "packages", 0, "number of packages")
	f.StringVar(&req.Weight, "weight", "", "weight in kg")
	f.StringVar(&req.Freight, "freight", "", "freight amount")
	f.StringVar((*string)(&req.PaymentMode), "payment", string(core.PaymentModeToPay), "PAID, TO_PAY or TO_BE_BILLED")
	return cmd
}

func (r *runner) bookingsCmd() *cobra.Command {
	var filter core.BookingFilter
	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "List bookings of a company, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := r.backend.Service(cmd.Context())
			if err != nil {
				return err
			}
			result, err := svc.ListBookings(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return r.print(cmd, result, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "LR NUMBER\tDATE\tFROM\tTO\tCONSIGNEE\tFREIGHT\tMODE")
				for _, b := range result.Bookings {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						b.LRNumber, b.BookingDate.Format("2006-01-02"), b.FromLocation, b.ToLocation,
						b.Consignee, b.Freight.StringFixed(2), b.PaymentMode)
				}
				tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&filter.CompanyCode, "company", "", "company code (required)")
	cmd.Flags().StringVar(&filter.BranchCode, "branch", "", "only this branch")
	cmd.Flags().StringVar(&filter.FinancialYear, "fy", "", "only this financial year")
	cmd.Flags().IntVar(&filter.Limit, "limit", 100, "maximum rows (max 500)")
	_ = cmd.MarkFlagRequired("company")
	return cmd
}

func (r *runner) lookupCmd() *cobra.Command {
	var company string
	cmd := &cobra.Command{
		Use:   "lookup LR_NUMBER",
		Short: "Show the booking carrying an LR number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := r.backend.Service(cmd.Context())
			if err != nil {
				return err
			}
			result, err := svc.GetBooking(cmd.Context(), company, args[0])
			if err != nil {
				return err
			}
			b := result.Booking
			return r.print(cmd, result, func(w io.Writer) {
				fmt.Fprintf(w, "LR number : %s\n", b.LRNumber)
				fmt.Fprintf(w, "Branch    : %s (%s)\n", b.BranchCode, b.FinancialYear)
				fmt.Fprintf(w, "Date      : %s\n", b.BookingDate.Format("2006-01-02"))
				fmt.Fprintf(w, "Route     : %s -> %s\n", b.FromLocation, b.ToLocation)
				fmt.Fprintf(w, "Consignor : %s\n", b.Consignor)
				fmt.Fprintf(w, "Consignee : %s\n", b.Consignee)
				fmt.Fprintf(w, "Packages  : %d, %s kg\n", b.Packages, b.Weight.String())
				fmt.Fprintf(w, "Freight   : %s (%s)\n", b.Freight.StringFixed(2), b.PaymentMode)
			})
		},
	}
	cmd.Flags().StringVar(&company, "company", "", "company code (required)")
	_ = cmd.MarkFlagRequired("company")
	return cmd
}

func (r *runner) countersCmd() *cobra.Command {
	var company string
	cmd := &cobra.Command{
		Use:   "counters",
		Short: "List LR counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := r.backend.Service(cmd.Context())
			if err != nil {
				return err
			}
			result, err := svc.ListCounters(cmd.Context(), company)
			if err != nil {
				return err
			}
			return r.print(cmd, result, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "SCOPE\tCURRENT\tNEXT")
				for _, c := range result.Counters {
					fmt.Fprintf(tw, "%s\t%d\t%s\n", c.Scope, c.CurrentSerial, core.FormatLRNumber(c.Scope, c.CurrentSerial+1))
				}
				tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&company, "company", "", "only this company")
	return cmd
}

func (r *runner) auditCmd() *cobra.Command {
	var company string
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Report counters that are behind LR numbers already booked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := r.backend.Service(cmd.Context())
			if err != nil {
				return err
			}
			result, err := svc.AuditCounters(cmd.Context(), company)
			if err != nil {
				return err
			}
			if err := r.print(cmd, result, func(w io.Writer) {
				fmt.Fprintf(w, "checked %d counters against %d bookings\n", result.CountersChecked, result.BookingsChecked)
				for _, f := range result.Findings {
					fmt.Fprintf(w, "BEHIND %s: counter at %d, %s already booked\n", f.Scope, f.CurrentSerial, f.LRNumber)
				}
			}); err != nil {
				return err
			}
			if len(result.Findings) > 0 {
				return fmt.Errorf("%d counter(s) behind issued LR numbers", len(result.Findings))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&company, "company", "", "company code (required)")
	_ = cmd.MarkFlagRequired("company")
	return cmd
}

func (r *runner) tokenCmd() *cobra.Command {
	var subject, company, role string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := r.backend.Tokens()
			if err != nil {
				return err
			}
			signed, expires, err := tokens.Issue(subject, company, role)
			if err != nil {
				return err
			}
			type tokenResult struct {
				Token     string `json:"token"`
				ExpiresAt string `json:"expires_at"`
			}
			res := tokenResult{Token: signed, ExpiresAt: expires.UTC().Format("2006-01-02T15:04:05Z")}
			return r.print(cmd, res, func(w io.Writer) {
				fmt.Fprintln(w, signed)
			})
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "who the token is for (required)")
	cmd.Flags().StringVar(&company, "company", auth.AllCompanies, "restrict the token to one company")
	cmd.Flags().StringVar(&role, "role", "clerk", "role recorded in the token")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func (r *runner) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the schema of the configured stores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.backend.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations complete")
			return nil
		},
	}
}

// print writes v as indented JSON with --json, otherwise calls text.
func (r *runner) print(cmd *cobra.Command, v any, text func(io.Writer)) error {
	w := cmd.OutOrStdout()
	if r.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

func readJSON(cmd *cobra.Command, path string, v any) error {
	var in io.Reader
	if path == "-" {
		in = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		in = f
	}
	dec := json.NewDecoder(in)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid booking JSON: %w", err)
	}
	return nil
}

// overrideBookingField copies the field behind flag name from flags into dst.
func overrideBookingField(dst *core.CreateBookingRequest, flags core.CreateBookingRequest, name string) {
	switch strings.ToLower(name) {
	case "company":
		dst.CompanyCode = flags.CompanyCode
	case "branch":
		dst.BranchCode = flags.BranchCode
	case "date":
		dst.BookingDate = flags.BookingDate
	case "manual":
		dst.ManualLRNumber = flags.ManualLRNumber
	case "consignor":
		dst.Consignor = flags.Consignor
	case "consignee":
		dst.Consignee = flags.Consignee
	case "from":
		dst.FromLocation = flags.FromLocation
	case "to":
		dst.ToLocation = flags.ToLocation
	case "packages":
		dst.Packages = flags.Packages
	case "weight":
		dst.Weight = flags.Weight
	case "freight":
		dst.Freight = flags.Freight
	case "payment":
		dst.PaymentMode = flags.PaymentMode
	}
}
