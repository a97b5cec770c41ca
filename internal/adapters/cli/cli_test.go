package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transwise/internal/app"
	"transwise/internal/auth"
	"transwise/internal/config"
	"transwise/internal/core"
	"transwise/internal/store"
)

type fakeBackend struct {
	svc      app.ApplicationService
	counters *store.MemoryCounterStore
	bookings *store.MemoryBookingStore
	migrated bool
}

func newFakeBackend() *fakeBackend {
	counters := store.NewMemoryCounterStore()
	bookings := store.NewMemoryBookingStore()
	return &fakeBackend{
		svc:      app.NewAppService(counters, bookings, counters, nil),
		counters: counters,
		bookings: bookings,
	}
}

func (b *fakeBackend) Service(context.Context) (app.ApplicationService, error) { return b.svc, nil }

func (b *fakeBackend) Tokens() (*auth.JWTService, error) {
	return auth.NewJWTService(config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour, Issuer: "transwise"}), nil
}

func (b *fakeBackend) Migrate(context.Context) error {
	b.migrated = true
	return nil
}

func run(t *testing.T, backend Backend, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(backend)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestFY(t *testing.T) {
	out, err := run(t, newFakeBackend(), "fy", "2025-04-01")
	require.NoError(t, err)
	assert.Equal(t, "2025-26\n", out)

	_, err = run(t, newFakeBackend(), "fy", "01/04/2025")
	assert.ErrorIs(t, err, core.ErrInvalidScope)
}

func TestAllocateAndCurrent(t *testing.T) {
	b := newFakeBackend()

	out, err := run(t, b, "allocate", "--company", "CONAG", "--branch", "HO", "--fy", "2024-25")
	require.NoError(t, err)
	assert.Equal(t, "CONAG/HO/2024-25/0001\n", out)

	out, err = run(t, b, "allocate", "--company", "CONAG", "--branch", "HO", "--fy", "2024-25", "--json")
	require.NoError(t, err)
	var res app.AllocationResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "CONAG/HO/2024-25/0002", res.LRNumber)

	out, err = run(t, b, "current", "--company", "CONAG", "--branch", "HO", "--fy", "2024-25")
	require.NoError(t, err)
	assert.Equal(t, "CONAG/HO/2024-25\t2\n", out)

	out, err = run(t, b, "counters")
	require.NoError(t, err)
	assert.Contains(t, out, "CONAG/HO/2024-25/0003")
}

func TestAllocate_RequiresFlags(t *testing.T) {
	_, err := run(t, newFakeBackend(), "allocate", "--company", "CONAG")
	assert.Error(t, err)
}

func TestBookFromFileWithOverride(t *testing.T) {
	b := newFakeBackend()
	payload := `{
		"company_code": "CONAG",
		"branch_code": "HO",
		"booking_date": "2024-06-15",
		"consignor": "Acme Traders",
		"consignee": "Globex",
		"from_location": "Mumbai",
		"to_location": "Pune",
		"packages": 2,
		"freight": "800",
		"payment_mode": "PAID"
	}`
	path := filepath.Join(t.TempDir(), "booking.json")
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	out, err := run(t, b, "book", "--file", path, "--branch", "BOM")
	require.NoError(t, err)
	assert.Equal(t, "CONAG/BOM/2024-25/0001\n", out)

	out, err = run(t, b, "lookup", "--company", "CONAG", "CONAG/BOM/2024-25/0001")
	require.NoError(t, err)
	assert.Contains(t, out, "Route     : Mumbai -> Pune")
	assert.Contains(t, out, "Freight   : 800.00 (PAID)")

	out, err = run(t, b, "bookings", "--company", "CONAG")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "CONAG/BOM/2024-25/0001"))
}

func TestBook_UnknownFieldRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "booking.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"lr":"x"}`), 0o600))

	_, err := run(t, newFakeBackend(), "book", "--file", path)
	assert.Error(t, err)
}

func TestBookManualAndCheck(t *testing.T) {
	b := newFakeBackend()
	args := []string{"book", "--company", "CONAG", "--branch", "HO", "--date", "2024-06-15",
		"--manual", "HAND-7", "--consignor", "A", "--consignee", "B", "--from", "X", "--to", "Y"}

	out, err := run(t, b, args...)
	require.NoError(t, err)
	assert.Equal(t, "HAND-7\n", out)

	_, err = run(t, b, args...)
	assert.ErrorIs(t, err, core.ErrDuplicateLRNumber)

	out, err = run(t, b, "check", "--company", "CONAG", "HAND-7")
	require.NoError(t, err)
	assert.Equal(t, "HAND-7 is already used\n", out)

	out, err = run(t, b, "check", "--company", "CONAG", "HAND-8")
	require.NoError(t, err)
	assert.Equal(t, "HAND-8 is free\n", out)
}

func TestAudit(t *testing.T) {
	b := newFakeBackend()
	ctx := context.Background()

	out, err := run(t, b, "audit", "--company", "CONAG")
	require.NoError(t, err)
	assert.Contains(t, out, "checked 0 counters against 0 bookings")

	// A booking carrying a machine-format number the counter never handed out.
	require.NoError(t, b.bookings.Insert(ctx, &core.Booking{
		ID:            "b-1",
		CompanyCode:   "CONAG",
		BranchCode:    "HO",
		FinancialYear: "2024-25",
		LRNumber:      "CONAG/HO/2024-25/0005",
		BookingDate:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:     time.Now(),
	}))

	out, err = run(t, b, "audit", "--company", "CONAG")
	assert.Error(t, err)
	assert.Contains(t, out, "BEHIND CONAG/HO/2024-25: counter at 0, CONAG/HO/2024-25/0005 already booked")
}

func TestTokenAndMigrate(t *testing.T) {
	b := newFakeBackend()

	out, err := run(t, b, "token", "--subject", "clerk-1", "--company", "CONAG")
	require.NoError(t, err)
	tokens, _ := b.Tokens()
	claims, err := tokens.Validate(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "CONAG", claims.Company)
	assert.Equal(t, "clerk", claims.Role)

	out, err = run(t, b, "migrate")
	require.NoError(t, err)
	assert.True(t, b.migrated)
	assert.Equal(t, "migrations complete\n", out)
}
