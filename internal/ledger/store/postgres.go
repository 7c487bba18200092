package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/lib/pq"

	"flightsurety/internal/ledger"
	id "flightsurety/pkg/domain"
	"flightsurety/pkg/platform/sentinel"
	txctx "flightsurety/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

// defaultTxTimeout bounds a ledger transaction when the caller set no deadline.
const defaultTxTimeout = 5 * time.Second

// Migrate creates the ledger tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate ledger schema: %w", err)
	}
	return nil
}

// PostgresStore is a ledger gateway backed by PostgreSQL.
// This store is pure I/O; every protocol rule lives in the services.
type PostgresStore struct {
	db        *sql.DB
	txTimeout time.Duration
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithTxTimeout bounds transactions started without a deadline.
func WithTxTimeout(d time.Duration) PostgresOption {
	return func(s *PostgresStore) {
		s.txTimeout = d
	}
}

// NewPostgres constructs a PostgreSQL-backed ledger gateway.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db, txTimeout: defaultTxTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunInTx runs fn in a SERIALIZABLE transaction. Nested calls join the outer
// transaction.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if txctx.Active(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return unavailable("begin ledger tx", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txctx.WithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return unavailable("commit ledger tx", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Airlines
// -----------------------------------------------------------------------------

func (s *PostgresStore) ReadAirline(ctx context.Context, airline id.AirlineID) (*ledger.Airline, error) {
	query := `
		SELECT id, name, admission, funding, funds::text, created_at, updated_at
		FROM airlines
		WHERE id = $1` + txctx.ForUpdate(ctx)
	var (
		a     ledger.Airline
		rawID uuid.UUID
		funds string
	)
	err := txctx.Conn(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(airline)).
		Scan(&rawID, &a.Name, &a.Admission, &a.Funding, &funds, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, classify("read airline", err)
	}
	a.ID = id.AirlineID(rawID)
	if a.Funds, err = parseNumeric(funds); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PostgresStore) WriteAirline(ctx context.Context, a *ledger.Airline) error {
	query := `
		INSERT INTO airlines (id, name, admission, funding, funds, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			admission = EXCLUDED.admission,
			funding = EXCLUDED.funding,
			funds = EXCLUDED.funds,
			updated_at = EXCLUDED.updated_at
	`
	_, err := txctx.Conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(a.ID), a.Name, string(a.Admission), string(a.Funding), numeric(a.Funds), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return classify("write airline", err)
	}
	return nil
}

func (s *PostgresStore) CountRegisteredAirlines(ctx context.Context) (int, error) {
	var count int
	err := txctx.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM airlines WHERE admission = $1`, string(ledger.AdmissionRegistered)).Scan(&count)
	if err != nil {
		return 0, classify("count registered airlines", err)
	}
	return count, nil
}

func (s *PostgresStore) AddAdmissionVote(ctx context.Context, candidate, voter id.AirlineID) (bool, error) {
	res, err := txctx.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO admission_votes (candidate_id, voter_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, uuid.UUID(candidate), uuid.UUID(voter))
	if err != nil {
		return false, classify("add admission vote", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, classify("add admission vote rows affected", err)
	}
	return rows > 0, nil
}

func (s *PostgresStore) CountAdmissionVotes(ctx context.Context, candidate id.AirlineID) (int, error) {
	var count int
	err := txctx.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM admission_votes WHERE candidate_id = $1`, uuid.UUID(candidate)).Scan(&count)
	if err != nil {
		return 0, classify("count admission votes", err)
	}
	return count, nil
}

// -----------------------------------------------------------------------------
// Flights
// -----------------------------------------------------------------------------

func (s *PostgresStore) ReadFlight(ctx context.Context, key id.FlightKey) (*ledger.Flight, error) {
	query := `
		SELECT status, registered_at, finalized_at
		FROM flights
		WHERE airline_id = $1 AND designator = $2 AND departs_at = $3` + txctx.ForUpdate(ctx)
	var (
		f         = ledger.Flight{Key: key}
		status    int16
		finalized sql.NullTime
	)
	err := txctx.Conn(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(key.Airline), key.Designator, key.Timestamp).
		Scan(&status, &f.RegisteredAt, &finalized)
	if err != nil {
		return nil, classify("read flight", err)
	}
	f.Status = id.StatusCode(status)
	if finalized.Valid {
		f.FinalizedAt = &finalized.Time
	}
	return &f, nil
}

func (s *PostgresStore) WriteFlight(ctx context.Context, f *ledger.Flight) error {
	query := `
		INSERT INTO flights (airline_id, designator, departs_at, status, registered_at, finalized_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (airline_id, designator, departs_at) DO UPDATE SET
			status = EXCLUDED.status,
			finalized_at = EXCLUDED.finalized_at
	`
	_, err := txctx.Conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(f.Key.Airline), f.Key.Designator, f.Key.Timestamp, int16(f.Status), f.RegisteredAt, nullTime(f.FinalizedAt))
	if err != nil {
		return classify("write flight", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Oracles
// -----------------------------------------------------------------------------

func (s *PostgresStore) ReadOracle(ctx context.Context, oracle id.OracleID) (*ledger.Oracle, error) {
	query := `
		SELECT idx0, idx1, idx2, fee::text, registered_at
		FROM oracles
		WHERE id = $1` + txctx.ForUpdate(ctx)
	var (
		o          = ledger.Oracle{ID: oracle}
		i0, i1, i2 int16
		fee        string
	)
	err := txctx.Conn(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(oracle)).Scan(&i0, &i1, &i2, &fee, &o.RegisteredAt)
	if err != nil {
		return nil, classify("read oracle", err)
	}
	o.Indexes = [ledger.IndexCount]uint8{uint8(i0), uint8(i1), uint8(i2)}
	if o.Fee, err = parseNumeric(fee); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *PostgresStore) WriteOracle(ctx context.Context, o *ledger.Oracle) error {
	query := `
		INSERT INTO oracles (id, idx0, idx1, idx2, fee, registered_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6)
		ON CONFLICT (id) DO UPDATE SET
			idx0 = EXCLUDED.idx0,
			idx1 = EXCLUDED.idx1,
			idx2 = EXCLUDED.idx2,
			fee = EXCLUDED.fee,
			registered_at = EXCLUDED.registered_at
	`
	_, err := txctx.Conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(o.ID), int16(o.Indexes[0]), int16(o.Indexes[1]), int16(o.Indexes[2]), numeric(o.Fee), o.RegisteredAt)
	if err != nil {
		return classify("write oracle", err)
	}
	return nil
}

func (s *PostgresStore) OraclesByIndex(ctx context.Context, index uint8) ([]id.OracleID, error) {
	rows, err := txctx.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT id FROM oracles
		WHERE idx0 = $1 OR idx1 = $1 OR idx2 = $1
		ORDER BY id::text
	`, int16(index))
	if err != nil {
		return nil, classify("oracles by index", err)
	}
	defer rows.Close()

	var out []id.OracleID
	for rows.Next() {
		var raw uuid.UUID
		if err := rows.Scan(&raw); err != nil {
			return nil, classify("scan oracle id", err)
		}
		out = append(out, id.OracleID(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate oracles", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// Status requests
// -----------------------------------------------------------------------------

const requestColumns = `request_index, airline_id, designator, departs_at, open, requester_id, opened_at, closed_at, outcome, abandoned, round`

func (s *PostgresStore) ReadRequest(ctx context.Context, key ledger.RequestKey) (*ledger.StatusRequest, error) {
	query := `SELECT ` + requestColumns + `
		FROM status_requests
		WHERE request_index = $1 AND airline_id = $2 AND designator = $3 AND departs_at = $4` + txctx.ForUpdate(ctx)
	r, err := scanRequest(txctx.Conn(ctx, s.db).QueryRowContext(ctx, query,
		int16(key.Index), uuid.UUID(key.Flight.Airline), key.Flight.Designator, key.Flight.Timestamp))
	if err != nil {
		return nil, classify("read status request", err)
	}
	return r, nil
}

func (s *PostgresStore) WriteRequest(ctx context.Context, r *ledger.StatusRequest) error {
	query := `
		INSERT INTO status_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (request_index, airline_id, designator, departs_at) DO UPDATE SET
			round = EXCLUDED.round,
			open = EXCLUDED.open,
			requester_id = EXCLUDED.requester_id,
			opened_at = EXCLUDED.opened_at,
			closed_at = EXCLUDED.closed_at,
			outcome = EXCLUDED.outcome,
			abandoned = EXCLUDED.abandoned
	`
	_, err := txctx.Conn(ctx, s.db).ExecContext(ctx, query,
		int16(r.Key.Index), uuid.UUID(r.Key.Flight.Airline), r.Key.Flight.Designator, r.Key.Flight.Timestamp,
		r.Open, uuid.UUID(r.Requester), r.OpenedAt, nullTime(r.ClosedAt), int16(r.Outcome), r.Abandoned, int64(r.Round))
	if err != nil {
		return classify("write status request", err)
	}
	return nil
}

func (s *PostgresStore) ListOpenRequests(ctx context.Context) ([]*ledger.StatusRequest, error) {
	rows, err := txctx.Conn(ctx, s.db).QueryContext(ctx, `SELECT `+requestColumns+`
		FROM status_requests
		WHERE open
		ORDER BY opened_at`)
	if err != nil {
		return nil, classify("list open requests", err)
	}
	defer rows.Close()

	var out []*ledger.StatusRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, classify("scan status request", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate open requests", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*ledger.StatusRequest, error) {
	var (
		r         ledger.StatusRequest
		index     int16
		airline   uuid.UUID
		requester uuid.UUID
		closed    sql.NullTime
		outcome   int16
		round     int64
	)
	err := row.Scan(&index, &airline, &r.Key.Flight.Designator, &r.Key.Flight.Timestamp,
		&r.Open, &requester, &r.OpenedAt, &closed, &outcome, &r.Abandoned, &round)
	if err != nil {
		return nil, err
	}
	r.Key.Index = uint8(index)
	r.Key.Flight.Airline = id.AirlineID(airline)
	r.Requester = id.AccountID(requester)
	r.Outcome = id.StatusCode(outcome)
	r.Round = uint32(round)
	if closed.Valid {
		r.ClosedAt = &closed.Time
	}
	return &r, nil
}

// -----------------------------------------------------------------------------
// Policies and transfers
// -----------------------------------------------------------------------------

const policyColumns = `passenger_id, airline_id, designator, departs_at, premium::text, credit::text, settled, purchased_at, updated_at`

func (s *PostgresStore) ReadPolicy(ctx context.Context, passenger id.PassengerID, flight id.FlightKey) (*ledger.Policy, error) {
	query := `SELECT ` + policyColumns + `
		FROM policies
		WHERE passenger_id = $1 AND airline_id = $2 AND designator = $3 AND departs_at = $4` + txctx.ForUpdate(ctx)
	p, err := scanPolicy(txctx.Conn(ctx, s.db).QueryRowContext(ctx, query,
		uuid.UUID(passenger), uuid.UUID(flight.Airline), flight.Designator, flight.Timestamp))
	if err != nil {
		return nil, classify("read policy", err)
	}
	return p, nil
}

func (s *PostgresStore) WritePolicy(ctx context.Context, p *ledger.Policy) error {
	query := `
		INSERT INTO policies (passenger_id, airline_id, designator, departs_at, premium, credit, settled, purchased_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8, $9)
		ON CONFLICT (passenger_id, airline_id, designator, departs_at) DO UPDATE SET
			premium = EXCLUDED.premium,
			credit = EXCLUDED.credit,
			settled = EXCLUDED.settled,
			updated_at = EXCLUDED.updated_at
	`
	_, err := txctx.Conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(p.Passenger), uuid.UUID(p.Flight.Airline), p.Flight.Designator, p.Flight.Timestamp,
		numeric(p.Premium), numeric(p.Credit), p.Settled, p.PurchasedAt, p.UpdatedAt)
	if err != nil {
		return classify("write policy", err)
	}
	return nil
}

func (s *PostgresStore) ListPoliciesByFlight(ctx context.Context, flight id.FlightKey) ([]*ledger.Policy, error) {
	return s.listPolicies(ctx, `airline_id = $1 AND designator = $2 AND departs_at = $3`,
		uuid.UUID(flight.Airline), flight.Designator, flight.Timestamp)
}

func (s *PostgresStore) ListPoliciesByPassenger(ctx context.Context, passenger id.PassengerID) ([]*ledger.Policy, error) {
	return s.listPolicies(ctx, `passenger_id = $1`, uuid.UUID(passenger))
}

func (s *PostgresStore) listPolicies(ctx context.Context, where string, args ...any) ([]*ledger.Policy, error) {
	query := `SELECT ` + policyColumns + `
		FROM policies
		WHERE ` + where + `
		ORDER BY passenger_id::text, airline_id::text, designator, departs_at` + txctx.ForUpdate(ctx)
	rows, err := txctx.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("list policies", err)
	}
	defer rows.Close()

	var out []*ledger.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, classify("scan policy", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate policies", err)
	}
	return out, nil
}

func scanPolicy(row rowScanner) (*ledger.Policy, error) {
	var (
		p               ledger.Policy
		passenger       uuid.UUID
		airline         uuid.UUID
		premium, credit string
	)
	err := row.Scan(&passenger, &airline, &p.Flight.Designator, &p.Flight.Timestamp,
		&premium, &credit, &p.Settled, &p.PurchasedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Passenger = id.PassengerID(passenger)
	p.Flight.Airline = id.AirlineID(airline)
	if p.Premium, err = parseNumeric(premium); err != nil {
		return nil, err
	}
	if p.Credit, err = parseNumeric(credit); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) Transfer(ctx context.Context, to id.AccountID, amount *uint256.Int) error {
	_, err := txctx.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO transfers (account_id, amount, created_at)
		VALUES ($1, $2::numeric, $3)
	`, uuid.UUID(to), numeric(amount), time.Now())
	if err != nil {
		return classify("transfer", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Operating status
// -----------------------------------------------------------------------------

func (s *PostgresStore) ReadOperational(ctx context.Context) (bool, error) {
	query := `SELECT operational FROM protocol_state WHERE singleton` + txctx.ForUpdate(ctx)
	var operational bool
	err := txctx.Conn(ctx, s.db).QueryRowContext(ctx, query).Scan(&operational)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, classify("read operating status", err)
	}
	return operational, nil
}

func (s *PostgresStore) WriteOperational(ctx context.Context, operational bool) error {
	_, err := txctx.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO protocol_state (singleton, operational, updated_at)
		VALUES (TRUE, $1, $2)
		ON CONFLICT (singleton) DO UPDATE SET
			operational = EXCLUDED.operational,
			updated_at = EXCLUDED.updated_at
	`, operational, time.Now())
	if err != nil {
		return classify("write operating status", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func numeric(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func parseNumeric(raw string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(raw)
	if err != nil {
		return nil, fmt.Errorf("parse ledger amount %q: %w", raw, err)
	}
	return v, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

func classify(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, sentinel.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrConflict, err)
	}
	return unavailable(op, err)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
}
