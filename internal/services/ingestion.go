package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/epeers/reconcile/internal/cache"
	"github.com/epeers/reconcile/internal/models"
	"github.com/epeers/reconcile/internal/repository"
	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// IngestReport tallies the data-quality outcome of one file ingestion.
type IngestReport struct {
	FileName           string
	FileFormat         models.FileFormat
	RecordsProcessed   int
	RecordsValid       int
	RecordsFailed      int
	Errors             []string
	Warnings           []string
	NewAccountsCreated int
	custodians         map[string]struct{}
}

// AddCustodian records a custodian seen during ingestion.
func (r *IngestReport) AddCustodian(name string) {
	if r.custodians == nil {
		r.custodians = make(map[string]struct{})
	}
	r.custodians[name] = struct{}{}
}

// CustodiansDetected returns the custodians seen, sorted for stable output.
func (r *IngestReport) CustodiansDetected() []string {
	names := make([]string, 0, len(r.custodians))
	for name := range r.custodians {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SuccessRate returns the percentage of processed records that were valid.
func (r *IngestReport) SuccessRate() float64 {
	if r.RecordsProcessed == 0 {
		return 0
	}
	return float64(r.RecordsValid) / float64(r.RecordsProcessed) * 100
}

// HasErrors reports whether any record failed.
func (r *IngestReport) HasErrors() bool {
	return r.RecordsFailed > 0 || len(r.Errors) > 0
}

// IngestionService writes parsed trade and position records to the ledger,
// maintaining account/custodian associations as a side effect. It is the
// single writer: batches run in one transaction so a ledger file lands fully
// or not at all.
type IngestionService struct {
	tradeRepo    *repository.TradeRepository
	positionRepo *repository.PositionRepository
	accountRepo  *repository.AccountRepository
	snapshots    *cache.SnapshotCache
}

// NewIngestionService creates a new IngestionService
func NewIngestionService(
	tradeRepo *repository.TradeRepository,
	positionRepo *repository.PositionRepository,
	accountRepo *repository.AccountRepository,
	snapshots *cache.SnapshotCache,
) *IngestionService {
	return &IngestionService{
		tradeRepo:    tradeRepo,
		positionRepo: positionRepo,
		accountRepo:  accountRepo,
		snapshots:    snapshots,
	}
}

// IngestTrades writes a batch of parsed trades. Custodian association comes
// from the trade's source system tag when present.
func (s *IngestionService) IngestTrades(ctx context.Context, report *IngestReport, trades []models.Trade) error {
	defer TrackTime("IngestTrades", time.Now())

	tx, err := s.tradeRepo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i := range trades {
		t := &trades[i]
		custodian := ""
		if t.SourceSystem != nil {
			custodian = *t.SourceSystem
			report.AddCustodian(custodian)
		}
		if err := s.ensureAccount(ctx, tx, report, t.AccountID, custodian); err != nil {
			return err
		}
		if err := s.tradeRepo.Insert(ctx, tx, t); err != nil {
			return fmt.Errorf("failed to insert trade for %s/%s: %w", t.AccountID, t.Ticker, err)
		}
		report.RecordsValid++
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.snapshots.Clear()
	log.Infof("Ingested %d/%d trade records from %s",
		report.RecordsValid, report.RecordsProcessed, report.FileName)
	return nil
}

// IngestPositions writes a bank snapshot. Custodian association comes from
// resolving each position's custodian reference.
func (s *IngestionService) IngestPositions(ctx context.Context, report *IngestReport, positions []models.ReportedPosition) error {
	defer TrackTime("IngestPositions", time.Now())

	tx, err := s.tradeRepo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i := range positions {
		p := &positions[i]
		custodian := ""
		if name, ok := ResolveCustodian(ctx, p.CustodianRef); ok {
			custodian = name
			report.AddCustodian(name)
		}
		if err := s.ensureAccount(ctx, tx, report, p.AccountID, custodian); err != nil {
			return err
		}
		if err := s.positionRepo.Insert(ctx, tx, p); err != nil {
			return fmt.Errorf("failed to insert position for %s/%s: %w", p.AccountID, p.Ticker, err)
		}
		report.RecordsValid++
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.snapshots.Clear()
	log.Infof("Ingested %d/%d position records from %s",
		report.RecordsValid, report.RecordsProcessed, report.FileName)
	return nil
}

// ensureAccount creates the account if missing and binds its custodian the
// first time custodian information arrives. A later, different custodian is
// surfaced as an anomaly and never overwrites the original binding.
func (s *IngestionService) ensureAccount(ctx context.Context, tx pgx.Tx, report *IngestReport, accountID, custodian string) error {
	account, err := s.accountRepo.GetWithTx(ctx, tx, accountID)
	if err != nil {
		return err
	}

	if account == nil {
		a := &models.Account{AccountID: accountID}
		if custodian != "" {
			a.CustodianName = &custodian
		}
		if err := s.accountRepo.Create(ctx, tx, a); err != nil {
			return fmt.Errorf("failed to create account %s: %w", accountID, err)
		}
		report.NewAccountsCreated++
		log.Infof("Created new account: %s with custodian: %q", accountID, custodian)
		return nil
	}

	if custodianBinding(ctx, accountID, account.CustodianName, custodian) {
		return s.accountRepo.SetCustodian(ctx, tx, accountID, custodian)
	}
	return nil
}

// custodianBinding decides whether incoming custodian information should be
// bound to an existing account. The first binding wins: an account with no
// custodian gets one, a matching custodian is a no-op, and a different one
// records a conflict anomaly without overwriting.
func custodianBinding(ctx context.Context, accountID string, current *string, incoming string) bool {
	if incoming == "" || (current != nil && *current == incoming) {
		return false
	}
	if current == nil {
		return true
	}
	AddWarning(ctx, models.Warning{
		Code: models.WarnCustodianConflict,
		Message: fmt.Sprintf("account %s is bound to custodian %s but file reports %s",
			accountID, *current, incoming),
	})
	return false
}
