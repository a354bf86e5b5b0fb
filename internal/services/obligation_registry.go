package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"planner/internal/core"
	"planner/internal/ports"
)

type (
	// RecurringInput describes a new recurring template. A zero EndDate means
	// open-ended; a zero NextDueDate starts the schedule at StartDate.
	RecurringInput struct {
		Name        string
		AccountID   string
		Amount      core.Money
		Frequency   core.Frequency
		Category    core.LedgerCategory
		StartDate   core.Date
		EndDate     core.Date
		NextDueDate core.Date
	}

	// InstallmentInput describes a new EMI schedule. A zero EndDate is
	// derived from the start date and the installment count.
	InstallmentInput struct {
		Name                  string
		AccountID             string
		Amount                core.Money
		Frequency             core.Frequency
		Category              core.LedgerCategory
		StartDate             core.Date
		EndDate               core.Date
		TotalInstallments     int
		CompletedInstallments int
	}

	// ObligationUpdate carries user edits. Nil fields are left unchanged.
	ObligationUpdate struct {
		Name              *string
		AccountID         *string
		Amount            *core.Money
		Frequency         *core.Frequency
		Category          *core.LedgerCategory
		StartDate         *core.Date
		EndDate           *core.Date
		NextDueDate       *core.Date
		TotalInstallments *int
	}

	// GenerationFailure records one obligation that could not be processed.
	GenerationFailure struct {
		ObligationID string
		Err          error
	}

	// GenerationReport summarizes a CheckAndGenerateAll pass.
	GenerationReport struct {
		Checked    int
		Generated  int
		Reconciled int
		Skipped    map[SkipReason]int
		Entries    []core.LedgerEntry
		Failures   []GenerationFailure
	}
)

// ObligationRegistry owns obligation lifecycle and applies generation
// results. All writes to one obligation's progress go through mu.
type ObligationRegistry struct {
	obligations ports.ObligationStore
	ledger      ports.LedgerStore
	accounts    ports.AccountDirectory

	mu sync.Mutex
}

func NewObligationRegistry(obligations ports.ObligationStore, ledger ports.LedgerStore, accounts ports.AccountDirectory) *ObligationRegistry {
	return &ObligationRegistry{
		obligations: obligations,
		ledger:      ledger,
		accounts:    accounts,
	}
}

func (r *ObligationRegistry) CreateRecurring(ctx context.Context, in RecurringInput) (core.Obligation, error) {
	next := in.NextDueDate
	if next.IsZero() {
		next = in.StartDate
	}
	now := time.Now().UTC()
	ob := core.Obligation{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		AccountID:   in.AccountID,
		Amount:      in.Amount,
		Frequency:   in.Frequency,
		Status:      core.StatusActive,
		Kind:        core.KindRecurring,
		Category:    in.Category,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		NextDueDate: next,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return r.create(ctx, ob)
}

func (r *ObligationRegistry) CreateInstallment(ctx context.Context, in InstallmentInput) (core.Obligation, error) {
	now := time.Now().UTC()
	ob := core.Obligation{
		ID:                    uuid.NewString(),
		Name:                  strings.TrimSpace(in.Name),
		AccountID:             in.AccountID,
		Amount:                in.Amount,
		Frequency:             in.Frequency,
		Status:                core.StatusActive,
		Kind:                  core.KindInstallment,
		Category:              in.Category,
		StartDate:             in.StartDate,
		EndDate:               in.EndDate,
		TotalInstallments:     in.TotalInstallments,
		CompletedInstallments: in.CompletedInstallments,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if ob.EndDate.IsZero() && ob.TotalInstallments > 0 && !ob.StartDate.IsZero() {
		if last, err := LastInstallmentDate(ob); err == nil {
			ob.EndDate = last
		}
	}
	if ob.TotalInstallments > 0 && ob.CompletedInstallments == ob.TotalInstallments {
		ob.Status = core.StatusCompleted
	}
	return r.create(ctx, ob)
}

func (r *ObligationRegistry) create(ctx context.Context, ob core.Obligation) (core.Obligation, error) {
	if err := ob.Validate(); err != nil {
		return core.Obligation{}, err
	}
	if err := validateSchedule(ob); err != nil {
		return core.Obligation{}, err
	}
	if err := r.resolveAccount(ctx, ob.AccountID); err != nil {
		return core.Obligation{}, err
	}
	if err := r.obligations.Save(ctx, ob); err != nil {
		return core.Obligation{}, fmt.Errorf("save obligation: %w", err)
	}
	slog.InfoContext(ctx, "Obligation created",
		"id", ob.ID,
		"kind", ob.Kind,
		"name", ob.Name,
		"amount_cents", ob.Amount.Cents,
		"frequency", ob.Frequency)
	return ob, nil
}

// resolveAccount maps an unknown account id to a ReferentialIntegrityError.
func (r *ObligationRegistry) resolveAccount(ctx context.Context, accountID string) error {
	if _, err := r.accounts.Resolve(ctx, accountID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.UnknownAccount(accountID)
		}
		return fmt.Errorf("resolve account: %w", err)
	}
	return nil
}

func (r *ObligationRegistry) Get(ctx context.Context, id string) (core.Obligation, error) {
	return r.obligations.Get(ctx, id)
}

func (r *ObligationRegistry) List(ctx context.Context) ([]core.Obligation, error) {
	return r.obligations.List(ctx)
}

// Update applies user edits. Progress and lifecycle fields are not editable
// here, but an installment whose total changes is re-checked for completion
// and a completed recurring obligation whose end date moves past its next
// period becomes active again.
func (r *ObligationRegistry) Update(ctx context.Context, id string, upd ObligationUpdate) (core.Obligation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ob, err := r.obligations.Get(ctx, id)
	if err != nil {
		return core.Obligation{}, err
	}
	if upd.Name != nil {
		ob.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.AccountID != nil {
		ob.AccountID = *upd.AccountID
	}
	if upd.Amount != nil {
		ob.Amount = *upd.Amount
	}
	if upd.Frequency != nil {
		ob.Frequency = *upd.Frequency
	}
	if upd.Category != nil {
		ob.Category = *upd.Category
	}
	if upd.StartDate != nil {
		ob.StartDate = *upd.StartDate
	}
	if upd.EndDate != nil {
		ob.EndDate = *upd.EndDate
	}
	if upd.NextDueDate != nil && ob.Kind == core.KindRecurring {
		ob.NextDueDate = *upd.NextDueDate
	}
	if upd.TotalInstallments != nil && ob.Kind == core.KindInstallment {
		ob.TotalInstallments = *upd.TotalInstallments
		if upd.EndDate == nil && ob.TotalInstallments > 0 {
			if last, err := LastInstallmentDate(ob); err == nil {
				ob.EndDate = last
			}
		}
	}

	if ob.Kind == core.KindRecurring && ob.Status == core.StatusCompleted && upd.EndDate != nil {
		next, err := r.nextOccurrence(ctx, ob)
		if err != nil {
			return core.Obligation{}, err
		}
		if !ob.HasEnd() || !next.After(ob.EndDate) {
			ob.NextDueDate = next
			ob.Status = core.StatusActive
		}
	}

	if ob.Kind == core.KindInstallment {
		switch {
		case ob.Status == core.StatusCompleted && ob.CompletedInstallments < ob.TotalInstallments:
			ob.Status = core.StatusActive
		case ob.Status == core.StatusActive && ob.TotalInstallments > 0 && ob.CompletedInstallments >= ob.TotalInstallments:
			ob.Status = core.StatusCompleted
		}
	}

	if err := ob.Validate(); err != nil {
		return core.Obligation{}, err
	}
	if err := validateSchedule(ob); err != nil {
		return core.Obligation{}, err
	}
	if upd.AccountID != nil {
		if err := r.resolveAccount(ctx, ob.AccountID); err != nil {
			return core.Obligation{}, err
		}
	}
	ob.UpdatedAt = time.Now().UTC()
	if err := r.obligations.Save(ctx, ob); err != nil {
		return core.Obligation{}, fmt.Errorf("save obligation: %w", err)
	}
	return ob, nil
}

// nextOccurrence is the period after the latest generated entry of a
// recurring obligation, or its start date when nothing was generated. The
// stored NextDueDate of a completed obligation is clamped to its end date
// and is not an occurrence.
func (r *ObligationRegistry) nextOccurrence(ctx context.Context, ob core.Obligation) (core.Date, error) {
	entries, err := r.ledger.ListByObligation(ctx, ob.ID)
	if err != nil {
		return core.Date{}, fmt.Errorf("list ledger entries: %w", err)
	}
	var last core.Date
	for _, e := range entries {
		if e.Date.After(last) {
			last = e.Date
		}
	}
	if last.IsZero() {
		return ob.StartDate, nil
	}
	next, err := followingDueDate(ob, last)
	if err != nil {
		return core.Date{}, core.NewValidationError("frequency", "%v", err)
	}
	return next, nil
}

// Delete removes an obligation that no ledger entry references.
func (r *ObligationRegistry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.obligations.Get(ctx, id); err != nil {
		return err
	}
	n, err := r.ledger.CountByObligation(ctx, id)
	if err != nil {
		return fmt.Errorf("count ledger references: %w", err)
	}
	if n > 0 {
		return &core.ReferentialIntegrityError{
			Entity: "obligation",
			ID:     id,
			Reason: fmt.Sprintf("%d ledger entries still reference it", n),
		}
	}
	if err := r.obligations.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete obligation: %w", err)
	}
	slog.InfoContext(ctx, "Obligation deleted", "id", id)
	return nil
}

// Pause stops generation without touching progress. Pausing a paused
// obligation is a no-op.
func (r *ObligationRegistry) Pause(ctx context.Context, id string) (core.Obligation, error) {
	return r.transition(ctx, id, core.StatusPaused)
}

// Resume makes the obligation eligible again at its already computed next
// due date. Missed periods are caught up one per CheckAndGenerate call.
func (r *ObligationRegistry) Resume(ctx context.Context, id string) (core.Obligation, error) {
	return r.transition(ctx, id, core.StatusActive)
}

func (r *ObligationRegistry) transition(ctx context.Context, id string, to core.ObligationStatus) (core.Obligation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ob, err := r.obligations.Get(ctx, id)
	if err != nil {
		return core.Obligation{}, err
	}
	if ob.Status == core.StatusCompleted {
		return core.Obligation{}, core.NewValidationError("status", "obligation %s is completed", id)
	}
	if ob.Status == to {
		return ob, nil
	}
	ob.Status = to
	ob.UpdatedAt = time.Now().UTC()
	if err := r.obligations.Save(ctx, ob); err != nil {
		return core.Obligation{}, fmt.Errorf("save obligation: %w", err)
	}
	slog.InfoContext(ctx, "Obligation status changed", "id", id, "status", to)
	return ob, nil
}

// CheckAndGenerate runs the generation engine for one obligation and
// persists the outcome: the ledger entry first, then the advanced progress.
// A crash between the two leaves an entry the duplicate guard reconciles on
// the next call.
func (r *ObligationRegistry) CheckAndGenerate(ctx context.Context, id string, now time.Time) (GenerationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ob, err := r.obligations.Get(ctx, id)
	if err != nil {
		return GenerationResult{}, err
	}
	var existing []core.LedgerEntry
	if ob.Status == core.StatusActive {
		if due, err := NextDueDate(ob); err == nil {
			found, err := r.ledger.FindByObligationAndDate(ctx, id, due)
			if err != nil {
				return GenerationResult{}, fmt.Errorf("find ledger entry: %w", err)
			}
			if found != nil {
				existing = append(existing, *found)
			}
		}
	}

	res, err := CheckAndGenerate(now, ob, existing)
	if err != nil {
		return res, err
	}

	if res.NewEntry != nil {
		created, err := r.ledger.Create(ctx, *res.NewEntry)
		switch {
		case errors.Is(err, core.ErrDuplicateEntry):
			res.NewEntry = nil
			res.Reconciled = true
		case err != nil:
			return GenerationResult{Updated: ob}, fmt.Errorf("create ledger entry: %w", err)
		default:
			res.NewEntry = &created
		}
	}

	if res.Updated != ob {
		if err := r.obligations.Save(ctx, res.Updated); err != nil {
			return res, fmt.Errorf("save obligation progress: %w", err)
		}
	}
	return res, nil
}

// CheckAndGenerateAll runs CheckAndGenerate over every active obligation.
// A failing obligation is recorded in the report and does not stop the
// rest.
func (r *ObligationRegistry) CheckAndGenerateAll(ctx context.Context, now time.Time) (GenerationReport, error) {
	report := GenerationReport{Skipped: map[SkipReason]int{}}

	all, err := r.obligations.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list obligations: %w", err)
	}

	for _, ob := range all {
		if ob.Status != core.StatusActive {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++

		res, err := r.CheckAndGenerate(ctx, ob.ID, now)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to process obligation",
				"id", ob.ID,
				"name", ob.Name,
				"error", err)
			report.Failures = append(report.Failures, GenerationFailure{ObligationID: ob.ID, Err: err})
			continue
		}

		switch {
		case res.Generated():
			report.Generated++
			report.Entries = append(report.Entries, *res.NewEntry)
			slog.InfoContext(ctx, "Generated ledger entry from obligation",
				"obligation_id", ob.ID,
				"name", ob.Name,
				"due_date", res.DueDate.String(),
				"amount_cents", ob.Amount.Cents,
				"status", res.Updated.Status)
		case res.Reconciled:
			report.Reconciled++
			slog.WarnContext(ctx, "Ledger entry already existed, progress reconciled",
				"obligation_id", ob.ID,
				"due_date", res.DueDate.String())
		default:
			report.Skipped[res.Skip]++
		}
	}

	slog.InfoContext(ctx, "Obligation generation pass complete",
		"checked", report.Checked,
		"generated", report.Generated,
		"reconciled", report.Reconciled,
		"failed", len(report.Failures))
	return report, nil
}
