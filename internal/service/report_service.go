package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"stockreport/internal/apperror"
	"stockreport/internal/metrics"
	"stockreport/internal/model"
	"stockreport/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Report event names pushed to live viewers.
const (
	EventReportCreated = "report.created"
	EventReportUpdated = "report.updated"
	EventReportDeleted = "report.deleted"
)

// ReportEventPublisher receives a notification after each committed mutation.
type ReportEventPublisher interface {
	Publish(event string, data interface{})
}

type ReportService interface {
	Create(ctx context.Context, req CreateReportRequest, submitter model.Identity) (*ReportResponse, error)
	Get(ctx context.Context, id string) (*ReportResponse, error)
	Update(ctx context.Context, id string, req UpdateReportRequest, editor model.Identity) (*ReportResponse, error)
	Delete(ctx context.Context, id string, requester model.Identity) error
	List(ctx context.Context, q ReportQuery) ([]ReportResponse, error)
	Summarize(ctx context.Context, q ReportQuery) (*SummaryResponse, error)
}

// ReportServiceDeps wires a ReportService. Events, Location, Timeout and Now are
// optional and default to no events, time.Local, no timeout and time.Now.
type ReportServiceDeps struct {
	Reports  repository.ReportRepository
	Products repository.ProductRepository
	Audit    repository.AuditRepository
	Tx       repository.TransactionManager
	Events   ReportEventPublisher
	Location *time.Location
	Timeout  time.Duration
	Now      func() time.Time
}

type reportService struct {
	reports  repository.ReportRepository
	products repository.ProductRepository
	audit    repository.AuditRepository
	tx       repository.TransactionManager
	events   ReportEventPublisher
	loc      *time.Location
	timeout  time.Duration
	now      func() time.Time
}

func NewReportService(deps ReportServiceDeps) ReportService {
	s := &reportService{
		reports:  deps.Reports,
		products: deps.Products,
		audit:    deps.Audit,
		tx:       deps.Tx,
		events:   deps.Events,
		loc:      deps.Location,
		timeout:  deps.Timeout,
		now:      deps.Now,
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *reportService) Create(ctx context.Context, req CreateReportRequest, submitter model.Identity) (*ReportResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	report := &model.Report{
		SubmittedBy:         submitter.ID,
		SubmittedByUsername: submitter.Username,
		History:             []model.HistoryEntry{},
	}

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		name := strings.TrimSpace(req.ProductName)
		if name == "" {
			return apperror.Validation("Please provide a product name")
		}
		if req.Quantity == nil {
			return apperror.Validation("Please provide a quantity")
		}
		if strings.TrimSpace(req.EntryDate) == "" {
			return apperror.Validation("Please provide an entry date")
		}
		entryDate, err := ParseEntryDate(req.EntryDate, s.loc)
		if err != nil {
			return apperror.Validation("%s", err.Error())
		}

		now := s.now()
		if !IsValidEntryDate(entryDate, now, s.loc) {
			return apperror.Validation("Entry date must be today or yesterday.")
		}

		canonical, err := s.resolveProductName(txCtx, name)
		if err != nil {
			return err
		}

		report.ProductName = canonical
		report.Quantity = int(*req.Quantity)
		report.EntryDate = entryDate
		report.CreatedAt = now
		report.UpdatedAt = now

		if err := s.reports.Create(txCtx, report); err != nil {
			return s.storeErr("create report", err)
		}
		return nil
	})
	s.observe("create", err)
	if err != nil {
		return nil, s.wrap("create report", err)
	}

	res := mapReport(report, s.now())
	s.publish(EventReportCreated, res)
	return &res, nil
}

func (s *reportService) Get(ctx context.Context, id string) (*ReportResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	reportID, err := parseReportID(id)
	if err != nil {
		return nil, err
	}
	report, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		return nil, s.lookupErr("find report", err)
	}
	res := mapReport(report, s.now())
	return &res, nil
}

// Update applies a partial update under a row lock. The lock check, the diff and
// the write all see the same snapshot, so concurrent editors cannot lose each
// other's history entries.
func (s *reportService) Update(ctx context.Context, id string, req UpdateReportRequest, editor model.Identity) (*ReportResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	reportID, err := parseReportID(id)
	if err != nil {
		s.observe("update", err)
		return nil, err
	}

	var updated *model.Report
	var changes model.ReportChanges
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		report, err := s.reports.FindByIDForUpdate(txCtx, reportID)
		if err != nil {
			return s.lookupErr("find report", err)
		}

		now := s.now()
		if !IsMutable(report.CreatedAt, now) {
			return apperror.Locked("Cannot modify a report after 48 hours")
		}

		patch, err := s.normalizePatch(txCtx, req, now)
		if err != nil {
			return err
		}

		changes = DiffReport(report, patch)
		if changes.IsEmpty() {
			updated = report
			return nil
		}

		report.History = AppendHistory(report.History, changes, editor.Username, now)
		applyPatch(report, patch)
		report.UpdatedAt = now

		if err := s.reports.Save(txCtx, report); err != nil {
			return s.lookupErr("save report", err)
		}
		updated = report
		return nil
	})
	s.observe("update", err)
	if err != nil {
		return nil, s.wrap("update report", err)
	}

	res := mapReport(updated, s.now())
	if !changes.IsEmpty() {
		metrics.HistoryEntriesAppended.Inc()
		log.Info().
			Str("report_id", res.ID).
			Str("modified_by", editor.Username).
			Strs("fields", changes.Fields()).
			Msg("report updated")
		s.publish(EventReportUpdated, res)
	}
	return &res, nil
}

func (s *reportService) Delete(ctx context.Context, id string, requester model.Identity) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	reportID, err := parseReportID(id)
	if err != nil {
		s.observe("delete", err)
		return err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		report, err := s.reports.FindByIDForUpdate(txCtx, reportID)
		if err != nil {
			return s.lookupErr("find report", err)
		}
		if !IsMutable(report.CreatedAt, s.now()) {
			return apperror.Locked("Cannot delete a report after 48 hours")
		}

		if err := s.reports.Delete(txCtx, reportID); err != nil {
			return s.lookupErr("delete report", err)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"productName":  report.ProductName,
			"quantity":     report.Quantity,
			"entryDate":    report.EntryDateKey(),
			"submittedBy":  report.SubmittedByUsername,
			"createdAt":    report.CreatedAt,
			"historyCount": len(report.History),
		})
		if err := s.audit.Log(txCtx, &model.AuditLog{
			UserID:     actorID(requester),
			Action:     model.ActionDeleteReport,
			EntityID:   report.ID.String(),
			EntityName: report.ProductName,
			Details:    string(details),
		}); err != nil {
			return s.storeErr("write audit log", err)
		}
		return nil
	})
	s.observe("delete", err)
	if err != nil {
		return s.wrap("delete report", err)
	}

	s.publish(EventReportDeleted, map[string]string{"id": reportID.String()})
	return nil
}

func (s *reportService) List(ctx context.Context, q ReportQuery) ([]ReportResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	filter, err := s.parseFilter(q)
	if err != nil {
		return nil, err
	}

	reports, err := s.reports.List(ctx, filter)
	if err != nil {
		return nil, s.storeErr("list reports", err)
	}

	now := s.now()
	res := make([]ReportResponse, 0, len(reports))
	for i := range reports {
		res = append(res, mapReport(&reports[i], now))
	}
	return res, nil
}

func (s *reportService) Summarize(ctx context.Context, q ReportQuery) (*SummaryResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	filter, err := s.parseFilter(q)
	if err != nil {
		return nil, err
	}

	totals, err := s.reports.SumByProduct(ctx, filter)
	if err != nil {
		return nil, s.storeErr("summarize reports", err)
	}
	if totals == nil {
		totals = []model.ProductTotal{}
	}
	return &SummaryResponse{QuantityByProduct: totals}, nil
}

// normalizePatch validates the supplied fields of an update against now.
func (s *reportService) normalizePatch(ctx context.Context, req UpdateReportRequest, now time.Time) (ReportPatch, error) {
	var patch ReportPatch

	if req.EntryDate != nil {
		d, err := ParseEntryDate(*req.EntryDate, s.loc)
		if err != nil {
			return patch, apperror.Validation("%s", err.Error())
		}
		if !IsValidEntryDate(d, now, s.loc) {
			return patch, apperror.Validation("Entry date must be today or yesterday.")
		}
		patch.EntryDate = &d
	}

	if req.Quantity != nil {
		q := int(*req.Quantity)
		patch.Quantity = &q
	}

	if req.ProductName != nil {
		name := strings.TrimSpace(*req.ProductName)
		if name == "" {
			return patch, apperror.Validation("Product name cannot be empty")
		}
		canonical, err := s.resolveProductName(ctx, name)
		if err != nil {
			return patch, err
		}
		patch.ProductName = &canonical
	}

	return patch, nil
}

// resolveProductName maps name onto the master-list spelling. It runs inside the
// report transaction and share-locks the product until that transaction ends.
func (s *reportService) resolveProductName(ctx context.Context, name string) (string, error) {
	product, err := s.products.FindByNameFoldForShare(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperror.Validation("Product %q is not in the product list", name)
		}
		return "", s.storeErr("find product", err)
	}
	return product.Name, nil
}

func (s *reportService) parseFilter(q ReportQuery) (model.ReportFilter, error) {
	filter := model.ReportFilter{ProductName: strings.TrimSpace(q.Product)}

	if q.StartDate != "" {
		d, err := ParseEntryDate(q.StartDate, s.loc)
		if err != nil {
			return filter, apperror.Validation("invalid startDate: %s", err.Error())
		}
		filter.StartDate = &d
	}
	if q.EndDate != "" {
		d, err := ParseEntryDate(q.EndDate, s.loc)
		if err != nil {
			return filter, apperror.Validation("invalid endDate: %s", err.Error())
		}
		filter.EndDate = &d
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.StartDate.After(*filter.EndDate) {
		return filter, apperror.Validation("startDate must not be after endDate")
	}
	return filter, nil
}

func (s *reportService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *reportService) publish(event string, data interface{}) {
	if s.events != nil {
		s.events.Publish(event, data)
	}
}

func (s *reportService) observe(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(apperror.KindOf(err))
	}
	metrics.ReportMutations.WithLabelValues(op, outcome).Inc()
}

// lookupErr maps a missing row to NotFound and anything else to a store failure.
func (s *reportService) lookupErr(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("Report not found")
	}
	return s.storeErr(op, err)
}

func (s *reportService) storeErr(op string, err error) error {
	log.Error().Err(err).Str("op", op).Msg("report store failure")
	return apperror.Store("failed to "+op, err)
}

// wrap passes typed errors through and turns anything else (commit failures)
// into a store error.
func (s *reportService) wrap(op string, err error) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	return s.storeErr(op, err)
}

func parseReportID(id string) (uuid.UUID, error) {
	reportID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, apperror.NotFound("Report not found")
	}
	return reportID, nil
}

func actorID(identity model.Identity) *uuid.UUID {
	if identity.ID == uuid.Nil {
		return nil
	}
	id := identity.ID
	return &id
}
