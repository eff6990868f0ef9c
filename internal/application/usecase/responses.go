package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/tontina/caisse-engine/internal/application/dto"
	"github.com/tontina/caisse-engine/internal/domain/event"
	"github.com/tontina/caisse-engine/internal/domain/model"
	"github.com/tontina/caisse-engine/internal/domain/port"
)

// publishEvents hands domain events to the notification sink. Publishing is
// best effort: a sink failure is logged and never fails the command that
// produced the events.
func publishEvents(ctx context.Context, logger *slog.Logger, publisher port.EventPublisher, events []event.DomainEvent) {
	if len(events) == 0 {
		return
	}
	if err := publisher.Publish(ctx, events...); err != nil {
		logger.Warn("event publish failed",
			slog.Int("count", len(events)),
			slog.String("error", err.Error()),
		)
	}
}

func toContractResponse(c model.Contract, now time.Time) dto.ContractResponse {
	installments := c.Installments()
	views := make([]dto.InstallmentResponse, 0, len(installments))
	for _, inst := range installments {
		views = append(views, dto.InstallmentResponse{
			MonthIndex:        inst.MonthIndex,
			DueDate:           inst.DueDate,
			TargetAmount:      inst.TargetAmount,
			AccumulatedAmount: inst.AccumulatedAmount,
			Status:            string(inst.Status(now)),
			ScheduleVersion:   inst.ScheduleVersion,
		})
	}
	return dto.ContractResponse{
		ID:                c.ID(),
		MemberID:          c.MemberID(),
		Family:            c.Family().String(),
		Cadence:           c.Cadence().String(),
		Principal:         c.Principal(),
		MonthlyRate:       c.MonthlyRate(),
		InstallmentAmount: c.InstallmentAmount(),
		PlannedDuration:   c.PlannedDuration(),
		FirstDueDate:      c.FirstDueDate(),
		Status:            c.Status().String(),
		ScheduleVersion:   c.ScheduleVersion(),
		TotalAccumulated:  c.TotalAccumulated(),
		Installments:      views,
		CreatedAt:         c.CreatedAt(),
		UpdatedAt:         c.UpdatedAt(),
	}
}

func toScheduleResponses(entries []model.ScheduleEntry) []dto.ScheduleEntryResponse {
	views := make([]dto.ScheduleEntryResponse, 0, len(entries))
	for _, e := range entries {
		views = append(views, dto.ScheduleEntryResponse{
			MonthIndex:       e.MonthIndex,
			DueDate:          e.DueDate,
			Payment:          e.Payment,
			Interest:         e.Interest,
			Principal:        e.Principal,
			RemainingBalance: e.RemainingBalance,
		})
	}
	return views
}

func toAdvanceResponse(a model.SupportAdvance) dto.AdvanceResponse {
	deductions := a.Deductions()
	views := make([]dto.DeductionResponse, 0, len(deductions))
	for _, d := range deductions {
		views = append(views, dto.DeductionResponse{
			MonthIndex: d.MonthIndex,
			Amount:     d.Amount,
		})
	}
	return dto.AdvanceResponse{
		ID:              a.ID(),
		ContractID:      a.ContractID(),
		Amount:          a.Amount(),
		AmountRepaid:    a.AmountRepaid(),
		AmountRemaining: a.AmountRemaining(),
		Status:          string(a.Status()),
		Deductions:      views,
		ProofURL:        a.Proof().URL,
		CreatedAt:       a.CreatedAt(),
	}
}

func toRefundResponse(r model.RefundRequest, contractStatus string) dto.RefundResponse {
	return dto.RefundResponse{
		ID:             r.ID(),
		ContractID:     r.ContractID(),
		Kind:           string(r.Kind()),
		AmountNominal:  r.AmountNominal(),
		AmountBonus:    r.AmountBonus(),
		DeadlineAt:     r.DeadlineAt(),
		Status:         string(r.Status()),
		ContractStatus: contractStatus,
	}
}
