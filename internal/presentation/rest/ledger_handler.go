package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/tontina/caisse-engine/internal/application/dto"
	"github.com/tontina/caisse-engine/internal/application/usecase"
	"github.com/tontina/caisse-engine/internal/domain/errs"
	"github.com/tontina/caisse-engine/internal/domain/service"
	"github.com/tontina/caisse-engine/internal/domain/valueobject"
)

// LedgerHandler exposes the ledger operations over JSON HTTP.
type LedgerHandler struct {
	create         *usecase.CreateContractUseCase
	review         *usecase.ReviewContractUseCase
	activate       *usecase.ActivateContractUseCase
	reschedule     *usecase.RescheduleContractUseCase
	payment        *usecase.ApplyPaymentUseCase
	advance        *usecase.RequestAdvanceUseCase
	refund         *usecase.RequestRefundUseCase
	progressRefund *usecase.ProgressRefundUseCase
	get            *usecase.GetContractUseCase
	listContracts  *usecase.ListMemberContractsUseCase
	listAdvances   *usecase.ListAdvancesUseCase
	logger         *slog.Logger
}

// NewLedgerHandler creates a new handler with all use-case dependencies.
func NewLedgerHandler(
	create *usecase.CreateContractUseCase,
	review *usecase.ReviewContractUseCase,
	activate *usecase.ActivateContractUseCase,
	reschedule *usecase.RescheduleContractUseCase,
	payment *usecase.ApplyPaymentUseCase,
	advance *usecase.RequestAdvanceUseCase,
	refund *usecase.RequestRefundUseCase,
	progressRefund *usecase.ProgressRefundUseCase,
	get *usecase.GetContractUseCase,
	listContracts *usecase.ListMemberContractsUseCase,
	listAdvances *usecase.ListAdvancesUseCase,
	logger *slog.Logger,
) *LedgerHandler {
	return &LedgerHandler{
		create:         create,
		review:         review,
		activate:       activate,
		reschedule:     reschedule,
		payment:        payment,
		advance:        advance,
		refund:         refund,
		progressRefund: progressRefund,
		get:            get,
		listContracts:  listContracts,
		listAdvances:   listAdvances,
		logger:         logger,
	}
}

// RegisterRoutes attaches ledger routes to the given mux.
func (h *LedgerHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/contracts", h.createContract)
	mux.HandleFunc("GET /v1/contracts/{id}", h.getContract)
	mux.HandleFunc("POST /v1/contracts/{id}/review", h.reviewContract)
	mux.HandleFunc("POST /v1/contracts/{id}/activate", h.activateContract)
	mux.HandleFunc("POST /v1/contracts/{id}/reschedule", h.rescheduleContract)
	mux.HandleFunc("POST /v1/contracts/{id}/payments", h.applyPayment)
	mux.HandleFunc("POST /v1/contracts/{id}/advances", h.requestAdvance)
	mux.HandleFunc("GET /v1/contracts/{id}/advances", h.listContractAdvances)
	mux.HandleFunc("POST /v1/contracts/{id}/refunds", h.requestRefund)
	mux.HandleFunc("POST /v1/contracts/{id}/refunds/{refundID}/status", h.progressRefundRequest)
	mux.HandleFunc("GET /v1/members/{id}/contracts", h.listMemberContracts)
}

func (h *LedgerHandler) createContract(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, errs.NewValidation("body", "malformed JSON"))
		return
	}

	resp, err := h.create.Execute(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *LedgerHandler) getContract(w http.ResponseWriter, r *http.Request) {
	resp, err := h.get.Execute(r.Context(), dto.GetContractRequest{
		ContractID: r.PathValue("id"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *LedgerHandler) reviewContract(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, r, errs.NewValidation("body", "malformed JSON"))
		return
	}

	resp, err := h.review.Execute(r.Context(), dto.ReviewContractRequest{
		ContractID: r.PathValue("id"),
		Action:     body.Action,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *LedgerHandler) activateContract(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Policy         string            `json:"policy"`
		CustomPayments []decimal.Decimal `json:"custom_payments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, r, errs.NewValidation("body", "malformed JSON"))
		return
	}

	resp, err := h.activate.Execute(r.Context(), dto.ActivateContractRequest{
		ContractID:     r.PathValue("id"),
		Policy:         dto.SchedulePolicy(body.Policy),
		CustomPayments: body.CustomPayments,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if !resp.Converged {
		// The contract was not activated; the response carries the
		// suggested installment instead.
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

func (h *LedgerHandler) rescheduleContract(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Policy            string            `json:"policy"`
		InstallmentAmount decimal.Decimal   `json:"installment_amount"`
		CustomPayments    []decimal.Decimal `json:"custom_payments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, r, errs.NewValidation("body", "malformed JSON"))
		return
	}

	resp, err := h.reschedule.Execute(r.Context(), dto.RescheduleContractRequest{
		ContractID:        r.PathValue("id"),
		Policy:            dto.SchedulePolicy(body.Policy),
		InstallmentAmount: body.InstallmentAmount,
		CustomPayments:    body.CustomPayments,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if !resp.Converged {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

func (h *LedgerHandler) applyPayment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MonthIndex        int                        `json:"month_index"`
		Amount            decimal.Decimal            `json:"amount"`
		PaidAt            string                     `json:"paid_at"`
		Mode              string                     `json:"mode"`
		PenaltyPerDayRate decimal.Decimal            `json:"penalty_per_day_rate"`
		BonusTable        map[string]decimal.Decimal `json:"bonus_table"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, r, errs.NewValidation("body", "malformed JSON"))
		return
	}

	paidAt, err := parseTimestamp(body.PaidAt)
	if err != nil {
		h.writeError(w, r, errs.NewValidation("paid_at", "must be an RFC 3339 timestamp"))
		return
	}

	resp, err := h.payment.Execute(r.Context(), dto.ApplyPaymentRequest{
		ContractID:   r.PathValue("id"),
		MonthIndex:   body.MonthIndex,
		Amount:       body.Amount,
		PaidAt:       paidAt,
		Mode:         body.Mode,
		PenaltyRules: service.PenaltyRules{PerDayRate: body.PenaltyPerDayRate},
		BonusTable:   service.BonusTable(body.BonusTable),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *LedgerHandler) requestAdvance(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Amount        decimal.Decimal `json:"amount"`
		ProofFilename string          `json:"proof_filename"`
		ProofContent  []byte          `json:"proof_content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, r, errs.NewValidation("body", "malformed JSON"))
		return
	}

	resp, err := h.advance.Execute(r.Context(), dto.RequestAdvanceRequest{
		ContractID:    r.PathValue("id"),
		Amount:        body.Amount,
		ProofFilename: body.ProofFilename,
		ProofContent:  body.ProofContent,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *LedgerHandler) requestRefund(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Kind          string `json:"kind"`
		ProofFilename string `json:"proof_filename"`
		ProofContent  []byte `json:"proof_content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, r, errs.NewValidation("body", "malformed JSON"))
		return
	}

	resp, err := h.refund.Execute(r.Context(), dto.RequestRefundRequest{
		ContractID:    r.PathValue("id"),
		Kind:          body.Kind,
		ProofFilename: body.ProofFilename,
		ProofContent:  body.ProofContent,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *LedgerHandler) progressRefundRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, r, errs.NewValidation("body", "malformed JSON"))
		return
	}

	resp, err := h.progressRefund.Execute(r.Context(), dto.ProgressRefundRequest{
		ContractID: r.PathValue("id"),
		RefundID:   r.PathValue("refundID"),
		Action:     body.Action,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *LedgerHandler) listContractAdvances(w http.ResponseWriter, r *http.Request) {
	resp, err := h.listAdvances.Execute(r.Context(), dto.ListAdvancesRequest{
		ContractID: r.PathValue("id"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *LedgerHandler) listMemberContracts(w http.ResponseWriter, r *http.Request) {
	resp, err := h.listContracts.Execute(r.Context(), dto.ListMemberContractsRequest{
		MemberID: r.PathValue("id"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeError maps domain errors to HTTP status codes.
func (h *LedgerHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	var (
		validation  *errs.ValidationError
		notFound    *errs.NotFoundError
		notEligible *errs.NotEligibleError
		outOfBounds *errs.OutOfBoundsError
		outstanding *errs.AdvanceOutstandingError
		duplicate   *errs.DuplicateRequestError
	)
	switch {
	case errors.As(err, &validation):
		status = http.StatusBadRequest
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &notEligible), errors.As(err, &outOfBounds), errors.As(err, &outstanding):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &duplicate):
		status = http.StatusConflict
	case errors.Is(err, valueobject.ErrInvalidStatusTransition):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}
