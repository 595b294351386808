package router

import (
	"github.com/gin-gonic/gin"
	"github.com/schoolledger/backend/internal/interfaces/http/handler"
	"github.com/schoolledger/backend/internal/interfaces/http/middleware"
)

// Handlers bundles the HTTP handlers served under the API group.
type Handlers struct {
	Fee        *handler.FeeHandler
	Payment    *handler.PaymentHandler
	Concession *handler.ConcessionHandler
	Balance    *handler.BalanceHandler
	Promotion  *handler.PromotionHandler
	System     *handler.SystemHandler
	Outbox     *handler.OutboxHandler
}

// LedgerGroups builds the school-scoped ledger route groups plus the
// unscoped system group. Outbox routes are mounted only when an outbox
// handler is given. bulkGuard runs in front of the bulk endpoints
// only; pass nil to leave them unguarded.
func LedgerGroups(h Handlers, bulkGuard gin.HandlerFunc) []*DomainGroup {
	bulk := func(fn gin.HandlerFunc) []gin.HandlerFunc {
		if bulkGuard == nil {
			return []gin.HandlerFunc{fn}
		}
		return []gin.HandlerFunc{bulkGuard, fn}
	}

	fees := NewDomainGroup("fees", "/fees").Use(middleware.SchoolScope())
	fees.POST("", h.Fee.CreateFeeRecord).
		POST("/assign", h.Fee.AssignFromStructure).
		POST("/refresh-overdue", bulk(h.Fee.RefreshOverdue)...).
		GET("", h.Fee.ListFeeRecords).
		GET("/:id", h.Fee.GetFeeRecord).
		POST("/:id/fine", h.Fee.ApplyFine).
		POST("/:id/fine/reverse", h.Fee.ReverseFine).
		POST("/:id/discount", h.Fee.ApplyDiscount).
		POST("/:id/waiver", h.Fee.ApplyWaiver).
		POST("/:id/cancel", h.Fee.Cancel).
		POST("/:id/waive", h.Fee.WaiveAll).
		POST("/:id/void", h.Fee.Void).
		POST("/:id/recompute", h.Fee.RecomputeStatus).
		GET("/:id/payments", h.Payment.ListPaymentsForFee).
		POST("/:id/concessions/apply", h.Concession.ApplyToFeeRecord)

	payments := NewDomainGroup("payments", "/payments").Use(middleware.SchoolScope())
	payments.POST("", h.Payment.RecordPayment).
		GET("", h.Payment.GetPaymentByReceipt).
		GET("/:id", h.Payment.GetPayment).
		POST("/:id/cancel", h.Payment.CancelPayment)

	concessions := NewDomainGroup("concessions", "/concessions").Use(middleware.SchoolScope())
	concessions.POST("", h.Concession.CreateConcession).
		GET("", h.Concession.ListConcessions).
		GET("/:id", h.Concession.GetConcession).
		POST("/:id/approve", h.Concession.ApproveConcession).
		POST("/:id/reject", h.Concession.RejectConcession).
		GET("/:id/resolve", h.Concession.ResolveAmount)

	balances := NewDomainGroup("balances", "/balances").Use(middleware.SchoolScope())
	balances.POST("/carry-forward", h.Balance.CarryForward).
		POST("/carry-forward/bulk", bulk(h.Balance.BulkCarryForward)...).
		GET("", h.Balance.ListBalances).
		GET("/:id", h.Balance.GetBalance).
		POST("/:id/adjust", h.Balance.AdjustBalance).
		POST("/:id/clear", h.Balance.ClearBalance)

	reconciliation := NewDomainGroup("reconciliation", "/reconciliation").Use(middleware.SchoolScope())
	reconciliation.GET("", h.Balance.Reconcile)

	promotions := NewDomainGroup("promotions", "/promotions").Use(middleware.SchoolScope())
	promotions.POST("", h.Promotion.Promote).
		POST("/bulk", bulk(h.Promotion.BulkPromote)...).
		GET("/statistics", h.Promotion.Statistics).
		GET("/:id", h.Promotion.GetPromotion).
		POST("/:id/process", h.Promotion.ProcessPromotion).
		POST("/:id/rollback", h.Promotion.RollbackPromotion)

	system := NewDomainGroup("system", "/system")
	system.GET("/info", h.System.GetSystemInfo)
	if h.Outbox != nil {
		system.Group("outbox", "/outbox").
			GET("/stats", h.Outbox.GetStats).
			GET("/dead-letters", h.Outbox.ListDeadLetters).
			POST("/dead-letters/retry", h.Outbox.RetryAllDeadLetters).
			GET("/:id", h.Outbox.GetEntry).
			POST("/:id/retry", h.Outbox.RetryDeadLetter)
	}

	return []*DomainGroup{fees, payments, concessions, balances, reconciliation, promotions, system}
}

// RegisterLedger registers every ledger group on r.
func RegisterLedger(r *Router, h Handlers, bulkGuard gin.HandlerFunc) *Router {
	for _, g := range LedgerGroups(h, bulkGuard) {
		r.Register(g)
	}
	return r
}
