package http

import (
	"github.com/gin-gonic/gin"

	"github.com/carrelhq/carrel/internal/lending"
)

type LoansController struct {
	lending *lending.Service
}

func NewLoansController(lending *lending.Service) *LoansController {
	return &LoansController{
		lending: lending,
	}
}

func (controller *LoansController) ListLoans(c *gin.Context) {
	opts := lending.ListOptions{
		Page:     parseQueryInt(c, "page", 1),
		Limit:    parseQueryInt(c, "limit", 20),
		Status:   c.Query("status"),
		Borrower: c.Query("borrower"),
		Overdue:  c.Query("overdue") == "true",
	}

	loans, total, err := controller.lending.List(opts)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, PaginatedData{Items: loans, Total: total, Page: opts.Page, Limit: opts.Limit})
}

func (controller *LoansController) BorrowBook(c *gin.Context) {
	var input lending.BorrowInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	loan, err := controller.lending.Borrow(input)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, loan)
}

func (controller *LoansController) ReturnBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	loan, err := controller.lending.Return(id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, loan)
}

func (controller *LoansController) ListLoansForBook(c *gin.Context) {
	bookID, ok := parseIDParam(c, "bookId")
	if !ok {
		return
	}

	loans, err := controller.lending.ListForBook(bookID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, loans)
}

func (controller *LoansController) ListOverdueLoans(c *gin.Context) {
	loans, err := controller.lending.Overdue()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, loans)
}

func (controller *LoansController) ListDueSoonLoans(c *gin.Context) {
	loans, err := controller.lending.DueSoon(parseQueryInt(c, "days", 3))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, loans)
}

func (controller *LoansController) GetRecentActivity(c *gin.Context) {
	activities, err := controller.lending.RecentActivity(parseQueryInt(c, "limit", 10))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, activities)
}

func (controller *LoansController) GetLoanStatistics(c *gin.Context) {
	stats, err := controller.lending.Statistics()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, stats)
}

func (controller *LoansController) GetLoanTrend(c *gin.Context) {
	points, err := controller.lending.Trend(parseQueryInt(c, "days", 30))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, points)
}

func (controller *LoansController) GetPopularBooks(c *gin.Context) {
	books, err := controller.lending.PopularBooks(parseQueryInt(c, "limit", 10))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, books)
}

func (controller *LoansController) ReconcileLoans(c *gin.Context) {
	report, err := controller.lending.Reconcile()
	if err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "reconciliation complete", report)
}
