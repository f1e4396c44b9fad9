package http

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createBookViaAPI(t *testing.T, router *gin.Engine, isbn, title string) float64 {
	w := doJSON(t, router, http.MethodPost, "/api/books", gin.H{
		"isbn":   isbn,
		"title":  title,
		"author": "Author",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	return decodeResponse(t, w)["data"].(map[string]any)["id"].(float64)
}

func TestBorrowAndReturn_RoundTrip(t *testing.T) {
	router := setupTestRouter(t)
	bookID := createBookViaAPI(t, router, "111", "Cosmos")

	w := doJSON(t, router, http.MethodPost, "/api/loans", gin.H{
		"book_id":  bookID,
		"borrower": "Ada",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	loan := decodeResponse(t, w)["data"].(map[string]any)
	assert.Equal(t, "borrowed", loan["status"])
	assert.Equal(t, "Cosmos", loan["book_title"])

	// Borrowing the same book again conflicts.
	w = doJSON(t, router, http.MethodPost, "/api/loans", gin.H{
		"book_id":  bookID,
		"borrower": "Grace",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	loanID := int64(loan["id"].(float64))
	w = doJSON(t, router, http.MethodPut, "/api/loans/"+strconv.FormatInt(loanID, 10)+"/return", nil)
	require.Equal(t, http.StatusOK, w.Code)
	returned := decodeResponse(t, w)["data"].(map[string]any)
	assert.Equal(t, "returned", returned["status"])
}

func TestBorrow_MissingBook(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/loans", gin.H{
		"book_id":  9999,
		"borrower": "Ada",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLoanStatistics_Empty(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/loans/statistics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w)["data"].(map[string]any)
	assert.Equal(t, float64(0), data["total_loans"])
}

func TestReconcileEndpoint(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/loans/reconcile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	parsed := decodeResponse(t, w)
	assert.Equal(t, "reconciliation complete", parsed["message"])
}

func TestSettingsEndpoints(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/settings/loan_duration_days", nil)
	require.Equal(t, http.StatusOK, w.Code)
	setting := decodeResponse(t, w)["data"].(map[string]any)
	assert.Equal(t, "30", setting["value"])

	w = doJSON(t, router, http.MethodPut, "/api/settings/loan_duration_days", gin.H{"value": 14})
	require.Equal(t, http.StatusOK, w.Code)

	// A batch with one bad entry changes nothing.
	w = doJSON(t, router, http.MethodPut, "/api/settings/batch", gin.H{
		"settings": gin.H{
			"library_name":       "New Name",
			"loan_duration_days": "garbage",
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/settings/library_name", nil)
	require.Equal(t, http.StatusOK, w.Code)
	name := decodeResponse(t, w)["data"].(map[string]any)
	assert.Equal(t, "Institutional Library", name["value"])
}
