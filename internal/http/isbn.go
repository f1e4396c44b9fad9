package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carrelhq/carrel/internal/isbn"
)

type ISBNController struct {
	client *isbn.Client
}

func NewISBNController(client *isbn.Client) *ISBNController {
	return &ISBNController{
		client: client,
	}
}

func (controller *ISBNController) LookupISBN(c *gin.Context) {
	metadata, err := controller.client.Lookup(c.Request.Context(), c.Param("isbn"))
	if err != nil {
		if errors.Is(err, isbn.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "ISBN not found"})
			return
		}
		respondError(c, err)
		return
	}
	respondOK(c, metadata)
}

func (controller *ISBNController) LookupISBNBatch(c *gin.Context) {
	var body struct {
		ISBNs []string `json:"isbns"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if len(body.ISBNs) == 0 {
		respondBadRequest(c, "isbns must not be empty")
		return
	}

	respondOK(c, controller.client.LookupBatch(c.Request.Context(), body.ISBNs))
}
