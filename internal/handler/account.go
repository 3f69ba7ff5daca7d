package handler

import (
	"net/http"

	"github.com/asterdex/astergate/internal/model"
	"github.com/asterdex/astergate/internal/service"
	"github.com/gin-gonic/gin"
)

type AccountHandler struct {
	svc *service.SigningService
}

func NewAccountHandler(svc *service.SigningService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// GetWallet reports the connected signing account and domain.
func (h *AccountHandler) GetWallet(c *gin.Context) {
	address := h.svc.Address()
	c.JSON(http.StatusOK, model.WalletStatus{
		Connected:         address != "",
		Address:           address,
		ChainID:           h.svc.SignatureChainID(),
		Domain:            h.svc.Domain(),
		SigningInProgress: h.svc.InProgress(),
		Actions:           service.ActionNames(),
	})
}
