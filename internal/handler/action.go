package handler

import (
	"errors"
	"net/http"

	"github.com/asterdex/astergate/internal/middleware"
	"github.com/asterdex/astergate/internal/model"
	"github.com/asterdex/astergate/internal/pkg/apperrors"
	"github.com/asterdex/astergate/internal/service"
	"github.com/gin-gonic/gin"
)

type ActionHandler struct {
	svc *service.SigningService
}

func NewActionHandler(svc *service.SigningService) *ActionHandler {
	return &ActionHandler{svc: svc}
}

// TypedData issues a nonce and returns the document the user's wallet signs.
func (h *ActionHandler) TypedData(c *gin.Context) {
	action, req, ok := h.bind(c)
	if !ok {
		return
	}

	prepared, err := h.svc.PrepareAction(req.User, action)
	if err != nil {
		c.Error(err)
		return
	}

	middleware.AddAuditContext(c, "user", req.User)
	middleware.AddAuditContext(c, "nonce", prepared.Nonce)
	c.JSON(http.StatusOK, prepared)
}

// Sign signs the action with the gateway's connected wallet.
func (h *ActionHandler) Sign(c *gin.Context) {
	action, _, ok := h.bind(c)
	if !ok {
		return
	}

	payload, err := h.svc.SignAction(c.Request.Context(), action)
	if err != nil {
		middleware.AddAuditContext(c, "error", err.Error())
		c.Error(err)
		return
	}

	h.respond(c, payload)
}

// Payload verifies a client-produced signature and returns the bundle.
func (h *ActionHandler) Payload(c *gin.Context) {
	action, req, ok := h.bind(c)
	if !ok {
		return
	}

	payload, err := h.svc.AssemblePayload(action, req.User, req.Nonce, req.Signature, req.SignatureChainID)
	if err != nil {
		middleware.AddAuditContext(c, "error", err.Error())
		c.Error(err)
		return
	}

	h.respond(c, payload)
}

func (h *ActionHandler) SignMessage(c *gin.Context) {
	var req model.SignMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	sig, err := h.svc.SignMessage(c.Request.Context(), req.Msg)
	if err != nil {
		c.Error(err)
		return
	}

	middleware.AddAuditContext(c, "primary_type", "Message")
	c.JSON(http.StatusOK, model.SignMessageResponse{
		Address:   h.svc.Address(),
		Signature: sig,
	})
}

func (h *ActionHandler) bind(c *gin.Context) (model.Action, *model.ActionRequest, bool) {
	primaryType := c.Param("action")
	middleware.AddAuditContext(c, "primary_type", primaryType)

	var req model.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return nil, nil, false
	}

	action, err := service.DecodeAction(primaryType, req.Params)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownAction):
			c.Error(apperrors.New(apperrors.ErrUnknownAction, err.Error(), err))
		default:
			c.Error(apperrors.New(apperrors.ErrInvalidRequest, err.Error(), err))
		}
		return nil, nil, false
	}
	return action, &req, true
}

func (h *ActionHandler) respond(c *gin.Context, payload *model.Payload) {
	endpoint, _ := h.svc.Endpoint(payload.PrimaryType)
	user, _ := payload.Params.Get("user")
	nonce, _ := payload.Params.Get("nonce")
	middleware.AddAuditContext(c, "user", user.String())
	middleware.AddAuditContext(c, "nonce", nonce.String())
	middleware.AddAuditContext(c, "status", "signed")

	c.JSON(http.StatusOK, model.SignedActionResponse{
		PrimaryType: payload.PrimaryType,
		Endpoint:    endpoint,
		Payload:     payload,
		Form:        payload.Values().Encode(),
	})
}
