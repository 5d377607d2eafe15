package routes

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"servicesync-server/models"
	"servicesync-server/services"
	"servicesync-server/utils"
)

// RegisterRequestRoutes registers request creation, listing and the guarded
// lifecycle transitions.
func (h *Handler) RegisterRequestRoutes(rg *gin.RouterGroup) {
	rg.POST("/create-request", h.allow(services.ActionCreateRequest), h.createRequest)
	rg.GET("/get-all-requests", h.allow(services.ActionViewAllRequests), h.listAllRequests)
	rg.GET("/get-request-by-id/:requestID", h.allow(services.ActionViewRequest), h.getRequest)
	rg.GET("/get-open-requests", h.allow(services.ActionViewOpenRequests), h.listRequests(h.Requests.ListOpenForStore))
	rg.GET("/get-users-request", h.allow(services.ActionViewOwnRequests), h.listRequests(h.Requests.ListForRequestor))
	rg.GET("/get-accepted-requests", h.allow(services.ActionViewAcceptedRequests), h.listRequests(h.Requests.ListAccepted))
	rg.GET("/get-completed-requests", h.allow(services.ActionViewCompletedRequests), h.listRequests(h.Requests.ListCompleted))

	rg.PATCH("/accept-request/:requestID", h.allow(services.ActionAcceptRequest), h.transition(h.Lifecycle.Accept, "Request accepted"))
	rg.PATCH("/complete-request/:requestID", h.allow(services.ActionCompleteRequest), h.transition(h.Lifecycle.Complete, "Request completed"))
	rg.PUT("/update-request/:requestID", h.allow(services.ActionUpdateRequest), h.updateRequest)
	rg.DELETE("/delete-request/:requestID", h.allow(services.ActionDeleteRequest), h.deleteRequest)
}

func (h *Handler) createRequest(c *gin.Context) {
	actor, err := actorFrom(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	var in services.CreateRequestInput
	if err := c.ShouldBind(&in); err != nil {
		utils.RespondError(c, bindError(err))
		return
	}

	image, err := h.uploadImage(c, "images", fmt.Sprintf("requests/%d", actor.ID))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if image != nil {
		in.ImagePublicID, in.ImageURL = image.PublicID, image.URL
	}

	req, err := h.Requests.Create(c.Request.Context(), actor, in)
	if err != nil {
		if image != nil {
			h.discardImage(image.PublicID)
		}
		utils.RespondError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusCreated, "Request created successfully", gin.H{"request": req})
}

func (h *Handler) listAllRequests(c *gin.Context) {
	reqs, err := h.Requests.ListAll(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "", gin.H{"requests": reqs})
}

func (h *Handler) getRequest(c *gin.Context) {
	actor, err := actorFrom(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	id, err := paramID(c, "requestID")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	req, err := h.Requests.Get(c.Request.Context(), actor, id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "", gin.H{"request": req})
}

// listRequests serves a listing scoped to the authenticated caller. Query
// and body parameters never change the scope.
func (h *Handler) listRequests(list func(context.Context, services.Actor) ([]models.Request, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := actorFrom(c)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		reqs, err := list(c.Request.Context(), actor)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.RespondOK(c, http.StatusOK, "", gin.H{"requests": reqs})
	}
}

type transitionFunc func(context.Context, services.Actor, uint) (*models.Request, *models.User, error)

func (h *Handler) transition(apply transitionFunc, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := actorFrom(c)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		id, err := paramID(c, "requestID")
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		req, user, err := apply(c.Request.Context(), actor, id)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.RespondOK(c, http.StatusOK, message, gin.H{"request": req, "user": user})
	}
}

func (h *Handler) updateRequest(c *gin.Context) {
	actor, err := actorFrom(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	id, err := paramID(c, "requestID")
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	var in services.RequestUpdate
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBind(&in); err != nil {
			utils.RespondError(c, bindError(err))
			return
		}
	}
	if in.Status != nil {
		utils.RespondError(c, fmt.Errorf("%w: use accept-request or complete-request to change status", services.ErrInvalidTransition))
		return
	}

	image, err := h.uploadImage(c, "images", fmt.Sprintf("requests/%d", actor.ID))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if image != nil {
		in.ImagePublicID, in.ImageURL = &image.PublicID, &image.URL
	}

	req, replaced, err := h.Lifecycle.UpdateRequest(c.Request.Context(), actor, id, in)
	if err != nil {
		if image != nil {
			h.discardImage(image.PublicID)
		}
		utils.RespondError(c, err)
		return
	}
	h.discardImage(replaced)
	utils.RespondOK(c, http.StatusOK, "Request updated successfully", gin.H{"request": req})
}

func (h *Handler) deleteRequest(c *gin.Context) {
	id, err := paramID(c, "requestID")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	req, err := h.Lifecycle.DeleteRequest(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	h.discardImage(req.ImagePublicID)
	utils.RespondOK(c, http.StatusOK, "Request deleted successfully", nil)
}
