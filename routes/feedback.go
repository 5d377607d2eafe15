package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"servicesync-server/services"
	"servicesync-server/utils"
)

// RegisterFeedbackRoutes registers feedback attach and administration routes.
func (h *Handler) RegisterFeedbackRoutes(rg *gin.RouterGroup) {
	rg.PATCH("/attach-feedback-to-request/:requestID", h.allow(services.ActionAttachFeedback), h.attachFeedback)
	rg.GET("/get-all-feedbacks", h.allow(services.ActionViewAllFeedback), h.listFeedback)
	rg.GET("/get-feedback-by-id/:feedbackID", h.allow(services.ActionViewFeedback), h.getFeedback)
	rg.GET("/get-feedback-by-user", h.allow(services.ActionViewStoreFeedback), h.listStoreFeedback)
	rg.DELETE("/delete-feedback/:feedbackID", h.allow(services.ActionDeleteFeedback), h.deleteFeedback)
}

func (h *Handler) attachFeedback(c *gin.Context) {
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
	// A fractional rating fails to bind into the int field.
	var in services.FeedbackInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, bindError(err))
		return
	}

	feedback, req, err := h.Lifecycle.AttachFeedback(c.Request.Context(), actor, id, in)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusCreated, "Feedback submitted successfully", gin.H{
		"feedback": feedback,
		"request":  req,
	})
}

func (h *Handler) listFeedback(c *gin.Context) {
	feedback, err := h.Feedback.List(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "", gin.H{"feedbacks": feedback})
}

func (h *Handler) listStoreFeedback(c *gin.Context) {
	actor, err := actorFrom(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	feedback, err := h.Feedback.ListForStore(c.Request.Context(), actor.ID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "", gin.H{"feedbacks": feedback})
}

func (h *Handler) getFeedback(c *gin.Context) {
	actor, err := actorFrom(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	id, err := paramID(c, "feedbackID")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	feedback, err := h.Feedback.Get(c.Request.Context(), actor, id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "", gin.H{"feedback": feedback})
}

func (h *Handler) deleteFeedback(c *gin.Context) {
	id, err := paramID(c, "feedbackID")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := h.Feedback.Delete(c.Request.Context(), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Feedback deleted successfully", nil)
}
