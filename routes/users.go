package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"servicesync-server/models"
	"servicesync-server/services"
	"servicesync-server/utils"
)

// RegisterUserRoutes registers account administration and profile routes.
func (h *Handler) RegisterUserRoutes(rg *gin.RouterGroup) {
	manage := h.allow(services.ActionManageUsers)

	rg.POST("/register", manage, h.registerUser)
	rg.GET("/get-all-customers", manage, h.listUsers(models.RoleCustomer))
	rg.GET("/get-all-store-owners", manage, h.listUsers(models.RoleStoreOwner))
	rg.GET("/get-user-info/:userId", manage, h.getUser)
	rg.DELETE("/delete-user/:userId", manage, h.deleteUser)

	rg.PUT("/update-user-info/:userId", h.allow(services.ActionUpdateProfile), h.updateUser)
	rg.PUT("/update-user-password", h.allow(services.ActionChangePassword), h.updatePassword)
}

func (h *Handler) registerUser(c *gin.Context) {
	var in services.RegisterInput
	if err := c.ShouldBind(&in); err != nil {
		utils.RespondError(c, bindError(err))
		return
	}

	avatar, err := h.uploadImage(c, "avatar", "avatars")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if avatar != nil {
		in.Avatar = avatar.URL
	}

	user, err := h.Users.Register(c.Request.Context(), in)
	if err != nil {
		if avatar != nil {
			h.discardImage(avatar.PublicID)
		}
		utils.RespondError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusCreated, "User registered successfully", gin.H{"user": user})
}

func (h *Handler) listUsers(role models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := h.Users.ListByRole(c.Request.Context(), role)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.RespondOK(c, http.StatusOK, "", gin.H{"users": users})
	}
}

func (h *Handler) getUser(c *gin.Context) {
	id, err := paramID(c, "userId")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	user, err := h.Users.FindByID(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "", gin.H{"user": user})
}

func (h *Handler) deleteUser(c *gin.Context) {
	id, err := paramID(c, "userId")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if _, err := h.Users.Delete(c.Request.Context(), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "User deleted successfully", nil)
}

func (h *Handler) updateUser(c *gin.Context) {
	actor, err := actorFrom(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	id, err := paramID(c, "userId")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	var in services.UpdateUserInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBind(&in); err != nil {
			utils.RespondError(c, bindError(err))
			return
		}
	}

	avatar, err := h.uploadImage(c, "avatar", "avatars")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if avatar != nil {
		in.Avatar = &avatar.URL
	}

	user, err := h.Users.UpdateInfo(c.Request.Context(), actor, id, in)
	if err != nil {
		if avatar != nil {
			h.discardImage(avatar.PublicID)
		}
		utils.RespondError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "User updated successfully", gin.H{"user": user})
}

func (h *Handler) updatePassword(c *gin.Context) {
	actor, err := actorFrom(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	var req struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, bindError(err))
		return
	}
	if err := h.Users.UpdatePassword(c.Request.Context(), actor, req.OldPassword, req.NewPassword); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Password updated successfully", nil)
}
