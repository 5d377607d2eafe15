package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"servicesync-server/services"
	"servicesync-server/utils"
)

// RegisterCatalogRoutes registers service and job routes. Reads are open to
// every signed-in role, writes to administrators.
func (h *Handler) RegisterCatalogRoutes(rg *gin.RouterGroup) {
	read := h.allow(services.ActionReadCatalog)
	manage := h.allow(services.ActionManageCatalog)

	rg.POST("/add-service", manage, h.createService)
	rg.GET("/get-all-services", read, h.listServices)
	rg.GET("/get-single-service/:id", read, h.getService)
	rg.PUT("/update-service/:id", manage, h.updateService)
	rg.DELETE("/delete-service/:id", manage, h.deleteService)

	rg.POST("/add-job", manage, h.createJob)
	rg.GET("/get-all-jobs", read, h.listJobs)
	rg.GET("/get-single-job/:id", read, h.getJob)
	rg.PUT("/update-job/:id", manage, h.updateJob)
	rg.DELETE("/delete-job/:id", manage, h.deleteJob)
}

func (h *Handler) createService(c *gin.Context) {
	var in services.ServiceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, bindError(err))
		return
	}
	svc, err := h.Catalog.CreateService(c.Request.Context(), in)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusCreated, "Service created successfully", gin.H{"service": svc})
}

func (h *Handler) listServices(c *gin.Context) {
	svcs, err := h.Catalog.ListServices(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "", gin.H{"services": svcs})
}

func (h *Handler) getService(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	svc, err := h.Catalog.GetService(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "", gin.H{"service": svc})
}

func (h *Handler) updateService(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	var in services.ServiceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, bindError(err))
		return
	}
	svc, err := h.Catalog.UpdateService(c.Request.Context(), id, in)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Service updated successfully", gin.H{"service": svc})
}

func (h *Handler) deleteService(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := h.Catalog.DeleteService(c.Request.Context(), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Service deleted successfully", nil)
}

func (h *Handler) createJob(c *gin.Context) {
	var in services.JobInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, bindError(err))
		return
	}
	job, err := h.Catalog.CreateJob(c.Request.Context(), in)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusCreated, "Job created successfully", gin.H{"job": job})
}

func (h *Handler) listJobs(c *gin.Context) {
	jobs, err := h.Catalog.ListJobs(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "", gin.H{"jobs": jobs})
}

func (h *Handler) getJob(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	job, err := h.Catalog.GetJob(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "", gin.H{"job": job})
}

func (h *Handler) updateJob(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	var in services.JobInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, bindError(err))
		return
	}
	job, err := h.Catalog.UpdateJob(c.Request.Context(), id, in)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Job updated successfully", gin.H{"job": job})
}

func (h *Handler) deleteJob(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := h.Catalog.DeleteJob(c.Request.Context(), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Job deleted successfully", nil)
}
