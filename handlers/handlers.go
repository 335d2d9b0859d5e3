package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/dyeing_backend/config"
	"github.com/mmdatafocus/dyeing_backend/models"
	"github.com/mmdatafocus/dyeing_backend/utils"
)

// RegisterRoutes mounts the pipeline operations.
func RegisterRoutes(r gin.IRouter) {
	r.GET("/machines/:id", byId(models.GetMachine))
	r.GET("/deal-orders/:id", byId(models.GetDealOrder))
	r.GET("/product-details/:id", byId(models.GetProductDetail))

	r.GET("/dyeing-processes/:id", byId(models.GetDyeingProcess))
	r.POST("/dyeing-processes", create(models.CreateDyeingProcess))
	r.PATCH("/dyeing-processes/:id", update(models.UpdateDyeingProcess))
	r.DELETE("/dyeing-processes/:id", byId(models.DeleteDyeingProcess))

	r.GET("/invoices/:id", byId(models.GetInvoice))
	r.POST("/invoices", create(models.CreateInvoice))
	r.PATCH("/invoices/:id", update(models.UpdateInvoice))
	r.DELETE("/invoices/:id", byId(models.DeleteInvoice))

	r.POST("/payments", create(models.CreatePayment))
	r.PATCH("/payments/:id", update(models.UpdatePayment))
	r.DELETE("/payments/:id", byId(models.DeletePayment))

	r.POST("/returns", create(models.CreateReturn))
	r.PATCH("/returns/:id", update(models.UpdateReturn))
	r.DELETE("/returns/:id", byId(models.DeleteReturn))

	r.POST("/shipments", create(models.CreateShipment))
	r.PATCH("/shipments/:id", update(models.UpdateShipment))
	r.DELETE("/shipments/:id", byId(models.DeleteShipment))

	r.POST("/machines/:id/maintenance", setMachineMaintenance)
}

func create[In any, Out any](op func(context.Context, *In) (*Out, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input In
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := op(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

func update[In any, Out any](op func(context.Context, int, *In) (*Out, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input In
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := op(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// byId serves reads and deletes addressed by the :id path param.
func byId[Out any](op func(context.Context, int) (*Out, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		result, err := op(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

type maintenanceRequest struct {
	UnderMaintenance bool `json:"under_maintenance"`
}

func setMachineMaintenance(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var req maintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	machine, err := models.SetMachineMaintenance(c.Request.Context(), id, req.UnderMaintenance)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, machine)
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// respondError maps the error taxonomy onto a status code. Transaction failures
// are logged with the cause but answered without it.
func respondError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)
	body := gin.H{"error": err.Error()}
	if kind, ok := utils.KindOf(err); ok {
		body["kind"] = kind
	}
	if cid, ok := utils.GetCorrelationIdFromContext(c.Request.Context()); ok {
		body["correlation_id"] = cid
	}
	if status >= http.StatusInternalServerError {
		config.LogError(config.GetLogger(), "handlers", c.FullPath(), "request failed", c.Request.Method, err)
		body["error"] = "transaction failed, please retry"
		body["retryable"] = utils.IsRetryable(err)
	}
	_ = c.Error(err)
	c.JSON(status, body)
}
