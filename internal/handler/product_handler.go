package handler

import (
	"net/http"

	"stockreport/internal/middleware"
	"stockreport/internal/model"
	"stockreport/internal/service"
	"stockreport/pkg/response"

	"github.com/gin-gonic/gin"
)

type ProductHandler struct {
	productService service.ProductService
	requireAuth    gin.HandlerFunc
}

func NewProductHandler(productService service.ProductService, requireAuth gin.HandlerFunc) *ProductHandler {
	return &ProductHandler{productService: productService, requireAuth: requireAuth}
}

func (h *ProductHandler) RegisterRoutes(router *gin.RouterGroup) {
	products := router.Group("/products")
	products.Use(h.requireAuth)
	{
		products.GET("", h.ListProducts)
		products.POST("", middleware.RequireRole(model.RoleOfficial), h.CreateProduct)
		products.DELETE("/:id", middleware.RequireRole(model.RoleOfficial), h.DeleteProduct)
	}
}

// ListProducts handles GET /api/products
// @Summary      List products
// @Description  The product master list sorted by name
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.ProductResponse}
// @Router       /api/products [get]
func (h *ProductHandler) ListProducts(c *gin.Context) {
	products, err := h.productService.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, products))
}

// CreateProduct handles POST /api/products
// @Summary      Add a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateProductRequest  true  "Product"
// @Success      201      {object}  response.Response{data=service.ProductResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/products [post]
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	var req service.CreateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}

	product, err := h.productService.Create(c.Request.Context(), req, caller)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

// DeleteProduct handles DELETE /api/products/:id
// @Summary      Remove a product
// @Description  Refused while any report refers to the product name
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id} [delete]
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	if err := h.productService.Delete(c.Request.Context(), c.Param("id"), caller); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{}))
}
