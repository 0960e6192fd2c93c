package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"inventoryflow/internal/common"
	"inventoryflow/internal/models"
	"inventoryflow/internal/repositories"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ProductHandlers handles HTTP requests for products
type ProductHandlers struct {
	productRepo repositories.ProductRepository
	threshold   int
	logger      *zap.Logger
}

// NewProductHandlers takes the low stock threshold so restocks know when a
// product becomes available again.
func NewProductHandlers(productRepo repositories.ProductRepository, threshold int, logger *zap.Logger) *ProductHandlers {
	return &ProductHandlers{productRepo: productRepo, threshold: threshold, logger: logger.Named("products")}
}

func (h *ProductHandlers) ListProducts(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return common.SendValidationError(c, err.Error())
	}

	products, err := h.productRepo.List(c.Request().Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		return common.SendServerError(c, "Failed to retrieve products")
	}
	if products == nil {
		products = []*models.Product{}
	}
	return common.SendSuccess(c, http.StatusOK, "Products retrieved successfully", map[string]interface{}{
		"products": products,
		"limit":    limit,
		"offset":   offset,
	})
}

func (h *ProductHandlers) GetProduct(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, err.Error())
	}

	product, err := h.productRepo.GetByID(c.Request().Context(), id)
	if errors.Is(err, repositories.ErrNotFound) {
		return common.SendNotFoundError(c, "Product")
	}
	if err != nil {
		h.logger.Error("Failed to get product", zap.String("id", id.String()), zap.Error(err))
		return common.SendServerError(c, "Failed to retrieve product")
	}
	return common.SendSuccess(c, http.StatusOK, "Product retrieved successfully", product)
}

// UpdateStock sets the stock level. Reaching the threshold clears the
// out-of-stock flag so the product can be alerted on again later.
func (h *ProductHandlers) UpdateStock(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, err.Error())
	}

	var req models.StockUpdate
	if err := c.Bind(&req); err != nil {
		return common.SendValidationError(c, "Invalid request format")
	}
	if req.Stock == nil {
		return common.SendValidationError(c, "stock is required")
	}
	if *req.Stock < 0 {
		return common.SendValidationError(c, "stock cannot be negative")
	}

	product, err := h.productRepo.UpdateStock(c.Request().Context(), id, *req.Stock, h.threshold)
	if errors.Is(err, repositories.ErrNotFound) {
		return common.SendNotFoundError(c, "Product")
	}
	if err != nil {
		h.logger.Error("Failed to update stock", zap.String("id", id.String()), zap.Error(err))
		return common.SendServerError(c, "Failed to update stock")
	}
	return common.SendSuccess(c, http.StatusOK, "Stock updated successfully", product)
}
