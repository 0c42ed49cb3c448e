package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"stockreport/internal/apperror"
	"stockreport/internal/model"
	"stockreport/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type CreateProductRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

type ProductResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProductService manages the master list of product names reports refer to.
type ProductService interface {
	List(ctx context.Context) ([]ProductResponse, error)
	Create(ctx context.Context, req CreateProductRequest, actor model.Identity) (*ProductResponse, error)
	Delete(ctx context.Context, id string, actor model.Identity) error
}

type productService struct {
	products repository.ProductRepository
	reports  repository.ReportRepository
	audit    repository.AuditRepository
	tx       repository.TransactionManager
}

func NewProductService(products repository.ProductRepository, reports repository.ReportRepository, audit repository.AuditRepository, tx repository.TransactionManager) ProductService {
	return &productService{products: products, reports: reports, audit: audit, tx: tx}
}

func mapProduct(p *model.Product) ProductResponse {
	return ProductResponse{ID: p.ID.String(), Name: p.Name, CreatedAt: p.CreatedAt}
}

func (s *productService) List(ctx context.Context) ([]ProductResponse, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list products")
		return nil, apperror.Store("failed to list products", err)
	}
	res := make([]ProductResponse, 0, len(products))
	for i := range products {
		res = append(res, mapProduct(&products[i]))
	}
	return res, nil
}

func (s *productService) Create(ctx context.Context, req CreateProductRequest, actor model.Identity) (*ProductResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Validation("Product name is required")
	}

	product := &model.Product{Name: name}
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.products.FindByNameFold(txCtx, name); err == nil {
			return apperror.Conflict("Product already exists")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.Store("failed to check product", err)
		}

		if err := s.products.Create(txCtx, product); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.Conflict("Product already exists")
			}
			return apperror.Store("failed to create product", err)
		}

		details, _ := json.Marshal(map[string]string{"name": product.Name})
		if err := s.audit.Log(txCtx, &model.AuditLog{
			UserID:     actorID(actor),
			Action:     model.ActionCreateProduct,
			EntityID:   product.ID.String(),
			EntityName: product.Name,
			Details:    string(details),
		}); err != nil {
			return apperror.Store("failed to write audit log", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.logged("create product", err)
	}

	res := mapProduct(product)
	return &res, nil
}

// Delete removes a product unless a report still refers to its name. The row
// lock waits out report transactions that share-locked the product, so the
// usage count sees their inserts.
func (s *productService) Delete(ctx context.Context, id string, actor model.Identity) error {
	productID, err := uuid.Parse(id)
	if err != nil {
		return apperror.NotFound("Product not found")
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		product, err := s.products.FindByIDForUpdate(txCtx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("Product not found")
			}
			return apperror.Store("failed to find product", err)
		}

		inUse, err := s.reports.CountByProductName(txCtx, product.Name)
		if err != nil {
			return apperror.Store("failed to check product usage", err)
		}
		if inUse > 0 {
			return apperror.Conflict("Product is referenced by existing reports")
		}

		if err := s.products.Delete(txCtx, productID); err != nil {
			return apperror.Store("failed to delete product", err)
		}

		details, _ := json.Marshal(map[string]string{"name": product.Name})
		if err := s.audit.Log(txCtx, &model.AuditLog{
			UserID:     actorID(actor),
			Action:     model.ActionDeleteProduct,
			EntityID:   product.ID.String(),
			EntityName: product.Name,
			Details:    string(details),
		}); err != nil {
			return apperror.Store("failed to write audit log", err)
		}
		return nil
	})
	if err != nil {
		return s.logged("delete product", err)
	}
	return nil
}

// logged logs store failures and passes every error through as a typed error.
func (s *productService) logged(op string, err error) error {
	appErr := apperror.As(err)
	if appErr.Kind == apperror.KindStore {
		log.Error().Err(err).Str("op", op).Msg("product store failure")
	}
	return appErr
}
