package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"coopstore/internal/inventory"
	"coopstore/internal/models"
	"coopstore/internal/store"
)

// CatalogStore is the product persistence the catalog handlers use.
type CatalogStore interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	FindProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	FindProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	FindAnyProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	ListProducts(ctx context.Context, f store.ProductFilter) ([]models.Product, int64, error)
	Categories(ctx context.Context) ([]string, error)
	InsertProduct(ctx context.Context, p *models.Product) error
	SaveProduct(ctx context.Context, p *models.Product) error
	AppendLogs(ctx context.Context, entries []models.Log) error
}

/* =======================
   REQUEST MODELS
======================= */

type productRequest struct {
	Name         string                 `json:"name" binding:"required"`
	Description  string                 `json:"description"`
	Category     string                 `json:"category" binding:"required"`
	Price        float64                `json:"price" binding:"required,gt=0"`
	Image        string                 `json:"image"`
	Size         []string               `json:"size"`
	Type         []string               `json:"type"`
	Inventory    []models.InventoryLine `json:"inventory"`
	CountInStock *int                   `json:"countInStock"`
}

// apply copies the request onto p. Declared size/type labels must cover every
// inventory line; when none are declared they are taken from the inventory.
func (req productRequest) apply(p *models.Product) error {
	name := strings.TrimSpace(req.Name)
	category := strings.TrimSpace(req.Category)
	if name == "" {
		return errors.New("name required")
	}
	if category == "" {
		return errors.New("category required")
	}

	sizes := models.StringList(req.Size).Normalize()
	types := models.StringList(req.Type).Normalize()
	declared := len(sizes) > 0 || len(types) > 0

	lines := make([]models.InventoryLine, 0, len(req.Inventory))
	seen := make(map[[2]string]struct{}, len(req.Inventory))
	for _, line := range req.Inventory {
		line.Size = strings.TrimSpace(line.Size)
		line.Type = strings.TrimSpace(line.Type)
		if line.Quantity < 0 {
			return fmt.Errorf("inventory quantity for %s/%s must be zero or greater", line.Size, line.Type)
		}
		key := [2]string{line.Size, line.Type}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate inventory line %s/%s", line.Size, line.Type)
		}
		seen[key] = struct{}{}

		if declared {
			if line.Size != "" && !contains(sizes, line.Size) {
				return fmt.Errorf("inventory size %q is not a declared size", line.Size)
			}
			if line.Type != "" && !contains(types, line.Type) {
				return fmt.Errorf("inventory type %q is not a declared type", line.Type)
			}
		} else {
			sizes = appendLabel(sizes, line.Size)
			types = appendLabel(types, line.Type)
		}
		lines = append(lines, line)
	}

	if req.CountInStock != nil && *req.CountInStock < 0 {
		return errors.New("countInStock must be zero or greater")
	}

	p.Name = name
	p.Slug = slug.Make(name)
	p.Description = strings.TrimSpace(req.Description)
	p.Category = category
	p.Price = req.Price
	p.Image = strings.TrimSpace(req.Image)
	p.Size = sizes
	p.Type = types
	p.Inventory = lines
	if len(lines) == 0 && req.CountInStock != nil {
		p.CountInStock = *req.CountInStock
	}
	inventory.Recount(p)
	return nil
}

func contains(list models.StringList, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

func appendLabel(list models.StringList, value string) models.StringList {
	if value == "" || contains(list, value) {
		return list
	}
	return append(list, value)
}

// presentProduct fills CountInStock from the inventory so a stale cached
// total is never served.
func presentProduct(p *models.Product) *models.Product {
	p.CountInStock = p.TotalStock()
	if p.Size == nil {
		p.Size = models.StringList{}
	}
	if p.Type == nil {
		p.Type = models.StringList{}
	}
	if p.Inventory == nil {
		p.Inventory = []models.InventoryLine{}
	}
	return p
}

/* =======================
   PUBLIC CATALOG
======================= */

func GetProducts(st CatalogStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products"
		defer handlePanic(c, route)

		filter := store.ProductFilter{
			Category: c.Query("category"),
			Search:   c.Query("search"),
		}

		// pagination only applies when both page and limit are sent
		pageStr, limitStr := c.Query("page"), c.Query("limit")
		if pageStr != "" && limitStr != "" {
			page, limit, err := parsePaginationParams(pageStr, limitStr)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, err.Error())
				return
			}
			filter.Page, filter.Limit = page, limit
		}

		products, total, err := st.ListProducts(c.Request.Context(), filter)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		for i := range products {
			presentProduct(&products[i])
		}

		log.Printf("[%s] returning %d products", route, len(products))
		if filter.Limit > 0 {
			respondPage(c, products, filter.Page, filter.Limit, total)
			return
		}
		respondOK(c, http.StatusOK, products)
	}
}

func GetProduct(st CatalogStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/:id"
		defer handlePanic(c, route)

		// :id is either an ObjectID or a product slug
		var product *models.Product
		var err error
		if id, parseErr := primitive.ObjectIDFromHex(c.Param("id")); parseErr == nil {
			product, err = st.FindProduct(c.Request.Context(), id)
		} else {
			product, err = st.FindProductBySlug(c.Request.Context(), strings.ToLower(c.Param("id")))
		}
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, presentProduct(product))
	}
}

func GetCategories(st CatalogStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /categories"
		defer handlePanic(c, route)

		categories, err := st.Categories(c.Request.Context())
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		log.Printf("[%s] returning %d categories", route, len(categories))
		respondOK(c, http.StatusOK, categories)
	}
}

/* =======================
   ADMIN
======================= */

func GetAllProducts(st CatalogStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/products"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		products, total, err := st.ListProducts(c.Request.Context(), store.ProductFilter{
			Category:        c.Query("category"),
			Search:          c.Query("search"),
			IncludeArchived: strings.EqualFold(c.Query("archived"), "true"),
			Page:            page,
			Limit:           limit,
		})
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		for i := range products {
			presentProduct(&products[i])
		}
		respondPage(c, products, page, limit, total)
	}
}

func CreateProduct(st CatalogStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/products"
		defer handlePanic(c, route)

		var req productRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		product := &models.Product{}
		if err := req.apply(product); err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		actor := callerActor(c)
		err := st.WithTransaction(c.Request.Context(), func(ctx context.Context) error {
			product.ID = primitive.NilObjectID
			if err := st.InsertProduct(ctx, product); err != nil {
				return err
			}
			return st.AppendLogs(ctx, []models.Log{
				models.NewLog(actor, models.ActionCreate, product.ID, "Product created: "+product.Name, time.Now()),
			})
		})
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		log.Printf("[%s] product %s created", route, product.ID.Hex())
		respondOK(c, http.StatusCreated, presentProduct(product))
	}
}

func UpdateProduct(st CatalogStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/api/products/:id"
		defer handlePanic(c, route)

		id, ok := parseObjectID(c, route, "id")
		if !ok {
			return
		}

		var req productRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		actor := callerActor(c)
		var updated *models.Product
		err := st.WithTransaction(c.Request.Context(), func(ctx context.Context) error {
			product, err := st.FindProduct(ctx, id)
			if err != nil {
				return err
			}
			if err := req.apply(product); err != nil {
				return &badRequestError{err}
			}
			if err := st.SaveProduct(ctx, product); err != nil {
				return err
			}
			updated = product
			return st.AppendLogs(ctx, []models.Log{
				models.NewLog(actor, models.ActionUpdate, product.ID, "Product updated: "+product.Name, time.Now()),
			})
		})

		var badReq *badRequestError
		switch {
		case errors.As(err, &badReq):
			respondWithError(c, http.StatusBadRequest, route, badReq.Error())
			return
		case errors.Is(err, store.ErrNotFound):
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		case err != nil:
			respondServiceError(c, route, err)
			return
		}

		respondOK(c, http.StatusOK, presentProduct(updated))
	}
}

// ArchiveProduct soft-deletes a product. Archived products disappear from the
// catalog and are skipped by stock reconciliation.
func ArchiveProduct(st CatalogStore) gin.HandlerFunc {
	return setArchived(st, "DELETE /admin/api/products/:id", true)
}

func RestoreProduct(st CatalogStore) gin.HandlerFunc {
	return setArchived(st, "POST /admin/api/products/:id/restore", false)
}

func setArchived(st CatalogStore, route string, archived bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, route)

		id, ok := parseObjectID(c, route, "id")
		if !ok {
			return
		}

		actor := callerActor(c)
		var product *models.Product
		err := st.WithTransaction(c.Request.Context(), func(ctx context.Context) error {
			var err error
			product, err = st.FindAnyProduct(ctx, id)
			if err != nil {
				return err
			}
			if product.IsDeleted == archived {
				return nil
			}

			now := time.Now()
			action, reason := models.ActionRestore, "Product restored: "
			product.IsDeleted = archived
			product.DeletedAt = nil
			if archived {
				action, reason = models.ActionArchive, "Product archived: "
				product.DeletedAt = &now
			}
			if err := st.SaveProduct(ctx, product); err != nil {
				return err
			}
			return st.AppendLogs(ctx, []models.Log{models.NewLog(actor, action, product.ID, reason+product.Name, now)})
		})
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		respondOK(c, http.StatusOK, presentProduct(product))
	}
}

type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string {
	return e.err.Error()
}
