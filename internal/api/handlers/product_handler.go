package handlers

import (
	"net/http"

	"github.com/andresuchdata/retailbill/backend-go/internal/domain"
	"github.com/andresuchdata/retailbill/backend-go/internal/importer"
	"github.com/andresuchdata/retailbill/backend-go/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type ProductHandler struct {
	products *service.ProductService
}

func NewProductHandler(products *service.ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

func (h *ProductHandler) ListProducts(c *gin.Context) {
	products, err := h.products.ListProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "total": len(products)})
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.products.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// UpsertProducts accepts a JSON array of products.
func (h *ProductHandler) UpsertProducts(c *gin.Context) {
	var products []domain.Product
	if err := c.ShouldBindJSON(&products); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	n, err := h.products.UpsertProducts(c.Request.Context(), products)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"upserted": n})
}

// ImportProducts handles CSV/XLSX product sheet uploads
func (h *ProductHandler) ImportProducts(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data"})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
		return
	}

	var (
		products []domain.Product
		skipped  = make([]string, 0)
	)
	for _, file := range files {
		f, err := file.Open()
		if err != nil {
			log.Error().Err(err).Str("filename", file.Filename).Msg("failed to open uploaded file")
			skipped = append(skipped, file.Filename)
			continue
		}
		parsed, err := importer.ParseProducts(file.Filename, f)
		f.Close()
		if err != nil {
			log.Warn().Err(err).Str("filename", file.Filename).Msg("skipping product sheet")
			skipped = append(skipped, file.Filename)
			continue
		}
		products = append(products, parsed...)
	}

	if len(products) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no valid products to import", "skipped": skipped})
		return
	}

	n, err := h.products.UpsertProducts(c.Request.Context(), products)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"upserted": n, "skipped": skipped})
}
