package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/invoicer/internal/invoice/numbering"
)

type generateNumberRequest struct {
	Type string `json:"type"`
}

type numberPreview struct {
	Type          numbering.Category `json:"type"`
	InvoiceNumber string             `json:"invoice_number"`
}

type numberValidation struct {
	InvoiceNumber string `json:"invoice_number"`
	Unique        bool   `json:"unique"`
	// Checked is false when the store could not answer.
	Checked bool `json:"checked"`
}

// PreviewInvoiceNumber shows the next number for one category, or for all of
// them when type is omitted. Settings fields passed as query parameters are
// previewed without being saved.
func (s *Server) PreviewInvoiceNumber(c *gin.Context) {
	categories := numbering.Categories()
	if raw := strings.TrimSpace(c.Query("type")); raw != "" {
		category, err := numbering.ParseCategory(raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		categories = []numbering.Category{category}
	}

	cfg, overridden, err := s.settingsFromQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	previews := make([]numberPreview, 0, len(categories))
	for _, category := range categories {
		var number string
		if overridden {
			number, err = s.numbering.PreviewWith(cfg, category)
			if err != nil {
				AbortWithError(c, err)
				return
			}
		} else {
			number = s.numbering.Preview(category)
		}
		previews = append(previews, numberPreview{Type: category, InvoiceNumber: number})
	}

	c.JSON(http.StatusOK, gin.H{"data": previews})
}

func (s *Server) settingsFromQuery(c *gin.Context) (numbering.Config, bool, error) {
	cfg := s.numbering.Settings()
	overridden := false

	if v, ok := c.GetQuery("prefix"); ok {
		cfg.Prefix = v
		overridden = true
	}
	if v, ok := c.GetQuery("separator"); ok {
		cfg.Separator = v
		overridden = true
	}
	if v, ok := c.GetQuery("sequence_length"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return numbering.Config{}, false, newValidationError("sequence_length", "invalid_sequence_length", "sequence_length must be a number")
		}
		cfg.SequenceLength = n
		overridden = true
	}
	if v, ok := c.GetQuery("date_granularity"); ok {
		cfg.DateGranularity = numbering.DateGranularity(v)
		overridden = true
	}

	return cfg, overridden, nil
}

func (s *Server) GenerateInvoiceNumber(c *gin.Context) {
	var req generateNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	category, err := numbering.ParseCategory(req.Type)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.numbering.Generate(c.Request.Context(), category)})
}

func (s *Server) ValidateInvoiceNumber(c *gin.Context) {
	number := strings.TrimSpace(c.Query("number"))
	if number == "" {
		AbortWithError(c, newValidationError("number", "required", "number is required"))
		return
	}

	unique, err := s.numbering.ValidateUniqueness(c.Request.Context(), number)
	c.JSON(http.StatusOK, gin.H{"data": numberValidation{
		InvoiceNumber: number,
		Unique:        unique,
		Checked:       err == nil,
	}})
}

func (s *Server) GetNumberingSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.numbering.Settings()})
}

// SaveNumberingSettings merges the body over the current settings, so
// omitted fields keep their values. Values are saved as sent or rejected.
func (s *Server) SaveNumberingSettings(c *gin.Context) {
	cfg := s.numbering.Settings()
	if err := c.ShouldBindJSON(&cfg); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := s.numbering.SaveSettings(cfg); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.numbering.Settings()})
}
