package excelimport

import (
	"errors"
	"net/http"

	"bitbucket.org/puretradeops/logistics_backend/config"
	"bitbucket.org/puretradeops/logistics_backend/models"
	"bitbucket.org/puretradeops/logistics_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("logistics-backend/excelimport")

type executeForm struct {
	Mode string `form:"mode" binding:"required,oneof=create_only update_or_create"`
}

type previewCounts struct {
	New    int `json:"new"`
	Update int `json:"update"`
	Error  int `json:"error"`
}

// PreviewHandler parses the uploaded master file and classifies every row
// against the store without writing anything.
func PreviewHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, labels, ok := decodeUpload(c, "file")
		if !ok {
			return
		}

		existing, err := models.ListShipmentReferences(c.Request.Context())
		if err != nil {
			config.LogError(config.GetLogger(), "handlers.go", "PreviewHandler", "list references", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load existing shipments"})
			return
		}

		preview := Classify(ParseRows(rows), existing)
		counts := previewCounts{}
		for _, p := range preview {
			switch p.Status {
			case models.RowStatusNew:
				counts.New++
			case models.RowStatusUpdate:
				counts.Update++
			default:
				counts.Error++
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"rows":    preview,
			"counts":  counts,
			"columns": labels,
		})
	}
}

// ExecuteHandler runs the reconciliation pass over the uploaded master file,
// optionally merged with a secondary enrichment workbook, under the
// cross-process import lock.
func ExecuteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var form executeForm
		if err := c.ShouldBind(&form); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		mode, err := models.ParseImportMode(form.Mode)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		rows, _, ok := decodeUpload(c, "file")
		if !ok {
			return
		}
		parsed := ParseRows(rows)

		// Enrichment is optional and best effort: a bad secondary file
		// must not block the master import.
		if fh, ferr := c.FormFile("enrichment"); ferr == nil && fh != nil {
			src, oerr := fh.Open()
			if oerr == nil {
				index, derr := DecodeEnrichment(src)
				src.Close()
				if derr != nil {
					config.GetLogger().WithFields(logrus.Fields{
						"module":   "excelimport",
						"funcName": "ExecuteHandler",
					}).Warn("failed to decode enrichment file: " + derr.Error())
				} else {
					MergeEnrichment(parsed, index)
				}
			}
		}

		ctx, span := tracer.Start(c.Request.Context(), "excelimport.Execute")
		outcome, err := ExecuteWithLock(ctx, parsed, mode)
		span.End()
		if err != nil {
			if errors.Is(err, utils.ErrorImportLocked) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			config.LogError(config.GetLogger(), "handlers.go", "ExecuteHandler", "execute import", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, outcome)
	}
}

// decodeUpload opens the named multipart file and decodes it as a workbook.
// Responds with the appropriate status itself when something is wrong.
func decodeUpload(c *gin.Context, field string) ([]map[string]string, []string, bool) {
	fh, err := c.FormFile(field)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": field + " upload is required"})
		return nil, nil, false
	}
	src, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot open uploaded file"})
		return nil, nil, false
	}
	defer src.Close()

	rows, labels, err := DecodeWorkbook(src)
	if err != nil {
		// File-format failures are fatal before any row is processed.
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return nil, nil, false
	}
	return rows, labels, true
}
