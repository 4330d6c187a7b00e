package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"civicreport-be/models"
	"civicreport-be/utils"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// UploadsURLPrefix is where saved uploads are served from.
const UploadsURLPrefix = "/uploads"

// UploadController stores media attached to reports.
type UploadController struct {
	dir      string
	maxFiles int
	log      zerolog.Logger
}

// NewUploadController creates dir if needed.
func NewUploadController(dir string, maxFiles int, log zerolog.Logger) (*UploadController, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &UploadController{dir: dir, maxFiles: maxFiles, log: log}, nil
}

// Dir returns the directory uploads are written to.
func (uc *UploadController) Dir() string {
	return uc.dir
}

// UploadFiles saves the "files" parts of a multipart form and returns their
// metadata for use as issue media.
func (uc *UploadController) UploadFiles(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			c.JSON(http.StatusOK, gin.H{"files": []models.MediaRef{}})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	headers := form.File["files"]
	if len(headers) > uc.maxFiles {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("at most %d files per upload", uc.maxFiles)})
		return
	}

	files := make([]models.MediaRef, 0, len(headers))
	for _, fh := range headers {
		name, err := utils.UniqueUploadName(fh.Filename, time.Now())
		if err != nil {
			uc.log.Error().Err(err).Msg("upload name generation failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store upload"})
			return
		}
		dst := filepath.Join(uc.dir, name)
		if err := c.SaveUploadedFile(fh, dst); err != nil {
			uc.log.Error().Err(err).Str("file", name).Msg("saving upload failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store upload"})
			return
		}

		mime := fh.Header.Get("Content-Type")
		if mime == "" || mime == "application/octet-stream" {
			if detected, err := mimetype.DetectFile(dst); err == nil {
				mime = detected.String()
			}
		}
		files = append(files, models.MediaRef{
			Filename: name,
			URL:      UploadsURLPrefix + "/" + name,
			Mimetype: mime,
			Size:     fh.Size,
		})
	}

	uc.log.Info().Int("files", len(files)).Msg("media uploaded")
	c.JSON(http.StatusOK, gin.H{"files": files})
}
