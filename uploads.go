package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/cmdb_cleanser/utils"
	"github.com/mmdatafocus/cmdb_cleanser/workbook"
	"github.com/sirupsen/logrus"
)

// uploadHandler stores the multipart "file" under a generated name and loads it as the workbook in
// flight, replacing any previous one.
func (s *server) uploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("file exceeds the %dMB limit", s.settings.MaxUploadBytes>>20)})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
			return
		}
		if fileHeader.Size > s.settings.MaxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("file exceeds the %dMB limit", s.settings.MaxUploadBytes>>20)})
			return
		}
		if !workbook.Supported(fileHeader.Filename) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "only .xlsx, .xlsm and .csv files are supported"})
			return
		}

		if err := os.MkdirAll(s.settings.UploadDir, 0o755); err != nil {
			respondError(c, err)
			return
		}
		dst := filepath.Join(s.settings.UploadDir, utils.GenerateUniqueFilename(fileHeader.Filename))
		if err := c.SaveUploadedFile(fileHeader, dst); err != nil {
			respondError(c, fmt.Errorf("unable to store upload: %w", err))
			return
		}

		info, err := s.svc.Load(c.Request.Context(), dst, filepath.Base(fileHeader.Filename))
		if err != nil {
			_ = os.Remove(dst)
			respondError(c, err)
			return
		}
		logInfo(c, "workbook uploaded", logrus.Fields{
			"workbook": info.ID,
			"file":     info.FileName,
			"size":     fileHeader.Size,
		})
		c.JSON(http.StatusOK, info)
	}
}
