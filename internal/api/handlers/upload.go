package handlers

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Fungsi untuk validasi file gambar
func validateImage(file *multipart.FileHeader) error {
	// Validasi ukuran file maksimal 5MB
	if file.Size > 5<<20 {
		return fiber.NewError(fiber.StatusBadRequest, "File size exceeds the limit of 5MB")
	}

	// Validasi ekstensi file
	ext := strings.ToLower(filepath.Ext(file.Filename))
	allowedExts := map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}
	if !allowedExts[ext] {
		return fiber.NewError(fiber.StatusBadRequest, "File type not allowed")
	}

	// Validasi tipe konten
	contentType := file.Header.Get("Content-Type")
	if !strings.Contains(contentType, "image") {
		return fiber.NewError(fiber.StatusBadRequest, "File must be an image")
	}

	return nil
}

// saveImage menyimpan file ke UploadDir dengan nama unik dan mengembalikan
// path relatif "uploads/<nama>" yang dipersist di kolom image_path.
// Byte gambar dilayani route statis /uploads, bukan oleh handler task.
func (h *Task) saveImage(c *fiber.Ctx, file *multipart.FileHeader) (string, error) {
	if err := validateImage(file); err != nil {
		return "", err
	}

	// Pastikan folder uploads sudah ada
	if _, err := os.Stat(h.UploadDir); os.IsNotExist(err) {
		if err := os.MkdirAll(h.UploadDir, os.ModePerm); err != nil {
			return "", err
		}
	}

	// Nama file unik berdasarkan timestamp
	newFilename := fmt.Sprintf("%d%s", time.Now().UnixNano(), filepath.Ext(file.Filename))
	if err := c.SaveFile(file, filepath.Join(h.UploadDir, newFilename)); err != nil {
		return "", err
	}

	return "uploads/" + newFilename, nil
}
