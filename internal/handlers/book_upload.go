package handlers

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nfnt/resize"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const maxImageSize = 5 << 20

const thumbnailWidth = 300

var allowedImageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
}

// saveBookImage writes the upload under the covers directory and returns the
// public URL path stored on the book document.
func saveBookImage(file *multipart.FileHeader) (string, error) {
	extension := strings.ToLower(filepath.Ext(file.Filename))
	if extension == "" {
		return "", fmt.Errorf("image file extension is required")
	}
	if _, ok := allowedImageExtensions[extension]; !ok {
		return "", fmt.Errorf("unsupported image type: %s", extension)
	}
	if file.Size > maxImageSize {
		return "", fmt.Errorf("image file too large (max 5MB)")
	}

	filename := primitive.NewObjectID().Hex() + extension

	dir := filepath.Join(uploadRoot, "uploads", "covers")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	fullPath := filepath.Join(dir, filename)

	out, err := os.Create(fullPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	in, err := file.Open()
	if err != nil {
		return "", err
	}
	defer in.Close()

	if _, err := io.Copy(out, in); err != nil {
		return "", err
	}

	// Thumbnails only for formats the stdlib decodes; webp stays as-is.
	if extension != ".webp" {
		if err := writeThumbnail(fullPath, extension); err != nil {
			return "", err
		}
	}

	return "/public/" + filepath.ToSlash(filepath.Join("uploads", "covers", filename)), nil
}

// writeThumbnail renders a fixed-width copy next to the original, named
// <id>_thumb<ext>.
func writeThumbnail(fullPath, extension string) error {
	in, err := os.Open(fullPath)
	if err != nil {
		return err
	}
	defer in.Close()

	img, _, err := image.Decode(in)
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	thumb := resize.Resize(thumbnailWidth, 0, img, resize.Lanczos3)

	thumbPath := strings.TrimSuffix(fullPath, extension) + "_thumb" + extension
	out, err := os.Create(thumbPath)
	if err != nil {
		return err
	}
	defer out.Close()

	switch extension {
	case ".png":
		return png.Encode(out, thumb)
	default:
		return jpeg.Encode(out, thumb, &jpeg.Options{Quality: 85})
	}
}

// UploadBookImage attaches a cover image to a book, replacing and deleting
// any previous upload.
func UploadBookImage(db *mongo.Database, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/books/:id/image"
		defer handlePanic(c, logger, route)

		bookID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, "invalid book id")
			return
		}

		fileHeader, err := c.FormFile("image")
		if err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, "image file is required")
			return
		}

		imageURL, err := saveBookImage(fileHeader)
		if err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var previous bson.M
		err = db.Collection("products").FindOneAndUpdate(ctx,
			bson.M{"_id": bookID, "isDeleted": bson.M{"$ne": true}},
			bson.M{"$set": bson.M{"imageUrl": imageURL, "updatedAt": time.Now()}},
		).Decode(&previous)
		if err == mongo.ErrNoDocuments {
			safeDeleteUpload(imageURL)
			respondWithError(c, logger, http.StatusNotFound, route, "book not found")
			return
		}
		if err != nil {
			safeDeleteUpload(imageURL)
			respondWithError(c, logger, http.StatusInternalServerError, route, "db error")
			return
		}

		if oldURL, ok := previous["imageUrl"].(string); ok && oldURL != "" && oldURL != imageURL {
			safeDeleteUpload(oldURL)
		}

		logger.Info("book image uploaded",
			zap.String("bookId", bookID.Hex()),
			zap.String("imageUrl", imageURL),
		)
		c.JSON(http.StatusOK, gin.H{"imageUrl": imageURL})
	}
}
