package handlers

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"bookstore/internal/models"
)

// Spreadsheet columns are matched by header name, case-insensitive.
// Unknown columns are ignored so the sheet can carry extra bookkeeping.
var importColumns = map[string]string{
	"title":         "title",
	"author":        "author",
	"price":         "price",
	"originalprice": "originalPrice",
	"category":      "category",
	"description":   "description",
	"stockquantity": "stockQuantity",
	"stock":         "stockQuantity",
	"publisher":     "publisher",
	"language":      "language",
	"imageurl":      "imageUrl",
	"visibility":    "visibility",
}

// parseBookRows turns raw spreadsheet rows (header row first) into books.
// Parsing stops at the first malformed row; the books parsed before it are
// returned alongside the error so the caller can report how far it got.
func parseBookRows(rows [][]string, now time.Time) ([]models.Book, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("file is empty")
	}

	fieldByCol := make(map[int]string)
	for i, header := range rows[0] {
		key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(header), " ", ""))
		if field, ok := importColumns[key]; ok {
			fieldByCol[i] = field
		}
	}
	if len(fieldByCol) == 0 {
		return nil, fmt.Errorf("no recognized columns in header row")
	}

	books := make([]models.Book, 0, len(rows)-1)
	for rowIdx, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}

		book, err := buildBookFromRow(row, fieldByCol, now)
		if err != nil {
			return books, fmt.Errorf("row %d: %w", rowIdx+2, err)
		}
		books = append(books, book)
	}

	return books, nil
}

func buildBookFromRow(row []string, fieldByCol map[int]string, now time.Time) (models.Book, error) {
	book := models.Book{CreatedAt: now, UpdatedAt: now}

	for col, field := range fieldByCol {
		if col >= len(row) {
			continue
		}
		value := strings.TrimSpace(row[col])
		if value == "" {
			continue
		}

		switch field {
		case "title":
			book.Title = value
		case "author":
			book.Author = value
		case "category":
			book.Category = value
		case "description":
			book.Description = value
		case "publisher":
			book.Publisher = value
		case "language":
			book.Language = value
		case "imageUrl":
			book.ImageURL = value
		case "price":
			price, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return models.Book{}, fmt.Errorf("invalid price %q", value)
			}
			book.Price = price
		case "originalPrice":
			originalPrice, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return models.Book{}, fmt.Errorf("invalid originalPrice %q", value)
			}
			book.OriginalPrice = originalPrice
		case "stockQuantity":
			stock, err := strconv.Atoi(value)
			if err != nil || stock < 0 {
				return models.Book{}, fmt.Errorf("invalid stockQuantity %q", value)
			}
			book.StockQuantity = stock
		case "visibility":
			book.Visibility = value == "true" || value == "on" || value == "1"
		}
	}

	if book.Title == "" {
		return models.Book{}, fmt.Errorf("title is required")
	}
	if err := validateBookPricing(book.Price, book.OriginalPrice); err != nil {
		return models.Book{}, err
	}
	book.OfferPercent = offerPercent(book.Price, book.OriginalPrice)

	return book, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func readSpreadsheetRows(filename string, file io.Reader) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		wb, err := excelize.OpenReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
		}
		defer wb.Close()

		sheets := wb.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("spreadsheet has no sheets")
		}
		return wb.GetRows(sheets[0])
	case ".csv":
		reader := csv.NewReader(file)
		reader.FieldsPerRecord = -1
		return reader.ReadAll()
	default:
		return nil, fmt.Errorf("unsupported file type, expected .xlsx or .csv")
	}
}

// ImportBooks bulk-inserts books from an uploaded spreadsheet. Rows insert
// sequentially and the import stops at the first bad row; rows already
// inserted stay, and the response reports the imported count plus the error.
func ImportBooks(db *mongo.Database, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/books/import"
		defer handlePanic(c, logger, route)

		fileHeader, err := c.FormFile("file")
		if err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, "file is required")
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, "failed to read file")
			return
		}
		defer file.Close()

		rows, err := readSpreadsheetRows(fileHeader.Filename, file)
		if err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, err.Error())
			return
		}

		now := time.Now()
		books, parseErr := parseBookRows(rows, now)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		imported := 0
		var insertErr error
		for _, book := range books {
			if _, err := db.Collection("products").InsertOne(ctx, book); err != nil {
				insertErr = err
				break
			}
			imported++
		}

		logger.Info("book import finished",
			zap.String("file", fileHeader.Filename),
			zap.Int("imported", imported),
			zap.Int("parsed", len(books)),
		)

		switch {
		case insertErr != nil:
			c.JSON(http.StatusInternalServerError, gin.H{
				"imported": imported,
				"error":    "import stopped: db error",
			})
		case parseErr != nil:
			c.JSON(http.StatusBadRequest, gin.H{
				"imported": imported,
				"error":    "import stopped: " + parseErr.Error(),
			})
		default:
			c.JSON(http.StatusOK, gin.H{"imported": imported})
		}
	}
}
